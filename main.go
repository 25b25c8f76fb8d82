package main

import (
	"log"

	"github.com/sunadarake/jobq/cmd"
	"github.com/sunadarake/jobq/internal/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	cmd.Execute(cfg)
}
