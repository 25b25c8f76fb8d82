package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	QueueDir     string        `yaml:"queue_dir" validate:"required"`
	Store        string        `yaml:"store" validate:"oneof=json sqlite"`
	KeepDays     int           `yaml:"keep_days" validate:"gte=0"`
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`
}

const (
	configFileName = "config.yaml"
	// EnvPath overrides the config file location.
	EnvPath = "JOBQ_CONFIG"
)

// NewConfig creates a config with default values
func NewConfig() *Config {
	return &Config{
		QueueDir:     "/var/lib/job-queue",
		Store:        "json",
		KeepDays:     7,
		PollInterval: time.Second,
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed on '%s' validation", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Path returns the config file location: $JOBQ_CONFIG, else jobq/config.yaml
// under the user config directory.
func Path() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "jobq", configFileName), nil
}

// LoadConfig reads the config file, writing one with the defaults on first
// run.
func LoadConfig() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Save defaults on first run; an unwritable config dir is not fatal.
			_ = SaveFile(path, cfg)
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func SaveConfig(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

func SaveFile(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Set updates one setting by its CLI key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "queue-dir":
		c.QueueDir = value
	case "store":
		c.Store = value
	case "keep-days":
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for keep-days: %s", value)
		}
		c.KeepDays = i
	case "poll-interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid value for poll-interval: %s", value)
		}
		c.PollInterval = d
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return c.Validate()
}
