package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sunadarake/jobq/internal/config"
)

func runCLI(t *testing.T, dir, store string, args ...string) (string, error) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.QueueDir = dir
	cfg.Store = store
	cfg.PollInterval = 10 * time.Millisecond

	root := NewRootCmd(cfg)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

var addedID = regexp.MustCompile(`ID=(\d+)`)

func TestAddRunDetail(t *testing.T) {
	for _, store := range []string{"json", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "queue")

			out, err := runCLI(t, dir, store, "add", "echo", "hi")
			if err != nil {
				t.Fatalf("add: %v", err)
			}
			m := addedID.FindStringSubmatch(out)
			if m == nil {
				t.Fatalf("add output has no id: %q", out)
			}
			id := m[1]

			out, err = runCLI(t, dir, store, "list")
			if err != nil || !strings.Contains(out, id) || !strings.Contains(out, "pending") {
				t.Fatalf("list = %q, %v", out, err)
			}

			out, err = runCLI(t, dir, store, "run")
			if err != nil || !strings.Contains(out, "completed (exit code: 0)") {
				t.Fatalf("run = %q, %v", out, err)
			}

			out, err = runCLI(t, dir, store, "detail", id)
			if err != nil {
				t.Fatalf("detail: %v", err)
			}
			for _, want := range []string{"Status:      completed", "Exit code:   0", "Args:        hi", "Log file:"} {
				if !strings.Contains(out, want) {
					t.Fatalf("detail output missing %q:\n%s", want, out)
				}
			}

			logData, err := os.ReadFile(filepath.Join(dir, "logs", id+".log"))
			if err != nil || string(logData) != "hi\n" {
				t.Fatalf("log = %q, %v", logData, err)
			}

			out, _ = runCLI(t, dir, store, "list")
			if strings.Contains(out, id) {
				t.Fatalf("finished job listed without --all: %q", out)
			}
			out, _ = runCLI(t, dir, store, "list", "--all")
			if !strings.Contains(out, id) {
				t.Fatalf("finished job missing from --all: %q", out)
			}

			out, _ = runCLI(t, dir, store, "run")
			if !strings.Contains(out, "No job to run.") {
				t.Fatalf("run on empty queue = %q", out)
			}
		})
	}
}

func TestAddPassesFlagsToJob(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "json", "add", "sh", "-c", "exit 4")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Command: sh -c exit 4") {
		t.Fatalf("add output = %q", out)
	}
	out, err = runCLI(t, dir, "json", "run")
	if err != nil || !strings.Contains(out, "failed (exit code: 4)") {
		t.Fatalf("run = %q, %v", out, err)
	}
}

func TestRemoveCommand(t *testing.T) {
	dir := t.TempDir()
	out, _ := runCLI(t, dir, "json", "add", "true")
	first := addedID.FindStringSubmatch(out)[1]
	out, _ = runCLI(t, dir, "json", "add", "true")
	second := addedID.FindStringSubmatch(out)[1]

	if _, err := runCLI(t, dir, "json", "run"); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, dir, "json", "remove", first); err == nil || !strings.Contains(err.Error(), "status: completed") {
		t.Fatalf("remove of finished job: %v", err)
	}
	if out, err := runCLI(t, dir, "json", "remove", second); err != nil || !strings.Contains(out, "removed") {
		t.Fatalf("remove pending = %q, %v", out, err)
	}
	if _, err := runCLI(t, dir, "json", "remove", second); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("remove twice: %v", err)
	}
	if _, err := runCLI(t, dir, "json", "detail", "12345"); err == nil {
		t.Fatal("detail of unknown job should fail")
	}
	if _, err := runCLI(t, dir, "json", "detail", "abc"); err == nil {
		t.Fatal("detail with a non-numeric id should fail")
	}
}

func TestWorkerAndClean(t *testing.T) {
	dir := t.TempDir()
	for _, args := range [][]string{{"add", "true"}, {"add", "false"}, {"add", "echo", "x"}} {
		if _, err := runCLI(t, dir, "json", args...); err != nil {
			t.Fatal(err)
		}
	}

	out, err := runCLI(t, dir, "json", "worker")
	if err != nil || !strings.Contains(out, "Ran 3 job(s): 2 completed, 1 failed") {
		t.Fatalf("worker = %q, %v", out, err)
	}

	out, err = runCLI(t, dir, "json", "clean")
	if err != nil || !strings.Contains(out, "Removed 0 job(s)") {
		t.Fatalf("clean = %q, %v", out, err)
	}
	out, err = runCLI(t, dir, "json", "clean", "--keep-days", "0")
	if err != nil || !strings.Contains(out, "Removed 3 job(s)") {
		t.Fatalf("clean --keep-days 0 = %q, %v", out, err)
	}
	logs, _ := filepath.Glob(filepath.Join(dir, "logs", "*.log"))
	if len(logs) != 0 {
		t.Fatalf("logs left after clean: %v", logs)
	}
}

func TestTruncateCountsCharacters(t *testing.T) {
	long := "echo " + strings.Repeat("バックアップ", 7)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "echo hi", "echo hi"},
		{"exact width", strings.Repeat("a", 40), strings.Repeat("a", 40)},
		{"ascii over width", strings.Repeat("a", 41), strings.Repeat("a", 37) + "..."},
		{"multibyte fits", "echo バックアップ", "echo バックアップ"},
		{"multibyte over width", long, string([]rune(long)[:37]) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, maxCommandWidth)
			if got != tt.want {
				t.Fatalf("truncate = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("truncate produced invalid UTF-8: %q", got)
			}
			if n := utf8.RuneCountInString(got); n > maxCommandWidth {
				t.Fatalf("truncate = %d characters, want at most %d", n, maxCommandWidth)
			}
		})
	}
}

func TestListShowsMultibyteCommand(t *testing.T) {
	dir := t.TempDir()
	args := append([]string{"add", "echo"}, strings.Fields(strings.Repeat("バックアップ ", 6))...)
	if _, err := runCLI(t, dir, "json", args...); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err := runCLI(t, dir, "json", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !utf8.ValidString(out) || !strings.Contains(out, "...") {
		t.Fatalf("list output = %q", out)
	}
}
