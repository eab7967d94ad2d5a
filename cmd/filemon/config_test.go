package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "watch"}
	registerWatchFlags(cmd)
	return cmd
}

func TestLoadOptions_Defaults(t *testing.T) {
	opts, err := loadOptions(newTestCommand())
	if err != nil {
		t.Fatalf("loadOptions() failed: %v", err)
	}

	if opts.BufferSize != 64*1024 {
		t.Errorf("BufferSize = %d, want %d", opts.BufferSize, 64*1024)
	}
	if opts.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", opts.RetryAttempts)
	}
	if opts.RetryBackoff != 100*time.Millisecond {
		t.Errorf("RetryBackoff = %v, want 100ms", opts.RetryBackoff)
	}
	if opts.Backend != defaultBackend() {
		t.Errorf("Backend = %q, want %q", opts.Backend, defaultBackend())
	}
	if opts.Journal != "" || opts.DashboardPort != 0 {
		t.Errorf("Sinks should be disabled by default, got %+v", opts)
	}
}

func TestLoadOptions_FlagsOverride(t *testing.T) {
	cmd := newTestCommand()
	if err := cmd.Flags().Set("buffer-size", "1024"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("backend", "fsnotify"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("retry-backoff", "250ms"); err != nil {
		t.Fatal(err)
	}

	opts, err := loadOptions(cmd)
	if err != nil {
		t.Fatalf("loadOptions() failed: %v", err)
	}

	if opts.BufferSize != 1024 {
		t.Errorf("BufferSize = %d, want 1024", opts.BufferSize)
	}
	if opts.Backend != "fsnotify" {
		t.Errorf("Backend = %q, want fsnotify", opts.Backend)
	}
	if opts.RetryBackoff != 250*time.Millisecond {
		t.Errorf("RetryBackoff = %v, want 250ms", opts.RetryBackoff)
	}
}

func TestLoadOptions_ConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "filemon.yaml")
	cfg := "buffer_size: 2048\nbackend: fsnotify\njournal: events.db\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cmd := newTestCommand()
	if err := cmd.Flags().Set("config", cfgPath); err != nil {
		t.Fatal(err)
	}

	opts, err := loadOptions(cmd)
	if err != nil {
		t.Fatalf("loadOptions() failed: %v", err)
	}

	if opts.BufferSize != 2048 {
		t.Errorf("BufferSize = %d, want 2048", opts.BufferSize)
	}
	if opts.Journal != "events.db" {
		t.Errorf("Journal = %q, want events.db", opts.Journal)
	}
}

func TestLoadOptions_InvalidBackend(t *testing.T) {
	cmd := newTestCommand()
	if err := cmd.Flags().Set("backend", "kqueue"); err != nil {
		t.Fatal(err)
	}

	if _, err := loadOptions(cmd); err == nil {
		t.Error("loadOptions() should reject an unknown backend")
	}
}

func TestLoadOptions_InvalidBufferSize(t *testing.T) {
	cmd := newTestCommand()
	if err := cmd.Flags().Set("buffer-size", "-1"); err != nil {
		t.Fatal(err)
	}

	if _, err := loadOptions(cmd); err == nil {
		t.Error("loadOptions() should reject a non-positive buffer size")
	}
}
