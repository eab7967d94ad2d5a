package monitor

import (
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newPortableForTest(t *testing.T) (*PortableWatcher, string, chan Record) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "target.txt")
	records := make(chan Record, 16)

	config := DefaultConfig()
	config.Logger = log.New(os.Stderr, "[test] ", log.LstdFlags)
	config.OnEvent = func(r Record) { records <- r }

	p, err := NewPortable(path, config)
	if err != nil {
		t.Fatalf("NewPortable() failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { p.Stop() })

	return p, path, records
}

func TestPortable_NonexistentDirectory(t *testing.T) {
	_, err := NewPortable("/nonexistent/dir/target.txt", DefaultConfig())
	if err == nil {
		t.Fatal("NewPortable() should fail when the parent directory does not exist")
	}
}

func TestPortable_TargetCreated(t *testing.T) {
	_, path, records := newPortableForTest(t)

	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to write target: %v", err)
	}

	select {
	case rec := <-records:
		if rec.Kind != "create" {
			t.Errorf("Expected create, got %s", rec.Kind)
		}
		if rec.Name != "target.txt" {
			t.Errorf("Expected target.txt, got %s", rec.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timeout waiting for create event")
	}
}

func TestPortable_TargetDeleted(t *testing.T) {
	_, path, records := newPortableForTest(t)

	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to write target: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("Failed to remove target: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case rec := <-records:
			if rec.Kind == "delete" {
				return
			}
		case <-timeout:
			t.Fatal("Timeout waiting for delete event")
		}
	}
}

func TestPortable_OtherEntriesIgnored(t *testing.T) {
	p, path, records := newPortableForTest(t)

	other := filepath.Join(filepath.Dir(path), "other.txt")
	if err := os.WriteFile(other, []byte("noise"), 0644); err != nil {
		t.Fatalf("Failed to write other file: %v", err)
	}

	select {
	case rec := <-records:
		t.Errorf("Should not receive event for other entries, got %+v", rec)
	case <-time.After(500 * time.Millisecond):
		// Expected.
	}

	if p.Path() != path {
		t.Errorf("Path() = %s, want %s", p.Path(), path)
	}
}

func TestPortable_StopIdempotent(t *testing.T) {
	dir := t.TempDir()
	p, err := NewPortable(filepath.Join(dir, "target.txt"), DefaultConfig())
	if err != nil {
		t.Fatalf("NewPortable() failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Second Stop() failed: %v", err)
	}
}
