package monitor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/steveyegge/filemon/internal/notify"
)

// Config holds configuration for a Monitor.
type Config struct {
	// BufferSize is the capacity of the read buffer, in bytes. One read
	// fills at most this many bytes; events that do not fit wait for the
	// next read.
	BufferSize int

	// RetryAttempts is how many consecutive read failures are retried
	// before the loop stops for good.
	RetryAttempts int

	// RetryBackoff is how long to wait between read retries.
	RetryBackoff time.Duration

	// Logger for monitor activity
	Logger *log.Logger

	// OnEvent, if set, receives a Record for every dispatched event.
	OnEvent func(Record)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BufferSize:    64 * 1024,
		RetryAttempts: 3,
		RetryBackoff:  100 * time.Millisecond,
		Logger:        log.New(os.Stderr, "[filemon] ", log.LstdFlags),
	}
}

// Record is one dispatched event, as delivered to the OnEvent sink.
type Record struct {
	// Time is when the event was dispatched.
	Time time.Time
	// Source is which watch reported the event: "directory" or "file".
	Source string
	// Name is the target filename.
	Name string
	// Kind is the short event-kind token ("create", "modify", ...).
	Kind string
	// Mask is the raw event-kind bitmask.
	Mask uint32
}

// Monitor watches a single named file for lifecycle and content events,
// surviving delete/recreate cycles.
//
// It holds a permanent watch on the file's parent directory and an on-demand
// watch on the file itself. Directory events filtered to the target filename
// are the sole authority over the file watch: a create (re)arms it, a delete
// or rename-over disarms it. File events only produce log output.
type Monitor struct {
	path string // full target path
	dir  string // parent directory component
	name string // filename component

	cap    notify.Capability
	config *Config
	buf    []byte // instance-owned read buffer; valid bytes set per read

	mu        sync.Mutex
	dirWatch  int // -1 when absent
	fileWatch int // -1 when absent
	running   bool

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Monitor for the file at path using the given capability.
//
// The directory watch is registered here and its failure is fatal: without
// directory coverage, create/delete cycles of the target can never be
// observed. The file watch is also attempted, but its failure is tolerated
// and logged, since the file may not exist yet.
//
// Use Start() to begin the read loop.
func New(path string, capability notify.Capability, config *Config) (*Monitor, error) {
	if capability == nil {
		return nil, fmt.Errorf("capability cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[filemon] ", log.LstdFlags)
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultConfig().BufferSize
	}

	name := filepath.Base(path)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("target path %q has no filename component", path)
	}

	m := &Monitor{
		path:      path,
		dir:       filepath.Dir(path),
		name:      name,
		cap:       capability,
		config:    config,
		buf:       make([]byte, config.BufferSize),
		dirWatch:  -1,
		fileWatch: -1,
		done:      make(chan struct{}),
	}

	if err := m.addDirWatch(); err != nil {
		return nil, err
	}

	// The directory watch covers create/delete of the file, so a missing
	// file here is not an error.
	if err := m.addFileWatch(); err != nil {
		m.config.Logger.Printf("File watch unavailable, will arm on create: %v", err)
	}

	return m, nil
}

// Path returns the target path this monitor was constructed with.
func (m *Monitor) Path() string {
	return m.path
}

// DirWatchActive reports whether the directory watch is currently registered.
func (m *Monitor) DirWatchActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirWatch != -1
}

// FileWatchActive reports whether the file watch is currently registered.
func (m *Monitor) FileWatchActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fileWatch != -1
}

// addDirWatch registers the parent-directory watch for the full event-kind set.
func (m *Monitor) addDirWatch() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dirWatch != -1 {
		return nil
	}

	wd, err := m.cap.AddWatch(m.dir, notify.AllEvents)
	if err != nil {
		m.config.Logger.Printf("Failed to watch directory %s: %v", m.dir, err)
		return fmt.Errorf("failed to watch directory %s: %w", m.dir, err)
	}
	m.dirWatch = wd

	m.config.Logger.Printf("Watching directory %s", m.dir)
	return nil
}

// removeDirWatch unregisters the directory watch if present. The stored
// handle is cleared whether or not the underlying removal succeeds.
func (m *Monitor) removeDirWatch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dirWatch == -1 {
		return
	}

	m.config.Logger.Printf("Removing watch on %s", m.dir)
	if err := m.cap.RemoveWatch(m.dirWatch); err != nil {
		m.config.Logger.Printf("Error removing directory watch: %v", err)
	}
	m.dirWatch = -1
}

// addFileWatch registers the target-file watch for the full event-kind set.
func (m *Monitor) addFileWatch() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fileWatch != -1 {
		return nil
	}

	wd, err := m.cap.AddWatch(m.path, notify.AllEvents)
	if err != nil {
		return fmt.Errorf("failed to watch file %s: %w", m.path, err)
	}
	m.fileWatch = wd

	m.config.Logger.Printf("Watching file %s", m.name)
	return nil
}

// removeFileWatch unregisters the file watch if present. The stored handle is
// cleared whether or not the underlying removal succeeds.
func (m *Monitor) removeFileWatch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fileWatch == -1 {
		return
	}

	m.config.Logger.Printf("Removing watch on %s", m.name)
	if err := m.cap.RemoveWatch(m.fileWatch); err != nil {
		m.config.Logger.Printf("Error removing file watch: %v", err)
	}
	m.fileWatch = -1
}

// Start begins the read loop in a background goroutine.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("monitor already running")
	}
	m.running = true

	m.wg.Add(1)
	go m.readLoop()
	return nil
}

// Stop tears the monitor down: directory watch, then file watch, then the
// capability itself, each tolerating the handle already being absent. Closing
// the capability fails the outstanding read, which ends the read loop.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	close(m.done)

	m.removeDirWatch()
	m.removeFileWatch()

	if err := m.cap.Close(); err != nil {
		m.config.Logger.Printf("Error closing watch capability: %v", err)
	}

	m.wg.Wait()
	return nil
}

// readLoop drives the perpetual read, decode, dispatch cycle. Exactly one
// read is outstanding at a time and decode/dispatch runs synchronously
// between reads, so events are processed strictly in arrival order.
func (m *Monitor) readLoop() {
	defer m.wg.Done()

	attempts := 0
	for {
		n, err := m.cap.Read(m.buf)
		if err != nil {
			select {
			case <-m.done:
				return
			default:
			}

			attempts++
			if attempts > m.config.RetryAttempts {
				m.config.Logger.Printf("Read failed after %d attempts, stopping: %v", attempts, err)
				return
			}
			m.config.Logger.Printf("Read error (attempt %d of %d): %v", attempts, m.config.RetryAttempts, err)
			time.Sleep(m.config.RetryBackoff)
			continue
		}
		attempts = 0

		events, dropped := notify.Decode(m.buf, n)
		if dropped > 0 {
			m.config.Logger.Printf("Dropped %d records with names split across the read boundary", dropped)
		}
		for _, ev := range events {
			if !m.dispatch(ev) {
				break
			}
		}
	}
}

// dispatch routes one decoded event. It returns false to abandon the rest of
// the current decode pass, which happens only when re-arming the file watch
// after a create fails.
func (m *Monitor) dispatch(ev notify.Event) bool {
	m.mu.Lock()
	dirWatch, fileWatch := m.dirWatch, m.fileWatch
	m.mu.Unlock()

	switch {
	case dirWatch != -1 && int(ev.Wd) == dirWatch:
		// Directory events carry the entry name; anything that is not the
		// target produces no dispatch at all.
		if ev.Name == "" || ev.Name != m.name {
			return true
		}

		m.config.Logger.Printf("%s inside %s\n    %s", ev.Name, m.dir, notify.Describe(ev.Mask))
		m.emit("directory", ev)

		switch {
		case ev.Has(notify.Create):
			// A stale handle may linger if the file vanished without a
			// directory event; clear it before re-arming.
			m.removeFileWatch()
			if err := m.addFileWatch(); err != nil {
				m.config.Logger.Printf("Failed to re-arm file watch: %v", err)
				return false
			}
		case ev.Has(notify.Delete), ev.Has(notify.MovedTo):
			m.removeFileWatch()
		}

	case fileWatch != -1 && int(ev.Wd) == fileWatch:
		// File events never change watch state; directory events are the
		// sole authority over the file watch.
		m.config.Logger.Printf("%s\n    %s", m.name, notify.Describe(ev.Mask))
		m.emit("file", ev)
	}

	return true
}

// emit forwards a dispatched event to the OnEvent sink, if one is configured.
func (m *Monitor) emit(source string, ev notify.Event) {
	if m.config.OnEvent == nil {
		return
	}
	m.config.OnEvent(Record{
		Time:   time.Now(),
		Source: source,
		Name:   m.name,
		Kind:   notify.KindName(ev.Mask),
		Mask:   ev.Mask,
	})
}
