package monitor

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/steveyegge/filemon/internal/notify"
)

// PortableWatcher is the fsnotify-backed equivalent of Monitor for platforms
// without the native event stream.
//
// It watches the parent directory rather than the file itself, which is the
// robust way to follow files that editors replace by rename, and filters
// events down to the target filename. Log lines and Records match Monitor's,
// with fsnotify operations mapped onto the native event kinds.
type PortableWatcher struct {
	path string
	dir  string
	name string

	watcher *fsnotify.Watcher
	config  *Config

	mu      sync.Mutex
	running bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewPortable creates a PortableWatcher for the file at path.
//
// As with Monitor, failure to watch the parent directory is fatal; the file
// itself is not watched directly, so a missing file is fine.
func NewPortable(path string, config *Config) (*PortableWatcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[filemon] ", log.LstdFlags)
	}

	name := filepath.Base(path)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, fmt.Errorf("target path %q has no filename component", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	config.Logger.Printf("Watching directory %s", dir)

	return &PortableWatcher{
		path:    path,
		dir:     dir,
		name:    name,
		watcher: watcher,
		config:  config,
		done:    make(chan struct{}),
	}, nil
}

// Path returns the target path this watcher was constructed with.
func (p *PortableWatcher) Path() string {
	return p.path
}

// Start begins processing events in a background goroutine.
func (p *PortableWatcher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("watcher already running")
	}
	p.running = true

	p.wg.Add(1)
	go p.processEvents()
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (p *PortableWatcher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	close(p.done)

	if err := p.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	p.wg.Wait()
	return nil
}

// processEvents consumes fsnotify events and dispatches the ones that match
// the target filename.
func (p *PortableWatcher) processEvents() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != p.name {
				continue
			}
			mask := maskForOp(event.Op)
			if mask == 0 {
				continue
			}

			p.config.Logger.Printf("%s inside %s\n    %s", p.name, p.dir, notify.Describe(mask))
			if p.config.OnEvent != nil {
				p.config.OnEvent(Record{
					Time:   time.Now(),
					Source: "directory",
					Name:   p.name,
					Kind:   notify.KindName(mask),
					Mask:   mask,
				})
			}

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// maskForOp maps an fsnotify operation onto the native event-kind masks so
// both watcher implementations share one description table.
func maskForOp(op fsnotify.Op) uint32 {
	switch {
	case op.Has(fsnotify.Create):
		return notify.Create
	case op.Has(fsnotify.Write):
		return notify.Modify
	case op.Has(fsnotify.Remove):
		return notify.Delete
	case op.Has(fsnotify.Rename):
		return notify.MovedFrom
	case op.Has(fsnotify.Chmod):
		return notify.Attrib
	default:
		return 0
	}
}
