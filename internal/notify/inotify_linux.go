//go:build linux

package notify

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Instance owns one inotify file descriptor and implements Capability on it.
//
// Reads block until the kernel has events to deliver. Close releases the
// descriptor; a read issued after Close fails with EBADF, which is how the
// monitor's read loop learns it is being torn down.
type Instance struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// NewInstance initializes a new inotify instance.
func NewInstance() (*Instance, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("inotify_init1", err)
	}
	return &Instance{fd: fd}, nil
}

// AddWatch registers a watch on path for the event kinds in mask.
func (in *Instance) AddWatch(path string, mask uint32) (int, error) {
	wd, err := unix.InotifyAddWatch(in.fd, path, mask)
	if err != nil {
		return -1, fmt.Errorf("inotify_add_watch %s: %w", path, err)
	}
	return wd, nil
}

// RemoveWatch unregisters a watch descriptor. Removing a descriptor the
// kernel has already dropped (e.g. the watched path was deleted) returns
// EINVAL, which is reported to the caller and safe to ignore.
func (in *Instance) RemoveWatch(wd int) error {
	if _, err := unix.InotifyRmWatch(in.fd, uint32(wd)); err != nil {
		return fmt.Errorf("inotify_rm_watch %d: %w", wd, err)
	}
	return nil
}

// Read blocks until the kernel delivers a batch of raw event records into p.
// It retries on EINTR.
func (in *Instance) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(in.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, os.NewSyscallError("read", err)
		}
		return n, nil
	}
}

// Close releases the inotify descriptor. Safe to call more than once.
func (in *Instance) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return nil
	}
	in.closed = true

	if err := unix.Close(in.fd); err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}
