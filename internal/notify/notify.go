// Package notify provides the low-level watch capabilities consumed by the
// monitor: OS watch registration, the raw event stream, and the wire-format
// decoder for that stream.
//
// The package separates capability from policy. Registrar and Reader describe
// what the OS gives us (register a watch, read a batch of raw event bytes);
// Instance implements both on Linux inotify. Everything above this package
// works against the interfaces, which keeps the monitor's state machine
// testable without touching the kernel.
package notify

import "io"

// Event kind masks. Values follow the inotify ABI (see inotify(7)), which is
// also what the wire decoder reads, so they are defined here rather than
// aliased from golang.org/x/sys/unix to keep decoding portable.
const (
	// Access indicates the file was read.
	Access uint32 = 0x00000001
	// Modify indicates the file was written.
	Modify uint32 = 0x00000002
	// Attrib indicates metadata changed (permissions, timestamps, ...).
	Attrib uint32 = 0x00000004
	// CloseWrite indicates a writable file descriptor was closed.
	CloseWrite uint32 = 0x00000008
	// CloseNoWrite indicates a read-only file descriptor was closed.
	CloseNoWrite uint32 = 0x00000010
	// Open indicates the file was opened.
	Open uint32 = 0x00000020
	// MovedFrom indicates an entry was renamed away from this name.
	MovedFrom uint32 = 0x00000040
	// MovedTo indicates an entry was renamed to this name.
	MovedTo uint32 = 0x00000080
	// Create indicates an entry was created in a watched directory.
	Create uint32 = 0x00000100
	// Delete indicates an entry was deleted from a watched directory.
	Delete uint32 = 0x00000200
	// DeleteSelf indicates the watched entry itself was deleted.
	DeleteSelf uint32 = 0x00000400
	// MoveSelf indicates the watched entry itself was moved.
	MoveSelf uint32 = 0x00000800

	// AllEvents is the full event-kind set.
	AllEvents uint32 = 0x00000fff
)

// Event is one decoded record from the raw event stream.
type Event struct {
	Wd     int32  // watch descriptor the event was reported against
	Mask   uint32 // event-kind bitmask
	Cookie uint32 // associates related rename events
	Name   string // directory entry the event refers to; empty for watch-target events
}

// Has reports whether the event's mask includes h.
func (e Event) Has(h uint32) bool {
	return e.Mask&h != 0
}

// Registrar is the OS watch-registration capability.
type Registrar interface {
	// AddWatch registers a watch on path for the event kinds in mask and
	// returns its watch descriptor.
	AddWatch(path string, mask uint32) (int, error)

	// RemoveWatch unregisters a previously returned watch descriptor.
	RemoveWatch(wd int) error
}

// Reader is the reactor capability: one blocking read of the raw event stream
// at a time, filling p with whole or partial event records.
type Reader interface {
	Read(p []byte) (int, error)
}

// Capability bundles everything the monitor consumes from the OS. Closing the
// capability releases the underlying descriptor, which also fails any
// outstanding read; that is the monitor's cancellation path.
type Capability interface {
	Registrar
	Reader
	io.Closer
}

// kindDescriptions maps each event kind to its log description, checked in
// order. The table is fixed; kinds outside it describe to "".
var kindDescriptions = []struct {
	mask uint32
	kind string
	desc string
}{
	{Access, "access", "file was accessed"},
	{Attrib, "attrib", "metadata changed"},
	{CloseWrite, "close_write", "file opened for writing was closed"},
	{CloseNoWrite, "close_nowrite", "file not opened for writing was closed"},
	{Create, "create", "entry created in watched directory"},
	{Delete, "delete", "entry deleted from watched directory"},
	{DeleteSelf, "delete_self", "watched entry was itself deleted"},
	{Modify, "modify", "file was modified"},
	{MoveSelf, "move_self", "watched entry was itself moved"},
	{MovedFrom, "moved_from", "entry renamed away from this name"},
	{MovedTo, "moved_to", "entry renamed to this name"},
	{Open, "open", "file was opened"},
}

// Describe returns a human-readable description for the first recognized kind
// in mask, or "" if no kind is recognized.
func Describe(mask uint32) string {
	for _, k := range kindDescriptions {
		if mask&k.mask != 0 {
			return k.kind + ": " + k.desc
		}
	}
	return ""
}

// KindName returns the short token for the first recognized kind in mask
// ("create", "delete", ...), or "" if no kind is recognized.
func KindName(mask uint32) string {
	for _, k := range kindDescriptions {
		if mask&k.mask != 0 {
			return k.kind
		}
	}
	return ""
}
