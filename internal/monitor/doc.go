// Package monitor provides single-file lifecycle monitoring that survives the
// file being deleted and recreated.
//
// # Architecture
//
// The package has two watcher implementations:
//
//   - Monitor: the native implementation, built on the raw capabilities in
//     internal/notify (inotify on Linux). It decodes the kernel's event
//     stream itself and runs the watch-lifecycle state machine.
//   - PortableWatcher: an fsnotify-backed equivalent for platforms without
//     the native stream, producing the same log lines and Records.
//
// # Watch lifecycle
//
// A Monitor holds a permanent watch on the target's parent directory and an
// on-demand watch on the target file itself. The directory watch exists to
// observe create, delete, and rename activity for the target name; it is
// mandatory, and failure to register it makes construction fail. The file
// watch observes content and metadata activity while the file exists, and is
// re-established whenever a directory event reports the name (re)appearing:
//
//	m, err := monitor.New("/watched/dir/target.txt", inst, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := m.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Stop()
//
// Directory events whose entry name is not the target filename are discarded
// without any observable effect. File events are logged but never mutate
// watch state: the directory watch is the sole authority over the file
// watch's existence.
//
// # Concurrency
//
// The read loop is single-flow: exactly one read is outstanding at a time,
// and decode plus dispatch run synchronously between reads, so events within
// and across buffer fills are processed strictly in arrival order. Start()
// and Stop() should be called from a single controlling goroutine; the
// accessors (Path, DirWatchActive, FileWatchActive) are safe from any
// goroutine.
//
// # Known limitations
//
// The stream decoder carries no state between buffer fills. An event record
// whose name payload is split exactly across two fills is dropped (and
// counted), not reassembled. Read errors are retried a bounded number of
// times with backoff, after which the loop stops permanently.
package monitor
