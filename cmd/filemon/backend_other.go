//go:build !linux

package main

import (
	"fmt"
	"runtime"

	"github.com/steveyegge/filemon/internal/monitor"
)

// newNativeRunner reports that the native event stream is unavailable here;
// the fsnotify backend covers these platforms.
func newNativeRunner(path string, config *monitor.Config) (runner, error) {
	return nil, fmt.Errorf("the native backend is not available on %s, use --backend fsnotify", runtime.GOOS)
}
