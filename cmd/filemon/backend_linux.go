//go:build linux

package main

import (
	"github.com/steveyegge/filemon/internal/monitor"
	"github.com/steveyegge/filemon/internal/notify"
)

// newNativeRunner builds a Monitor on a fresh inotify instance.
func newNativeRunner(path string, config *monitor.Config) (runner, error) {
	inst, err := notify.NewInstance()
	if err != nil {
		return nil, err
	}

	m, err := monitor.New(path, inst, config)
	if err != nil {
		_ = inst.Close()
		return nil, err
	}
	return m, nil
}
