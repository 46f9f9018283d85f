// SPDX-License-Identifier: AGPL-3.0-only
package singleton

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock represents an acquired process singleton lock.
type Lock struct {
	flock *flock.Flock
}

// TryAcquire attempts to acquire the singleton lock at lockPath. It returns
// the lock and true if acquired (primary instance), or nil and false if the
// lock is already held by another process. Only the primary instance may
// spawn stdio MCP server children; a second orchestrator against the same
// config would double-spawn them.
func TryAcquire(lockPath string) (*Lock, bool, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, false, fmt.Errorf("singleton: create lock directory: %w", err)
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("singleton: try lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{flock: fl}, true, nil
}

// Release releases the singleton lock.
func (l *Lock) Release() error {
	return l.flock.Unlock()
}
