package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the named backend rooted at dir. The memory backend ignores dir.
func Open(backend, dir string) (DB, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendBadger, "":
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		return NewBadger(dir)
	case BackendSQLite:
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		return NewSQLite(filepath.Join(dir, "wallets.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
