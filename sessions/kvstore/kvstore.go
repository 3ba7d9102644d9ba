package kvstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Get when a key has no value
var ErrNotFound = errors.New("key not found")

// Store is a durable string key-value namespace shared with other users of
// the same backend. Callers own the keys they write and must not assume
// exclusive use of the namespace.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(keys ...string) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the configured backend rooted in folder
func Open(backend, folder string) (Store, error) {
	switch strings.ToLower(backend) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile, "":
		return NewFile(filepath.Join(folder, "session.json"))
	case BackendSQLite:
		return NewSQLite(filepath.Join(folder, "session.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
