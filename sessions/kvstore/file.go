package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var _ Store = (*File)(nil)

// ErrCorrupt is returned by Get when the backing file cannot be parsed.
// Set and Delete replace a corrupt file instead of failing on it.
var ErrCorrupt = errors.New("storage file is corrupt")

// File keeps every key in a single JSON object on disk. Writes go to a
// temporary file that is renamed over the original.
type File struct {
	path string
	lock sync.Mutex
}

// NewFile creates the parent directory (0700) if needed. The file itself
// is created on first write with 0600 permissions.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &File{path: path}, nil
}

func (f *File) Get(key string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.read()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *File) Set(key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.readForWrite()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

func (f *File) Delete(keys ...string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	values, err := f.read()
	changed := false
	if errors.Is(err, ErrCorrupt) {
		values, changed = make(map[string]string), true
	} else if err != nil {
		return err
	}
	for _, key := range keys {
		if _, ok := values[key]; ok {
			delete(values, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.write(values)
}

func (f *File) Close() error {
	return nil
}

// Path returns the backing file path
func (f *File) Path() string {
	return f.path
}

func (f *File) read() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read storage: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse storage %s: %w: %v", f.path, ErrCorrupt, err)
	}
	return values, nil
}

// readForWrite treats a corrupt file as empty so the next write replaces it
func (f *File) readForWrite() (map[string]string, error) {
	values, err := f.read()
	if errors.Is(err, ErrCorrupt) {
		return make(map[string]string), nil
	}
	return values, err
}

func (f *File) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp storage: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp storage: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp storage: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace storage: %w", err)
	}
	return nil
}
