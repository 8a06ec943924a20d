package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
)

// FlatFile is the flat key/value settings file written by earlier
// releases. Values are kept as strings.
type FlatFile struct {
	path string
	mu   sync.Mutex
}

// NewFlatFile creates a handle for the legacy file at path
func NewFlatFile(path string) *FlatFile {
	return &FlatFile{path: path}
}

// Path returns the file location
func (f *FlatFile) Path() string {
	return f.path
}

// ReadAll returns every key. A missing file yields an empty map.
func (f *FlatFile) ReadAll() (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *FlatFile) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read legacy settings: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse legacy settings: %w", err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
		default:
			b, err := json.Marshal(t)
			if err != nil {
				return nil, fmt.Errorf("failed to encode legacy value %q: %w", k, err)
			}
			out[k] = string(b)
		}
	}
	return out, nil
}

// Set writes one key. Used by tests and the import command.
func (f *FlatFile) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

// Delete removes the given keys. The file is removed once empty.
func (f *FlatFile) Delete(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(values, k)
	}

	if len(values) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove legacy settings: %w", err)
		}
		return nil
	}
	return f.write(values)
}

func (f *FlatFile) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode legacy settings: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write legacy settings: %w", err)
	}
	return os.Rename(tmp, f.path)
}
