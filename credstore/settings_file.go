package credstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// SettingsFile is a plain YAML map on disk, meant for non-secret values such as
// the token expiration timestamp.
type SettingsFile struct {
	mu     sync.Mutex
	path   string
	values map[string]string
}

// OpenSettingsFile loads path if it exists.
func OpenSettingsFile(path string) (*SettingsFile, error) {
	if path == "" {
		return nil, errors.New("credstore: settings path is required")
	}
	f := &SettingsFile{path: path, values: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credstore: read settings: %w", err)
	}
	if err := yaml.Unmarshal(raw, &f.values); err != nil {
		return nil, fmt.Errorf("credstore: parse settings %s: %w", path, err)
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	return f, nil
}

func (f *SettingsFile) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *SettingsFile) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.values[key]
	f.values[key] = value
	if err := f.flush(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *SettingsFile) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.values[key]
	if !had {
		return nil
	}
	delete(f.values, key)
	if err := f.flush(); err != nil {
		f.values[key] = prev
		return err
	}
	return nil
}

func (f *SettingsFile) flush() error {
	out, err := yaml.Marshal(f.values)
	if err != nil {
		return err
	}
	return writeFileAtomic(f.path, out)
}
