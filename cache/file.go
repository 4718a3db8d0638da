package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File persists each key as one YAML document under a directory. The
// document carries the original key alongside the payload, so a cache
// directory stays inspectable with any editor.
type File struct {
	dir string
}

// fileEntry is the on-disk document shape. YAML renders the payload as
// base64 !!binary.
type fileEntry struct {
	Key   string `yaml:"key"`
	Value []byte `yaml:"value"`
}

// NewFile creates (if needed) and opens a directory-backed store.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: read %q: %w", key, err)
	}
	var entry fileEntry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	data, err := yaml.Marshal(fileEntry{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}
	if err := os.WriteFile(f.path(key), data, 0o644); err != nil {
		return fmt.Errorf("cache: write %q: %w", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache: delete %q: %w", key, err)
	}
	return nil
}

func (f *File) Clear(_ context.Context) error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return fmt.Errorf("cache: clear %s: %w", f.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, e.Name())); err != nil {
			return fmt.Errorf("cache: clear %s: %w", f.dir, err)
		}
	}
	return nil
}

// path maps a key to a file name, replacing anything outside
// [A-Za-z0-9._-] so keys like "injector:definitions" stay valid names.
func (f *File) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, key)
	return filepath.Join(f.dir, safe+".yaml")
}
