package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/synthetics/pkg/types"
)

// Store returns the current settings. A nil result with a nil error means no
// settings have been saved.
type Store interface {
	Get(ctx context.Context) (*types.Settings, error)
}

// Writer persists settings.
type Writer interface {
	Put(ctx context.Context, s *types.Settings) error
}

// File is a Store and Writer over a YAML file.
type File struct {
	path string
	mu   sync.Mutex // serializes Put
}

// NewFile returns a File store for path. The file need not exist yet.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Get reads and parses the file. A missing file yields nil settings.
func (f *File) Get(context.Context) (*types.Settings, error) {
	return load(f.path)
}

// Put writes s to the file atomically (temp file + rename).
func (f *File) Put(_ context.Context, s *types.Settings) error {
	if s == nil {
		s = &types.Settings{}
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("settings: write %q: %w", f.path, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: write %q: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: write %q: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("settings: write %q: %w", f.path, err)
	}
	return nil
}

func load(path string) (*types.Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: read %q: %w", path, err)
	}
	var s types.Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("settings: parse %q: %w", path, err)
	}
	return &s, nil
}

// Static is an in-memory Store and Writer.
type Static struct {
	mu sync.RWMutex
	s  *types.Settings
}

// NewStatic returns a Static store holding s (which may be nil).
func NewStatic(s *types.Settings) *Static {
	return &Static{s: s}
}

// Get returns a copy of the held settings.
func (st *Static) Get(context.Context) (*types.Settings, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.s == nil {
		return nil, nil
	}
	cp := *st.s
	if st.s.DefaultConnectors != nil {
		cp.DefaultConnectors = append([]string{}, st.s.DefaultConnectors...)
	}
	return &cp, nil
}

// Put replaces the held settings.
func (st *Static) Put(_ context.Context, s *types.Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = s
	return nil
}
