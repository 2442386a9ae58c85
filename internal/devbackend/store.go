package devbackend

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store keeps uploaded documents as plain files under one directory. A new
// upload with an existing name replaces the old file.
type Store struct {
	dir string
}

// NewStore ensures dir exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("devbackend: ensure data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes data under name, replacing any previous document of that name.
func (s *Store) Put(name string, data []byte) error {
	clean, err := sanitizeName(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("devbackend: stage %s: %w", clean, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("devbackend: write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("devbackend: write %s: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, clean)); err != nil {
		return fmt.Errorf("devbackend: store %s: %w", clean, err)
	}
	return nil
}

// Get reads a stored document.
func (s *Store) Get(name string) ([]byte, error) {
	clean, err := sanitizeName(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.dir, clean))
}

// Names lists stored documents in lexical order.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("devbackend: list %s: %w", s.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func sanitizeName(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == ".." || base == "/" || base == "" || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("devbackend: invalid file name %q", name)
	}
	return base, nil
}
