package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ProcessedStore persists the set of repositories already evaluated, as a
// JSON array of "owner/name" strings.
type ProcessedStore struct {
	path string
}

func NewProcessedStore(path string) (*ProcessedStore, error) {
	if path == "" {
		return nil, fmt.Errorf("processed-set path required")
	}
	return &ProcessedStore{path: path}, nil
}

func (s *ProcessedStore) Path() string {
	return s.path
}

// Load reads the set. A missing file is an empty set.
func (s *ProcessedStore) Load() (map[string]bool, error) {
	set := make(map[string]bool)
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	for _, id := range ids {
		if id != "" {
			set[id] = true
		}
	}
	return set, nil
}

// Persist replaces the file with set, sorted. It writes a temp file in the
// same directory and renames it over the target, so a crash leaves either the
// old or the new contents.
func (s *ProcessedStore) Persist(set map[string]bool) error {
	ids := make([]string, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	b, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode processed set: %w", err)
	}
	if err := ensureDir(s.path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", s.path, err)
	}
	return nil
}
