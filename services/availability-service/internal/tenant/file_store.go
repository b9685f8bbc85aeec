package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore keeps one file per store in a directory. Files may be JSON
// (<id>.json) or YAML (<id>.yaml, <id>.yml); Put always writes JSON.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

func NewFileStore(dir string) (*FileStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("store config dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store config dir: %s is not a directory", dir)
	}
	return &FileStore{dir: dir}, nil
}

var fileExtensions = []string{".json", ".yaml", ".yml"}

// Get loads and validates storeID's config. A file that does not decode or
// validate yields ErrInvalidConfig.
func (s *FileStore) Get(_ context.Context, storeID string) (StoreConfig, error) {
	if !ValidStoreID(storeID) {
		return StoreConfig{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ext := range fileExtensions {
		raw, err := os.ReadFile(filepath.Join(s.dir, storeID+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return StoreConfig{}, err
		}
		cfg, err := decode(raw, ext)
		if err != nil {
			return StoreConfig{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, storeID+ext, err)
		}
		if cfg.ID == "" {
			cfg.ID = storeID
		}
		if err := Validate(cfg); err != nil {
			return StoreConfig{}, fmt.Errorf("%s: %w", storeID+ext, err)
		}
		return cfg, nil
	}
	return StoreConfig{}, ErrNotFound
}

func (s *FileStore) Put(_ context.Context, cfg StoreConfig) error {
	if err := Validate(cfg); err != nil {
		return err
	}
	body, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+cfg.ID+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(append(body, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, cfg.ID+".json")); err != nil {
		return err
	}
	// A JSON file now shadows any YAML variant; drop them so List stays unique.
	for _, ext := range fileExtensions[1:] {
		_ = os.Remove(filepath.Join(s.dir, cfg.ID+ext))
	}
	return nil
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		id := strings.TrimSuffix(e.Name(), ext)
		if !isConfigExt(ext) || !ValidStoreID(id) {
			continue
		}
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func isConfigExt(ext string) bool {
	for _, e := range fileExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

func decode(raw []byte, ext string) (StoreConfig, error) {
	var cfg StoreConfig
	var err error
	if ext == ".json" {
		err = json.Unmarshal(raw, &cfg)
	} else {
		err = yaml.Unmarshal(raw, &cfg)
	}
	return cfg, err
}
