// Package cachefile persists the resolution cache as a JSON document.
package cachefile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.trai.ch/modbridge/internal/core/domain"
	"go.trai.ch/zerr"
)

// formatVersion tags the cache document layout. Documents with a different
// version load as a cold start.
const formatVersion = 1

// Store implements ports.CacheStore using one JSON file per working
// directory, written atomically.
type Store struct {
	// cacheDir overrides the default cache location when non-empty. Used by
	// tests and honored for the config file's cache_dir setting.
	cacheDir string
}

// NewStore creates a CacheStore writing under the default cache directory of
// each working directory.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWithDir creates a CacheStore writing under a fixed cache directory.
func NewStoreWithDir(cacheDir string) *Store {
	return &Store{cacheDir: cacheDir}
}

// Load reads the cache document for workingDir. A missing, corrupt or stale
// document yields nil, nil: the cache is advisory and re-derivable from a
// fresh inspection call.
func (s *Store) Load(workingDir string) (*domain.CacheSnapshot, error) {
	path := s.cachePath(workingDir)
	//nolint:gosec // path is constructed from the trusted cache directory
	data, err := os.ReadFile(path)
	if err != nil {
		// Missing or unreadable alike: a re-derivable cache has no failure
		// mode worth surfacing on the read side.
		return nil, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil
	}
	if doc.Version != formatVersion {
		return nil, nil
	}

	snap, err := doc.toSnapshot()
	if err != nil {
		return nil, nil
	}

	if snap.Fingerprint != Fingerprint(workingDir) {
		// Resolver configuration changed since the cache was written.
		return nil, nil
	}
	return snap, nil
}

// Save serializes the cache maps and writes them atomically, creating parent
// directories as needed.
func (s *Store) Save(workingDir string, snapshot *domain.CacheSnapshot) error {
	doc, err := fromSnapshot(snapshot)
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheMarshalFailed.Error())
	}
	doc.Version = formatVersion
	doc.Fingerprint = Fingerprint(workingDir)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheMarshalFailed.Error())
	}

	if err := atomicWriteFile(s.cachePath(workingDir), data); err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}
	return nil
}

func (s *Store) cachePath(workingDir string) string {
	dir := s.cacheDir
	if dir == "" {
		dir = filepath.Join(workingDir, domain.DefaultCachePath())
	}
	return domain.GraphCachePath(dir)
}

// atomicWriteFile writes data to a file atomically by writing to a temp file
// and renaming it.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, "graph-cache-*.json")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
