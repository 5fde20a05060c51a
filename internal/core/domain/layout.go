package domain

import "path/filepath"

const (
	// BridgeDirName is the name of the internal metadata directory.
	BridgeDirName = ".modbridge"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// GraphCacheFileName is the name of the persisted session cache document.
	GraphCacheFileName = "graph.json"

	// ConfigFileName is the name of the bridge configuration file.
	ConfigFileName = "modbridge.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultCachePath returns the default cache directory relative to a working
// directory. It joins .modbridge and cache.
func DefaultCachePath() string {
	return filepath.Join(BridgeDirName, CacheDirName)
}

// GraphCachePath returns the location of the persisted session cache for the
// given cache directory.
func GraphCachePath(cacheDir string) string {
	return filepath.Join(cacheDir, GraphCacheFileName)
}
