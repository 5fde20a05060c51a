package ports

import "go.trai.ch/modbridge/internal/core/domain"

// CacheStore persists the resolution cache across sessions. The cache is
// advisory: losing it costs re-invocation of the inspection tool, never
// correctness.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Load reads the persisted cache for the given working directory.
	// Returns nil, nil when no usable cache exists (missing, corrupt or
	// stale files are a cold start, not an error).
	Load(workingDir string) (*domain.CacheSnapshot, error)

	// Save writes the cache document, creating parent directories as needed.
	Save(workingDir string, snapshot *domain.CacheSnapshot) error
}
