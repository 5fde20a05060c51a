package resolver

import (
	"sync"

	"go.trai.ch/modbridge/internal/core/domain"
)

// SessionRegistry hands resolved foreign-package modules to the server-side
// virtual-module loader. It is scoped to one build session and threaded
// through explicitly, so long-lived processes never leak registrations
// across builds.
type SessionRegistry struct {
	mu         sync.RWMutex
	byNativeID map[string]domain.ForeignPackageModule
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byNativeID: make(map[string]domain.ForeignPackageModule),
	}
}

// Register stores a resolved foreign-package module under its native id.
// Re-registering the same native id overwrites; resolution is idempotent so
// the records are identical in practice.
func (s *SessionRegistry) Register(rec domain.ForeignPackageModule) {
	if rec.NativeID == "" {
		rec.NativeID = domain.TranslateForeignPackage(rec.Specifier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byNativeID[rec.NativeID] = rec
}

// Lookup returns the foreign-package module registered under nativeID.
func (s *SessionRegistry) Lookup(nativeID string) (domain.ForeignPackageModule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byNativeID[nativeID]
	return rec, ok
}

// Len returns the number of registered modules.
func (s *SessionRegistry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byNativeID)
}
