package domain

// GraphSnapshot is the result of one inspection-tool invocation: the full
// transitive closure of modules reachable from the requested specifier.
type GraphSnapshot struct {
	// Roots holds the entry specifiers; Roots[0] is the canonical or
	// import-map-rewritten form of the originally requested id.
	Roots []string

	// Redirects maps original specifiers to their canonical form. Only
	// specifiers that changed appear here.
	Redirects map[string]string

	// Modules lists every module discovered by the invocation.
	Modules []ModuleRecord
}

// CanonicalOf applies the snapshot's redirects to the given specifier,
// returning it unchanged when no redirect exists.
func (s *GraphSnapshot) CanonicalOf(specifier string) string {
	if c, ok := s.Redirects[specifier]; ok {
		return c
	}
	return specifier
}

// Root returns the canonical specifier of the originally requested id, or
// false when the snapshot carries no roots.
func (s *GraphSnapshot) Root() (string, bool) {
	if len(s.Roots) == 0 {
		return "", false
	}
	return s.CanonicalOf(s.Roots[0]), true
}

// CacheSnapshot is the persistable portion of a resolution session: the three
// resolution cache maps plus the staleness fingerprint of the working
// directory's resolver configuration at save time.
type CacheSnapshot struct {
	Modules     map[string]ModuleRecord
	Memo        map[string]string
	Paths       map[string]string
	Fingerprint uint64
}
