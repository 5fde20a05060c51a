// Package resolver implements the module-resolution and dependency-graph
// caching engine.
package resolver

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/modbridge/internal/core/domain"
	"go.trai.ch/modbridge/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

// Resolver answers module-resolution queries against a cached dependency
// graph, invoking the external inspection tool on cache misses.
//
// All cache maps are owned exclusively by the Resolver. Every code path that
// may call the Invoker is serialized through one mutex: the external tool
// mutates shared on-disk state (its package cache and lockfile) under the
// working directory, and concurrent invocations risk corrupting it.
type Resolver struct {
	invoker  ports.Invoker
	store    ports.CacheStore
	logger   ports.Logger
	registry *SessionRegistry
	tracer   trace.Tracer

	workingDir string

	mu     sync.Mutex
	flight singleflight.Group

	// modules maps canonical specifier to its record. A stored EsmModule is
	// immutable: later ingestions never overwrite it.
	modules map[string]domain.ModuleRecord
	// memo maps requested root id to canonical specifier.
	memo map[string]string
	// paths indexes canonical specifier by local path for persistence.
	paths map[string]string
	// unknown holds ids confirmed unresolvable this session, so a known-bad
	// id never triggers a second invocation. Never persisted.
	unknown map[string]struct{}
}

// rootResult carries a root resolution answer through singleflight.
type rootResult struct {
	canonical string
	ok        bool
}

// New creates a Resolver for the given working directory, warmed from the
// persisted session cache when one exists.
func New(
	invoker ports.Invoker,
	store ports.CacheStore,
	log ports.Logger,
	registry *SessionRegistry,
	workingDir string,
) *Resolver {
	r := &Resolver{
		invoker:    invoker,
		store:      store,
		logger:     log,
		registry:   registry,
		tracer:     otel.Tracer("modbridge/resolver"),
		workingDir: workingDir,
		modules:    make(map[string]domain.ModuleRecord),
		memo:       make(map[string]string),
		paths:      make(map[string]string),
		unknown:    make(map[string]struct{}),
	}

	snap, err := store.Load(workingDir)
	if err != nil || snap == nil {
		return r
	}

	r.modules = snap.Modules
	r.memo = snap.Memo
	r.paths = snap.Paths
	for _, rec := range r.modules {
		if foreign, ok := rec.(domain.ForeignPackageModule); ok {
			r.registry.Register(foreign)
		}
	}
	return r
}

// Registry returns the per-session registry of resolved foreign-package
// modules.
func (r *Resolver) Registry() *SessionRegistry {
	return r.registry
}

// Resolve answers what the given id resolves to.
//
// With a non-empty importerCanonical, the id is looked up in the importer's
// fixed dependency list; this path never invokes the external tool. With an
// empty importer the id is a root lookup: memoized answers return
// immediately, anything else triggers one serialized invocation whose whole
// snapshot is ingested.
//
// The canonical specifier is returned with ok=true on success. ok=false with
// a nil error means the id has no answer here and the caller should fall
// back to its native resolution.
func (r *Resolver) Resolve(ctx context.Context, id, importerCanonical string) (string, bool, error) {
	if importerCanonical != "" {
		return r.resolveNested(id, importerCanonical)
	}

	r.mu.Lock()
	if canonical, ok := r.memo[id]; ok {
		r.mu.Unlock()
		return canonical, true, nil
	}
	if _, bad := r.unknown[id]; bad {
		r.mu.Unlock()
		return "", false, nil
	}
	r.mu.Unlock()

	// Concurrent root lookups of the same id collapse into one invocation;
	// distinct ids still serialize on the invocation lock below.
	v, err, _ := r.flight.Do(id, func() (any, error) {
		return r.resolveRoot(ctx, id)
	})
	if err != nil {
		return "", false, err
	}

	res, ok := v.(rootResult)
	if !ok {
		return "", false, nil
	}
	return res.canonical, res.ok, nil
}

// resolveNested looks the id up in the importer's dependency list. The
// importer must be a cached EsmModule: nothing else can import through this
// subsystem, so any other shape is a programming error.
func (r *Resolver) resolveNested(id, importerCanonical string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, found := r.modules[importerCanonical]
	if !found {
		return "", false, zerr.With(zerr.Wrap(domain.ErrImporterNotESM, "nested lookup"), "importer", importerCanonical)
	}
	esm, isEsm := rec.(domain.EsmModule)
	if !isEsm {
		return "", false, zerr.With(zerr.Wrap(domain.ErrImporterNotESM, "nested lookup"), "importer", importerCanonical)
	}

	for _, dep := range esm.Dependencies {
		if dep.RelativePath == id {
			return dep.ResolvedSpecifier, true, nil
		}
	}
	return "", false, nil
}

// resolveRoot performs an uncached root resolution: invoke, ingest, memoize,
// persist. One inspection call yields the entire transitive closure of the
// entry point, so ingesting it once turns O(imports) external invocations
// into O(distinct entry points).
func (r *Resolver) resolveRoot(ctx context.Context, id string) (rootResult, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.resolve_root",
		trace.WithAttributes(attribute.String("id", id)))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	// A concurrent flight for a redirecting alias may have filled the memo
	// while this call waited on the lock.
	if canonical, ok := r.memo[id]; ok {
		return rootResult{canonical: canonical, ok: true}, nil
	}
	if _, bad := r.unknown[id]; bad {
		return rootResult{}, nil
	}

	snap, err := r.invoker.Inspect(ctx, id, r.workingDir)
	if err != nil {
		span.RecordError(err)
		// Known bad for the rest of the session; no retry, no backoff.
		r.unknown[id] = struct{}{}
		return rootResult{}, err
	}

	r.ingestLocked(snap)

	canonical, hasRoot := snap.Root()
	if !hasRoot {
		r.unknown[id] = struct{}{}
		return rootResult{}, nil
	}
	if _, stored := r.modules[canonical]; !stored {
		// Redirect target absent from the modules array: treat as a
		// resolution failure rather than guessing at fallback behavior.
		r.unknown[id] = struct{}{}
		return rootResult{}, nil
	}

	r.memo[id] = canonical
	r.persistLocked()

	span.SetAttributes(attribute.String("canonical", canonical))
	return rootResult{canonical: canonical, ok: true}, nil
}

// ingestLocked stores every entry of a snapshot into the cache. ESM
// dependency edges are rewritten through the snapshot's redirects so stored
// records always point at canonical specifiers. Callers must hold r.mu.
func (r *Resolver) ingestLocked(snap *domain.GraphSnapshot) {
	for _, rec := range snap.Modules {
		if existing, found := r.modules[rec.Canonical()]; found {
			if _, isEsm := existing.(domain.EsmModule); isEsm {
				// A stored EsmModule is immutable: a later snapshot reporting
				// the same specifier as anything else (an error entry for a
				// since-deleted file, a re-inspected copy) never clobbers it,
				// or nested lookups through it would start failing.
				continue
			}
		}
		switch m := rec.(type) {
		case domain.EsmModule:
			deps := make([]domain.Dependency, len(m.Dependencies))
			for i, dep := range m.Dependencies {
				deps[i] = domain.Dependency{
					RelativePath:      dep.RelativePath,
					ResolvedSpecifier: snap.CanonicalOf(dep.ResolvedSpecifier),
				}
			}
			m.Dependencies = deps
			r.modules[m.Specifier] = m
			if m.LocalPath != "" {
				r.paths[m.Specifier] = m.LocalPath
			}
		case domain.ForeignPackageModule:
			m.NativeID = domain.TranslateForeignPackage(m.Specifier)
			r.modules[m.Specifier] = m
			r.registry.Register(m)
		default:
			r.modules[rec.Canonical()] = rec
		}
	}
}

// RetrieveModule returns the cached record for a canonical specifier.
// Callers must always resolve before retrieving; a miss is a programming
// error, not a resolvable condition.
func (r *Resolver) RetrieveModule(canonical string) (domain.ModuleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, found := r.modules[canonical]
	if !found {
		return nil, zerr.With(zerr.Wrap(domain.ErrModuleNotFound, "retrieve module"), "specifier", canonical)
	}
	return rec, nil
}

// CollectTransitiveDeps walks the dependency graph from entry and returns
// the set of canonical specifiers visited. Each specifier is visited at most
// once, so cyclic graphs terminate. Specifiers that cannot be resolved are
// skipped silently to tolerate partially broken graphs.
func (r *Resolver) CollectTransitiveDeps(ctx context.Context, entry string) map[string]struct{} {
	visited := make(map[string]struct{})
	queue := []string{entry}

	for len(queue) > 0 {
		spec := queue[0]
		queue = queue[1:]

		if _, seen := visited[spec]; seen {
			continue
		}

		canonical, rec, ok := r.lookupOrResolve(ctx, spec)
		if !ok {
			continue
		}
		if _, seen := visited[canonical]; seen {
			continue
		}
		visited[canonical] = struct{}{}

		if esm, isEsm := rec.(domain.EsmModule); isEsm {
			for _, dep := range esm.Dependencies {
				queue = append(queue, dep.ResolvedSpecifier)
			}
		}
	}
	return visited
}

// lookupOrResolve returns the cached record for spec, resolving it as a root
// on demand when absent.
func (r *Resolver) lookupOrResolve(ctx context.Context, spec string) (string, domain.ModuleRecord, bool) {
	r.mu.Lock()
	if rec, found := r.modules[spec]; found {
		r.mu.Unlock()
		return spec, rec, true
	}
	r.mu.Unlock()

	canonical, ok, err := r.Resolve(ctx, spec, "")
	if err != nil || !ok {
		return "", nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec, found := r.modules[canonical]
	if !found {
		return "", nil, false
	}
	return canonical, rec, true
}

// Flush writes the session cache a final time. Call before discarding the
// Resolver.
func (r *Resolver) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked()
}

// persistLocked writes the cache after a new root resolution. Failures are
// logged, not surfaced: the cache is advisory and losing it only costs a
// re-invocation. Callers must hold r.mu.
func (r *Resolver) persistLocked() {
	if err := r.saveLocked(); err != nil {
		r.logger.Warn("failed to persist session cache: " + err.Error())
	}
}

func (r *Resolver) saveLocked() error {
	snap := &domain.CacheSnapshot{
		Modules: make(map[string]domain.ModuleRecord, len(r.modules)),
		Memo:    make(map[string]string, len(r.memo)),
		Paths:   make(map[string]string, len(r.paths)),
	}
	for k, v := range r.modules {
		snap.Modules[k] = v
	}
	for k, v := range r.memo {
		snap.Memo[k] = v
	}
	for k, v := range r.paths {
		snap.Paths[k] = v
	}
	return r.store.Save(r.workingDir, snap)
}
