package resolver

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/modbridge/internal/core/domain"
	"go.trai.ch/modbridge/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

// memStore is an in-memory CacheStore shared across resolvers to exercise
// persistence without touching the filesystem.
type memStore struct {
	mu       sync.Mutex
	snap     *domain.CacheSnapshot
	failSave bool
	saves    int
}

func (s *memStore) Load(string) (*domain.CacheSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, nil
}

func (s *memStore) Save(_ string, snap *domain.CacheSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failSave {
		return zerr.New("disk full")
	}
	s.snap = snap
	return nil
}

// recordingLogger captures warnings so tests can assert on advisory failures.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Info(string) {}
func (l *recordingLogger) Warn(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *recordingLogger) Error(error)        {}
func (l *recordingLogger) SetOutput(io.Writer) {}
func (l *recordingLogger) SetJSON(bool)        {}

const workDir = "/work"

func newTestResolver(t *testing.T, store *memStore) (*Resolver, *mocks.MockInvoker, *recordingLogger) {
	t.Helper()
	ctrl := gomock.NewController(t)
	invoker := mocks.NewMockInvoker(ctrl)
	if store == nil {
		store = &memStore{}
	}
	log := &recordingLogger{}
	return New(invoker, store, log, NewSessionRegistry(), workDir), invoker, log
}

func esmMod(specifier, local string, deps ...domain.Dependency) domain.EsmModule {
	return domain.EsmModule{
		Specifier:    specifier,
		LocalPath:    local,
		MediaType:    domain.MediaTypeScript,
		Size:         int64(len(specifier)),
		Dependencies: deps,
	}
}

func TestResolver_Resolve_RootMemoized(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	snap := &domain.GraphSnapshot{
		Roots:   []string{"file:///app/main.ts"},
		Modules: []domain.ModuleRecord{esmMod("file:///app/main.ts", "/app/main.ts")},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "file:///app/main.ts", workDir).
		Return(snap, nil).
		Times(1)

	for range 3 {
		canonical, ok, err := r.Resolve(context.Background(), "file:///app/main.ts", "")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "file:///app/main.ts", canonical)
	}
}

func TestResolver_Resolve_AppliesRedirects(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	snap := &domain.GraphSnapshot{
		Roots:     []string{"https://deno.land/std/path/mod.ts"},
		Redirects: map[string]string{"https://deno.land/std/path/mod.ts": "https://deno.land/std@0.224.0/path/mod.ts"},
		Modules: []domain.ModuleRecord{
			esmMod("https://deno.land/std@0.224.0/path/mod.ts", ""),
		},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "https://deno.land/std/path/mod.ts", workDir).
		Return(snap, nil).
		Times(1)

	canonical, ok, err := r.Resolve(context.Background(), "https://deno.land/std/path/mod.ts", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://deno.land/std@0.224.0/path/mod.ts", canonical)
}

func TestResolver_Resolve_Nested(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	snap := &domain.GraphSnapshot{
		Roots: []string{"file:///app/main.ts"},
		Redirects: map[string]string{
			"file:///app/old-util.ts": "file:///app/util.ts",
		},
		Modules: []domain.ModuleRecord{
			esmMod("file:///app/main.ts", "/app/main.ts",
				domain.Dependency{RelativePath: "./util.ts", ResolvedSpecifier: "file:///app/old-util.ts"},
				domain.Dependency{RelativePath: "react", ResolvedSpecifier: "pkg:/react@18.2.0"},
			),
			esmMod("file:///app/util.ts", "/app/util.ts"),
			domain.ForeignPackageModule{Specifier: "pkg:/react@18.2.0", PackageID: "react@18.2.0"},
		},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "file:///app/main.ts", workDir).
		Return(snap, nil).
		Times(1)

	_, ok, err := r.Resolve(context.Background(), "file:///app/main.ts", "")
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("dependency edges are rewritten to canonical form", func(t *testing.T) {
		canonical, ok, err := r.Resolve(context.Background(), "./util.ts", "file:///app/main.ts")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "file:///app/util.ts", canonical)
	})

	t.Run("foreign dependency resolves to its pkg specifier", func(t *testing.T) {
		canonical, ok, err := r.Resolve(context.Background(), "react", "file:///app/main.ts")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "pkg:/react@18.2.0", canonical)
	})

	t.Run("absent dependency is a resolution failure", func(t *testing.T) {
		_, ok, err := r.Resolve(context.Background(), "./nope.ts", "file:///app/main.ts")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown importer is an error", func(t *testing.T) {
		_, _, err := r.Resolve(context.Background(), "./util.ts", "file:///app/elsewhere.ts")
		assert.True(t, errors.Is(err, domain.ErrImporterNotESM))
	})

	t.Run("non-esm importer is an error", func(t *testing.T) {
		_, _, err := r.Resolve(context.Background(), "./util.ts", "pkg:/react@18.2.0")
		assert.True(t, errors.Is(err, domain.ErrImporterNotESM))
	})
}

func TestResolver_Resolve_FailedInvocationNotRetried(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	invoker.EXPECT().
		Inspect(gomock.Any(), "file:///app/broken.ts", workDir).
		Return(nil, zerr.New("inspection command failed")).
		Times(1)

	_, _, err := r.Resolve(context.Background(), "file:///app/broken.ts", "")
	require.Error(t, err)

	// The id is known bad for the rest of the session; no second invocation.
	_, ok, err := r.Resolve(context.Background(), "file:///app/broken.ts", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_Resolve_NoRoots(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	invoker.EXPECT().
		Inspect(gomock.Any(), "mystery", workDir).
		Return(&domain.GraphSnapshot{Redirects: map[string]string{}}, nil).
		Times(1)

	_, ok, err := r.Resolve(context.Background(), "mystery", "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = r.Resolve(context.Background(), "mystery", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_Resolve_RedirectTargetMissing(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	snap := &domain.GraphSnapshot{
		Roots:     []string{"https://example.com/gone"},
		Redirects: map[string]string{"https://example.com/gone": "https://example.com/gone@1.0.0"},
		Modules:   []domain.ModuleRecord{},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "https://example.com/gone", workDir).
		Return(snap, nil).
		Times(1)

	_, ok, err := r.Resolve(context.Background(), "https://example.com/gone", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolver_Ingest_EsmModulesAreImmutable(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	shared := esmMod("file:///app/shared.ts", "/app/shared.ts")
	first := &domain.GraphSnapshot{
		Roots:   []string{"file:///app/a.ts"},
		Modules: []domain.ModuleRecord{esmMod("file:///app/a.ts", "/app/a.ts"), shared},
	}

	mutated := shared
	mutated.Size = shared.Size + 100
	second := &domain.GraphSnapshot{
		Roots:   []string{"file:///app/b.ts"},
		Modules: []domain.ModuleRecord{esmMod("file:///app/b.ts", "/app/b.ts"), mutated},
	}

	// A later snapshot may report the shared file as broken (deleted between
	// invocations); the stored record must survive that too.
	third := &domain.GraphSnapshot{
		Roots: []string{"file:///app/c.ts"},
		Modules: []domain.ModuleRecord{
			esmMod("file:///app/c.ts", "/app/c.ts"),
			domain.ErrorModule{Specifier: "file:///app/shared.ts", Message: "file gone"},
		},
	}

	gomock.InOrder(
		invoker.EXPECT().Inspect(gomock.Any(), "file:///app/a.ts", workDir).Return(first, nil),
		invoker.EXPECT().Inspect(gomock.Any(), "file:///app/b.ts", workDir).Return(second, nil),
		invoker.EXPECT().Inspect(gomock.Any(), "file:///app/c.ts", workDir).Return(third, nil),
	)

	_, _, err := r.Resolve(context.Background(), "file:///app/a.ts", "")
	require.NoError(t, err)
	_, _, err = r.Resolve(context.Background(), "file:///app/b.ts", "")
	require.NoError(t, err)
	_, _, err = r.Resolve(context.Background(), "file:///app/c.ts", "")
	require.NoError(t, err)

	rec, err := r.RetrieveModule("file:///app/shared.ts")
	require.NoError(t, err)
	esm, ok := rec.(domain.EsmModule)
	require.True(t, ok)
	assert.Equal(t, shared.Size, esm.Size)
}

func TestResolver_ForeignPackageRegistration(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	snap := &domain.GraphSnapshot{
		Roots: []string{"pkg:/@scope/name@7.22.0/lib/index.js"},
		Modules: []domain.ModuleRecord{
			domain.ForeignPackageModule{
				Specifier: "pkg:/@scope/name@7.22.0/lib/index.js",
				PackageID: "@scope/name@7.22.0",
			},
		},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "pkg:/@scope/name@7.22.0/lib/index.js", workDir).
		Return(snap, nil).
		Times(1)

	canonical, ok, err := r.Resolve(context.Background(), "pkg:/@scope/name@7.22.0/lib/index.js", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pkg:/@scope/name@7.22.0/lib/index.js", canonical)

	rec, err := r.RetrieveModule(canonical)
	require.NoError(t, err)
	foreign, isForeign := rec.(domain.ForeignPackageModule)
	require.True(t, isForeign)
	assert.Equal(t, "@scope/name/lib/index.js", foreign.NativeID)

	registered, found := r.Registry().Lookup("@scope/name/lib/index.js")
	require.True(t, found)
	assert.Equal(t, foreign, registered)
}

func TestResolver_RetrieveModule_NotFound(t *testing.T) {
	r, _, _ := newTestResolver(t, nil)

	_, err := r.RetrieveModule("file:///app/never-resolved.ts")
	assert.True(t, errors.Is(err, domain.ErrModuleNotFound))
}

func TestResolver_CollectTransitiveDeps_Cyclic(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	snap := &domain.GraphSnapshot{
		Roots: []string{"file:///app/a.ts"},
		Modules: []domain.ModuleRecord{
			esmMod("file:///app/a.ts", "/app/a.ts",
				domain.Dependency{RelativePath: "./b.ts", ResolvedSpecifier: "file:///app/b.ts"}),
			esmMod("file:///app/b.ts", "/app/b.ts",
				domain.Dependency{RelativePath: "./a.ts", ResolvedSpecifier: "file:///app/a.ts"},
				domain.Dependency{RelativePath: "./c.ts", ResolvedSpecifier: "file:///app/c.ts"}),
			esmMod("file:///app/c.ts", "/app/c.ts"),
		},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "file:///app/a.ts", workDir).
		Return(snap, nil).
		Times(1)

	_, _, err := r.Resolve(context.Background(), "file:///app/a.ts", "")
	require.NoError(t, err)

	deps := r.CollectTransitiveDeps(context.Background(), "file:///app/a.ts")
	assert.Equal(t, map[string]struct{}{
		"file:///app/a.ts": {},
		"file:///app/b.ts": {},
		"file:///app/c.ts": {},
	}, deps)
}

func TestResolver_CollectTransitiveDeps_SkipsUnresolvable(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	snap := &domain.GraphSnapshot{
		Roots: []string{"file:///app/a.ts"},
		Modules: []domain.ModuleRecord{
			esmMod("file:///app/a.ts", "/app/a.ts",
				domain.Dependency{RelativePath: "./gone.ts", ResolvedSpecifier: "file:///app/gone.ts"},
				domain.Dependency{RelativePath: "./b.ts", ResolvedSpecifier: "file:///app/b.ts"}),
			esmMod("file:///app/b.ts", "/app/b.ts"),
		},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "file:///app/a.ts", workDir).
		Return(snap, nil).
		Times(1)
	invoker.EXPECT().
		Inspect(gomock.Any(), "file:///app/gone.ts", workDir).
		Return(nil, zerr.New("inspection command failed")).
		Times(1)

	_, _, err := r.Resolve(context.Background(), "file:///app/a.ts", "")
	require.NoError(t, err)

	deps := r.CollectTransitiveDeps(context.Background(), "file:///app/a.ts")
	assert.Equal(t, map[string]struct{}{
		"file:///app/a.ts": {},
		"file:///app/b.ts": {},
	}, deps)
}

func TestResolver_PersistenceAcrossSessions(t *testing.T) {
	store := &memStore{}

	first, invoker, _ := newTestResolver(t, store)
	snap := &domain.GraphSnapshot{
		Roots: []string{"file:///app/main.ts"},
		Modules: []domain.ModuleRecord{
			esmMod("file:///app/main.ts", "/app/main.ts",
				domain.Dependency{RelativePath: "react", ResolvedSpecifier: "pkg:/react@18.2.0"}),
			domain.ForeignPackageModule{Specifier: "pkg:/react@18.2.0", PackageID: "react@18.2.0"},
		},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "file:///app/main.ts", workDir).
		Return(snap, nil).
		Times(1)

	_, _, err := first.Resolve(context.Background(), "file:///app/main.ts", "")
	require.NoError(t, err)
	require.NoError(t, first.Flush())

	// The second session answers from the warmed cache without invoking, and
	// re-registers foreign packages into its own registry.
	second, _, _ := newTestResolver(t, store)

	canonical, ok, err := second.Resolve(context.Background(), "file:///app/main.ts", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "file:///app/main.ts", canonical)

	canonical, ok, err = second.Resolve(context.Background(), "react", "file:///app/main.ts")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pkg:/react@18.2.0", canonical)

	_, found := second.Registry().Lookup("react")
	assert.True(t, found)
}

func TestResolver_PersistFailureIsAdvisory(t *testing.T) {
	store := &memStore{failSave: true}
	r, invoker, log := newTestResolver(t, store)

	snap := &domain.GraphSnapshot{
		Roots:   []string{"file:///app/main.ts"},
		Modules: []domain.ModuleRecord{esmMod("file:///app/main.ts", "/app/main.ts")},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "file:///app/main.ts", workDir).
		Return(snap, nil).
		Times(1)

	_, ok, err := r.Resolve(context.Background(), "file:///app/main.ts", "")
	require.NoError(t, err)
	assert.True(t, ok)

	log.mu.Lock()
	defer log.mu.Unlock()
	require.NotEmpty(t, log.warns)
	assert.Contains(t, log.warns[0], "failed to persist session cache")
}

func TestResolver_ConcurrentSameID_SingleInvocation(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	snap := &domain.GraphSnapshot{
		Roots:   []string{"file:///app/main.ts"},
		Modules: []domain.ModuleRecord{esmMod("file:///app/main.ts", "/app/main.ts")},
	}
	invoker.EXPECT().
		Inspect(gomock.Any(), "file:///app/main.ts", workDir).
		DoAndReturn(func(context.Context, string, string) (*domain.GraphSnapshot, error) {
			time.Sleep(20 * time.Millisecond)
			return snap, nil
		}).
		Times(1)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			canonical, ok, err := r.Resolve(context.Background(), "file:///app/main.ts", "")
			assert.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "file:///app/main.ts", canonical)
		}()
	}
	wg.Wait()
}

func TestResolver_ConcurrentDistinctIDs_SerializedInvocations(t *testing.T) {
	r, invoker, _ := newTestResolver(t, nil)

	var inflight, peak atomic.Int32
	ids := []string{"file:///app/a.ts", "file:///app/b.ts", "file:///app/c.ts", "file:///app/d.ts"}
	for _, id := range ids {
		snap := &domain.GraphSnapshot{
			Roots:   []string{id},
			Modules: []domain.ModuleRecord{esmMod(id, "")},
		}
		invoker.EXPECT().
			Inspect(gomock.Any(), id, workDir).
			DoAndReturn(func(context.Context, string, string) (*domain.GraphSnapshot, error) {
				n := inflight.Add(1)
				if p := peak.Load(); n > p {
					peak.Store(n)
				}
				time.Sleep(5 * time.Millisecond)
				inflight.Add(-1)
				return snap, nil
			}).
			Times(1)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := r.Resolve(context.Background(), id, "")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	// The invocation mutex keeps the external tool exclusive.
	assert.Equal(t, int32(1), peak.Load())
}

func TestSessionRegistry(t *testing.T) {
	reg := NewSessionRegistry()

	reg.Register(domain.ForeignPackageModule{
		Specifier: "pkg:/lodash@^4.17.21",
		PackageID: "lodash@4.17.21",
	})
	require.Equal(t, 1, reg.Len())

	rec, found := reg.Lookup("lodash")
	require.True(t, found)
	assert.Equal(t, "lodash", rec.NativeID)

	_, found = reg.Lookup("underscore")
	assert.False(t, found)

	// Re-registering the same native id overwrites.
	reg.Register(domain.ForeignPackageModule{
		Specifier: "pkg:/lodash@4.17.20",
		PackageID: "lodash@4.17.20",
		NativeID:  "lodash",
	})
	assert.Equal(t, 1, reg.Len())
}
