// Package app implements the application layer for modbridge.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.trai.ch/modbridge/internal/adapters/cachefile"
	"go.trai.ch/modbridge/internal/adapters/deno"
	"go.trai.ch/modbridge/internal/core/domain"
	"go.trai.ch/modbridge/internal/core/ports"
	"go.trai.ch/modbridge/internal/engine/resolver"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Components bundles the wired application pieces handed to main.
type Components struct {
	App    *App
	Logger ports.Logger
}

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger

	newInvoker func(tool string) ports.Invoker
	newStore   func(cacheDir string) ports.CacheStore
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, log ports.Logger) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		newInvoker: func(tool string) ports.Invoker {
			return deno.NewInvoker(tool)
		},
		newStore: func(cacheDir string) ports.CacheStore {
			return cachefile.NewStoreWithDir(cacheDir)
		},
	}
}

// WithInvokerFactory overrides invoker construction. Used for testing.
func (a *App) WithInvokerFactory(f func(tool string) ports.Invoker) *App {
	a.newInvoker = f
	return a
}

// WithStoreFactory overrides cache store construction. Used for testing.
func (a *App) WithStoreFactory(f func(cacheDir string) ports.CacheStore) *App {
	a.newStore = f
	return a
}

// session holds one build session's resolver and configuration.
type session struct {
	cfg      *domain.Config
	resolver *resolver.Resolver
}

// openSession loads the configuration for dir and builds a resolver with a
// fresh per-session registry.
func (a *App) openSession(dir string) (*session, error) {
	cfg, err := a.configLoader.Load(dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	res := resolver.New(
		a.newInvoker(cfg.Tool),
		a.newStore(cfg.CacheDir),
		a.logger,
		resolver.NewSessionRegistry(),
		cfg.WorkingDir,
	)
	return &session{cfg: cfg, resolver: res}, nil
}

// close flushes the session cache one final time.
func (s *session) close(log ports.Logger) {
	if err := s.resolver.Flush(); err != nil {
		log.Warn("failed to flush session cache: " + err.Error())
	}
}

// Resolve resolves each specifier as a root lookup and writes one line per
// answer. Any unresolved specifier fails the run, naming the specifier.
func (a *App) Resolve(ctx context.Context, w io.Writer, dir string, ids []string) error {
	if len(ids) == 0 {
		return domain.ErrNoSpecifiers
	}

	s, err := a.openSession(dir)
	if err != nil {
		return err
	}
	defer s.close(a.logger)

	// Fan out: the resolver serializes invocations internally, but
	// overlapping requests for the same id still collapse.
	lines := make([]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			canonical, ok, err := s.resolver.Resolve(gctx, id, "")
			if err != nil {
				return err
			}
			if !ok {
				return zerr.With(zerr.Wrap(domain.ErrResolutionFailed, "resolve"), "specifier", id)
			}
			rec, err := s.resolver.RetrieveModule(canonical)
			if err != nil {
				return err
			}
			lines[i] = fmt.Sprintf("%s -> %s %s", id, canonical, describeRecord(rec))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

// Deps resolves entry and writes its full transitive dependency set, one
// canonical specifier per line, sorted.
func (a *App) Deps(ctx context.Context, w io.Writer, dir, entry string) error {
	if entry == "" {
		return domain.ErrNoSpecifiers
	}

	s, err := a.openSession(dir)
	if err != nil {
		return err
	}
	defer s.close(a.logger)

	canonical, ok, err := s.resolver.Resolve(ctx, entry, "")
	if err != nil {
		return err
	}
	if !ok {
		return zerr.With(zerr.Wrap(domain.ErrResolutionFailed, "deps"), "specifier", entry)
	}

	visited := s.resolver.CollectTransitiveDeps(ctx, canonical)
	deps := make([]string, 0, len(visited))
	for spec := range visited {
		deps = append(deps, spec)
	}
	sort.Strings(deps)

	for _, spec := range deps {
		fmt.Fprintln(w, spec)
	}
	return nil
}

// ID resolves each specifier and writes the loadable bundler id: the opaque
// virtual id for ESM modules, the native id for foreign packages, the bare
// module name for runtime-native modules.
func (a *App) ID(ctx context.Context, w io.Writer, dir string, ids []string) error {
	if len(ids) == 0 {
		return domain.ErrNoSpecifiers
	}

	s, err := a.openSession(dir)
	if err != nil {
		return err
	}
	defer s.close(a.logger)

	lines := make([]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			canonical, ok, err := s.resolver.Resolve(gctx, id, "")
			if err != nil {
				return err
			}
			if !ok {
				return zerr.With(zerr.Wrap(domain.ErrResolutionFailed, "id"), "specifier", id)
			}
			rec, err := s.resolver.RetrieveModule(canonical)
			if err != nil {
				return err
			}
			line, err := loadableID(rec)
			if err != nil {
				return err
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}

// loadableID maps a resolved record to the id the host bundler loads it
// under.
func loadableID(rec domain.ModuleRecord) (string, error) {
	switch m := rec.(type) {
	case domain.EsmModule:
		return domain.EncodeVirtualID(m.MediaType, m.Specifier, m.LocalPath), nil
	case domain.ForeignPackageModule:
		return m.NativeID, nil
	case domain.NativeModule:
		return m.ModuleName, nil
	case domain.ErrorModule:
		return "", zerr.With(zerr.New(strings.TrimSpace(m.Message)), "specifier", m.Specifier)
	default:
		return "", zerr.With(zerr.New("unknown module record variant"), "specifier", rec.Canonical())
	}
}

// Translate writes the native bundler id for each foreign-package specifier.
func (a *App) Translate(w io.Writer, specs []string) error {
	if len(specs) == 0 {
		return domain.ErrNoSpecifiers
	}

	for _, spec := range specs {
		if !domain.IsForeignPackage(spec) {
			return zerr.With(zerr.New("not a foreign-package specifier"), "specifier", spec)
		}
		fmt.Fprintln(w, domain.TranslateForeignPackage(spec))
	}
	return nil
}

// Clean removes the session cache directory.
func (a *App) Clean(_ context.Context, dir string) error {
	cfg, err := a.configLoader.Load(dir)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	a.logger.Info("removing session cache...")
	if err := os.RemoveAll(cfg.CacheDir); err != nil {
		return zerr.Wrap(err, "failed to remove session cache")
	}
	a.logger.Info("removed session cache")
	return nil
}

// describeRecord renders a short human-readable summary of a module record.
func describeRecord(rec domain.ModuleRecord) string {
	switch m := rec.(type) {
	case domain.EsmModule:
		return fmt.Sprintf("(esm %s, %d deps)", m.MediaType, len(m.Dependencies))
	case domain.ForeignPackageModule:
		return fmt.Sprintf("(pkg %s -> %s)", m.PackageID, m.NativeID)
	case domain.NativeModule:
		return fmt.Sprintf("(native %s)", m.ModuleName)
	case domain.ErrorModule:
		return fmt.Sprintf("(error: %s)", strings.TrimSpace(m.Message))
	default:
		return ""
	}
}
