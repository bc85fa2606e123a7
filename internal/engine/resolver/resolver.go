// Package resolver implements version resolution: turning a root recipe's
// declared constraints into one consistent assignment of versions for the
// whole dependency graph.
package resolver

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"

	"go.trai.ch/grip/internal/core/domain"
	"go.trai.ch/grip/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// maxPasses bounds the constraint-solving fixpoint. Real graphs settle in
// a handful of passes; hitting the bound means the constraints oscillate.
const maxPasses = 64

// Resolver computes a consistent version assignment for a dependency
// graph. Resolution is single-threaded and synchronous; only the
// read-only registry queries fan out, and their results are merged
// deterministically before any selection happens.
type Resolver struct {
	registry   ports.RegistryClient
	recipes    ports.RecipeSource
	logger     ports.Logger
	tracer     ports.Tracer
	queryLimit int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRecipeSource supplies an offline recipe source (path dependencies
// and the package cache) consulted before the registry. With every pin
// reusable and every recipe locally available, resolution performs zero
// registry queries.
func WithRecipeSource(src ports.RecipeSource) Option {
	return func(r *Resolver) {
		r.recipes = src
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer ports.Tracer) Option {
	return func(r *Resolver) {
		r.tracer = tracer
	}
}

// WithQueryLimit bounds the registry-query parallelism.
func WithQueryLimit(limit int) Option {
	return func(r *Resolver) {
		if limit > 0 {
			r.queryLimit = limit
		}
	}
}

// New creates a Resolver over the given registry.
func New(registry ports.RegistryClient, opts ...Option) *Resolver {
	r := &Resolver{
		registry:   registry,
		queryLimit: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes Selections for the root recipe. When pinned is
// non-nil, every pin that is still present in the graph and still
// satisfies the union of current constraints is reused without contacting
// the registry; this is the reproducible-build fast path. Upgrades pass
// nil (full) or a pin set stripped of the scoped names.
//
// Resolution is idempotent: an unchanged graph against an unchanged
// registry snapshot yields byte-identical Selections.
func (r *Resolver) Resolve(ctx context.Context, root *domain.Recipe, pinned *domain.Selections) (*domain.Selections, error) {
	if r.tracer != nil {
		var span ports.Span
		ctx, span = r.tracer.Start(ctx, "resolve "+root.Name.String())
		defer span.End()
	}
	if err := root.Validate(); err != nil {
		return nil, err
	}

	s := &solve{
		r:        r,
		root:     root,
		pinned:   pinned,
		chosen:   make(map[domain.PackageName]domain.SelectedVersion),
		recipes:  map[recipeKey]*domain.Recipe{{name: root.Name, selected: root.Version.String()}: root},
		versions: make(map[domain.PackageName][]domain.Version),
	}

	for pass := 0; ; pass++ {
		if pass >= maxPasses {
			return nil, zerr.With(domain.ErrResolutionDiverged, "package", root.Name.String())
		}
		if err := s.fetchMissingRecipes(ctx); err != nil {
			return nil, err
		}

		graph, active, err := s.expand()
		if err != nil {
			return nil, err
		}
		if err := graph.Validate(); err != nil {
			return nil, err
		}

		changed, err := s.pick(ctx, graph, active)
		if err != nil {
			return nil, err
		}
		if !changed && !s.missingRecipes() {
			break
		}
	}

	out := domain.NewSelections()
	for name, sel := range s.chosen {
		out.Set(name, sel)
	}
	if r.logger != nil {
		r.logger.Debug("resolution complete", "root", root.Name.String(), "packages", out.Len())
	}
	return out, nil
}

type recipeKey struct {
	name     domain.PackageName
	selected string
}

// solve is the per-invocation resolution state.
type solve struct {
	r      *Resolver
	root   *domain.Recipe
	pinned *domain.Selections

	// chosen holds the current version picks, subpackage entries included.
	chosen map[domain.PackageName]domain.SelectedVersion

	// recipes caches every recipe seen this run, keyed by the selection
	// it was fetched for.
	recipes map[recipeKey]*domain.Recipe

	// versions caches ListVersions results so each name is listed at
	// most once per run.
	versions map[domain.PackageName][]domain.Version
}

// expand builds the dependency graph from the root recipe and the recipes
// of the current picks. It returns the graph and the set of activated
// names; names reached only by inert optional edges carry constraints but
// are never selected.
func (s *solve) expand() (*domain.DependencyGraph, map[domain.PackageName]bool, error) {
	graph := domain.NewDependencyGraph(s.root.Name)
	active := make(map[domain.PackageName]bool)
	// direct marks names targeted by an edge of their own, as opposed to
	// the implicit parent edge a subpackage reference adds.
	direct := make(map[domain.PackageName]bool)

	expandRecipe := func(rec *domain.Recipe) {
		for _, name := range rec.DependencyNames() {
			dspec := rec.Dependencies[name]
			eff := dspec.EffectiveSpec()
			activating := !dspec.Optional || rec.ActivatedBy(name)
			if !activating && dspec.Default && !s.rootDisables(name) {
				activating = true
			}

			graph.AddEdge(rec.Name, name, eff)
			direct[name] = true
			if activating {
				active[name] = true
			}
			if base := name.Base(); base != name {
				graph.AddEdge(rec.Name, base, eff)
				if activating {
					active[base] = true
				}
			}
		}
	}

	expandRecipe(s.root)
	for _, sub := range s.root.Subpackages {
		expandRecipe(sub)
	}

	// Expand the recipes of activated picks until no graph node is left
	// unexpanded. Picks from earlier passes whose recipes are already
	// cached expand immediately; the rest are fetched before the next
	// pass.
	done := make(map[domain.PackageName]bool)
	for {
		grew := false
		for _, name := range graph.Names() {
			if done[name] || !active[name] {
				continue
			}
			rec := s.recipeFor(name)
			if rec == nil {
				continue
			}
			done[name] = true
			grew = true

			if name.IsSub() {
				sub := rec.Subpackage(name)
				if sub == nil {
					err := zerr.With(domain.ErrPackageNotFound, "package", name.Base().String())
					return nil, nil, zerr.With(err, "subpackage", name.String())
				}
				expandRecipe(sub)
				continue
			}
			if direct[name] {
				expandRecipe(rec)
			}
		}
		if !grew {
			break
		}
	}

	return graph, active, nil
}

// rootDisables reports whether the root recipe opts out of an optional
// dependency that other packages would activate by default: the root
// re-declares the name as optional without the default flag and no root
// configuration activates it.
func (s *solve) rootDisables(name domain.PackageName) bool {
	d, ok := s.root.Dependencies[name]
	return ok && d.Optional && !d.Default && !s.root.ActivatedBy(name)
}

// recipeFor returns the cached recipe for a name's current pick. For
// subpackage names the parent's recipe is returned.
func (s *solve) recipeFor(name domain.PackageName) *domain.Recipe {
	base := name.Base()
	sel, ok := s.chosen[base]
	if !ok {
		return nil
	}
	return s.recipes[recipeKey{name: base, selected: sel.String()}]
}

// missingRecipes reports whether any pick still lacks its recipe.
func (s *solve) missingRecipes() bool {
	for name, sel := range s.chosen {
		if name.IsSub() {
			continue
		}
		if _, ok := s.recipes[recipeKey{name: name, selected: sel.String()}]; !ok {
			return true
		}
	}
	return false
}

// fetchMissingRecipes loads the recipe of every pick that lacks one:
// offline sources first, the registry last. Queries fan out; results
// merge under a lock and never influence ordering.
func (s *solve) fetchMissingRecipes(ctx context.Context) error {
	type need struct {
		name domain.PackageName
		sel  domain.SelectedVersion
	}
	var needs []need
	for name, sel := range s.chosen {
		if name.IsSub() {
			continue
		}
		if _, ok := s.recipes[recipeKey{name: name, selected: sel.String()}]; !ok {
			needs = append(needs, need{name: name, sel: sel})
		}
	}
	if len(needs) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.r.queryLimit)

	for _, n := range needs {
		g.Go(func() error {
			rec, err := s.r.fetchRecipe(groupCtx, n.name, n.sel)
			if err != nil {
				return err
			}
			if err := rec.Validate(); err != nil {
				return err
			}
			mu.Lock()
			s.recipes[recipeKey{name: n.name, selected: n.sel.String()}] = rec
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (r *Resolver) fetchRecipe(ctx context.Context, name domain.PackageName, sel domain.SelectedVersion) (*domain.Recipe, error) {
	if r.recipes != nil {
		rec, err := r.recipes.Recipe(ctx, name, sel)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrRecipeNotFound) {
			return nil, err
		}
	}
	if sel.IsPath() {
		// A path dependency's recipe only ever comes from its directory.
		err := zerr.With(domain.ErrMissingPathDependency, "package", name.String())
		return nil, zerr.With(err, "path", sel.Path)
	}
	rec, err := r.registry.FetchRecipe(ctx, name, sel.Version)
	if err != nil {
		return nil, zerr.With(err, "package", name.String())
	}
	return rec, nil
}

// pick chooses a version for every activated name: path pins first,
// reusable pins second, highest satisfying registry version last. It
// reports whether any pick changed against the previous pass.
func (s *solve) pick(ctx context.Context, graph *domain.DependencyGraph, active map[domain.PackageName]bool) (bool, error) {
	next := make(map[domain.PackageName]domain.SelectedVersion)

	var bases, subs []domain.PackageName
	for _, name := range graph.Names() {
		if !active[name] || name == s.root.Name {
			continue
		}
		if name.IsSub() {
			subs = append(subs, name)
		} else {
			bases = append(bases, name)
		}
	}

	// Resolve undetermined names' version lists up front so the fan-out
	// never interleaves with selection.
	if err := s.listMissingVersions(ctx, graph, bases); err != nil {
		return false, err
	}

	for _, name := range bases {
		sources := graph.Constraints(name)

		if path, ok := graph.PathPin(name); ok {
			if err := s.checkPathCompatible(name, path, sources); err != nil {
				return false, err
			}
			next[name] = domain.PathSelection(path)
			continue
		}

		if sel, ok := s.reusablePin(name, sources); ok {
			next[name] = sel
			continue
		}

		sel, err := s.selectVersion(name, sources)
		if err != nil {
			return false, err
		}
		next[name] = sel
	}

	// Subpackages always pin to the exact version of their parent.
	for _, name := range subs {
		base := name.Base()
		if base == s.root.Name {
			next[name] = domain.VersionSelection(s.root.Version)
			continue
		}
		if sel, ok := next[base]; ok {
			next[name] = sel
		}
	}

	changed := len(next) != len(s.chosen)
	if !changed {
		for name, sel := range next {
			if prev, ok := s.chosen[name]; !ok || !prev.Equal(sel) {
				changed = true
				break
			}
		}
	}
	s.chosen = next
	return changed, nil
}

// reusablePin reports whether the pinned selection for a name still
// satisfies every constraint reaching it.
func (s *solve) reusablePin(name domain.PackageName, sources []domain.ConstraintSource) (domain.SelectedVersion, bool) {
	if s.pinned == nil {
		return domain.SelectedVersion{}, false
	}
	sel, ok := s.pinned.Get(name)
	if !ok || sel.IsPath() {
		// A stale path pin no longer backed by a path edge re-resolves.
		return domain.SelectedVersion{}, false
	}
	for _, src := range sources {
		if !src.Spec.Matches(sel.Version) {
			return domain.SelectedVersion{}, false
		}
	}
	return sel, true
}

// checkPathCompatible verifies a path pin against the other constraints
// on the name. The path recipe's own version must satisfy every non-path
// edge; the path still wins over any registry version.
func (s *solve) checkPathCompatible(name domain.PackageName, path string, sources []domain.ConstraintSource) error {
	rec, ok := s.recipes[recipeKey{name: name, selected: domain.PathSelection(path).String()}]
	if !ok {
		// Recipe not fetched yet; the next pass checks.
		return nil
	}
	for _, src := range sources {
		if src.Spec.Kind() == domain.SpecPath {
			continue
		}
		if !src.Spec.Matches(rec.Version) {
			return conflictError(name, sources)
		}
	}
	return nil
}

// listMissingVersions performs the concurrent ListVersions fan-out for
// every name whose pick needs the registry this pass.
func (s *solve) listMissingVersions(ctx context.Context, graph *domain.DependencyGraph, bases []domain.PackageName) error {
	var needed []domain.PackageName
	for _, name := range bases {
		if _, ok := graph.PathPin(name); ok {
			continue
		}
		if _, ok := s.reusablePin(name, graph.Constraints(name)); ok {
			continue
		}
		if _, ok := s.versions[name]; ok {
			continue
		}
		needed = append(needed, name)
	}
	if len(needed) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.r.queryLimit)

	for _, name := range needed {
		g.Go(func() error {
			versions, err := s.r.registry.ListVersions(groupCtx, name)
			if err != nil {
				return zerr.With(err, "package", name.String())
			}
			mu.Lock()
			s.versions[name] = domain.SortVersionsDesc(versions)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// selectVersion picks the highest version satisfying every constraint on
// the name. Prerelease and branch versions are only eligible when a
// constraint explicitly references them; Matches enforces that.
func (s *solve) selectVersion(name domain.PackageName, sources []domain.ConstraintSource) (domain.SelectedVersion, error) {
	for _, v := range s.versions[name] {
		ok := true
		for _, src := range sources {
			if !src.Spec.Matches(v) {
				ok = false
				break
			}
		}
		if ok {
			return domain.VersionSelection(v), nil
		}
	}
	return domain.SelectedVersion{}, conflictError(name, sources)
}

// conflictError builds ErrUnresolvableConstraint naming every constraint
// source so no edge is ever silently dropped.
func conflictError(name domain.PackageName, sources []domain.ConstraintSource) error {
	rendered := make([]string, len(sources))
	for i, src := range sources {
		rendered[i] = src.String()
	}
	err := zerr.With(domain.ErrUnresolvableConstraint, "package", name.String())
	return zerr.With(err, "constraints", strings.Join(rendered, "; "))
}
