package domain

import (
	"fmt"
	"strings"

	"go.trai.ch/zerr"
)

// ConstraintSource is one dependency edge reaching a package: the owning
// package and the spec it declared. The resolver keeps every source so a
// conflict can name all of them.
type ConstraintSource struct {
	Owner PackageName
	Spec  VersionSpec
}

// String renders the source as "owner requires spec".
func (c ConstraintSource) String() string {
	return fmt.Sprintf("%s requires %s", c.Owner.String(), c.Spec.String())
}

// DependencyGraph is a directed graph over package names. Edges carry the
// owning recipe's constraint. Non-path edges must be acyclic; any cycle is
// a hard error.
type DependencyGraph struct {
	root  PackageName
	edges map[PackageName][]ConstraintSource
	deps  map[PackageName][]PackageName
}

// NewDependencyGraph creates an empty graph rooted at the given package.
func NewDependencyGraph(root PackageName) *DependencyGraph {
	return &DependencyGraph{
		root:  root,
		edges: make(map[PackageName][]ConstraintSource),
		deps:  make(map[PackageName][]PackageName),
	}
}

// Root returns the root package name.
func (g *DependencyGraph) Root() PackageName {
	return g.root
}

// AddEdge records that owner constrains name with the given spec.
// Duplicate edges from the same owner with the same spec collapse.
func (g *DependencyGraph) AddEdge(owner, name PackageName, spec VersionSpec) {
	for _, src := range g.edges[name] {
		if src.Owner == owner && src.Spec.String() == spec.String() {
			return
		}
	}
	g.edges[name] = append(g.edges[name], ConstraintSource{Owner: owner, Spec: spec})
	g.deps[owner] = append(g.deps[owner], name)
}

// Has reports whether the name was reached by any edge or is the root.
func (g *DependencyGraph) Has(name PackageName) bool {
	if name == g.root {
		return true
	}
	_, ok := g.edges[name]
	return ok
}

// Constraints returns every constraint source reaching the name.
func (g *DependencyGraph) Constraints(name PackageName) []ConstraintSource {
	return g.edges[name]
}

// Names returns every reached package name in lexicographic order,
// excluding the root.
func (g *DependencyGraph) Names() []PackageName {
	names := make([]PackageName, 0, len(g.edges))
	for name := range g.edges {
		names = append(names, name)
	}
	return SortNames(names)
}

// PathPin returns the path constraint on the name, if any. A path spec
// always wins over registry resolution, but it must still be compatible
// with every other constraint on the name.
func (g *DependencyGraph) PathPin(name PackageName) (string, bool) {
	for _, src := range g.edges[name] {
		if src.Spec.Kind() == SpecPath {
			return src.Spec.Path(), true
		}
	}
	return "", false
}

// Validate checks the graph for dependency cycles with a three-color DFS
// and returns ErrCyclicDependency carrying the cycle path. Edges between a
// package and its own subpackages are skipped: a package may depend on its
// subpackages (and they on it) without that being a cycle, since they all
// pin to one version.
func (g *DependencyGraph) Validate() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	visited := make(map[PackageName]int, len(g.deps))
	var path []PackageName

	var visit func(u PackageName) error
	visit = func(u PackageName) error {
		visited[u] = visiting
		path = append(path, u)

		for _, dep := range g.deps[u] {
			if dep.Base() == u.Base() {
				continue
			}
			switch visited[dep] {
			case visiting:
				return g.buildCycleError(path, dep)
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = done
		path = path[:len(path)-1]
		return nil
	}

	if err := visit(g.root); err != nil {
		return err
	}
	// Disconnected owners can exist when optional subtrees were expanded
	// before being deactivated; they still must be acyclic.
	for _, owner := range SortNames(g.owners()) {
		if visited[owner] == unvisited {
			if err := visit(owner); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *DependencyGraph) owners() []PackageName {
	owners := make([]PackageName, 0, len(g.deps))
	for owner := range g.deps {
		owners = append(owners, owner)
	}
	return owners
}

func (g *DependencyGraph) buildCycleError(path []PackageName, dep PackageName) error {
	start := 0
	for i, node := range path {
		if node == dep {
			start = i
			break
		}
	}
	var b strings.Builder
	for i := start; i < len(path); i++ {
		b.WriteString(path[i].String())
		b.WriteString(" -> ")
	}
	b.WriteString(dep.String())
	return zerr.With(ErrCyclicDependency, "cycle", b.String())
}
