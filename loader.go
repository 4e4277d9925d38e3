package preload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/preload/backend"
	"github.com/syssam/preload/schema"
)

// Loader resolves eager-load requests against a schema and a backend. It is
// stateless across requests and safe for concurrent use; all per-request
// state (path forest, key sets, fetch results) is scoped to one call.
type Loader struct {
	schema      *schema.Schema
	backend     backend.Backend
	observer    FetchObserver
	logger      *slog.Logger
	concurrency int
}

// New returns a loader resolving relations of the given schema through the
// given backend.
func New(s *schema.Schema, b backend.Backend, opts ...Option) *Loader {
	l := &Loader{schema: s, backend: b, concurrency: 1}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load hydrates the requested relation paths onto the given root entities
// and returns them in their input order. The roots must all be of one
// entity type. The total number of batch fetches is exactly the number of
// distinct edges in the deduplicated path forest, independent of how many
// roots there are; edges whose key set comes up empty are skipped without
// touching the backend.
//
// Hydration is additive: if a fetch fails mid-traversal, levels attached so
// far are kept and the error is returned. Callers needing atomicity wrap
// the call in their own transaction scope.
func (l *Loader) Load(ctx context.Context, roots []*Entity, paths []string) ([]*Entity, error) {
	if len(roots) == 0 {
		// A malformed path is a caller bug whether or not there happen to
		// be roots this time. Relation names cannot be resolved here, as
		// the root type comes from the roots themselves.
		if err := validatePathSyntax(paths); err != nil {
			return nil, err
		}
		return []*Entity{}, nil
	}
	root := roots[0].typ
	for _, r := range roots[1:] {
		if r.typ != root {
			return nil, fmt.Errorf("preload: mixed root types %q and %q", root.Name, r.typ.Name)
		}
	}
	ps, err := ParsePaths(l.schema, root, paths)
	if err != nil {
		return nil, err
	}
	if err := l.hydrate(ctx, ps, roots); err != nil {
		return nil, err
	}
	return roots, nil
}

// Query fetches all roots of the named entity type through the backend and
// then hydrates the requested paths onto them, making the full
// one-plus-edges fetch count observable in a single call. Paths are
// validated before the root fetch is issued.
func (l *Loader) Query(ctx context.Context, typeName string, paths []string) ([]*Entity, error) {
	t, ok := l.schema.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("preload: unknown entity type %q", typeName)
	}
	ps, err := ParsePaths(l.schema, t, paths)
	if err != nil {
		return nil, err
	}
	rows, err := l.fetch(ctx, backend.FetchRequest{Type: t})
	if err != nil {
		return nil, NewRootFetchError(t.Name, err)
	}
	roots := make([]*Entity, len(rows))
	for i, row := range rows {
		roots[i] = NewEntity(t, row)
	}
	if err := l.hydrate(ctx, ps, roots); err != nil {
		return nil, err
	}
	return roots, nil
}

// levelEntry pairs one edge with the parent entities materialized for it.
type levelEntry struct {
	node    *LoadNode
	parents []*Entity
}

// hydrate walks the forest breadth-first. All edges at depth d are fetched
// and attached before any edge at depth d+1 is considered; the next level's
// keys only exist on the freshly attached entities of the current one.
func (l *Loader) hydrate(ctx context.Context, ps *PathSet, roots []*Entity) error {
	var loadID string
	if l.logger != nil {
		loadID = uuid.NewString()
		l.logger.Debug("eager load",
			"load_id", loadID,
			"type", ps.RootType().Name,
			"roots", len(roots),
			"paths", ps.Paths(),
			"edges", ps.EdgeCount(),
		)
	}
	level := make([]levelEntry, 0, len(ps.Roots()))
	for _, n := range ps.Roots() {
		level = append(level, levelEntry{node: n, parents: roots})
	}
	for len(level) > 0 {
		results := make([]*fetchResult, len(level))
		ferr := l.fetchLevel(ctx, loadID, level, results)
		var next []levelEntry
		for i, entry := range level {
			if results[i] == nil {
				// This edge's fetch failed or never ran; edges that did
				// complete are still attached before the error surfaces.
				continue
			}
			if err := attachEdge(entry.parents, entry.node, results[i]); err != nil {
				return err
			}
			children := results[i].entities()
			for _, child := range entry.node.Children() {
				next = append(next, levelEntry{node: child, parents: children})
			}
		}
		if ferr != nil {
			return ferr
		}
		level = next
	}
	return nil
}

// fetchLevel resolves the key sets and fetches of one depth. Edges at the
// same depth are independent; with concurrency enabled they are fetched
// under an errgroup, but attachment still happens strictly after the whole
// level's fetches complete, so the per-level barrier holds either way.
func (l *Loader) fetchLevel(ctx context.Context, loadID string, level []levelEntry, results []*fetchResult) error {
	if l.concurrency > 1 && len(level) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.concurrency)
		for i, entry := range level {
			i, entry := i, entry
			g.Go(func() error {
				res, err := l.resolveEdge(gctx, loadID, entry.node, entry.parents)
				if err != nil {
					return err
				}
				results[i] = res
				return nil
			})
		}
		return g.Wait()
	}
	for i, entry := range level {
		res, err := l.resolveEdge(ctx, loadID, entry.node, entry.parents)
		if err != nil {
			return err
		}
		results[i] = res
	}
	return nil
}

// resolveEdge collects the edge's key set and issues its single batch
// fetch. An empty key set skips the backend entirely.
func (l *Loader) resolveEdge(ctx context.Context, loadID string, node *LoadNode, parents []*Entity) (*fetchResult, error) {
	ks := collectKeys(parents, node)
	if ks.len() == 0 {
		if l.logger != nil {
			l.logger.Debug("batch fetch skipped",
				"load_id", loadID, "path", node.path, "depth", node.depth, "reason", "no keys")
		}
		return emptyFetchResult, nil
	}
	res, err := l.fetchEdge(ctx, node, ks)
	if err != nil {
		return nil, err
	}
	if l.logger != nil {
		l.logger.Debug("batch fetch",
			"load_id", loadID, "path", node.path, "depth", node.depth,
			"keys", ks.len(), "rows", len(res.entities()))
	}
	return res, nil
}
