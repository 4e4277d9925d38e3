package preload

import (
	"context"
	"time"

	"github.com/syssam/preload/backend"
)

// fetchResult maps each requested key to its matching child entities, with
// per-key row order preserved from the backend. It is scoped to one attach
// pass; once children are attached the parents own the references.
type fetchResult struct {
	keys   []any // requested keys, first-seen order
	groups map[any][]*Entity
}

var emptyFetchResult = &fetchResult{groups: map[any][]*Entity{}}

// entities returns every fetched child exactly once, in requested-key order
// then backend row order. Children deduplicated across parents (a to-one
// child shared by many parents) appear once, which is what makes the next
// level's key collection see each child a single time.
func (r *fetchResult) entities() []*Entity {
	out := make([]*Entity, 0, len(r.keys))
	for _, key := range r.keys {
		out = append(out, r.groups[key]...)
	}
	return out
}

// fetchEdge issues the single batch fetch for one edge and stably regroups
// the returned rows by the edge's child key column. Exactly one backend
// call happens per invocation regardless of how many keys the set holds.
func (l *Loader) fetchEdge(ctx context.Context, node *LoadNode, ks *keySet) (*fetchResult, error) {
	req := backend.FetchRequest{
		Type:      node.target,
		KeyColumn: node.childKeyColumn(),
		Keys:      ks.values(),
		OrderBy:   node.rel.OrderBy,
	}
	rows, err := l.fetch(ctx, req)
	if err != nil {
		return nil, NewFetchError(node.path, node.depth, err)
	}
	res := &fetchResult{
		keys:   ks.values(),
		groups: make(map[any][]*Entity, ks.len()),
	}
	for _, row := range rows {
		entity := NewEntity(node.target, row)
		key := entity.key(req.KeyColumn)
		if key == nil {
			continue // cannot belong to any parent
		}
		if _, requested := ks.seen[key]; !requested {
			continue
		}
		res.groups[key] = append(res.groups[key], entity)
	}
	return res, nil
}

// fetch runs one backend call, timing it and notifying the observer.
func (l *Loader) fetch(ctx context.Context, req backend.FetchRequest) ([]backend.Row, error) {
	start := time.Now()
	rows, err := l.backend.Fetch(ctx, req)
	if l.observer != nil {
		l.observer.ObserveFetch(ctx, req, len(rows), time.Since(start), err)
	}
	return rows, err
}
