// Package graphql derives eager-load relation paths from a gqlgen request,
// so a resolver can hydrate exactly the relations the query selects:
//
//	func (r *queryResolver) Tasks(ctx context.Context) ([]*preload.Entity, error) {
//	    paths := graphql.CollectPaths(ctx, r.schema, r.taskType)
//	    return r.loader.Query(ctx, "Task", paths)
//	}
package graphql

import (
	"context"

	gql "github.com/99designs/gqlgen/graphql"

	"github.com/syssam/preload/schema"
)

// CollectPaths returns the relation paths selected by the current GraphQL
// operation, rooted at the given entity type. Selected fields that are not
// declared relations (scalars, computed fields) are skipped, and their
// selections are not descended into. The returned paths may repeat shared
// prefixes; the loader's path forest deduplicates them.
func CollectPaths(ctx context.Context, s *schema.Schema, root *schema.Type) []string {
	opCtx := gql.GetOperationContext(ctx)
	return collect(opCtx, gql.CollectFieldsCtx(ctx, nil), "", s, root)
}

func collect(opCtx *gql.OperationContext, fields []gql.CollectedField, prefix string, s *schema.Schema, typ *schema.Type) []string {
	var paths []string
	for _, f := range fields {
		rel, ok := typ.Relation(f.Name)
		if !ok {
			continue
		}
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}
		paths = append(paths, path)
		target, ok := s.Type(rel.Target)
		if !ok {
			continue
		}
		paths = append(paths, collect(opCtx, gql.CollectFields(opCtx, f.Selections, nil), path, s, target)...)
	}
	return paths
}
