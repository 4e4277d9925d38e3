// Package preload resolves eager-load requests: given a set of root
// records and declarative relation paths such as "project" or
// "comments.user", it fetches every related record in a bounded number of
// batch queries instead of one query per parent (the N+1 problem).
//
// # Fetch Count Contract
//
// The requested paths are parsed into a forest of load edges in which
// shared prefixes collapse into a single edge. The loader then walks the
// forest breadth-first and issues exactly one batch fetch per distinct
// edge, filtering on the deduplicated key set collected from the parent
// level. The total number of fetches for a query is therefore
//
//	1 (root) + number of distinct edges
//
// independent of how many records exist at any level. Edges whose key set
// is empty (no parents, or all-NULL foreign keys) skip the backend call
// entirely.
//
// # Usage
//
//	l := preload.New(s, store, preload.WithObserver(stats))
//	tasks, err := l.Query(ctx, "Task", []string{"project", "comments.user"})
//	if err != nil {
//	    // preload.IsInvalidPath, preload.IsFetchFailed, ...
//	}
//	project, err := tasks[0].Edge("project")
//	comments, err := tasks[0].Edges("comments")
//
// Relations that were not requested stay unloaded; accessing one returns a
// NotLoadedError instead of fetching implicitly.
//
// # Collaborators
//
// Entity metadata lives in the schema package; the storage fetch primitive
// is the backend package's single-method interface, with in-memory and
// database/sql implementations under backend/memstore and
// backend/sqlstore.
package preload
