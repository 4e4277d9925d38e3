package preload_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/preload"
	"github.com/syssam/preload/backend"
	"github.com/syssam/preload/backend/memstore"
	"github.com/syssam/preload/internal/fixtures"
	"github.com/syssam/preload/schema"
)

const trackerFixture = "internal/fixtures/testdata/tracker.yaml"

// trackerSchema declares the project-tracker entity graph the fixture
// file populates.
func trackerSchema(tb testing.TB) *schema.Schema {
	tb.Helper()
	s := schema.New().
		MustRegister(schema.NewType("Org").
			Relations(schema.HasMany("teams", "Team").OrderBy("id"))).
		MustRegister(schema.NewType("Team").
			Relations(
				schema.HasMany("users", "User").OrderBy("id"),
				schema.HasMany("projects", "Project").OrderBy("id"),
			)).
		MustRegister(schema.NewType("User")).
		MustRegister(schema.NewType("Project").
			Relations(
				schema.BelongsTo("team", "Team"),
				schema.HasMany("tasks", "Task").OrderBy("id"),
			)).
		MustRegister(schema.NewType("Task").
			Relations(
				schema.BelongsTo("project", "Project"),
				schema.BelongsTo("user", "User"),
				schema.HasMany("comments", "Comment").OrderBy("id"),
				schema.HasMany("attachments", "Attachment").OrderBy("id"),
			)).
		MustRegister(schema.NewType("Comment").
			Relations(
				schema.BelongsTo("task", "Task"),
				schema.BelongsTo("user", "User"),
			)).
		MustRegister(schema.NewType("Attachment").
			Relations(schema.BelongsTo("task", "Task")))
	require.NoError(tb, s.Validate())
	return s
}

func trackerLoader(tb testing.TB, opts ...preload.Option) (*preload.Loader, *preload.FetchStats) {
	tb.Helper()
	stats := &preload.FetchStats{}
	store := fixtures.MustSeedFile(trackerFixture)
	opts = append([]preload.Option{preload.WithObserver(stats)}, opts...)
	return preload.New(trackerSchema(tb), store, opts...), stats
}

// TestQueryCount verifies the core contract: total fetches = 1 (root) +
// number of distinct edges in the deduplicated path forest, independent of
// how many records any level holds.
func TestQueryCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		root    string
		paths   []string
		fetches int64
	}{
		{
			name:    "no_paths",
			root:    "Task",
			paths:   nil,
			fetches: 1,
		},
		{
			name:    "single_relation",
			root:    "Task",
			paths:   []string{"project"},
			fetches: 2,
		},
		{
			name:    "four_independent_relations",
			root:    "Task",
			paths:   []string{"project", "user", "comments", "attachments"},
			fetches: 5,
		},
		{
			name:    "depth_two_chain",
			root:    "Org",
			paths:   []string{"teams.users"},
			fetches: 3,
		},
		{
			name:    "depth_three_chain",
			root:    "Org",
			paths:   []string{"teams.projects.tasks"},
			fetches: 4,
		},
		{
			name:    "shared_prefix",
			root:    "Task",
			paths:   []string{"project", "user", "comments.user", "attachments"},
			fetches: 6,
		},
		{
			name:    "prefix_and_nested_share_edge",
			root:    "Org",
			paths:   []string{"teams", "teams.users", "teams.projects"},
			fetches: 4,
		},
		{
			name:    "duplicate_paths_collapse",
			root:    "Task",
			paths:   []string{"project", "project", "project"},
			fetches: 2,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, stats := trackerLoader(t)
			_, err := l.Query(context.Background(), tt.root, tt.paths)
			require.NoError(t, err)
			assert.Equal(t, tt.fetches, stats.Snapshot().TotalFetches)
		})
	}
}

func TestQueryHydration(t *testing.T) {
	t.Parallel()
	l, _ := trackerLoader(t)

	tasks, err := l.Query(context.Background(), "Task", []string{"project", "user", "comments.user", "attachments"})
	require.NoError(t, err)
	require.Len(t, tasks, 5)

	// Roots come back in backend order.
	for i, task := range tasks {
		assert.EqualValues(t, i+1, task.ID())
	}

	t.Run("to_one", func(t *testing.T) {
		project, err := tasks[0].Edge("project")
		require.NoError(t, err)
		require.NotNil(t, project)
		name, _ := project.Value("name")
		assert.Equal(t, "Atlas", name)
	})

	t.Run("shared_to_one_child", func(t *testing.T) {
		// Tasks 1 and 2 belong to the same project and must share one
		// child instance, not own deep copies.
		p1, err := tasks[0].Edge("project")
		require.NoError(t, err)
		p2, err := tasks[1].Edge("project")
		require.NoError(t, err)
		assert.Same(t, p1, p2)
	})

	t.Run("to_many_order_and_ownership", func(t *testing.T) {
		comments, err := tasks[0].Edges("comments")
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.EqualValues(t, 1, comments[0].ID())
		assert.EqualValues(t, 2, comments[1].ID())

		// Task 2 has no comments: loaded, explicitly empty.
		empty, err := tasks[1].Edges("comments")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Len(t, empty, 0)
	})

	t.Run("nested_path", func(t *testing.T) {
		comments, err := tasks[0].Edges("comments")
		require.NoError(t, err)
		author, err := comments[0].Edge("user")
		require.NoError(t, err)
		name, _ := author.Value("name")
		assert.Equal(t, "Lin", name)
	})

	t.Run("null_foreign_key_absent", func(t *testing.T) {
		// Task 4 has user_id NULL: loaded, explicitly absent.
		user, err := tasks[3].Edge("user")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("unrequested_relation_not_loaded", func(t *testing.T) {
		// The task relation on comments was never requested.
		comments, err := tasks[0].Edges("comments")
		require.NoError(t, err)
		_, err = comments[0].Edge("task")
		assert.True(t, preload.IsNotLoaded(err))
	})
}

func TestQueryEmptyTable(t *testing.T) {
	t.Parallel()
	stats := &preload.FetchStats{}
	l := preload.New(trackerSchema(t), memstore.New(), preload.WithObserver(stats))

	// With zero roots the edge fetch is skipped: 1 call, not 2.
	roots, err := l.Query(context.Background(), "Task", []string{"project"})
	require.NoError(t, err)
	assert.Empty(t, roots)
	assert.EqualValues(t, 1, stats.Snapshot().TotalFetches)
}

func TestLoadEmptyRoots(t *testing.T) {
	t.Parallel()
	l, stats := trackerLoader(t)

	roots, err := l.Load(context.Background(), nil, []string{"project"})
	require.NoError(t, err)
	assert.Empty(t, roots)
	assert.Zero(t, stats.Snapshot().TotalFetches)
}

// Malformed paths are rejected even when there are no roots to hydrate.
func TestLoadEmptyRootsMalformedPath(t *testing.T) {
	t.Parallel()
	l, stats := trackerLoader(t)

	_, err := l.Load(context.Background(), nil, []string{"project..comments"})
	require.Error(t, err)
	assert.True(t, preload.IsInvalidPath(err))
	assert.Zero(t, stats.Snapshot().TotalFetches)
}

func TestLoadAllNullForeignKeys(t *testing.T) {
	t.Parallel()
	l, stats := trackerLoader(t)

	tasks, err := l.Query(context.Background(), "Task", nil)
	require.NoError(t, err)
	stats.Reset()

	// Task 4 is the only root and its user_id is NULL: the edge's key set
	// is empty, so no fetch is issued and no error raised.
	roots, err := l.Load(context.Background(), tasks[3:4], []string{"user"})
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Zero(t, stats.Snapshot().TotalFetches)

	user, err := roots[0].Edge("user")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestInvalidPathFailsBeforeFetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
	}{
		{name: "unknown_relation", path: "owner"},
		{name: "unknown_nested_relation", path: "comments.replies"},
		{name: "empty_path", path: ""},
		{name: "leading_separator", path: ".project"},
		{name: "trailing_separator", path: "project."},
		{name: "double_separator", path: "comments..user"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, stats := trackerLoader(t)
			_, err := l.Query(context.Background(), "Task", []string{tt.path})
			assert.True(t, preload.IsInvalidPath(err))
			assert.Zero(t, stats.Snapshot().TotalFetches)
		})
	}
}

func TestLoadMixedRootTypes(t *testing.T) {
	t.Parallel()
	l, _ := trackerLoader(t)
	ctx := context.Background()

	tasks, err := l.Query(ctx, "Task", nil)
	require.NoError(t, err)
	users, err := l.Query(ctx, "User", nil)
	require.NoError(t, err)

	_, err = l.Load(ctx, []*preload.Entity{tasks[0], users[0]}, []string{"project"})
	assert.ErrorContains(t, err, "mixed root types")
}

func TestFetchFailureAbortsTraversal(t *testing.T) {
	t.Parallel()
	s := trackerSchema(t)
	store := fixtures.MustSeedFile(trackerFixture)

	cause := errors.New("backend unavailable")
	failing := backend.FetchFunc(func(ctx context.Context, req backend.FetchRequest) ([]backend.Row, error) {
		if req.Type.Table == "comments" {
			return nil, cause
		}
		return store.Fetch(ctx, req)
	})
	stats := &preload.FetchStats{}
	l := preload.New(s, failing, preload.WithObserver(stats))
	ctx := context.Background()

	tasks, err := l.Query(ctx, "Task", nil)
	require.NoError(t, err)
	stats.Reset()

	_, err = l.Load(ctx, tasks, []string{"project", "comments.user", "attachments"})
	require.Error(t, err)
	assert.True(t, preload.IsFetchFailed(err))
	assert.True(t, errors.Is(err, cause))

	var fe *preload.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "comments", fe.Path())
	assert.Equal(t, 0, fe.Depth())

	// Hydration is additive: the edge fetched before the failure stays
	// attached, the failed edge and everything under it stay unloaded.
	assert.True(t, tasks[0].Loaded("project"))
	assert.False(t, tasks[0].Loaded("comments"))
	assert.EqualValues(t, 1, stats.Snapshot().Errors)
}

func TestCardinalityMismatch(t *testing.T) {
	t.Parallel()
	s := schema.New().
		MustRegister(schema.NewType("User").
			Relations(schema.BelongsTo("profile", "Profile"))).
		MustRegister(schema.NewType("Profile"))

	store := memstore.New()
	require.NoError(t, store.Insert("users", backend.Row{"id": 1, "profile_id": 7}))
	// Two profile rows carry the same id: inconsistent data, surfaced
	// rather than silently truncated to the first row.
	require.NoError(t, store.Insert("profiles",
		backend.Row{"id": 7, "bio": "first"},
		backend.Row{"id": 7, "bio": "second"},
	))

	l := preload.New(s, store)
	_, err := l.Query(context.Background(), "User", []string{"profile"})
	require.Error(t, err)
	assert.True(t, preload.IsCardinalityMismatch(err))

	var ce *preload.CardinalityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "profile", ce.Path())
	assert.Equal(t, 0, ce.Depth())
	assert.Equal(t, 2, ce.Count())
}

// dumpEntity flattens a hydrated entity into plain maps so cmp can diff
// two load results structurally, per-parent child order included.
func dumpEntity(e *preload.Entity) map[string]any {
	out := map[string]any{"id": backend.NormalizeKey(e.ID())}
	for _, rel := range e.Type().Relations() {
		if !e.Loaded(rel.Name) {
			continue
		}
		switch rel.Cardinality {
		case schema.ToOne:
			child, _ := e.Edge(rel.Name)
			if child == nil {
				out[rel.Name] = nil
				continue
			}
			out[rel.Name] = dumpEntity(child)
		case schema.ToMany:
			children, _ := e.Edges(rel.Name)
			dumped := make([]map[string]any, len(children))
			for i, c := range children {
				dumped[i] = dumpEntity(c)
			}
			out[rel.Name] = dumped
		}
	}
	return out
}

func TestIdempotence(t *testing.T) {
	t.Parallel()
	l, _ := trackerLoader(t)
	ctx := context.Background()
	paths := []string{"project", "user", "comments.user", "attachments"}

	run := func() []map[string]any {
		tasks, err := l.Query(ctx, "Task", paths)
		require.NoError(t, err)
		out := make([]map[string]any, len(tasks))
		for i, task := range tasks {
			out[i] = dumpEntity(task)
		}
		return out
	}

	first, second := run(), run()
	assert.Empty(t, cmp.Diff(first, second))
}

func TestConcurrentLevelFetches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	paths := []string{"project", "user", "comments.user", "attachments"}

	sequential, seqStats := trackerLoader(t)
	concurrent, conStats := trackerLoader(t, preload.WithConcurrency(4))

	seqTasks, err := sequential.Query(ctx, "Task", paths)
	require.NoError(t, err)
	conTasks, err := concurrent.Query(ctx, "Task", paths)
	require.NoError(t, err)

	// Same fetch count, same hydration result; only scheduling differs.
	assert.Equal(t, seqStats.Snapshot().TotalFetches, conStats.Snapshot().TotalFetches)
	require.Len(t, conTasks, len(seqTasks))
	for i := range seqTasks {
		assert.Empty(t, cmp.Diff(dumpEntity(seqTasks[i]), dumpEntity(conTasks[i])))
	}
}

func TestObserverSeesKeysAndRows(t *testing.T) {
	t.Parallel()
	l, stats := trackerLoader(t)

	_, err := l.Query(context.Background(), "Task", []string{"project"})
	require.NoError(t, err)

	snap := stats.Snapshot()
	assert.EqualValues(t, 2, snap.TotalFetches)
	// 5 task rows + 3 project rows fetched; the 5 tasks reference 3
	// distinct projects, so the edge fetch filtered on 3 keys.
	assert.EqualValues(t, 8, snap.TotalRows)
	assert.EqualValues(t, 3, snap.TotalKeys)
	assert.Contains(t, snap.String(), "fetches=2")
}
