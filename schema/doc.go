// Package schema holds the runtime metadata the resolver needs about entity
// types: which table a type lives in, which column identifies a row, and
// which relations are declared on it.
//
// # Quick Start
//
// Build a registry once at startup and share it across load requests:
//
//	s := schema.New().
//	    MustRegister(schema.NewType("User")).
//	    MustRegister(schema.NewType("Project")).
//	    MustRegister(schema.NewType("Task").
//	        Relations(
//	            schema.BelongsTo("project", "Project"),
//	            schema.BelongsTo("user", "User"),
//	            schema.HasMany("comments", "Comment").OrderBy("id"),
//	        )).
//	    MustRegister(schema.NewType("Comment").
//	        Relations(
//	            schema.BelongsTo("user", "User"),
//	        ))
//
// # Naming Defaults
//
// Table names derive from the type name (User -> users, OrderItem ->
// order_items), identity columns default to "id", and foreign-key columns
// derive from the relation or owner name (BelongsTo "project" ->
// project_id; HasMany on Task -> task_id). Every default can be overridden
// on the builder:
//
//	schema.NewType("User").Table("accounts").ID("user_id")
//	schema.BelongsTo("author", "User").Field("author_id").Ref("user_id")
//
// # Cardinality
//
// A BelongsTo relation resolves to at most one related record per parent
// and the foreign key lives on the parent's rows. A HasMany relation
// resolves to an ordered collection and the foreign key lives on the
// related rows. Which side holds the key decides which keys the resolver
// collects before a batch fetch.
package schema
