package schema

import (
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"
)

// TypeBuilder assembles the metadata of one entity type.
type TypeBuilder struct {
	name     string
	table    string
	idColumn string
	rels     []*RelationBuilder
}

// NewType returns a builder for an entity type with the given name.
// The table name defaults to the underscored plural of the type name
// (User -> users, OrderItem -> order_items) and the identity column to "id".
func NewType(name string) *TypeBuilder {
	return &TypeBuilder{name: name}
}

// Name returns the type name the builder was created with.
func (b *TypeBuilder) Name() string {
	return b.name
}

// Table overrides the derived table name.
func (b *TypeBuilder) Table(name string) *TypeBuilder {
	b.table = name
	return b
}

// ID overrides the identity column name.
func (b *TypeBuilder) ID(column string) *TypeBuilder {
	b.idColumn = column
	return b
}

// Relations declares the relations of the type, in order.
func (b *TypeBuilder) Relations(rels ...*RelationBuilder) *TypeBuilder {
	b.rels = append(b.rels, rels...)
	return b
}

func (b *TypeBuilder) build() (*Type, error) {
	if b.name == "" {
		return nil, fmt.Errorf("schema: type name must not be empty")
	}
	t := &Type{
		Name:      b.name,
		Table:     b.table,
		IDColumn:  b.idColumn,
		relations: make(map[string]*Relation, len(b.rels)),
	}
	if t.Table == "" {
		t.Table = inflect.Pluralize(inflect.Underscore(b.name))
	}
	if t.IDColumn == "" {
		t.IDColumn = "id"
	}
	for _, rb := range b.rels {
		r, err := rb.build(b.name)
		if err != nil {
			return nil, err
		}
		if _, ok := t.relations[r.Name]; ok {
			return nil, fmt.Errorf("schema: relation %q declared twice on type %q", r.Name, b.name)
		}
		t.relations[r.Name] = r
		t.order = append(t.order, r.Name)
	}
	return t, nil
}

// RelationBuilder assembles one relation declaration.
type RelationBuilder struct {
	name    string
	target  string
	card    Cardinality
	fk      string
	ref     string
	orderBy []string
}

// BelongsTo declares a to-one relation: the owning type's rows reference a
// single related record, e.g. BelongsTo("project", "Project") on a Task
// type. The foreign-key column defaults to the underscored relation name
// suffixed with "_id" (project -> project_id) and lives on the owning
// type's rows.
func BelongsTo(name, target string) *RelationBuilder {
	return &RelationBuilder{name: name, target: target, card: ToOne}
}

// HasMany declares a to-many relation: the target's rows reference the
// owning record, e.g. HasMany("comments", "Comment") on a Task type. The
// foreign-key column defaults to the underscored owner type name suffixed
// with "_id" (Task -> task_id) and lives on the target's rows.
func HasMany(name, target string) *RelationBuilder {
	return &RelationBuilder{name: name, target: target, card: ToMany}
}

// Field overrides the foreign-key column.
func (b *RelationBuilder) Field(column string) *RelationBuilder {
	b.fk = column
	return b
}

// Ref overrides the column the foreign key references. It defaults to the
// identity column of the referenced side.
func (b *RelationBuilder) Ref(column string) *RelationBuilder {
	b.ref = column
	return b
}

// OrderBy sets the default ordering columns for fetched related rows.
// A stable default order makes per-parent child ordering repeatable on
// backends without a natural row order.
func (b *RelationBuilder) OrderBy(columns ...string) *RelationBuilder {
	b.orderBy = append(b.orderBy, columns...)
	return b
}

func (b *RelationBuilder) build(owner string) (*Relation, error) {
	if b.name == "" {
		return nil, fmt.Errorf("schema: relation on type %q has empty name", owner)
	}
	if strings.Contains(b.name, ".") {
		return nil, fmt.Errorf("schema: relation name %q must not contain %q", b.name, ".")
	}
	if b.target == "" {
		return nil, fmt.Errorf("schema: relation %q on type %q has empty target", b.name, owner)
	}
	r := &Relation{
		Name:        b.name,
		Target:      b.target,
		Cardinality: b.card,
		FKColumn:    b.fk,
		RefColumn:   b.ref,
		OrderBy:     b.orderBy,
	}
	if r.FKColumn == "" {
		switch r.Cardinality {
		case ToOne:
			r.FKColumn = inflect.Underscore(inflect.Singularize(b.name)) + "_id"
		case ToMany:
			r.FKColumn = inflect.Underscore(owner) + "_id"
		}
	}
	return r, nil
}
