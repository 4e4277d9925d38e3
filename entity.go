package preload

import (
	"fmt"

	"github.com/syssam/preload/backend"
	"github.com/syssam/preload/schema"
)

// Entity is a materialized record plus its hydration state: the raw column
// values and, for every relation that was eager-loaded, the attached related
// entities. Accessing a relation that was not requested returns a
// NotLoadedError rather than triggering an implicit fetch.
type Entity struct {
	typ    *schema.Type
	values backend.Row
	edges  map[string]edgeValue
}

// edgeValue is the resolved state of one relation on one entity. For a
// to-one relation the child pointer may be shared with other parents; for a
// to-many relation the slice is owned by this entity alone.
type edgeValue struct {
	one    *Entity
	many   []*Entity
	toMany bool
}

// NewEntity wraps a fetched row as an entity of the given type with no
// relations loaded.
func NewEntity(typ *schema.Type, values backend.Row) *Entity {
	return &Entity{typ: typ, values: values}
}

// Type returns the entity's schema type.
func (e *Entity) Type() *schema.Type {
	return e.typ
}

// ID returns the value of the entity's identity column.
func (e *Entity) ID() any {
	return e.values[e.typ.IDColumn]
}

// Value returns the raw column value, if present.
func (e *Entity) Value(column string) (any, bool) {
	v, ok := e.values[column]
	return v, ok
}

// Values returns the entity's raw column values. The returned map is the
// entity's own; callers must not mutate it.
func (e *Entity) Values() backend.Row {
	return e.values
}

// Loaded reports whether the named relation has been eager-loaded.
func (e *Entity) Loaded(relation string) bool {
	_, ok := e.edges[relation]
	return ok
}

// Edge returns the related entity of a loaded to-one relation. A nil entity
// with a nil error is the explicit absent state: the relation was loaded
// and no related record exists (for example a NULL foreign key).
func (e *Entity) Edge(relation string) (*Entity, error) {
	ev, ok := e.edges[relation]
	if !ok {
		return nil, NewNotLoadedError(relation)
	}
	if ev.toMany {
		return nil, fmt.Errorf("preload: relation %q is to-many; use Edges", relation)
	}
	return ev.one, nil
}

// Edges returns the related entities of a loaded to-many relation as an
// ordered, possibly empty collection.
func (e *Entity) Edges(relation string) ([]*Entity, error) {
	ev, ok := e.edges[relation]
	if !ok {
		return nil, NewNotLoadedError(relation)
	}
	if !ev.toMany {
		return nil, fmt.Errorf("preload: relation %q is to-one; use Edge", relation)
	}
	return ev.many, nil
}

func (e *Entity) setOne(relation string, child *Entity) {
	if e.edges == nil {
		e.edges = make(map[string]edgeValue)
	}
	e.edges[relation] = edgeValue{one: child}
}

func (e *Entity) setMany(relation string, children []*Entity) {
	if e.edges == nil {
		e.edges = make(map[string]edgeValue)
	}
	e.edges[relation] = edgeValue{many: children, toMany: true}
}

// key returns the normalized value of the given column, or nil when the
// column is absent or NULL.
func (e *Entity) key(column string) any {
	v, ok := e.values[column]
	if !ok || v == nil {
		return nil
	}
	return backend.NormalizeKey(v)
}
