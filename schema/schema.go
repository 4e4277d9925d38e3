package schema

import (
	"fmt"
)

// Cardinality describes how many related records a relation yields per parent.
type Cardinality string

const (
	// ToOne relations yield at most one related record per parent. The
	// parent row holds the foreign key referencing the related record.
	ToOne Cardinality = "to-one"

	// ToMany relations yield an ordered collection of related records per
	// parent. The related rows hold the foreign key referencing the parent.
	ToMany Cardinality = "to-many"
)

// Relation describes one relation declared on an entity type.
//
// Column semantics depend on cardinality:
//
//   - ToOne: FKColumn is the column on the owning type's rows that holds
//     the key of the related record; RefColumn is the column on the target
//     it references (the target's ID column when empty).
//   - ToMany: FKColumn is the column on the target's rows that holds the
//     key of the owning record; RefColumn is the column on the owner it
//     references (the owner's ID column when empty).
type Relation struct {
	Name        string
	Target      string // name of the related entity type
	Cardinality Cardinality
	FKColumn    string
	RefColumn   string
	OrderBy     []string // default ordering for fetched related rows
}

// Type is the runtime metadata of one entity type: its table, its identity
// column and the relations declared on it, in declaration order.
type Type struct {
	Name     string
	Table    string
	IDColumn string

	relations map[string]*Relation
	order     []string
}

// Relation returns the relation declared under the given name.
func (t *Type) Relation(name string) (*Relation, bool) {
	r, ok := t.relations[name]
	return r, ok
}

// HasRelation reports whether a relation with the given name is declared.
func (t *Type) HasRelation(name string) bool {
	_, ok := t.relations[name]
	return ok
}

// Relations returns all declared relations in declaration order.
func (t *Type) Relations() []*Relation {
	rs := make([]*Relation, 0, len(t.order))
	for _, name := range t.order {
		rs = append(rs, t.relations[name])
	}
	return rs
}

// Schema is a registry of entity types. It is built once at startup and
// treated as immutable by every load request that consults it.
type Schema struct {
	types map[string]*Type
	order []string
}

// New returns an empty schema registry.
func New() *Schema {
	return &Schema{types: make(map[string]*Type)}
}

// Register materializes the builder into the registry, applying naming
// defaults for table, identity column and relation key columns.
func (s *Schema) Register(b *TypeBuilder) error {
	t, err := b.build()
	if err != nil {
		return err
	}
	if _, ok := s.types[t.Name]; ok {
		return fmt.Errorf("schema: type %q already registered", t.Name)
	}
	s.types[t.Name] = t
	s.order = append(s.order, t.Name)
	return nil
}

// MustRegister is like Register but panics on error. Intended for
// package-level schema construction where a failure is a programming error.
func (s *Schema) MustRegister(b *TypeBuilder) *Schema {
	if err := s.Register(b); err != nil {
		panic(err)
	}
	return s
}

// Type returns the registered type with the given name.
func (s *Schema) Type(name string) (*Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Types returns all registered types in registration order.
func (s *Schema) Types() []*Type {
	ts := make([]*Type, 0, len(s.order))
	for _, name := range s.order {
		ts = append(ts, s.types[name])
	}
	return ts
}

// Validate checks that every relation targets a registered type.
// Dangling targets are legal during registration (types may reference each
// other in any order) but are always a configuration bug by the time the
// schema is used.
func (s *Schema) Validate() error {
	for _, name := range s.order {
		t := s.types[name]
		for _, r := range t.Relations() {
			if _, ok := s.types[r.Target]; !ok {
				return fmt.Errorf("schema: relation %s.%s targets unregistered type %q", t.Name, r.Name, r.Target)
			}
		}
	}
	return nil
}
