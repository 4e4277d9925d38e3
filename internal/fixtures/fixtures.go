// Package fixtures loads YAML-described entity graphs into a memstore
// backend, shared by the package tests and benchmarks.
package fixtures

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/preload/backend"
	"github.com/syssam/preload/backend/memstore"
)

// Graph is a set of tables with their rows, in document order.
type Graph struct {
	Tables []Table `yaml:"tables"`
}

// Table is one table's rows, in document order.
type Table struct {
	Name string           `yaml:"name"`
	Rows []map[string]any `yaml:"rows"`
}

// Parse decodes a YAML fixture document.
func Parse(data []byte) (*Graph, error) {
	var g Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("fixtures: %w", err)
	}
	for i, t := range g.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("fixtures: table %d has no name", i)
		}
	}
	return &g, nil
}

// Load reads and decodes a YAML fixture file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixtures: %w", err)
	}
	return Parse(data)
}

// Seed inserts all rows of the graph into the store.
func (g *Graph) Seed(store *memstore.Store) error {
	for _, t := range g.Tables {
		rows := make([]backend.Row, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = backend.Row(r)
		}
		if err := store.Insert(t.Name, rows...); err != nil {
			return err
		}
	}
	return nil
}

// MustSeedFile loads the fixture at path into a fresh store, panicking on
// error. Intended for test setup.
func MustSeedFile(path string) *memstore.Store {
	g, err := Load(path)
	if err != nil {
		panic(err)
	}
	store := memstore.New()
	if err := g.Seed(store); err != nil {
		panic(err)
	}
	return store
}
