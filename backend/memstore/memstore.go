// Package memstore provides an in-memory backend for tests, benchmarks and
// fixtures. Rows are stored msgpack-encoded and decoded on every fetch, so
// the store's data is isolated from mutation through previously returned
// rows.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/preload/backend"
)

// Store is an in-memory, table-oriented backend. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string][][]byte
}

// New returns an empty store.
func New() *Store {
	return &Store{tables: make(map[string][][]byte)}
}

// Insert appends rows to the given table, preserving insertion order.
func (s *Store) Insert(table string, rows ...backend.Row) error {
	encoded := make([][]byte, len(rows))
	for i, row := range rows {
		b, err := msgpack.Marshal(row)
		if err != nil {
			return fmt.Errorf("memstore: encoding row for table %q: %w", table, err)
		}
		encoded[i] = b
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], encoded...)
	return nil
}

// Reset removes all tables and rows.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string][][]byte)
}

// Fetch implements backend.Backend. Unknown tables yield no rows. Without
// a requested order, rows come back in insertion order; with one, sorting
// is stable so equal rows keep their insertion order.
func (s *Store) Fetch(ctx context.Context, req backend.FetchRequest) ([]backend.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	encoded := s.tables[req.Type.Table]
	s.mu.RUnlock()

	var keys map[any]struct{}
	if req.Filtered() {
		keys = make(map[any]struct{}, len(req.Keys))
		for _, k := range req.Keys {
			keys[backend.NormalizeKey(k)] = struct{}{}
		}
	}
	rows := make([]backend.Row, 0, len(encoded))
	for _, b := range encoded {
		var row backend.Row
		if err := msgpack.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("memstore: decoding row of table %q: %w", req.Type.Table, err)
		}
		if keys != nil {
			v, ok := row[req.KeyColumn]
			if !ok || v == nil {
				continue
			}
			if _, ok := keys[backend.NormalizeKey(v)]; !ok {
				continue
			}
		}
		rows = append(rows, row)
	}
	if len(req.OrderBy) > 0 {
		sortRows(rows, req.OrderBy)
	}
	return rows, nil
}

func sortRows(rows []backend.Row, orderBy []string) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, col := range orderBy {
			if c := compareValues(rows[i][col], rows[j][col]); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// compareValues orders two column values. NULLs sort first; mismatched or
// unknown types fall back to their string form.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	av, bv := backend.NormalizeKey(a), backend.NormalizeKey(b)
	switch av := av.(type) {
	case int64:
		if bv, ok := bv.(int64); ok {
			return compareOrdered(av, bv)
		}
	case uint64:
		if bv, ok := bv.(uint64); ok {
			return compareOrdered(av, bv)
		}
	case float64:
		if bv, ok := bv.(float64); ok {
			return compareOrdered(av, bv)
		}
	case string:
		if bv, ok := bv.(string); ok {
			return compareOrdered(av, bv)
		}
	case bool:
		if bv, ok := bv.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return compareOrdered(fmt.Sprint(av), fmt.Sprint(bv))
}

func compareOrdered[T int64 | uint64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
