// Package sqlstore implements the backend fetch primitive over database/sql.
// Each fetch issues a single SELECT with an IN filter over the collected
// key set; the package never generates any other SQL.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/preload/backend"
)

// Supported dialects. The dialect only decides the placeholder style.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores,
// dots for schema.name).
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// Store is a backend.Backend over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect string
}

// New wraps the given database handle.
func New(dialect string, db *sql.DB) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open wraps database/sql.Open and returns a Store for the dialect.
func Open(dialect, source string) (*Store, error) {
	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, err
	}
	return New(dialect, db), nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Fetch implements backend.Backend with one
// SELECT * FROM table [WHERE col IN (...)] [ORDER BY ...] per call.
func (s *Store) Fetch(ctx context.Context, req backend.FetchRequest) ([]backend.Row, error) {
	query, args, err := s.buildQuery(req)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func (s *Store) buildQuery(req backend.FetchRequest) (string, []any, error) {
	if !isValidIdentifier(req.Type.Table) {
		return "", nil, fmt.Errorf("sqlstore: invalid table name %q", req.Type.Table)
	}
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(req.Type.Table)
	var args []any
	if req.Filtered() {
		if !isValidIdentifier(req.KeyColumn) {
			return "", nil, fmt.Errorf("sqlstore: invalid column name %q", req.KeyColumn)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(req.KeyColumn)
		sb.WriteString(" IN (")
		for i, key := range req.Keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(s.placeholder(i))
			args = append(args, key)
		}
		sb.WriteString(")")
	}
	if len(req.OrderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, col := range req.OrderBy {
			if !isValidIdentifier(col) {
				return "", nil, fmt.Errorf("sqlstore: invalid order column %q", col)
			}
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(col)
		}
	}
	return sb.String(), args, nil
}

func (s *Store) placeholder(i int) string {
	if s.dialect == Postgres {
		return "$" + strconv.Itoa(i+1)
	}
	return "?"
}

// scanRows materializes all rows into the generic row shape. []byte values
// are copied to string; MySQL in particular reuses scan buffers across
// rows.
func scanRows(rows *sql.Rows) ([]backend.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []backend.Row
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(backend.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
