// Package backend defines the single fetch primitive the resolver consumes.
//
// The resolver never issues raw query text; it depends only on the filtered
// fetch contract below, with one implementation per storage backend (see the
// memstore and sqlstore subpackages). Retry policy, pooling and transaction
// management belong to the implementation, not to this contract.
package backend

import (
	"context"

	"github.com/syssam/preload/schema"
)

// Row is the raw record shape a backend returns: column name to value.
type Row map[string]any

// FetchRequest describes one batch fetch: all rows of the given type whose
// key column matches one of the given keys, in the requested order.
//
// A nil Keys slice requests an unfiltered fetch of the whole table (the
// root step of a load). An empty, non-nil Keys slice is never issued; the
// resolver skips the fetch entirely when no keys were collected.
type FetchRequest struct {
	Type      *schema.Type
	KeyColumn string
	Keys      []any
	OrderBy   []string
}

// Filtered reports whether the request carries a key filter.
func (r FetchRequest) Filtered() bool {
	return r.Keys != nil
}

// Backend is the capability interface for a storage backend. Implementations
// must treat the request as read-only and may return rows in any order when
// no ordering is requested; the resolver regroups rows stably by key.
type Backend interface {
	Fetch(ctx context.Context, req FetchRequest) ([]Row, error)
}

// FetchFunc adapts a plain function to the Backend interface.
type FetchFunc func(ctx context.Context, req FetchRequest) ([]Row, error)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, req FetchRequest) ([]Row, error) {
	return f(ctx, req)
}

// NormalizeKey canonicalizes a key value for map-key comparison across
// backends. Integer widths collapse to int64 (unsigned to uint64 when they
// do not fit), and []byte collapses to string. SQL drivers, msgpack and
// YAML all decode integers at different widths; without a canonical form
// the same logical key would miss its group.
func NormalizeKey(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return normalizeUint(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return normalizeUint(v)
	case float32:
		return float64(v)
	case []byte:
		return string(v)
	default:
		return v
	}
}

func normalizeUint(v uint64) any {
	if v <= 1<<63-1 {
		return int64(v)
	}
	return v
}
