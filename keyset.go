package preload

// keySet collects the distinct keys needed to fetch one edge, preserving
// first-seen order so the batch filter and the stable regrouping of rows
// are repeatable across loads. It lives for exactly one edge fetch.
type keySet struct {
	order []any
	seen  map[any]struct{}
}

func newKeySet() *keySet {
	return &keySet{seen: make(map[any]struct{})}
}

// add records a normalized key. Nil keys (absent columns, NULL foreign
// keys) are skipped; they must never reach the backend filter.
func (ks *keySet) add(key any) {
	if key == nil {
		return
	}
	if _, ok := ks.seen[key]; ok {
		return
	}
	ks.seen[key] = struct{}{}
	ks.order = append(ks.order, key)
}

func (ks *keySet) len() int {
	return len(ks.order)
}

// values returns the keys in first-seen order.
func (ks *keySet) values() []any {
	return ks.order
}

// collectKeys extracts the distinct parent-side keys for the given edge:
// foreign keys for to-one (the parent references the child), identity keys
// for to-many (the children reference the parent). An empty result means
// the edge's fetch is skipped entirely.
func collectKeys(parents []*Entity, node *LoadNode) *keySet {
	ks := newKeySet()
	column := node.parentKeyColumn()
	for _, p := range parents {
		ks.add(p.key(column))
	}
	return ks
}
