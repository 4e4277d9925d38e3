package preload

import (
	"strings"

	"github.com/syssam/preload/schema"
)

// PathSeparator separates the segments of a relation path string.
const PathSeparator = "."

// LoadNode is one relation edge to be loaded at one depth of the forest.
// Nodes are shared by every requested path that traverses them, which is
// what bounds the fetch count to one per distinct edge.
type LoadNode struct {
	rel    *schema.Relation
	owner  *schema.Type
	target *schema.Type
	parent *LoadNode // nil at depth 0
	depth  int
	path   string // full dot path from the root type to this edge

	children []*LoadNode
	byName   map[string]*LoadNode
}

// Relation returns the schema relation this node loads.
func (n *LoadNode) Relation() *schema.Relation {
	return n.rel
}

// Path returns the full dot path from the root type to this edge.
func (n *LoadNode) Path() string {
	return n.path
}

// Depth returns the node's zero-based depth in the forest.
func (n *LoadNode) Depth() int {
	return n.depth
}

// Children returns the node's child edges in first-seen order.
func (n *LoadNode) Children() []*LoadNode {
	return n.children
}

// parentKeyColumn is the column read off parent entities when collecting
// keys for this edge: the foreign key for to-one, the parent's referenced
// (identity) column for to-many.
func (n *LoadNode) parentKeyColumn() string {
	switch n.rel.Cardinality {
	case schema.ToOne:
		return n.rel.FKColumn
	default:
		if n.rel.RefColumn != "" {
			return n.rel.RefColumn
		}
		return n.owner.IDColumn
	}
}

// childKeyColumn is the column the batch fetch filters on and rows are
// grouped by: the referenced column on the target for to-one, the foreign
// key on the target for to-many.
func (n *LoadNode) childKeyColumn() string {
	switch n.rel.Cardinality {
	case schema.ToOne:
		if n.rel.RefColumn != "" {
			return n.rel.RefColumn
		}
		return n.target.IDColumn
	default:
		return n.rel.FKColumn
	}
}

// PathSet is the parsed, deduplicated forest of load steps for one load
// request. It is built once per request and immutable afterwards; two
// concurrent load requests never share one.
type PathSet struct {
	root   *schema.Type
	paths  []string
	nodes  []*LoadNode // depth-0 edges in first-seen order
	byName map[string]*LoadNode
	edges  int
}

// ParsePaths parses the given relation path strings against the root type
// into a LoadNode forest. Shared prefixes collapse into a single edge and
// duplicate full paths are no-ops. It fails with a PathError, before any
// fetch is issued, when a path is malformed or a segment names a relation
// unknown to the entity type at its depth.
func ParsePaths(s *schema.Schema, root *schema.Type, paths []string) (*PathSet, error) {
	ps := &PathSet{root: root, byName: make(map[string]*LoadNode)}
	for _, path := range paths {
		if err := ps.add(s, path); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

func (ps *PathSet) add(s *schema.Schema, path string) error {
	if path == "" {
		return NewPathError(path, "path is empty")
	}
	segments := strings.Split(path, PathSeparator)
	cur := ps.root
	var parent *LoadNode
	for depth, seg := range segments {
		if seg == "" {
			return NewPathError(path, "empty segment")
		}
		rel, ok := cur.Relation(seg)
		if !ok {
			return NewPathSegmentError(path, seg, depth, "unknown relation on type "+cur.Name)
		}
		target, ok := s.Type(rel.Target)
		if !ok {
			return NewPathSegmentError(path, seg, depth, "relation targets unregistered type "+rel.Target)
		}
		node := ps.child(parent, seg)
		if node == nil {
			node = &LoadNode{
				rel:    rel,
				owner:  cur,
				target: target,
				parent: parent,
				depth:  depth,
				byName: make(map[string]*LoadNode),
			}
			if parent == nil {
				node.path = seg
				ps.nodes = append(ps.nodes, node)
				ps.byName[seg] = node
			} else {
				node.path = parent.path + PathSeparator + seg
				parent.children = append(parent.children, node)
				parent.byName[seg] = node
			}
			ps.edges++
		}
		parent = node
		cur = target
	}
	ps.paths = append(ps.paths, path)
	return nil
}

// validatePathSyntax checks path strings for the structural errors that need
// no root type to detect: empty paths and empty segments.
func validatePathSyntax(paths []string) error {
	for _, path := range paths {
		if path == "" {
			return NewPathError(path, "path is empty")
		}
		for _, seg := range strings.Split(path, PathSeparator) {
			if seg == "" {
				return NewPathError(path, "empty segment")
			}
		}
	}
	return nil
}

func (ps *PathSet) child(parent *LoadNode, name string) *LoadNode {
	if parent == nil {
		return ps.byName[name]
	}
	return parent.byName[name]
}

// Roots returns the depth-0 edges in first-seen order.
func (ps *PathSet) Roots() []*LoadNode {
	return ps.nodes
}

// RootType returns the entity type the paths were parsed against.
func (ps *PathSet) RootType() *schema.Type {
	return ps.root
}

// Paths returns the accepted path strings in the order they were given,
// duplicates included.
func (ps *PathSet) Paths() []string {
	return ps.paths
}

// EdgeCount returns the number of distinct edges in the forest. Together
// with the root query this is the exact number of fetches a load issues.
func (ps *PathSet) EdgeCount() int {
	return ps.edges
}
