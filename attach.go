package preload

import (
	"github.com/syssam/preload/schema"
)

// attachEdge stitches the fetched children of one edge onto their parents.
// Attachment never fetches: a parent whose key is missing from the result
// gets the explicit absent state (to-one) or an empty collection (to-many).
// To-one children are attached as shared references; a to-one key matching
// more than one row is a CardinalityError, never silently truncated.
func attachEdge(parents []*Entity, node *LoadNode, res *fetchResult) error {
	column := node.parentKeyColumn()
	toMany := node.rel.Cardinality == schema.ToMany
	for _, p := range parents {
		key := p.key(column)
		if key == nil {
			if toMany {
				p.setMany(node.rel.Name, []*Entity{})
			} else {
				p.setOne(node.rel.Name, nil)
			}
			continue
		}
		children := res.groups[key]
		if toMany {
			// Each parent owns its collection. Parent keys are normally
			// unique, but distinct parent entities sharing a key value
			// must not share the backing array.
			owned := make([]*Entity, len(children))
			copy(owned, children)
			p.setMany(node.rel.Name, owned)
			continue
		}
		switch len(children) {
		case 0:
			p.setOne(node.rel.Name, nil)
		case 1:
			p.setOne(node.rel.Name, children[0])
		default:
			return NewCardinalityError(node.path, node.depth, key, len(children))
		}
	}
	return nil
}
