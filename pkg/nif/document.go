// Package nif implements the block-graph document: an append-only arena of
// typed blocks that reference each other by index, its link rules, its
// traversal views and its binary stream encoding.
package nif

import (
	"fmt"
	"iter"

	"github.com/Faultbox/nifkit/pkg/fault"
)

// Document is an ordered list of blocks plus the header and root list.
// Blocks receive sequential indices on Append; indices are never reused.
type Document struct {
	Version     Version
	UserVersion uint32
	Roots       []Ref

	blocks []Block
}

// New returns an empty document of the given version.
func New(version Version, userVersion uint32) *Document {
	return &Document{Version: version, UserVersion: userVersion}
}

// Append adds b at the end and returns its index.
func (d *Document) Append(b Block) Ref {
	d.blocks = append(d.blocks, b)
	return Ref(len(d.blocks) - 1)
}

// Len returns the block count.
func (d *Document) Len() int {
	return len(d.blocks)
}

// Resolve returns the block at ref.
func (d *Document) Resolve(ref Ref) (Block, error) {
	if ref < 0 || int(ref) >= len(d.blocks) {
		return nil, &fault.IndexError{Ref: int32(ref), Len: len(d.blocks)}
	}
	return d.blocks[ref], nil
}

// Blocks iterates over all blocks in index order.
func (d *Document) Blocks() iter.Seq2[Ref, Block] {
	return func(yield func(Ref, Block) bool) {
		for i, b := range d.blocks {
			if !yield(Ref(i), b) {
				return
			}
		}
	}
}

// Get resolves ref and asserts its variant.
func Get[T Block](d *Document, ref Ref) (T, error) {
	var zero T
	b, err := d.Resolve(ref)
	if err != nil {
		return zero, err
	}
	t, ok := b.(T)
	if !ok {
		return zero, fault.Formatf("block %d is %s, expected %T", ref, b.TypeName(), zero)
	}
	return t, nil
}

// Lookup is Get without an error: it returns false for None, out of range
// or a different variant.
func Lookup[T Block](d *Document, ref Ref) (T, bool) {
	var zero T
	if ref < 0 || int(ref) >= len(d.blocks) {
		return zero, false
	}
	t, ok := d.blocks[ref].(T)
	return t, ok
}

// Root returns the first root, or None.
func (d *Document) Root() Ref {
	if len(d.Roots) == 0 {
		return None
	}
	return d.Roots[0]
}

// Name returns the name of a named block, or "".
func (d *Document) Name(ref Ref) string {
	b, ok := Lookup[Block](d, ref)
	if !ok {
		return ""
	}
	switch v := b.(type) {
	case NetObject:
		return v.Net().Name
	case ExtraBlock:
		return v.Extra().Name
	}
	return ""
}

// FindByName returns the first named block with the given name.
func (d *Document) FindByName(name string) Ref {
	for ref, b := range d.Blocks() {
		if o, ok := b.(NetObject); ok && o.Net().Name == name {
			return ref
		}
	}
	return None
}

// CountByType returns the number of blocks per type name.
func (d *Document) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, b := range d.blocks {
		counts[b.TypeName()]++
	}
	return counts
}

// validate checks every reference of every block and the root list.
func (d *Document) validate() error {
	for i, b := range d.blocks {
		for _, ref := range b.refs() {
			if *ref == None {
				continue
			}
			if *ref < 0 || int(*ref) >= len(d.blocks) {
				return fmt.Errorf("block %d (%s): %w", i, b.TypeName(), &fault.IndexError{Ref: int32(*ref), Len: len(d.blocks)})
			}
		}
		if data, ok := b.(*TriShapeData); ok {
			if err := data.validate(); err != nil {
				return fault.Formatf("block %d (%s): %v", i, b.TypeName(), err)
			}
		}
	}
	for _, root := range d.Roots {
		if _, err := d.Resolve(root); err != nil {
			return fmt.Errorf("root: %w", err)
		}
	}
	return nil
}
