package nif

import (
	"iter"
	"slices"
)

// Children returns the child references of a node. Non-nodes have none.
func (d *Document) Children(ref Ref) []Ref {
	node, ok := Lookup[*Node](d, ref)
	if !ok {
		return nil
	}
	return node.Children
}

// PropertyOfKind returns the first property of obj with the given kind, or None.
func (d *Document) PropertyOfKind(obj Ref, kind Kind) Ref {
	av, ok := Lookup[AVBlock](d, obj)
	if !ok {
		return None
	}
	for _, p := range av.AV().Properties {
		if b, ok := Lookup[Block](d, p); ok && b.Kind() == kind {
			return p
		}
	}
	return None
}

// ControllerChain iterates over the controllers of obj, head first.
// It stops at a dangling reference or a revisited controller.
func (d *Document) ControllerChain(obj Ref) iter.Seq2[Ref, ControllerBlock] {
	return func(yield func(Ref, ControllerBlock) bool) {
		o, ok := Lookup[NetObject](d, obj)
		if !ok {
			return
		}
		seen := make(map[Ref]bool)
		for ref := o.Net().Controller; ref != None && !seen[ref]; {
			seen[ref] = true
			c, ok := Lookup[ControllerBlock](d, ref)
			if !ok {
				return
			}
			if !yield(ref, c) {
				return
			}
			ref = c.Ctrl().Next
		}
	}
}

// ExtraDataChain iterates over the extra data of obj: the legacy chain first,
// then the list. Each block is yielded once.
func (d *Document) ExtraDataChain(obj Ref) iter.Seq2[Ref, ExtraBlock] {
	return func(yield func(Ref, ExtraBlock) bool) {
		o, ok := Lookup[NetObject](d, obj)
		if !ok {
			return
		}
		seen := make(map[Ref]bool)
		emit := func(ref Ref) (ExtraBlock, bool) {
			if ref == None || seen[ref] {
				return nil, false
			}
			seen[ref] = true
			return Lookup[ExtraBlock](d, ref)
		}
		for ref := o.Net().ExtraData; ref != None; {
			e, ok := emit(ref)
			if !ok {
				break
			}
			if !yield(ref, e) {
				return
			}
			ref = e.Extra().Next
		}
		for _, ref := range o.Net().ExtraDataList {
			e, ok := emit(ref)
			if !ok {
				continue
			}
			if !yield(ref, e) {
				return
			}
			// list entries may still carry a chain
			for next := e.Extra().Next; next != None; {
				n, ok := emit(next)
				if !ok {
					break
				}
				if !yield(next, n) {
					return
				}
				next = n.Extra().Next
			}
		}
	}
}

// FindExtra returns the first extra data of obj with variant T.
func FindExtra[T ExtraBlock](d *Document, obj Ref) (Ref, T, bool) {
	for ref, e := range d.ExtraDataChain(obj) {
		if t, ok := e.(T); ok {
			return ref, t, true
		}
	}
	var zero T
	return None, zero, false
}

// FindController returns the first controller of obj with variant T.
func FindController[T ControllerBlock](d *Document, obj Ref) (Ref, T, bool) {
	for ref, c := range d.ControllerChain(obj) {
		if t, ok := c.(T); ok {
			return ref, t, true
		}
	}
	var zero T
	return None, zero, false
}

// ParentTable maps each tree block to its parent node. It is built by one
// explicit pass and never stored on the blocks themselves.
type ParentTable map[Ref]Ref

// Parents builds the parent table of the subtree at root, or of every root
// when root is None. Roots map to None.
func Parents(d *Document, root Ref) ParentTable {
	pt := make(ParentTable)
	roots := d.Roots
	if root != None {
		roots = []Ref{root}
	}
	for _, r := range roots {
		if _, seen := pt[r]; seen {
			continue
		}
		pt[r] = None
		pt.fill(d, r)
	}
	return pt
}

func (pt ParentTable) fill(d *Document, ref Ref) {
	for _, c := range d.Children(ref) {
		if _, seen := pt[c]; seen {
			continue
		}
		pt[c] = ref
		pt.fill(d, c)
	}
}

// Parent returns the parent of ref, or None.
func (pt ParentTable) Parent(ref Ref) Ref {
	p, ok := pt[ref]
	if !ok {
		return None
	}
	return p
}

// Ancestors returns the parents of ref, nearest first.
func (pt ParentTable) Ancestors(ref Ref) []Ref {
	var out []Ref
	for p := pt.Parent(ref); p != None && !slices.Contains(out, p); p = pt.Parent(p) {
		out = append(out, p)
	}
	return out
}

// IsAncestor reports whether anc is a strict ancestor of ref.
func (pt ParentTable) IsAncestor(anc, ref Ref) bool {
	return slices.Contains(pt.Ancestors(ref), anc)
}

// Walk visits the subtree at root depth first, parents before children.
// Returning false from fn skips the children of that block.
func (d *Document) Walk(root Ref, fn func(ref Ref, b Block) bool) {
	seen := make(map[Ref]bool)
	var visit func(Ref)
	visit = func(ref Ref) {
		if seen[ref] {
			return
		}
		seen[ref] = true
		b, ok := Lookup[Block](d, ref)
		if !ok {
			return
		}
		if !fn(ref, b) {
			return
		}
		for _, c := range d.Children(ref) {
			visit(c)
		}
	}
	visit(root)
}
