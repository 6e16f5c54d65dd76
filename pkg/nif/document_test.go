package nif

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/nifkit/pkg/fault"
)

func TestAppendResolve(t *testing.T) {
	doc := New(V20_0_0_5, 11)
	a := doc.Append(NewNode("Scene Root"))
	b := doc.Append(NewNode("Child"))
	assert.Equal(t, Ref(0), a)
	assert.Equal(t, Ref(1), b)
	assert.Equal(t, 2, doc.Len())

	blk, err := doc.Resolve(b)
	require.NoError(t, err)
	assert.Equal(t, "Child", blk.(*Node).Name)

	for _, ref := range []Ref{None, 2, 100} {
		_, err := doc.Resolve(ref)
		var idx *fault.IndexError
		assert.True(t, errors.As(err, &idx), "ref %d", ref)
		assert.ErrorIs(t, err, fault.ErrFormat)
	}
}

func TestGetWrongVariant(t *testing.T) {
	doc := New(V20_0_0_5, 0)
	ref := doc.Append(NewNode("n"))
	_, err := Get[*TriShape](doc, ref)
	assert.ErrorIs(t, err, fault.ErrFormat)

	n, err := Get[AVBlock](doc, ref)
	require.NoError(t, err)
	assert.Equal(t, "n", n.Net().Name)
}

func TestLinkConflicts(t *testing.T) {
	doc := New(V20_0_0_5, 0)
	root := doc.Append(NewNode("root"))
	child := doc.Append(NewNode("child"))
	shape := doc.Append(NewTriShape("shape"))
	mat1 := doc.Append(NewMaterial("m1"))
	mat2 := doc.Append(NewMaterial("m2"))
	ctrl1 := doc.Append(NewKeyframeController())
	ctrl2 := doc.Append(NewKeyframeController())
	ctrl3 := doc.Append(NewKeyframeController())
	data1 := doc.Append(&KeyframeData{})
	data2 := doc.Append(&KeyframeData{})

	tests := []struct {
		name  string
		first func() error
		again func() error
	}{
		{"child", func() error { return doc.LinkChild(root, child) }, func() error { return doc.LinkChild(root, child) }},
		{"property", func() error { return doc.LinkProperty(shape, mat1) }, func() error { return doc.LinkProperty(shape, mat2) }},
		{"controller", func() error { return doc.LinkController(child, ctrl1) }, func() error { return doc.LinkController(child, ctrl2) }},
		{"chain", func() error { return doc.ChainController(ctrl1, ctrl2) }, func() error { return doc.ChainController(ctrl1, ctrl3) }},
		{"data", func() error { return doc.LinkData(ctrl1, data1) }, func() error { return doc.LinkData(ctrl1, data2) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.first())
			err := tt.again()
			var lc *fault.LinkConflictError
			assert.True(t, errors.As(err, &lc), "got %v", err)
			assert.ErrorIs(t, err, fault.ErrStructural)
		})
	}

	// the controller points back at its target
	c, _ := Get[*KeyframeController](doc, ctrl2)
	assert.Equal(t, child, c.Target)
}

func TestLinkPropertyRejectsNonProperty(t *testing.T) {
	doc := New(V20_0_0_5, 0)
	shape := doc.Append(NewTriShape("shape"))
	node := doc.Append(NewNode("node"))
	assert.ErrorIs(t, doc.LinkProperty(shape, node), fault.ErrFormat)
}

func TestPropertyOfKind(t *testing.T) {
	doc := New(V20_0_0_5, 0)
	shape := doc.Append(NewTriShape("shape"))
	alpha := doc.Append(NewAlpha())
	mat := doc.Append(NewMaterial("m"))
	require.NoError(t, doc.LinkProperty(shape, alpha))
	require.NoError(t, doc.LinkProperty(shape, mat))

	assert.Equal(t, mat, doc.PropertyOfKind(shape, KindMaterial))
	assert.Equal(t, alpha, doc.PropertyOfKind(shape, KindAlpha))
	assert.Equal(t, None, doc.PropertyOfKind(shape, KindSpecular))
	assert.Equal(t, None, doc.PropertyOfKind(mat, KindMaterial))
}

func TestControllerChain(t *testing.T) {
	doc := New(V20_0_0_5, 0)
	node := doc.Append(NewNode("n"))
	c1 := doc.Append(NewKeyframeController())
	c2 := doc.Append(NewGeomMorpherController())
	require.NoError(t, doc.LinkController(node, c1))
	require.NoError(t, doc.ChainController(c1, c2))

	var got []Ref
	for ref := range doc.ControllerChain(node) {
		got = append(got, ref)
	}
	assert.Equal(t, []Ref{c1, c2}, got)

	ref, morph, ok := FindController[*GeomMorpherController](doc, node)
	assert.True(t, ok)
	assert.Equal(t, c2, ref)
	assert.Equal(t, node, morph.Target)

	// a cycle written by a broken tool ends the chain instead of looping
	doc.blocks[c2].(*GeomMorpherController).Next = c1
	got = got[:0]
	for ref := range doc.ControllerChain(node) {
		got = append(got, ref)
	}
	assert.Equal(t, []Ref{c1, c2}, got)
}

func TestExtraDataChainLegacy(t *testing.T) {
	doc := New(V4_0_0_2, 0)
	node := doc.Append(NewNode("n"))
	e1 := doc.Append(NewTextKeys(nil))
	e2 := doc.Append(NewStringExtra("a"))
	require.NoError(t, doc.LinkExtraData(node, e1))
	require.NoError(t, doc.LinkExtraData(node, e2))

	n, _ := Get[*Node](doc, node)
	assert.Equal(t, e1, n.ExtraData)
	assert.Empty(t, n.ExtraDataList)

	// linking a block already in the chain is a conflict
	assert.ErrorIs(t, doc.LinkExtraData(node, e2), fault.ErrStructural)

	var got []Ref
	for ref := range doc.ExtraDataChain(node) {
		got = append(got, ref)
	}
	assert.Equal(t, []Ref{e1, e2}, got)
}

func TestExtraDataChainMerged(t *testing.T) {
	doc := New(V20_0_0_5, 0)
	node := doc.Append(NewNode("n"))
	chained := doc.Append(NewStringExtra("chain"))
	listed := doc.Append(NewStringExtra("list"))
	tail := doc.Append(NewStringExtra("tail"))

	n, _ := Get[*Node](doc, node)
	n.ExtraData = chained
	n.ExtraDataList = []Ref{listed, chained}
	doc.blocks[listed].(*StringExtraData).Next = tail

	var got []string
	for _, e := range doc.ExtraDataChain(node) {
		got = append(got, e.(*StringExtraData).Value)
	}
	assert.Equal(t, []string{"chain", "list", "tail"}, got)

	_, s, ok := FindExtra[*StringExtraData](doc, node)
	assert.True(t, ok)
	assert.Equal(t, "chain", s.Value)
	_, _, ok = FindExtra[*TextKeyExtraData](doc, node)
	assert.False(t, ok)
}

func TestParents(t *testing.T) {
	doc := New(V20_0_0_5, 0)
	root := doc.Append(NewNode("root"))
	a := doc.Append(NewNode("A"))
	b := doc.Append(NewNode("B"))
	c := doc.Append(NewTriShape("C"))
	require.NoError(t, doc.LinkChild(root, a))
	require.NoError(t, doc.LinkChild(a, b))
	require.NoError(t, doc.LinkChild(b, c))
	require.NoError(t, doc.AddRoot(root))

	pt := Parents(doc, None)
	assert.Equal(t, None, pt.Parent(root))
	assert.Equal(t, b, pt.Parent(c))
	assert.Equal(t, []Ref{b, a, root}, pt.Ancestors(c))
	assert.True(t, pt.IsAncestor(root, c))
	assert.False(t, pt.IsAncestor(c, root))

	var order []string
	doc.Walk(root, func(ref Ref, blk Block) bool {
		order = append(order, doc.Name(ref))
		return ref != b
	})
	assert.Equal(t, []string{"root", "A", "B"}, order)
	assert.Equal(t, c, doc.FindByName("C"))
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "4.0.0.2", want: V4_0_0_2},
		{in: "10.0.1.0", want: V10_0_1_0},
		{in: "20.0.0.5", want: V20_0_0_5},
		{in: "4.0", wantErr: true},
		{in: "four", wantErr: true},
		{in: "300.0.0.1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseVersion(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, fault.ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.in, v.String())
		})
	}
}
