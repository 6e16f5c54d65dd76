// Package skeleton decides which nodes of a document form armatures and bones,
// and derives the rest pose and axis correction of each bone.
package skeleton

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Faultbox/nifkit/pkg/fault"
	"github.com/Faultbox/nifkit/pkg/nif"
)

// Mode selects how skeletons are discovered.
type Mode int

const (
	// FullScene marks the skeleton root of every skin as an armature.
	FullScene Mode = iota
	// SkeletonOnly treats every non-grouping node below the skeleton root as a bone.
	SkeletonOnly
	// AttachToSelected binds all skins to one existing armature.
	AttachToSelected
)

// String returns the mode name used in configuration files.
func (m Mode) String() string {
	switch m {
	case FullScene:
		return "full"
	case SkeletonOnly:
		return "skeleton"
	case AttachToSelected:
		return "attach"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "full", "":
		return FullScene, nil
	case "skeleton":
		return SkeletonOnly, nil
	case "attach":
		return AttachToSelected, nil
	}
	return 0, fmt.Errorf("unknown skeleton mode %q", s)
}

// Attachment describes the existing armature used by AttachToSelected.
type Attachment struct {
	Armature string
	Bones    []string
}

// legacySkeletonRoot is the conventional skeleton root of legacy documents.
const legacySkeletonRoot = "Bip01"

// Mapper tracks armature roots and their bone sets for one document.
type Mapper struct {
	doc     *nif.Document
	parents nif.ParentTable

	bones map[nif.Ref]map[nif.Ref]bool // armature root -> bones
	order []nif.Ref                    // armature roots in discovery order
}

// NewMapper returns an empty mapper over doc.
func NewMapper(doc *nif.Document, parents nif.ParentTable) *Mapper {
	return &Mapper{doc: doc, parents: parents, bones: make(map[nif.Ref]map[nif.Ref]bool)}
}

// MarkRoot marks root as an armature.
func (m *Mapper) MarkRoot(root nif.Ref) {
	if _, ok := m.bones[root]; ok {
		return
	}
	m.bones[root] = make(map[nif.Ref]bool)
	m.order = append(m.order, root)
}

// MarkBone adds bone to the bone set of root.
func (m *Mapper) MarkBone(bone, root nif.Ref) {
	m.MarkRoot(root)
	m.bones[root][bone] = true
}

// CompleteBoneTree marks bone and every unmarked ancestor up to, but
// excluding, root. It stops early at an ancestor that is already a bone.
func (m *Mapper) CompleteBoneTree(bone, root nif.Ref) error {
	m.MarkBone(bone, root)
	set := m.bones[root]
	for p := m.parents.Parent(bone); p != root; p = m.parents.Parent(p) {
		if p == nif.None {
			return &fault.InconsistentArmatureError{
				Geometry: m.doc.Name(bone),
				Root:     m.doc.Name(root),
				Reason:   "bone is not below the skeleton root",
			}
		}
		if set[p] {
			return nil
		}
		set[p] = true
	}
	return nil
}

// Scan marks armatures and bones in the subtree at root.
func (m *Mapper) Scan(root nif.Ref, mode Mode, attach *Attachment) error {
	switch mode {
	case SkeletonOnly:
		return m.scanSkeleton(root)
	case AttachToSelected:
		if attach == nil {
			return fmt.Errorf("%w: no armature selected to attach to", fault.ErrStructural)
		}
		if err := m.scanAttach(root, attach); err != nil {
			return err
		}
	}
	return m.scanSkins(root, mode, attach)
}

func (m *Mapper) scanSkeleton(root nif.Ref) error {
	if _, ok := nif.Lookup[*nif.Node](m.doc, root); !ok {
		return fault.Formatf("cannot import skeleton: root is not a node")
	}
	skelRoot := root
	if m.doc.Version == nif.V4_0_0_2 {
		if bip := m.findNode(root, legacySkeletonRoot); bip != nif.None {
			skelRoot = bip
		}
	}
	m.MarkRoot(skelRoot)
	m.doc.Walk(skelRoot, func(ref nif.Ref, b nif.Block) bool {
		if ref == skelRoot {
			return true
		}
		if _, ok := b.(*nif.Node); !ok {
			return false
		}
		if len(Grouped(m.doc, ref)) > 0 {
			return true
		}
		m.MarkBone(ref, skelRoot)
		return true
	})
	return nil
}

func (m *Mapper) scanAttach(root nif.Ref, attach *Attachment) error {
	if len(m.order) > 0 {
		return nil
	}
	skelRoot := m.findNode(root, attach.Armature)
	if skelRoot == nif.None {
		return &fault.InconsistentArmatureError{Root: attach.Armature, Reason: "document has no node with that name"}
	}
	m.MarkRoot(skelRoot)
	for _, name := range attach.Bones {
		bone := m.findNode(skelRoot, name)
		if bone == nif.None || bone == skelRoot {
			continue
		}
		if err := m.CompleteBoneTree(bone, skelRoot); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) scanSkins(root nif.Ref, mode Mode, attach *Attachment) error {
	var err error
	m.doc.Walk(root, func(ref nif.Ref, b nif.Block) bool {
		if err != nil {
			return false
		}
		shape, ok := b.(*nif.TriShape)
		if !ok || shape.Skin == nif.None {
			return true
		}
		skin, serr := nif.Get[*nif.SkinInstance](m.doc, shape.Skin)
		if serr != nil {
			err = serr
			return false
		}
		skelRoot := skin.SkeletonRoot
		if _, ok := m.bones[skelRoot]; !ok {
			if mode == AttachToSelected {
				err = &fault.InconsistentArmatureError{
					Geometry: shape.Name,
					Root:     attach.Armature,
					Reason:   fmt.Sprintf("skin uses %q as armature", m.doc.Name(skelRoot)),
				}
				return false
			}
			m.MarkRoot(skelRoot)
		}
		for _, bone := range skin.Bones {
			if mode == AttachToSelected && !m.bones[skelRoot][bone] {
				err = &fault.InconsistentArmatureError{
					Geometry: shape.Name,
					Root:     attach.Armature,
					Reason:   fmt.Sprintf("armature has no bone %q", m.doc.Name(bone)),
				}
				return false
			}
			if err = m.CompleteBoneTree(bone, skelRoot); err != nil {
				return false
			}
		}
		return true
	})
	return err
}

func (m *Mapper) findNode(root nif.Ref, name string) nif.Ref {
	found := nif.None
	m.doc.Walk(root, func(ref nif.Ref, b nif.Block) bool {
		if found != nif.None {
			return false
		}
		if n, ok := b.(*nif.Node); ok && n.Name == name {
			found = ref
			return false
		}
		return true
	})
	return found
}

// IsBone reports whether ref is a bone of any armature.
func (m *Mapper) IsBone(ref nif.Ref) bool {
	for _, set := range m.bones {
		if set[ref] {
			return true
		}
	}
	return false
}

// IsArmatureRoot reports whether ref is an armature.
func (m *Mapper) IsArmatureRoot(ref nif.Ref) bool {
	_, ok := m.bones[ref]
	return ok
}

// Armatures returns the armature roots in discovery order.
func (m *Mapper) Armatures() []nif.Ref {
	return slices.Clone(m.order)
}

// Bones returns the bones of root in index order.
func (m *Mapper) Bones(root nif.Ref) []nif.Ref {
	var out []nif.Ref
	for b := range m.bones[root] {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

// ArmatureOf returns the armature owning bone, or None.
func (m *Mapper) ArmatureOf(bone nif.Ref) nif.Ref {
	for _, root := range m.order {
		if m.bones[root][bone] {
			return root
		}
	}
	return nif.None
}

// ClosestBone returns the nearest bone ancestor of ref below skelRoot, or None.
func (m *Mapper) ClosestBone(ref, skelRoot nif.Ref) nif.Ref {
	for p := m.parents.Parent(ref); p != nif.None; p = m.parents.Parent(p) {
		if p == skelRoot {
			return nif.None
		}
		if m.IsBone(p) {
			return p
		}
	}
	return nif.None
}

// ChildBones returns the children of ref that are bones.
func (m *Mapper) ChildBones(ref nif.Ref) []nif.Ref {
	var out []nif.Ref
	for _, c := range m.doc.Children(ref) {
		if m.IsBone(c) {
			out = append(out, c)
		}
	}
	return out
}

// nonAccumSuffix is stripped from grouping node names.
const nonAccumSuffix = " nonaccum"

// Grouped returns the geometry children joined into one mesh when ref is a
// grouping node: every geometry child of a RootCollisionNode, or the geometry
// children whose names contain the node name. It returns nil otherwise.
func Grouped(doc *nif.Document, ref nif.Ref) []nif.Ref {
	node, ok := nif.Lookup[*nif.Node](doc, ref)
	if !ok {
		return nil
	}
	name := node.Name
	if node.Type != nif.NodeRootCollision {
		if name == "" {
			return nil
		}
		if strings.HasSuffix(strings.ToLower(name), nonAccumSuffix) {
			name = name[:len(name)-len(nonAccumSuffix)]
		}
	}
	var out []nif.Ref
	for _, c := range node.Children {
		shape, ok := nif.Lookup[*nif.TriShape](doc, c)
		if !ok {
			continue
		}
		if node.Type == nif.NodeRootCollision || strings.Contains(shape.Name, name) {
			out = append(out, c)
		}
	}
	return out
}
