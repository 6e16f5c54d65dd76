package nif

import (
	"slices"

	"github.com/Faultbox/nifkit/pkg/fault"
)

func conflict(slot string, target, existing Ref) error {
	return &fault.LinkConflictError{Slot: slot, Target: int32(target), Existing: int32(existing)}
}

// LinkChild appends child to the children of parent.
func (d *Document) LinkChild(parent, child Ref) error {
	node, err := Get[*Node](d, parent)
	if err != nil {
		return err
	}
	if _, err := Get[AVBlock](d, child); err != nil {
		return err
	}
	if slices.Contains(node.Children, child) {
		return conflict("children", parent, child)
	}
	node.Children = append(node.Children, child)
	return nil
}

// LinkProperty attaches prop to obj. An object holds one property per kind.
func (d *Document) LinkProperty(obj, prop Ref) error {
	av, err := Get[AVBlock](d, obj)
	if err != nil {
		return err
	}
	p, err := d.Resolve(prop)
	if err != nil {
		return err
	}
	if !isProperty(p.Kind()) {
		return fault.Formatf("block %d (%s) is not a property", prop, p.TypeName())
	}
	if existing := d.PropertyOfKind(obj, p.Kind()); existing != None {
		return conflict("property "+p.TypeName(), obj, existing)
	}
	av.AV().Properties = append(av.AV().Properties, prop)
	return nil
}

func isProperty(k Kind) bool {
	switch k {
	case KindMaterial, KindTexturing, KindAlpha, KindSpecular:
		return true
	}
	return false
}

// LinkController sets ctrl as the head of the controller chain of target
// and points ctrl back at target.
func (d *Document) LinkController(target, ctrl Ref) error {
	obj, err := Get[NetObject](d, target)
	if err != nil {
		return err
	}
	c, err := Get[ControllerBlock](d, ctrl)
	if err != nil {
		return err
	}
	if obj.Net().Controller != None {
		return conflict("controller", target, obj.Net().Controller)
	}
	if c.Ctrl().Target != None && c.Ctrl().Target != target {
		return conflict("controller target", ctrl, c.Ctrl().Target)
	}
	obj.Net().Controller = ctrl
	c.Ctrl().Target = target
	return nil
}

// ChainController sets next as the successor of prev.
func (d *Document) ChainController(prev, next Ref) error {
	p, err := Get[ControllerBlock](d, prev)
	if err != nil {
		return err
	}
	n, err := Get[ControllerBlock](d, next)
	if err != nil {
		return err
	}
	if p.Ctrl().Next != None {
		return conflict("next controller", prev, p.Ctrl().Next)
	}
	p.Ctrl().Next = next
	if n.Ctrl().Target == None {
		n.Ctrl().Target = p.Ctrl().Target
	}
	return nil
}

// LinkExtraData attaches extra to obj. Legacy documents append it to the
// chain tail, modern ones to the list.
func (d *Document) LinkExtraData(obj, extra Ref) error {
	o, err := Get[NetObject](d, obj)
	if err != nil {
		return err
	}
	e, err := Get[ExtraBlock](d, extra)
	if err != nil {
		return err
	}
	for ref := range d.ExtraDataChain(obj) {
		if ref == extra {
			return conflict("extra data", obj, extra)
		}
	}
	if !d.Version.LegacyExtraData() {
		o.Net().ExtraDataList = append(o.Net().ExtraDataList, extra)
		return nil
	}
	if e.Extra().Next != None {
		return conflict("next extra data", extra, e.Extra().Next)
	}
	if o.Net().ExtraData == None {
		o.Net().ExtraData = extra
		return nil
	}
	tail := o.Net().ExtraData
	for {
		t, err := Get[ExtraBlock](d, tail)
		if err != nil {
			return err
		}
		if t.Extra().Next == None {
			t.Extra().Next = extra
			return nil
		}
		tail = t.Extra().Next
	}
}

// LinkData fills the data slot of owner.
func (d *Document) LinkData(owner, data Ref) error {
	o, err := Get[DataOwner](d, owner)
	if err != nil {
		return err
	}
	if _, err := d.Resolve(data); err != nil {
		return err
	}
	slot := o.DataRef()
	if *slot != None {
		return conflict("data", owner, *slot)
	}
	*slot = data
	return nil
}

// LinkCollision attaches a collision object to obj.
func (d *Document) LinkCollision(obj, col Ref) error {
	av, err := Get[AVBlock](d, obj)
	if err != nil {
		return err
	}
	c, err := Get[*CollisionObject](d, col)
	if err != nil {
		return err
	}
	if av.AV().Collision != None {
		return conflict("collision", obj, av.AV().Collision)
	}
	av.AV().Collision = col
	c.Target = obj
	return nil
}

// LinkSkin binds a skin instance to shape.
func (d *Document) LinkSkin(shape, skin Ref) error {
	s, err := Get[*TriShape](d, shape)
	if err != nil {
		return err
	}
	if _, err := Get[*SkinInstance](d, skin); err != nil {
		return err
	}
	if s.Skin != None {
		return conflict("skin", shape, s.Skin)
	}
	s.Skin = skin
	return nil
}

// AddRoot registers ref as a document root.
func (d *Document) AddRoot(ref Ref) error {
	if _, err := d.Resolve(ref); err != nil {
		return err
	}
	if slices.Contains(d.Roots, ref) {
		return conflict("roots", None, ref)
	}
	d.Roots = append(d.Roots, ref)
	return nil
}
