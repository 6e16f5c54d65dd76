package nif

import (
	"fmt"

	"github.com/Faultbox/nifkit/pkg/math"
)

// Ref is the index of a block within one document.
type Ref int32

// None is the null reference.
const None Ref = -1

// Valid reports whether r is not None. It does not check the range.
func (r Ref) Valid() bool {
	return r >= 0
}

// Kind identifies a block variant.
type Kind int

const (
	KindNode Kind = iota
	KindTriShape
	KindTriShapeData
	KindMaterial
	KindTexturing
	KindAlpha
	KindSpecular
	KindSourceTexture
	KindKeyframeController
	KindGeomMorpherController
	KindKeyframeData
	KindMorphData
	KindTextKeyExtraData
	KindStringExtraData
	KindSkinInstance
	KindSkinData
	KindCollisionObject
	KindRigidBody
	KindBoxShape
	KindSphereShape
	KindCapsuleShape
	KindConvexVerticesShape
	KindPackedTriStripsShape
	KindPackedTriStripsData
	KindTransformShape
	KindListShape
	KindMoppBvTreeShape
	KindMultiSphereShape
	KindSequenceStreamHelper
	KindCamera
)

var kindNames = [...]string{
	KindNode:                  "NiNode",
	KindTriShape:              "NiTriShape",
	KindTriShapeData:          "NiTriShapeData",
	KindMaterial:              "NiMaterialProperty",
	KindTexturing:             "NiTexturingProperty",
	KindAlpha:                 "NiAlphaProperty",
	KindSpecular:              "NiSpecularProperty",
	KindSourceTexture:         "NiSourceTexture",
	KindKeyframeController:    "NiKeyframeController",
	KindGeomMorpherController: "NiGeomMorpherController",
	KindKeyframeData:          "NiKeyframeData",
	KindMorphData:             "NiMorphData",
	KindTextKeyExtraData:      "NiTextKeyExtraData",
	KindStringExtraData:       "NiStringExtraData",
	KindSkinInstance:          "NiSkinInstance",
	KindSkinData:              "NiSkinData",
	KindCollisionObject:       "bhkCollisionObject",
	KindRigidBody:             "bhkRigidBody",
	KindBoxShape:              "bhkBoxShape",
	KindSphereShape:           "bhkSphereShape",
	KindCapsuleShape:          "bhkCapsuleShape",
	KindConvexVerticesShape:   "bhkConvexVerticesShape",
	KindPackedTriStripsShape:  "bhkPackedNiTriStripsShape",
	KindPackedTriStripsData:   "hkPackedNiTriStripsData",
	KindTransformShape:        "bhkConvexTransformShape",
	KindListShape:             "bhkListShape",
	KindMoppBvTreeShape:       "bhkMoppBvTreeShape",
	KindMultiSphereShape:      "bhkMultiSphereShape",
	KindSequenceStreamHelper:  "NiSequenceStreamHelper",
	KindCamera:                "NiCamera",
}

// String returns the block type name of the kind.
func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Unknown(%d)", int(k))
}

// Block is one typed record of a document. The set of implementations is closed.
type Block interface {
	Kind() Kind
	// TypeName is the name written to the stream. Node flavours differ from Kind.
	TypeName() string
	decode(r *reader)
	encode(w *writer)
	refs() []*Ref
}

// ObjectNET is the part shared by named blocks that carry extra data and controllers.
type ObjectNET struct {
	Name          string // Block name
	ExtraData     Ref    // Head of the legacy extra data chain
	ExtraDataList []Ref  // Extra data list (modern documents)
	Controller    Ref    // Head of the controller chain
}

// Net returns the shared named-object part.
func (o *ObjectNET) Net() *ObjectNET { return o }

func newObjectNET(name string) ObjectNET {
	return ObjectNET{Name: name, ExtraData: None, Controller: None}
}

// AVObject is the part shared by blocks placed in the scene tree.
type AVObject struct {
	ObjectNET
	Flags       uint16
	Translation math.Vec3
	Rotation    math.Mat3
	Scale       float32
	Velocity    math.Vec3 // Reserved, always written back unchanged
	Properties  []Ref
	Collision   Ref // Collision object, if any
}

// AV returns the shared scene-tree part.
func (a *AVObject) AV() *AVObject { return a }

func newAVObject(name string) AVObject {
	return AVObject{
		ObjectNET: newObjectNET(name),
		Rotation:  math.Mat3Identity(),
		Scale:     1,
		Collision: None,
	}
}

// Hidden reports the hidden bit of Flags.
func (a *AVObject) Hidden() bool {
	return a.Flags&1 != 0
}

// NetObject is a block with a name, controllers and extra data.
type NetObject interface {
	Block
	Net() *ObjectNET
}

// AVBlock is a block placed in the scene tree.
type AVBlock interface {
	NetObject
	AV() *AVObject
}

// ControllerBase is the part shared by time controllers.
type ControllerBase struct {
	Next      Ref // Next controller of the chain
	Flags     uint16
	Frequency float32
	Phase     float32
	StartTime float32
	StopTime  float32
	Target    Ref
}

// Ctrl returns the shared controller part.
func (c *ControllerBase) Ctrl() *ControllerBase { return c }

// Controller flag bits.
const (
	CtrlActive   uint16 = 0x0008
	CtrlClamp    uint16 = 0x0004 // combined with active: constant extrapolation
	CtrlCycleMsk uint16 = 0x0006
)

// Cyclic reports whether the controller loops.
func (c *ControllerBase) Cyclic() bool {
	return c.Flags&CtrlCycleMsk == 0
}

func newControllerBase() ControllerBase {
	return ControllerBase{Next: None, Target: None, Frequency: 1, Flags: CtrlActive}
}

// ControllerBlock is a controller.
type ControllerBlock interface {
	Block
	Ctrl() *ControllerBase
}

// ExtraBase is the part shared by extra data blocks.
type ExtraBase struct {
	Name string
	Next Ref // Next extra data of the legacy chain
}

// Extra returns the shared extra data part.
func (e *ExtraBase) Extra() *ExtraBase { return e }

// ExtraBlock is an extra data block.
type ExtraBlock interface {
	Block
	Extra() *ExtraBase
}

// DataOwner is a block with a single data reference slot.
type DataOwner interface {
	Block
	DataRef() *Ref
}
