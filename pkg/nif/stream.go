package nif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Faultbox/nifkit/pkg/encoding"
	"github.com/Faultbox/nifkit/pkg/math"
)

// maxCount bounds any length prefix read from a stream.
const maxCount = 1 << 24

var errCount = errors.New("count exceeds limit")

// reader decodes little-endian values and keeps the first error.
type reader struct {
	r       *bytes.Reader
	version Version
	err     error
	buf     [8]byte
}

func (r *reader) fill(n int) []byte {
	if r.err != nil {
		return nil
	}
	if _, err := io.ReadFull(r.r, r.buf[:n]); err != nil {
		r.err = err
		return nil
	}
	return r.buf[:n]
}

func (r *reader) u8() uint8 {
	b := r.fill(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.fill(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.fill(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) f32() float32 {
	var f float32
	if r.err == nil {
		r.err = binary.Read(r.r, binary.LittleEndian, &f)
	}
	return f
}

func (r *reader) bool() bool {
	return r.u8() != 0
}

func (r *reader) ref() Ref {
	return Ref(int32(r.u32()))
}

// count reads a length prefix of elements that each take at least size
// bytes. Counts the remaining input cannot hold fail the reader before
// anything is allocated.
func (r *reader) count(size int) int {
	n := r.u32()
	if r.err != nil {
		return 0
	}
	if n > maxCount {
		r.fail(errCount)
		return 0
	}
	if !r.fits(int(n), size) {
		return 0
	}
	return int(n)
}

// fits reports whether n elements of at least size bytes remain.
func (r *reader) fits(n, size int) bool {
	if r.err != nil {
		return false
	}
	if size > 0 && n > r.r.Len()/size {
		r.fail(fmt.Errorf("%d elements of %d bytes overrun the %d bytes left", n, size, r.r.Len()))
		return false
	}
	return true
}

func (r *reader) str() string {
	n := r.count(1)
	if r.err != nil || n == 0 {
		return ""
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r.r, data); err != nil {
		r.err = err
		return ""
	}
	return encoding.DecodeString(data)
}

func (r *reader) bytes() []byte {
	n := r.count(1)
	if r.err != nil || n == 0 {
		return nil
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r.r, data); err != nil {
		r.err = err
		return nil
	}
	return data
}

func (r *reader) refList() []Ref {
	n := r.count(4)
	if n == 0 {
		return nil
	}
	out := make([]Ref, n)
	for i := range out {
		out[i] = r.ref()
	}
	return out
}

func (r *reader) vec2() math.Vec2 {
	return math.Vec2{X: r.f32(), Y: r.f32()}
}

func (r *reader) vec3() math.Vec3 {
	return math.Vec3{X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *reader) vec4() math.Vec4 {
	return math.Vec4{X: r.f32(), Y: r.f32(), Z: r.f32(), W: r.f32()}
}

func (r *reader) quat() math.Quat {
	// stored scalar first
	w := r.f32()
	return math.Quat{W: w, X: r.f32(), Y: r.f32(), Z: r.f32()}
}

func (r *reader) mat3() math.Mat3 {
	var m math.Mat3
	for i := range m {
		m[i] = r.f32()
	}
	return m
}

func (r *reader) mat4() math.Mat4 {
	var m math.Mat4
	for i := range m {
		m[i] = r.f32()
	}
	return m
}

func (r *reader) color3() math.Color3 {
	return math.Color3{R: r.f32(), G: r.f32(), B: r.f32()}
}

func (r *reader) color4() math.Color4 {
	return math.Color4{R: r.f32(), G: r.f32(), B: r.f32(), A: r.f32()}
}

// writer encodes little-endian values and keeps the first error.
type writer struct {
	w       io.Writer
	version Version
	err     error
	buf     [4]byte
}

func (w *writer) put(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *writer) u8(v uint8) {
	w.buf[0] = v
	w.put(w.buf[:1])
}

func (w *writer) u16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.put(w.buf[:2])
}

func (w *writer) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.put(w.buf[:4])
}

func (w *writer) f32(v float32) {
	if w.err == nil {
		w.err = binary.Write(w.w, binary.LittleEndian, v)
	}
}

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) ref(v Ref) {
	w.u32(uint32(int32(v)))
}

func (w *writer) count(n int) {
	w.u32(uint32(n))
}

func (w *writer) str(s string) {
	data := encoding.EncodeString(s)
	w.count(len(data))
	w.put(data)
}

func (w *writer) bytes(b []byte) {
	w.count(len(b))
	w.put(b)
}

func (w *writer) refList(refs []Ref) {
	w.count(len(refs))
	for _, r := range refs {
		w.ref(r)
	}
}

func (w *writer) vec2(v math.Vec2) {
	w.f32(v.X)
	w.f32(v.Y)
}

func (w *writer) vec3(v math.Vec3) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
}

func (w *writer) vec4(v math.Vec4) {
	w.f32(v.X)
	w.f32(v.Y)
	w.f32(v.Z)
	w.f32(v.W)
}

func (w *writer) quat(q math.Quat) {
	w.f32(q.W)
	w.f32(q.X)
	w.f32(q.Y)
	w.f32(q.Z)
}

func (w *writer) mat3(m math.Mat3) {
	for _, v := range m {
		w.f32(v)
	}
}

func (w *writer) mat4(m math.Mat4) {
	for _, v := range m {
		w.f32(v)
	}
}

func (w *writer) color3(c math.Color3) {
	w.f32(c.R)
	w.f32(c.G)
	w.f32(c.B)
}

func (w *writer) color4(c math.Color4) {
	w.f32(c.R)
	w.f32(c.G)
	w.f32(c.B)
	w.f32(c.A)
}

// decodeNet and encodeNet handle the version-dependent extra data layout.
func (o *ObjectNET) decodeNet(r *reader) {
	o.Name = r.str()
	if r.version.LegacyExtraData() {
		o.ExtraData = r.ref()
	} else {
		o.ExtraData = None
		o.ExtraDataList = r.refList()
	}
	o.Controller = r.ref()
}

func (o *ObjectNET) encodeNet(w *writer) {
	w.str(o.Name)
	if w.version.LegacyExtraData() {
		w.ref(o.ExtraData)
	} else {
		w.refList(o.ExtraDataList)
	}
	w.ref(o.Controller)
}

func (o *ObjectNET) netRefs() []*Ref {
	out := []*Ref{&o.ExtraData, &o.Controller}
	for i := range o.ExtraDataList {
		out = append(out, &o.ExtraDataList[i])
	}
	return out
}

func (a *AVObject) decodeAV(r *reader) {
	a.decodeNet(r)
	a.Flags = r.u16()
	a.Translation = r.vec3()
	a.Rotation = r.mat3()
	a.Scale = r.f32()
	a.Velocity = r.vec3()
	a.Properties = r.refList()
	a.Collision = r.ref()
}

func (a *AVObject) encodeAV(w *writer) {
	a.encodeNet(w)
	w.u16(a.Flags)
	w.vec3(a.Translation)
	w.mat3(a.Rotation)
	w.f32(a.Scale)
	w.vec3(a.Velocity)
	w.refList(a.Properties)
	w.ref(a.Collision)
}

func (a *AVObject) avRefs() []*Ref {
	out := append(a.netRefs(), &a.Collision)
	for i := range a.Properties {
		out = append(out, &a.Properties[i])
	}
	return out
}

func (c *ControllerBase) decodeCtrl(r *reader) {
	c.Next = r.ref()
	c.Flags = r.u16()
	c.Frequency = r.f32()
	c.Phase = r.f32()
	c.StartTime = r.f32()
	c.StopTime = r.f32()
	c.Target = r.ref()
}

func (c *ControllerBase) encodeCtrl(w *writer) {
	w.ref(c.Next)
	w.u16(c.Flags)
	w.f32(c.Frequency)
	w.f32(c.Phase)
	w.f32(c.StartTime)
	w.f32(c.StopTime)
	w.ref(c.Target)
}

func (e *ExtraBase) decodeExtra(r *reader) {
	e.Name = r.str()
	e.Next = r.ref()
}

func (e *ExtraBase) encodeExtra(w *writer) {
	w.str(e.Name)
	w.ref(e.Next)
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
