package anim

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/nifkit/pkg/math"
	"github.com/Faultbox/nifkit/pkg/transform"
)

// frameCache answers "value at frame" for a sparse key list: the key at that
// frame, else the nearest earlier key, else the fallback. Answers are
// memoised by frame.
type frameCache[V any] struct {
	frames   []int
	values   []V
	fallback V
	memo     map[int]V
}

func newFrameCache[K any, V any](keys []K, split func(K) (int, V), fallback V) *frameCache[V] {
	c := &frameCache[V]{fallback: fallback, memo: make(map[int]V)}
	for _, k := range keys {
		f, v := split(k)
		c.frames = append(c.frames, f)
		c.values = append(c.values, v)
	}
	sort.Stable(byFrame[V]{c})
	return c
}

type byFrame[V any] struct{ c *frameCache[V] }

func (b byFrame[V]) Len() int           { return len(b.c.frames) }
func (b byFrame[V]) Less(i, j int) bool { return b.c.frames[i] < b.c.frames[j] }
func (b byFrame[V]) Swap(i, j int) {
	b.c.frames[i], b.c.frames[j] = b.c.frames[j], b.c.frames[i]
	b.c.values[i], b.c.values[j] = b.c.values[j], b.c.values[i]
}

func (c *frameCache[V]) at(frame int) V {
	if v, ok := c.memo[frame]; ok {
		return v
	}
	// last key with frames[i] <= frame
	i := sort.Search(len(c.frames), func(i int) bool { return c.frames[i] > frame }) - 1
	v := c.fallback
	if i >= 0 {
		v = c.values[i]
	}
	c.memo[frame] = v
	return v
}

// Sampler evaluates a channel at arbitrary frames as absolute node transforms.
// It holds per-frame caches and belongs to one translation run.
type Sampler struct {
	r     Retargeter
	euler bool
	rot   *frameCache[mgl64.Quat]
	axes  [3]*frameCache[float64]
	trans *frameCache[mgl64.Vec3]
	scale *frameCache[float64]
}

// Sampler returns a sampler for ch.
func (r Retargeter) Sampler(ch Channel) *Sampler {
	s := &Sampler{r: r, euler: ch.IsEuler()}
	s.rot = newFrameCache(ch.Rotations, func(k QuatFrame) (int, mgl64.Quat) { return k.Frame, k.Value }, mgl64.QuatIdent())
	for axis, keys := range ch.Euler {
		s.axes[axis] = newFrameCache(keys, func(k ScalarFrame) (int, float64) { return k.Frame, k.Value }, 0)
	}
	s.trans = newFrameCache(ch.Translations, func(k VecFrame) (int, mgl64.Vec3) { return k.Frame, k.Value }, mgl64.Vec3{})
	s.scale = newFrameCache(ch.Scales, func(k ScalarFrame) (int, float64) { return k.Frame, k.Value }, 1)
	return s
}

// At returns the absolute local transform of the node at frame.
func (s *Sampler) At(frame int) transform.Transform {
	q := s.rot.at(frame)
	if s.euler {
		q = math.EulerToQuat(s.axes[0].at(frame), s.axes[1].at(frame), s.axes[2].at(frame))
	}
	return transform.Transform{
		Translation: s.r.AbsTranslation(s.trans.at(frame)),
		Rotation:    s.r.AbsRotation(q).Mat4().Mat3(),
		Scale:       s.r.AbsScale(s.scale.at(frame)),
	}
}
