package nif

import (
	"slices"

	"github.com/Faultbox/nifkit/pkg/fault"
)

// AnimationTrack is one keyframe stream of a companion document together
// with the name of the node it drives.
type AnimationTrack struct {
	Node       string
	Controller *KeyframeController
	Data       *KeyframeData
}

// ExtractAnimation derives the animation-only companion of doc: a
// SequenceStreamHelper root carrying the scene's text keys, one string extra
// data per animated node, and a copy of each keyframe controller and its data,
// chained on the helper in the same order as the strings.
func ExtractAnimation(doc *Document) (*Document, error) {
	root := doc.Root()
	if root == None {
		return nil, fault.Formatf("document has no root")
	}
	_, textKeys, ok := FindExtra[*TextKeyExtraData](doc, root)
	if !ok {
		return nil, fault.Formatf("document has no text keys, nothing to export")
	}

	kf := New(doc.Version, doc.UserVersion)
	helper := kf.Append(NewSequenceStreamHelper())
	if err := kf.AddRoot(helper); err != nil {
		return nil, err
	}

	tk := NewTextKeys(slices.Clone(textKeys.Keys))
	tk.Name = textKeys.Name
	if err := kf.LinkExtraData(helper, kf.Append(tk)); err != nil {
		return nil, err
	}

	prev := None
	var walkErr error
	doc.Walk(root, func(ref Ref, b Block) bool {
		if walkErr != nil {
			return false
		}
		for _, c := range doc.ControllerChain(ref) {
			src, ok := c.(*KeyframeController)
			if !ok {
				continue
			}
			data, ok := Lookup[*KeyframeData](doc, src.Data)
			if !ok {
				continue
			}
			if walkErr = kf.LinkExtraData(helper, kf.Append(NewStringExtra(doc.Name(ref)))); walkErr != nil {
				return false
			}
			ctrl := NewKeyframeController()
			ctrl.Flags = src.Flags
			ctrl.Frequency = src.Frequency
			ctrl.Phase = src.Phase
			ctrl.StartTime = src.StartTime
			ctrl.StopTime = src.StopTime
			ctrlRef := kf.Append(ctrl)
			if walkErr = kf.LinkData(ctrlRef, kf.Append(data.Clone())); walkErr != nil {
				return false
			}
			if prev == None {
				walkErr = kf.LinkController(helper, ctrlRef)
			} else {
				walkErr = kf.ChainController(prev, ctrlRef)
			}
			if walkErr != nil {
				return false
			}
			prev = ctrlRef
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return kf, nil
}

// ReadAnimation lists the tracks and text keys of a companion document.
func ReadAnimation(kf *Document) ([]AnimationTrack, []TextKey, error) {
	if _, err := Get[*SequenceStreamHelper](kf, kf.Root()); err != nil {
		return nil, nil, fault.Formatf("not an animation document: %v", err)
	}

	var names []string
	var keys []TextKey
	for _, e := range kf.ExtraDataChain(kf.Root()) {
		switch v := e.(type) {
		case *TextKeyExtraData:
			keys = append(keys, v.Keys...)
		case *StringExtraData:
			names = append(names, v.Value)
		}
	}

	var tracks []AnimationTrack
	i := 0
	for _, c := range kf.ControllerChain(kf.Root()) {
		ctrl, ok := c.(*KeyframeController)
		if !ok {
			continue
		}
		if i >= len(names) {
			return nil, nil, fault.Formatf("controller %d has no node name", i)
		}
		data, _ := Lookup[*KeyframeData](kf, ctrl.Data)
		tracks = append(tracks, AnimationTrack{Node: names[i], Controller: ctrl, Data: data})
		i++
	}
	return tracks, keys, nil
}

// Clone returns a deep copy of the keyframe data.
func (d *KeyframeData) Clone() *KeyframeData {
	out := &KeyframeData{
		RotationType: d.RotationType,
		QuatKeys:     slices.Clone(d.QuatKeys),
		Translations: VecKeys{Interpolation: d.Translations.Interpolation, Keys: slices.Clone(d.Translations.Keys)},
		Scales:       FloatKeys{Interpolation: d.Scales.Interpolation, Keys: slices.Clone(d.Scales.Keys)},
	}
	for i, g := range d.XYZ {
		out.XYZ[i] = FloatKeys{Interpolation: g.Interpolation, Keys: slices.Clone(g.Keys)}
	}
	return out
}
