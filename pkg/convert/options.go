// Package convert translates between block documents and editor scenes.
//
// DocumentToScene and SceneToDocument each run one translation session that
// owns every cache of the run: the name table, material and texture reuse,
// bind-pose overrides and collected warnings. Nothing outlives the call.
package convert

import (
	"go.uber.org/zap"

	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/skeleton"
)

// Options configure one translation.
type Options struct {
	// ScaleCorrection is the number of scene units per document unit.
	ScaleCorrection float64
	ImportAnimation bool
	SkeletonMode    skeleton.Mode
	Realign         skeleton.Realign
	// SendBonesToBindPose moves skinned bones into their bind positions
	// before the rest pose is read.
	SendBonesToBindPose bool
	// ApplySkinDeformToRest imports skinned vertices as deformed by the
	// current bone pose.
	ApplySkinDeformToRest bool
	// TexturePath lists directories searched for texture files.
	TexturePath []string
	// DocumentDir is searched before TexturePath.
	DocumentDir string
	Attach      *skeleton.Attachment

	// Export settings.
	RootName    string
	Version     nif.Version
	UserVersion uint32
	// FPS overrides the scene frame rate on export; 0 uses the scene's.
	FPS int

	Logger *zap.Logger
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ScaleCorrection:     1,
		ImportAnimation:     true,
		SkeletonMode:        skeleton.FullScene,
		Realign:             skeleton.RealignAuto,
		SendBonesToBindPose: true,
		RootName:            "Scene Root",
		Version:             nif.V4_0_0_2,
	}
}

func (o Options) scale() float64 {
	if o.ScaleCorrection <= 0 {
		return 1
	}
	return o.ScaleCorrection
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}
