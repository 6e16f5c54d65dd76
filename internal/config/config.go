// Package config handles niftool configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/nifkit/internal/logger"
	"github.com/Faultbox/nifkit/pkg/convert"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/skeleton"
)

// Config holds all niftool settings.
type Config struct {
	Import  ImportConfig  `yaml:"import"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
	Preview PreviewConfig `yaml:"preview"`
}

// ImportConfig holds document to scene settings.
type ImportConfig struct {
	ScaleCorrection     float64  `yaml:"scale_correction"`
	Animation           bool     `yaml:"animation"`
	SkeletonMode        string   `yaml:"skeleton_mode"` // full, skeleton or attach
	Realign             string   `yaml:"realign"`       // none, keep or auto
	SendBonesToBindPose bool     `yaml:"send_bones_to_bind_pose"`
	ApplySkinDeform     bool     `yaml:"apply_skin_deform"`
	TexturePath         []string `yaml:"texture_path"`
	AttachArmature      string   `yaml:"attach_armature"`
	AttachBones         []string `yaml:"attach_bones"`
}

// ExportConfig holds scene to document settings.
type ExportConfig struct {
	ScaleCorrection float64 `yaml:"scale_correction"`
	Version         string  `yaml:"version"`
	UserVersion     uint32  `yaml:"user_version"`
	RootName        string  `yaml:"root_name"`
	FPS             int     `yaml:"fps"` // 0 keeps the scene rate
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	// Stages overrides Level for one translation stage: import, reimport,
	// export or preview.
	Stages map[string]string `yaml:"stages"`
}

// PreviewConfig holds glTF preview settings.
type PreviewConfig struct {
	Collision bool `yaml:"collision"` // include collision shapes
	Skeleton  bool `yaml:"skeleton"`  // include bones as nodes
}

// Default returns a Config with sensible default values.
func Default() *Config {
	opts := convert.DefaultOptions()
	return &Config{
		Import: ImportConfig{
			ScaleCorrection:     opts.ScaleCorrection,
			Animation:           opts.ImportAnimation,
			SkeletonMode:        opts.SkeletonMode.String(),
			Realign:             opts.Realign.String(),
			SendBonesToBindPose: opts.SendBonesToBindPose,
		},
		Export: ExportConfig{
			ScaleCorrection: opts.ScaleCorrection,
			Version:         opts.Version.String(),
			RootName:        opts.RootName,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Preview: PreviewConfig{
			Skeleton: true,
		},
	}
}

// ImportOptions converts the import section into translation options.
func (c *Config) ImportOptions(log *zap.Logger) (convert.Options, error) {
	opts := convert.DefaultOptions()
	opts.Logger = log
	opts.ScaleCorrection = c.Import.ScaleCorrection
	opts.ImportAnimation = c.Import.Animation
	opts.SendBonesToBindPose = c.Import.SendBonesToBindPose
	opts.ApplySkinDeformToRest = c.Import.ApplySkinDeform
	opts.TexturePath = c.Import.TexturePath

	mode, err := skeleton.ParseMode(c.Import.SkeletonMode)
	if err != nil {
		return opts, fmt.Errorf("import.skeleton_mode: %w", err)
	}
	opts.SkeletonMode = mode
	if opts.Realign, err = skeleton.ParseRealign(c.Import.Realign); err != nil {
		return opts, fmt.Errorf("import.realign: %w", err)
	}
	if mode == skeleton.AttachToSelected {
		if c.Import.AttachArmature == "" {
			return opts, fmt.Errorf("import.attach_armature is required with skeleton mode %q", mode)
		}
		opts.Attach = &skeleton.Attachment{Armature: c.Import.AttachArmature, Bones: c.Import.AttachBones}
	}
	return opts, nil
}

// ExportOptions converts the export section into translation options.
func (c *Config) ExportOptions(log *zap.Logger) (convert.Options, error) {
	opts := convert.DefaultOptions()
	opts.Logger = log
	opts.ScaleCorrection = c.Export.ScaleCorrection
	opts.UserVersion = c.Export.UserVersion
	opts.FPS = c.Export.FPS
	if c.Export.RootName != "" {
		opts.RootName = c.Export.RootName
	}
	v, err := nif.ParseVersion(c.Export.Version)
	if err != nil {
		return opts, fmt.Errorf("export.version: %w", err)
	}
	if err := nif.CheckVersion(v, opts.UserVersion); err != nil {
		return opts, fmt.Errorf("export.version: %w", err)
	}
	opts.Version = v
	return opts, nil
}

// LoggerOptions converts the logging section into logger settings. Console
// output is always on.
func (c *Config) LoggerOptions() logger.Options {
	opts := logger.Options{
		Level:      c.Logging.Level,
		Components: c.Logging.Stages,
		Console:    true,
	}
	if c.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(c.Logging.LogFile)
	}
	return opts
}
