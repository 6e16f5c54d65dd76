package config

import (
	"flag"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile     = flag.String("log-file", "", "Write logs to this file as well")
	flagStages      = flag.String("log-stage", "", "Per-stage log levels, e.g. import=debug,preview=warn")
	flagScale       = flag.Float64("scale", 0, "Scene units per document unit")
	flagSkeleton    = flag.String("skeleton", "", "Skeleton mode: full, skeleton or attach")
	flagRealign     = flag.String("realign", "", "Bone realignment: none, keep or auto")
	flagNoAnimation = flag.Bool("no-anim", false, "Skip keyframe animation on import")
	flagTexturePath = flag.String("texture-path", "", "Texture search directories, separated by the OS list separator")
	flagVersion     = flag.String("nif-version", "", "Document version written on export, e.g. 4.0.0.2")
	flagRootName    = flag.String("root-name", "", "Name of the exported root node")
	flagFPS         = flag.Int("fps", 0, "Frame rate used on export")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagStages != "" {
		stages, err := parseStages(*flagStages)
		if err != nil {
			return fmt.Errorf("-log-stage: %w", err)
		}
		if cfg.Logging.Stages == nil {
			cfg.Logging.Stages = make(map[string]string)
		}
		for name, lvl := range stages {
			cfg.Logging.Stages[name] = lvl
		}
	}
	if *flagScale > 0 {
		cfg.Import.ScaleCorrection = *flagScale
		cfg.Export.ScaleCorrection = *flagScale
	}
	if *flagSkeleton != "" {
		cfg.Import.SkeletonMode = *flagSkeleton
	}
	if *flagRealign != "" {
		cfg.Import.Realign = *flagRealign
	}
	if *flagNoAnimation {
		cfg.Import.Animation = false
	}
	if *flagTexturePath != "" {
		cfg.Import.TexturePath = filepath.SplitList(*flagTexturePath)
	}
	if *flagVersion != "" {
		cfg.Export.Version = *flagVersion
	}
	if *flagRootName != "" {
		cfg.Export.RootName = *flagRootName
	}
	if *flagFPS > 0 {
		cfg.Export.FPS = *flagFPS
	}
	return nil
}

// parseStages parses a comma separated list of stage=level pairs.
func parseStages(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		name, lvl, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed stage level %q", pair)
		}
		out[name] = lvl
	}
	return out, nil
}
