package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/nifkit/internal/logger"
	"github.com/Faultbox/nifkit/pkg/skeleton"
)

const (
	// fileName is looked up in the working directory and the user config dir.
	fileName = "niftool.yaml"
	// envPath names a config file and wins over the standard locations.
	envPath = "NIFTOOL_CONFIG"
)

// Load builds the configuration from defaults, then a config file, then
// command-line flags, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFile(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	if err := applyFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configFile returns the file to load: the -config flag, then
// $NIFTOOL_CONFIG, then niftool.yaml in the working directory or the user
// config dir. Empty means defaults only.
func configFile() string {
	if p := ConfigPath(); p != "" {
		return p
	}
	if p := os.Getenv(envPath); p != "" {
		return p
	}
	for _, p := range []string{fileName, filepath.Join(ConfigDir(), fileName)} {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// ConfigDir returns the per-user nifkit config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "nifkit")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "nifkit")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nifkit")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "nifkit")
}

// loadFromFile merges a YAML file into cfg. Unknown keys are rejected so a
// misspelt option does not silently fall back to its default.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the values that translation and logging will parse, so a
// bad file fails before any document is read.
func (c *Config) Validate() error {
	var errs []error
	if c.Import.ScaleCorrection <= 0 {
		errs = append(errs, fmt.Errorf("import.scale_correction must be positive, got %g", c.Import.ScaleCorrection))
	}
	if c.Export.ScaleCorrection <= 0 {
		errs = append(errs, fmt.Errorf("export.scale_correction must be positive, got %g", c.Export.ScaleCorrection))
	}
	if c.Export.FPS < 0 {
		errs = append(errs, fmt.Errorf("export.fps must not be negative, got %d", c.Export.FPS))
	}
	if _, err := skeleton.ParseMode(c.Import.SkeletonMode); err != nil {
		errs = append(errs, fmt.Errorf("import.skeleton_mode: %w", err))
	}
	if _, err := skeleton.ParseRealign(c.Import.Realign); err != nil {
		errs = append(errs, fmt.Errorf("import.realign: %w", err))
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	for name, lvl := range c.Logging.Stages {
		if _, err := logger.ParseLevel(lvl); err != nil {
			errs = append(errs, fmt.Errorf("logging.stages.%s: %w", name, err))
		}
	}
	if _, err := c.ExportOptions(nil); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
