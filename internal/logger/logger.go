// Package logger sets up zap logging for niftool.
//
// Console entries go to stderr so command output on stdout stays clean. An
// optional rotating file receives JSON entries. Each translation stage logs
// through a named logger (import, export, preview, ...) whose level can be
// raised or lowered on its own.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Faultbox/nifkit/pkg/fault"
)

// Log is the root logger. It discards everything until Init runs.
var Log = zap.NewNop()

var (
	core       zapcore.Core // nil until Init
	rootLevel  = zapcore.InfoLevel
	components map[string]zapcore.Level
)

// FileConfig holds file logging configuration.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns the rotation used for translation logs.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  20,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Compress:   true,
	}
}

// Options configure Init.
type Options struct {
	Level string
	// Components overrides Level per named logger, e.g. "import": "debug".
	Components map[string]string
	File       FileConfig // empty Path disables the file
	Console    bool
}

// Init replaces Log according to opts.
func Init(opts Options) error {
	root, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}
	levels := make(map[string]zapcore.Level, len(opts.Components))
	floor := root
	for name, s := range opts.Components {
		lvl, err := ParseLevel(s)
		if err != nil {
			return fmt.Errorf("component %q: %w", name, err)
		}
		levels[name] = lvl
		floor = min(floor, lvl)
	}

	// Cores admit the most verbose level asked for; named loggers filter.
	var cores []zapcore.Core
	if opts.Console {
		enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			LevelKey:         "level",
			NameKey:          "stage",
			MessageKey:       "msg",
			EncodeLevel:      zapcore.CapitalColorLevelEncoder,
			EncodeName:       zapcore.FullNameEncoder,
			ConsoleSeparator: " ",
		})
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), floor))
	}
	if opts.File.Path != "" {
		w := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
			LocalTime:  true,
		}
		enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:      "time",
			LevelKey:     "level",
			NameKey:      "stage",
			MessageKey:   "msg",
			CallerKey:    "caller",
			EncodeTime:   zapcore.ISO8601TimeEncoder,
			EncodeLevel:  zapcore.LowercaseLevelEncoder,
			EncodeName:   zapcore.FullNameEncoder,
			EncodeCaller: zapcore.ShortCallerEncoder,
		})
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(w), floor))
	}

	rootLevel = root
	components = levels
	if len(cores) == 0 {
		core, Log = nil, zap.NewNop()
		return nil
	}
	core = zapcore.NewTee(cores...)
	Log = zap.New(core, zap.AddCaller(), zap.IncreaseLevel(root))
	return nil
}

// ParseLevel converts a level name. The empty string is info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// Named returns the logger of one translation stage at its configured level.
func Named(component string) *zap.Logger {
	if core == nil {
		return Log.Named(component)
	}
	lvl, ok := components[component]
	if !ok {
		lvl = rootLevel
	}
	// built from the shared core so a stage may be more verbose than Log
	return zap.New(core, zap.AddCaller(), zap.IncreaseLevel(lvl)).Named(component)
}

// ForDocument returns the stage logger tagged with the document being translated.
func ForDocument(component, path string) *zap.Logger {
	return Named(component).With(zap.String("document", path))
}

// Warnings logs the warnings of one translation, one entry each, followed by
// a summary. Nothing is logged for an empty list.
func Warnings(log *zap.Logger, warnings []fault.Warning) {
	for _, w := range warnings {
		log.Warn(w.Msg, zap.String("object", w.Object))
	}
	if len(warnings) > 0 {
		log.Info("translation finished with warnings", zap.Int("warnings", len(warnings)))
	}
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}

// Debug logs a debug message on the root logger.
func Debug(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

// Info logs an info message on the root logger.
func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}
