package convert

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/nifkit/pkg/fault"
)

// Name limits of the editor.
const (
	maxObjectName = 22
	maxBoneName   = 32
)

// session is the state of one translation run.
type session struct {
	opts     Options
	log      *zap.Logger
	k        float64 // scene units per document unit
	warnings []fault.Warning

	texturePaths map[string]string
}

func newSession(opts Options) *session {
	return &session{
		opts:         opts,
		log:          opts.logger(),
		k:            opts.scale(),
		texturePaths: make(map[string]string),
	}
}

func (s *session) warn(object, format string, args ...any) {
	w := fault.Warning{Object: object, Msg: fmt.Sprintf(format, args...)}
	s.addWarning(w)
}

func (s *session) addWarning(w fault.Warning) {
	s.warnings = append(s.warnings, w)
	s.log.Warn(w.Msg, zap.String("object", w.Object))
}

// nameTable hands out unique editor names.
type nameTable map[string]bool

// unique shortens name to fit max characters and appends ".NN" while the
// result is taken.
func (t nameTable) unique(name string, max int) string {
	short := truncate(name, max-1)
	for i := 0; t[short]; i++ {
		short = fmt.Sprintf("%s.%02d", truncate(name, max-4), i)
	}
	t[short] = true
	return short
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
