package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategories(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"index", &IndexError{Ref: 4, Len: 2}, ErrFormat},
		{"version", &UnsupportedVersionError{Version: 0x03000000}, ErrFormat},
		{"link", &LinkConflictError{Slot: "controller", Target: 1, Existing: 2}, ErrStructural},
		{"scale", &NonUniformScaleError{Scale: [3]float64{1, 2, 1}}, ErrConstraint},
		{"armature", &InconsistentArmatureError{Geometry: "Tri", Root: "Bip01"}, ErrStructural},
		{"warning", Warning{Object: "box", Msg: "unknown shape"}, ErrUnsupported},
		{"formatf", Formatf("bad block %d", 3), ErrFormat},
		{"constraintf", Constraintf("missing uv"), ErrConstraint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.want)
			wrapped := fmt.Errorf("exporting: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.want)
		})
	}
}

func TestInObject(t *testing.T) {
	assert.NoError(t, InObject("a", nil))

	err := InObject("Cube", &NonUniformScaleError{Scale: [3]float64{1, 1, 2}})
	assert.ErrorIs(t, err, ErrConstraint)
	assert.Contains(t, err.Error(), `object "Cube"`)

	var scaleErr *NonUniformScaleError
	assert.True(t, errors.As(err, &scaleErr))

	// wrapping twice with the same object keeps one layer
	again := InObject("Cube", err)
	assert.Equal(t, err, again)
}

func TestObjectErrorMaterial(t *testing.T) {
	err := &ObjectError{Object: "Sword", Material: "Steel", Err: Constraintf("textured material has no UV layer")}
	assert.Equal(t, `object "Sword", material "Steel": constraint violation: textured material has no UV layer`, err.Error())
}
