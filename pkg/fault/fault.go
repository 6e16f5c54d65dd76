// Package fault defines the error taxonomy shared by the translation packages.
//
// Every error returned by nifkit unwraps to exactly one category sentinel so
// callers can branch with errors.Is without knowing the concrete type.
package fault

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	// ErrFormat marks a malformed or unsupported document. Not recoverable.
	ErrFormat = errors.New("format error")
	// ErrConstraint marks a source asset that violates a format constraint.
	ErrConstraint = errors.New("constraint violation")
	// ErrStructural marks armature/skin mismatches.
	ErrStructural = errors.New("structural inconsistency")
	// ErrUnsupported marks features that degrade to a warning.
	ErrUnsupported = errors.New("unsupported feature")
)

// Formatf returns a format error with a formatted message.
func Formatf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// Constraintf returns a constraint violation with a formatted message.
func Constraintf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstraint, fmt.Sprintf(format, args...))
}

// IndexError reports a block reference outside the document.
type IndexError struct {
	Ref int32
	Len int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("block index %d out of range [0, %d)", e.Ref, e.Len)
}

// Unwrap returns ErrFormat.
func (e *IndexError) Unwrap() error { return ErrFormat }

// LinkConflictError reports an attempt to overwrite an occupied link slot.
type LinkConflictError struct {
	Slot     string
	Target   int32
	Existing int32
}

func (e *LinkConflictError) Error() string {
	return fmt.Sprintf("%s of block %d already links block %d", e.Slot, e.Target, e.Existing)
}

// Unwrap returns ErrStructural.
func (e *LinkConflictError) Unwrap() error { return ErrStructural }

// UnsupportedVersionError reports a document version outside the supported ranges.
type UnsupportedVersionError struct {
	Version     uint32
	UserVersion uint32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported document version 0x%08X (user version %d)", e.Version, e.UserVersion)
}

// Unwrap returns ErrFormat.
func (e *UnsupportedVersionError) Unwrap() error { return ErrFormat }

// NonUniformScaleError reports a transform whose axis scales differ.
type NonUniformScaleError struct {
	Scale [3]float64
}

func (e *NonUniformScaleError) Error() string {
	return fmt.Sprintf("non-uniform scale (%.4f, %.4f, %.4f)", e.Scale[0], e.Scale[1], e.Scale[2])
}

// Unwrap returns ErrConstraint.
func (e *NonUniformScaleError) Unwrap() error { return ErrConstraint }

// InconsistentArmatureError reports a skin bound to an incompatible skeleton.
type InconsistentArmatureError struct {
	Geometry string
	Root     string
	Reason   string
}

func (e *InconsistentArmatureError) Error() string {
	return fmt.Sprintf("skin of %q does not fit armature %q: %s", e.Geometry, e.Root, e.Reason)
}

// Unwrap returns ErrStructural.
func (e *InconsistentArmatureError) Unwrap() error { return ErrStructural }

// ObjectError attaches the offending object (and material, if any) to an error.
type ObjectError struct {
	Object   string
	Material string
	Err      error
}

func (e *ObjectError) Error() string {
	if e.Material != "" {
		return fmt.Sprintf("object %q, material %q: %v", e.Object, e.Material, e.Err)
	}
	return fmt.Sprintf("object %q: %v", e.Object, e.Err)
}

func (e *ObjectError) Unwrap() error { return e.Err }

// InObject wraps err with object context. A nil err stays nil.
func InObject(object string, err error) error {
	if err == nil {
		return nil
	}
	var oe *ObjectError
	if errors.As(err, &oe) && oe.Object == object {
		return err
	}
	return &ObjectError{Object: object, Err: err}
}

// Warning is a degraded, non-fatal condition recorded during translation.
type Warning struct {
	Object string
	Msg    string
}

func (w Warning) String() string {
	if w.Object == "" {
		return w.Msg
	}
	return w.Object + ": " + w.Msg
}

// Error lets a warning travel as an ErrUnsupported error when needed.
func (w Warning) Error() string { return w.String() }

// Unwrap returns ErrUnsupported.
func (w Warning) Unwrap() error { return ErrUnsupported }
