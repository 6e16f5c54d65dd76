package nif

import (
	"fmt"

	"github.com/Faultbox/nifkit/pkg/fault"
)

// Version is a packed document version, one byte per component (a.b.c.d).
type Version uint32

// Known versions.
const (
	V4_0_0_2  Version = 0x04000002 // legacy: extra data as a linked chain
	V10_0_1_0 Version = 0x0A000100 // first version with extra data lists
	V20_0_0_5 Version = 0x14000005
)

// MaxUserVersion is the highest user version accepted for modern documents.
const MaxUserVersion = 12

// String returns the version as "a.b.c.d".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// ParseVersion parses a dotted "a.b.c.d" version.
func ParseVersion(s string) (Version, error) {
	var a, b, c, d uint8
	if n, err := fmt.Sscanf(s, "%d.%d.%d.%d", &a, &b, &c, &d); err != nil || n != 4 {
		return 0, fault.Formatf("malformed version %q", s)
	}
	return Version(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)), nil
}

// AtLeast returns true if v >= other.
func (v Version) AtLeast(other Version) bool {
	return v >= other
}

// LegacyExtraData reports whether extra data is stored as a linked chain.
func (v Version) LegacyExtraData() bool {
	return v < V10_0_1_0
}

// CheckVersion validates a version / user version pair.
func CheckVersion(v Version, userVersion uint32) error {
	switch {
	case v == V4_0_0_2 && userVersion == 0:
		return nil
	case v >= V10_0_1_0 && v <= V20_0_0_5 && userVersion <= MaxUserVersion:
		return nil
	}
	return &fault.UnsupportedVersionError{Version: uint32(v), UserVersion: userVersion}
}

// header returns the text line that opens a document of this version.
func (v Version) header() string {
	if v.LegacyExtraData() {
		return "NetImmerse File Format, Version " + v.String()
	}
	return "Gamebryo File Format, Version " + v.String()
}
