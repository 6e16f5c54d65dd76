// Package encoding converts block strings between the document's single-byte
// code page (Windows-1252) and UTF-8.
package encoding

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DecodeString converts Windows-1252 bytes to a UTF-8 string.
// Returns the bytes as-is if conversion fails.
func DecodeString(data []byte) string {
	decoder := charmap.Windows1252.NewDecoder()
	result, _, err := transform.Bytes(decoder, TrimNullBytes(data))
	if err != nil {
		return string(data)
	}
	return string(result)
}

// EncodeString converts a UTF-8 string to Windows-1252 bytes.
// Runes outside the code page are replaced with '?'.
func EncodeString(s string) []byte {
	encoder := charmap.Windows1252.NewEncoder()
	result, _, err := transform.Bytes(encoder, []byte(s))
	if err == nil {
		return result
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
		} else {
			out = append(out, '?')
		}
	}
	return out
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}
