package convert

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// textureExtensions are tried when the stored file is missing.
var textureExtensions = []string{".dds", ".tga", ".bmp", ".png"}

// findTexture resolves a texture file name stored in a document against the
// document directory and the texture path. The stored name is returned when
// nothing matches.
func (s *session) findTexture(name string) string {
	if name == "" {
		return name
	}
	if p, ok := s.texturePaths[name]; ok {
		return p
	}
	clean := strings.ReplaceAll(name, `\`, "/")
	base := path.Base(clean)

	dirs := append([]string{s.opts.DocumentDir}, s.opts.TexturePath...)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		for _, rel := range []string{clean, base} {
			for _, cand := range withExtensions(rel) {
				p := filepath.Join(dir, filepath.FromSlash(cand))
				if info, err := os.Stat(p); err == nil && !info.IsDir() {
					s.texturePaths[name] = p
					return p
				}
			}
		}
	}
	s.log.Debug("texture not found", zap.String("file", name))
	s.texturePaths[name] = name
	return name
}

func withExtensions(rel string) []string {
	out := []string{rel}
	stem := strings.TrimSuffix(rel, path.Ext(rel))
	for _, ext := range textureExtensions {
		if c := stem + ext; c != rel {
			out = append(out, c)
		}
	}
	return out
}

// storedTexture is the file name written for a texture path: absolute paths
// keep only the base name.
func storedTexture(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Base(p)
	}
	return p
}
