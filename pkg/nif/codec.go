package nif

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/nifkit/pkg/fault"
)

// maxHeaderLen bounds the text header line.
const maxHeaderLen = 128

// factories maps stream type names to empty blocks.
var factories = map[string]func() Block{
	"NiNode":                    func() Block { return &Node{Type: NodePlain} },
	"NiBSAnimationNode":         func() Block { return &Node{Type: NodeAnimation} },
	"RootCollisionNode":         func() Block { return &Node{Type: NodeRootCollision} },
	"NiBillboardNode":           func() Block { return &Node{Type: NodeBillboard} },
	"NiTriShape":                func() Block { return &TriShape{} },
	"NiTriShapeData":            func() Block { return &TriShapeData{} },
	"NiMaterialProperty":        func() Block { return &MaterialProperty{} },
	"NiTexturingProperty":       func() Block { return &TexturingProperty{} },
	"NiAlphaProperty":           func() Block { return &AlphaProperty{} },
	"NiSpecularProperty":        func() Block { return &SpecularProperty{} },
	"NiSourceTexture":           func() Block { return &SourceTexture{} },
	"NiKeyframeController":      func() Block { return &KeyframeController{} },
	"NiGeomMorpherController":   func() Block { return &GeomMorpherController{} },
	"NiKeyframeData":            func() Block { return &KeyframeData{} },
	"NiMorphData":               func() Block { return &MorphData{} },
	"NiTextKeyExtraData":        func() Block { return &TextKeyExtraData{} },
	"NiStringExtraData":         func() Block { return &StringExtraData{} },
	"NiSkinInstance":            func() Block { return &SkinInstance{} },
	"NiSkinData":                func() Block { return &SkinData{} },
	"bhkCollisionObject":        func() Block { return &CollisionObject{} },
	"bhkRigidBody":              func() Block { return &RigidBody{} },
	"bhkRigidBodyT":             func() Block { return &RigidBody{HasTransform: true} },
	"bhkBoxShape":               func() Block { return &BoxShape{} },
	"bhkSphereShape":            func() Block { return &SphereShape{} },
	"bhkCapsuleShape":           func() Block { return &CapsuleShape{} },
	"bhkConvexVerticesShape":    func() Block { return &ConvexVerticesShape{} },
	"bhkPackedNiTriStripsShape": func() Block { return &PackedTriStripsShape{} },
	"hkPackedNiTriStripsData":   func() Block { return &PackedTriStripsData{} },
	"bhkConvexTransformShape":   func() Block { return &TransformShape{} },
	"bhkListShape":              func() Block { return &ListShape{} },
	"bhkMoppBvTreeShape":        func() Block { return &MoppBvTreeShape{} },
	"bhkMultiSphereShape":       func() Block { return &MultiSphereShape{} },
	"NiSequenceStreamHelper":    func() Block { return &SequenceStreamHelper{} },
	"NiCamera":                  func() Block { return &Camera{} },
}

// Read decodes a document. Malformed input fails with an error wrapping
// fault.ErrFormat; unsupported versions fail with *fault.UnsupportedVersionError.
func Read(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return Unmarshal(data)
}

// Unmarshal decodes a document from a byte slice. Length prefixes are
// checked against the bytes left, so no allocation exceeds the input size.
func Unmarshal(data []byte) (*Document, error) {
	br := bytes.NewReader(data)

	line, err := readHeaderLine(br)
	if err != nil {
		return nil, err
	}

	rd := &reader{r: br}
	version := Version(rd.u32())
	userVersion := rd.u32()
	numBlocks := rd.count(4)
	if rd.err != nil {
		return nil, fault.Formatf("reading header: %v", rd.err)
	}
	if err := CheckVersion(version, userVersion); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(line, version.String()) {
		return nil, fault.Formatf("header line %q does not match version %s", line, version)
	}
	rd.version = version

	doc := New(version, userVersion)
	doc.blocks = make([]Block, 0, min(numBlocks, 4096))
	for i := 0; i < numBlocks; i++ {
		name := rd.str()
		if rd.err != nil {
			return nil, fault.Formatf("block %d: reading type: %v", i, rd.err)
		}
		factory, ok := factories[name]
		if !ok {
			return nil, fault.Formatf("block %d: unknown block type %q", i, name)
		}
		b := factory()
		b.decode(rd)
		if rd.err != nil {
			return nil, fault.Formatf("block %d (%s): %v", i, name, truncated(rd.err))
		}
		doc.blocks = append(doc.blocks, b)
	}

	doc.Roots = rd.refList()
	if rd.err != nil {
		return nil, fault.Formatf("reading roots: %v", truncated(rd.err))
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.New("truncated data")
	}
	return err
}

func readHeaderLine(br io.ByteReader) (string, error) {
	var buf []byte
	for len(buf) < maxHeaderLen {
		c, err := br.ReadByte()
		if err != nil {
			return "", fault.Formatf("reading header line: %v", truncated(err))
		}
		if c == '\n' {
			line := string(buf)
			if !strings.HasPrefix(line, "NetImmerse File Format, Version ") &&
				!strings.HasPrefix(line, "Gamebryo File Format, Version ") {
				return "", fault.Formatf("invalid header line %q", line)
			}
			return line, nil
		}
		buf = append(buf, c)
	}
	return "", fault.Formatf("header line exceeds %d bytes", maxHeaderLen)
}

// Write encodes doc. Documents with dangling references are rejected before
// anything is written.
func Write(w io.Writer, doc *Document) error {
	if err := CheckVersion(doc.Version, doc.UserVersion); err != nil {
		return err
	}
	if err := doc.validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	wr := &writer{w: bw, version: doc.Version}
	wr.put([]byte(doc.Version.header() + "\n"))
	wr.u32(uint32(doc.Version))
	wr.u32(doc.UserVersion)
	wr.count(len(doc.blocks))
	for _, b := range doc.blocks {
		wr.str(b.TypeName())
		b.encode(wr)
	}
	wr.refList(doc.Roots)
	if wr.err != nil {
		return fmt.Errorf("writing document: %w", wr.err)
	}
	return bw.Flush()
}

// Marshal encodes doc into a byte slice.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadFile decodes the document stored at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	doc, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// WriteFile encodes doc to path. The file is replaced only once the whole
// document has been encoded.
func WriteFile(path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Verify re-encodes and re-decodes doc and checks that the block list survives.
func Verify(doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	back, err := Unmarshal(data)
	if err != nil {
		return fmt.Errorf("re-reading written document: %w", err)
	}
	if back.Len() != doc.Len() || len(back.Roots) != len(doc.Roots) {
		return fault.Formatf("re-read %d blocks and %d roots, wrote %d and %d",
			back.Len(), len(back.Roots), doc.Len(), len(doc.Roots))
	}
	for ref, b := range doc.Blocks() {
		if back.blocks[ref].TypeName() != b.TypeName() {
			return fault.Formatf("block %d re-read as %s, wrote %s", ref, back.blocks[ref].TypeName(), b.TypeName())
		}
	}
	return nil
}
