package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/nifkit/internal/config"
	"github.com/Faultbox/nifkit/internal/logger"
	"github.com/Faultbox/nifkit/internal/preview"
	"github.com/Faultbox/nifkit/pkg/convert"
	"github.com/Faultbox/nifkit/pkg/nif"
	"github.com/Faultbox/nifkit/pkg/scene"
)

var errUsage = errors.New("wrong arguments")

func usage(line string) error {
	fmt.Fprintln(os.Stderr, "Usage: niftool "+line)
	return errUsage
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return usage("info <file.nif>")
	}
	doc, err := nif.ReadFile(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:    %s\n", args[0])
	fmt.Printf("Version: %s (user %d)\n", doc.Version, doc.UserVersion)
	fmt.Printf("Blocks:  %d\n", doc.Len())
	for _, r := range doc.Roots {
		b, _ := doc.Resolve(r)
		fmt.Printf("Root:    [%d] %s %q\n", r, b.TypeName(), doc.Name(r))
	}
	fmt.Println()
	fmt.Println("Blocks by type:")

	type typeStat struct {
		name  string
		count int
	}
	var stats []typeStat
	for name, count := range doc.CountByType() {
		stats = append(stats, typeStat{name, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].name < stats[j].name
	})
	for _, s := range stats {
		fmt.Printf("  %-28s %d\n", s.name, s.count)
	}
	return nil
}

func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	depth := fs.Int("depth", 0, "Limit tree depth (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return usage("dump [-depth N] <file.nif>")
	}
	doc, err := nif.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	for _, r := range doc.Roots {
		dumpBlock(doc, r, 0, *depth)
	}
	return nil
}

func dumpBlock(doc *nif.Document, ref nif.Ref, level, maxDepth int) {
	indent := strings.Repeat("  ", level)
	b, err := doc.Resolve(ref)
	if err != nil {
		fmt.Printf("%s[%d] <%v>\n", indent, ref, err)
		return
	}
	fmt.Printf("%s[%d] %s %q\n", indent, ref, b.TypeName(), doc.Name(ref))

	if av, ok := b.(nif.AVBlock); ok {
		a := av.AV()
		fmt.Printf("%s    translation %v scale %g flags 0x%04X\n", indent, a.Translation, a.Scale, a.Flags)
		for _, p := range a.Properties {
			fmt.Printf("%s    property [%d] %s\n", indent, p, typeName(doc, p))
		}
		if a.Collision != nif.None {
			fmt.Printf("%s    collision [%d] %s\n", indent, a.Collision, typeName(doc, a.Collision))
		}
	}
	for cref, c := range doc.ControllerChain(ref) {
		fmt.Printf("%s    controller [%d] %s\n", indent, cref, c.TypeName())
	}
	for eref, e := range doc.ExtraDataChain(ref) {
		fmt.Printf("%s    extra [%d] %s\n", indent, eref, e.TypeName())
	}
	if s, ok := b.(*nif.TriShape); ok {
		if data, ok := nif.Lookup[*nif.TriShapeData](doc, s.Data); ok {
			fmt.Printf("%s    data [%d] %d vertices, %d triangles, %d uv sets\n",
				indent, s.Data, len(data.Vertices), len(data.Triangles), len(data.UVSets))
		}
		if s.Skin != nif.None {
			fmt.Printf("%s    skin [%d]\n", indent, s.Skin)
		}
	}

	if maxDepth > 0 && level+1 >= maxDepth {
		return
	}
	for _, c := range doc.Children(ref) {
		dumpBlock(doc, c, level+1, maxDepth)
	}
}

func typeName(doc *nif.Document, ref nif.Ref) string {
	b, err := doc.Resolve(ref)
	if err != nil {
		return "<dangling>"
	}
	return b.TypeName()
}

// importFile reads path and imports it with the configured import settings.
func importFile(cfg *config.Config, path string) (*scene.Scene, error) {
	log := logger.ForDocument("import", path)
	opts, err := cfg.ImportOptions(log)
	if err != nil {
		return nil, err
	}
	opts.DocumentDir = filepath.Dir(path)

	doc, err := nif.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, warnings, err := convert.DocumentToScene(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	logger.Warnings(log, warnings)
	return sc, nil
}

// exportScene builds the document that will be written to dest.
func exportScene(cfg *config.Config, sc *scene.Scene, dest string) (*nif.Document, error) {
	log := logger.ForDocument("export", dest)
	opts, err := cfg.ExportOptions(log)
	if err != nil {
		return nil, err
	}
	doc, warnings, err := convert.SceneToDocument(sc, opts)
	if err != nil {
		return nil, err
	}
	logger.Warnings(log, warnings)
	return doc, nil
}


func cmdImport(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usage("import <file.nif>")
	}
	sc, err := importFile(cfg, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Frames: %d-%d at %d fps\n", sc.StartFrame, sc.EndFrame, sc.FPS)
	for _, k := range sc.TextKeys {
		fmt.Printf("  key %4d %s\n", k.Frame, k.Text)
	}
	fmt.Println()
	printObjects(sc)
	return nil
}

func printObjects(sc *scene.Scene) {
	depth := make(map[*scene.Object]int)
	sc.Walk(func(obj, parent *scene.Object) bool {
		if parent != nil {
			depth[obj] = depth[parent] + 1
		}
		line := fmt.Sprintf("%s%s (%s)", strings.Repeat("  ", depth[obj]), obj.Name, obj.Kind)
		if obj.ParentBone != "" {
			line += " on bone " + obj.ParentBone
		}
		if m := obj.Mesh; m != nil {
			line += fmt.Sprintf(" %d vertices, %d faces, %d materials", len(m.Vertices), len(m.Faces), len(m.Materials))
			if len(m.Groups) > 0 {
				line += fmt.Sprintf(", %d groups", len(m.Groups))
			}
			if len(m.ShapeKeys) > 0 {
				line += fmt.Sprintf(", %d shape keys", len(m.ShapeKeys))
			}
		}
		if obj.Armature != nil {
			line += fmt.Sprintf(" %d bones", len(obj.Armature.Bones))
		}
		if obj.Action != nil {
			line += fmt.Sprintf(" %d channels", len(obj.Action.Channels))
		}
		if sc.FullName(obj.Name) != obj.Name {
			line += fmt.Sprintf(" [%s]", sc.FullName(obj.Name))
		}
		fmt.Println(line)
		return true
	})
}

func cmdExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	withKF := fs.Bool("kf", false, "Also write the x<name>.kf animation companion")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return usage("export [-kf] <in.nif> <out.nif>")
	}
	sc, err := importFile(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	doc, err := exportScene(cfg, sc, fs.Arg(1))
	if err != nil {
		return err
	}
	out := fs.Arg(1)
	if err := nif.WriteFile(out, doc); err != nil {
		return err
	}
	fmt.Printf("Wrote: %s (%d blocks, version %s)\n", out, doc.Len(), doc.Version)

	if *withKF {
		return writeKF(doc, companionPath(out))
	}
	return nil
}

// companionPath names the animation companion of a document: x<name>.kf
// next to it.
func companionPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(path), "x"+base+".kf")
}

func writeKF(doc *nif.Document, path string) error {
	kf, err := nif.ExtractAnimation(doc)
	if err != nil {
		return err
	}
	if err := nif.WriteFile(path, kf); err != nil {
		return err
	}
	tracks, keys, err := nif.ReadAnimation(kf)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote: %s (%d tracks, %d text keys)\n", path, len(tracks), len(keys))
	return nil
}

func cmdKF(args []string) error {
	if len(args) < 2 {
		return usage("kf <file.nif> <out.kf>")
	}
	doc, err := nif.ReadFile(args[0])
	if err != nil {
		return err
	}
	return writeKF(doc, args[1])
}

func cmdRoundTrip(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usage("roundtrip <file.nif>")
	}
	first, err := importFile(cfg, args[0])
	if err != nil {
		return err
	}
	doc, err := exportScene(cfg, first, args[0])
	if err != nil {
		return err
	}
	if err := nif.Verify(doc); err != nil {
		return fmt.Errorf("exported document does not re-read: %w", err)
	}
	opts, err := cfg.ImportOptions(logger.ForDocument("reimport", args[0]))
	if err != nil {
		return err
	}
	second, _, err := convert.DocumentToScene(doc, opts)
	if err != nil {
		return fmt.Errorf("re-importing: %w", err)
	}

	a, b := summarize(first), summarize(second)
	fmt.Printf("%-10s %8s %8s\n", "", "import", "re-import")
	fmt.Printf("%-10s %8d %8d\n", "objects", a.objects, b.objects)
	fmt.Printf("%-10s %8d %8d\n", "vertices", a.vertices, b.vertices)
	fmt.Printf("%-10s %8d %8d\n", "faces", a.faces, b.faces)
	fmt.Printf("%-10s %8d %8d\n", "bones", a.bones, b.bones)
	fmt.Printf("%-10s %8d %8d\n", "channels", a.channels, b.channels)
	if a != b {
		return fmt.Errorf("scene changed across export and import")
	}
	fmt.Println("OK")
	return nil
}

type sceneSummary struct {
	objects, vertices, faces, bones, channels int
}

func summarize(sc *scene.Scene) sceneSummary {
	var s sceneSummary
	sc.Walk(func(obj, _ *scene.Object) bool {
		s.objects++
		if obj.Mesh != nil {
			s.vertices += len(obj.Mesh.Vertices)
			s.faces += len(obj.Mesh.Faces)
		}
		if obj.Armature != nil {
			s.bones += len(obj.Armature.Bones)
		}
		if obj.Action != nil {
			s.channels += len(obj.Action.Channels)
		}
		return true
	})
	return s
}

func cmdPreview(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return usage("preview <file.nif> <out.glb>")
	}
	sc, err := importFile(cfg, args[0])
	if err != nil {
		return err
	}
	opts := preview.Options{
		Collision: cfg.Preview.Collision,
		Skeleton:  cfg.Preview.Skeleton,
		Logger:    logger.ForDocument("preview", args[1]),
	}
	if err := preview.Write(sc, args[1], opts); err != nil {
		return err
	}
	fmt.Printf("Wrote: %s\n", args[1])
	return nil
}
