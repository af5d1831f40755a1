// Package generation renders the model as Go source using jennifer: one
// package per namespace, or a single flattened package.
package generation

import (
	"bytes"
	"fmt"
	"go/token"
	"hash/fnv"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"winmdgen/internal/config"
	"winmdgen/internal/errors"
	"winmdgen/internal/logger"
	"winmdgen/internal/model"
	"winmdgen/internal/tree"
)

const generatedHeader = "Code generated by winmdgen. DO NOT EDIT."

// File is one rendered Go source file. Path is slash separated and relative
// to the output directory.
type File struct {
	Path    string
	Content []byte
}

// Output holds every file of one generation pass, sorted by path.
type Output struct {
	Files []File
}

type Generator struct {
	Options config.Options
	model   *model.Model
	lower   cases.Caser
	// Declared identifiers and their namespace, keyed per package.
	declared map[string]string
}

func NewGenerator(m *model.Model, options config.Options) *Generator {
	return &Generator{
		Options:  options,
		model:    m,
		lower:    cases.Lower(language.Und),
		declared: make(map[string]string),
	}
}

// Generate renders every namespace of root. Nothing is returned on error.
func (generator *Generator) Generate(root *tree.Node) (*Output, error) {
	var units []*unit
	var flat *unit
	if generator.Options.Flatten {
		flat = generator.newFlatUnit()
		units = append(units, flat)
	}

	err := root.Walk(func(node *tree.Node) error {
		if len(node.Types) == 0 {
			return nil
		}
		definitions, err := generator.model.Definitions(node)
		if err != nil {
			return err
		}

		u := flat
		if u == nil {
			u = generator.newUnit(node.Namespace)
			units = append(units, u)
		}
		for _, definition := range definitions {
			if err := u.definition(definition); err != nil {
				head := definition.Head()
				return errors.Wrapf(err, "%s %s.%s", head.Kind, head.Namespace, head.Name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	output := &Output{}
	for _, u := range units {
		files, err := u.render()
		if err != nil {
			return nil, errors.Wrapf(err, "package %s", u.importPath)
		}
		output.Files = append(output.Files, files...)
	}
	sort.Slice(output.Files, func(i, j int) bool {
		return output.Files[i].Path < output.Files[j].Path
	})

	logger.Logger.Debugw("Go sources rendered", logger.FieldCount, len(output.Files))
	return output, nil
}

// Directory of a namespace relative to the output root.
func (generator *Generator) directory(namespace string) string {
	segments := tree.Segments(namespace)
	for i, segment := range segments {
		segments[i] = packageName(generator.lower.String(segment))
	}
	return path.Join(segments...)
}

func (generator *Generator) importPath(namespace string) string {
	return path.Join(generator.Options.Package, generator.directory(namespace))
}

// declare records a package level identifier. Identifiers are unique per
// namespace, or across all namespaces when flattening.
func (generator *Generator) declare(namespace, name string) error {
	key := namespace + "." + name
	if generator.Options.Flatten {
		key = name
	}
	other, ok := generator.declared[key]
	if !ok {
		generator.declared[key] = namespace
		return nil
	}
	if other == namespace {
		return errors.WithHint(
			errors.Unsupportedf("%s is declared twice in %s", name, namespace),
			"exclude one of the conflicting types with --exclude",
		)
	}
	return errors.WithHint(
		errors.Newf("%s is declared in both %s and %s", name, other, namespace),
		"narrow the filter or generate without flatten",
	)
}

// A unit is one Go package. Definitions are grouped into files by the gate
// they render with.
type unit struct {
	generator  *Generator
	importPath string
	name       string
	dir        string
	groups     map[string]*group
	// DLL name to package variable.
	libraries map[string]string
}

type group struct {
	gate model.Gate
	// main holds declarations; native holds DLL bound functions, which only
	// build on windows. Both are created on first use.
	main   *jen.File
	native *jen.File
}

func (generator *Generator) newUnit(namespace string) *unit {
	return &unit{
		generator:  generator,
		importPath: generator.importPath(namespace),
		name:       path.Base(generator.importPath(namespace)),
		dir:        generator.directory(namespace),
		groups:     make(map[string]*group),
		libraries:  make(map[string]string),
	}
}

func (generator *Generator) newFlatUnit() *unit {
	return &unit{
		generator:  generator,
		importPath: generator.Options.Package,
		name:       packageName(path.Base(generator.Options.Package)),
		groups:     make(map[string]*group),
		libraries:  make(map[string]string),
	}
}

func (u *unit) newFile(gate model.Gate) *jen.File {
	file := jen.NewFilePathName(u.importPath, u.name)
	file.HeaderComment(generatedHeader)
	if !gate.IsEmpty() {
		file.HeaderComment("//go:build " + strings.Join(gate.Terms(), " && "))
	}
	return file
}

// group returns the files of gate, creating them on first use. Flattened
// output keeps a single group and renders gates as comments only.
func (u *unit) group(gate model.Gate) *group {
	if u.generator.Options.Flatten {
		gate = model.Gate{}
	}
	key := gate.Key()
	g, ok := u.groups[key]
	if !ok {
		g = &group{gate: gate}
		u.groups[key] = g
	}
	return g
}

func (g *group) mainFile(u *unit) *jen.File {
	if g.main == nil {
		g.main = u.newFile(g.gate)
	}
	return g.main
}

func (g *group) nativeFile(u *unit) *jen.File {
	if g.native == nil {
		g.native = u.newFile(g.gate)
	}
	return g.native
}

func (u *unit) fileName(gate model.Gate, suffix string) string {
	name := u.name
	if !gate.IsEmpty() {
		hash := fnv.New32a()
		hash.Write([]byte(gate.Key()))
		name = fmt.Sprintf("%s_%08x", name, hash.Sum32())
	}
	return path.Join(u.dir, name+suffix+".go")
}

func (u *unit) render() ([]File, error) {
	if len(u.libraries) > 0 {
		u.renderLibraries(u.group(model.Gate{}).nativeFile(u))
	}

	keys := make([]string, 0, len(u.groups))
	for key := range u.groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var files []File
	for _, key := range keys {
		g := u.groups[key]
		for _, part := range []struct {
			file   *jen.File
			suffix string
		}{{g.main, ""}, {g.native, "_windows"}} {
			if part.file == nil {
				continue
			}
			buffer := &bytes.Buffer{}
			if err := part.file.Render(buffer); err != nil {
				return nil, errors.Wrap(err, "rendering")
			}
			files = append(files, File{Path: u.fileName(g.gate, part.suffix), Content: buffer.Bytes()})
		}
	}
	return files, nil
}

// definition renders one shape into the file group of its gate.
func (u *unit) definition(definition model.Definition) error {
	if class, ok := definition.(*model.ClassShape); ok {
		return u.class(class)
	}

	head := definition.Head()
	gate := head.Gate.Without(model.FeatureName(head.Namespace))
	g := u.group(gate)
	if err := u.generator.declare(head.Namespace, exported(head.Name)); err != nil {
		return err
	}
	file := g.mainFile(u)
	requiredFeatures(file, gate)

	switch shape := definition.(type) {
	case *model.EnumShape:
		if !shape.Scoped && !u.generator.Options.Minimal {
			for _, constant := range shape.Constants {
				if err := u.generator.declare(head.Namespace, exported(constant.Name)); err != nil {
					return err
				}
			}
		}
		u.enum(file, shape)
		return nil
	case *model.StructShape:
		return u.structure(file, shape)
	case *model.InterfaceShape:
		return u.iface(file, shape)
	case *model.DelegateShape:
		return u.delegate(file, shape)
	}
	return errors.Unsupportedf("definition %T", definition)
}

func requiredFeatures(file *jen.File, gate model.Gate) {
	if !gate.IsEmpty() {
		file.Comment("Required features: " + strings.Join(gate.Terms(), ", "))
	}
}

// exported turns a metadata name into an exported Go identifier.
func exported(name string) string {
	runes := []rune(name)
	if len(runes) > 0 && unicode.IsLower(runes[0]) {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}

// local makes a metadata name usable as a parameter name.
func local(name string) string {
	if token.IsKeyword(name) {
		return name + "_"
	}
	return name
}

func packageName(segment string) string {
	var b strings.Builder
	for _, r := range segment {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || unicode.IsDigit([]rune(name)[0]) || token.IsKeyword(name) {
		name = "ns" + name
	}
	return name
}
