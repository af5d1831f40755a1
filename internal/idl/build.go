package idl

import (
	"sort"
	"strconv"
	"strings"

	"winmdgen/internal/errors"
	"winmdgen/internal/logger"
	"winmdgen/internal/metadata"
	"winmdgen/internal/model"
	"winmdgen/internal/tree"
)

const parentStep = "super"

type builder struct {
	model *model.Model
	root  *tree.Node
	// External types referenced from the tree, keyed by qualified name.
	uses map[string][]string
}

// Build converts the namespace tree into an IDL document.
func Build(m *model.Model, root *tree.Node) (*File, error) {
	b := &builder{model: m, root: root, uses: make(map[string][]string)}

	file := &File{}
	for _, child := range root.Children() {
		module, err := b.module(child)
		if err != nil {
			return nil, err
		}
		file.Modules = append(file.Modules, module)
	}

	names := make([]string, 0, len(b.uses))
	for name := range b.uses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		file.Uses = append(file.Uses, Use{Path: b.uses[name]})
	}
	return file, nil
}

// Generate builds and formats the document of root.
func Generate(m *model.Model, root *tree.Node) ([]byte, error) {
	file, err := Build(m, root)
	if err != nil {
		return nil, err
	}
	text, err := Format(file)
	if err != nil {
		return nil, err
	}
	logger.Logger.Debugw("IDL rendered", logger.FieldCount, len(file.Modules))
	return []byte(text), nil
}

func (b *builder) module(node *tree.Node) (*Module, error) {
	module := &Module{Name: node.Name}
	for _, child := range node.Children() {
		nested, err := b.module(child)
		if err != nil {
			return nil, err
		}
		module.Members = append(module.Members, nested)
	}

	definitions, err := b.model.Definitions(node)
	if err != nil {
		return nil, err
	}
	for _, definition := range definitions {
		member, err := b.member(definition)
		if err != nil {
			head := definition.Head()
			return nil, errors.Wrapf(err, "%s %s.%s", head.Kind, head.Namespace, head.Name)
		}
		module.Members = append(module.Members, member)
	}
	return module, nil
}

func (b *builder) member(definition model.Definition) (Member, error) {
	switch shape := definition.(type) {
	case *model.EnumShape:
		return b.enum(shape)
	case *model.StructShape:
		member := &Struct{Attributes: b.gated(shape.Header), Name: shape.Name}
		for _, field := range shape.Fields {
			member.Fields = append(member.Fields, Field{Name: field.Name, Type: b.ty(field.Type)})
		}
		return member, nil
	case *model.InterfaceShape:
		return &Interface{
			Attributes: b.gated(shape.Header),
			Name:       shape.Name,
			Methods:    b.methods(shape.Methods),
		}, nil
	case *model.DelegateShape:
		return &Interface{
			Attributes: append([]Attribute{{Name: "delegate"}}, b.gated(shape.Header)...),
			Name:       shape.Name,
			Methods:    b.methods([]model.Method{shape.Invoke}),
		}, nil
	case *model.ClassShape:
		return b.class(shape)
	}
	return nil, errors.Unsupportedf("definition %T", definition)
}

func (b *builder) enum(shape *model.EnumShape) (*Enum, error) {
	member := &Enum{Name: shape.Name}
	member.Attributes = append(member.Attributes, Attribute{Name: "repr", Args: []string{shape.Underlying.String()}})
	if shape.Flags {
		member.Attributes = append(member.Attributes, Attribute{Name: "flags"})
	}
	if shape.Scoped {
		member.Attributes = append(member.Attributes, Attribute{Name: "scoped"})
	}
	member.Attributes = append(member.Attributes, b.gated(shape.Header)...)

	for _, constant := range shape.Constants {
		member.Variants = append(member.Variants, Variant{Name: constant.Name, Discriminant: literal(constant.Value)})
	}
	return member, nil
}

func (b *builder) class(shape *model.ClassShape) (*Class, error) {
	member := &Class{Attributes: b.gated(shape.Header), Name: shape.Name}
	for _, constant := range shape.Constants {
		var ty Type
		if constant.Value.IsString {
			ty = Path{Segments: []string{"str"}}
		} else {
			ty = Path{Segments: []string{constant.Value.Kind.String()}}
		}
		member.Constants = append(member.Constants, Const{Name: constant.Name, Type: ty, Value: literal(constant.Value)})
	}
	member.Methods = b.methods(shape.Functions)
	return member, nil
}

// gated renders the gate minus the feature of the definition's own module.
func (b *builder) gated(header model.Header) []Attribute {
	gate := header.Gate.Without(model.FeatureName(header.Namespace))
	if gate.IsEmpty() {
		return nil
	}
	return []Attribute{{Name: "features", Args: quoted(gate.Terms())}}
}

func quoted(terms []string) []string {
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = strconv.Quote(term)
	}
	return out
}

func (b *builder) methods(methods []model.Method) []Method {
	var out []Method
	for _, method := range methods {
		rendered := Method{Name: method.Name}
		if method.Library != "" {
			rendered.Attributes = []Attribute{{Name: "import", Args: []string{strconv.Quote(method.Library)}}}
		}
		for _, param := range method.Params {
			rendered.Params = append(rendered.Params, Field{Name: param.Name, Type: b.ty(param.Type)})
		}
		if p, ok := method.Return.(model.Primitive); !ok || p.Kind != metadata.Void {
			rendered.Return = b.ty(method.Return)
		}
		out = append(out, rendered)
	}
	return out
}

func (b *builder) ty(expr model.Expr) Type {
	switch expr := expr.(type) {
	case model.Primitive:
		return Path{Segments: []string{primitive(expr.Kind)}}
	case model.Pointer:
		return Ptr{Mutable: expr.Mutable, Elem: b.ty(expr.Elem)}
	case model.Array:
		return ArrayType{Elem: b.ty(expr.Elem), Len: LitInt{Text: strconv.FormatUint(uint64(expr.Len), 10)}}
	case model.Named:
		path := Path{Segments: append(expr.Qualifier.Segments(parentStep), expr.Name)}
		if _, ok := b.root.Find(expr.Namespace); !ok {
			// Types outside the tree are imported at the file root and
			// referenced there by their plain name.
			b.uses[metadata.TypeName{Namespace: expr.Namespace, Name: expr.Name}.String()] =
				append(strings.Split(expr.Namespace, "."), expr.Name)
			depth := expr.Qualifier.Up + len(tree.Segments(expr.Namespace)) - len(expr.Qualifier.Down)
			path.Segments = append(model.Qualifier{Up: depth}.Segments(parentStep), expr.Name)
		}
		for _, generic := range expr.Generics {
			path.Generics = append(path.Generics, b.ty(generic))
		}
		return path
	}
	// Resolve only produces the four expression kinds above.
	return nil
}

func primitive(kind metadata.Primitive) string {
	if kind == metadata.Char {
		return "u16"
	}
	return kind.String()
}

func literal(value metadata.Value) Expr {
	switch {
	case value.IsString:
		return LitStr{Value: value.String}
	case value.Kind.IsFloat():
		return LitFloat{Text: value.Literal()}
	case value.IsNegative():
		return Neg{Expr: LitInt{Text: strconv.FormatUint(value.Magnitude(), 10)}}
	}
	return LitInt{Text: value.Literal()}
}
