package model

import (
	"winmdgen/internal/errors"
	"winmdgen/internal/logger"
	"winmdgen/internal/metadata"
	"winmdgen/internal/tree"
)

// Model computes shapes for one emission pass. Kinds, references and gates
// are cached on first use; a Model must not be shared between goroutines.
type Model struct {
	reader metadata.Reader
	kinds  map[metadata.TypeDef]Kind
	refs   map[metadata.TypeDef][]metadata.TypeDef
	gates  map[metadata.TypeDef]Gate
}

func New(reader metadata.Reader) *Model {
	return &Model{
		reader: reader,
		kinds:  make(map[metadata.TypeDef]Kind),
		refs:   make(map[metadata.TypeDef][]metadata.TypeDef),
		gates:  make(map[metadata.TypeDef]Gate),
	}
}

func (m *Model) Reader() metadata.Reader {
	return m.reader
}

// Kind classifies def once per Model.
func (m *Model) Kind(def metadata.TypeDef) Kind {
	if kind, ok := m.kinds[def]; ok {
		return kind
	}
	kind := Classify(m.reader, def)
	m.kinds[def] = kind
	return kind
}

// Header carries what every shape has in common.
type Header struct {
	Kind      Kind
	Name      string
	Namespace string
	Gate      Gate
}

// Head returns the header of a shape.
func (h Header) Head() Header { return h }

// Definition is one of *EnumShape, *StructShape, *InterfaceShape,
// *DelegateShape or *ClassShape.
type Definition interface {
	Head() Header
}

// Constant is a literal field.
type Constant struct {
	Name  string
	Value metadata.Value
}

// Field is an instance field or a method parameter.
type Field struct {
	Name string
	Type Expr
}

// Method is a resolved method signature. Library and Gate are set for
// functions imported from a DLL.
type Method struct {
	Name    string
	Params  []Field
	Return  Expr
	Library string
	Gate    Gate
}

type EnumShape struct {
	Header
	Underlying metadata.Primitive
	Scoped     bool
	Flags      bool
	// Constants in declaration order, duplicate values included.
	Constants []Constant
}

// Contains is the membership predicate flags enums expose.
func (e *EnumShape) Contains(value, flag uint64) bool {
	return value&flag == flag
}

type StructShape struct {
	Header
	// Fields in declaration order; the order is the memory layout.
	Fields []Field
}

type InterfaceShape struct {
	Header
	Methods []Method
}

type DelegateShape struct {
	Header
	Invoke Method
}

// ClassShape covers API holder classes: constants and DLL imported
// functions. Other members are not modelled.
type ClassShape struct {
	Header
	// Base gates the constants: the requirements of the class alone.
	Base      Gate
	Constants []Constant
	Functions []Method
}

func (m *Model) header(def metadata.TypeDef) Header {
	return Header{
		Kind:      m.Kind(def),
		Name:      m.reader.TypeDefName(def),
		Namespace: m.reader.TypeDefNamespace(def),
		Gate:      m.Gate(def),
	}
}

func (m *Model) qualifiedName(def metadata.TypeDef) metadata.TypeName {
	return metadata.TypeName{Namespace: m.reader.TypeDefNamespace(def), Name: m.reader.TypeDefName(def)}
}

// Definition builds the shape matching the kind of def.
func (m *Model) Definition(def metadata.TypeDef) (Definition, error) {
	switch m.Kind(def) {
	case Enum:
		return m.Enum(def)
	case Struct:
		return m.Struct(def)
	case Interface:
		return m.Interface(def)
	case Delegate:
		return m.Delegate(def)
	default:
		return m.Class(def)
	}
}

// Definitions builds the shapes of every type owned by node, in node order.
func (m *Model) Definitions(node *tree.Node) ([]Definition, error) {
	definitions := make([]Definition, 0, len(node.Types))
	counts := make(map[Kind]int)
	for _, def := range node.Types {
		definition, err := m.Definition(def)
		if err != nil {
			return nil, err
		}
		counts[definition.Head().Kind]++
		definitions = append(definitions, definition)
	}

	logger.Logger.Debugw("Namespace modelled",
		logger.FieldNamespace, node.Namespace,
		"enums", counts[Enum],
		"structs", counts[Struct],
		"interfaces", counts[Interface],
		"delegates", counts[Delegate],
		"classes", counts[Class])
	return definitions, nil
}

// Enum builds the shape of an enum. The underlying type is the type of the
// single instance field and defaults to i32.
func (m *Model) Enum(def metadata.TypeDef) (*EnumShape, error) {
	shape := &EnumShape{
		Header:     m.header(def),
		Underlying: metadata.I32,
		Scoped:     m.reader.TypeDefIsScoped(def),
		Flags:      m.reader.TypeDefIsFlags(def),
	}

	for _, field := range m.reader.TypeDefFields(def) {
		name := m.reader.FieldName(field)
		if !m.reader.FieldIsLiteral(field) {
			primitive, ok := m.reader.FieldType(field).(metadata.Primitive)
			if !ok || !primitive.IsInteger() {
				return nil, errors.Unsupportedf("enum %s: underlying type %v", m.qualifiedName(def), m.reader.FieldType(field))
			}
			shape.Underlying = primitive
			continue
		}

		value, ok := m.reader.FieldConstant(field)
		if !ok {
			return nil, errors.Newf("enum %s: literal %s has no value", m.qualifiedName(def), name)
		}
		if value.IsString || !value.Kind.IsInteger() {
			return nil, errors.Unsupportedf("enum %s: constant %s is not an integer", m.qualifiedName(def), name)
		}
		shape.Constants = append(shape.Constants, Constant{Name: name, Value: value})
	}
	return shape, nil
}

// Struct builds the shape of a struct from its instance fields. Literal
// fields are not instance data and are left out.
func (m *Model) Struct(def metadata.TypeDef) (*StructShape, error) {
	shape := &StructShape{Header: m.header(def)}
	for _, field := range m.reader.TypeDefFields(def) {
		if m.reader.FieldIsLiteral(field) {
			continue
		}
		name := m.reader.FieldName(field)
		expr, err := Resolve(shape.Namespace, m.reader.FieldType(field))
		if err != nil {
			return nil, errors.Wrapf(err, "field %s.%s", m.qualifiedName(def), name)
		}
		shape.Fields = append(shape.Fields, Field{Name: name, Type: expr})
	}
	return shape, nil
}

func (m *Model) Interface(def metadata.TypeDef) (*InterfaceShape, error) {
	shape := &InterfaceShape{Header: m.header(def)}
	for _, method := range m.reader.TypeDefMethods(def) {
		resolved, err := m.method(shape.Namespace, method)
		if err != nil {
			return nil, errors.Wrapf(err, "interface %s", m.qualifiedName(def))
		}
		shape.Methods = append(shape.Methods, resolved)
	}
	return shape, nil
}

// Delegate builds the shape of a function pointer type from its Invoke
// method.
func (m *Model) Delegate(def metadata.TypeDef) (*DelegateShape, error) {
	shape := &DelegateShape{Header: m.header(def), Invoke: Method{Name: "Invoke", Return: Primitive{Kind: metadata.Void}}}
	for _, method := range m.reader.TypeDefMethods(def) {
		if m.reader.MethodName(method) != "Invoke" {
			continue
		}
		resolved, err := m.method(shape.Namespace, method)
		if err != nil {
			return nil, errors.Wrapf(err, "delegate %s", m.qualifiedName(def))
		}
		shape.Invoke = resolved
	}
	return shape, nil
}

func (m *Model) Class(def metadata.TypeDef) (*ClassShape, error) {
	shape := &ClassShape{Header: m.header(def)}
	shape.Base = newGate(nil, setOf(m.reader.TypeDefRequirements(def)))
	for _, field := range m.reader.TypeDefFields(def) {
		if value, ok := m.reader.FieldConstant(field); ok && m.reader.FieldIsLiteral(field) {
			shape.Constants = append(shape.Constants, Constant{Name: m.reader.FieldName(field), Value: value})
		}
	}
	for _, method := range m.reader.TypeDefMethods(def) {
		if _, imported := m.reader.MethodImport(method); !imported {
			continue
		}
		resolved, err := m.method(shape.Namespace, method)
		if err != nil {
			return nil, errors.Wrapf(err, "class %s", m.qualifiedName(def))
		}
		resolved.Gate = m.FunctionGate(def, method)
		shape.Functions = append(shape.Functions, resolved)
	}
	return shape, nil
}

func (m *Model) method(ctx string, method metadata.Method) (Method, error) {
	name := m.reader.MethodName(method)
	signature := m.reader.MethodSignature(method)
	library, _ := m.reader.MethodImport(method)

	resolved := Method{Name: name, Library: library}
	for _, param := range signature.Params {
		expr, err := Resolve(ctx, param.Type)
		if err != nil {
			return Method{}, errors.Wrapf(err, "method %s parameter %s", name, param.Name)
		}
		resolved.Params = append(resolved.Params, Field{Name: param.Name, Type: expr})
	}

	ret := signature.Return
	if ret == nil {
		ret = metadata.Void
	}
	expr, err := Resolve(ctx, ret)
	if err != nil {
		return Method{}, errors.Wrapf(err, "method %s return", name)
	}
	resolved.Return = expr
	return resolved, nil
}
