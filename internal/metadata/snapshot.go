package metadata

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"winmdgen/internal/errors"
)

// Document is the YAML form of a metadata snapshot.
//
//	namespaces:
//	  Windows.Win32.Foundation:
//	    - name: WIN32_ERROR
//	      extends: System.Enum
//	      fields:
//	        - {name: value__, type: u32}
//	        - {name: ERROR_SUCCESS, type: u32, value: 0}
type Document struct {
	Namespaces map[string][]TypeDocument `yaml:"namespaces"`
}

// TypeDocument describes one type definition.
type TypeDocument struct {
	Name     string           `yaml:"name"`
	Extends  string           `yaml:"extends"`
	Flags    bool             `yaml:"flags"`
	Scoped   bool             `yaml:"scoped"`
	Requires []string         `yaml:"requires"`
	Fields   []FieldDocument  `yaml:"fields"`
	Methods  []MethodDocument `yaml:"methods"`
}

// FieldDocument describes one field. A field with a value is a literal
// constant.
type FieldDocument struct {
	Name  string    `yaml:"name"`
	Type  string    `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

// MethodDocument describes one method.
type MethodDocument struct {
	Name   string          `yaml:"name"`
	Import string          `yaml:"import"`
	Params []FieldDocument `yaml:"params"`
	Return string          `yaml:"return"`
}

type snapshotType struct {
	name     TypeName
	extends  *TypeName
	flags    bool
	scoped   bool
	requires []string
	fields   []Field
	methods  []Method
}

type snapshotField struct {
	name     string
	typ      Type
	constant *Value
}

type snapshotMethod struct {
	name      string
	library   string
	signature Signature
}

// Snapshot is an in-memory Reader loaded from a YAML Document.
type Snapshot struct {
	namespaces  []string
	byNamespace map[string][]TypeDef
	byName      map[TypeName]TypeDef
	types       []snapshotType
	fields      []snapshotField
	methods     []snapshotMethod
}

// LoadSnapshot reads a YAML snapshot from path.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading snapshot")
	}
	snapshot, err := ParseSnapshot(data)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot %s", path)
	}
	return snapshot, nil
}

// ParseSnapshot decodes a YAML snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding snapshot")
	}
	return NewSnapshot(doc)
}

// NewSnapshot builds a Snapshot from a decoded document.
func NewSnapshot(doc Document) (*Snapshot, error) {
	s := &Snapshot{
		byNamespace: make(map[string][]TypeDef),
		byName:      make(map[TypeName]TypeDef),
	}

	for namespace := range doc.Namespaces {
		s.namespaces = append(s.namespaces, namespace)
	}
	sort.Strings(s.namespaces)

	for _, namespace := range s.namespaces {
		for _, td := range doc.Namespaces[namespace] {
			if err := s.addType(namespace, td); err != nil {
				return nil, errors.Wrapf(err, "type %s", TypeName{namespace, td.Name})
			}
		}
	}
	return s, nil
}

func (s *Snapshot) addType(namespace string, td TypeDocument) error {
	name := TypeName{namespace, td.Name}
	if td.Name == "" {
		return errors.New("type without a name")
	}
	if _, exists := s.byName[name]; exists {
		return errors.New("declared twice")
	}

	st := snapshotType{
		name:     name,
		flags:    td.Flags,
		scoped:   td.Scoped,
		requires: td.Requires,
	}
	if td.Extends != "" {
		base := splitTypeName(td.Extends)
		st.extends = &base
	}

	underlying := I32
	for _, fd := range td.Fields {
		if fd.Name == "value__" {
			if p, ok := ParsePrimitive(fd.Type); ok {
				underlying = p
			}
		}
	}

	for _, fd := range td.Fields {
		typ, err := ParseType(fd.Type)
		if err != nil {
			return errors.Wrapf(err, "field %s", fd.Name)
		}
		field := snapshotField{name: fd.Name, typ: typ}
		if fd.Value.Kind != 0 {
			value, err := parseValue(typ, underlying, fd.Value.Value)
			if err != nil {
				return errors.Wrapf(err, "field %s", fd.Name)
			}
			field.constant = &value
		}
		st.fields = append(st.fields, Field(len(s.fields)))
		s.fields = append(s.fields, field)
	}

	for _, md := range td.Methods {
		method := snapshotMethod{name: md.Name, library: md.Import, signature: Signature{Return: Void}}
		for _, pd := range md.Params {
			typ, err := ParseType(pd.Type)
			if err != nil {
				return errors.Wrapf(err, "method %s parameter %s", md.Name, pd.Name)
			}
			method.signature.Params = append(method.signature.Params, Param{Name: pd.Name, Type: typ})
		}
		if md.Return != "" {
			typ, err := ParseType(md.Return)
			if err != nil {
				return errors.Wrapf(err, "method %s return", md.Name)
			}
			method.signature.Return = typ
		}
		st.methods = append(st.methods, Method(len(s.methods)))
		s.methods = append(s.methods, method)
	}

	def := TypeDef(len(s.types))
	s.types = append(s.types, st)
	s.byName[name] = def
	s.byNamespace[namespace] = append(s.byNamespace[namespace], def)
	return nil
}

func parseValue(typ Type, underlying Primitive, text string) (Value, error) {
	kind := underlying
	switch t := typ.(type) {
	case Primitive:
		kind = t
	case Unsupported:
		if t.Tag == "string" {
			return Value{IsString: true, String: text}, nil
		}
	}

	switch {
	case kind == Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, errors.Wrapf(err, "constant %q", text)
		}
		if b {
			return Value{Kind: kind, Uint: 1}, nil
		}
		return Value{Kind: kind}, nil
	case kind.IsFloat():
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "constant %q", text)
		}
		return Value{Kind: kind, Float: f}, nil
	case kind.IsSigned():
		i, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "constant %q", text)
		}
		return IntValue(kind, uint64(i)), nil
	default:
		u, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "constant %q", text)
		}
		return IntValue(kind, u), nil
	}
}

func splitTypeName(qualified string) TypeName {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return TypeName{qualified[:i], qualified[i+1:]}
	}
	return TypeName{Name: qualified}
}

func (s *Snapshot) Namespaces() []string {
	return s.namespaces
}

func (s *Snapshot) NamespaceTypes(namespace string, filter Filter) []TypeDef {
	var defs []TypeDef
	for _, def := range s.byNamespace[namespace] {
		if filter.Includes(namespace, s.types[def].name.Name) {
			defs = append(defs, def)
		}
	}
	return defs
}

func (s *Snapshot) FindType(name TypeName) (TypeDef, bool) {
	def, ok := s.byName[name]
	return def, ok
}

func (s *Snapshot) TypeDefName(def TypeDef) string      { return s.types[def].name.Name }
func (s *Snapshot) TypeDefNamespace(def TypeDef) string { return s.types[def].name.Namespace }

func (s *Snapshot) TypeDefExtends(def TypeDef) (TypeName, bool) {
	if base := s.types[def].extends; base != nil {
		return *base, true
	}
	return TypeName{}, false
}

func (s *Snapshot) TypeDefFields(def TypeDef) []Field        { return s.types[def].fields }
func (s *Snapshot) TypeDefMethods(def TypeDef) []Method      { return s.types[def].methods }
func (s *Snapshot) TypeDefIsFlags(def TypeDef) bool          { return s.types[def].flags }
func (s *Snapshot) TypeDefIsScoped(def TypeDef) bool         { return s.types[def].scoped }
func (s *Snapshot) TypeDefRequirements(def TypeDef) []string { return s.types[def].requires }
func (s *Snapshot) FieldName(field Field) string             { return s.fields[field].name }
func (s *Snapshot) FieldType(field Field) Type               { return s.fields[field].typ }
func (s *Snapshot) FieldIsLiteral(field Field) bool          { return s.fields[field].constant != nil }
func (s *Snapshot) MethodName(method Method) string          { return s.methods[method].name }
func (s *Snapshot) MethodSignature(method Method) Signature  { return s.methods[method].signature }

func (s *Snapshot) FieldConstant(field Field) (Value, bool) {
	if c := s.fields[field].constant; c != nil {
		return *c, true
	}
	return Value{}, false
}

func (s *Snapshot) MethodImport(method Method) (string, bool) {
	library := s.methods[method].library
	return library, library != ""
}
