package metadata

import (
	"debug/pe"
	"encoding/binary"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/microsoft/go-winmd"
	"github.com/microsoft/go-winmd/flags"

	"winmdgen/internal"
	"winmdgen/internal/errors"
)

// Coded index tags (ECMA-335 II.24.2.6) used by the reader.
const (
	tagTypeDefOrRefTypeDef = 0
	tagTypeDefOrRefTypeRef = 1

	tagHasCustomAttributeTypeDef = 3
	tagHasConstantField          = 0

	tagCustomAttributeTypeMemberRef = 3
	tagMemberRefParentTypeRef       = 1
)

// The map of basic element types to primitive kinds
var builtInElementTypes = map[flags.ElementType]Primitive{
	flags.ElementType_VOID:    Void,
	flags.ElementType_BOOLEAN: Bool,
	flags.ElementType_CHAR:    Char,
	flags.ElementType_I1:      I8,
	flags.ElementType_I2:      I16,
	flags.ElementType_I4:      I32,
	flags.ElementType_I8:      I64,
	flags.ElementType_U1:      U8,
	flags.ElementType_U2:      U16,
	flags.ElementType_U4:      U32,
	flags.ElementType_U8:      U64,
	flags.ElementType_R4:      F32,
	flags.ElementType_R8:      F64,
	flags.ElementType_I:       ISize,
	flags.ElementType_U:       USize,
}

// Go architecture tags for the SupportedArchitecture attribute bits.
var architectures = []struct {
	bit uint32
	tag string
}{
	{1, "386"},
	{2, "amd64"},
	{4, "arm64"},
}

// WinMdReader implements Reader over a .winmd file.
type WinMdReader struct {
	metadata *winmd.Metadata

	namespaces   []string
	byNamespace  map[string][]TypeDef
	byName       map[TypeName]TypeDef
	constants    map[Field]Value
	flagsEnums   map[TypeDef]bool
	scopedEnums  map[TypeDef]bool
	requirements map[TypeDef][]string
	imports      map[string]string
}

// Generates a new metadata reader based WinMd file under given path
func NewWinMdReader(winMdPath string) (*WinMdReader, error) {
	peFile, err := pe.Open(winMdPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", winMdPath)
	}
	defer peFile.Close()

	winmdMetadata, err := winmd.New(peFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading metadata from %s", winMdPath)
	}

	reader := &WinMdReader{
		metadata:     winmdMetadata,
		byNamespace:  make(map[string][]TypeDef),
		byName:       make(map[TypeName]TypeDef),
		constants:    make(map[Field]Value),
		flagsEnums:   make(map[TypeDef]bool),
		scopedEnums:  make(map[TypeDef]bool),
		requirements: make(map[TypeDef][]string),
		imports:      make(map[string]string),
	}
	reader.indexTypeDefs()
	reader.indexConstants()
	reader.indexAttributes()
	reader.indexImports()
	return reader, nil
}

func (reader *WinMdReader) indexTypeDefs() {
	iterateOverTable(reader.metadata.Tables.TypeDef, func(idx winmd.Index, typeDef *winmd.TypeDef) {
		name := TypeName{typeDef.Namespace.String(), typeDef.Name.String()}
		def := TypeDef(idx)
		if _, seen := reader.byNamespace[name.Namespace]; !seen {
			reader.namespaces = append(reader.namespaces, name.Namespace)
		}
		reader.byNamespace[name.Namespace] = append(reader.byNamespace[name.Namespace], def)
		reader.byName[name] = def
	})
	sort.Strings(reader.namespaces)
}

func (reader *WinMdReader) indexConstants() {
	iterateOverTable(reader.metadata.Tables.Constant, func(_ winmd.Index, constant *winmd.Constant) {
		if constant.Parent.Tag != tagHasConstantField {
			return
		}
		if value, ok := decodeConstant(constant.Type, []byte(constant.Value)); ok {
			reader.constants[Field(constant.Parent.Index)] = value
		}
	})
}

func (reader *WinMdReader) indexAttributes() {
	iterateOverTable(reader.metadata.Tables.CustomAttribute, func(_ winmd.Index, attribute *winmd.CustomAttribute) {
		if attribute.Parent.Tag != tagHasCustomAttributeTypeDef {
			return
		}
		def := TypeDef(attribute.Parent.Index)
		switch reader.attributeName(attribute) {
		case "FlagsAttribute":
			reader.flagsEnums[def] = true
		case "ScopedEnumAttribute":
			reader.scopedEnums[def] = true
		case "SupportedArchitectureAttribute":
			if requirement := architectureRequirement([]byte(attribute.Value)); requirement != "" {
				reader.requirements[def] = append(reader.requirements[def], requirement)
			}
		}
	})
}

// Builds the map of imported member names to the *.dll file implementing them.
func (reader *WinMdReader) indexImports() {
	iterateOverTable(reader.metadata.Tables.ImplMap, func(_ winmd.Index, implMap *winmd.ImplMap) {
		dllImport, err := reader.metadata.Tables.ModuleRef.Record(implMap.ImportScope)
		internal.PanicOnError(err)
		reader.imports[implMap.ImportName.String()] = dllImport.Name.String()
	})
}

func (reader *WinMdReader) attributeName(attribute *winmd.CustomAttribute) string {
	if attribute.Type.Tag != tagCustomAttributeTypeMemberRef {
		return ""
	}
	memberRef, err := reader.metadata.Tables.MemberRef.Record(attribute.Type.Index)
	if err != nil || memberRef.Class.Tag != tagMemberRefParentTypeRef {
		return ""
	}
	typeRef, err := reader.metadata.Tables.TypeRef.Record(memberRef.Class.Index)
	if err != nil {
		return ""
	}
	return typeRef.Name.String()
}

func (reader *WinMdReader) typeDef(def TypeDef) *winmd.TypeDef {
	return internal.Must(reader.metadata.Tables.TypeDef.Record(winmd.Index(def)))
}

func (reader *WinMdReader) Namespaces() []string {
	return reader.namespaces
}

func (reader *WinMdReader) NamespaceTypes(namespace string, filter Filter) []TypeDef {
	var defs []TypeDef
	for _, def := range reader.byNamespace[namespace] {
		if filter.Includes(namespace, reader.TypeDefName(def)) {
			defs = append(defs, def)
		}
	}
	return defs
}

func (reader *WinMdReader) FindType(name TypeName) (TypeDef, bool) {
	def, ok := reader.byName[name]
	return def, ok
}

func (reader *WinMdReader) TypeDefName(def TypeDef) string {
	return reader.typeDef(def).Name.String()
}

func (reader *WinMdReader) TypeDefNamespace(def TypeDef) string {
	return reader.typeDef(def).Namespace.String()
}

func (reader *WinMdReader) TypeDefExtends(def TypeDef) (TypeName, bool) {
	name, ok := reader.typeDefOrRefName(reader.typeDef(def).Extends)
	// A null coded index decodes to the <Module> row.
	if !ok || name.Name == "" || name.Name == "<Module>" {
		return TypeName{}, false
	}
	return name, true
}

func (reader *WinMdReader) typeDefOrRefName(index winmd.CodedIndex) (TypeName, bool) {
	switch index.Tag {
	case tagTypeDefOrRefTypeDef:
		typeDef, err := reader.metadata.Tables.TypeDef.Record(index.Index)
		if err != nil {
			return TypeName{}, false
		}
		return TypeName{typeDef.Namespace.String(), typeDef.Name.String()}, true
	case tagTypeDefOrRefTypeRef:
		typeRef, err := reader.metadata.Tables.TypeRef.Record(index.Index)
		if err != nil {
			return TypeName{}, false
		}
		return TypeName{typeRef.Namespace.String(), typeRef.Name.String()}, true
	}
	return TypeName{}, false
}

func (reader *WinMdReader) TypeDefFields(def TypeDef) []Field {
	typeDef := reader.typeDef(def)
	fields := make([]Field, 0, typeDef.FieldList.End-typeDef.FieldList.Start)
	for i := typeDef.FieldList.Start; i < typeDef.FieldList.End; i++ {
		fields = append(fields, Field(i))
	}
	return fields
}

func (reader *WinMdReader) TypeDefMethods(def TypeDef) []Method {
	typeDef := reader.typeDef(def)
	methods := make([]Method, 0, typeDef.MethodList.End-typeDef.MethodList.Start)
	for i := typeDef.MethodList.Start; i < typeDef.MethodList.End; i++ {
		methods = append(methods, Method(i))
	}
	return methods
}

func (reader *WinMdReader) TypeDefIsFlags(def TypeDef) bool  { return reader.flagsEnums[def] }
func (reader *WinMdReader) TypeDefIsScoped(def TypeDef) bool { return reader.scopedEnums[def] }

func (reader *WinMdReader) TypeDefRequirements(def TypeDef) []string {
	return reader.requirements[def]
}

func (reader *WinMdReader) field(field Field) *winmd.Field {
	return internal.Must(reader.metadata.Tables.Field.Record(winmd.Index(field)))
}

func (reader *WinMdReader) FieldName(field Field) string {
	return reader.field(field).Name.String()
}

func (reader *WinMdReader) FieldType(field Field) Type {
	fieldSignature, err := reader.metadata.FieldSignature(reader.field(field).Signature)
	if err != nil {
		return Unsupported{Tag: "unreadable field signature"}
	}
	return reader.getType(fieldSignature.Type)
}

func (reader *WinMdReader) FieldIsLiteral(field Field) bool {
	return reader.field(field).Flags&flags.FieldAttributes_Literal != 0
}

func (reader *WinMdReader) FieldConstant(field Field) (Value, bool) {
	value, ok := reader.constants[field]
	return value, ok
}

func (reader *WinMdReader) methodDef(method Method) *winmd.MethodDef {
	return internal.Must(reader.metadata.Tables.MethodDef.Record(winmd.Index(method)))
}

func (reader *WinMdReader) MethodName(method Method) string {
	return reader.methodDef(method).Name.String()
}

func (reader *WinMdReader) MethodSignature(method Method) Signature {
	methodDef := reader.methodDef(method)
	methodSignature, err := reader.metadata.MethodDefSignature(methodDef.Signature)
	if err != nil {
		return Signature{Return: Unsupported{Tag: "unreadable method signature"}}
	}

	names := make(map[uint16]string)
	for idx := methodDef.ParamList.Start; idx < methodDef.ParamList.End; idx++ {
		param, err := reader.metadata.Tables.Param.Record(idx)
		internal.PanicOnError(err)
		names[param.Sequence] = param.Name.String()
	}

	signature := Signature{Return: reader.getType(methodSignature.RetType.Type)}
	for i, methodParam := range methodSignature.Param {
		name, ok := names[uint16(i+1)]
		if !ok {
			name = "param" + strconv.Itoa(i)
		}
		signature.Params = append(signature.Params, Param{Name: name, Type: reader.getType(methodParam.Type)})
	}
	return signature
}

func (reader *WinMdReader) MethodImport(method Method) (string, bool) {
	dll, ok := reader.imports[reader.MethodName(method)]
	return dll, ok
}

func (reader *WinMdReader) getType(sigType winmd.SigType) Type {
	if builtIn, found := builtInElementTypes[sigType.Kind]; found {
		return builtIn
	}

	switch sigType.Kind {
	case flags.ElementType_PTR:
		innerSigType, ok := sigType.Value.(winmd.SigType)
		if !ok {
			return Unsupported{Tag: "PTR"}
		}
		return Pointer{Mutable: true, Elem: reader.getType(innerSigType)}
	case flags.ElementType_VALUETYPE, flags.ElementType_CLASS:
		index, ok := sigType.Value.(winmd.CodedIndex)
		if !ok {
			return Unsupported{Tag: "CLASS"}
		}
		name, ok := reader.typeDefOrRefName(index)
		if !ok {
			return Unsupported{Tag: "unresolved type reference"}
		}
		return Named{TypeName: name}
	}

	// Strings, objects, generic parameters and arrays whose shape is not
	// exposed are left to the resolver to reject.
	return Unsupported{Tag: strings.TrimPrefix(sigType.Kind.String(), "ElementType_")}
}

func decodeConstant(kind flags.ElementType, blob []byte) (Value, bool) {
	primitive, ok := builtInElementTypes[kind]
	if ok && primitive != Void {
		var bits uint64
		for i := len(blob) - 1; i >= 0 && i < 8; i-- {
			bits = bits<<8 | uint64(blob[i])
		}
		switch primitive {
		case F32:
			return Value{Kind: F32, Float: float64(math.Float32frombits(uint32(bits)))}, true
		case F64:
			return Value{Kind: F64, Float: math.Float64frombits(bits)}, true
		case Bool:
			return Value{Kind: Bool, Uint: bits & 1}, true
		}
		return IntValue(primitive, bits), true
	}

	if kind == flags.ElementType_STRING {
		units := make([]uint16, len(blob)/2)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(blob[2*i:])
		}
		return Value{IsString: true, String: string(utf16Decode(units))}, true
	}
	return Value{}, false
}

func utf16Decode(units []uint16) []rune {
	runes := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if u >= 0xD800 && u < 0xDC00 && i+1 < len(units) {
			low := rune(units[i+1])
			if low >= 0xDC00 && low < 0xE000 {
				runes = append(runes, (u-0xD800)<<10+(low-0xDC00)+0x10000)
				i++
				continue
			}
		}
		runes = append(runes, u)
	}
	return runes
}

// Decodes SupportedArchitecture(<enum>) into a build expression. The blob is a
// 2-byte prolog followed by the int32 enum argument.
func architectureRequirement(blob []byte) string {
	if len(blob) < 6 {
		return ""
	}
	bits := binary.LittleEndian.Uint32(blob[2:])
	var tags []string
	for _, arch := range architectures {
		if bits&arch.bit != 0 {
			tags = append(tags, arch.tag)
		}
	}
	switch len(tags) {
	case 0:
		return ""
	case 1:
		return tags[0]
	}
	return "(" + strings.Join(tags, " || ") + ")"
}

func iterateOverTable[T any, TP winmd.Record[T]](table winmd.Table[T, TP], action func(winmd.Index, TP)) {
	for idx := uint32(0); idx < table.Len; idx++ {
		element, err := table.Record(winmd.Index(idx))
		internal.PanicOnError(err) // It returns an error only when creating return value and for out of scope file
		action(winmd.Index(idx), element)
	}
}
