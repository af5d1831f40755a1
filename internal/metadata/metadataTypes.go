package metadata

import (
	"strconv"
	"strings"
)

// TypeDef is an opaque handle to one declared type. Only the Reader that
// handed it out can interpret it.
type TypeDef uint32

// Field is an opaque handle to one declared field.
type Field uint32

// Method is an opaque handle to one declared method.
type Method uint32

// TypeName is a namespace qualified type name.
type TypeName struct {
	Namespace string
	Name      string
}

func (n TypeName) String() string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "." + n.Name
}

// Well known base types deciding the structural kind of a definition.
var (
	SystemEnum              = TypeName{"System", "Enum"}
	SystemValueType         = TypeName{"System", "ValueType"}
	SystemMulticastDelegate = TypeName{"System", "MulticastDelegate"}
)

// Type is a field, parameter or return type as declared in metadata. It is a
// closed set: Primitive, Pointer, Array, Named and Unsupported.
type Type interface {
	isType()
}

// Primitive is one of the fixed-width built-in kinds.
type Primitive uint8

const (
	Void Primitive = iota
	Bool
	Char
	I8
	U8
	I16
	U16
	I32
	U32
	I64
	U64
	F32
	F64
	ISize
	USize
)

var primitiveNames = [...]string{
	Void:  "void",
	Bool:  "bool",
	Char:  "char",
	I8:    "i8",
	U8:    "u8",
	I16:   "i16",
	U16:   "u16",
	I32:   "i32",
	U32:   "u32",
	I64:   "i64",
	U64:   "u64",
	F32:   "f32",
	F64:   "f64",
	ISize: "isize",
	USize: "usize",
}

func (p Primitive) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return "primitive(" + strconv.Itoa(int(p)) + ")"
}

// IsSigned reports whether p is a signed integer kind.
func (p Primitive) IsSigned() bool {
	switch p {
	case I8, I16, I32, I64, ISize:
		return true
	}
	return false
}

// IsInteger reports whether p is an integer kind, including Char.
func (p Primitive) IsInteger() bool {
	switch p {
	case Char, I8, U8, I16, U16, I32, U32, I64, U64, ISize, USize:
		return true
	}
	return false
}

// IsFloat reports whether p is a floating point kind.
func (p Primitive) IsFloat() bool {
	return p == F32 || p == F64
}

// ParsePrimitive looks a primitive up by its short name (i32, usize, ...).
func ParsePrimitive(name string) (Primitive, bool) {
	for i, n := range primitiveNames {
		if n == name {
			return Primitive(i), true
		}
	}
	return 0, false
}

// Pointer is a pointer to Elem. Mutable is false for const pointers.
type Pointer struct {
	Mutable bool
	Elem    Type
}

// Array is a fixed-length inline array.
type Array struct {
	Elem Type
	Len  uint32
}

// Named references a declared type, optionally instantiated with generic
// arguments.
type Named struct {
	TypeName
	Generics []Type
}

// Unsupported is a metadata type shape outside the closed set above, such as
// strings, objects or open generic parameters. Tag names the raw shape.
type Unsupported struct {
	Tag string
}

func (Primitive) isType()   {}
func (Pointer) isType()     {}
func (Array) isType()       {}
func (Named) isType()       {}
func (Unsupported) isType() {}

// Value is the constant attached to a literal field.
type Value struct {
	Kind   Primitive
	Int    int64
	Uint   uint64
	Float  float64
	String string
	// IsString marks string constants, which only appear on API classes.
	IsString bool
}

// IsNegative reports whether v is a signed integer below zero.
func (v Value) IsNegative() bool {
	return !v.IsString && v.Kind.IsSigned() && v.Int < 0
}

// Magnitude returns the absolute value of an integer constant.
func (v Value) Magnitude() uint64 {
	if v.Kind.IsSigned() {
		if v.Int < 0 {
			return uint64(-(v.Int + 1)) + 1
		}
		return uint64(v.Int)
	}
	return v.Uint
}

// Literal renders v in decimal notation.
func (v Value) Literal() string {
	switch {
	case v.IsString:
		return strconv.Quote(v.String)
	case v.Kind == Bool:
		return strconv.FormatBool(v.Uint != 0)
	case v.Kind.IsFloat():
		s := strconv.FormatFloat(v.Float, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s
	case v.Kind.IsSigned():
		return strconv.FormatInt(v.Int, 10)
	default:
		return strconv.FormatUint(v.Uint, 10)
	}
}

// IntValue builds an integer constant of the given kind from its bits.
func IntValue(kind Primitive, bits uint64) Value {
	switch kind {
	case I8:
		return Value{Kind: kind, Int: int64(int8(bits))}
	case I16:
		return Value{Kind: kind, Int: int64(int16(bits))}
	case I32:
		return Value{Kind: kind, Int: int64(int32(bits))}
	case I64, ISize:
		return Value{Kind: kind, Int: int64(bits)}
	case U8:
		return Value{Kind: kind, Uint: uint64(uint8(bits))}
	case U16, Char:
		return Value{Kind: kind, Uint: uint64(uint16(bits))}
	case U32:
		return Value{Kind: kind, Uint: uint64(uint32(bits))}
	default:
		return Value{Kind: kind, Uint: bits}
	}
}

// Param is one method parameter.
type Param struct {
	Name string
	Type Type
}

// Signature is a method's parameter list and return type. Return is Void for
// methods without a result.
type Signature struct {
	Params []Param
	Return Type
}
