// Package idl renders the namespace tree as an interface description:
// nested mod blocks holding interface, struct, enum and class items.
package idl

// File is one IDL document.
type File struct {
	Uses    []Use
	Modules []*Module
}

// Use names a type defined outside the document, e.g. use System::Guid;
type Use struct {
	Path []string
}

type Module struct {
	Name    string
	Members []Member
}

// Member is a module item: *Module, *Interface, *Struct, *Enum or *Class.
type Member interface {
	isMember()
}

// Attribute is #[name] or #[name(args)].
type Attribute struct {
	Name string
	Args []string
}

type Interface struct {
	Attributes []Attribute
	Name       string
	Methods    []Method
}

type Method struct {
	Attributes []Attribute
	Name       string
	Params     []Field
	// Return is nil for methods without a result.
	Return Type
}

// Field is a struct field or a method parameter.
type Field struct {
	Name string
	Type Type
}

type Struct struct {
	Attributes []Attribute
	Name       string
	Fields     []Field
}

type Enum struct {
	Attributes []Attribute
	Name       string
	Variants   []Variant
}

type Variant struct {
	Name string
	// Discriminant is optional.
	Discriminant Expr
}

// Class holds constants and static functions.
type Class struct {
	Attributes []Attribute
	Name       string
	Constants  []Const
	Methods    []Method
}

type Const struct {
	Name  string
	Type  Type
	Value Expr
}

func (*Module) isMember()    {}
func (*Interface) isMember() {}
func (*Struct) isMember()    {}
func (*Enum) isMember()      {}
func (*Class) isMember()     {}

// Type is a Path, Ptr or ArrayType.
type Type interface {
	isType()
}

// Path is a possibly qualified type name; super steps to the parent module.
type Path struct {
	Segments []string
	Generics []Type
}

type Ptr struct {
	Mutable bool
	Elem    Type
}

type ArrayType struct {
	Elem Type
	Len  Expr
}

func (Path) isType()      {}
func (Ptr) isType()       {}
func (ArrayType) isType() {}

// Expr is a constant expression: LitInt, LitStr, LitFloat or Neg.
type Expr interface {
	isExpr()
}

type LitInt struct {
	Text string
}

type LitStr struct {
	Value string
}

// LitFloat has no IDL rendering; the writer rejects it.
type LitFloat struct {
	Text string
}

// Neg is unary negation.
type Neg struct {
	Expr Expr
}

func (LitInt) isExpr()   {}
func (LitStr) isExpr()   {}
func (LitFloat) isExpr() {}
func (Neg) isExpr()      {}
