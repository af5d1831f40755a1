// The package used for operating on and describing Windows Metadata.
package metadata

// Reader is the read-only query surface over one metadata snapshot. It must
// stay stable for the duration of a generation run; concurrent reads are
// allowed.
type Reader interface {
	// Namespaces lists every namespace in the snapshot.
	Namespaces() []string
	// NamespaceTypes lists the definitions of namespace accepted by filter,
	// in declaration order.
	NamespaceTypes(namespace string, filter Filter) []TypeDef
	// FindType looks a definition up by its qualified name.
	FindType(name TypeName) (TypeDef, bool)

	TypeDefName(def TypeDef) string
	TypeDefNamespace(def TypeDef) string
	// TypeDefExtends returns the declared base type, if any.
	TypeDefExtends(def TypeDef) (TypeName, bool)
	TypeDefFields(def TypeDef) []Field
	TypeDefMethods(def TypeDef) []Method
	// TypeDefIsFlags reports the bitwise-flags marker on an enum.
	TypeDefIsFlags(def TypeDef) bool
	// TypeDefIsScoped reports the scoped-enum marker.
	TypeDefIsScoped(def TypeDef) bool
	// TypeDefRequirements lists conditional-compilation requirements declared
	// on the definition itself, such as a target architecture.
	TypeDefRequirements(def TypeDef) []string

	FieldName(field Field) string
	FieldType(field Field) Type
	FieldIsLiteral(field Field) bool
	FieldConstant(field Field) (Value, bool)

	MethodName(method Method) string
	MethodSignature(method Method) Signature
	// MethodImport returns the library a method is imported from.
	MethodImport(method Method) (string, bool)
}

// Filter decides which definitions take part in a generation run.
type Filter interface {
	Includes(namespace, name string) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(namespace, name string) bool

func (f FilterFunc) Includes(namespace, name string) bool {
	return f(namespace, name)
}

// All includes every definition.
var All Filter = FilterFunc(func(string, string) bool { return true })
