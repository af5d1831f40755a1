package idl

import (
	"strconv"
	"strings"

	"winmdgen/internal/errors"
)

const indentation = "    "

// Writer is a line oriented printer. A newline request is held until the
// next word so that consecutive requests collapse into one line break. The
// first error sticks and turns every later call into a no-op.
type Writer struct {
	out     strings.Builder
	indent  int
	newline bool
	err     error
}

// Format renders file. Nothing is returned on error.
func Format(file *File) (string, error) {
	w := &Writer{}
	w.file(file)
	if w.err != nil {
		return "", w.err
	}
	return w.out.String(), nil
}

func (w *Writer) word(value string) {
	if w.err != nil {
		return
	}
	if w.newline {
		w.newline = false
		w.out.WriteByte('\n')
		for i := 0; i < w.indent; i++ {
			w.out.WriteString(indentation)
		}
	}
	w.out.WriteString(value)
}

func (w *Writer) line() {
	w.newline = true
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// block renders " { body }" with body one level deeper.
func (w *Writer) block(body func()) {
	w.word(" {")
	w.line()
	func() {
		w.indent++
		defer func() { w.indent-- }()
		body()
	}()
	w.line()
	w.word("}")
}

func (w *Writer) file(file *File) {
	for _, use := range file.Uses {
		w.word("use ")
		w.word(strings.Join(use.Path, "::"))
		w.word(";")
		w.line()
	}
	for _, module := range file.Modules {
		w.module(module)
		w.line()
	}
	if w.newline {
		w.out.WriteByte('\n')
	}
}

func (w *Writer) module(module *Module) {
	w.word("mod ")
	w.word(module.Name)
	w.block(func() {
		for _, member := range module.Members {
			w.member(member)
			w.line()
		}
	})
}

func (w *Writer) member(member Member) {
	switch member := member.(type) {
	case *Module:
		w.module(member)
	case *Interface:
		w.attributes(member.Attributes)
		w.word("interface ")
		w.word(member.Name)
		w.block(func() { w.methods(member.Methods) })
	case *Struct:
		w.attributes(member.Attributes)
		w.word("struct ")
		w.word(member.Name)
		w.block(func() {
			for _, field := range member.Fields {
				w.field(field)
				w.word(",")
				w.line()
			}
		})
	case *Enum:
		w.enum(member)
	case *Class:
		w.attributes(member.Attributes)
		w.word("class ")
		w.word(member.Name)
		w.block(func() {
			for _, constant := range member.Constants {
				w.word("const ")
				w.field(Field{Name: constant.Name, Type: constant.Type})
				w.word(" = ")
				// Floats are only valid as constant values.
				if float, ok := constant.Value.(LitFloat); ok {
					w.word(float.Text)
				} else {
					w.expr(constant.Value)
				}
				w.word(";")
				w.line()
			}
			w.methods(member.Methods)
		})
	default:
		w.fail(errors.Unsupportedf("module member %T", member))
	}
}

func (w *Writer) enum(member *Enum) {
	w.attributes(member.Attributes)
	w.word("enum ")
	w.word(member.Name)
	w.block(func() {
		for _, variant := range member.Variants {
			w.word(variant.Name)
			if variant.Discriminant != nil {
				w.word(" = ")
				w.discriminant(variant.Discriminant)
			}
			w.word(",")
			w.line()
		}
	})
}

func (w *Writer) attributes(attributes []Attribute) {
	for _, attribute := range attributes {
		w.word("#[")
		w.word(attribute.Name)
		if len(attribute.Args) > 0 {
			w.word("(")
			w.word(strings.Join(attribute.Args, ", "))
			w.word(")")
		}
		w.word("]")
		w.line()
	}
}

func (w *Writer) methods(methods []Method) {
	for _, method := range methods {
		w.attributes(method.Attributes)
		w.word("fn ")
		w.word(method.Name)
		w.word("(")
		for i, param := range method.Params {
			if i > 0 {
				w.word(", ")
			}
			w.field(param)
		}
		w.word(")")
		if method.Return != nil {
			w.word(" -> ")
			w.ty(method.Return)
		}
		w.word(";")
		w.line()
	}
}

func (w *Writer) field(field Field) {
	w.word(field.Name)
	w.word(": ")
	w.ty(field.Type)
}

func (w *Writer) ty(ty Type) {
	switch ty := ty.(type) {
	case Path:
		w.word(strings.Join(ty.Segments, "::"))
		if len(ty.Generics) > 0 {
			w.word("<")
			for i, generic := range ty.Generics {
				if i > 0 {
					w.word(", ")
				}
				w.ty(generic)
			}
			w.word(">")
		}
	case Ptr:
		if ty.Mutable {
			w.word("*mut ")
		} else {
			w.word("*const ")
		}
		w.ty(ty.Elem)
	case ArrayType:
		w.word("[")
		w.ty(ty.Elem)
		w.word("; ")
		w.expr(ty.Len)
		w.word("]")
	default:
		w.fail(errors.Unsupportedf("type %T", ty))
	}
}

// Discriminants are integer literals, optionally negated.
func (w *Writer) discriminant(expr Expr) {
	switch e := expr.(type) {
	case LitInt:
		w.expr(e)
		return
	case Neg:
		if _, ok := e.Expr.(LitInt); ok {
			w.expr(e)
			return
		}
	}
	w.fail(errors.Unsupportedf("enum discriminant %#v", expr))
}

func (w *Writer) expr(expr Expr) {
	switch expr := expr.(type) {
	case LitInt:
		w.word(expr.Text)
	case LitStr:
		w.word(strconv.Quote(expr.Value))
	case Neg:
		w.word("-")
		w.expr(expr.Expr)
	default:
		w.fail(errors.Unsupportedf("expression %#v", expr))
	}
}
