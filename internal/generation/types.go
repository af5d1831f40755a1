package generation

import (
	"github.com/dave/jennifer/jen"

	"winmdgen/internal/errors"
	"winmdgen/internal/metadata"
	"winmdgen/internal/model"
)

var goPrimitives = map[metadata.Primitive]string{
	metadata.Bool:  "bool",
	metadata.Char:  "uint16",
	metadata.I8:    "int8",
	metadata.U8:    "uint8",
	metadata.I16:   "int16",
	metadata.U16:   "uint16",
	metadata.I32:   "int32",
	metadata.U32:   "uint32",
	metadata.I64:   "int64",
	metadata.U64:   "uint64",
	metadata.F32:   "float32",
	metadata.F64:   "float64",
	metadata.ISize: "int",
	metadata.USize: "uintptr",
}

// Types of the System namespace provided by the core package.
var coreTypes = map[string]string{
	"Guid": "Guid",
}

func isVoid(expr model.Expr) bool {
	p, ok := expr.(model.Primitive)
	return ok && p.Kind == metadata.Void
}

// ty renders expr as it appears in code declared in namespace ctx.
func (u *unit) ty(ctx string, expr model.Expr) (*jen.Statement, error) {
	switch e := expr.(type) {
	case model.Primitive:
		name, ok := goPrimitives[e.Kind]
		if !ok {
			return nil, errors.Unsupportedf("%s outside a pointer", e.Kind)
		}
		return jen.Id(name), nil
	case model.Pointer:
		if isVoid(e.Elem) {
			return jen.Qual("unsafe", "Pointer"), nil
		}
		elem, err := u.ty(ctx, e.Elem)
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(elem), nil
	case model.Array:
		elem, err := u.ty(ctx, e.Elem)
		if err != nil {
			return nil, err
		}
		return jen.Index(jen.Lit(int(e.Len))).Add(elem), nil
	case model.Named:
		return u.named(ctx, e)
	}
	return nil, errors.Unsupportedf("type expression %T", expr)
}

func (u *unit) named(ctx string, e model.Named) (*jen.Statement, error) {
	var stmt *jen.Statement
	switch {
	case e.Namespace == "System":
		name, ok := coreTypes[e.Name]
		if !ok {
			return nil, errors.Unsupportedf("type System.%s", e.Name)
		}
		stmt = jen.Qual(u.generator.Options.Core, name)
	case u.generator.Options.Flatten || e.Qualifier.IsEmpty():
		stmt = jen.Id(exported(e.Name))
	default:
		stmt = jen.Qual(u.generator.importPath(e.Qualifier.Apply(ctx)), exported(e.Name))
	}

	if len(e.Generics) == 0 {
		return stmt, nil
	}
	args := make([]jen.Code, 0, len(e.Generics))
	for _, generic := range e.Generics {
		arg, err := u.ty(ctx, generic)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return stmt.Types(args...), nil
}

// params renders a parameter list, renaming parameters that collide with Go
// keywords.
func (u *unit) params(ctx string, fields []model.Field) ([]jen.Code, error) {
	params := make([]jen.Code, 0, len(fields))
	for _, field := range fields {
		typ, err := u.ty(ctx, field.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s", field.Name)
		}
		params = append(params, jen.Id(local(field.Name)).Add(typ))
	}
	return params, nil
}

// result renders a return type; void renders as nothing.
func (u *unit) result(ctx string, expr model.Expr) (*jen.Statement, error) {
	if isVoid(expr) {
		return jen.Null(), nil
	}
	typ, err := u.ty(ctx, expr)
	if err != nil {
		return nil, errors.Wrap(err, "result")
	}
	return typ, nil
}
