package generation

import (
	"sort"
	"strings"

	"github.com/dave/jennifer/jen"

	"winmdgen/internal/errors"
	"winmdgen/internal/metadata"
	"winmdgen/internal/model"
)

// library returns the package variable holding the lazily loaded DLL.
func (u *unit) library(dll string) string {
	if name, ok := u.libraries[dll]; ok {
		return name
	}
	base := strings.TrimSuffix(strings.ToLower(dll), ".dll")
	name := "mod" + packageName(strings.NewReplacer(".", "_", "-", "_").Replace(base))
	u.libraries[dll] = name
	return name
}

func (u *unit) renderLibraries(file *jen.File) {
	dlls := make([]string, 0, len(u.libraries))
	for dll := range u.libraries {
		dlls = append(dlls, dll)
	}
	sort.Strings(dlls)

	file.Var().DefsFunc(func(g *jen.Group) {
		for _, dll := range dlls {
			g.Id(u.libraries[dll]).Op("=").Qual("syscall", "NewLazyDLL").Call(jen.Lit(dll))
		}
	}).Line()
}

// function renders a DLL import as a lazily resolved proc and a wrapper
// calling it through syscall:
//
//	var procSleep = modkernel32.NewProc("Sleep")
//
//	func Sleep(dwMilliseconds uint32) {
//		procSleep.Call(uintptr(dwMilliseconds))
//	}
func (u *unit) function(file *jen.File, ctx string, gate model.Gate, function model.Method) error {
	params, err := u.params(ctx, function.Params)
	if err != nil {
		return err
	}
	result, err := u.result(ctx, function.Return)
	if err != nil {
		return err
	}

	args := make([]jen.Code, 0, len(function.Params))
	for _, param := range function.Params {
		arg, err := u.argument(ctx, param.Type, jen.Id(local(param.Name)))
		if err != nil {
			return errors.Wrapf(err, "parameter %s", param.Name)
		}
		args = append(args, arg)
	}

	proc := "proc" + function.Name
	call := jen.Id(proc).Dot("Call").Call(args...)

	var body []jen.Code
	if isVoid(function.Return) {
		body = append(body, call)
	} else {
		value, err := u.conversion(ctx, function.Return, jen.Id("r1"))
		if err != nil {
			return errors.Wrap(err, "result")
		}
		body = append(body,
			jen.List(jen.Id("r1"), jen.Id("_"), jen.Id("_")).Op(":=").Add(call),
			jen.Return(value),
		)
	}

	file.Var().Id(proc).Op("=").Id(u.library(function.Library)).Dot("NewProc").Call(jen.Lit(function.Name))
	requiredFeatures(file, gate)
	file.Func().Id(exported(function.Name)).Params(params...).Add(result).Block(body...).Line()
	return nil
}

// argument converts a parameter to the uintptr passed to the proc.
func (u *unit) argument(ctx string, expr model.Expr, value *jen.Statement) (jen.Code, error) {
	switch e := expr.(type) {
	case model.Primitive:
		switch {
		case e.Kind == metadata.Bool:
			return jen.Qual(u.generator.Options.Core, "BoolArg").Call(value), nil
		case e.Kind.IsInteger():
			return jen.Id("uintptr").Call(value), nil
		}
		return nil, errors.Unsupportedf("%s argument", e.Kind)
	case model.Pointer:
		if isVoid(e.Elem) {
			return jen.Id("uintptr").Call(value), nil
		}
		return jen.Id("uintptr").Call(jen.Qual("unsafe", "Pointer").Call(value)), nil
	case model.Named:
		target, err := u.lookup(ctx, e)
		if err != nil {
			return nil, err
		}
		switch target.kind {
		case model.Enum:
			return jen.Id("uintptr").Call(value), nil
		case model.Delegate:
			return jen.Qual("syscall", "NewCallback").Call(value), nil
		case model.Struct:
			if target.field != nil {
				return u.argument(ctx, target.field.Type, value.Dot(exported(target.field.Name)))
			}
		}
		return nil, errors.Unsupportedf("%s %s passed by value", target.kind, e.Name)
	}
	return nil, errors.Unsupportedf("%T argument", expr)
}

// conversion turns the raw r1 result back into the declared type.
func (u *unit) conversion(ctx string, expr model.Expr, value *jen.Statement) (jen.Code, error) {
	switch e := expr.(type) {
	case model.Primitive:
		switch {
		case e.Kind == metadata.Bool:
			return value.Op("!=").Lit(0), nil
		case e.Kind.IsInteger():
			return jen.Id(goPrimitives[e.Kind]).Call(value), nil
		}
		return nil, errors.Unsupportedf("%s result", e.Kind)
	case model.Pointer:
		if isVoid(e.Elem) {
			return jen.Qual("unsafe", "Pointer").Call(value), nil
		}
		typ, err := u.ty(ctx, e)
		if err != nil {
			return nil, err
		}
		return jen.Parens(typ).Call(jen.Qual("unsafe", "Pointer").Call(value)), nil
	case model.Named:
		target, err := u.lookup(ctx, e)
		if err != nil {
			return nil, err
		}
		typ, err := u.ty(ctx, e)
		if err != nil {
			return nil, err
		}
		switch {
		case target.kind == model.Enum:
			return typ.Call(value), nil
		case target.kind == model.Struct && target.field != nil:
			inner, err := u.conversion(ctx, target.field.Type, value)
			if err != nil {
				return nil, err
			}
			return typ.Values(jen.Dict{jen.Id(exported(target.field.Name)): inner}), nil
		}
		return nil, errors.Unsupportedf("%s %s returned by value", target.kind, e.Name)
	}
	return nil, errors.Unsupportedf("%T result", expr)
}

type target struct {
	kind model.Kind
	// The only instance field of a struct that fits in a register.
	field *model.Field
}

// lookup classifies a named type. Structs wrapping a single integer or
// pointer, such as handles, are passed in a register like their field.
func (u *unit) lookup(ctx string, e model.Named) (target, error) {
	reader := u.generator.model.Reader()
	def, ok := reader.FindType(metadata.TypeName{Namespace: e.Namespace, Name: e.Name})
	if !ok {
		return target{}, errors.Unsupportedf("type %s.%s is not in the metadata", e.Namespace, e.Name)
	}

	t := target{kind: u.generator.model.Kind(def)}
	if t.kind != model.Struct {
		return t, nil
	}

	var fields []metadata.Field
	for _, field := range reader.TypeDefFields(def) {
		if !reader.FieldIsLiteral(field) {
			fields = append(fields, field)
		}
	}
	if len(fields) != 1 {
		return t, nil
	}

	expr, err := model.Resolve(ctx, reader.FieldType(fields[0]))
	if err != nil {
		return target{}, err
	}
	switch f := expr.(type) {
	case model.Pointer:
	case model.Primitive:
		if !f.Kind.IsInteger() && f.Kind != metadata.Bool {
			return t, nil
		}
	default:
		return t, nil
	}
	t.field = &model.Field{Name: reader.FieldName(fields[0]), Type: expr}
	return t, nil
}
