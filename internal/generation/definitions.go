package generation

import (
	"github.com/dave/jennifer/jen"

	"winmdgen/internal/errors"
	"winmdgen/internal/metadata"
	"winmdgen/internal/model"
)

// enum renders the wrapper or alias type and, unless minimal, its constants
// and methods.
//
//	scoped           type E u; const E_NAME E = 1
//	unscoped, sys    type E = u; const NAME E = 1
//	unscoped, !sys   type E u; const NAME = E(1)
func (u *unit) enum(file *jen.File, e *model.EnumShape) {
	options := u.generator.Options
	name := exported(e.Name)
	underlying := goPrimitives[e.Underlying]
	wrapper := e.Scoped || !options.Sys

	if wrapper {
		file.Type().Id(name).Id(underlying).Line()
	} else {
		file.Type().Id(name).Op("=").Id(underlying).Line()
	}
	if options.Minimal {
		return
	}

	if len(e.Constants) > 0 {
		file.Const().DefsFunc(func(g *jen.Group) {
			for _, constant := range e.Constants {
				value := jen.Op(constant.Value.Literal())
				switch {
				case e.Scoped:
					g.Id(name + "_" + constant.Name).Id(name).Op("=").Add(value)
				case options.Sys:
					g.Id(exported(constant.Name)).Id(name).Op("=").Add(value)
				default:
					g.Id(exported(constant.Name)).Op("=").Id(name).Call(value)
				}
			}
		}).Line()
	}

	if !wrapper {
		return
	}
	u.typeKind(file, name)
	// Raw bindings get the marker only.
	if options.Sys {
		return
	}
	file.Func().Params(jen.Id("v").Id(name)).Id("String").Params().String().Block(
		jen.Return(jen.Qual("fmt", "Sprintf").Call(jen.Lit(name+"(%d)"), jen.Id(underlying).Call(jen.Id("v")))),
	).Line()
	if e.Flags {
		flagMethods(file, name)
	}
}

func flagMethods(file *jen.File, name string) {
	receiver := jen.Id("v").Id(name)
	other := jen.Id("other").Id(name)

	file.Comment("Contains reports whether every bit of other is set in v.")
	file.Func().Params(receiver.Clone()).Id("Contains").Params(other.Clone()).Bool().Block(
		jen.Return(jen.Id("v").Op("&").Id("other").Op("==").Id("other")),
	).Line()
	file.Func().Params(receiver.Clone()).Id("Or").Params(other.Clone()).Id(name).Block(
		jen.Return(jen.Id("v").Op("|").Id("other")),
	).Line()
	file.Func().Params(receiver.Clone()).Id("And").Params(other.Clone()).Id(name).Block(
		jen.Return(jen.Id("v").Op("&").Id("other")),
	).Line()
	file.Func().Params(receiver.Clone()).Id("Not").Params().Id(name).Block(
		jen.Return(jen.Op("^").Id("v")),
	).Line()
	file.Func().Params(jen.Id("v").Op("*").Id(name)).Id("OrAssign").Params(other.Clone()).Block(
		jen.Op("*").Id("v").Op("|=").Id("other"),
	).Line()
	file.Func().Params(jen.Id("v").Op("*").Id(name)).Id("AndAssign").Params(other.Clone()).Block(
		jen.Op("*").Id("v").Op("&=").Id("other"),
	).Line()
}

// typeKind renders the copy marker of a wrapper type.
func (u *unit) typeKind(file *jen.File, name string) {
	core := u.generator.Options.Core
	file.Func().Params(jen.Id(name)).Id("TypeKind").Params().Qual(core, "TypeKind").Block(
		jen.Return(jen.Qual(core, "CopyType")),
	).Line()
}

func (u *unit) structure(file *jen.File, s *model.StructShape) error {
	fields := make([]jen.Code, 0, len(s.Fields))
	for _, field := range s.Fields {
		typ, err := u.ty(s.Namespace, field.Type)
		if err != nil {
			return errors.Wrapf(err, "field %s", field.Name)
		}
		fields = append(fields, jen.Id(exported(field.Name)).Add(typ))
	}

	name := exported(s.Name)
	file.Type().Id(name).Struct(fields...).Line()
	if !u.generator.Options.Minimal && !u.generator.Options.Sys {
		u.typeKind(file, name)
	}
	return nil
}

func (u *unit) iface(file *jen.File, i *model.InterfaceShape) error {
	methods := make([]jen.Code, 0, len(i.Methods))
	for _, method := range i.Methods {
		params, err := u.params(i.Namespace, method.Params)
		if err != nil {
			return errors.Wrapf(err, "method %s", method.Name)
		}
		result, err := u.result(i.Namespace, method.Return)
		if err != nil {
			return errors.Wrapf(err, "method %s", method.Name)
		}
		methods = append(methods, jen.Id(exported(method.Name)).Params(params...).Add(result))
	}
	file.Type().Id(exported(i.Name)).Interface(methods...).Line()
	return nil
}

func (u *unit) delegate(file *jen.File, d *model.DelegateShape) error {
	params, err := u.params(d.Namespace, d.Invoke.Params)
	if err != nil {
		return err
	}
	result, err := u.result(d.Namespace, d.Invoke.Return)
	if err != nil {
		return err
	}
	file.Type().Id(exported(d.Name)).Func().Params(params...).Add(result).Line()
	return nil
}

// class renders API holder classes as package level constants and
// functions. A class with neither becomes an empty struct. Constants take the
// base gate of the class and each function its own.
func (u *unit) class(c *model.ClassShape) error {
	feature := model.FeatureName(c.Namespace)
	base := u.group(c.Base)

	if len(c.Constants) == 0 && len(c.Functions) == 0 {
		if err := u.generator.declare(c.Namespace, exported(c.Name)); err != nil {
			return err
		}
		file := base.mainFile(u)
		requiredFeatures(file, c.Base)
		file.Type().Id(exported(c.Name)).Struct().Line()
		return nil
	}

	if len(c.Constants) > 0 {
		defs := make([]jen.Code, 0, len(c.Constants))
		for _, constant := range c.Constants {
			name := exported(constant.Name)
			if err := u.generator.declare(c.Namespace, name); err != nil {
				return err
			}
			defs = append(defs, constantDef(name, constant.Value))
		}
		file := base.mainFile(u)
		requiredFeatures(file, c.Base)
		file.Const().Defs(defs...).Line()
	}

	for _, function := range c.Functions {
		if err := u.generator.declare(c.Namespace, exported(function.Name)); err != nil {
			return err
		}
		gate := function.Gate.Without(feature)
		if err := u.function(u.group(gate).nativeFile(u), c.Namespace, gate, function); err != nil {
			return errors.Wrapf(err, "function %s", function.Name)
		}
	}
	return nil
}

func constantDef(name string, value metadata.Value) *jen.Statement {
	switch {
	case value.IsString:
		return jen.Id(name).Op("=").Lit(value.String)
	case value.Kind == metadata.Bool:
		return jen.Id(name).Op("=").Lit(value.Uint != 0)
	}
	return jen.Id(name).Id(goPrimitives[value.Kind]).Op("=").Op(value.Literal())
}
