package model

import (
	"strings"

	"winmdgen/internal/errors"
	"winmdgen/internal/metadata"
	"winmdgen/internal/tree"
)

// Expr is a resolved type expression: Primitive, Pointer, Array or Named.
type Expr interface {
	isExpr()
}

type Primitive struct {
	Kind metadata.Primitive
}

type Pointer struct {
	Mutable bool
	Elem    Expr
}

type Array struct {
	Elem Expr
	Len  uint32
}

// Named references a declared type. Qualifier is relative to the namespace
// the expression was resolved in; Namespace is kept absolute for backends
// that address packages by full path.
type Named struct {
	Qualifier Qualifier
	Namespace string
	Name      string
	Generics  []Expr
}

func (Primitive) isExpr() {}
func (Pointer) isExpr()   {}
func (Array) isExpr()     {}
func (Named) isExpr()     {}

// Qualifier is a relative namespace path: Up parent steps followed by the
// Down segments.
type Qualifier struct {
	Up   int
	Down []string
}

// IsEmpty reports a same-namespace reference.
func (q Qualifier) IsEmpty() bool {
	return q.Up == 0 && len(q.Down) == 0
}

// Segments renders the path using up as the parent step token.
func (q Qualifier) Segments(up string) []string {
	segments := make([]string, 0, q.Up+len(q.Down))
	for i := 0; i < q.Up; i++ {
		segments = append(segments, up)
	}
	return append(segments, q.Down...)
}

// Apply returns the namespace q points at when taken from ctx.
func (q Qualifier) Apply(ctx string) string {
	segments := tree.Segments(ctx)
	if q.Up > len(segments) {
		q.Up = len(segments)
	}
	segments = append(segments[:len(segments)-q.Up:len(segments)-q.Up], q.Down...)
	return strings.Join(segments, ".")
}

// Relative computes the minimal path from ctx to target: one step up per ctx
// segment past the common prefix, then the rest of target.
func Relative(ctx, target string) Qualifier {
	if target == "" || ctx == target {
		return Qualifier{}
	}

	from, to := tree.Segments(ctx), tree.Segments(target)
	common := 0
	for common < len(from) && common < len(to) && from[common] == to[common] {
		common++
	}

	q := Qualifier{Up: len(from) - common}
	if rest := to[common:]; len(rest) > 0 {
		q.Down = append([]string(nil), rest...)
	}
	return q
}

// Resolve maps a metadata type to an expression relative to ctx. Shapes
// outside the primitive, pointer, array and named set fail with
// errors.ErrUnsupported.
func Resolve(ctx string, t metadata.Type) (Expr, error) {
	switch t := t.(type) {
	case metadata.Primitive:
		if t > metadata.USize {
			return nil, errors.Unsupportedf("primitive tag %d", uint8(t))
		}
		return Primitive{Kind: t}, nil
	case metadata.Pointer:
		elem, err := Resolve(ctx, t.Elem)
		if err != nil {
			return nil, err
		}
		return Pointer{Mutable: t.Mutable, Elem: elem}, nil
	case metadata.Array:
		elem, err := Resolve(ctx, t.Elem)
		if err != nil {
			return nil, err
		}
		return Array{Elem: elem, Len: t.Len}, nil
	case metadata.Named:
		named := Named{
			Qualifier: Relative(ctx, t.Namespace),
			Namespace: t.Namespace,
			Name:      t.Name,
		}
		for _, generic := range t.Generics {
			arg, err := Resolve(ctx, generic)
			if err != nil {
				return nil, errors.Wrapf(err, "generic argument of %s", t.TypeName)
			}
			named.Generics = append(named.Generics, arg)
		}
		return named, nil
	case metadata.Unsupported:
		return nil, errors.Unsupportedf("type %q", t.Tag)
	case nil:
		return nil, errors.Unsupportedf("missing type")
	}
	return nil, errors.Unsupportedf("type shape %T", t)
}
