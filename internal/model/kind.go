// Package model holds the backend independent view of the metadata: the
// structural kind of every definition, resolved type expressions and the
// per-kind shapes both backends render.
package model

import (
	"winmdgen/internal/metadata"
)

// Kind is the structural kind of a type definition.
type Kind uint8

const (
	Interface Kind = iota
	Enum
	Struct
	Delegate
	Class
)

var kindNames = [...]string{
	Interface: "interface",
	Enum:      "enum",
	Struct:    "struct",
	Delegate:  "delegate",
	Class:     "class",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Classify decides the kind of def from its declared base type. A definition
// without a base is an interface; unknown bases are classes.
func Classify(reader metadata.Reader, def metadata.TypeDef) Kind {
	base, ok := reader.TypeDefExtends(def)
	if !ok {
		return Interface
	}

	switch base {
	case metadata.SystemEnum:
		return Enum
	case metadata.SystemValueType:
		return Struct
	case metadata.SystemMulticastDelegate:
		return Delegate
	default:
		return Class
	}
}
