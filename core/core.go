// Package core is the runtime support imported by generated bindings.
package core

import "fmt"

// TypeKind describes how values of a generated type may be handled.
type TypeKind uint8

const (
	// CopyType values are plain data and can be copied bit for bit.
	CopyType TypeKind = iota
)

func (k TypeKind) String() string {
	switch k {
	case CopyType:
		return "copy"
	}
	return fmt.Sprintf("TypeKind(%d)", uint8(k))
}

// Typed is implemented by every generated wrapper type.
type Typed interface {
	TypeKind() TypeKind
}

// Guid is the in-memory layout of System.Guid.
type Guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

func (Guid) TypeKind() TypeKind { return CopyType }

// String formats g in registry form, {00000000-0000-0000-0000-000000000000}.
func (g Guid) String() string {
	return fmt.Sprintf("{%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X}",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1], g.Data4[2], g.Data4[3],
		g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// BoolArg converts a boolean argument for a DLL call.
func BoolArg(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}
