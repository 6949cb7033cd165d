// Package ivalue implements the BCHIR runtime value model: the tagged-union
// IVal (spec §3.1) and the arena that owns every aggregate value allocated
// during a Run (spec §3.2).
//
// IVal is a closed tagged sum rather than an interface hierarchy (contrast
// with a Value-interface VM): every opcode in package interp switches on a
// fixed, small set of Kinds, and the intrinsic catalogue in package
// intrinsic pattern-matches concrete variants (an Array's length-prefixed
// payload, an Object's class id), so an open interface would just be
// re-closed with type switches everywhere it is consumed.
package ivalue

import "fmt"

// Kind tags the variant of an IVal.
type Kind uint8

//nolint:revive
const (
	Invalid Kind = iota

	I8
	I16
	I32
	I64
	INat
	U8
	U16
	U32
	U64
	UNat

	F16
	F32
	F64

	RuneKind
	BoolKind
	UnitKind
	NullptrKind

	PointerKind
	TupleKind
	ArrayKind
	ObjectKind
	FuncKind
)

var kindNames = [...]string{
	Invalid:     "invalid",
	I8:          "Int8",
	I16:         "Int16",
	I32:         "Int32",
	I64:         "Int64",
	INat:        "IntNat",
	U8:          "UInt8",
	U16:         "UInt16",
	U32:         "UInt32",
	U64:         "UInt64",
	UNat:        "UIntNat",
	F16:         "Float16",
	F32:         "Float32",
	F64:         "Float64",
	RuneKind:    "Rune",
	BoolKind:    "Bool",
	UnitKind:    "Unit",
	NullptrKind: "Nullptr",
	PointerKind: "Pointer",
	TupleKind:   "Tuple",
	ArrayKind:   "Array",
	ObjectKind:  "Object",
	FuncKind:    "Func",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("illegal kind (%d)", k)
}

// IsInteger reports whether k is one of the ten integer kinds.
func (k Kind) IsInteger() bool {
	switch k {
	case I8, I16, I32, I64, INat, U8, U16, U32, U64, UNat:
		return true
	}
	return false
}

// IsSigned reports whether k is a signed integer kind.
func (k Kind) IsSigned() bool {
	switch k {
	case I8, I16, I32, I64, INat:
		return true
	}
	return false
}

// IsFloat reports whether k is one of the three float kinds.
func (k Kind) IsFloat() bool {
	switch k {
	case F16, F32, F64:
		return true
	}
	return false
}

// BitWidth returns the width in bits of an integer kind on a 64-bit host
// (INat/UNat are 64-bit on 64-bit hosts, 32-bit on 32-bit hosts per spec
// §3.1; this module targets 64-bit hosts).
func (k Kind) BitWidth() int {
	switch k {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32:
		return 32
	case I64, U64, INat, UNat:
		return 64
	}
	return 0
}
