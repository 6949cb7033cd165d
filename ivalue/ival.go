package ivalue

import (
	"fmt"
	"math"
)

// IVal is the tagged-union runtime value (spec §3.1). Aggregates (Tuple,
// Array, Object) carry their payload in Payload; everything else is encoded
// in the Bits/Ptr fields according to Kind.
//
// Array's payload is normative: element 0 is the length as an I64 IVal,
// elements 1..=len are the content, because intrinsics (ARRAY_GET and
// friends) index it directly (spec §3.1).
//
// Object's field index off-by-one (source-level field i reads Payload[i-1])
// is handled by the FIELD opcode in package interp, not here (GETREF and
// STOREINREF use raw, pre-adjusted indices regardless of Tuple vs Object):
// IVal stores the payload as a plain 0-based Go slice.
type IVal struct {
	Kind    Kind
	Bits    uint64 // integers (sign-extended via AsInt64/AsUint64), bool (0/1), rune, float bit pattern
	Ptr     *IVal  // Pointer payload: non-owning reference to an arena/local/global slot
	ClassID uint32 // Object payload
	Payload []IVal // Tuple/Array/Object field slots
	FuncPC  uint32 // Func payload: PC of the function body
}

// Nil is the poison value, the only legal content of an uninitialised
// global slot (spec §3.1).
var Nil = IVal{Kind: Invalid}

// Unit is the sole Unit value.
var Unit = IVal{Kind: UnitKind}

// Nullptr is the sole Nullptr value.
var Nullptr = IVal{Kind: NullptrKind}

// Bool constructs a Bool IVal.
func Bool(b bool) IVal {
	var bits uint64
	if b {
		bits = 1
	}
	return IVal{Kind: BoolKind, Bits: bits}
}

// Int constructs a signed integer IVal of the given kind.
func Int(k Kind, v int64) IVal {
	return IVal{Kind: k, Bits: uint64(v)}
}

// Uint constructs an unsigned integer IVal of the given kind.
func Uint(k Kind, v uint64) IVal {
	return IVal{Kind: k, Bits: v}
}

// Rune constructs a Rune IVal from a 32-bit Unicode scalar value.
func Rune(r rune) IVal {
	return IVal{Kind: RuneKind, Bits: uint64(uint32(r))}
}

// Float constructs a floating point IVal of the given kind. F16 is stored
// as a 32-bit float bit pattern per spec §3.1/§9: lossy, but NaN/Inf and
// finite-value == round-trip.
func Float(k Kind, v float64) IVal {
	switch k {
	case F64:
		return IVal{Kind: k, Bits: math.Float64bits(v)}
	case F32, F16:
		return IVal{Kind: k, Bits: uint64(math.Float32bits(float32(v)))}
	default:
		panic(fmt.Sprintf("ivalue: Float called with non-float kind %s", k))
	}
}

// Func constructs a Func IVal pointing at pc.
func Func(pc uint32) IVal {
	return IVal{Kind: FuncKind, FuncPC: pc}
}

// Pointer constructs a Pointer IVal referring to slot.
func Pointer(slot *IVal) IVal {
	return IVal{Kind: PointerKind, Ptr: slot}
}

// Tuple constructs a Tuple IVal from elems (ownership of the slice passes
// to the returned value).
func Tuple(elems []IVal) IVal {
	return IVal{Kind: TupleKind, Payload: elems}
}

// Object constructs an Object IVal with the given class id and field slots.
func Object(classID uint32, fields []IVal) IVal {
	return IVal{Kind: ObjectKind, ClassID: classID, Payload: fields}
}

// NewArray constructs an Array IVal from content, prefixing the normative
// length element (spec §3.1).
func NewArray(content []IVal) IVal {
	payload := make([]IVal, 0, len(content)+1)
	payload = append(payload, Int(I64, int64(len(content))))
	payload = append(payload, content...)
	return IVal{Kind: ArrayKind, Payload: payload}
}

// ArrayLen returns the normative length field of an Array IVal.
func (v IVal) ArrayLen() int64 {
	return int64(v.Payload[0].Bits)
}

// ArrayElem returns the i-th content element (0-based) of an Array IVal.
func (v IVal) ArrayElem(i int64) IVal {
	return v.Payload[1+i]
}

// SetArrayElem sets the i-th content element (0-based) of an Array IVal.
func (v *IVal) SetArrayElem(i int64, elem IVal) {
	v.Payload[1+i] = elem
}

// AsInt64 returns the value as a sign-extended int64. Valid for signed
// integer and Rune kinds.
func (v IVal) AsInt64() int64 {
	switch v.Kind {
	case I8:
		return int64(int8(v.Bits))
	case I16:
		return int64(int16(v.Bits))
	case I32:
		return int64(int32(v.Bits))
	case I64, INat:
		return int64(v.Bits)
	case RuneKind:
		return int64(int32(uint32(v.Bits)))
	default:
		panic(fmt.Sprintf("ivalue: AsInt64 called on kind %s", v.Kind))
	}
}

// AsUint64 returns the value as a zero-extended uint64. Valid for unsigned
// integer, Bool and Rune kinds.
func (v IVal) AsUint64() uint64 {
	switch v.Kind {
	case U8:
		return uint64(uint8(v.Bits))
	case U16:
		return uint64(uint16(v.Bits))
	case U32:
		return uint64(uint32(v.Bits))
	case U64, UNat:
		return v.Bits
	case BoolKind:
		return v.Bits
	case RuneKind:
		return uint64(uint32(v.Bits))
	default:
		panic(fmt.Sprintf("ivalue: AsUint64 called on kind %s", v.Kind))
	}
}

// AsFloat64 returns the value as a float64. Valid for float kinds.
func (v IVal) AsFloat64() float64 {
	switch v.Kind {
	case F64:
		return math.Float64frombits(v.Bits)
	case F32, F16:
		return float64(math.Float32frombits(uint32(v.Bits)))
	default:
		panic(fmt.Sprintf("ivalue: AsFloat64 called on kind %s", v.Kind))
	}
}

// Truth returns the boolean content of a Bool IVal.
func (v IVal) Truth() bool {
	return v.Kind == BoolKind && v.Bits != 0
}

// String renders a human-readable form, used by the printer and by
// diagnostics/backtrace text.
func (v IVal) String() string {
	switch v.Kind {
	case Invalid:
		return "<invalid>"
	case UnitKind:
		return "()"
	case NullptrKind:
		return "nullptr"
	case BoolKind:
		return fmt.Sprintf("%t", v.Truth())
	case RuneKind:
		return fmt.Sprintf("%q", rune(v.AsInt64()))
	case I8, I16, I32, I64, INat:
		return fmt.Sprintf("%d", v.AsInt64())
	case U8, U16, U32, U64, UNat:
		return fmt.Sprintf("%d", v.AsUint64())
	case F16, F32, F64:
		return fmt.Sprintf("%g", v.AsFloat64())
	case PointerKind:
		return fmt.Sprintf("&%p", v.Ptr)
	case TupleKind:
		return fmt.Sprintf("tuple(%d)", len(v.Payload))
	case ArrayKind:
		return fmt.Sprintf("array(%d)", v.ArrayLen())
	case ObjectKind:
		return fmt.Sprintf("object(class=%d)", v.ClassID)
	case FuncKind:
		return fmt.Sprintf("func(@%d)", v.FuncPC)
	default:
		return v.Kind.String()
	}
}
