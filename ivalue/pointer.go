package ivalue

import "unsafe"

// Identity returns a value usable as an identity key for v: the address of
// its backing storage for Pointer/Array/Object/Tuple (reference-shaped
// kinds), and 0 for value kinds, which have no identity distinct from their
// content. Used, through RefEqual, by OBJECT_REFEQ and RAW_ARRAY_REFEQ.
func Identity(v IVal) uintptr {
	switch v.Kind {
	case PointerKind:
		return uintptr(unsafe.Pointer(v.Ptr))
	case TupleKind, ArrayKind, ObjectKind:
		if len(v.Payload) == 0 {
			return 0
		}
		return uintptr(unsafe.Pointer(&v.Payload[0]))
	default:
		return 0
	}
}

// RefEqual reports whether a and b are the identical reference (same
// backing storage), per OBJECT_REFEQ / RAW_ARRAY_REFEQ semantics.
func RefEqual(a, b IVal) bool {
	if a.Kind != b.Kind {
		return false
	}
	return Identity(a) == Identity(b)
}
