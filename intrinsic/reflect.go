package intrinsic

import (
	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
)

// sizeOfKind and alignOfKind give the host's notion of size/alignment for
// an integer/float kind; no teacher equivalent, grounded on spec §4.6's
// "SIZE_OF/ALIGN_OF report the host's size and alignment of the named
// type" note and the ten/three fixed-width kinds already enumerated in
// package ivalue.
func sizeOfKind(k ivalue.Kind) int64 {
	switch k {
	case ivalue.F16:
		return 2
	case ivalue.F32:
		return 4
	case ivalue.F64:
		return 8
	default:
		return int64(k.BitWidth() / 8)
	}
}

func init() {
	register(GET_TYPE_FOR_TYPE_PARAMETER, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		// No CHIR type system is in scope; the type parameter's runtime
		// representative is the Kind tag of whatever value instantiated it.
		return ivalue.Int(ivalue.I32, int64(args[0].Kind)), nil
	})

	register(SIZE_OF, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Int(ivalue.I64, sizeOfKind(ivalue.Kind(args[0].AsInt64()))), nil
	})

	register(ALIGN_OF, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		size := sizeOfKind(ivalue.Kind(args[0].AsInt64()))
		if size > 8 {
			size = 8
		}
		return ivalue.Int(ivalue.I64, size), nil
	})
}
