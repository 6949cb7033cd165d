package intrinsic

import (
	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
)

func boundsCheck(v ivalue.IVal, idx int64) error {
	if idx < 0 || idx >= v.ArrayLen() {
		return arith.IndexOutOfBoundsException("index out of bounds: %d", idx)
	}
	return nil
}

func init() {
	register(ARRAY_SIZE, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Int(ivalue.I64, args[0].ArrayLen()), nil
	})

	register(ARRAY_GET, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		idx := args[1].AsInt64()
		if err := boundsCheck(args[0], idx); err != nil {
			return ivalue.Nil, err
		}
		return args[0].ArrayElem(idx), nil
	})

	register(ARRAY_GET_UNCHECKED, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return args[0].ArrayElem(args[1].AsInt64()), nil
	})

	register(ARRAY_SET, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		idx := args[1].AsInt64()
		if err := boundsCheck(args[0], idx); err != nil {
			return ivalue.Nil, err
		}
		arr := args[0]
		arr.SetArrayElem(idx, args[2])
		return ivalue.Unit, nil
	})

	register(ARRAY_SET_UNCHECKED, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		arr := args[0]
		arr.SetArrayElem(args[1].AsInt64(), args[2])
		return ivalue.Unit, nil
	})

	register(ARRAY_CLONE, func(ctx Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		src := args[0]
		n := src.ArrayLen()
		dst := ctx.Arena().NewArray(n)
		for i := int64(0); i < n; i++ {
			dst.SetArrayElem(i, src.ArrayElem(i))
		}
		return *dst, nil
	})

	register(ARRAY_INIT, func(ctx Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		n := args[0].AsInt64()
		fill := args[1]
		dst := ctx.Arena().NewArray(n)
		for i := int64(0); i < n; i++ {
			dst.SetArrayElem(i, fill)
		}
		return *dst, nil
	})

	// ARRAY_BUILT_IN_COPY_TO: (src, srcStart, dst, dstStart, len). Overlap-safe:
	// elements are copied front to back when dstStart <= srcStart and back to
	// front otherwise, the same result Go's builtin copy gives over aliasing
	// slices.
	register(ARRAY_BUILT_IN_COPY_TO, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		src, srcStart := args[0], args[1].AsInt64()
		dst, dstStart := args[2], args[3].AsInt64()
		n := args[4].AsInt64()
		if dstStart <= srcStart {
			for i := int64(0); i < n; i++ {
				dst.SetArrayElem(dstStart+i, src.ArrayElem(srcStart+i))
			}
		} else {
			for i := n - 1; i >= 0; i-- {
				dst.SetArrayElem(dstStart+i, src.ArrayElem(srcStart+i))
			}
		}
		return ivalue.Unit, nil
	})

	// ARRAY_SLICE builds the {raw, start, len} 3-tuple (spec §4.6): args are
	// (raw, start, offset, len); the new start is start+offset, computed
	// under the opcode's overflow strategy and raising on overflow.
	register(ARRAY_SLICE, func(_ Context, strategy arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		raw, start, offset, length := args[0], args[1], args[2], args[3]
		newStart, err := arith.Add(ivalue.I64, strategy, start, offset)
		if err != nil {
			return ivalue.Nil, err
		}
		return ivalue.Tuple([]ivalue.IVal{raw, newStart, length}), nil
	})

	register(ARRAY_SLICE_START, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return args[0].Payload[1], nil // the slice tuple's start field
	})

	register(ARRAY_SLICE_RAWARRAY, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return args[0].Payload[0], nil // the slice tuple's raw field
	})

	register(VARRAY_SET, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		arr := args[0]
		arr.SetArrayElem(args[1].AsInt64(), args[2])
		return ivalue.Unit, nil
	})

	register(RAW_ARRAY_REFEQ, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Bool(ivalue.RefEqual(args[0], args[1])), nil
	})

	register(OBJECT_REFEQ, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Bool(ivalue.RefEqual(args[0], args[1])), nil
	})
}
