package intrinsic

import (
	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
)

func init() {
	register(CSTRING_INIT, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		content := append(arrayBytes(args[0]), 0) // NUL-terminate
		h := allocBuffer(content)
		return packPointer(h, 0), nil
	})

	register(CSTRING_CONVERT_CSTR_TO_PTR, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return args[0], nil // already a pointer-shaped handle
	})

	register(CPOINTER_INIT0, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		return packPointer(0, 0), nil // the null CPointer
	})

	register(CPOINTER_INIT1, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		n := args[0].AsUint64()
		h := allocBuffer(make([]byte, n))
		return packPointer(h, 0), nil
	})

	register(CPOINTER_ADD, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		h, off := unpackPointer(args[0])
		delta := args[1].AsInt64()
		return packPointer(h, uint32(int64(off)+delta)), nil
	})

	register(CPOINTER_READ, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		h, off := unpackPointer(args[0])
		buf := bufferOf(h)
		return ivalue.Uint(ivalue.U8, uint64(buf[off])), nil
	})

	register(CPOINTER_WRITE, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		h, off := unpackPointer(args[0])
		buf := bufferOf(h)
		buf[off] = byte(args[1].AsUint64())
		return ivalue.Unit, nil
	})

	register(CPOINTER_GET_POINTER_ADDRESS, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Uint(ivalue.U64, args[0].AsUint64()), nil
	})
}
