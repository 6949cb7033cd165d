package intrinsic

import (
	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
)

// Atomics operate on a Pointer IVal referring to a slot (spec §4.6). The
// interpreter is single-threaded, so every ATOMIC_* is a plain load/store:
// there is no teacher equivalent, grounded directly on that spec note
// rather than any concurrency-handling code in nenuphar (which has none).

func init() {
	register(ATOMIC_LOAD, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return *args[0].Ptr, nil
	})

	register(ATOMIC_STORE, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		*args[0].Ptr = args[1]
		return ivalue.Unit, nil
	})

	register(ATOMIC_SWAP, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		old := *args[0].Ptr
		*args[0].Ptr = args[1]
		return old, nil
	})

	register(ATOMIC_COMPARE_AND_SWAP, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		slot, expected, newVal := args[0].Ptr, args[1], args[2]
		if ivalue.RefEqual(*slot, expected) || slot.Bits == expected.Bits && slot.Kind == expected.Kind {
			*slot = newVal
			return ivalue.Bool(true), nil
		}
		return ivalue.Bool(false), nil
	})

	register(ATOMIC_FETCH_ADD, func(_ Context, strategy arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		slot := args[0].Ptr
		old := *slot
		sum, err := arith.Add(old.Kind, strategy, old, args[1])
		if err != nil {
			return ivalue.Nil, err
		}
		*slot = sum
		return old, nil
	})

	register(ATOMIC_FETCH_SUB, func(_ Context, strategy arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		slot := args[0].Ptr
		old := *slot
		diff, err := arith.Sub(old.Kind, strategy, old, args[1])
		if err != nil {
			return ivalue.Nil, err
		}
		*slot = diff
		return old, nil
	})

	register(ATOMIC_FETCH_AND, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		slot := args[0].Ptr
		old := *slot
		*slot = arith.BitAnd(old.Kind, old, args[1])
		return old, nil
	})

	register(ATOMIC_FETCH_OR, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		slot := args[0].Ptr
		old := *slot
		*slot = arith.BitOr(old.Kind, old, args[1])
		return old, nil
	})

	register(ATOMIC_FETCH_XOR, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		slot := args[0].Ptr
		old := *slot
		*slot = arith.BitXor(old.Kind, old, args[1])
		return old, nil
	})
}
