package intrinsic

import (
	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
)

// The interpreter runs one goroutine per Thread and SPAWN aborts rather
// than forking (see DESIGN.md's Open Question decision), so every
// concurrency primitive below is a no-op that returns a plausible
// placeholder value: there is nothing to actually lock, wait on, or
// signal. Grounded on spec §4.6's explicit "single-threaded" framing for
// this catalogue, not on any teacher code (nenuphar has no concurrency).
func init() {
	for _, k := range []Kind{
		MUTEX_INIT, MONITOR_INIT, WAITQUEUE_INIT, MULTICONDITION_INIT, FUTURE_INIT,
	} {
		k := k
		register(k, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
			return ivalue.Uint(ivalue.U64, 0), nil // opaque handle, unused
		})
	}

	for _, k := range []Kind{
		MUTEX_LOCK, MUTEX_UNLOCK, MONITOR_WAIT, MONITOR_NOTIFY, MONITOR_NOTIFY_ALL,
		MULTICONDITION_WAIT, MULTICONDITION_NOTIFY, MULTICONDITION_NOTIFY_ALL,
	} {
		k := k
		register(k, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
			return ivalue.Unit, nil
		})
	}

	register(MUTEX_TRYLOCK, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Bool(true), nil // uncontended in a single-threaded host
	})

	register(MUTEX_CHECK_STATUS, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Bool(true), nil
	})

	register(FUTURE_GET_ID, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return args[0], nil
	})
}
