package intrinsic

import (
	"testing"

	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
	"github.com/stretchr/testify/require"
)

// decodingCtx resolves every TraceFrame to one fixed, recognizable frame,
// so the round trip through FILL_IN_STACK_TRACE and DECODE_STACK_TRACE can
// be checked without a real interp.Thread.
type decodingCtx struct {
	arena  *ivalue.Arena
	frames []TraceFrame
}

func (d *decodingCtx) Arena() *ivalue.Arena          { return d.arena }
func (d *decodingCtx) Backtrace() []TraceFrame       { return d.frames }
func (d *decodingCtx) DecodeFrame(tf TraceFrame) (string, string, string, int) {
	return "Greeter", "greet", "greeter.cj", int(tf.Pc)
}

func TestFillAndDecodeStackTrace(t *testing.T) {
	ctx := &decodingCtx{arena: ivalue.NewArena(), frames: []TraceFrame{
		{Pc: 42, FuncStartPc: 10},
		{Pc: 7, FuncStartPc: 0},
	}}

	snapshot, err := Dispatch(ctx, FILL_IN_STACK_TRACE, arith.NA, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, snapshot.ArrayLen())

	first := snapshot.ArrayElem(0)
	require.EqualValues(t, 42, first.Payload[0].AsUint64())
	require.EqualValues(t, 10, first.Payload[1].AsUint64())

	decoded, err := Dispatch(ctx, DECODE_STACK_TRACE, arith.NA, []ivalue.IVal{snapshot})
	require.NoError(t, err)
	text := cstr(decoded)
	require.Contains(t, text, "Greeter.greet(greeter.cj:42)")
	require.Contains(t, text, "Greeter.greet(greeter.cj:7)")
}
