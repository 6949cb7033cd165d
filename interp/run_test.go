package interp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/image"
	"github.com/cangjie-lang/bchir/ivalue"
)

func program(numLVars uint32) (*image.Bchir, *image.Definition) {
	def := image.NewDefinition()
	def.NumLVars = numLVars
	b := image.NewBchir("test")
	b.LinkedByteCode = def
	b.FuncOffsets = map[string]uint32{"main": 0}
	b.FuncMeta = map[uint32]image.FuncMeta{0: {NumLVars: numLVars}}
	b.ClassTable = image.NewClassTable()
	return b, def
}

func push(d *image.Definition, o bytecode.Opcode, args ...bytecode.Word) {
	d.PushOp(o)
	for _, a := range args {
		d.Push(a)
	}
}

func TestRun_AddReturnsSum(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, 5)
	push(def, bytecode.LIT_I32, 3)
	push(def, bytecode.BIN_ADD, bytecode.Word(ivalue.I32), bytecode.Word(arith.NA))
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), v.AsInt64())
}

func TestRun_ThrowingOverflowPropagatesAsError(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, bytecode.Word(uint32(2147483647)))
	push(def, bytecode.LIT_I32, 1)
	push(def, bytecode.BIN_ADD, bytecode.Word(ivalue.I32), bytecode.Word(arith.THROWING))
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	_, err := th.Call("main", nil)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestRun_LocalsRoundTrip(t *testing.T) {
	prog, def := program(1)
	push(def, bytecode.LIT_BOOL, 1)
	push(def, bytecode.LVAR_SET, 0)
	push(def, bytecode.LVAR, 0)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.True(t, v.Truth())
}

// TestRun_IntrinsicExcCatchesOwnFailure exercises an _EXC opcode catching
// its own dispatch failure in place, without any nested call: the handler
// PC is within the same frame's code.
func TestRun_IntrinsicExcCatchesOwnFailure(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_BOOL, 0) // dummy argument for the (failing) intrinsic
	handlerPatch := def.NextIndex()
	push(def, bytecode.INTRINSIC0_EXC, 0) // kind 0 (Invalid) is never registered -> errors
	def.Push(0)                           // handler PC placeholder, patched below
	push(def, bytecode.LIT_I32, 1)
	push(def, bytecode.RETURN)
	handlerPC := def.NextIndex()
	def.Set(handlerPatch+2, handlerPC)
	push(def, bytecode.LIT_I32, 2)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.AsInt64())
}

func TestRun_StepBudgetExhausted(t *testing.T) {
	prog, def := program(0)
	loopStart := def.NextIndex()
	push(def, bytecode.JUMP, loopStart)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 10
	_, err := th.Call("main", nil)
	require.Error(t, err)
}

func TestRun_FieldObjectAppliesMinusOne(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, 10)
	push(def, bytecode.LIT_I32, 20)
	push(def, bytecode.OBJECT, 0, 2)
	push(def, bytecode.FIELD, 1) // source-level field 1 -> Payload[0] (the class tag is elided)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), v.AsInt64())
}

func TestRun_FieldTupleIsDirectIndex(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, 10)
	push(def, bytecode.LIT_I32, 20)
	push(def, bytecode.TUPLE, 2)
	push(def, bytecode.FIELD, 1) // tuple field 1 -> Payload[1] directly
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(20), v.AsInt64())
}

func TestRun_FieldTplWalksNestedTuples(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, 5)
	push(def, bytecode.TUPLE, 1) // inner = (5)
	push(def, bytecode.LIT_I32, 99)
	push(def, bytecode.TUPLE, 2) // outer = (inner, 99)
	push(def, bytecode.FIELD_TPL, 2, 0, 0)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.AsInt64())
}

func TestRun_AsgStoresThroughPointerAndPushesUnit(t *testing.T) {
	prog, def := program(1)
	push(def, bytecode.ALLOCATE)
	push(def, bytecode.LVAR_SET, 0)
	push(def, bytecode.LIT_I32, 99)
	push(def, bytecode.LVAR, 0)
	push(def, bytecode.ASG)
	push(def, bytecode.DROP) // the Unit ASG pushes
	push(def, bytecode.LVAR, 0)
	push(def, bytecode.DEREF)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(99), v.AsInt64())
}

func TestRun_GetRefStoreInRefObjectField(t *testing.T) {
	prog, def := program(1)
	push(def, bytecode.ALLOCATE_CLASS, 0, 2)
	push(def, bytecode.LVAR_SET, 0)
	push(def, bytecode.LIT_I32, 42)
	push(def, bytecode.LVAR, 0)
	push(def, bytecode.STOREINREF, 1, 0)
	push(def, bytecode.DROP) // the Unit STOREINREF pushes
	push(def, bytecode.LVAR, 0)
	push(def, bytecode.GETREF, 1, 0)
	push(def, bytecode.DEREF)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.AsInt64())
}

func TestRun_GetRefOffsetsArrayIndexByOne(t *testing.T) {
	prog, def := program(1)
	push(def, bytecode.LIT_I32, 3)
	push(def, bytecode.ALLOCATE_RAW_ARRAY)
	push(def, bytecode.LVAR_SET, 0)
	push(def, bytecode.LVAR, 0)
	push(def, bytecode.LIT_I32, 10)
	push(def, bytecode.LIT_I32, 20)
	push(def, bytecode.LIT_I32, 30)
	push(def, bytecode.RAW_ARRAY_LITERAL_INIT, 3)
	push(def, bytecode.DROP) // the Unit RAW_ARRAY_LITERAL_INIT pushes
	push(def, bytecode.LVAR, 0)
	push(def, bytecode.GETREF, 1, 2) // content index 2 -> Payload[2+1]
	push(def, bytecode.DEREF)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(30), v.AsInt64())
}

func TestRun_AllocateRawArrayNegativeSizeRaises(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, bytecode.Word(uint32(int32(-1))))
	push(def, bytecode.ALLOCATE_RAW_ARRAY)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	_, err := th.Call("main", nil)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestRun_VArrayAndVArrayGet(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, 10)
	push(def, bytecode.LIT_I32, 20)
	push(def, bytecode.LIT_I32, 30)
	push(def, bytecode.VARRAY, 3)
	push(def, bytecode.LIT_I32, 1)
	push(def, bytecode.VARRAY_GET, 1)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(20), v.AsInt64())
}

func TestRun_VArrayGetOutOfBoundsRaises(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, 10)
	push(def, bytecode.VARRAY, 1)
	push(def, bytecode.LIT_I32, 5)
	push(def, bytecode.VARRAY_GET, 1)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	_, err := th.Call("main", nil)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
}

func TestRun_ApplyCallsIntoCallee(t *testing.T) {
	prog, def := program(0)
	calleePatch := def.NextIndex()
	push(def, bytecode.LIT_FUNC, 0) // placeholder, patched below
	push(def, bytecode.LIT_I32, 10)
	push(def, bytecode.APPLY, 1)
	push(def, bytecode.RETURN)

	calleePC := def.NextIndex()
	def.Set(calleePatch+1, calleePC)
	push(def, bytecode.LVAR, 0)
	push(def, bytecode.LIT_I32, 1)
	push(def, bytecode.BIN_ADD, bytecode.Word(ivalue.I32), bytecode.Word(arith.NA))
	push(def, bytecode.RETURN)

	prog.FuncMeta[calleePC] = image.FuncMeta{NumArgs: 1, NumLVars: 1}

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), v.AsInt64())
}

// TestRun_RaiseExceptionIsCaughtByNearestHandler exercises the default
// (checkIsError unresolved) classification: a RAISE inside a callee
// unwinds only as far as the caller's APPLY_EXC handler.
func TestRun_RaiseExceptionIsCaughtByNearestHandler(t *testing.T) {
	prog, def := program(0)
	calleePatch := def.NextIndex()
	push(def, bytecode.LIT_FUNC, 0) // placeholder, patched below
	handlerPatch := def.NextIndex()
	push(def, bytecode.APPLY_EXC, 0)
	def.Push(0) // handler PC placeholder, patched below
	push(def, bytecode.LIT_I32, 1)
	push(def, bytecode.RETURN)
	handlerPC := def.NextIndex()
	def.Set(handlerPatch+2, handlerPC)
	push(def, bytecode.LIT_I32, 99)
	push(def, bytecode.RETURN)

	calleePC := def.NextIndex()
	def.Set(calleePatch+1, calleePC)
	push(def, bytecode.LIT_I32, 7)
	push(def, bytecode.RAISE)

	prog.FuncMeta[calleePC] = image.FuncMeta{NumArgs: 0, NumLVars: 0}

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(99), v.AsInt64())
}

// TestRun_RaiseClassifiedAsErrorBubblesPastHandler wires DefaultFuncPtrs's
// CheckIsError slot to a stub that always reports true: the same RAISE,
// inside the same APPLY_EXC handler shape as above, must now skip the
// handler entirely and surface as an uncaught RuntimeError (spec §4.4,
// §7: Errors always bubble to the top).
func TestRun_RaiseClassifiedAsErrorBubblesPastHandler(t *testing.T) {
	prog, def := program(0)
	calleePatch := def.NextIndex()
	push(def, bytecode.LIT_FUNC, 0) // placeholder, patched below
	handlerPatch := def.NextIndex()
	push(def, bytecode.APPLY_EXC, 0)
	def.Push(0) // handler PC placeholder, patched below
	push(def, bytecode.LIT_I32, 1)
	push(def, bytecode.RETURN)
	handlerPC := def.NextIndex()
	def.Set(handlerPatch+2, handlerPC)
	push(def, bytecode.LIT_I32, 99)
	push(def, bytecode.RETURN)

	calleePC := def.NextIndex()
	def.Set(calleePatch+1, calleePC)
	push(def, bytecode.LIT_I32, 7)
	push(def, bytecode.RAISE)

	checkIsErrorPC := def.NextIndex()
	push(def, bytecode.LVAR, 0) // the raised value, ignored
	push(def, bytecode.DROP)
	push(def, bytecode.LIT_BOOL, 1)
	push(def, bytecode.RETURN)

	prog.FuncMeta[calleePC] = image.FuncMeta{NumArgs: 0, NumLVars: 0}
	prog.FuncMeta[checkIsErrorPC] = image.FuncMeta{NumArgs: 1, NumLVars: 1}
	prog.DefaultFuncPtrs[image.CheckIsError] = checkIsErrorPC

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	_, err := th.Call("main", nil)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, int64(7), rerr.Value.AsInt64())
}

func TestThread_RunWithPushArgAndLastResult(t *testing.T) {
	prog, def := program(1)
	push(def, bytecode.LVAR, 0)
	push(def, bytecode.LIT_I32, 1)
	push(def, bytecode.BIN_ADD, bytecode.Word(ivalue.I32), bytecode.Word(arith.NA))
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	th.PushArg(ivalue.Int(ivalue.I32, 41))
	result := th.Run(0, true)
	require.Equal(t, Success, result.Kind)
	assert.Equal(t, int64(42), result.Value.AsInt64())
	assert.Equal(t, result, th.LastResult())
}

func TestThread_RunNotExpectingReturnDropsValue(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, 42)
	push(def, bytecode.RETURN)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	result := th.Run(0, false)
	require.Equal(t, Success, result.Kind)
	assert.Equal(t, ivalue.Unit, result.Value)
}

func TestThread_GetBacktraceAfterException(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, 5)
	push(def, bytecode.RAISE)

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	result := th.Run(0, true)
	require.Equal(t, Exception, result.Kind)

	text, _ := th.GetBacktrace(result.Value)
	assert.Contains(t, text, "main")
}

func TestThread_PopValueOfGlobalExposesLiveSlot(t *testing.T) {
	prog, def := program(0)
	push(def, bytecode.LIT_I32, 1)
	push(def, bytecode.GVAR_SET, 0)
	push(def, bytecode.LIT_UNIT)
	push(def, bytecode.RETURN)
	prog.NumGlobalVars = 1

	th := NewThread(context.Background(), prog)
	th.MaxSteps = 100
	_, err := th.Call("main", nil)
	require.NoError(t, err)

	slot := th.PopValueOfGlobal(0)
	assert.EqualValues(t, 1, slot.AsInt64())
}
