package intrinsic_test

import (
	"testing"

	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/intrinsic"
	"github.com/cangjie-lang/bchir/ivalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCtx struct {
	arena *ivalue.Arena
}

func (f *fakeCtx) Arena() *ivalue.Arena            { return f.arena }
func (f *fakeCtx) Backtrace() []intrinsic.TraceFrame { return nil }
func (f *fakeCtx) DecodeFrame(tf intrinsic.TraceFrame) (string, string, string, int) {
	return "", "", "", 0
}

func newCtx() *fakeCtx { return &fakeCtx{arena: ivalue.NewArena()} }

func TestArraySizeAndGet(t *testing.T) {
	ctx := newCtx()
	arr := ivalue.NewArray([]ivalue.IVal{ivalue.Int(ivalue.I32, 10), ivalue.Int(ivalue.I32, 20)})

	size, err := intrinsic.Dispatch(ctx, intrinsic.ARRAY_SIZE, arith.NA, []ivalue.IVal{arr})
	require.NoError(t, err)
	assert.EqualValues(t, 2, size.AsInt64())

	got, err := intrinsic.Dispatch(ctx, intrinsic.ARRAY_GET, arith.NA, []ivalue.IVal{arr, ivalue.Int(ivalue.I64, 1)})
	require.NoError(t, err)
	assert.EqualValues(t, 20, got.AsInt64())
}

func TestArrayGetOutOfBounds(t *testing.T) {
	ctx := newCtx()
	arr := ivalue.NewArray([]ivalue.IVal{ivalue.Int(ivalue.I32, 10)})
	_, err := intrinsic.Dispatch(ctx, intrinsic.ARRAY_GET, arith.NA, []ivalue.IVal{arr, ivalue.Int(ivalue.I64, 5)})
	require.Error(t, err)
}

func TestArrayClone(t *testing.T) {
	ctx := newCtx()
	arr := ivalue.NewArray([]ivalue.IVal{ivalue.Int(ivalue.I32, 1), ivalue.Int(ivalue.I32, 2)})
	clone, err := intrinsic.Dispatch(ctx, intrinsic.ARRAY_CLONE, arith.NA, []ivalue.IVal{arr})
	require.NoError(t, err)
	assert.EqualValues(t, 2, clone.ArrayLen())
	assert.False(t, ivalue.RefEqual(arr, clone))
}

func TestCStringInitAndStrlen(t *testing.T) {
	ctx := newCtx()
	content := ivalue.NewArray([]ivalue.IVal{
		ivalue.Uint(ivalue.U8, 'h'), ivalue.Uint(ivalue.U8, 'i'),
	})
	ptr, err := intrinsic.Dispatch(ctx, intrinsic.CSTRING_INIT, arith.NA, []ivalue.IVal{content})
	require.NoError(t, err)

	length, err := intrinsic.Dispatch(ctx, intrinsic.STRLEN, arith.NA, []ivalue.IVal{ptr})
	require.NoError(t, err)
	assert.EqualValues(t, 2, length.AsInt64())
}

func TestCPointerReadWrite(t *testing.T) {
	ctx := newCtx()
	ptr, err := intrinsic.Dispatch(ctx, intrinsic.CPOINTER_INIT1, arith.NA, []ivalue.IVal{ivalue.Uint(ivalue.U64, 4)})
	require.NoError(t, err)

	_, err = intrinsic.Dispatch(ctx, intrinsic.CPOINTER_WRITE, arith.NA, []ivalue.IVal{ptr, ivalue.Uint(ivalue.U8, 42)})
	require.NoError(t, err)

	got, err := intrinsic.Dispatch(ctx, intrinsic.CPOINTER_READ, arith.NA, []ivalue.IVal{ptr})
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.AsUint64())
}

func TestOverflowAliasDispatch(t *testing.T) {
	ctx := newCtx()
	a := ivalue.Int(ivalue.I8, 127)
	b := ivalue.Int(ivalue.I8, 1)
	v, err := intrinsic.DispatchByName(ctx, "OVERFLOW_THROWING_ADD", []ivalue.IVal{a, b})
	require.Error(t, err)
	_ = v
}

func TestOverflowAliasWrapping(t *testing.T) {
	ctx := newCtx()
	a := ivalue.Int(ivalue.I8, 127)
	b := ivalue.Int(ivalue.I8, 1)
	v, err := intrinsic.DispatchByName(ctx, "OVERFLOW_WRAPPING_ADD", []ivalue.IVal{a, b})
	require.NoError(t, err)
	assert.EqualValues(t, -128, v.AsInt64())
}

func TestAtomicLoadStore(t *testing.T) {
	ctx := newCtx()
	slot := ivalue.Int(ivalue.I32, 1)
	ptr := ivalue.Pointer(&slot)

	_, err := intrinsic.Dispatch(ctx, intrinsic.ATOMIC_STORE, arith.NA, []ivalue.IVal{ptr, ivalue.Int(ivalue.I32, 99)})
	require.NoError(t, err)

	got, err := intrinsic.Dispatch(ctx, intrinsic.ATOMIC_LOAD, arith.NA, []ivalue.IVal{ptr})
	require.NoError(t, err)
	assert.EqualValues(t, 99, got.AsInt64())
}

func TestSizeOfAlignOf(t *testing.T) {
	ctx := newCtx()
	sz, err := intrinsic.Dispatch(ctx, intrinsic.SIZE_OF, arith.NA, []ivalue.IVal{ivalue.Int(ivalue.I32, int64(ivalue.I64))})
	require.NoError(t, err)
	assert.EqualValues(t, 8, sz.AsInt64())
}

func TestMutexTrylockUncontended(t *testing.T) {
	ctx := newCtx()
	ok, err := intrinsic.Dispatch(ctx, intrinsic.MUTEX_TRYLOCK, arith.NA, nil)
	require.NoError(t, err)
	assert.True(t, ok.Truth())
}

func TestMutexCheckStatus(t *testing.T) {
	ctx := newCtx()
	ok, err := intrinsic.Dispatch(ctx, intrinsic.MUTEX_CHECK_STATUS, arith.NA, nil)
	require.NoError(t, err)
	assert.True(t, ok.Truth())
}

func TestAtomicFetchBitwise(t *testing.T) {
	ctx := newCtx()
	slot := ivalue.Uint(ivalue.U8, 0b1010)
	ptr := ivalue.Pointer(&slot)

	old, err := intrinsic.Dispatch(ctx, intrinsic.ATOMIC_FETCH_AND, arith.NA, []ivalue.IVal{ptr, ivalue.Uint(ivalue.U8, 0b1100)})
	require.NoError(t, err)
	assert.EqualValues(t, 0b1010, old.AsUint64())
	assert.EqualValues(t, 0b1000, slot.AsUint64())

	_, err = intrinsic.Dispatch(ctx, intrinsic.ATOMIC_FETCH_OR, arith.NA, []ivalue.IVal{ptr, ivalue.Uint(ivalue.U8, 0b0101)})
	require.NoError(t, err)
	assert.EqualValues(t, 0b1101, slot.AsUint64())

	_, err = intrinsic.Dispatch(ctx, intrinsic.ATOMIC_FETCH_XOR, arith.NA, []ivalue.IVal{ptr, ivalue.Uint(ivalue.U8, 0b1111)})
	require.NoError(t, err)
	assert.EqualValues(t, 0b0010, slot.AsUint64())
}

func TestGetRealHeapSizeIsZero(t *testing.T) {
	ctx := newCtx()
	v, err := intrinsic.Dispatch(ctx, intrinsic.GET_REAL_HEAP_SIZE, arith.NA, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, v.AsUint64())
}
