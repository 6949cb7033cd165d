package ivalue_test

import (
	"testing"

	"github.com/cangjie-lang/bchir/ivalue"
	"github.com/stretchr/testify/assert"
)

func TestIntRoundTrip(t *testing.T) {
	v := ivalue.Int(ivalue.I8, -1)
	assert.Equal(t, int64(-1), v.AsInt64())

	v32 := ivalue.Int(ivalue.I32, -2147483648)
	assert.Equal(t, int64(-2147483648), v32.AsInt64())
}

func TestUintRoundTrip(t *testing.T) {
	v := ivalue.Uint(ivalue.U8, 255)
	assert.Equal(t, uint64(255), v.AsUint64())

	v16 := ivalue.Uint(ivalue.U16, 65535)
	assert.Equal(t, uint64(65535), v16.AsUint64())
}

func TestFloatRoundTrip(t *testing.T) {
	v := ivalue.Float(ivalue.F64, 3.5)
	assert.Equal(t, 3.5, v.AsFloat64())

	v32 := ivalue.Float(ivalue.F32, 1.5)
	assert.Equal(t, 1.5, v32.AsFloat64())
}

func TestBoolTruth(t *testing.T) {
	assert.True(t, ivalue.Bool(true).Truth())
	assert.False(t, ivalue.Bool(false).Truth())
}

func TestArrayLayout(t *testing.T) {
	arr := ivalue.NewArray([]ivalue.IVal{
		ivalue.Int(ivalue.I32, 10),
		ivalue.Int(ivalue.I32, 20),
	})
	assert.EqualValues(t, 2, arr.ArrayLen())
	assert.Equal(t, int64(10), arr.ArrayElem(0).AsInt64())
	assert.Equal(t, int64(20), arr.ArrayElem(1).AsInt64())

	arr.SetArrayElem(0, ivalue.Int(ivalue.I32, 99))
	assert.Equal(t, int64(99), arr.ArrayElem(0).AsInt64())
}

func TestNilIsInvalid(t *testing.T) {
	assert.Equal(t, ivalue.Invalid, ivalue.Nil.Kind)
}

func TestObjectConstruction(t *testing.T) {
	obj := ivalue.Object(7, []ivalue.IVal{ivalue.Int(ivalue.I64, 1)})
	assert.EqualValues(t, 7, obj.ClassID)
	assert.Len(t, obj.Payload, 1)
}
