package arith

import (
	"math"
	"math/big"

	"github.com/cangjie-lang/bchir/ivalue"
)

// Cast implements TYPECAST (spec §4.5): int<->int with the declared
// overflow strategy, float->int always throwing with truncation toward
// zero, int->float and float->float are lossless-or-IEEE-rounding and
// never fail.
func Cast(from, to ivalue.Kind, strategy Strategy, v ivalue.IVal) (ivalue.IVal, error) {
	switch {
	case from.IsInteger() && to.IsInteger():
		return castIntInt(from, to, strategy, v)
	case from.IsFloat() && to.IsInteger():
		return castFloatInt(to, v)
	case from.IsInteger() && to.IsFloat():
		return ivalue.Float(to, float64FromInt(from, v)), nil
	case from.IsFloat() && to.IsFloat():
		return ivalue.Float(to, v.AsFloat64()), nil
	default:
		return ivalue.Nil, ArithmeticException("unsupported cast from %s to %s", from, to)
	}
}

func float64FromInt(kind ivalue.Kind, v ivalue.IVal) float64 {
	if kind.IsSigned() {
		return float64(v.AsInt64())
	}
	return float64(v.AsUint64())
}

func castIntInt(from, to ivalue.Kind, strategy Strategy, v ivalue.IVal) (ivalue.IVal, error) {
	exact := bigOf(from, v)
	r := evalOverflow(to, exact)
	result, overflowed := ivalFromExact(to, r, strategy)
	return applyStrategy(result, overflowed, strategy)
}

// castFloatInt implements float->int TYPECAST: always throwing, truncation
// toward zero, NaN and out-of-range both raise OverflowException (spec
// §4.5).
func castFloatInt(to ivalue.Kind, v ivalue.IVal) (ivalue.IVal, error) {
	f := v.AsFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ivalue.Nil, OverflowException()
	}
	truncated := math.Trunc(f)
	exact, _ := big.NewFloat(truncated).Int(nil)
	r := evalOverflow(to, exact)
	if !r.fits {
		return ivalue.Nil, OverflowException()
	}
	if to.IsSigned() {
		return ivalue.Int(to, r.wrapped), nil
	}
	return ivalue.Uint(to, r.uwrapped), nil
}
