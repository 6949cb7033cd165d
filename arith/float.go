package arith

import (
	"math"

	"github.com/cangjie-lang/bchir/ivalue"
)

// Float ops never check for overflow (spec §4.2): they are plain IEEE 754
// arithmetic in the chosen precision. F16 is computed at float32 precision
// and truncated back, matching the storage convention in ivalue.Float.

// FAdd implements BIN_ADD for float kind.
func FAdd(kind ivalue.Kind, a, b ivalue.IVal) ivalue.IVal {
	return ivalue.Float(kind, a.AsFloat64()+b.AsFloat64())
}

// FSub implements BIN_SUB for float kind.
func FSub(kind ivalue.Kind, a, b ivalue.IVal) ivalue.IVal {
	return ivalue.Float(kind, a.AsFloat64()-b.AsFloat64())
}

// FMul implements BIN_MUL for float kind.
func FMul(kind ivalue.Kind, a, b ivalue.IVal) ivalue.IVal {
	return ivalue.Float(kind, a.AsFloat64()*b.AsFloat64())
}

// FDiv implements BIN_DIV for float kind. Unlike integer division, float
// division by zero is not an error: it produces +-Inf or NaN per IEEE 754.
func FDiv(kind ivalue.Kind, a, b ivalue.IVal) ivalue.IVal {
	return ivalue.Float(kind, a.AsFloat64()/b.AsFloat64())
}

// FMod implements BIN_MOD for float kind.
func FMod(kind ivalue.Kind, a, b ivalue.IVal) ivalue.IVal {
	return ivalue.Float(kind, math.Mod(a.AsFloat64(), b.AsFloat64()))
}

// FExp implements BIN_EXP for float kind.
func FExp(kind ivalue.Kind, base, exp ivalue.IVal) ivalue.IVal {
	return ivalue.Float(kind, math.Pow(base.AsFloat64(), exp.AsFloat64()))
}

// FNeg implements UN_NEG for float kind.
func FNeg(kind ivalue.Kind, a ivalue.IVal) ivalue.IVal {
	return ivalue.Float(kind, -a.AsFloat64())
}

// FCompare implements BIN_LT/GT/LE/GE/EQUAL/NOTEQ for float kind.
func FCompare(op CompareOp, a, b ivalue.IVal) ivalue.IVal {
	x, y := a.AsFloat64(), b.AsFloat64()
	var result bool
	switch op {
	case LT:
		result = x < y
	case GT:
		result = x > y
	case LE:
		result = x <= y
	case GE:
		result = x >= y
	case EQ:
		result = x == y
	case NE:
		result = x != y
	}
	return ivalue.Bool(result)
}
