package arith

import (
	"math/big"

	"github.com/cangjie-lang/bchir/ivalue"
)

func signedBounds(width int) (min, max int64) {
	max = int64(1)<<(uint(width)-1) - 1
	min = -max - 1
	return
}

func unsignedMax(width int) uint64 {
	if width == 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(width) - 1
}

// overflowResult carries the exact mathematical result (as big.Int, so it
// is never itself lossy) plus whether it fits in kind's range.
type overflowResult struct {
	exact     *big.Int
	fits      bool
	wrapped   int64  // exact's value truncated to width bits, sign-extended if signed
	uwrapped  uint64 // exact's value truncated to width bits, zero-extended
	saturated *big.Int
}

func evalOverflow(kind ivalue.Kind, exact *big.Int) overflowResult {
	width := kind.BitWidth()
	signed := kind.IsSigned()
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(width)), big.NewInt(1))
	truncated := new(big.Int).And(exact, mask)
	uw := truncated.Uint64()
	var sw int64
	if signed {
		signBit := uint64(1) << (uint(width) - 1)
		if uw&signBit != 0 {
			sw = int64(uw - (signBit << 1))
		} else {
			sw = int64(uw)
		}
	} else {
		sw = int64(uw)
	}

	var fits bool
	var sat *big.Int
	if signed {
		min, max := signedBounds(width)
		fits = exact.Cmp(big.NewInt(min)) >= 0 && exact.Cmp(big.NewInt(max)) <= 0
		if !fits {
			if exact.Sign() < 0 {
				sat = big.NewInt(min)
			} else {
				sat = big.NewInt(max)
			}
		}
	} else {
		maxU := new(big.Int).SetUint64(unsignedMax(width))
		fits = exact.Sign() >= 0 && exact.Cmp(maxU) <= 0
		if !fits {
			if exact.Sign() < 0 {
				sat = big.NewInt(0)
			} else {
				sat = maxU
			}
		}
	}
	return overflowResult{exact: exact, fits: fits, wrapped: sw, uwrapped: uw, saturated: sat}
}

func ivalFromExact(kind ivalue.Kind, r overflowResult, strategy Strategy) (ivalue.IVal, bool) {
	if r.fits {
		if kind.IsSigned() {
			return ivalue.Int(kind, r.wrapped), false
		}
		return ivalue.Uint(kind, r.uwrapped), false
	}
	switch strategy {
	case SATURATING:
		if kind.IsSigned() {
			return ivalue.Int(kind, r.saturated.Int64()), true
		}
		return ivalue.Uint(kind, r.saturated.Uint64()), true
	default: // WRAPPING, CHECKED, THROWING, NA all share the wrapped bit pattern
		if kind.IsSigned() {
			return ivalue.Int(kind, r.wrapped), true
		}
		return ivalue.Uint(kind, r.uwrapped), true
	}
}

// applyStrategy turns the raw (value, overflowed) pair into the IVal the
// opcode actually produces, per spec §4.2: THROWING raises, CHECKED wraps
// in a (Bool, value) Tuple, everything else (incl. NA) is the bare value.
func applyStrategy(value ivalue.IVal, overflowed bool, strategy Strategy) (ivalue.IVal, error) {
	if overflowed && strategy == THROWING {
		return ivalue.Nil, OverflowException()
	}
	if strategy == CHECKED {
		return ivalue.Tuple([]ivalue.IVal{ivalue.Bool(overflowed), value}), nil
	}
	return value, nil
}

func bigOf(kind ivalue.Kind, v ivalue.IVal) *big.Int {
	if kind.IsSigned() {
		return big.NewInt(v.AsInt64())
	}
	return new(big.Int).SetUint64(v.AsUint64())
}

// Add implements BIN_ADD for integer kind.
func Add(kind ivalue.Kind, strategy Strategy, a, b ivalue.IVal) (ivalue.IVal, error) {
	exact := new(big.Int).Add(bigOf(kind, a), bigOf(kind, b))
	r := evalOverflow(kind, exact)
	v, overflowed := ivalFromExact(kind, r, strategy)
	return applyStrategy(v, overflowed, strategy)
}

// Sub implements BIN_SUB for integer kind.
func Sub(kind ivalue.Kind, strategy Strategy, a, b ivalue.IVal) (ivalue.IVal, error) {
	exact := new(big.Int).Sub(bigOf(kind, a), bigOf(kind, b))
	r := evalOverflow(kind, exact)
	v, overflowed := ivalFromExact(kind, r, strategy)
	return applyStrategy(v, overflowed, strategy)
}

// Mul implements BIN_MUL for integer kind.
func Mul(kind ivalue.Kind, strategy Strategy, a, b ivalue.IVal) (ivalue.IVal, error) {
	exact := new(big.Int).Mul(bigOf(kind, a), bigOf(kind, b))
	r := evalOverflow(kind, exact)
	v, overflowed := ivalFromExact(kind, r, strategy)
	return applyStrategy(v, overflowed, strategy)
}

// Exp implements BIN_EXP (integer exponentiation) for integer kind. A
// negative exponent always raises ArithmeticException; overflow of the
// result follows the same rules as repeated multiplication (spec §4.2).
func Exp(kind ivalue.Kind, strategy Strategy, base, exp ivalue.IVal) (ivalue.IVal, error) {
	e := exp.AsInt64()
	if kind.IsSigned() && e < 0 {
		return ivalue.Nil, ArithmeticException("negative exponent")
	}
	exact := new(big.Int).Exp(bigOf(kind, base), big.NewInt(e), nil)
	r := evalOverflow(kind, exact)
	v, overflowed := ivalFromExact(kind, r, strategy)
	return applyStrategy(v, overflowed, strategy)
}

// Neg implements UN_NEG for integer kind.
func Neg(kind ivalue.Kind, strategy Strategy, a ivalue.IVal) (ivalue.IVal, error) {
	exact := new(big.Int).Neg(bigOf(kind, a))
	r := evalOverflow(kind, exact)
	v, overflowed := ivalFromExact(kind, r, strategy)
	return applyStrategy(v, overflowed, strategy)
}

// Inc implements UN_INC (a + 1) for integer kind.
func Inc(kind ivalue.Kind, strategy Strategy, a ivalue.IVal) (ivalue.IVal, error) {
	return Add(kind, strategy, a, identityOne(kind))
}

// Dec implements UN_DEC (a - 1) for integer kind.
func Dec(kind ivalue.Kind, strategy Strategy, a ivalue.IVal) (ivalue.IVal, error) {
	return Sub(kind, strategy, a, identityOne(kind))
}

func identityOne(kind ivalue.Kind) ivalue.IVal {
	if kind.IsSigned() {
		return ivalue.Int(kind, 1)
	}
	return ivalue.Uint(kind, 1)
}

// Div implements BIN_DIV for integer kind. Division by zero always raises
// ArithmeticException regardless of strategy (spec §4.2).
func Div(kind ivalue.Kind, strategy Strategy, a, b ivalue.IVal) (ivalue.IVal, error) {
	if b.AsUint64() == 0 && !kind.IsSigned() || kind.IsSigned() && b.AsInt64() == 0 {
		return ivalue.Nil, ArithmeticException("division by zero")
	}
	// Only the signed min / -1 case can overflow: that is the sole
	// quotient whose magnitude does not fit back into the type.
	exact := new(big.Int).Quo(bigOf(kind, a), bigOf(kind, b))
	r := evalOverflow(kind, exact)
	v, overflowed := ivalFromExact(kind, r, strategy)
	return applyStrategy(v, overflowed, strategy)
}

// Mod implements BIN_MOD for integer kind. Modulo by zero always raises
// ArithmeticException.
func Mod(kind ivalue.Kind, strategy Strategy, a, b ivalue.IVal) (ivalue.IVal, error) {
	if b.AsUint64() == 0 && !kind.IsSigned() || kind.IsSigned() && b.AsInt64() == 0 {
		return ivalue.Nil, ArithmeticException("modulo by zero")
	}
	exact := new(big.Int).Rem(bigOf(kind, a), bigOf(kind, b))
	r := evalOverflow(kind, exact)
	v, overflowed := ivalFromExact(kind, r, strategy)
	return applyStrategy(v, overflowed, strategy)
}

// Shift implements BIN_LSHIFT/BIN_RSHIFT. amount is validated against
// kind's bit width regardless of strategy: negative or >= width always
// raises ArithmeticException (spec §4.2). left selects left vs right shift.
func Shift(kind ivalue.Kind, strategy Strategy, a ivalue.IVal, amount int64, left bool) (ivalue.IVal, error) {
	width := kind.BitWidth()
	if amount < 0 {
		return ivalue.Nil, ArithmeticException("Overshift: Value of right operand is less than 0!")
	}
	if amount >= int64(width) {
		return ivalue.Nil, ArithmeticException("Overshift: Value of right operand is greater than or equal to the width of the left operand!")
	}
	var exact *big.Int
	if left {
		exact = new(big.Int).Lsh(bigOf(kind, a), uint(amount))
	} else if kind.IsSigned() {
		exact = new(big.Int).Rsh(bigOf(kind, a), uint(amount)) // arithmetic shift: big.Int.Rsh on a negative value is arithmetic
	} else {
		exact = new(big.Int).Rsh(bigOf(kind, a), uint(amount))
	}
	r := evalOverflow(kind, exact)
	v, overflowed := ivalFromExact(kind, r, strategy)
	return applyStrategy(v, overflowed, strategy)
}

// bitwise ops never overflow: they operate on the fixed-width pattern directly.

// BitAnd implements BIN_BITAND.
func BitAnd(kind ivalue.Kind, a, b ivalue.IVal) ivalue.IVal {
	return fromMask(kind, a.AsUint64()&b.AsUint64())
}

// BitOr implements BIN_BITOR.
func BitOr(kind ivalue.Kind, a, b ivalue.IVal) ivalue.IVal {
	return fromMask(kind, a.AsUint64()|b.AsUint64())
}

// BitXor implements BIN_BITXOR.
func BitXor(kind ivalue.Kind, a, b ivalue.IVal) ivalue.IVal {
	return fromMask(kind, a.AsUint64()^b.AsUint64())
}

// BitNot implements UN_BITNOT.
func BitNot(kind ivalue.Kind, a ivalue.IVal) ivalue.IVal {
	return fromMask(kind, ^a.AsUint64())
}

func fromMask(kind ivalue.Kind, bits uint64) ivalue.IVal {
	masked := bits & unsignedMax(kind.BitWidth())
	if kind.IsSigned() {
		return ivalue.Int(kind, ivalue.Uint(kind, masked).AsInt64())
	}
	return ivalue.Uint(kind, masked)
}

// Compare implements BIN_LT/GT/LE/GE/EQUAL/NOTEQ for integer kind.
type CompareOp int

const (
	LT CompareOp = iota
	GT
	LE
	GE
	EQ
	NE
)

// Compare evaluates a CompareOp over two integer IVals of the given kind.
func Compare(kind ivalue.Kind, op CompareOp, a, b ivalue.IVal) ivalue.IVal {
	c := bigOf(kind, a).Cmp(bigOf(kind, b))
	var result bool
	switch op {
	case LT:
		result = c < 0
	case GT:
		result = c > 0
	case LE:
		result = c <= 0
	case GE:
		result = c >= 0
	case EQ:
		result = c == 0
	case NE:
		result = c != 0
	}
	return ivalue.Bool(result)
}

// Not implements UN_NOT (boolean negation).
func Not(a ivalue.IVal) ivalue.IVal {
	return ivalue.Bool(!a.Truth())
}
