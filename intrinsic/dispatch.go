package intrinsic

import (
	"fmt"
	"strings"

	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
)

// Context is the host surface an intrinsic needs: the live arena (for
// allocation-backed intrinsics), the running thread's raw backtrace (for
// FILL_IN_STACK_TRACE) and the annotation lookup that decodes one such
// frame (for DECODE_STACK_TRACE). Package interp's Thread implements it.
type Context interface {
	Arena() *ivalue.Arena
	Backtrace() []TraceFrame
	DecodeFrame(TraceFrame) (className, methodName, file string, line int)
}

// TraceFrame is one call-stack entry as FILL_IN_STACK_TRACE actually
// records it: a (pc, funcStartPc) pair into the linked image, not a
// pre-rendered string (spec §4.6, SPEC_FULL.md §D.5). Reserved is carried
// for layout parity with the wider int the original encodes this pair
// into; this module has no use for it beyond round-tripping zero.
type TraceFrame struct {
	Pc          uint32
	FuncStartPc uint32
	Reserved    uint32
}

// Func is the signature every intrinsic handler implements: given the
// already-evaluated argument IVals, produce a result or an error. Overflow
// intrinsics additionally receive a strategy (zero Strategy for the
// non-overflow-aware ones).
type Func func(ctx Context, strategy arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error)

var table = map[Kind]Func{}

func register(k Kind, fn Func) {
	table[k] = fn
}

// Dispatch invokes the intrinsic named kind (INTRINSIC0/1/2's "kind"
// immediate, resolved to a mnemonic by the printer/linker) with args and
// the overflow strategy carried by INTRINSIC2 (0 for INTRINSIC0/1).
func Dispatch(ctx Context, kind Kind, strategy arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
	if fn, ok := table[kind]; ok {
		return fn(ctx, strategy, args)
	}
	return ivalue.Nil, fmt.Errorf("intrinsic: unimplemented kind %s", kind)
}

// DispatchByName resolves an OVERFLOW_<STRATEGY>_<OP> alias (spec §4.6) or
// a plain mnemonic to its Kind and strategy, then dispatches. The linker,
// printer and interpreter do not call it; the interpreter dispatches by
// numeric Kind through Dispatch.
func DispatchByName(ctx Context, name string, args []ivalue.IVal) (ivalue.IVal, error) {
	if k, strategy, ok := resolveOverflowAlias(name); ok {
		return dispatchOverflowAlias(ctx, k, strategy, args)
	}
	k, ok := Lookup(name)
	if !ok {
		return ivalue.Nil, fmt.Errorf("intrinsic: unknown name %q", name)
	}
	return Dispatch(ctx, k, arith.NA, args)
}

type overflowOp int

const (
	opAdd overflowOp = iota
	opSub
	opMul
	opDiv
	opMod
	opPow
	opInc
	opDec
	opNeg
)

var overflowOpNames = map[string]overflowOp{
	"ADD": opAdd, "SUB": opSub, "MUL": opMul, "DIV": opDiv, "MOD": opMod,
	"POW": opPow, "INC": opInc, "DEC": opDec, "NEG": opNeg,
}

var overflowStrategyNames = map[string]arith.Strategy{
	"CHECKED": arith.CHECKED, "THROWING": arith.THROWING,
	"WRAPPING": arith.WRAPPING, "SATURATING": arith.SATURATING,
}

// resolveOverflowAlias parses names of the shape
// OVERFLOW_<STRATEGY>_<OP>, e.g. OVERFLOW_THROWING_ADD (spec §4.6).
func resolveOverflowAlias(name string) (overflowOp, arith.Strategy, bool) {
	const prefix = "OVERFLOW_"
	if !strings.HasPrefix(name, prefix) {
		return 0, 0, false
	}
	rest := strings.TrimPrefix(name, prefix)
	for sname, strat := range overflowStrategyNames {
		if strings.HasPrefix(rest, sname+"_") {
			opName := strings.TrimPrefix(rest, sname+"_")
			if op, ok := overflowOpNames[opName]; ok {
				return op, strat, true
			}
		}
	}
	return 0, 0, false
}

// dispatchOverflowAlias lowers an overflow-intrinsic alias directly to the
// corresponding arith call. args[0] carries the operand kind as a Kind tag
// via its own IVal.Kind field; for INC/DEC/NEG only one operand is given.
func dispatchOverflowAlias(_ Context, op overflowOp, strategy arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
	kind := args[0].Kind
	switch op {
	case opAdd:
		return arith.Add(kind, strategy, args[0], args[1])
	case opSub:
		return arith.Sub(kind, strategy, args[0], args[1])
	case opMul:
		return arith.Mul(kind, strategy, args[0], args[1])
	case opDiv:
		return arith.Div(kind, strategy, args[0], args[1])
	case opMod:
		return arith.Mod(kind, strategy, args[0], args[1])
	case opPow:
		return arith.Exp(kind, strategy, args[0], args[1])
	case opInc:
		return arith.Inc(kind, strategy, args[0])
	case opDec:
		return arith.Dec(kind, strategy, args[0])
	case opNeg:
		return arith.Neg(kind, strategy, args[0])
	default:
		return ivalue.Nil, fmt.Errorf("intrinsic: unhandled overflow alias op %d", op)
	}
}
