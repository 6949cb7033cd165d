package interp

import (
	"fmt"

	"github.com/cangjie-lang/bchir/image"
	"github.com/cangjie-lang/bchir/intrinsic"
	"github.com/cangjie-lang/bchir/ivalue"
	"github.com/cangjie-lang/bchir/source"
)

// signal classifies how run's dispatch loop should unwind: Error
// (spec §4.4) always propagates to the Thread's caller regardless of any
// _EXC handler in scope, while Exception only unwinds to the nearest
// active handler PC, matching BCHIR's CHECK_IS_ERROR-vs-catch distinction.
type signalKind int

const (
	sigNone signalKind = iota
	sigException
	sigError
)

type signal struct {
	kind  signalKind
	value ivalue.IVal // the raised exception/error object
	err   error       // the Go-level description, always non-nil for non-sigNone

	// trace/pos snapshot where the signal first became non-sigNone (the
	// deepest frame active at the raise), for GetBacktrace (spec §6.2).
	// run() fills these in once, on the way up, so a propagating signal
	// keeps the raise site's view rather than an unwinding caller's.
	trace []intrinsic.TraceFrame
	pos   source.Position
}

func exceptionSignal(value ivalue.IVal, err error) signal {
	return signal{kind: sigException, value: value, err: err}
}

func errorSignal(value ivalue.IVal, err error) signal {
	return signal{kind: sigError, value: value, err: err}
}

// RuntimeError wraps any unhandled signal (an exception or an error) once
// it has propagated out of the Thread with no remaining frame to unwind
// into.
type RuntimeError struct {
	Value   ivalue.IVal
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("interp: uncaught error: %s", e.Message)
}

// classifyRaise implements RAISE's error-vs-exception distinction (spec
// §4.4, §7): a raised Cangjie Error always bubbles straight to the top,
// skipping handler search, while any other raised value only unwinds to
// the nearest active _EXC handler. Which one v is gets decided by
// invoking the linked image's checkIsError default function (spec §6.3);
// when that helper was not resolved at link time, the interpreter falls
// back to a diagnostic and treats v as a plain exception, preserving the
// old always-catchable behavior rather than silently misclassifying.
func (th *Thread) classifyRaise(fr *Frame, v ivalue.IVal) signal {
	pc := th.program.DefaultFuncPtrs[image.CheckIsError]
	if pc == 0 {
		th.diagnostics().Warnf(th.positionFor(fr), "checkIsError is unresolved in the linked image; raised value treated as an Exception")
		return exceptionSignal(v, fmt.Errorf("raised: %s", v))
	}
	isError, sig := th.callAt(pc, []ivalue.IVal{v})
	if sig.kind != sigNone {
		return sig
	}
	if isError.Truth() {
		return errorSignal(v, fmt.Errorf("raised error: %s", v))
	}
	return exceptionSignal(v, fmt.Errorf("raised: %s", v))
}
