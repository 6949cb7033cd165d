// Package interp implements the BCHIR virtual machine: the fetch-decode-
// dispatch loop over a linked image.Bchir, the argument/control stack
// calling convention, and structured exception unwinding (spec §3.2, §4).
//
// The Thread/Frame shape, the freelist-pooled call frames, and the
// step-counter cancellation convention are a direct generalization of the
// teacher's lang/machine.Thread/Frame and lang/machine.run, retargeted from
// a closure-calling tree-walk-adjacent VM to a fetch-decode-dispatch loop
// over flat bytecode. There is no recover: failures travel as signals, not
// panics.
package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cangjie-lang/bchir/diag"
	"github.com/cangjie-lang/bchir/image"
	"github.com/cangjie-lang/bchir/intrinsic"
	"github.com/cangjie-lang/bchir/ivalue"
	"github.com/cangjie-lang/bchir/source"
)

// Thread is one interpreter execution context: its own call stack, arena,
// and step budget. A Thread runs at most one Run at a time; SPAWN_EXC on
// this interpreter aborts rather than forking a concurrent Thread (see
// DESIGN.md's Open Question decision).
type Thread struct {
	// Stdout/Stderr mirror the teacher's Thread fields; nil defaults to the
	// process standard streams.
	Stdout io.Writer
	Stderr io.Writer

	// MaxSteps caps the number of dispatched instructions before the run is
	// cancelled, mirroring the teacher's MaxSteps/step-counter convention. <=0
	// means unlimited.
	MaxSteps int

	// Diagnostics collects compile-time-diagnostic fallbacks raised while
	// interpreting (spec §6.3, e.g. an unresolved checkIsError). Left nil,
	// a Sink is created lazily on the first diagnostic and stored here.
	Diagnostics *diag.Sink

	program *image.Bchir
	arena   *ivalue.Arena
	globals []ivalue.IVal

	callStack []*Frame
	ctx       context.Context

	steps, maxSteps uint64
	stdout, stderr  io.Writer

	// pendingException holds the value GET_EXCEPTION returns: the most
	// recently caught exception in the currently active handler.
	pendingException ivalue.IVal

	// pendingArgs holds values staged by PushArg, consumed as the entry
	// function's leading locals by the next Run call (spec §6.2).
	pendingArgs []ivalue.IVal
	// lastResult is what LastResult reports (spec §6.2).
	lastResult Result
	// lastException{Value,Trace,Pos} back GetBacktrace: the most recently
	// raised exception/error's value and the trace/position snapshot taken
	// where it was raised (spec §6.2).
	lastExceptionValue ivalue.IVal
	lastExceptionTrace []intrinsic.TraceFrame
	lastExceptionPos   source.Position
	// pcToName is funcNameAt's lazily-built reverse of FuncOffsets.
	pcToName map[uint32]string
}

// NewThread creates a Thread bound to a linked program.
func NewThread(ctx context.Context, program *image.Bchir) *Thread {
	if ctx == nil {
		ctx = context.Background()
	}
	th := &Thread{program: program, arena: ivalue.NewArena(), ctx: ctx}
	th.globals = make([]ivalue.IVal, program.NumGlobalVars)
	if len(program.InitialGlobals) == len(th.globals) {
		// the linker already ran global-init and captured const values
		// (spec §4.7 step 6); start from those instead of all-Invalid.
		copy(th.globals, program.InitialGlobals)
	} else {
		for i := range th.globals {
			th.globals[i] = ivalue.Nil
		}
	}
	return th
}

func (th *Thread) init() {
	if th.MaxSteps <= 0 {
		th.maxSteps--
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.Stdout != nil {
		th.stdout = th.Stdout
	} else {
		th.stdout = os.Stdout
	}
	if th.Stderr != nil {
		th.stderr = th.Stderr
	} else {
		th.stderr = os.Stderr
	}
}

// Arena satisfies intrinsic.Context.
func (th *Thread) Arena() *ivalue.Arena { return th.arena }

// Backtrace satisfies intrinsic.Context, snapshotting the current call
// stack outermost-last (spec §7) as raw {pc, funcStartPc} pairs; decoding
// those into human-readable frames is DecodeFrame's job (spec §4.6,
// SPEC_FULL.md §D.5).
func (th *Thread) Backtrace() []intrinsic.TraceFrame {
	frames := make([]intrinsic.TraceFrame, 0, len(th.callStack))
	for i := len(th.callStack) - 1; i >= 0; i-- {
		fr := th.callStack[i]
		frames = append(frames, intrinsic.TraceFrame{Pc: fr.PC, FuncStartPc: fr.StartPC})
	}
	return frames
}

// DecodeFrame satisfies intrinsic.Context, resolving one TraceFrame against
// the linked image's per-PC mangled-name/source-position annotations and
// the function-offset table (spec §4.6's DECODE_STACK_TRACE). The mangled
// name convention seen throughout this image ("pkgB.callee", a bare class
// name for a finalizer) is a dotted path; the last component is the method,
// everything before it the enclosing class/package.
func (th *Thread) DecodeFrame(tf intrinsic.TraceFrame) (className, methodName, file string, line int) {
	pos := th.program.LinkedByteCode.SourcePositionAt(tf.Pc)
	file = th.program.FileNameOf(pos)
	line = int(pos.Line)

	mangled := th.funcNameAt(tf.FuncStartPc)
	if idx := strings.LastIndexByte(mangled, '.'); idx >= 0 {
		className, methodName = mangled[:idx], mangled[idx+1:]
	} else {
		methodName = mangled
	}
	return className, methodName, file, line
}

// funcNameAt resolves a function's entry PC back to its mangled name via
// a lazily-built reverse of FuncOffsets (the linker only records the
// forward direction, name -> pc).
func (th *Thread) funcNameAt(pc uint32) string {
	if th.pcToName == nil {
		th.pcToName = make(map[uint32]string, len(th.program.FuncOffsets))
		for name, at := range th.program.FuncOffsets {
			th.pcToName[at] = name
		}
	}
	return th.pcToName[pc]
}

// diagnostics lazily creates Diagnostics, mirroring the teacher's
// nil-means-not-configured-yet convention for optional collaborators.
func (th *Thread) diagnostics() *diag.Sink {
	if th.Diagnostics == nil {
		th.Diagnostics = diag.NewSink()
	}
	return th.Diagnostics
}

func (th *Thread) step() error {
	if th.steps++; th.steps > th.maxSteps {
		return fmt.Errorf("interp: step budget exhausted")
	}
	select {
	case <-th.ctx.Done():
		return th.ctx.Err()
	default:
		return nil
	}
}

// Globals exposes the live global-variable slots that GVAR/GVAR_SET read
// and write; the linker reads them after its global-init run to fill the
// image's InitialGlobals.
func (th *Thread) Globals() []ivalue.IVal { return th.globals }

// SetGlobalVars overwrites the global slot table.
func (th *Thread) SetGlobalVars(vals []ivalue.IVal) { th.globals = vals }
