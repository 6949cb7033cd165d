package interp

import (
	"github.com/cangjie-lang/bchir/image"
	"github.com/cangjie-lang/bchir/ivalue"
)

// Frame records one call, grounded on the teacher's lang/machine.Frame:
// the callee's Definition and program counter, plus this VM's argument
// stack and locals (the teacher's Frame instead keeps a Value-shaped
// Callable and lets Go's own call stack hold locals, since it walks a
// closure tree rather than dispatching flat bytecode).
type Frame struct {
	Name    string
	Def     *image.Definition
	PC      uint32
	StartPC uint32 // this call's entry point, for backtrace frame records
	Locals  []ivalue.IVal
	Stack   []ivalue.IVal // this frame's operand (argument) stack
	Handler uint32        // active exception handler PC, 0 if none
}

// pushFrame reuses a Frame left in the slack capacity of th.callStack, if
// any, like the teacher's "use slack portion of thread.stack as a freelist"
// optimization in lang/machine/impl.go's Call.
//
// Locals is sized from the callee's FuncMeta, not Def.NumLVars: once
// linked, every Frame shares the same whole-program Definition, so
// Def.NumLVars only ever describes the synthesized global-init function,
// not the function actually being entered at pc.
func (th *Thread) pushFrame(name string, pc uint32) *Frame {
	var fr *Frame
	if n := len(th.callStack); n < cap(th.callStack) {
		// reuse a slot from the slack capacity, if any frame was left there
		if reused := th.callStack[:n+1][n]; reused != nil {
			fr = reused
		}
	}
	if fr == nil {
		fr = &Frame{}
	}
	meta := th.program.FuncMeta[pc]
	*fr = Frame{
		Name:    name,
		Def:     th.program.LinkedByteCode,
		PC:      pc,
		StartPC: pc,
		Locals:  make([]ivalue.IVal, meta.NumLVars),
	}
	th.callStack = append(th.callStack, fr)
	return fr
}

func (th *Thread) popFrame() {
	th.callStack = th.callStack[:len(th.callStack)-1]
}

func (th *Thread) currentFrame() *Frame {
	return th.callStack[len(th.callStack)-1]
}

// push/pop/popN implement the per-frame operand (argument) stack (spec
// §3.2's "argument stack + control stack" convention).

func (fr *Frame) push(v ivalue.IVal) {
	fr.Stack = append(fr.Stack, v)
}

func (fr *Frame) pop() ivalue.IVal {
	v := fr.Stack[len(fr.Stack)-1]
	fr.Stack = fr.Stack[:len(fr.Stack)-1]
	return v
}

// popN pops the top n values and returns them in push order (oldest
// first), matching how TUPLE/ARRAY/OBJECT expect their element list.
func (fr *Frame) popN(n int) []ivalue.IVal {
	start := len(fr.Stack) - n
	out := fr.Stack[start:]
	fr.Stack = fr.Stack[:start]
	return out
}
