package interp

import (
	"fmt"
	"math"

	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/ivalue"
	"github.com/cangjie-lang/bchir/source"
)

// Call resolves mangledName against the linked program's function offsets,
// pushes a frame and runs it to completion, mirroring the teacher's
// package-level Call(thread, fn, args) entry point.
func (th *Thread) Call(mangledName string, args []ivalue.IVal) (ivalue.IVal, error) {
	th.init()
	pc, ok := th.program.FuncOffsets[mangledName]
	if !ok {
		return ivalue.Nil, fmt.Errorf("interp: unknown function %q", mangledName)
	}
	fr := th.pushFrame(mangledName, pc)
	copy(fr.Locals, args)
	defer th.popFrame()

	v, sig := th.run(fr)
	if sig.kind != sigNone {
		return ivalue.Nil, &RuntimeError{Value: sig.value, Message: sig.err.Error()}
	}
	return v, nil
}

// run executes fr's definition starting at fr.PC until RETURN/EXIT, or an
// unhandled signal. It is the fetch-decode-dispatch loop shared by every
// call, grounded on the teacher's lang/machine.run "for { switch op {...}
// }" shape, generalized from a tree of opcodes operating on a single
// Value stack to flat bytecode.Decode instructions plus an explicit
// exception-handler PC per _EXC opcode.
func (th *Thread) run(fr *Frame) (ivalue.IVal, signal) {
	code := fr.Def.Code
loop:
	for {
		if err := th.step(); err != nil {
			return ivalue.Nil, errorSignal(ivalue.Nil, err)
		}

		in := bytecode.Decode(code, fr.PC)
		var sig signal

		switch in.Op {
		case bytecode.NOP, bytecode.FRAME:
			// no-op: locals are pre-sized from FuncMeta by pushFrame

		case bytecode.LIT_I8, bytecode.LIT_I16, bytecode.LIT_I32:
			fr.push(ivalue.Int(litKind(in.Op), int64(int32(in.Args[0]))))
		case bytecode.LIT_I64, bytecode.LIT_INAT:
			fr.push(ivalue.Int(litKind(in.Op), int64(word64(in.Args))))
		case bytecode.LIT_U8, bytecode.LIT_U16, bytecode.LIT_U32:
			fr.push(ivalue.Uint(litKind(in.Op), uint64(in.Args[0])))
		case bytecode.LIT_U64, bytecode.LIT_UNAT:
			fr.push(ivalue.Uint(litKind(in.Op), word64(in.Args)))
		case bytecode.LIT_F16, bytecode.LIT_F32:
			fr.push(ivalue.Float(litKind(in.Op), float64(floatFromBits32(in.Args[0]))))
		case bytecode.LIT_F64:
			fr.push(ivalue.Float(ivalue.F64, float64FromBits64(word64(in.Args))))
		case bytecode.LIT_RUNE:
			fr.push(ivalue.Rune(rune(in.Args[0])))
		case bytecode.LIT_BOOL:
			fr.push(ivalue.Bool(in.Args[0] != 0))
		case bytecode.LIT_UNIT:
			fr.push(ivalue.Unit)
		case bytecode.LIT_NULLPTR:
			fr.push(ivalue.Nullptr)
		case bytecode.LIT_STRING:
			fr.push(th.stringLiteral(int(in.Args[0])))
		case bytecode.LIT_FUNC:
			fr.push(ivalue.Func(in.Args[0]))

		case bytecode.LVAR:
			fr.push(fr.Locals[in.Args[0]])
		case bytecode.LVAR_SET:
			fr.Locals[in.Args[0]] = fr.pop()
		case bytecode.GVAR:
			fr.push(th.globals[in.Args[0]])
		case bytecode.GVAR_SET:
			th.globals[in.Args[0]] = fr.pop()

		case bytecode.TUPLE:
			n := int(in.Args[0])
			elems := make([]ivalue.IVal, n)
			copy(elems, fr.popN(n))
			fr.push(ivalue.Tuple(elems))
		case bytecode.ARRAY, bytecode.VARRAY:
			n := int(in.Args[0])
			elems := fr.popN(n)
			content := make([]ivalue.IVal, n)
			copy(content, elems)
			fr.push(ivalue.NewArray(content))
		case bytecode.VARRAY_BY_VALUE:
			execVArrayByValue(fr)
		case bytecode.VARRAY_GET:
			var v ivalue.IVal
			v, sig = th.execVArrayGet(fr, in)
			if sig.kind == sigNone {
				fr.push(v)
			}
		case bytecode.ALLOCATE_RAW_ARRAY:
			var v ivalue.IVal
			v, sig = th.execAllocateRawArray(fr, false, 0)
			if sig.kind == sigNone {
				fr.push(v)
			}
		case bytecode.ALLOCATE_RAW_ARRAY_LITERAL:
			var v ivalue.IVal
			v, sig = th.execAllocateRawArray(fr, true, int(in.Args[0]))
			if sig.kind == sigNone {
				fr.push(v)
			}
		case bytecode.RAW_ARRAY_INIT_BY_VALUE:
			execRawArrayInitByValue(fr)
		case bytecode.RAW_ARRAY_LITERAL_INIT:
			execRawArrayLiteralInit(fr, int(in.Args[0]))
		case bytecode.OBJECT:
			classID, n := in.Args[0], int(in.Args[1])
			fields := make([]ivalue.IVal, n)
			copy(fields, fr.popN(n))
			fr.push(ivalue.Object(classID, fields))
		case bytecode.FIELD:
			idx := in.Args[0]
			obj := fr.pop()
			fr.push(fieldValue(obj, idx))
		case bytecode.FIELD_TPL:
			execFieldTpl(fr, in)
		case bytecode.GETREF:
			sig = th.execGetRef(fr, in)
		case bytecode.STOREINREF:
			sig = th.execStoreInRef(fr, in)
		case bytecode.ASG:
			ptr := fr.pop()
			v := fr.pop()
			*ptr.Ptr = v
			fr.push(ivalue.Unit)
		case bytecode.STORE:
			ptr := fr.pop()
			v := fr.pop()
			*ptr.Ptr = v
		case bytecode.DEREF:
			ptr := fr.pop()
			fr.push(*ptr.Ptr)
		case bytecode.ALLOCATE:
			fr.push(ivalue.Pointer(th.arena.NewTuple(1)))
		case bytecode.ALLOCATE_STRUCT:
			n := int(in.Args[0])
			fr.push(*th.arena.NewTuple(n))
		case bytecode.ALLOCATE_CLASS:
			classID, n := in.Args[0], int(in.Args[1])
			obj := th.arena.NewObject(classID, n, th.finalizerFor(classID))
			fr.push(ivalue.Pointer(obj))

		case bytecode.UN_NEG, bytecode.UN_INC, bytecode.UN_DEC, bytecode.UN_NOT, bytecode.UN_BITNOT:
			sig = th.execUnary(fr, in)
		case bytecode.BIN_ADD, bytecode.BIN_SUB, bytecode.BIN_MUL, bytecode.BIN_DIV, bytecode.BIN_MOD,
			bytecode.BIN_EXP, bytecode.BIN_LT, bytecode.BIN_GT, bytecode.BIN_LE, bytecode.BIN_GE,
			bytecode.BIN_EQUAL, bytecode.BIN_NOTEQ, bytecode.BIN_BITAND, bytecode.BIN_BITOR,
			bytecode.BIN_BITXOR, bytecode.BIN_LSHIFT, bytecode.BIN_RSHIFT:
			sig = th.execBinary(fr, in)

		case bytecode.JUMP:
			fr.PC = in.Args[0]
			continue loop
		case bytecode.BRANCH:
			cond := fr.pop()
			if cond.Truth() {
				fr.PC = in.Args[0]
			} else {
				fr.PC = in.Args[1]
			}
			continue loop
		case bytecode.SWITCH:
			fr.PC = execSwitch(fr, in)
			continue loop

		case bytecode.RETURN:
			return fr.pop(), signal{}
		case bytecode.EXIT:
			return ivalue.Unit, signal{}
		case bytecode.DROP:
			fr.pop()

		case bytecode.APPLY, bytecode.APPLY_EXC:
			var v ivalue.IVal
			v, sig = th.execApply(fr, in)
			if sig.kind == sigNone {
				fr.push(v)
			}
		case bytecode.INVOKE, bytecode.INVOKE_EXC:
			var v ivalue.IVal
			v, sig = th.execInvoke(fr, in)
			if sig.kind == sigNone {
				fr.push(v)
			}
		case bytecode.CAPPLY, bytecode.CAPPLY_EXC:
			var v ivalue.IVal
			v, sig = th.execApply(fr, in) // CAPPLY differs only in calling convention metadata, not in this VM's uniform frame model
			if sig.kind == sigNone {
				fr.push(v)
			}

		case bytecode.TYPECAST:
			sig = th.execCast(fr, in)
		case bytecode.INSTANCEOF:
			sig = th.execInstanceof(fr, in)
		case bytecode.BOX:
			// Boxing is a no-op at the IVal level: every IVal is already
			// uniformly representable, there is no unboxed/boxed distinction.
		case bytecode.UNBOX, bytecode.UNBOX_REF:
			// likewise a no-op

		case bytecode.RAISE:
			v := fr.pop()
			sig = th.classifyRaise(fr, v)
		case bytecode.GET_EXCEPTION:
			fr.push(th.pendingException)

		case bytecode.INTRINSIC0, bytecode.INTRINSIC0_EXC:
			var v ivalue.IVal
			v, sig = th.execIntrinsic(fr, in, 0)
			if sig.kind == sigNone {
				fr.push(v)
			}
		case bytecode.INTRINSIC1, bytecode.INTRINSIC1_EXC:
			var v ivalue.IVal
			v, sig = th.execIntrinsic(fr, in, 1)
			if sig.kind == sigNone {
				fr.push(v)
			}
		case bytecode.INTRINSIC2, bytecode.INTRINSIC2_EXC:
			var v ivalue.IVal
			v, sig = th.execIntrinsic(fr, in, 2)
			if sig.kind == sigNone {
				fr.push(v)
			}

		case bytecode.ABORT:
			return ivalue.Nil, errorSignal(ivalue.Nil, fmt.Errorf("interp: abort"))
		case bytecode.NOT_SUPPORTED:
			return ivalue.Nil, errorSignal(ivalue.Nil, fmt.Errorf("interp: not supported"))
		case bytecode.SYSCALL:
			sig = exceptionSignal(ivalue.Nil, fmt.Errorf("interp: syscall not available in constant evaluation"))
		case bytecode.SPAWN, bytecode.SPAWN_EXC:
			// Const-eval has no concurrency: SPAWN aborts the current
			// evaluation rather than forking (see DESIGN.md's Open Question).
			return ivalue.Nil, errorSignal(ivalue.Nil, fmt.Errorf("interp: spawn is not supported in constant evaluation"))

		default:
			return ivalue.Nil, errorSignal(ivalue.Nil, fmt.Errorf("interp: unimplemented opcode %s", in.Op))
		}

		if sig.kind != sigNone {
			if sig.trace == nil {
				sig.trace = th.Backtrace()
				sig.pos = th.positionFor(fr)
			}
			if sig.kind == sigException && bytecode.HasExceptionHandler(in.Op) {
				th.pendingException = sig.value
				fr.PC = in.Handler
				continue loop
			}
			return ivalue.Nil, sig
		}

		fr.PC = in.Next
	}
}

func litKind(op bytecode.Opcode) ivalue.Kind {
	switch op {
	case bytecode.LIT_I8:
		return ivalue.I8
	case bytecode.LIT_I16:
		return ivalue.I16
	case bytecode.LIT_I32:
		return ivalue.I32
	case bytecode.LIT_I64:
		return ivalue.I64
	case bytecode.LIT_INAT:
		return ivalue.INat
	case bytecode.LIT_U8:
		return ivalue.U8
	case bytecode.LIT_U16:
		return ivalue.U16
	case bytecode.LIT_U32:
		return ivalue.U32
	case bytecode.LIT_U64:
		return ivalue.U64
	case bytecode.LIT_UNAT:
		return ivalue.UNat
	case bytecode.LIT_F16:
		return ivalue.F16
	case bytecode.LIT_F32:
		return ivalue.F32
	default:
		return ivalue.F64
	}
}

func word64(args []bytecode.Word) uint64 {
	return uint64(args[0]) | uint64(args[1])<<32
}

func floatFromBits32(w bytecode.Word) float32 {
	return math.Float32frombits(w)
}

func float64FromBits64(w uint64) float64 {
	return math.Float64frombits(w)
}

func (th *Thread) stringLiteral(idx int) ivalue.IVal {
	s := th.program.Strings[idx]
	bytes := make([]ivalue.IVal, len(s))
	for i := 0; i < len(s); i++ {
		bytes[i] = ivalue.Uint(ivalue.U8, uint64(s[i]))
	}
	return ivalue.NewArray(bytes)
}

func (th *Thread) finalizerFor(classID bytecode.Word) uint32 {
	ci, ok := th.program.ClassTable.Get(classID)
	if !ok {
		return 0
	}
	return ci.FinalizerIdx
}

func execSwitch(fr *Frame, in bytecode.Instr) uint32 {
	n := in.Args[1]
	cases := in.Tail[:2*n]
	targets := in.Tail[2*n:]
	top := fr.pop()
	for i := bytecode.Word(0); i < n; i++ {
		caseVal := uint64(cases[2*i]) | uint64(cases[2*i+1])<<32
		if top.AsUint64() == caseVal || top.AsInt64() == int64(caseVal) {
			return targets[i]
		}
	}
	return targets[n] // default
}

// positionFor resolves fr's current instruction to a source.Position, used
// for a signal's position snapshot and for diagnostics.
func (th *Thread) positionFor(fr *Frame) source.Position {
	return fr.Def.SourcePositionAt(fr.PC)
}

