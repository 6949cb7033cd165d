package interp

import (
	"fmt"

	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/intrinsic"
	"github.com/cangjie-lang/bchir/ivalue"
)

func kindOf(w bytecode.Word) ivalue.Kind { return ivalue.Kind(w) }
func strategyOf(w bytecode.Word) arith.Strategy { return arith.Strategy(w) }

func (th *Thread) execUnary(fr *Frame, in bytecode.Instr) signal {
	kind, strategy := kindOf(in.Args[0]), strategyOf(in.Args[1])
	a := fr.pop()

	if kind.IsFloat() {
		switch in.Op {
		case bytecode.UN_NEG:
			fr.push(arith.FNeg(kind, a))
		case bytecode.UN_NOT:
			fr.push(arith.Not(a))
		default:
			return exceptionSignal(ivalue.Nil, fmt.Errorf("interp: unsupported float unary op %s", in.Op))
		}
		return signal{}
	}
	if kind == ivalue.BoolKind || a.Kind == ivalue.BoolKind {
		fr.push(arith.Not(a))
		return signal{}
	}

	var v ivalue.IVal
	var err error
	switch in.Op {
	case bytecode.UN_NEG:
		v, err = arith.Neg(kind, strategy, a)
	case bytecode.UN_INC:
		v, err = arith.Inc(kind, strategy, a)
	case bytecode.UN_DEC:
		v, err = arith.Dec(kind, strategy, a)
	case bytecode.UN_NOT:
		v = arith.Not(a)
	case bytecode.UN_BITNOT:
		v = arith.BitNot(kind, a)
	}
	if err != nil {
		return signalFromArith(err)
	}
	fr.push(v)
	return signal{}
}

func signalFromArith(err error) signal {
	if exc, ok := err.(*arith.Exception); ok {
		return exceptionSignal(ivalue.Nil, exc)
	}
	return errorSignal(ivalue.Nil, err)
}

func (th *Thread) execBinary(fr *Frame, in bytecode.Instr) signal {
	kind, strategy := kindOf(in.Args[0]), strategyOf(in.Args[1])
	b := fr.pop()
	a := fr.pop()

	if kind.IsFloat() {
		var v ivalue.IVal
		switch in.Op {
		case bytecode.BIN_ADD:
			v = arith.FAdd(kind, a, b)
		case bytecode.BIN_SUB:
			v = arith.FSub(kind, a, b)
		case bytecode.BIN_MUL:
			v = arith.FMul(kind, a, b)
		case bytecode.BIN_DIV:
			v = arith.FDiv(kind, a, b)
		case bytecode.BIN_MOD:
			v = arith.FMod(kind, a, b)
		case bytecode.BIN_EXP:
			v = arith.FExp(kind, a, b)
		case bytecode.BIN_LT:
			v = arith.FCompare(arith.LT, a, b)
		case bytecode.BIN_GT:
			v = arith.FCompare(arith.GT, a, b)
		case bytecode.BIN_LE:
			v = arith.FCompare(arith.LE, a, b)
		case bytecode.BIN_GE:
			v = arith.FCompare(arith.GE, a, b)
		case bytecode.BIN_EQUAL:
			v = arith.FCompare(arith.EQ, a, b)
		case bytecode.BIN_NOTEQ:
			v = arith.FCompare(arith.NE, a, b)
		default:
			return exceptionSignal(ivalue.Nil, fmt.Errorf("interp: unsupported float binary op %s", in.Op))
		}
		fr.push(v)
		return signal{}
	}

	var v ivalue.IVal
	var err error
	switch in.Op {
	case bytecode.BIN_ADD:
		v, err = arith.Add(kind, strategy, a, b)
	case bytecode.BIN_SUB:
		v, err = arith.Sub(kind, strategy, a, b)
	case bytecode.BIN_MUL:
		v, err = arith.Mul(kind, strategy, a, b)
	case bytecode.BIN_DIV:
		v, err = arith.Div(kind, strategy, a, b)
	case bytecode.BIN_MOD:
		v, err = arith.Mod(kind, strategy, a, b)
	case bytecode.BIN_EXP:
		v, err = arith.Exp(kind, strategy, a, b)
	case bytecode.BIN_LT:
		v = arith.Compare(kind, arith.LT, a, b)
	case bytecode.BIN_GT:
		v = arith.Compare(kind, arith.GT, a, b)
	case bytecode.BIN_LE:
		v = arith.Compare(kind, arith.LE, a, b)
	case bytecode.BIN_GE:
		v = arith.Compare(kind, arith.GE, a, b)
	case bytecode.BIN_EQUAL:
		v = arith.Compare(kind, arith.EQ, a, b)
	case bytecode.BIN_NOTEQ:
		v = arith.Compare(kind, arith.NE, a, b)
	case bytecode.BIN_BITAND:
		v = arith.BitAnd(kind, a, b)
	case bytecode.BIN_BITOR:
		v = arith.BitOr(kind, a, b)
	case bytecode.BIN_BITXOR:
		v = arith.BitXor(kind, a, b)
	case bytecode.BIN_LSHIFT:
		v, err = arith.Shift(kind, strategy, a, b.AsInt64(), true)
	case bytecode.BIN_RSHIFT:
		v, err = arith.Shift(kind, strategy, a, b.AsInt64(), false)
	}
	if err != nil {
		return signalFromArith(err)
	}
	fr.push(v)
	return signal{}
}

func (th *Thread) execCast(fr *Frame, in bytecode.Instr) signal {
	from, to, strategy := kindOf(in.Args[0]), kindOf(in.Args[1]), strategyOf(in.Args[2])
	v := fr.pop()
	result, err := arith.Cast(from, to, strategy, v)
	if err != nil {
		return signalFromArith(err)
	}
	fr.push(result)
	return signal{}
}

func (th *Thread) execInstanceof(fr *Frame, in bytecode.Instr) signal {
	classID := in.Args[0]
	v := fr.pop()
	if v.Kind != ivalue.ObjectKind && v.Kind != ivalue.PointerKind {
		fr.push(ivalue.Bool(false))
		return signal{}
	}
	obj := v
	if v.Kind == ivalue.PointerKind {
		obj = *v.Ptr
	}
	ci, ok := th.program.ClassTable.Get(obj.ClassID)
	if !ok {
		fr.push(ivalue.Bool(obj.ClassID == classID))
		return signal{}
	}
	fr.push(ivalue.Bool(obj.ClassID == classID || ci.IsSubclassOf(classID)))
	return signal{}
}

// pathStep dereferences one step of a GETREF/STOREINREF path: Tuple and
// Object field indices are used as encoded (the lowerer has already
// accounted for Object's implicit class slot at emission time, unlike
// FIELD's source-level index -- spec §9), Array indices are offset by one
// to skip the normative length slot (spec §3.1).
func pathStep(cur *ivalue.IVal, step bytecode.Word) *ivalue.IVal {
	if cur.Kind == ivalue.ArrayKind {
		return &cur.Payload[step+1]
	}
	return &cur.Payload[step]
}

// execGetRef implements GETREF pathLen paths...: pops a Pointer to an
// aggregate and walks path, producing a Pointer to the nested field
// (spec §4.1).
func (th *Thread) execGetRef(fr *Frame, in bytecode.Instr) signal {
	path := in.Tail
	base := fr.pop()
	cur := base.Ptr
	for _, step := range path[:len(path)-1] {
		cur = pathStep(cur, step)
	}
	fr.push(ivalue.Pointer(pathStep(cur, path[len(path)-1])))
	return signal{}
}

// execStoreInRef implements STOREINREF pathLen paths...: pops (value,
// pointer-to-aggregate) and overwrites the nested field named by path
// (spec §4.1).
func (th *Thread) execStoreInRef(fr *Frame, in bytecode.Instr) signal {
	path := in.Tail
	ptr := fr.pop()
	v := fr.pop()
	cur := ptr.Ptr
	for _, step := range path[:len(path)-1] {
		cur = pathStep(cur, step)
	}
	*pathStep(cur, path[len(path)-1]) = v
	fr.push(ivalue.Unit)
	return signal{}
}

// fieldValue implements FIELD i's Object-vs-Tuple index convention (spec
// §9): Object field i reads Payload[i-1] because source-level field 0 is
// the type tag, Tuple reads Payload[i] directly.
func fieldValue(obj ivalue.IVal, idx bytecode.Word) ivalue.IVal {
	if obj.Kind == ivalue.ObjectKind {
		return obj.Payload[idx-1]
	}
	return obj.Payload[idx]
}

// execFieldTpl implements FIELD_TPL pathLen paths...: walks a chain of
// nested Tuple fields and pushes the final one, without the Object
// index adjustment FIELD applies (grounded on the original interpreter's
// InterpretFieldTpl, which only ever unwraps ITuple at each step).
func execFieldTpl(fr *Frame, in bytecode.Instr) {
	path := in.Tail
	cur := fr.pop()
	for _, step := range path[:len(path)-1] {
		cur = cur.Payload[step]
	}
	fr.push(cur.Payload[path[len(path)-1]])
}

// execVArrayGet implements VARRAY_GET pathLen: pops pathLen index operands
// (push order, outermost first) then the base VArray, walks all but the
// last index through nested arrays, and bounds-checks the final index
// (spec §4.6's array family, grounded on InterpretVArrayGet).
func (th *Thread) execVArrayGet(fr *Frame, in bytecode.Instr) (ivalue.IVal, signal) {
	pathLen := int(in.Args[0])
	indices := fr.popN(pathLen)
	arr := fr.pop()
	for _, idx := range indices[:pathLen-1] {
		arr = arr.ArrayElem(idx.AsInt64())
	}
	last := indices[pathLen-1].AsInt64()
	if last < 0 || last >= arr.ArrayLen() {
		return ivalue.Nil, exceptionSignal(ivalue.Nil, arith.IndexOutOfBoundsException("index out of bounds: %d", last))
	}
	return arr.ArrayElem(last), signal{}
}

// execAllocateRawArray implements ALLOCATE_RAW_ARRAY (size popped from the
// stack, raising NegativeArraySizeException if negative) and
// ALLOCATE_RAW_ARRAY_LITERAL n (n elements popped from the stack); both
// push a Pointer to a freshly arena-allocated, length-prefixed Array
// (spec §4.1, grounded on InterpretAllocateRawArray).
func (th *Thread) execAllocateRawArray(fr *Frame, literal bool, n int) (ivalue.IVal, signal) {
	var length int64
	var content []ivalue.IVal
	if literal {
		length = int64(n)
		content = fr.popN(n)
	} else {
		size := fr.pop()
		length = size.AsInt64()
		if length < 0 {
			return ivalue.Nil, exceptionSignal(ivalue.Nil, arith.NegativeArraySizeException(length))
		}
	}
	arr := th.arena.NewArray(length)
	for i, v := range content {
		arr.SetArrayElem(int64(i), v)
	}
	return ivalue.Pointer(arr), signal{}
}

// execRawArrayInitByValue implements RAW_ARRAY_INIT_BY_VALUE: pops
// (pointer-to-array, size, item) and fills every element of the
// already-allocated array with item (spec §4.6, grounded on
// InterpretRawArrayInitByValue).
func execRawArrayInitByValue(fr *Frame) {
	item := fr.pop()
	size := fr.pop().AsInt64()
	arrPtr := fr.pop()
	for i := int64(0); i < size; i++ {
		arrPtr.Ptr.SetArrayElem(i, item)
	}
	fr.push(ivalue.Unit)
}

// execRawArrayLiteralInit implements RAW_ARRAY_LITERAL_INIT n: pops
// (pointer-to-array, v1..vn) and fills the array's first n elements with
// the literal values (spec §4.1, grounded on InterpretRawArrayLiteralInit).
func execRawArrayLiteralInit(fr *Frame, n int) {
	elems := fr.popN(n)
	arrPtr := fr.pop()
	for i, v := range elems {
		arrPtr.Ptr.SetArrayElem(int64(i), v)
	}
	fr.push(ivalue.Unit)
}

// execVArrayByValue implements VARRAY_BY_VALUE: pops (marker, item, size)
// and pushes a length-prefixed Array of size copies of item (spec §4.1,
// grounded on InterpretVArrayByValue).
func execVArrayByValue(fr *Frame) {
	_ = fr.pop() // the literal-origin marker nullptr the lowerer always pushes
	item := fr.pop()
	size := fr.pop().AsInt64()
	content := make([]ivalue.IVal, size)
	for i := range content {
		content[i] = item
	}
	fr.push(ivalue.NewArray(content))
}

// execApply implements APPLY/APPLY_EXC/CAPPLY/CAPPLY_EXC: pop argc
// arguments then the callee Func value, and run it in a fresh frame.
// APPLY/APPLY_EXC carry an explicit argc immediate; CAPPLY/CAPPLY_EXC call
// a closure whose captured environment is baked into the Func IVal's own
// Payload, so no separate argc operand is encoded (spec §4.3's closure
// calling convention).
func (th *Thread) execApply(fr *Frame, in bytecode.Instr) (ivalue.IVal, signal) {
	var args []ivalue.IVal
	var callee ivalue.IVal
	if len(in.Args) > 0 {
		argc := int(in.Args[0])
		args = fr.popN(argc)
		callee = fr.pop()
	} else {
		callee = fr.pop()
		args = callee.Payload
	}
	if callee.Kind != ivalue.FuncKind {
		return ivalue.Nil, errorSignal(ivalue.Nil, fmt.Errorf("interp: apply of non-function value"))
	}
	return th.callAt(callee.FuncPC, args)
}

// execInvoke implements INVOKE/INVOKE_EXC: virtual dispatch through the
// receiver object's class vtable by method id.
func (th *Thread) execInvoke(fr *Frame, in bytecode.Instr) (ivalue.IVal, signal) {
	methodID, argc := in.Args[0], int(in.Args[1])
	args := fr.popN(argc)
	if len(args) == 0 {
		return ivalue.Nil, errorSignal(ivalue.Nil, fmt.Errorf("interp: invoke with no receiver"))
	}
	recv := args[0]
	obj := recv
	if recv.Kind == ivalue.PointerKind {
		obj = *recv.Ptr
	}
	ci, ok := th.program.ClassTable.Get(obj.ClassID)
	if !ok {
		return ivalue.Nil, errorSignal(ivalue.Nil, fmt.Errorf("interp: invoke on unknown class %d", obj.ClassID))
	}
	pc, ok := ci.Dispatch(methodID)
	if !ok {
		return ivalue.Nil, errorSignal(ivalue.Nil, fmt.Errorf("interp: class %d has no method %d", obj.ClassID, methodID))
	}
	return th.callAt(pc, args)
}

func (th *Thread) callAt(pc uint32, args []ivalue.IVal) (ivalue.IVal, signal) {
	fr := th.pushFrame(fmt.Sprintf("@%d", pc), pc)
	copy(fr.Locals, args)
	defer th.popFrame()
	return th.run(fr)
}

// execIntrinsic implements INTRINSIC0/1/2(+_EXC): pop argc (INTRINSIC0's
// variant has none beyond the kind immediate) operand values and dispatch.
func (th *Thread) execIntrinsic(fr *Frame, in bytecode.Instr, arity int) (ivalue.IVal, signal) {
	kind := intrinsic.Kind(in.Args[0])
	strategy := arith.NA
	if arity == 2 {
		strategy = strategyOf(in.Args[2])
	}
	// The operand count for an intrinsic is determined by its kind, not a
	// fixed arity; operands are pushed by the caller before the opcode, so
	// we infer argc from the kind's documented shape where it is fixed, and
	// otherwise default to what's already on the stack for this call site
	// (encoded by the surrounding compiled program, not by this opcode).
	argc := intrinsicArgc(kind)
	args := fr.popN(argc)
	v, err := intrinsic.Dispatch(th, kind, strategy, args)
	if err != nil {
		if exc, ok := err.(*arith.Exception); ok {
			return ivalue.Nil, exceptionSignal(ivalue.Nil, exc)
		}
		return ivalue.Nil, exceptionSignal(ivalue.Nil, err)
	}
	return v, signal{}
}

// intrinsicArgc gives the fixed operand count most intrinsic kinds take;
// this table is grounded on the signatures documented throughout package
// intrinsic's source files.
func intrinsicArgc(k intrinsic.Kind) int {
	switch k {
	case intrinsic.FILL_IN_STACK_TRACE, intrinsic.PREINITIALIZE, intrinsic.INVOKE_GC,
		intrinsic.REGISTER_WATCHED_OBJECT,
		intrinsic.GET_MAX_HEAP_SIZE, intrinsic.GET_ALLOCATE_HEAP_SIZE, intrinsic.GET_REAL_HEAP_SIZE,
		intrinsic.MUTEX_INIT, intrinsic.MONITOR_INIT, intrinsic.WAITQUEUE_INIT,
		intrinsic.MULTICONDITION_INIT, intrinsic.FUTURE_INIT, intrinsic.CPOINTER_INIT0,
		intrinsic.MUTEX_CHECK_STATUS:
		return 0
	case intrinsic.STRLEN, intrinsic.MALLOC, intrinsic.FREE, intrinsic.ARRAY_SIZE,
		intrinsic.ARRAY_CLONE, intrinsic.CSTRING_INIT, intrinsic.CSTRING_CONVERT_CSTR_TO_PTR,
		intrinsic.CPOINTER_INIT1, intrinsic.CPOINTER_READ, intrinsic.CPOINTER_GET_POINTER_ADDRESS,
		intrinsic.ATOMIC_LOAD, intrinsic.CHR, intrinsic.ORD, intrinsic.SLEEP,
		intrinsic.SIZE_OF, intrinsic.ALIGN_OF, intrinsic.GET_TYPE_FOR_TYPE_PARAMETER,
		intrinsic.DECODE_STACK_TRACE, intrinsic.MUTEX_LOCK, intrinsic.MUTEX_UNLOCK,
		intrinsic.MUTEX_TRYLOCK, intrinsic.MONITOR_WAIT, intrinsic.MONITOR_NOTIFY,
		intrinsic.MONITOR_NOTIFY_ALL, intrinsic.MULTICONDITION_WAIT, intrinsic.MULTICONDITION_NOTIFY,
		intrinsic.MULTICONDITION_NOTIFY_ALL, intrinsic.FUTURE_GET_ID,
		intrinsic.ARRAY_SLICE_START, intrinsic.ARRAY_SLICE_RAWARRAY:
		return 1
	case intrinsic.STRCMP, intrinsic.STRCASECMP, intrinsic.CPOINTER_ADD, intrinsic.CPOINTER_WRITE,
		intrinsic.ARRAY_GET, intrinsic.ARRAY_GET_UNCHECKED, intrinsic.ARRAY_INIT,
		intrinsic.RAW_ARRAY_REFEQ, intrinsic.OBJECT_REFEQ, intrinsic.ATOMIC_STORE,
		intrinsic.ATOMIC_SWAP, intrinsic.ATOMIC_FETCH_ADD, intrinsic.ATOMIC_FETCH_SUB,
		intrinsic.ATOMIC_FETCH_AND, intrinsic.ATOMIC_FETCH_OR, intrinsic.ATOMIC_FETCH_XOR:
		return 2
	case intrinsic.STRNCMP, intrinsic.MEMCMP,
		intrinsic.ARRAY_SET, intrinsic.ARRAY_SET_UNCHECKED, intrinsic.VARRAY_SET,
		intrinsic.ATOMIC_COMPARE_AND_SWAP:
		return 3
	case intrinsic.MEMCPY_S, intrinsic.MEMSET_S, intrinsic.ARRAY_SLICE:
		return 4
	case intrinsic.ARRAY_BUILT_IN_COPY_TO:
		return 5
	default:
		return 1
	}
}
