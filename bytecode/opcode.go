// Package bytecode defines the BCHIR instruction set: the closed opcode
// enumeration, the fixed 32-bit word encoding of each instruction's
// immediates, and the decoder shared by the interpreter and the printer so
// that both agree on how many words an instruction occupies.
//
// The instruction set is deliberately a flat, 8-bit enumeration in the style
// of a bytecode VM's dispatch table: every opcode has a known, computable
// encoded width, and "plain" opcodes that may fail come in a second,
// "_EXC" flavored form that carries one extra trailing word (the PC of the
// exception handler) and pushes a control frame with an unwinding target.
package bytecode

import "fmt"

// Word is the 32-bit unit of BCHIR bytecode. 64-bit immediates are packed as
// two consecutive words, low word first (little-endian word order).
type Word = uint32

// Opcode is a single BCHIR instruction.
type Opcode uint8

//nolint:revive
const (
	NOP Opcode = iota

	// --- constants & literals ---
	LIT_I8
	LIT_I16
	LIT_I32
	LIT_I64
	LIT_INAT
	LIT_U8
	LIT_U16
	LIT_U32
	LIT_U64
	LIT_UNAT
	LIT_F16
	LIT_F32
	LIT_F64
	LIT_RUNE
	LIT_BOOL
	LIT_UNIT
	LIT_NULLPTR
	LIT_STRING // pool index
	LIT_FUNC   // pc

	// --- environment ---
	LVAR
	LVAR_SET
	GVAR
	GVAR_SET
	FRAME

	// --- aggregates ---
	TUPLE
	ARRAY
	VARRAY
	VARRAY_BY_VALUE
	VARRAY_GET
	OBJECT
	FIELD
	FIELD_TPL
	GETREF
	STOREINREF
	ASG
	STORE
	DEREF
	ALLOCATE
	ALLOCATE_STRUCT
	ALLOCATE_CLASS
	ALLOCATE_RAW_ARRAY
	ALLOCATE_RAW_ARRAY_LITERAL
	RAW_ARRAY_INIT_BY_VALUE
	RAW_ARRAY_LITERAL_INIT

	// --- unary arithmetic (type-kind + overflow-strategy immediates) ---
	UN_NEG
	UN_INC
	UN_DEC
	UN_NOT
	UN_BITNOT

	// --- binary arithmetic & comparison (type-kind + overflow-strategy immediates) ---
	BIN_ADD
	BIN_SUB
	BIN_MUL
	BIN_DIV
	BIN_MOD
	BIN_EXP
	BIN_LT
	BIN_GT
	BIN_LE
	BIN_GE
	BIN_EQUAL
	BIN_NOTEQ
	BIN_BITAND
	BIN_BITOR
	BIN_BITXOR
	BIN_LSHIFT // extra rhs-type-kind immediate
	BIN_RSHIFT // extra rhs-type-kind immediate

	// --- control ---
	JUMP
	BRANCH
	SWITCH
	RETURN
	EXIT
	DROP

	// --- calls ---
	APPLY
	APPLY_EXC
	INVOKE
	INVOKE_EXC
	CAPPLY
	CAPPLY_EXC

	// --- casts & types ---
	TYPECAST
	INSTANCEOF
	BOX
	UNBOX
	UNBOX_REF

	// --- exceptions ---
	RAISE
	GET_EXCEPTION

	// --- intrinsics ---
	INTRINSIC0
	INTRINSIC0_EXC
	INTRINSIC1
	INTRINSIC1_EXC
	INTRINSIC2
	INTRINSIC2_EXC

	// --- misc ---
	ABORT
	NOT_SUPPORTED
	SYSCALL
	SPAWN
	SPAWN_EXC

	opcodeMax
)

var opcodeNames = [...]string{
	NOP:                        "nop",
	LIT_I8:                     "lit_i8",
	LIT_I16:                    "lit_i16",
	LIT_I32:                    "lit_i32",
	LIT_I64:                    "lit_i64",
	LIT_INAT:                   "lit_inat",
	LIT_U8:                     "lit_u8",
	LIT_U16:                    "lit_u16",
	LIT_U32:                    "lit_u32",
	LIT_U64:                    "lit_u64",
	LIT_UNAT:                   "lit_unat",
	LIT_F16:                    "lit_f16",
	LIT_F32:                    "lit_f32",
	LIT_F64:                    "lit_f64",
	LIT_RUNE:                   "lit_rune",
	LIT_BOOL:                   "lit_bool",
	LIT_UNIT:                   "lit_unit",
	LIT_NULLPTR:                "lit_nullptr",
	LIT_STRING:                 "lit_string",
	LIT_FUNC:                   "lit_func",
	LVAR:                       "lvar",
	LVAR_SET:                   "lvar_set",
	GVAR:                       "gvar",
	GVAR_SET:                   "gvar_set",
	FRAME:                      "frame",
	TUPLE:                      "tuple",
	ARRAY:                      "array",
	VARRAY:                     "varray",
	VARRAY_BY_VALUE:            "varray_by_value",
	VARRAY_GET:                 "varray_get",
	OBJECT:                     "object",
	FIELD:                      "field",
	FIELD_TPL:                  "field_tpl",
	GETREF:                     "getref",
	STOREINREF:                 "storeinref",
	ASG:                        "asg",
	STORE:                      "store",
	DEREF:                      "deref",
	ALLOCATE:                   "allocate",
	ALLOCATE_STRUCT:            "allocate_struct",
	ALLOCATE_CLASS:             "allocate_class",
	ALLOCATE_RAW_ARRAY:         "allocate_raw_array",
	ALLOCATE_RAW_ARRAY_LITERAL: "allocate_raw_array_literal",
	RAW_ARRAY_INIT_BY_VALUE:    "raw_array_init_by_value",
	RAW_ARRAY_LITERAL_INIT:     "raw_array_literal_init",
	UN_NEG:                     "un_neg",
	UN_INC:                     "un_inc",
	UN_DEC:                     "un_dec",
	UN_NOT:                     "un_not",
	UN_BITNOT:                  "un_bitnot",
	BIN_ADD:                    "bin_add",
	BIN_SUB:                    "bin_sub",
	BIN_MUL:                    "bin_mul",
	BIN_DIV:                    "bin_div",
	BIN_MOD:                    "bin_mod",
	BIN_EXP:                    "bin_exp",
	BIN_LT:                     "bin_lt",
	BIN_GT:                     "bin_gt",
	BIN_LE:                     "bin_le",
	BIN_GE:                     "bin_ge",
	BIN_EQUAL:                  "bin_equal",
	BIN_NOTEQ:                  "bin_noteq",
	BIN_BITAND:                 "bin_bitand",
	BIN_BITOR:                  "bin_bitor",
	BIN_BITXOR:                 "bin_bitxor",
	BIN_LSHIFT:                 "bin_lshift",
	BIN_RSHIFT:                 "bin_rshift",
	JUMP:                       "jump",
	BRANCH:                     "branch",
	SWITCH:                     "switch",
	RETURN:                     "return",
	EXIT:                       "exit",
	DROP:                       "drop",
	APPLY:                      "apply",
	APPLY_EXC:                  "apply_exc",
	INVOKE:                     "invoke",
	INVOKE_EXC:                 "invoke_exc",
	CAPPLY:                     "capply",
	CAPPLY_EXC:                 "capply_exc",
	TYPECAST:                   "typecast",
	INSTANCEOF:                 "instanceof",
	BOX:                        "box",
	UNBOX:                      "unbox",
	UNBOX_REF:                  "unbox_ref",
	RAISE:                      "raise",
	GET_EXCEPTION:              "get_exception",
	INTRINSIC0:                 "intrinsic0",
	INTRINSIC0_EXC:             "intrinsic0_exc",
	INTRINSIC1:                 "intrinsic1",
	INTRINSIC1_EXC:             "intrinsic1_exc",
	INTRINSIC2:                 "intrinsic2",
	INTRINSIC2_EXC:             "intrinsic2_exc",
	ABORT:                      "abort",
	NOT_SUPPORTED:              "not_supported",
	SYSCALL:                    "syscall",
	SPAWN:                      "spawn",
	SPAWN_EXC:                  "spawn_exc",
}

func (op Opcode) String() string {
	if op < opcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// reverseLookup maps a textual mnemonic back to its Opcode, used by the
// pseudo-assembly decoder.
var reverseLookup = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

// Lookup returns the Opcode named by mnemonic, and whether it was found.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := reverseLookup[mnemonic]
	return op, ok
}

// HasExceptionHandler reports whether op is a "_EXC" flavored opcode: one
// that carries a trailing handler PC word and pushes a control frame whose
// unwinding target is that PC (spec §4.1, §4.4).
func HasExceptionHandler(op Opcode) bool {
	switch op {
	case APPLY_EXC, INVOKE_EXC, CAPPLY_EXC,
		INTRINSIC0_EXC, INTRINSIC1_EXC, INTRINSIC2_EXC,
		SPAWN_EXC:
		return true
	default:
		return false
	}
}

// IsJump reports whether op transfers control based on a PC operand (used by
// the printer to recognize annotatable jump targets).
func IsJump(op Opcode) bool {
	switch op {
	case JUMP, BRANCH, SWITCH:
		return true
	default:
		return false
	}
}
