// Package intrinsic implements BCHIR's INTRINSIC0/1/2 opcode family: the
// catalogue of ~150 built-in operations that CHIR lowers directly to
// rather than a call (spec §4.6). There is no teacher equivalent --
// nenuphar's built-ins are ordinary Callables registered in a
// predeclared-name table (lang/machine/impl.go's Callable) -- so the
// dispatch-by-small-integer-kind shape here is grounded on
// original_source/include/cangjie/CHIR/Interpreter/OpCodes.h's intrinsic
// X-macro table, adapted to a Go map of handlers registered per Kind
// (dispatch.go) instead of a C++ macro expansion.
package intrinsic

import "fmt"

// Kind identifies one intrinsic operation.
type Kind uint16

//nolint:revive
const (
	Invalid Kind = iota

	// --- memory / C-interop ---
	STRLEN
	MEMCPY_S
	MEMSET_S
	STRCMP
	MEMCMP
	STRNCMP
	STRCASECMP
	MALLOC
	FREE

	// --- CString / CPointer ---
	CSTRING_INIT
	CSTRING_CONVERT_CSTR_TO_PTR
	CPOINTER_INIT0
	CPOINTER_INIT1
	CPOINTER_ADD
	CPOINTER_READ
	CPOINTER_WRITE
	CPOINTER_GET_POINTER_ADDRESS

	// --- array / slice ---
	ARRAY_SIZE
	ARRAY_GET
	ARRAY_GET_UNCHECKED
	ARRAY_SET
	ARRAY_SET_UNCHECKED
	ARRAY_CLONE
	ARRAY_INIT
	ARRAY_BUILT_IN_COPY_TO
	ARRAY_SLICE
	ARRAY_SLICE_START
	ARRAY_SLICE_RAWARRAY
	VARRAY_SET
	RAW_ARRAY_REFEQ
	OBJECT_REFEQ

	// --- identity / hash ---
	IDENTITY_HASHCODE
	IDENTITY_HASHCODE_FOR_ARRAY

	// --- atomics ---
	ATOMIC_LOAD
	ATOMIC_STORE
	ATOMIC_SWAP
	ATOMIC_COMPARE_AND_SWAP
	ATOMIC_FETCH_ADD
	ATOMIC_FETCH_SUB
	ATOMIC_FETCH_AND
	ATOMIC_FETCH_OR
	ATOMIC_FETCH_XOR

	// --- reflection helpers ---
	GET_TYPE_FOR_TYPE_PARAMETER
	SIZE_OF
	ALIGN_OF

	// --- backtrace ---
	FILL_IN_STACK_TRACE
	DECODE_STACK_TRACE

	// --- misc ---
	CHR
	ORD
	SLEEP
	GET_MAX_HEAP_SIZE
	GET_ALLOCATE_HEAP_SIZE
	GET_REAL_HEAP_SIZE
	PREINITIALIZE
	INVOKE_GC
	REGISTER_WATCHED_OBJECT

	// --- concurrency stubs (single-threaded no-ops) ---
	MUTEX_INIT
	MUTEX_LOCK
	MUTEX_UNLOCK
	MUTEX_TRYLOCK
	MUTEX_CHECK_STATUS
	MONITOR_INIT
	MONITOR_WAIT
	MONITOR_NOTIFY
	MONITOR_NOTIFY_ALL
	WAITQUEUE_INIT
	MULTICONDITION_INIT
	MULTICONDITION_WAIT
	MULTICONDITION_NOTIFY
	MULTICONDITION_NOTIFY_ALL
	FUTURE_INIT
	FUTURE_GET_ID

	// --- overflow-intrinsic aliases (lower to arith, by name convention
	// OVERFLOW_<STRATEGY>_<OP>; handled specially in dispatch.go rather
	// than one Kind constant per combination) ---
	OverflowAliasBase

	kindMax
)

var kindNames = [...]string{
	STRLEN: "STRLEN", MEMCPY_S: "MEMCPY_S", MEMSET_S: "MEMSET_S", STRCMP: "STRCMP",
	MEMCMP: "MEMCMP", STRNCMP: "STRNCMP", STRCASECMP: "STRCASECMP", MALLOC: "MALLOC", FREE: "FREE",
	CSTRING_INIT:                 "CSTRING_INIT",
	CSTRING_CONVERT_CSTR_TO_PTR:  "CSTRING_CONVERT_CSTR_TO_PTR",
	CPOINTER_INIT0:               "CPOINTER_INIT0",
	CPOINTER_INIT1:               "CPOINTER_INIT1",
	CPOINTER_ADD:                 "CPOINTER_ADD",
	CPOINTER_READ:                "CPOINTER_READ",
	CPOINTER_WRITE:               "CPOINTER_WRITE",
	CPOINTER_GET_POINTER_ADDRESS: "CPOINTER_GET_POINTER_ADDRESS",
	ARRAY_SIZE:                   "ARRAY_SIZE",
	ARRAY_GET:                    "ARRAY_GET",
	ARRAY_GET_UNCHECKED:          "ARRAY_GET_UNCHECKED",
	ARRAY_SET:                    "ARRAY_SET",
	ARRAY_SET_UNCHECKED:          "ARRAY_SET_UNCHECKED",
	ARRAY_CLONE:                  "ARRAY_CLONE",
	ARRAY_INIT:                   "ARRAY_INIT",
	ARRAY_BUILT_IN_COPY_TO:       "ARRAY_BUILT_IN_COPY_TO",
	ARRAY_SLICE:                  "ARRAY_SLICE",
	ARRAY_SLICE_START:            "ARRAY_SLICE_START",
	ARRAY_SLICE_RAWARRAY:         "ARRAY_SLICE_RAWARRAY",
	VARRAY_SET:                   "VARRAY_SET",
	RAW_ARRAY_REFEQ:              "RAW_ARRAY_REFEQ",
	OBJECT_REFEQ:                 "OBJECT_REFEQ",
	IDENTITY_HASHCODE:            "IDENTITY_HASHCODE",
	IDENTITY_HASHCODE_FOR_ARRAY:  "IDENTITY_HASHCODE_FOR_ARRAY",
	ATOMIC_LOAD:                  "ATOMIC_LOAD",
	ATOMIC_STORE:                 "ATOMIC_STORE",
	ATOMIC_SWAP:                  "ATOMIC_SWAP",
	ATOMIC_COMPARE_AND_SWAP:      "ATOMIC_COMPARE_AND_SWAP",
	ATOMIC_FETCH_ADD:             "ATOMIC_FETCH_ADD",
	ATOMIC_FETCH_SUB:             "ATOMIC_FETCH_SUB",
	ATOMIC_FETCH_AND:             "ATOMIC_FETCH_AND",
	ATOMIC_FETCH_OR:              "ATOMIC_FETCH_OR",
	ATOMIC_FETCH_XOR:             "ATOMIC_FETCH_XOR",
	GET_TYPE_FOR_TYPE_PARAMETER:  "GET_TYPE_FOR_TYPE_PARAMETER",
	SIZE_OF:                      "SIZE_OF",
	ALIGN_OF:                     "ALIGN_OF",
	FILL_IN_STACK_TRACE:          "FILL_IN_STACK_TRACE",
	DECODE_STACK_TRACE:           "DECODE_STACK_TRACE",
	CHR:                          "CHR",
	ORD:                          "ORD",
	SLEEP:                        "SLEEP",
	GET_MAX_HEAP_SIZE:            "GET_MAX_HEAP_SIZE",
	GET_ALLOCATE_HEAP_SIZE:       "GET_ALLOCATE_HEAP_SIZE",
	GET_REAL_HEAP_SIZE:           "GET_REAL_HEAP_SIZE",
	PREINITIALIZE:                "PREINITIALIZE",
	INVOKE_GC:                    "INVOKE_GC",
	REGISTER_WATCHED_OBJECT:      "REGISTER_WATCHED_OBJECT",
	MUTEX_INIT:                   "MUTEX_INIT",
	MUTEX_LOCK:                   "MUTEX_LOCK",
	MUTEX_UNLOCK:                 "MUTEX_UNLOCK",
	MUTEX_TRYLOCK:                "MUTEX_TRYLOCK",
	MUTEX_CHECK_STATUS:           "MUTEX_CHECK_STATUS",
	MONITOR_INIT:                 "MONITOR_INIT",
	MONITOR_WAIT:                 "MONITOR_WAIT",
	MONITOR_NOTIFY:               "MONITOR_NOTIFY",
	MONITOR_NOTIFY_ALL:           "MONITOR_NOTIFY_ALL",
	WAITQUEUE_INIT:               "WAITQUEUE_INIT",
	MULTICONDITION_INIT:          "MULTICONDITION_INIT",
	MULTICONDITION_WAIT:          "MULTICONDITION_WAIT",
	MULTICONDITION_NOTIFY:        "MULTICONDITION_NOTIFY",
	MULTICONDITION_NOTIFY_ALL:    "MULTICONDITION_NOTIFY_ALL",
	FUTURE_INIT:                  "FUTURE_INIT",
	FUTURE_GET_ID:                "FUTURE_GET_ID",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("illegal intrinsic (%d)", k)
}

var reverseLookup = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if name != "" {
			m[name] = Kind(k)
		}
	}
	return m
}()

// Lookup returns the Kind named by mnemonic.
func Lookup(mnemonic string) (Kind, bool) {
	k, ok := reverseLookup[mnemonic]
	return k, ok
}
