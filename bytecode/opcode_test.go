package bytecode_test

import (
	"testing"

	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeStringRoundTrip(t *testing.T) {
	for op := bytecode.NOP; op < bytecode.Opcode(200); op++ {
		name := op.String()
		if name == "" {
			continue
		}
		got, ok := bytecode.Lookup(name)
		if !ok {
			// illegal-op formatted names are not registered mnemonics
			continue
		}
		assert.Equal(t, op, got, "round trip for %s", name)
	}
}

func TestHasExceptionHandler(t *testing.T) {
	assert.True(t, bytecode.HasExceptionHandler(bytecode.APPLY_EXC))
	assert.True(t, bytecode.HasExceptionHandler(bytecode.INVOKE_EXC))
	assert.True(t, bytecode.HasExceptionHandler(bytecode.INTRINSIC2_EXC))
	assert.False(t, bytecode.HasExceptionHandler(bytecode.APPLY))
	assert.False(t, bytecode.HasExceptionHandler(bytecode.RETURN))
}

func TestDecodeFixedWidth(t *testing.T) {
	code := []bytecode.Word{
		uint32(bytecode.LIT_I32), 42,
		uint32(bytecode.RETURN),
	}
	in := bytecode.Decode(code, 0)
	require.Equal(t, bytecode.LIT_I32, in.Op)
	require.Equal(t, []bytecode.Word{42}, in.Args)
	assert.EqualValues(t, 2, in.Next)

	in2 := bytecode.Decode(code, in.Next)
	assert.Equal(t, bytecode.RETURN, in2.Op)
	assert.EqualValues(t, 3, in2.Next)
}

func TestDecodeExceptionHandler(t *testing.T) {
	code := []bytecode.Word{
		uint32(bytecode.APPLY_EXC), 2, 99, // n=2, handler pc=99
	}
	in := bytecode.Decode(code, 0)
	require.Equal(t, []bytecode.Word{2}, in.Args)
	assert.EqualValues(t, 99, in.Handler)
	assert.EqualValues(t, 3, in.Next)
}

func TestDecodePath(t *testing.T) {
	code := []bytecode.Word{
		uint32(bytecode.GETREF), 3, 10, 11, 12,
	}
	in := bytecode.Decode(code, 0)
	assert.Equal(t, []bytecode.Word{3}, in.Args)
	assert.Equal(t, []bytecode.Word{10, 11, 12}, in.Tail)
	assert.EqualValues(t, 5, in.Next)
}

func TestDecodeSwitch(t *testing.T) {
	// typekind word 0 (not interpreted by Decode), n=2 cases, each case is a 2-word (lo,hi) value, then 3 targets.
	code := []bytecode.Word{
		uint32(bytecode.SWITCH), 0 /* typekind */, 2, /* n */
		1, 0, 2, 0, // case values 1 and 2
		100, 200, 300, // targets: case0, case1, default
	}
	in := bytecode.Decode(code, 0)
	require.Len(t, in.Tail, 7)
	assert.Equal(t, []bytecode.Word{1, 0, 2, 0, 100, 200, 300}, in.Tail)
	assert.EqualValues(t, 10, in.Next)
}

func TestValidateCatchesBadJumpTarget(t *testing.T) {
	code := []bytecode.Word{
		uint32(bytecode.JUMP), 5, // target 5 is past the end of code, not a head
		uint32(bytecode.LIT_I32), 1,
		uint32(bytecode.RETURN),
	}
	err := bytecode.Validate(code)
	assert.Error(t, err)
}

func TestValidateAcceptsWellFormedCode(t *testing.T) {
	code := []bytecode.Word{
		uint32(bytecode.JUMP), 2,
		uint32(bytecode.RETURN),
	}
	assert.NoError(t, bytecode.Validate(code))
}
