package intrinsic

import (
	"fmt"

	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
)

// FILL_IN_STACK_TRACE snapshots the calling thread's frames into an Array
// of Tuple(pc, funcStartPc, reserved) records — the raw TraceFrame shape
// the linked image itself uses, not a pre-rendered string (spec §4.6,
// SPEC_FULL.md §D.5). DECODE_STACK_TRACE renders that snapshot to
// human-readable text by asking the Context to resolve each frame's
// {class_name, method_name, file, line} from the image's annotation
// tables, the same deferred-until-needed shape
// original_source/BCHIRPrinter.h's backtrace section renders from
// (function@file:line, one per line).
func init() {
	register(FILL_IN_STACK_TRACE, func(ctx Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		frames := ctx.Backtrace()
		arr := ctx.Arena().NewArray(int64(len(frames)))
		for i, f := range frames {
			arr.SetArrayElem(int64(i), traceFrameToIVal(f))
		}
		return *arr, nil
	})

	register(DECODE_STACK_TRACE, func(ctx Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		snapshot := args[0]
		var lines []string
		for i := int64(0); i < snapshot.ArrayLen(); i++ {
			tf := ivalToTraceFrame(snapshot.ArrayElem(i))
			class, method, file, line := ctx.DecodeFrame(tf)
			name := method
			if class != "" {
				name = class + "." + method
			}
			lines = append(lines, fmt.Sprintf("\tat %s(%s:%d)", name, file, line))
		}
		h := allocBuffer(append([]byte(joinLines(lines)), 0))
		return packPointer(h, 0), nil
	})
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func traceFrameToIVal(f TraceFrame) ivalue.IVal {
	return ivalue.Tuple([]ivalue.IVal{
		ivalue.Uint(ivalue.U32, uint64(f.Pc)),
		ivalue.Uint(ivalue.U32, uint64(f.FuncStartPc)),
		ivalue.Uint(ivalue.U32, uint64(f.Reserved)),
	})
}

func ivalToTraceFrame(v ivalue.IVal) TraceFrame {
	return TraceFrame{
		Pc:          uint32(v.Payload[0].AsUint64()),
		FuncStartPc: uint32(v.Payload[1].AsUint64()),
		Reserved:    uint32(v.Payload[2].AsUint64()),
	}
}
