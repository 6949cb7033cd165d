package intrinsic

import (
	"strings"
	"sync"

	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
)

// buffers backs every CString/CPointer/MALLOC allocation: a Go value has no
// raw address a script can forge, so C-interop intrinsics address memory
// through an opaque uint64 handle into this table instead, the same
// indirection runtime/cgo.Handle uses to let Go values cross an unsafe
// boundary safely.
var (
	buffersMu  sync.Mutex
	buffers    = map[uint64][]byte{}
	nextHandle uint64 = 1
)

func allocBuffer(content []byte) uint64 {
	buffersMu.Lock()
	defer buffersMu.Unlock()
	h := nextHandle
	nextHandle++
	buffers[h] = content
	return h
}

func bufferOf(h uint64) []byte {
	buffersMu.Lock()
	defer buffersMu.Unlock()
	return buffers[h]
}

func setBuffer(h uint64, content []byte) {
	buffersMu.Lock()
	defer buffersMu.Unlock()
	buffers[h] = content
}

func freeBuffer(h uint64) {
	buffersMu.Lock()
	defer buffersMu.Unlock()
	delete(buffers, h)
}

// cpointer is a (handle, byte offset) pair, the CPointer payload, encoded
// into a single uint64 IVal: high 32 bits handle, low 32 bits offset. This
// keeps CPointer a plain integer-shaped IVal rather than requiring a new
// ivalue.Kind just for C interop.
func packPointer(handle uint64, offset uint32) ivalue.IVal {
	return ivalue.Uint(ivalue.U64, handle<<32|uint64(offset))
}

func unpackPointer(v ivalue.IVal) (handle uint64, offset uint32) {
	bits := v.AsUint64()
	return bits >> 32, uint32(bits)
}

func arrayBytes(v ivalue.IVal) []byte {
	n := v.ArrayLen()
	out := make([]byte, n)
	for i := int64(0); i < n; i++ {
		out[i] = byte(v.ArrayElem(i).AsUint64())
	}
	return out
}

func init() {
	register(STRLEN, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		h, off := unpackPointer(args[0])
		buf := bufferOf(h)
		n := 0
		for int(off)+n < len(buf) && buf[int(off)+n] != 0 {
			n++
		}
		return ivalue.Int(ivalue.I64, int64(n)), nil
	})

	register(MEMCPY_S, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		dstH, dstOff := unpackPointer(args[0])
		srcH, srcOff := unpackPointer(args[2])
		n := args[3].AsUint64() // count, args[1] is dest buffer capacity
		dst := bufferOf(dstH)
		src := bufferOf(srcH)
		copy(dst[dstOff:uint64(dstOff)+n], src[srcOff:uint64(srcOff)+n])
		return ivalue.Int(ivalue.I32, 0), nil
	})

	register(MEMSET_S, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		h, off := unpackPointer(args[0])
		value := byte(args[2].AsUint64())
		n := args[3].AsUint64()
		buf := bufferOf(h)
		for i := uint64(0); i < n; i++ {
			buf[uint64(off)+i] = value
		}
		return ivalue.Int(ivalue.I32, 0), nil
	})

	register(STRCMP, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Int(ivalue.I32, int64(strings.Compare(cstr(args[0]), cstr(args[1])))), nil
	})

	register(MEMCMP, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		aH, aOff := unpackPointer(args[0])
		bH, bOff := unpackPointer(args[1])
		n := args[2].AsUint64()
		a := bufferOf(aH)[aOff : uint64(aOff)+n]
		b := bufferOf(bH)[bOff : uint64(bOff)+n]
		cmp := 0
		for i := range a {
			if a[i] != b[i] {
				if a[i] < b[i] {
					cmp = -1
				} else {
					cmp = 1
				}
				break
			}
		}
		return ivalue.Int(ivalue.I32, int64(cmp)), nil
	})

	register(STRNCMP, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		n := int(args[2].AsUint64())
		a, b := cstr(args[0]), cstr(args[1])
		if len(a) > n {
			a = a[:n]
		}
		if len(b) > n {
			b = b[:n]
		}
		return ivalue.Int(ivalue.I32, int64(strings.Compare(a, b))), nil
	})

	register(STRCASECMP, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Int(ivalue.I32, int64(strings.Compare(strings.ToLower(cstr(args[0])), strings.ToLower(cstr(args[1]))))), nil
	})

	register(MALLOC, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		n := args[0].AsUint64()
		h := allocBuffer(make([]byte, n))
		return packPointer(h, 0), nil
	})

	register(FREE, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		h, _ := unpackPointer(args[0])
		freeBuffer(h)
		return ivalue.Unit, nil
	})
}

func cstr(v ivalue.IVal) string {
	h, off := unpackPointer(v)
	buf := bufferOf(h)
	end := int(off)
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	return string(buf[off:end])
}
