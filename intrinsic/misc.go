package intrinsic

import (
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/cangjie-lang/bchir/arith"
	"github.com/cangjie-lang/bchir/ivalue"
)

// heapConfig is populated from the environment once, the same
// parse-struct-tags-with-caarlos0/env convention the rest of this module's
// configuration layer uses (see cmd/bchirdump for the CLI-flag side).
// GET_MAX_HEAP_SIZE (spec §4.6, §6.5) reports the configured ceiling: the
// raw string is read via env.Parse and then hand-parsed for the
// "<N>{kb|mb|gb}" suffix grammar, which caarlos0/env has no support for.
type heapConfig struct {
	Raw string `env:"cjHeapSize"`
}

const defaultMaxHeapBytes = 64 << 20 // 64 MiB, spec §6.5's malformed-input fallback

var heap = mustParseHeapConfig()

func mustParseHeapConfig() heapConfig {
	var cfg heapConfig
	if err := env.Parse(&cfg); err != nil {
		return heapConfig{}
	}
	return cfg
}

// parseHeapSize implements spec §6.5's cjHeapSize grammar: "<N>{kb|mb|gb}",
// case-insensitive, whitespace-stripped, falling back to 64 MiB on
// malformed or absent input.
func parseHeapSize(raw string) uint64 {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return defaultMaxHeapBytes
	}

	mult := uint64(1)
	switch {
	case strings.HasSuffix(raw, "gb"):
		mult = 1 << 30
		raw = strings.TrimSuffix(raw, "gb")
	case strings.HasSuffix(raw, "mb"):
		mult = 1 << 20
		raw = strings.TrimSuffix(raw, "mb")
	case strings.HasSuffix(raw, "kb"):
		mult = 1 << 10
		raw = strings.TrimSuffix(raw, "kb")
	}
	raw = strings.TrimSpace(raw)

	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return defaultMaxHeapBytes
	}
	return n * mult
}

func init() {
	register(CHR, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Rune(rune(args[0].AsInt64())), nil
	})

	register(ORD, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Int(ivalue.I32, args[0].AsInt64()), nil
	})

	register(SLEEP, func(_ Context, _ arith.Strategy, args []ivalue.IVal) (ivalue.IVal, error) {
		time.Sleep(time.Duration(args[0].AsInt64()) * time.Nanosecond)
		return ivalue.Unit, nil
	})

	register(GET_MAX_HEAP_SIZE, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Uint(ivalue.UNat, parseHeapSize(heap.Raw)), nil
	})

	register(GET_ALLOCATE_HEAP_SIZE, func(ctx Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Uint(ivalue.UNat, ctx.Arena().AllocatedBytes()), nil
	})

	register(GET_REAL_HEAP_SIZE, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Uint(ivalue.UNat, 0), nil
	})

	register(PREINITIALIZE, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Unit, nil
	})

	register(INVOKE_GC, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		// The arena's memory is reclaimed by Go's GC once unreachable; this
		// intrinsic has nothing to trigger beyond that, so it is a no-op.
		return ivalue.Unit, nil
	})

	register(REGISTER_WATCHED_OBJECT, func(_ Context, _ arith.Strategy, _ []ivalue.IVal) (ivalue.IVal, error) {
		return ivalue.Unit, nil
	})
}
