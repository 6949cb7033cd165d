package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"

	"github.com/cangjie-lang/bchir/diag"
	"github.com/cangjie-lang/bchir/image"
	"github.com/cangjie-lang/bchir/linker"
	"github.com/cangjie-lang/bchir/printer"
)

const binName = "bchirdump"

var shortUsage = fmt.Sprintf(`usage: %s [<option>...] <file.basm>...
Run '%[1]s --help' for details.
`, binName)

var longUsage = fmt.Sprintf(`usage: %s [<option>...] <file.basm>...
       %[1]s -h|--help
       %[1]s -v|--version

Loads one or more pseudo-assembly package files, links them, and writes
the linked image's disassembly to stdout.

Valid flag options are:
       -h --help        Show this help and exit.
       -v --version     Print version and exit.
       --raw            Dump each input package before linking, instead
                         of linking them together.

Environment:
       cjHeapSize       Heap ceiling as "<N>{kb|mb|gb}" (spec §6.5);
                         falls back to 64 MiB on malformed input.
`, binName)

// Cmd is bchirdump's single command, sized to the one thing this module's
// CLI surface needs (spec §6.6's "-print-bchir" debug output), unlike the
// teacher's multi-subcommand internal/maincmd.Cmd.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`
	Raw     bool `flag:"raw"`

	args []string
}

func (c *Cmd) SetArgs(args []string) { c.args = args }
func (c *Cmd) SetFlags(map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("bchirdump: at least one .basm file must be provided")
	}
	return nil
}

// Main parses args and runs the command, mirroring internal/maincmd.Cmd's
// Main: parse into flags, handle -h/-v, then run and translate any error
// into a mainer.ExitCode instead of a panic or raw os.Exit call.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.run(ctx, stdio); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
		return mainer.Failure
	}
	return mainer.Success
}

func (c *Cmd) run(ctx context.Context, stdio mainer.Stdio) error {
	if c.Raw {
		fmt.Fprintf(stdio.Stderr, "%s: heap ceiling %d bytes\n", binName, readHeapSize())
	}

	pkgs := make([]*image.Bchir, 0, len(c.args))
	for _, path := range c.args {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		pkg, err := printer.Decode(src)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", path, err)
		}
		pkgs = append(pkgs, pkg)
	}

	if c.Raw {
		for _, pkg := range pkgs {
			fmt.Fprint(stdio.Stdout, printer.Dump(pkg))
		}
		return nil
	}

	sink := diag.NewSink()
	linked, err := linker.Link(ctx, pkgs, sink)
	if err != nil {
		return fmt.Errorf("linking: %w", err)
	}
	for _, d := range sink.Diagnostics() {
		fmt.Fprintln(stdio.Stderr, d.String())
	}
	fmt.Fprint(stdio.Stdout, printer.Dump(linked))
	return nil
}

// heapEnv holds the raw cjHeapSize string for custom parsing; env.Parse
// (the same caarlos0/env convention intrinsic.heapConfig uses) only
// populates the field, the suffix arithmetic below is bchirdump's own.
type heapEnv struct {
	Raw string `env:"cjHeapSize"`
}

const defaultHeapBytes = 64 << 20 // 64 MiB, spec §6.5's malformed-input fallback

// readHeapSize implements spec §6.5's cjHeapSize parsing: "<N>{kb|mb|gb}",
// case-insensitive, whitespace-stripped, falling back to 64 MiB on
// malformed input.
func readHeapSize() uint64 {
	var cfg heapEnv
	if err := env.Parse(&cfg); err != nil {
		return defaultHeapBytes
	}
	raw := strings.ToLower(strings.TrimSpace(cfg.Raw))
	if raw == "" {
		return defaultHeapBytes
	}

	var mult uint64 = 1
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
		return defaultHeapBytes
	}
	return n * mult
}
