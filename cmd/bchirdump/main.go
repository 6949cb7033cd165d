// Command bchirdump is the module's one binary: it loads one or more
// pseudo-assembly (.basm) package files (printer.Decode), links them
// (linker.Link), and writes the linked image's disassembly
// (printer.Dump) to stdout -- the "-print-bchir" debug surface spec §6.6
// describes, minus the compiler driver that would otherwise produce the
// .basm input.
//
// Grounded on cmd/nenuphar/main.go's thin os.Exit(c.Main(...)) shell and
// internal/maincmd.Cmd's mainer.Parser/mainer.Stdio/mainer.ExitCode
// plumbing, trimmed to the single action this module needs instead of
// nenuphar's tokenize/parse/resolve subcommand dispatch.
package main

import (
	"os"

	"github.com/mna/mainer"
)

var (
	// placeholder values, replaced on build
	version   = "{v}"
	buildDate = "{d}"
)

func main() {
	c := Cmd{BuildVersion: version, BuildDate: buildDate}
	os.Exit(int(c.Main(os.Args, mainer.CurrentStdio())))
}
