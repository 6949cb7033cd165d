package printer

import (
	"fmt"
	"strings"

	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/image"
)

// Dump renders a linked *image.Bchir as a human-readable disassembly:
// section dumps for classes, strings and source files, then one
// per-instruction listing per function, annotated with mangled-name and
// file:line:col hints where the linker recorded them (spec §4.8). It is
// not normative for execution and, unlike Encode, does not round-trip
// through Decode; it exists for `-print-bchir` debug output (spec §6.6),
// which cmd/bchirdump writes.
//
// Grounded on the same asm.go dasm() shape as Encode (program-level
// sections first, then one block per function), with the section
// ordering -- classes, strings, files, then code -- taken from
// original_source/.../BCHIRPrinter.h.
func Dump(pkg *image.Bchir) string {
	var b strings.Builder

	fmt.Fprintf(&b, "; package %s", pkg.PackageName)
	if pkg.IsCore {
		b.WriteString(" (core)")
	}
	b.WriteString("\n")
	if pkg.MainMangledName != "" {
		fmt.Fprintf(&b, "; main: %s (expects %d args)\n", pkg.MainMangledName, pkg.MainExpectedArgs)
	}

	dumpClasses(&b, pkg)
	dumpPool(&b, "strings", pkg.Strings)
	dumpPool(&b, "files", pkg.FileNames)
	dumpDefaultFunctions(&b, pkg)

	if pkg.IsLinked() {
		dumpCode(&b, pkg)
	}

	return b.String()
}

func dumpClasses(b *strings.Builder, pkg *image.Bchir) {
	if pkg.ClassTable == nil {
		return
	}
	b.WriteString("; classes:\n")
	ids := make([]uint32, 0)
	names := make(map[uint32]string, len(pkg.ClassIDs))
	for name, id := range pkg.ClassIDs {
		ids = append(ids, id)
		names[id] = name
	}
	sortUint32s(ids)
	for _, id := range ids {
		ci, ok := pkg.ClassTable.Get(id)
		if !ok {
			continue
		}
		fmt.Fprintf(b, ";   class %d: %s\n", id, names[id])
		var supers []uint32
		ci.SuperClasses.Iter(func(sid uint32, _ struct{}) bool {
			supers = append(supers, sid)
			return false
		})
		sortUint32s(supers)
		if len(supers) > 0 {
			fmt.Fprintf(b, ";     super_classes: %v\n", supers)
		}
		var methods []uint32
		ci.VTable.Iter(func(mid uint32, _ uint32) bool {
			methods = append(methods, mid)
			return false
		})
		sortUint32s(methods)
		for _, mid := range methods {
			pc, _ := ci.VTable.Get(mid)
			fmt.Fprintf(b, ";     method %d -> pc %d\n", mid, pc)
		}
		if ci.FinalizerIdx != 0 {
			fmt.Fprintf(b, ";     finalizer -> pc %d\n", ci.FinalizerIdx)
		}
	}
}

func dumpPool(b *strings.Builder, label string, pool []string) {
	if len(pool) == 0 {
		return
	}
	fmt.Fprintf(b, "; %s:\n", label)
	for i, s := range pool {
		fmt.Fprintf(b, ";   %d: %q\n", i, s)
	}
}

func dumpDefaultFunctions(b *strings.Builder, pkg *image.Bchir) {
	any := false
	for _, pc := range pkg.DefaultFuncPtrs {
		if pc != 0 {
			any = true
			break
		}
	}
	if !any {
		return
	}
	b.WriteString("; default functions:\n")
	for i, name := range image.DefaultFunctionMangledNames {
		pc := pkg.DefaultFuncPtrs[i]
		if pc == 0 {
			fmt.Fprintf(b, ";   %s: (unresolved)\n", name)
		} else {
			fmt.Fprintf(b, ";   %s -> pc %d\n", name, pc)
		}
	}
}

func sortUint32s(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// dumpCode disassembles every function's bytecode, in entry-point order,
// annotating each instruction with its mangled-name hint (if any) and its
// nearest-recorded source position.
func dumpCode(b *strings.Builder, pkg *image.Bchir) {
	type fn struct {
		name string
		pc   uint32
	}
	fns := make([]fn, 0, len(pkg.FuncOffsets))
	for name, pc := range pkg.FuncOffsets {
		fns = append(fns, fn{name, pc})
	}
	for i := 1; i < len(fns); i++ {
		for j := i; j > 0 && fns[j-1].pc > fns[j].pc; j-- {
			fns[j-1], fns[j] = fns[j], fns[j-1]
		}
	}

	code := pkg.LinkedByteCode.Code
	for i, f := range fns {
		end := uint32(len(code))
		if i+1 < len(fns) {
			end = fns[i+1].pc
		}
		fmt.Fprintf(b, "; function %s (pc %d):\n", f.name, f.pc)
		for pc := f.pc; pc < end; {
			in := bytecode.Decode(code, pc)
			dumpInstr(b, pkg, in)
			pc = in.Next
		}
	}
}

func dumpInstr(b *strings.Builder, pkg *image.Bchir, in bytecode.Instr) {
	fmt.Fprintf(b, "%6d: %s", in.PC, in.Op)
	for _, v := range in.Args {
		fmt.Fprintf(b, " %d", v)
	}
	for _, v := range in.Tail {
		fmt.Fprintf(b, " %d", v)
	}
	if bytecode.HasExceptionHandler(in.Op) {
		fmt.Fprintf(b, " ~%d", in.Handler)
	}

	var hints []string
	if name, ok := pkg.LinkedByteCode.MangledNameAt(in.PC); ok {
		hints = append(hints, "@"+name)
	}
	for i := range in.Args {
		if name, ok := pkg.LinkedByteCode.MangledNameAt(in.PC + 1 + uint32(i)); ok {
			hints = append(hints, "@"+name)
		}
	}
	pos := pkg.LinkedByteCode.SourcePositionAt(in.PC)
	if pos.IsValid() {
		if file := pkg.FileNameOf(pos); file != "" {
			hints = append(hints, fmt.Sprintf("%s:%d:%d", file, pos.Line, pos.Col))
		}
	}
	if len(hints) > 0 {
		fmt.Fprintf(b, "  ; %s", strings.Join(hints, " "))
	}
	b.WriteString("\n")
}
