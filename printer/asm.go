// Package printer implements a human-readable/writable form of a
// pre-link package image and the post-link disassembler (spec §4.8).
//
// Encode/Decode mirror the section-scanner shape of the teacher's
// lang/compiler/asm.go: a small number of known section keywords
// ("strings:", "class:", "function:", "code:", ...), one
// bufio.Scanner-driven cursor threading the remaining fields through a
// sequence of per-section parse methods, and operand tokens translated
// between a textual index and the binary PC/word the same way asm.go
// translates jump indices to code addresses. Unlike asm.go this format
// has no forward-declared jump problem within one function body (a
// pre-link Definition's own jumps are already concrete local PCs); the
// two-pass index/address translation here exists only for textual
// round-tripping, not for resolving anything the compiler left dangling.
package printer

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/image"
)

// wideLiteralOps carries its Fixed(2) immediate as one little-endian
// 64-bit pair (spec §6.1, "little-endian across two Words"); the text
// form renders it as a single decimal token instead of two words.
var wideLiteralOps = map[bytecode.Opcode]bool{
	bytecode.LIT_I64:  true,
	bytecode.LIT_U64:  true,
	bytecode.LIT_F64:  true,
	bytecode.LIT_INAT: true,
	bytecode.LIT_UNAT: true,
}

// Encode renders pkg's pre-link definitions, class table, and pools as
// pseudo-assembly text.
func Encode(pkg *image.Bchir) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "package: %s", pkg.PackageName)
	if pkg.IsCore {
		b.WriteString(" core")
	}
	b.WriteString("\n")
	if pkg.MainMangledName != "" {
		fmt.Fprintf(&b, "main: %s %d\n", pkg.MainMangledName, pkg.MainExpectedArgs)
	}

	if len(pkg.Strings) > 0 {
		b.WriteString("strings:\n")
		for _, s := range pkg.Strings {
			fmt.Fprintf(&b, "\t%s\n", strconv.Quote(s))
		}
	}
	if len(pkg.FileNames) > 0 {
		b.WriteString("files:\n")
		for _, f := range pkg.FileNames {
			fmt.Fprintf(&b, "\t%s\n", f)
		}
	}
	if len(pkg.InitFuncsForConsts) > 0 {
		b.WriteString("initorder:\n")
		for _, name := range pkg.InitFuncsForConsts {
			fmt.Fprintf(&b, "\t%s\n", name)
		}
	}

	for _, name := range sortedKeys(pkg.SClassTable) {
		encodeClass(&b, name, pkg.SClassTable[name])
	}
	for _, name := range sortedKeys(pkg.GlobalVars) {
		if err := encodeDefinition(&b, "global", name, pkg.GlobalVars[name], pkg); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(pkg.Functions) {
		if err := encodeDefinition(&b, "function", name, pkg.Functions[name], pkg); err != nil {
			return nil, err
		}
	}

	return []byte(b.String()), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encodeClass(b *strings.Builder, name string, info *image.SClassInfo) {
	fmt.Fprintf(b, "class: %s\n", name)
	if len(info.SuperClasses) > 0 {
		b.WriteString("\tsuper:\n")
		for _, s := range info.SuperClasses {
			fmt.Fprintf(b, "\t\t%s\n", s)
		}
	}
	if len(info.VTable) > 0 {
		b.WriteString("\tvtable:\n")
		for _, method := range sortedKeys(info.VTable) {
			fmt.Fprintf(b, "\t\t%s %s\n", method, info.VTable[method])
		}
	}
	if info.Finalizer != "" {
		fmt.Fprintf(b, "\tfinalizer: %s\n", info.Finalizer)
	}
}

func encodeDefinition(b *strings.Builder, section, name string, def *image.Definition, pkg *image.Bchir) error {
	fmt.Fprintf(b, "%s: %s %d %d\n", section, name, def.NumArgs, def.NumLVars)
	b.WriteString("\tcode:\n")

	code := def.Code
	addrIdx := buildAddrIndex(code)
	for pc := uint32(0); int(pc) < len(code); {
		in := bytecode.Decode(code, pc)
		b.WriteString("\t\t")
		b.WriteString(in.Op.String())
		if err := writeOperands(b, def, in, addrIdx); err != nil {
			return fmt.Errorf("printer: encoding %s %q at pc %d: %w", section, name, pc, err)
		}
		b.WriteString("\n")
		pc = in.Next
	}
	return nil
}

// buildAddrIndex maps each instruction's word offset to its sequential
// index within the definition, the textual form a jump/handler operand
// is rendered as.
func buildAddrIndex(code []bytecode.Word) map[uint32]int {
	m := make(map[uint32]int, len(code))
	idx := 0
	for pc := uint32(0); int(pc) < len(code); {
		m[pc] = idx
		idx++
		pc = bytecode.Decode(code, pc).Next
	}
	return m
}

func writeOperands(b *strings.Builder, def *image.Definition, in bytecode.Instr, addrIdx map[uint32]int) error {
	if wideLiteralOps[in.Op] && len(in.Args) == 2 {
		v := uint64(in.Args[0]) | uint64(in.Args[1])<<32
		fmt.Fprintf(b, " %d", v)
	} else {
		for argN, val := range in.Args {
			localIdx := in.PC + 1 + uint32(argN)
			b.WriteByte(' ')
			if err := writeToken(b, def, in.Op, localIdx, val, addrIdx, false); err != nil {
				return err
			}
		}
	}

	tailStart := in.PC + 1 + uint32(len(in.Args))
	isSwitch := in.Op == bytecode.SWITCH
	var switchN bytecode.Word
	if isSwitch {
		switchN = in.Args[1]
	}
	for t, val := range in.Tail {
		localIdx := tailStart + uint32(t)
		b.WriteByte(' ')
		isTarget := isSwitch && uint32(t) >= 2*switchN
		if err := writeToken(b, def, in.Op, localIdx, val, addrIdx, isTarget); err != nil {
			return err
		}
	}

	if bytecode.HasExceptionHandler(in.Op) {
		idx, ok := addrIdx[in.Handler]
		if !ok {
			return fmt.Errorf("handler target %d is not an instruction head", in.Handler)
		}
		fmt.Fprintf(b, " ~%d", idx)
	}
	return nil
}

func writeToken(b *strings.Builder, def *image.Definition, op bytecode.Opcode, localIdx uint32, val bytecode.Word, addrIdx map[uint32]int, forceTarget bool) error {
	if name, ok := def.MangledNameAt(localIdx); ok {
		b.WriteByte('@')
		b.WriteString(name)
		return nil
	}
	if forceTarget || (bytecode.IsJump(op) && op != bytecode.SWITCH) {
		idx, ok := addrIdx[val]
		if !ok {
			return fmt.Errorf("jump target %d is not an instruction head", val)
		}
		fmt.Fprintf(b, "#%d", idx)
		return nil
	}
	fmt.Fprintf(b, "%d", val)
	return nil
}

// Decode parses pseudo-assembly text produced by Encode back into a
// pre-link *image.Bchir.
func Decode(src []byte) (*image.Bchir, error) {
	d := &decoder{s: bufio.NewScanner(bytes.NewReader(src))}
	return d.decode()
}

type decoder struct {
	s       *bufio.Scanner
	rawLine string
	pkg     *image.Bchir
	err     error
}

var sections = map[string]bool{
	"package:":   true,
	"main:":      true,
	"strings:":   true,
	"files:":     true,
	"initorder:": true,
	"class:":     true,
	"global:":    true,
	"function:":  true,
	"super:":     true,
	"vtable:":    true,
	"finalizer:": true,
	"code:":      true,
}

func (d *decoder) next() []string {
	d.rawLine = ""
	if d.err != nil {
		return nil
	}
	for d.s.Scan() {
		line := d.s.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		d.rawLine = line
		return fields
	}
	d.err = d.s.Err()
	return nil
}

func (d *decoder) decode() (*image.Bchir, error) {
	fields := d.next()
	if len(fields) == 0 || fields[0] != "package:" {
		return nil, fmt.Errorf("printer: expected package: section")
	}
	if len(fields) < 2 {
		return nil, fmt.Errorf("printer: package: missing name")
	}
	d.pkg = image.NewBchir(fields[1])
	for _, f := range fields[2:] {
		if f == "core" {
			d.pkg.IsCore = true
		}
	}

	fields = d.next()
	if len(fields) > 0 && fields[0] == "main:" {
		if len(fields) != 3 {
			return nil, fmt.Errorf("printer: main: expects name and expected-arg-count")
		}
		d.pkg.MainMangledName = fields[1]
		n, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("printer: main: %w", err)
		}
		d.pkg.MainExpectedArgs = n
		fields = d.next()
	}

	fields = d.strings(fields)
	fields = d.files(fields)
	fields = d.initOrder(fields)

	for len(fields) > 0 && fields[0] == "class:" {
		fields = d.class(fields)
	}
	for len(fields) > 0 && fields[0] == "global:" {
		fields = d.definition(fields, true)
	}
	for len(fields) > 0 && fields[0] == "function:" {
		fields = d.definition(fields, false)
	}

	if d.err == nil && len(fields) > 0 {
		d.err = fmt.Errorf("printer: unexpected section: %s", fields[0])
	}
	return d.pkg, d.err
}

func (d *decoder) strings(fields []string) []string {
	if d.err != nil || len(fields) == 0 || fields[0] != "strings:" {
		return fields
	}
	for fields = d.next(); len(fields) > 0 && !sections[fields[0]]; fields = d.next() {
		s, err := strconv.Unquote(strings.TrimSpace(d.rawLine))
		if err != nil {
			d.err = fmt.Errorf("printer: invalid string literal %q: %w", d.rawLine, err)
			return fields
		}
		d.pkg.AddString(s)
	}
	return fields
}

func (d *decoder) files(fields []string) []string {
	if d.err != nil || len(fields) == 0 || fields[0] != "files:" {
		return fields
	}
	for fields = d.next(); len(fields) > 0 && !sections[fields[0]]; fields = d.next() {
		d.pkg.AddFileName(fields[0])
	}
	return fields
}

func (d *decoder) initOrder(fields []string) []string {
	if d.err != nil || len(fields) == 0 || fields[0] != "initorder:" {
		return fields
	}
	for fields = d.next(); len(fields) > 0 && !sections[fields[0]]; fields = d.next() {
		d.pkg.InitFuncsForConsts = append(d.pkg.InitFuncsForConsts, fields[0])
	}
	return fields
}

func (d *decoder) class(fields []string) []string {
	if len(fields) < 2 {
		d.err = fmt.Errorf("printer: class: missing name")
		return nil
	}
	name := fields[1]
	info := &image.SClassInfo{VTable: map[string]string{}}

	fields = d.next()
	if len(fields) > 0 && fields[0] == "super:" {
		for fields = d.next(); len(fields) > 0 && !sections[fields[0]]; fields = d.next() {
			info.SuperClasses = append(info.SuperClasses, fields[0])
		}
	}
	if len(fields) > 0 && fields[0] == "vtable:" {
		for fields = d.next(); len(fields) > 0 && !sections[fields[0]]; fields = d.next() {
			if len(fields) != 2 {
				d.err = fmt.Errorf("printer: class %q: invalid vtable entry %q", name, d.rawLine)
				return fields
			}
			info.VTable[fields[0]] = fields[1]
		}
	}
	if len(fields) > 0 && fields[0] == "finalizer:" {
		if len(fields) != 2 {
			d.err = fmt.Errorf("printer: class %q: invalid finalizer line %q", name, d.rawLine)
			return fields
		}
		info.Finalizer = fields[1]
		fields = d.next()
	}

	d.pkg.AddSClass(name, info)
	return fields
}

func (d *decoder) definition(fields []string, isGlobal bool) []string {
	section := "function:"
	if isGlobal {
		section = "global:"
	}
	if len(fields) != 4 {
		d.err = fmt.Errorf("printer: %s expects 'name numArgs numLVars', got %q", section, d.rawLine)
		return nil
	}
	name := fields[1]
	numArgs, err1 := strconv.ParseUint(fields[2], 10, 32)
	numLVars, err2 := strconv.ParseUint(fields[3], 10, 32)
	if err1 != nil || err2 != nil {
		d.err = fmt.Errorf("printer: %s %q: invalid arg/lvar count", section, name)
		return nil
	}

	def := image.NewDefinition()
	def.NumArgs = uint32(numArgs)
	def.NumLVars = uint32(numLVars)

	fields = d.next()
	if len(fields) == 0 || fields[0] != "code:" {
		d.err = fmt.Errorf("printer: %s %q: expected code: section", section, name)
		return fields
	}

	var lines []string
	for fields = d.next(); len(fields) > 0 && !sections[fields[0]]; fields = d.next() {
		lines = append(lines, strings.Join(fields, " "))
	}
	if d.err == nil {
		if err := decodeCode(def, lines); err != nil {
			d.err = fmt.Errorf("printer: %s %q: %w", section, name, err)
		}
	}

	if isGlobal {
		d.pkg.AddGlobalVar(name, def)
	} else {
		d.pkg.AddFunction(name, def)
	}
	return fields
}

// pendingWord records a word in the decoded buffer that still needs a
// value: either a mangled-name annotation (resolved at link time) or a
// jump/handler target expressed as a textual instruction index (resolved
// once every instruction's final address is known).
type pendingWord struct {
	wordIdx int
	mangled string
	target  int // instruction index; valid iff mangled == ""
}

func decodeCode(def *image.Definition, lines []string) error {
	type parsed struct {
		op      bytecode.Opcode
		words   []bytecode.Word
		pending []pendingWord
		handler int // instruction index, -1 if none
	}

	var instrs []parsed
	addr := make([]uint32, 0, len(lines))
	pos := uint32(0)

	for _, line := range lines {
		toks := strings.Fields(line)
		if len(toks) == 0 {
			continue
		}
		op, ok := bytecode.Lookup(strings.ToLower(toks[0]))
		if !ok {
			return fmt.Errorf("invalid opcode: %s", toks[0])
		}
		shape := bytecode.ShapeOf(op)
		p := parsed{op: op, handler: -1}
		i := 1

		consume := func(isJumpArg bool) error {
			if i >= len(toks) {
				return fmt.Errorf("%s: missing operand", op)
			}
			tok := toks[i]
			i++
			widx := len(p.words)
			switch {
			case strings.HasPrefix(tok, "@"):
				p.pending = append(p.pending, pendingWord{wordIdx: widx, mangled: tok[1:]})
				p.words = append(p.words, 0)
			case strings.HasPrefix(tok, "#"):
				n, err := strconv.Atoi(tok[1:])
				if err != nil {
					return fmt.Errorf("%s: invalid target %q: %w", op, tok, err)
				}
				p.pending = append(p.pending, pendingWord{wordIdx: widx, target: n})
				p.words = append(p.words, 0)
			default:
				if isJumpArg {
					return fmt.Errorf("%s: expected jump target token '#n', got %q", op, tok)
				}
				n, err := strconv.ParseUint(tok, 10, 32)
				if err != nil {
					return fmt.Errorf("%s: invalid operand %q: %w", op, tok, err)
				}
				p.words = append(p.words, bytecode.Word(n))
			}
			return nil
		}

		if wideLiteralOps[op] {
			if i >= len(toks) {
				return fmt.Errorf("%s: missing operand", op)
			}
			v, err := strconv.ParseUint(toks[i], 10, 64)
			if err != nil {
				return fmt.Errorf("%s: invalid wide literal %q: %w", op, toks[i], err)
			}
			i++
			p.words = append(p.words, bytecode.Word(v), bytecode.Word(v>>32))
		} else {
			for argN := 0; argN < shape.Fixed; argN++ {
				isJump := bytecode.IsJump(op) && op != bytecode.SWITCH
				if err := consume(isJump); err != nil {
					return err
				}
			}
		}

		switch shape.Variadic {
		case bytecode.VariadicPath:
			n := p.words[0]
			for k := uint32(0); k < n; k++ {
				if err := consume(false); err != nil {
					return err
				}
			}
		case bytecode.VariadicSwitch:
			n := p.words[1]
			for k := uint32(0); k < 2*n; k++ {
				if err := consume(false); err != nil {
					return err
				}
			}
			for k := uint32(0); k < n+1; k++ {
				if err := consume(true); err != nil {
					return err
				}
			}
		}

		if bytecode.HasExceptionHandler(op) {
			if i >= len(toks) {
				return fmt.Errorf("%s: missing exception handler target", op)
			}
			tok := toks[i]
			i++
			if !strings.HasPrefix(tok, "~") {
				return fmt.Errorf("%s: expected handler token '~n', got %q", op, tok)
			}
			n, err := strconv.Atoi(tok[1:])
			if err != nil {
				return fmt.Errorf("%s: invalid handler target %q: %w", op, tok, err)
			}
			p.handler = n
		}
		if i != len(toks) {
			return fmt.Errorf("%s: unexpected trailing tokens: %v", op, toks[i:])
		}

		addr = append(addr, pos)
		pos += uint32(1 + len(p.words))
		instrs = append(instrs, p)
	}

	for _, p := range instrs {
		def.PushOp(p.op)
		for _, w := range p.words {
			def.Push(w)
		}
		if p.handler >= 0 {
			if p.handler >= len(addr) {
				return fmt.Errorf("%s: handler target index %d out of range", p.op, p.handler)
			}
			def.Push(addr[p.handler])
		}
	}

	for idx, p := range instrs {
		for _, pw := range p.pending {
			wordPC := addr[idx] + 1 + uint32(pw.wordIdx)
			if pw.mangled != "" {
				def.AddMangledNameAt(wordPC, pw.mangled)
				continue
			}
			if pw.target >= len(addr) {
				return fmt.Errorf("%s: target index %d out of range", p.op, pw.target)
			}
			def.Set(wordPC, addr[pw.target])
		}
	}
	return nil
}
