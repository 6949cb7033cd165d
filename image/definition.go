// Package image models a BCHIR program: the per-definition bytecode buffer
// with its annotations, and the whole-program Bchir container that holds
// every function, global, class and pool, pre- and post-linking (spec
// §3.3). It is a direct structural port of
// original_source/include/cangjie/CHIR/Interpreter/BCHIR.h's Bchir/
// Definition/ClassInfo types into Go value/reference semantics, since the
// teacher module has no equivalent container (nenuphar compiles straight
// to an in-memory Chunk with no linking phase).
package image

import (
	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/source"
)

// Definition is one function or global-variable body: its bytecode plus
// the annotations attached to specific instruction offsets (mangled-name
// and source-position side tables, per BCHIR.h's Definition).
type Definition struct {
	NumArgs  uint32
	NumLVars uint32
	Code     []bytecode.Word

	mangledNameAt   map[uint32]string
	sourcePositionAt map[uint32]source.Position
}

// NewDefinition creates an empty Definition.
func NewDefinition() *Definition {
	return &Definition{
		mangledNameAt:    map[uint32]string{},
		sourcePositionAt: map[uint32]source.Position{},
	}
}

// Push appends one word to the bytecode and returns its index.
func (d *Definition) Push(w bytecode.Word) uint32 {
	idx := uint32(len(d.Code))
	d.Code = append(d.Code, w)
	return idx
}

// PushOp appends an opcode word.
func (d *Definition) PushOp(op bytecode.Opcode) uint32 {
	return d.Push(bytecode.Word(op))
}

// Push8Bytes appends a 64-bit value as two words, low word first.
func (d *Definition) Push8Bytes(v uint64) uint32 {
	idx := d.Push(bytecode.Word(v))
	d.Push(bytecode.Word(v >> 32))
	return idx
}

// Set overwrites the word at index.
func (d *Definition) Set(index uint32, w bytecode.Word) {
	d.Code[index] = w
}

// Get reads the word at index.
func (d *Definition) Get(index uint32) bytecode.Word {
	return d.Code[index]
}

// Get8Bytes reads a 64-bit value stored as two words starting at index.
func (d *Definition) Get8Bytes(index uint32) uint64 {
	return uint64(d.Code[index]) | uint64(d.Code[index+1])<<32
}

// NextIndex returns the index the next Push will land at.
func (d *Definition) NextIndex() uint32 {
	return uint32(len(d.Code))
}

// Size returns the number of words in the bytecode.
func (d *Definition) Size() int {
	return len(d.Code)
}

// Resize grows or truncates the bytecode buffer to newSize words.
func (d *Definition) Resize(newSize int) {
	if newSize <= len(d.Code) {
		d.Code = d.Code[:newSize]
		return
	}
	d.Code = append(d.Code, make([]bytecode.Word, newSize-len(d.Code))...)
}

// AddMangledNameAt associates a mangled name with instruction index idx,
// for calls/types resolved relative to another definition (e.g. a
// LIT_FUNC placeholder before linking).
func (d *Definition) AddMangledNameAt(idx uint32, mangledName string) {
	d.mangledNameAt[idx] = mangledName
}

// MangledNameAt returns the mangled name annotation at idx, if any.
func (d *Definition) MangledNameAt(idx uint32) (string, bool) {
	name, ok := d.mangledNameAt[idx]
	return name, ok
}

// MangledNameAnnotations returns every (index, name) annotation.
func (d *Definition) MangledNameAnnotations() map[uint32]string {
	return d.mangledNameAt
}

// SourcePositionAnnotations returns every (index, position) annotation
// recorded exactly at that index (as opposed to SourcePositionAt's
// nearest-at-or-before lookup), for the linker to copy wholesale into the
// merged image with remapped file ids.
func (d *Definition) SourcePositionAnnotations() map[uint32]source.Position {
	return d.sourcePositionAt
}

// AddSourcePositionAt associates a source position with instruction index idx.
func (d *Definition) AddSourcePositionAt(idx uint32, pos source.Position) {
	d.sourcePositionAt[idx] = pos
}

// SourcePositionAt returns the source position closest to (at or before)
// idx, for backtrace rendering. It returns the zero Position if none was
// ever recorded at or before idx.
func (d *Definition) SourcePositionAt(idx uint32) source.Position {
	best := source.Position{}
	bestIdx := int64(-1)
	for at, pos := range d.sourcePositionAt {
		if at <= idx && int64(at) > bestIdx {
			bestIdx = int64(at)
			best = pos
		}
	}
	return best
}
