package image

import (
	"github.com/cangjie-lang/bchir/ivalue"
	"github.com/cangjie-lang/bchir/source"
)

// DefaultFunctionKind enumerates the fixed set of runtime helper functions
// the interpreter must be able to find by mangled name after linking (spec
// §4.7). The order and membership mirror BCHIR.h's DefaultFunctionKind,
// minus Main and Invalid which are tracked separately here.
type DefaultFunctionKind int

const (
	ThrowArithmeticException DefaultFunctionKind = iota
	ThrowOverflowException
	ThrowIndexOutOfBoundsException
	ThrowNegativeArraySizeException
	CallToString
	ThrowArithmeticExceptionMsg
	ThrowOutOfMemoryError
	CheckIsError
	ThrowError
	CallPrintStackTrace
	CallPrintStackTraceError

	numDefaultFunctions
)

// DefaultFunctionMangledNames gives the mangled name the linker searches
// for to resolve each DefaultFunctionKind (spec §4.7). A real implementation
// mangles per Cangjie's name-mangling scheme; this module treats the
// mangled name as an opaque, already-mangled string supplied by the
// producer of the per-package image, since no compiler front end is in
// scope.
var DefaultFunctionMangledNames = [numDefaultFunctions]string{
	ThrowArithmeticException:        "throwArithmeticException",
	ThrowOverflowException:          "throwOverflowException",
	ThrowIndexOutOfBoundsException:  "throwIndexOutOfBoundsException",
	ThrowNegativeArraySizeException: "throwNegativeArraySizeException",
	CallToString:                    "callToString",
	ThrowArithmeticExceptionMsg:     "throwArithmeticExceptionMsg",
	ThrowOutOfMemoryError:           "throwOutOfMemoryError",
	CheckIsError:                    "checkIsError",
	ThrowError:                      "throwError",
	CallPrintStackTrace:             "callPrintStackTrace",
	CallPrintStackTraceError:        "callPrintStackTraceError",
}

// Bchir is a single package's compile-time image: pools, function and
// global definitions, class metadata, and (once IsLinked) the merged
// program state a Thread executes against (spec §3.3).
type Bchir struct {
	PackageName string
	IsCore      bool

	Functions  map[string]*Definition
	GlobalVars map[string]*Definition

	GlobalInitFunc        string
	GlobalInitLiteralFunc string
	InitFuncsForConsts    []string

	Strings   []string
	FileNames []string

	MainMangledName string
	MainExpectedArgs int

	SClassTable map[string]*SClassInfo

	// --- populated by the linker ---
	LinkedByteCode *Definition
	ClassTable     *ClassTable
	DefaultFuncPtrs [numDefaultFunctions]uint32
	NumGlobalVars   int
	// FuncOffsets maps a function's mangled name to its entry point in
	// LinkedByteCode, valid once linked. Global-variable initializer
	// definitions are entered here too, under their own mangled name, so
	// the synthesized global-init function can call them uniformly.
	FuncOffsets map[string]uint32
	// FuncMeta maps a function's entry point (as stored in a Func IVal or
	// FuncOffsets) to its calling-convention shape, valid once linked.
	FuncMeta map[uint32]FuncMeta
	// GlobalOffsets maps a global variable's mangled name to its assigned
	// GlobalId (spec §4.7 step 2; the linker's mangled_to_gvar_id table).
	GlobalOffsets map[string]uint32
	// ClassIDs maps a class's mangled name to its assigned ClassId (the
	// linker's mangled_to_class_id table).
	ClassIDs map[string]uint32
	// MethodIDs maps a method name to its assigned, process-unique MethodId
	// (the linker's mangled_to_method_id table, deduplicated across classes
	// and packages per spec §4.7 step 1).
	MethodIDs map[string]uint32
	// InitialGlobals holds the global slot values computed by running the
	// linker's synthesized global-init function (spec §4.7 step 6). A Thread
	// created over this image starts from these values instead of all-Invalid
	// (the linker's equivalent of calling SetGlobalVars before any other
	// evaluation begins).
	InitialGlobals []ivalue.IVal
}

// FuncMeta is a function's calling-convention shape: how many locals
// (including parameters) its Definition reserves.
type FuncMeta struct {
	NumArgs  uint32
	NumLVars uint32
}

// SClassInfo is the pre-link, serializable class description: super
// classes and a method-name-to-mangled-name vtable, keyed by mangled names
// rather than the numeric ids only the linker assigns (BCHIR.h's SClassInfo).
type SClassInfo struct {
	SuperClasses []string
	VTable       map[string]string // method name -> mangled name
	Finalizer    string            // mangled name, "" if none
}

// NewBchir creates an empty, unlinked Bchir image for packageName.
func NewBchir(packageName string) *Bchir {
	return &Bchir{
		PackageName: packageName,
		Functions:   map[string]*Definition{},
		GlobalVars:  map[string]*Definition{},
		SClassTable: map[string]*SClassInfo{},
	}
}

// AddFunction registers a function definition under its mangled name.
func (b *Bchir) AddFunction(mangledName string, def *Definition) {
	b.Functions[mangledName] = def
}

// AddGlobalVar registers a global variable definition (its initializer
// code, if any) under its mangled name.
func (b *Bchir) AddGlobalVar(mangledName string, def *Definition) {
	b.GlobalVars[mangledName] = def
}

// AddSClass registers a pre-link class description under its mangled name.
func (b *Bchir) AddSClass(mangledName string, info *SClassInfo) {
	b.SClassTable[mangledName] = info
}

// AddString interns str into the string pool and returns its index.
func (b *Bchir) AddString(str string) int {
	for i, s := range b.Strings {
		if s == str {
			return i
		}
	}
	idx := len(b.Strings)
	b.Strings = append(b.Strings, str)
	return idx
}

// AddFileName interns name into the file-name pool and returns its index.
func (b *Bchir) AddFileName(name string) int {
	for i, s := range b.FileNames {
		if s == name {
			return i
		}
	}
	idx := len(b.FileNames)
	b.FileNames = append(b.FileNames, name)
	return idx
}

// IsLinked reports whether Link has produced a merged LinkedByteCode.
func (b *Bchir) IsLinked() bool {
	return b.LinkedByteCode != nil
}

// FileNameOf resolves a source.Position's FileID against this image's
// file-name pool, returning "" for an unknown/synthetic position.
func (b *Bchir) FileNameOf(pos source.Position) string {
	idx := int(pos.File)
	if idx <= 0 || idx > len(b.FileNames) {
		return ""
	}
	return b.FileNames[idx-1]
}
