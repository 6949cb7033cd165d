// Package linker merges per-package BCHIR images into a single linked
// program (spec §4.7): it assigns process-unique class, method and global
// ids, concatenates every function's bytecode into one buffer while
// remapping pool indices and patching cross-function/cross-package
// references, resolves the eleven runtime helper functions, and runs the
// synthesized global-initializer function to materialize constant globals.
//
// The pass ordering (classes, globals, dummy-abort, functions,
// default-function resolution, global-init synthesis, class-table
// finalization) is grounded on
// original_source/.../BCHIRLinker.h. The overall shape -- a driver function
// building one state-holder struct and running a fixed ordered sequence of
// passes over it -- is grounded on the teacher's
// lang/compiler.CompileFiles/pcomp orchestration style.
package linker

import (
	"context"
	"fmt"
	"sort"

	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/diag"
	"github.com/cangjie-lang/bchir/image"
	"github.com/cangjie-lang/bchir/interp"
	"github.com/cangjie-lang/bchir/source"
)

// dummyAbortName is the mangled name under which the linker's synthetic
// "always abort" function is registered, used to patch any reference that
// is genuinely absent at end of linking (spec §4.7: "the slot is then
// patched to the dummy-abort function").
const dummyAbortName = "$dummy_abort"

// globalInitName is the mangled name of the synthetic function the linker
// builds to run every package's constant-global initializers in order
// (spec §4.7 step 6), recorded as the linked image's GlobalInitFunc.
const globalInitName = "$global_init"

// reference records one not-yet-resolved mangled-name use: the absolute
// word offset in the linked code buffer that must be patched once (or if)
// the name resolves.
type reference struct {
	name   string
	offset uint32
}

type linkState struct {
	linked *image.Bchir
	sink   *diag.Sink

	preClasses map[string]*image.SClassInfo
	classOrder []string

	pending []reference

	nextMethodID uint32
}

// Link merges pkgs into a single linked *image.Bchir, running the
// synthesized global-init function against an internal interp.Thread to
// materialize constant globals before returning (spec §4.7 step 6). The
// packages are merged in slice order, earliest first, matching
// "reverse of package dependency -- dependencies first" (spec §5).
//
// Non-fatal link conditions (a missing default function, a reference that
// never resolved and was patched to the dummy-abort function) are recorded
// as warnings on sink rather than failing the link, matching spec §6.3's
// "falls back to emitting a compile-time diagnostic" for a missing default
// function. The returned error is reserved for conditions that leave no
// usable linked image: a validation failure, or the global-init function
// itself raising.
func Link(ctx context.Context, pkgs []*image.Bchir, sink *diag.Sink) (*image.Bchir, error) {
	if sink == nil {
		sink = diag.NewSink()
	}
	linked := image.NewBchir("linked")
	linked.ClassTable = image.NewClassTable()
	linked.LinkedByteCode = image.NewDefinition()
	linked.FuncOffsets = map[string]uint32{}
	linked.FuncMeta = map[uint32]image.FuncMeta{}
	linked.GlobalOffsets = map[string]uint32{}
	linked.ClassIDs = map[string]uint32{}
	linked.MethodIDs = map[string]uint32{}

	l := &linkState{
		linked:     linked,
		sink:       sink,
		preClasses: map[string]*image.SClassInfo{},
	}

	// step 1: classes -- ids first (cross-package superclass references may
	// point forward), then transitive closures and method ids.
	l.collectClasses(pkgs)

	// step 2: globals -- assign a GlobalId to every package global.
	l.collectGlobals(pkgs)

	// step 3: dummy abort function, referenced by any reference that is
	// genuinely unresolved at end of link.
	dummyPC := l.emitDummyAbort()

	// step 4: functions and global-var initializer bodies, bytecode
	// concatenated in package order with pool indices remapped.
	var initOrder []string
	for _, pkg := range pkgs {
		strRemap, fileRemap := l.internPools(pkg)
		for _, name := range sortedKeys(pkg.Functions) {
			l.appendDefinition(pkg.Functions[name], name, strRemap, fileRemap)
		}
		for _, name := range sortedKeys(pkg.GlobalVars) {
			l.appendDefinition(pkg.GlobalVars[name], name, strRemap, fileRemap)
		}
		if pkg.MainMangledName != "" {
			linked.MainMangledName = pkg.MainMangledName
			linked.MainExpectedArgs = pkg.MainExpectedArgs
		}
		if pkg.IsCore {
			linked.IsCore = true
		}
		initOrder = append(initOrder, pkg.InitFuncsForConsts...)
	}

	// step 5: resolve the eleven default functions. Spec §6.3: a missing
	// default function leaves its slot at 0 rather than the dummy-abort
	// function, so the interpreter can tell "genuinely absent" (emit a
	// diagnostic) from "present but aborts".
	for i, name := range image.DefaultFunctionMangledNames {
		if pc, ok := linked.FuncOffsets[name]; ok {
			linked.DefaultFuncPtrs[i] = pc
		} else {
			sink.Warnf(source.Position{}, "linker: default function %q not found in linked image", name)
		}
	}

	// step 6: synthesize and register the global-init function.
	l.synthesizeGlobalInit(initOrder)
	linked.GlobalInitFunc = globalInitName
	linked.NumGlobalVars = len(linked.GlobalOffsets)

	// resolve pending references before the class table finalization pass
	// consults FuncOffsets/ClassIDs for vtable and finalizer entries.
	l.resolvePending(dummyPC)

	// step 7: finalize the class table: transitive superclass closures and
	// post-link vtables/finalizers.
	l.finalizeClasses()

	if err := bytecode.Validate(linked.LinkedByteCode.Code); err != nil {
		return nil, fmt.Errorf("linker: %w", err)
	}

	// run the synthesized global-init function to materialize constant
	// globals, then capture the resulting slot values so every subsequent
	// Thread created over this image starts from them (spec §4.7 step 6,
	// "written directly into the global environment via SetGlobalVars").
	th := interp.NewThread(ctx, linked)
	if _, err := th.Call(globalInitName, nil); err != nil {
		return nil, fmt.Errorf("linker: global initialization failed: %w", err)
	}
	linked.InitialGlobals = th.Globals()

	return linked, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// resolveName looks up a mangled name against every id-bearing table the
// linker maintains, in a fixed priority order: callable entry points
// (functions and global initializers), then class ids, then global
// variable slots, then method ids. Mangled names are assumed unique across
// these namespaces, as a real Cangjie name-mangling scheme guarantees. The
// one overlap, a global and its initializer sharing a name, is handled by
// appendDefinition, which resolves GVAR/GVAR_SET operands itself.
func (l *linkState) resolveName(name string) (uint32, bool) {
	if pc, ok := l.linked.FuncOffsets[name]; ok {
		return pc, true
	}
	if id, ok := l.linked.ClassIDs[name]; ok {
		return id, true
	}
	if id, ok := l.linked.GlobalOffsets[name]; ok {
		return id, true
	}
	if id, ok := l.linked.MethodIDs[name]; ok {
		return id, true
	}
	return 0, false
}

func (l *linkState) recordReference(name string, offset uint32) {
	l.pending = append(l.pending, reference{name: name, offset: offset})
}

// resolvePending patches every recorded reference, falling back to
// dummyPC for names that never resolved (spec §4.7: "the slot is then
// patched to the dummy-abort function").
func (l *linkState) resolvePending(dummyPC uint32) {
	for _, ref := range l.pending {
		val, ok := l.resolveName(ref.name)
		if !ok {
			l.sink.Warnf(source.Position{}, "linker: unresolved reference %q, patched to abort", ref.name)
			val = dummyPC
		}
		l.linked.LinkedByteCode.Set(ref.offset, val)
	}
}

func (l *linkState) emitDummyAbort() uint32 {
	pc := l.linked.LinkedByteCode.NextIndex()
	l.linked.LinkedByteCode.PushOp(bytecode.ABORT)
	l.linked.FuncOffsets[dummyAbortName] = pc
	l.linked.FuncMeta[pc] = image.FuncMeta{}
	return pc
}

// synthesizeGlobalInit builds the function that invokes every package's
// constant-global initializer, earliest package first (spec §4.7 step 6,
// §5's "exactly linker-emitted order" ordering guarantee). Each
// initializer is a zero-argument callable (already registered in
// FuncOffsets by appendDefinition, whether it came from Functions or
// GlobalVars); its own bytecode is responsible for the trailing GVAR_SET
// that stores its result, so the synthetic function only needs to invoke
// it and discard the (unit) result.
func (l *linkState) synthesizeGlobalInit(initOrder []string) {
	def := image.NewDefinition()
	for _, name := range initOrder {
		def.PushOp(bytecode.LIT_FUNC)
		argIdx := def.NextIndex()
		def.Push(0) // resolved to name's entry pc when copied into the linked buffer
		def.AddMangledNameAt(argIdx, name)
		def.PushOp(bytecode.APPLY)
		def.Push(0) // 0 args
		def.PushOp(bytecode.DROP)
	}
	def.PushOp(bytecode.LIT_UNIT)
	def.PushOp(bytecode.RETURN)

	base := l.linked.LinkedByteCode.NextIndex()
	l.linked.FuncOffsets[globalInitName] = base
	l.linked.FuncMeta[base] = image.FuncMeta{}
	l.copyDefinitionVerbatim(def, base)
}

// copyDefinitionVerbatim appends def's code as-is (no jump-target
// shifting needed: it contains no intra-function jumps), recording any
// mangled-name annotation as a pending reference at its shifted offset.
func (l *linkState) copyDefinitionVerbatim(def *image.Definition, base uint32) {
	for i, w := range def.Code {
		idx := uint32(i)
		offset := base + idx
		if name, ok := def.MangledNameAt(idx); ok {
			l.recordReference(name, offset)
			l.linked.LinkedByteCode.Push(0)
			continue
		}
		l.linked.LinkedByteCode.Push(w)
	}
}

// internPools interns pkg's string and file-name pools into the linked
// image's pools, returning per-package remap tables: strRemap[localIdx] is
// the linked string-pool index, fileRemap[localFileID] is the linked
// source.FileID (spec §8 invariant 10: intern/resolve round-trips).
func (l *linkState) internPools(pkg *image.Bchir) (strRemap []int, fileRemap []source.FileID) {
	strRemap = make([]int, len(pkg.Strings))
	for i, s := range pkg.Strings {
		strRemap[i] = l.linked.AddString(s)
	}
	// index 0 of fileRemap is unused: FileID 0 means source.NoFile and is
	// never remapped, since pkg.FileNames is addressed 1-based via FileID.
	fileRemap = make([]source.FileID, len(pkg.FileNames)+1)
	for i, name := range pkg.FileNames {
		fileRemap[i+1] = source.FileID(l.linked.AddFileName(name) + 1)
	}
	return strRemap, fileRemap
}

// appendDefinition copies one function or global-var Definition's code
// into the linked buffer, remapping string-pool indices, jump/handler
// targets (shifted by the new base) and mangled-name-annotated operands
// (deferred as pending references), and carries over mangled-name and
// source-position annotations for backtrace assembly (spec §4.1, §4.7
// step 4).
func (l *linkState) appendDefinition(def *image.Definition, name string, strRemap []int, fileRemap []source.FileID) {
	base := l.linked.LinkedByteCode.NextIndex()
	l.linked.FuncOffsets[name] = base
	l.linked.FuncMeta[base] = image.FuncMeta{NumArgs: def.NumArgs, NumLVars: def.NumLVars}

	code := def.Code
	for localPC := uint32(0); int(localPC) < len(code); {
		in := bytecode.Decode(code, localPC)
		l.linked.LinkedByteCode.PushOp(in.Op)

		for argN, val := range in.Args {
			localIdx := localPC + 1 + uint32(argN)
			offset := l.linked.LinkedByteCode.NextIndex()
			switch {
			case in.Op == bytecode.LIT_STRING && argN == 0:
				val = bytecode.Word(strRemap[val])
			case in.Op == bytecode.JUMP || in.Op == bytecode.BRANCH:
				val = base + val
			default:
				if nm, ok := def.MangledNameAt(localIdx); ok {
					// a global's initializer is registered in FuncOffsets under
					// the global's own name, so GVAR/GVAR_SET operands are
					// resolved to the GlobalId here rather than by resolveName.
					if id, isGlobal := l.linked.GlobalOffsets[nm]; isGlobal && (in.Op == bytecode.GVAR || in.Op == bytecode.GVAR_SET) {
						val = id
						break
					}
					l.recordReference(nm, offset)
					val = 0
				}
			}
			l.linked.LinkedByteCode.Push(val)
		}

		tailStart := localPC + 1 + uint32(len(in.Args))
		for t, val := range in.Tail {
			localIdx := tailStart + uint32(t)
			offset := l.linked.LinkedByteCode.NextIndex()
			if in.Op == bytecode.SWITCH {
				n := in.Args[1]
				if uint32(t) >= 2*n {
					val = base + val // target word
				}
			}
			if nm, ok := def.MangledNameAt(localIdx); ok {
				l.recordReference(nm, offset)
				val = 0
			}
			l.linked.LinkedByteCode.Push(val)
		}

		if bytecode.HasExceptionHandler(in.Op) {
			l.linked.LinkedByteCode.Push(base + in.Handler)
		}

		localPC = in.Next
	}

	for idx, nm := range def.MangledNameAnnotations() {
		l.linked.LinkedByteCode.AddMangledNameAt(base+idx, nm)
	}
	for idx, pos := range def.SourcePositionAnnotations() {
		remapped := pos
		if int(pos.File) < len(fileRemap) {
			remapped.File = fileRemap[pos.File]
		}
		l.linked.LinkedByteCode.AddSourcePositionAt(base+idx, remapped)
	}
}

// collectClasses assigns a monotonic ClassId to every class across every
// package (in package, then sorted-name, order) and a monotonic MethodId
// to every distinct method name encountered in any vtable, deduplicated
// across classes and packages (spec §4.7 step 1).
func (l *linkState) collectClasses(pkgs []*image.Bchir) {
	for _, pkg := range pkgs {
		for _, name := range sortedKeys(pkg.SClassTable) {
			info := pkg.SClassTable[name]
			l.preClasses[name] = info
			l.classOrder = append(l.classOrder, name)
			id := uint32(len(l.linked.ClassIDs) + 1) // 0 is reserved ("no class")
			l.linked.ClassIDs[name] = id
			for _, methodName := range sortedKeys(info.VTable) {
				l.methodID(methodName)
			}
		}
	}
}

func (l *linkState) methodID(name string) uint32 {
	if id, ok := l.linked.MethodIDs[name]; ok {
		return id
	}
	l.nextMethodID++
	l.linked.MethodIDs[name] = l.nextMethodID
	return l.nextMethodID
}

// collectGlobals assigns a monotonic GlobalId to every package global
// (spec §4.7 step 2).
func (l *linkState) collectGlobals(pkgs []*image.Bchir) {
	for _, pkg := range pkgs {
		for _, name := range sortedKeys(pkg.GlobalVars) {
			l.linked.GlobalOffsets[name] = uint32(len(l.linked.GlobalOffsets))
		}
	}
}

// finalizeClasses computes each class's transitive superclass closure and
// translates its pre-link, name-keyed vtable and finalizer into the
// post-link, id-keyed image.ClassInfo the interpreter consults for
// INSTANCEOF/INVOKE/finalization (spec §4.7 step 7).
func (l *linkState) finalizeClasses() {
	memo := map[string]map[uint32]struct{}{}
	for _, name := range l.classOrder {
		id := l.linked.ClassIDs[name]
		info := l.preClasses[name]
		ci := image.NewClassInfo(name)

		closure := l.superClosure(name, memo)
		for sid := range closure {
			ci.SuperClasses.Put(sid, struct{}{})
		}
		// invariant 4 (spec §8): INSTANCEOF cls is true iff cls is in
		// super_classes union {self}; storing self too lets ClassInfo's
		// unmodified IsSubclassOf implement that union directly.
		ci.SuperClasses.Put(id, struct{}{})

		for methodName, fnName := range info.VTable {
			methodID := l.methodID(methodName)
			pc, ok := l.linked.FuncOffsets[fnName]
			if !ok {
				l.sink.Warnf(source.Position{}, "linker: class %q method %q: unresolved implementation %q", name, methodName, fnName)
				pc = l.linked.FuncOffsets[dummyAbortName]
			}
			ci.VTable.Put(methodID, pc)
		}

		if info.Finalizer != "" {
			if pc, ok := l.linked.FuncOffsets[info.Finalizer]; ok {
				ci.FinalizerIdx = pc
			} else {
				l.sink.Warnf(source.Position{}, "linker: class %q: unresolved finalizer %q", name, info.Finalizer)
			}
		}

		l.linked.ClassTable.Add(id, ci)
	}
}

// superClosure computes (and memoizes) the transitive set of ancestor
// ClassIds reachable from name's declared super classes.
func (l *linkState) superClosure(name string, memo map[string]map[uint32]struct{}) map[uint32]struct{} {
	if m, ok := memo[name]; ok {
		return m
	}
	closure := map[uint32]struct{}{}
	memo[name] = closure // guards against (invalid) cycles during recursion
	info := l.preClasses[name]
	if info == nil {
		return closure
	}
	for _, super := range info.SuperClasses {
		if id, ok := l.linked.ClassIDs[super]; ok {
			closure[id] = struct{}{}
		}
		for id := range l.superClosure(super, memo) {
			closure[id] = struct{}{}
		}
	}
	memo[name] = closure
	return closure
}
