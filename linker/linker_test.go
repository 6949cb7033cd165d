package linker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/diag"
	"github.com/cangjie-lang/bchir/image"
	"github.com/cangjie-lang/bchir/interp"
)

// push mirrors interp's test helper: append an opcode followed by its
// immediate words.
func push(d *image.Definition, o bytecode.Opcode, args ...bytecode.Word) {
	d.PushOp(o)
	for _, a := range args {
		d.Push(a)
	}
}

func TestLink_CrossPackageFunctionCallAndConstGlobal(t *testing.T) {
	pkgA := image.NewBchir("pkgA")

	// global_answer's initializer: global_answer = 42.
	initDef := image.NewDefinition()
	push(initDef, bytecode.LIT_I32, 42)
	setIdx := initDef.NextIndex()
	push(initDef, bytecode.GVAR_SET, 0) // patched by the linker to global_answer's GlobalId
	initDef.AddMangledNameAt(setIdx+1, "global_answer")
	push(initDef, bytecode.LIT_UNIT)
	push(initDef, bytecode.RETURN)
	pkgA.AddGlobalVar("global_answer", initDef)
	pkgA.InitFuncsForConsts = []string{"global_answer"}

	getAnswer := image.NewDefinition()
	getIdx := getAnswer.NextIndex()
	push(getAnswer, bytecode.GVAR, 0) // patched to global_answer's GlobalId
	getAnswer.AddMangledNameAt(getIdx+1, "global_answer")
	push(getAnswer, bytecode.RETURN)
	pkgA.AddFunction("pkgA.getAnswer", getAnswer)

	pkgB := image.NewBchir("pkgB")
	mainDef := image.NewDefinition()
	litIdx := mainDef.NextIndex()
	push(mainDef, bytecode.LIT_FUNC, 0) // patched to pkgA.getAnswer's entry pc
	mainDef.AddMangledNameAt(litIdx+1, "pkgA.getAnswer")
	push(mainDef, bytecode.APPLY, 0)
	push(mainDef, bytecode.RETURN)
	pkgB.AddFunction("main", mainDef)
	pkgB.MainMangledName = "main"

	sink := diag.NewSink()
	linked, err := Link(context.Background(), []*image.Bchir{pkgA, pkgB}, sink)
	require.NoError(t, err)
	require.False(t, sink.HasErrors())
	assert.Equal(t, "main", linked.MainMangledName)

	th := interp.NewThread(context.Background(), linked)
	th.MaxSteps = 1000
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.AsInt64())
}

func TestLink_VirtualDispatchAcrossClassesFromDifferentPackages(t *testing.T) {
	pkgA := image.NewBchir("pkgA")
	speak := image.NewDefinition()
	push(speak, bytecode.LIT_I32, 1)
	push(speak, bytecode.RETURN)
	pkgA.AddFunction("Animal.speak", speak)
	pkgA.AddSClass("Animal", &image.SClassInfo{
		VTable: map[string]string{"speak": "Animal.speak"},
	})

	pkgB := image.NewBchir("pkgB")
	dogSpeak := image.NewDefinition()
	push(dogSpeak, bytecode.LIT_I32, 2)
	push(dogSpeak, bytecode.RETURN)
	pkgB.AddFunction("Dog.speak", dogSpeak)
	pkgB.AddSClass("Dog", &image.SClassInfo{
		SuperClasses: []string{"Animal"},
		VTable:       map[string]string{"speak": "Dog.speak"},
	})

	mainDef := image.NewDefinition()
	classIdx := mainDef.NextIndex()
	push(mainDef, bytecode.ALLOCATE_CLASS, 0, 0) // (classID placeholder, numFields=0)
	mainDef.AddMangledNameAt(classIdx+1, "Dog")
	methodIdx := mainDef.NextIndex()
	push(mainDef, bytecode.INVOKE, 0, 1) // (methodID placeholder, argc=1)
	mainDef.AddMangledNameAt(methodIdx+1, "speak")
	push(mainDef, bytecode.RETURN)
	pkgB.AddFunction("main", mainDef)

	sink := diag.NewSink()
	linked, err := Link(context.Background(), []*image.Bchir{pkgA, pkgB}, sink)
	require.NoError(t, err)
	require.False(t, sink.HasErrors())

	dogID := linked.ClassIDs["Dog"]
	animalID := linked.ClassIDs["Animal"]
	require.NotZero(t, dogID)
	require.NotZero(t, animalID)

	ci, ok := linked.ClassTable.Get(dogID)
	require.True(t, ok)
	assert.True(t, ci.IsSubclassOf(animalID), "Dog must be a subclass of Animal")
	assert.True(t, ci.IsSubclassOf(dogID), "INSTANCEOF must also hold against a class's own id")

	th := interp.NewThread(context.Background(), linked)
	th.MaxSteps = 1000
	v, err := th.Call("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.AsInt64(), "dispatch must pick Dog's override, not Animal's")
}

func TestLink_UnresolvedReferenceFallsBackToDummyAbortAsWarning(t *testing.T) {
	pkg := image.NewBchir("pkg")
	mainDef := image.NewDefinition()
	litIdx := mainDef.NextIndex()
	push(mainDef, bytecode.LIT_FUNC, 0)
	mainDef.AddMangledNameAt(litIdx+1, "does.not.exist")
	push(mainDef, bytecode.APPLY, 0)
	push(mainDef, bytecode.RETURN)
	pkg.AddFunction("main", mainDef)

	sink := diag.NewSink()
	linked, err := Link(context.Background(), []*image.Bchir{pkg}, sink)
	require.NoError(t, err, "an unresolved reference is a warning, not a link failure")
	assert.False(t, sink.HasErrors())

	found := false
	for _, d := range sink.Diagnostics() {
		if d.Severity == diag.SevWarning {
			found = true
		}
	}
	assert.True(t, found, "expected at least one warning (unresolved reference and/or missing default functions)")

	th := interp.NewThread(context.Background(), linked)
	th.MaxSteps = 1000
	_, err = th.Call("main", nil)
	assert.Error(t, err, "calling through a patched-to-abort reference must fail at run time")
}

func TestLink_MissingDefaultFunctionLeavesSlotZero(t *testing.T) {
	pkg := image.NewBchir("pkg")
	mainDef := image.NewDefinition()
	push(mainDef, bytecode.LIT_UNIT)
	push(mainDef, bytecode.RETURN)
	pkg.AddFunction("main", mainDef)

	sink := diag.NewSink()
	linked, err := Link(context.Background(), []*image.Bchir{pkg}, sink)
	require.NoError(t, err)
	assert.False(t, sink.HasErrors())

	for _, pc := range linked.DefaultFuncPtrs {
		assert.Zero(t, pc, "no default function was ever defined by this package, so every slot stays 0")
	}

	warnings := 0
	for _, d := range sink.Diagnostics() {
		if d.Severity == diag.SevWarning {
			warnings++
		}
	}
	assert.Len(t, sink.Diagnostics(), warnings)
	assert.GreaterOrEqual(t, warnings, len(image.DefaultFunctionMangledNames))
}
