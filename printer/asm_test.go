package printer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/image"
)

func push(d *image.Definition, o bytecode.Opcode, args ...bytecode.Word) {
	d.PushOp(o)
	for _, a := range args {
		d.Push(a)
	}
}

func TestEncodeDecode_RoundTripsPlainArithmetic(t *testing.T) {
	pkg := image.NewBchir("pkgA")
	pkg.MainMangledName = "main"
	pkg.MainExpectedArgs = 0

	def := image.NewDefinition()
	def.NumArgs = 0
	def.NumLVars = 0
	push(def, bytecode.LIT_I32, 5)
	push(def, bytecode.LIT_I32, 3)
	push(def, bytecode.BIN_ADD, 0, 0)
	push(def, bytecode.RETURN)
	pkg.AddFunction("main", def)

	out, err := Encode(pkg)
	require.NoError(t, err)

	back, err := Decode(out)
	require.NoError(t, err)

	assert.Equal(t, "pkgA", back.PackageName)
	assert.Equal(t, "main", back.MainMangledName)
	require.Contains(t, back.Functions, "main")
	assert.Equal(t, def.Code, back.Functions["main"].Code)
}

func TestEncodeDecode_RoundTripsJumpsAndBranch(t *testing.T) {
	pkg := image.NewBchir("pkgA")
	def := image.NewDefinition()
	push(def, bytecode.LIT_BOOL, 1)
	branchAt := def.NextIndex()
	push(def, bytecode.BRANCH, 0, 0)
	push(def, bytecode.LIT_I32, 1)
	push(def, bytecode.JUMP, 0)
	jumpAt := branchAt + 1 // position of BRANCH's first target word
	trueTarget := def.NextIndex()
	push(def, bytecode.LIT_I32, 2)
	push(def, bytecode.RETURN)
	def.Set(jumpAt, trueTarget)
	def.Set(jumpAt+1, trueTarget)
	pkg.AddFunction("main", def)

	out, err := Encode(pkg)
	require.NoError(t, err)
	back, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, def.Code, back.Functions["main"].Code)
}

func TestEncodeDecode_RoundTripsMangledNameAnnotation(t *testing.T) {
	pkg := image.NewBchir("pkgA")
	def := image.NewDefinition()
	litIdx := def.NextIndex()
	push(def, bytecode.LIT_FUNC, 0)
	def.AddMangledNameAt(litIdx+1, "pkgB.callee")
	push(def, bytecode.APPLY, 0)
	push(def, bytecode.RETURN)
	pkg.AddFunction("caller", def)

	out, err := Encode(pkg)
	require.NoError(t, err)
	back, err := Decode(out)
	require.NoError(t, err)

	name, ok := back.Functions["caller"].MangledNameAt(litIdx + 1)
	require.True(t, ok)
	assert.Equal(t, "pkgB.callee", name)
}

func TestEncodeDecode_RoundTripsWideLiteral(t *testing.T) {
	pkg := image.NewBchir("pkgA")
	def := image.NewDefinition()
	def.PushOp(bytecode.LIT_I64)
	def.Push8Bytes(1<<40 + 7)
	push(def, bytecode.RETURN)
	pkg.AddFunction("main", def)

	out, err := Encode(pkg)
	require.NoError(t, err)
	back, err := Decode(out)
	require.NoError(t, err)
	assert.Equal(t, def.Code, back.Functions["main"].Code)
}

func TestEncodeDecode_RoundTripsClassesAndPools(t *testing.T) {
	pkg := image.NewBchir("pkgA")
	pkg.AddString("hello")
	pkg.AddFileName("a.cj")
	pkg.AddSClass("Animal", &image.SClassInfo{
		VTable: map[string]string{"speak": "Animal.speak"},
	})
	pkg.AddSClass("Dog", &image.SClassInfo{
		SuperClasses: []string{"Animal"},
		VTable:       map[string]string{"speak": "Dog.speak"},
		Finalizer:    "Dog.finalize",
	})
	speak := image.NewDefinition()
	push(speak, bytecode.LIT_I32, 1)
	push(speak, bytecode.RETURN)
	pkg.AddFunction("Animal.speak", speak)
	pkg.InitFuncsForConsts = []string{"Animal.speak"}

	out, err := Encode(pkg)
	require.NoError(t, err)
	back, err := Decode(out)
	require.NoError(t, err)

	assert.Equal(t, []string{"hello"}, back.Strings)
	assert.Equal(t, []string{"a.cj"}, back.FileNames)
	assert.Equal(t, []string{"Animal.speak"}, back.InitFuncsForConsts)
	require.Contains(t, back.SClassTable, "Dog")
	assert.Equal(t, []string{"Animal"}, back.SClassTable["Dog"].SuperClasses)
	assert.Equal(t, "Dog.speak", back.SClassTable["Dog"].VTable["speak"])
	assert.Equal(t, "Dog.finalize", back.SClassTable["Dog"].Finalizer)
}

func TestDecode_RejectsUnknownOpcode(t *testing.T) {
	src := []byte("package: p\nfunction: main 0 0\n\tcode:\n\t\tnonsense_op\n")
	_, err := Decode(src)
	assert.Error(t, err)
}
