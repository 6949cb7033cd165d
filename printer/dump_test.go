package printer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cangjie-lang/bchir/bytecode"
	"github.com/cangjie-lang/bchir/diag"
	"github.com/cangjie-lang/bchir/image"
	"github.com/cangjie-lang/bchir/linker"
)

func TestDump_IncludesAnnotationHintsAndSections(t *testing.T) {
	pkg := image.NewBchir("pkgA")
	speak := image.NewDefinition()
	push(speak, bytecode.LIT_I32, 1)
	push(speak, bytecode.RETURN)
	pkg.AddFunction("Animal.speak", speak)
	pkg.AddSClass("Animal", &image.SClassInfo{
		VTable: map[string]string{"speak": "Animal.speak"},
	})
	pkg.AddString("greeting")

	mainDef := image.NewDefinition()
	litIdx := mainDef.NextIndex()
	push(mainDef, bytecode.ALLOCATE_CLASS, 0, 0)
	mainDef.AddMangledNameAt(litIdx+1, "Animal")
	push(mainDef, bytecode.RETURN)
	pkg.AddFunction("main", mainDef)

	linked, err := linker.Link(context.Background(), []*image.Bchir{pkg}, diag.NewSink())
	require.NoError(t, err)

	out := Dump(linked)
	assert.Contains(t, out, "; classes:")
	assert.Contains(t, out, "Animal")
	assert.Contains(t, out, "; strings:")
	assert.Contains(t, out, "greeting")
	assert.Contains(t, out, "@Animal")
	assert.Contains(t, out, "allocate_class")
}

func TestDump_UnlinkedPackageSkipsCodeSection(t *testing.T) {
	pkg := image.NewBchir("pkgA")
	out := Dump(pkg)
	assert.Contains(t, out, "; package pkgA")
	assert.NotContains(t, out, "function main")
}
