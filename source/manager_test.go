package source_test

import (
	"testing"

	"github.com/cangjie-lang/bchir/source"
	"github.com/stretchr/testify/assert"
)

func TestFileIDInterning(t *testing.T) {
	m := source.NewManager()
	a := m.FileID("a.cj")
	b := m.FileID("b.cj")
	again := m.FileID("a.cj")

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "a.cj", m.Name(a))
}

func TestNoFileIsZero(t *testing.T) {
	assert.Equal(t, source.FileID(0), source.NoFile)
}

func TestPositionValidity(t *testing.T) {
	var zero source.Position
	assert.False(t, zero.IsValid())

	p := source.Position{File: 1, Line: 10, Col: 4}
	assert.True(t, p.IsValid())
}
