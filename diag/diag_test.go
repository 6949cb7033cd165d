package diag_test

import (
	"testing"

	"github.com/cangjie-lang/bchir/diag"
	"github.com/cangjie-lang/bchir/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkHasErrors(t *testing.T) {
	s := diag.NewSink()
	assert.False(t, s.HasErrors())
	s.Warnf(source.Position{}, "just a warning")
	assert.False(t, s.HasErrors())
	s.Errorf(source.Position{}, "boom")
	assert.True(t, s.HasErrors())
}

func TestDiagnosticsSortOrder(t *testing.T) {
	s := diag.NewSink()
	s.Errorf(source.Position{File: 1, Line: 10, Col: 1}, "second")
	s.Errorf(source.Position{File: 1, Line: 2, Col: 1}, "first")

	ds := s.Diagnostics()
	require.Len(t, ds, 2)
	assert.Equal(t, "first", ds[0].Message)
	assert.Equal(t, "second", ds[1].Message)
}

func TestErrAggregatesMessages(t *testing.T) {
	s := diag.NewSink()
	assert.NoError(t, s.Err())
	s.Errorf(source.Position{}, "nope")
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "nope")
}
