// Package diag collects positioned diagnostics raised while linking and
// interpreting a BCHIR image: link errors (spec §4.7, e.g. an unresolved
// default function) and uncaught-exception/Error reports (spec §4.4).
//
// The accumulate-then-sort-then-format shape is grounded on the teacher's
// lang/resolver.resolver, which collects into a scanner.ErrorList rather
// than failing on the first error; this package generalizes that pattern
// to a BCHIR source.Position instead of a single-file token.Pos.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cangjie-lang/bchir/source"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	// SevError is a diagnostic that prevents a usable result (a link
	// failure, a validation failure).
	SevError Severity = iota
	// SevWarning is informational and does not block linking/running.
	SevWarning
)

// Diagnostic is one positioned message.
type Diagnostic struct {
	Pos      source.Position
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	tag := "error"
	if d.Severity == SevWarning {
		tag = "warning"
	}
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", d.Pos, tag, d.Message)
	}
	return fmt.Sprintf("%s: %s", tag, d.Message)
}

// Sink accumulates Diagnostics raised by the linker and interpreter.
type Sink struct {
	entries []Diagnostic
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// Errorf records an error-severity diagnostic at pos.
func (s *Sink) Errorf(pos source.Position, format string, args ...interface{}) {
	s.entries = append(s.entries, Diagnostic{Pos: pos, Severity: SevError, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warning-severity diagnostic at pos.
func (s *Sink) Warnf(pos source.Position, format string, args ...interface{}) {
	s.entries = append(s.entries, Diagnostic{Pos: pos, Severity: SevWarning, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (s *Sink) HasErrors() bool {
	for _, d := range s.entries {
		if d.Severity == SevError {
			return true
		}
	}
	return false
}

// Diagnostics returns the recorded diagnostics sorted by file then line
// then column, matching scanner.ErrorList.Sort's ordering convention.
func (s *Sink) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.entries))
	copy(out, s.entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Pos, out[j].Pos
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	return out
}

// Err returns a single error aggregating every recorded diagnostic, or nil
// if none were recorded (mirrors scanner.ErrorList.Err).
func (s *Sink) Err() error {
	if len(s.entries) == 0 {
		return nil
	}
	var b strings.Builder
	for i, d := range s.Diagnostics() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.String())
	}
	return errString(b.String())
}

type errString string

func (e errString) Error() string { return string(e) }
