package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"playvars.dev/pkg/playvars/internal/jinja"
)

// ConflictKind classifies an inference failure.
type ConflictKind string

// Conflict kinds.
const (
	ConflictMerge      ConflictKind = "merge-conflict"
	ConflictUnexpected ConflictKind = "unexpected-expression"
)

// Conflict is the structured form of an inference failure.
type Conflict struct {
	Kind     ConflictKind
	Lines    []int
	Expected string
	Actual   string
	Message  string
}

// MergeConflictError reports two incompatible usages of the same value.
type MergeConflictError struct {
	A, B *Var
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("%s conflicts with %s", describe(e.A), describe(e.B))
}

// Conflict returns the structured form of e.
func (e *MergeConflictError) Conflict() Conflict {
	return Conflict{
		Kind:     ConflictMerge,
		Lines:    unionLines(e.A.Lines, e.B.Lines),
		Expected: e.A.String(),
		Actual:   e.B.String(),
		Message:  e.Error(),
	}
}

// UnexpectedExpressionError reports an expression whose syntactic form cannot
// produce the structure its context requires.
type UnexpectedExpressionError struct {
	Node     jinja.Node
	Expected *Var
	Actual   *Var
}

func (e *UnexpectedExpressionError) Error() string {
	return fmt.Sprintf("conflict on %s: got %s node of structure %s, expected structure %s",
		formatLines(e.lines()), jinja.KindName(e.Node), e.Actual, e.Expected)
}

func (e *UnexpectedExpressionError) lines() []int {
	lines := unionLines(e.Expected.Lines, e.Actual.Lines)
	if e.Node != nil {
		lines = addLine(lines, e.Node.Pos().Line)
	}

	return lines
}

// Conflict returns the structured form of e.
func (e *UnexpectedExpressionError) Conflict() Conflict {
	return Conflict{
		Kind:     ConflictUnexpected,
		Lines:    e.lines(),
		Expected: e.Expected.String(),
		Actual:   e.Actual.String(),
		Message:  e.Error(),
	}
}

// AsConflict extracts the structured conflict from err, if it is one.
func AsConflict(err error) (Conflict, bool) {
	var merge *MergeConflictError
	if errors.As(err, &merge) {
		return merge.Conflict(), true
	}

	var unexpected *UnexpectedExpressionError
	if errors.As(err, &unexpected) {
		return unexpected.Conflict(), true
	}

	return Conflict{}, false
}

func describe(v *Var) string {
	var b strings.Builder

	if v.Label != "" {
		b.WriteString(strconv.Quote(v.Label))
		b.WriteByte(' ')
	}

	b.WriteString("used as ")
	b.WriteString(v.String())

	if len(v.Lines) > 0 {
		b.WriteString(" on ")
		b.WriteString(formatLines(v.Lines))
	}

	return b.String()
}

func formatLines(lines []int) string {
	if len(lines) == 0 {
		return "unknown line"
	}

	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = strconv.Itoa(l)
	}

	if len(lines) == 1 {
		return "line " + parts[0]
	}

	return "lines " + strings.Join(parts, ", ")
}
