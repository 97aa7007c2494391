// internal/rules/errors.go
package rules

import (
	"errors"
	"fmt"
)

// ErrorKind classifies compile failures.
type ErrorKind string

const (
	// KindSyntax covers malformed tokens and unexpected statement shapes.
	KindSyntax ErrorKind = "syntax"
	// KindArity covers weight tables without exactly 7 letters and criteria
	// without identifiers.
	KindArity ErrorKind = "arity"
	// KindDuplicate covers repeated weight letters, priority types and
	// singleton statements.
	KindDuplicate ErrorKind = "duplicate"
	// KindSemantic covers unknown criterion letters and texts too long for
	// first-line priority.
	KindSemantic ErrorKind = "semantic"
)

// ParseError is returned for every rule text that does not compile.
// Line and Column are 1-based and point at the offending token.
type ParseError struct {
	Kind    ErrorKind
	Message string
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// AsParseError unwraps err to a *ParseError.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func errorAt(kind ErrorKind, pos Position, format string, args ...any) *ParseError {
	return &ParseError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Line:    pos.Line,
		Column:  pos.Column,
	}
}
