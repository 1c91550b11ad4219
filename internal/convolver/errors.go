package convolver

import (
	"errors"
	"fmt"
)

// ErrHeader reports a missing or malformed three-line header.
var ErrHeader = errors.New("invalid convolver header")

// ParseError identifies the line and token a structural parse failure came from.
type ParseError struct {
	Line  int // 1-indexed, 0 when unknown
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: token %q: %v", e.Line, e.Token, e.Err)
	}
	return fmt.Sprintf("token %q: %v", e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// atLine stamps a line number onto a ParseError, wrapping other errors.
func atLine(err error, line int, token string) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		if pe.Line == 0 {
			pe.Line = line
		}
		return pe
	}
	return &ParseError{Line: line, Token: token, Err: err}
}
