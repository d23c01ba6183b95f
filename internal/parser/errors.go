package parser

import "fmt"

// ParseError reports malformed SQL. It carries the offending fragment
// and position so the caller can diagnose without re-lexing.
type ParseError struct {
	Msg      string
	Fragment string
	Line     int
	Column   int
}

func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("parse error at line %d, col %d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("parse error at line %d, col %d near %q: %s", e.Line, e.Column, e.Fragment, e.Msg)
}
