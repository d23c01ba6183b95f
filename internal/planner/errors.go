package planner

import "fmt"

// UnresolvedTableError reports a FROM table with no catalog entry.
type UnresolvedTableError struct {
	Table string
}

func (e *UnresolvedTableError) Error() string {
	return fmt.Sprintf("unresolved table: %s", e.Table)
}

// UnresolvedColumnError reports a column reference that matched no
// table, or more than one.
type UnresolvedColumnError struct {
	Column string
	Table  string // qualifier as written, may be empty
	Reason string
}

func (e *UnresolvedColumnError) Error() string {
	name := e.Column
	if e.Table != "" {
		name = e.Table + "." + e.Column
	}
	if e.Reason != "" {
		return fmt.Sprintf("unresolved column %s: %s", name, e.Reason)
	}
	return fmt.Sprintf("unresolved column: %s", name)
}
