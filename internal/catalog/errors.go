package catalog

import "fmt"

// DuplicateTypeError reports a second registration under an existing
// type name.
type DuplicateTypeError struct {
	Type string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("type already registered: %s", e.Type)
}

// InvalidFieldError reports a field spec that cannot be resolved to an
// accessor.
type InvalidFieldError struct {
	Type   string
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid field in type %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid field %s.%s: %s", e.Type, e.Field, e.Reason)
}

// UnknownColumnError reports a column lookup miss against a registered
// type.
type UnknownColumnError struct {
	Type   string
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %s on type %s", e.Column, e.Type)
}
