package query

import (
	"time"

	"github.com/google/uuid"
)

// Context carries per-execution state through the lex/parse/plan/execute
// pipeline. One Context per Execute call; never reused.
type Context struct {
	ID        string // Unique query identifier for tracing
	SQL       string // Original statement text
	Args      []any  // Positional arguments bound to ? placeholders
	StartTime time.Time
}

// NewContext creates an execution context with a unique ID
func NewContext(sql string, args []any) *Context {
	return &Context{
		ID:        uuid.New().String(),
		SQL:       sql,
		Args:      args,
		StartTime: time.Now(),
	}
}

// Elapsed reports how long the query has been running.
func (c *Context) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}
