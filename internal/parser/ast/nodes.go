package ast

import (
	"bytes"
	"fmt"
	"strings"
)

// Node is the base interface for all AST nodes
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement represents a standalone SQL statement
type Statement interface {
	Node
	statementNode()
}

// Expression represents a value or operation
type Expression interface {
	Node
	expressionNode()
}

// Identifier represents a column reference, optionally table-qualified
// (e.g. "salary" or "Person.salary")
type Identifier struct {
	TokenLiteralValue string
	Table             string // optional qualifier
	Value             string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.TokenLiteralValue }
func (i *Identifier) String() string {
	if i.Table != "" {
		return i.Table + "." + i.Value
	}
	return i.Value
}

// Star represents "*" or a qualified "Table.*" in a projection list
type Star struct {
	Table string // empty for bare *
}

func (s *Star) expressionNode()      {}
func (s *Star) TokenLiteral() string { return "*" }
func (s *Star) String() string {
	if s.Table != "" {
		return s.Table + ".*"
	}
	return "*"
}

// Literal represents a fixed value (string, number, bool)
type Literal struct {
	TokenLiteralValue string
	Value             interface{} // string, int64, float64, bool
	Kind              int         // 0=String, 1=Int, 2=Float, 3=Bool
}

func (l *Literal) expressionNode()      {}
func (l *Literal) TokenLiteral() string { return l.TokenLiteralValue }
func (l *Literal) String() string       { return l.TokenLiteralValue }

// Placeholder represents a positional ? argument
type Placeholder struct {
	Index int // zero-based position in the statement
}

func (p *Placeholder) expressionNode()      {}
func (p *Placeholder) TokenLiteral() string { return "?" }
func (p *Placeholder) String() string       { return "?" }

// FunctionCall represents a scalar or aggregate function application,
// e.g. lower(name), concat(a, ' ', b), avg(salary), count(id)
type FunctionCall struct {
	Name string // lower-cased function name
	Args []Expression
}

func (f *FunctionCall) expressionNode()      {}
func (f *FunctionCall) TokenLiteral() string { return f.Name }
func (f *FunctionCall) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(args, ", "))
}

// BinaryExpression: Left Operator Right (e.g. id = 1, salary >= 300)
type BinaryExpression struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (e *BinaryExpression) expressionNode()      {}
func (e *BinaryExpression) TokenLiteral() string { return e.Operator }
func (e *BinaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Operator, e.Right.String())
}

// LogicalExpression: Left AND Right
type LogicalExpression struct {
	Left     Expression
	Operator string
	Right    Expression
}

func (e *LogicalExpression) expressionNode()      {}
func (e *LogicalExpression) TokenLiteral() string { return e.Operator }
func (e *LogicalExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Operator, e.Right.String())
}

// OrderItem is one ORDER BY key
type OrderItem struct {
	Column *Identifier
	Desc   bool
}

func (o OrderItem) String() string {
	if o.Desc {
		return o.Column.String() + " DESC"
	}
	return o.Column.String()
}

// SelectStatement: SELECT fields FROM t1, t2 WHERE ... GROUP BY ... ORDER BY ...
type SelectStatement struct {
	Fields  []Expression  // projection list: Identifier, Star, FunctionCall
	Tables  []*Identifier // comma-join list, in written order
	Where   Expression    // conjunction tree or nil
	GroupBy []*Identifier
	OrderBy []OrderItem
}

func (s *SelectStatement) statementNode()       {}
func (s *SelectStatement) TokenLiteral() string { return "SELECT" }
func (s *SelectStatement) String() string {
	var out bytes.Buffer
	out.WriteString("SELECT ")
	for i, f := range s.Fields {
		out.WriteString(f.String())
		if i < len(s.Fields)-1 {
			out.WriteString(", ")
		}
	}
	out.WriteString(" FROM ")
	for i, t := range s.Tables {
		out.WriteString(t.String())
		if i < len(s.Tables)-1 {
			out.WriteString(", ")
		}
	}
	if s.Where != nil {
		out.WriteString(" WHERE ")
		out.WriteString(s.Where.String())
	}
	if len(s.GroupBy) > 0 {
		out.WriteString(" GROUP BY ")
		for i, g := range s.GroupBy {
			out.WriteString(g.String())
			if i < len(s.GroupBy)-1 {
				out.WriteString(", ")
			}
		}
	}
	if len(s.OrderBy) > 0 {
		out.WriteString(" ORDER BY ")
		for i, o := range s.OrderBy {
			out.WriteString(o.String())
			if i < len(s.OrderBy)-1 {
				out.WriteString(", ")
			}
		}
	}
	return out.String()
}
