package plan

import (
	"fmt"
	"strings"
)

// OperandKind discriminates the three operand shapes a condition or
// projection can reference.
type OperandKind int

const (
	ColumnOperand OperandKind = iota
	LiteralOperand
	FunctionOperand
)

// Operand is one side of a condition or one projected expression.
// Pure data, so plan fragments can cross the wire.
type Operand struct {
	Kind   OperandKind
	Table  string // column operand: resolved owning type
	Column string
	Value  any       // literal operand (placeholders already bound)
	Fn     string    // function operand: lower, upper, concat
	Args   []Operand // function arguments
}

func (o Operand) String() string {
	switch o.Kind {
	case ColumnOperand:
		if o.Table != "" {
			return o.Table + "." + o.Column
		}
		return o.Column
	case LiteralOperand:
		return fmt.Sprintf("%v", o.Value)
	case FunctionOperand:
		args := make([]string, len(o.Args))
		for i, a := range o.Args {
			args[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", o.Fn, strings.Join(args, ", "))
	}
	return "?"
}

// Columns appends every column the operand references to dst.
func (o Operand) Columns(dst []ColumnKey) []ColumnKey {
	switch o.Kind {
	case ColumnOperand:
		dst = append(dst, ColumnKey{Table: o.Table, Column: o.Column})
	case FunctionOperand:
		for _, a := range o.Args {
			dst = a.Columns(dst)
		}
	}
	return dst
}

// Condition is one conjunct of a WHERE clause.
type Condition struct {
	Left  Operand
	Op    string // =, <, >, <=, >=, !=
	Right Operand
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Left, c.Op, c.Right)
}

// Tables returns the distinct types the condition references.
func (c Condition) Tables() []string {
	seen := map[string]bool{}
	for _, ck := range c.Left.Columns(c.Right.Columns(nil)) {
		seen[ck.Table] = true
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	return out
}

// ColumnKey names a resolved column.
type ColumnKey struct {
	Table  string
	Column string
}

func (k ColumnKey) String() string {
	return k.Table + "." + k.Column
}

// AccessKind is the chosen access pattern for one table scan.
type AccessKind int

const (
	FullScan AccessKind = iota
	EqualityIndexScan
	RangeIndexScan
)

func (k AccessKind) String() string {
	switch k {
	case EqualityIndexScan:
		return "index_equality"
	case RangeIndexScan:
		return "index_range"
	default:
		return "full_scan"
	}
}

// AccessPath describes how a partition executor reaches a table's
// entries: index equality, index range, or full scan.
type AccessPath struct {
	Kind   AccessKind
	Column string
	Value  any // equality key
	Lo, Hi any // range bounds, nil = unbounded
	LoIncl bool
	HiIncl bool
}

// TableScan is the per-table unit of a plan: access path plus the
// residual conjuncts not satisfied by the index.
type TableScan struct {
	Type     string // registered type name
	Cache    string
	Access   AccessPath
	Residual []Condition
}

// ProjItem is one output column of the query.
type ProjItem struct {
	Name string // result column label
	Agg  string // aggregate fn, empty for scalar projection
	Expr Operand
}

// SortKey is one ORDER BY key, resolved to a projected expression or
// source column.
type SortKey struct {
	Table  string
	Column string
	Desc   bool
}

// Routing tells the coordinator which partitions to visit.
type Routing struct {
	SinglePartition bool
	AffinityValue   any // key whose partition owns all matching rows
}

// QueryPlan is the planner's output: everything execution needs,
// nothing it doesn't. Created per query, discarded after.
type QueryPlan struct {
	Tables     []TableScan // in join order (left-to-right as written)
	JoinConds  []Condition // cross-table conjuncts
	Projection []ProjItem
	GroupBy    []ColumnKey
	OrderBy    []SortKey
	Routing    Routing
}

// HasAggregates reports whether any projection is an aggregate.
func (p *QueryPlan) HasAggregates() bool {
	for _, item := range p.Projection {
		if item.Agg != "" {
			return true
		}
	}
	return false
}

// SingleTable reports whether the query reads exactly one type.
func (p *QueryPlan) SingleTable() bool {
	return len(p.Tables) == 1
}

// ColumnNames returns the result header, positional with the
// projection list.
func (p *QueryPlan) ColumnNames() []string {
	names := make([]string, len(p.Projection))
	for i, item := range p.Projection {
		names[i] = item.Name
	}
	return names
}
