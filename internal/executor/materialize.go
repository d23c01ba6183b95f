package executor

import (
	"strconv"
	"strings"

	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/index"
	"github.com/leengari/gridsql/internal/plan"
)

// EvalOperand resolves an operand against a row. Column misses (null
// fields) report false.
func EvalOperand(op plan.Operand, row data.Row) (any, bool) {
	switch op.Kind {
	case plan.ColumnOperand:
		return row.Get(op.Table, op.Column)

	case plan.LiteralOperand:
		return op.Value, true

	case plan.FunctionOperand:
		return evalFunction(op, row)
	}
	return nil, false
}

func evalFunction(op plan.Operand, row data.Row) (any, bool) {
	switch op.Fn {
	case "lower", "upper":
		if len(op.Args) != 1 {
			return nil, false
		}
		v, ok := EvalOperand(op.Args[0], row)
		if !ok {
			return nil, false
		}
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		if op.Fn == "lower" {
			return strings.ToLower(s), true
		}
		return strings.ToUpper(s), true

	case "concat":
		var sb strings.Builder
		for _, arg := range op.Args {
			v, ok := EvalOperand(arg, row)
			if !ok {
				return nil, false
			}
			sb.WriteString(stringify(v))
		}
		return sb.String(), true
	}
	return nil, false
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case int64:
		return strconv.FormatInt(s, 10)
	case int:
		return strconv.Itoa(s)
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

// EvalCondition tests one conjunct against a row. Rows missing a
// referenced field never match.
func EvalCondition(c plan.Condition, row data.Row) bool {
	l, ok := EvalOperand(c.Left, row)
	if !ok {
		return false
	}
	r, ok := EvalOperand(c.Right, row)
	if !ok {
		return false
	}
	return CompareValues(l, c.Op, r)
}

// EvalConditions tests a conjunction.
func EvalConditions(conds []plan.Condition, row data.Row) bool {
	for _, c := range conds {
		if !EvalCondition(c, row) {
			return false
		}
	}
	return true
}

// CompareValues applies a comparison operator. Numeric kinds compare
// by magnitude; strings compare byte-exact, with no collation.
func CompareValues(a any, op string, b any) bool {
	if !comparable(a, b) {
		return false
	}
	c := index.Compare(a, b)
	switch op {
	case "=":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case ">":
		return c > 0
	case "<=":
		return c <= 0
	case ">=":
		return c >= 0
	}
	return false
}

func comparable(a, b any) bool {
	switch a.(type) {
	case int64, float64, int, int32:
		switch b.(type) {
		case int64, float64, int, int32:
			return true
		}
		return false
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	}
	return false
}

// Project builds a result row positional with the projection list.
// Unresolvable expressions project as nil, matching SQL null.
func Project(items []plan.ProjItem, row data.Row) data.ResultRow {
	out := make(data.ResultRow, len(items))
	for i, item := range items {
		if v, ok := EvalOperand(item.Expr, row); ok {
			out[i] = v
		}
	}
	return out
}
