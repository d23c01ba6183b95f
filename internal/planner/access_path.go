package planner

import (
	"github.com/leengari/gridsql/internal/catalog"
	"github.com/leengari/gridsql/internal/plan"
)

// chooseAccessPath picks the most selective access pattern available
// for one table: equality on an indexed column beats a range on an
// ordered index beats a full scan. The condition an index satisfies is
// consumed; everything else stays residual for the materializer.
func chooseAccessPath(typ *catalog.Type, conds []plan.Condition) (plan.AccessPath, []plan.Condition) {
	// First choice: equality on an indexed column
	for i, c := range conds {
		col, val, ok := indexableCond(typ, c)
		if !ok || c.Op != "=" {
			continue
		}
		residual := append(append([]plan.Condition{}, conds[:i]...), conds[i+1:]...)
		return plan.AccessPath{Kind: plan.EqualityIndexScan, Column: col, Value: val}, residual
	}

	// Second choice: range bounds on an ordered index. All range
	// conjuncts on the chosen column are folded into the path.
	for _, c := range conds {
		col, _, ok := indexableCond(typ, c)
		if !ok || !isRangeOp(c.Op) {
			continue
		}
		access := plan.AccessPath{Kind: plan.RangeIndexScan, Column: col}
		var residual []plan.Condition
		for _, rc := range conds {
			rcol, rval, rok := indexableCond(typ, rc)
			if rok && rcol == col && isRangeOp(rc.Op) {
				applyBound(&access, rc.Op, rval, rc.Left.Kind == plan.ColumnOperand)
				continue
			}
			residual = append(residual, rc)
		}
		return access, residual
	}

	return plan.AccessPath{Kind: plan.FullScan}, conds
}

// indexableCond reports whether the condition compares an indexed
// column of typ against a literal, returning the column and value.
func indexableCond(typ *catalog.Type, c plan.Condition) (string, any, bool) {
	col, lit := c.Left, c.Right
	if col.Kind != plan.ColumnOperand {
		col, lit = c.Right, c.Left
	}
	if col.Kind != plan.ColumnOperand || lit.Kind != plan.LiteralOperand {
		return "", nil, false
	}
	if col.Table != typ.Name {
		return "", nil, false
	}
	f, err := typ.Resolve(col.Column)
	if err != nil || !f.Indexed {
		return "", nil, false
	}
	return f.Name, lit.Value, true
}

func isRangeOp(op string) bool {
	switch op {
	case "<", ">", "<=", ">=":
		return true
	}
	return false
}

// applyBound folds one range conjunct into the access path.
// columnOnLeft distinguishes "col < v" from "v < col".
func applyBound(a *plan.AccessPath, op string, val any, columnOnLeft bool) {
	if !columnOnLeft {
		// Mirror the operator so the column is conceptually on the left
		switch op {
		case "<":
			op = ">"
		case ">":
			op = "<"
		case "<=":
			op = ">="
		case ">=":
			op = "<="
		}
	}
	switch op {
	case "<":
		a.Hi, a.HiIncl = val, false
	case "<=":
		a.Hi, a.HiIncl = val, true
	case ">":
		a.Lo, a.LoIncl = val, false
	case ">=":
		a.Lo, a.LoIncl = val, true
	}
}

// chooseRouting pins the query to a single partition when the driving
// table carries an equality predicate on its affinity key.
func chooseRouting(typ *catalog.Type, scan plan.TableScan) plan.Routing {
	if typ.AffinityField == "" {
		return plan.Routing{}
	}

	if scan.Access.Kind == plan.EqualityIndexScan && scan.Access.Column == typ.AffinityField {
		return plan.Routing{SinglePartition: true, AffinityValue: scan.Access.Value}
	}

	for _, c := range scan.Residual {
		if c.Op != "=" {
			continue
		}
		col, val, ok := equalityOperands(c)
		if ok && col.Table == typ.Name && col.Column == typ.AffinityField {
			return plan.Routing{SinglePartition: true, AffinityValue: val}
		}
	}
	return plan.Routing{}
}

func equalityOperands(c plan.Condition) (plan.Operand, any, bool) {
	if c.Left.Kind == plan.ColumnOperand && c.Right.Kind == plan.LiteralOperand {
		return c.Left, c.Right.Value, true
	}
	if c.Right.Kind == plan.ColumnOperand && c.Left.Kind == plan.LiteralOperand {
		return c.Right, c.Left.Value, true
	}
	return plan.Operand{}, nil, false
}
