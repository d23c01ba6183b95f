package planner

import (
	"fmt"

	"github.com/leengari/gridsql/internal/catalog"
	"github.com/leengari/gridsql/internal/parser/ast"
	"github.com/leengari/gridsql/internal/plan"
)

// scalarFns are the functions the materializer evaluates per row.
var scalarFns = map[string]bool{
	"lower":  true,
	"upper":  true,
	"concat": true,
}

// aggregateFns are reduced across partitions by the coordinator.
var aggregateFns = map[string]bool{
	"avg":   true,
	"count": true,
}

// Plan resolves a parsed SELECT against the catalog and produces a
// QueryPlan. It never executes anything.
func Plan(stmt *ast.SelectStatement, cat *catalog.Catalog, args []any) (*plan.QueryPlan, error) {
	p := &binder{cat: cat, args: args}
	return p.bind(stmt)
}

// binder carries resolution state for one statement.
type binder struct {
	cat    *catalog.Catalog
	args   []any
	tables []*catalog.Type // FROM list, in written order
}

func (b *binder) bind(stmt *ast.SelectStatement) (*plan.QueryPlan, error) {
	// 1. Resolve tables
	for _, t := range stmt.Tables {
		typ, ok := b.cat.Lookup(t.Value)
		if !ok {
			return nil, &UnresolvedTableError{Table: t.Value}
		}
		b.tables = append(b.tables, typ)
	}

	// 2. Bind placeholders up front so a count mismatch surfaces
	// before any partition work
	if n := countPlaceholders(stmt); n != len(b.args) {
		return nil, fmt.Errorf("statement has %d placeholders but %d arguments were bound", n, len(b.args))
	}

	qp := &plan.QueryPlan{}

	// 3. Conditions: flatten the AND tree, split per-table vs cross-table
	var perTable map[string][]plan.Condition
	if stmt.Where != nil {
		conjuncts, err := b.flattenWhere(stmt.Where)
		if err != nil {
			return nil, err
		}
		perTable = make(map[string][]plan.Condition)
		for _, cond := range conjuncts {
			tabs := cond.Tables()
			switch len(tabs) {
			case 0:
				// Constant conjunct (e.g. 0 = 1): evaluate on the driving table
				perTable[b.tables[0].Name] = append(perTable[b.tables[0].Name], cond)
			case 1:
				perTable[tabs[0]] = append(perTable[tabs[0]], cond)
			default:
				qp.JoinConds = append(qp.JoinConds, cond)
			}
		}
	}

	// 4. Table scans with access paths, join order left-to-right as written
	for _, typ := range b.tables {
		scan := plan.TableScan{Type: typ.Name, Cache: typ.Cache}
		scan.Access, scan.Residual = chooseAccessPath(typ, perTable[typ.Name])
		qp.Tables = append(qp.Tables, scan)
	}

	// 5. Projection
	if err := b.bindProjection(stmt, qp); err != nil {
		return nil, err
	}

	// 6. GROUP BY
	for _, g := range stmt.GroupBy {
		ck, err := b.resolveColumn(g)
		if err != nil {
			return nil, err
		}
		qp.GroupBy = append(qp.GroupBy, plan.ColumnKey{Table: ck.Table, Column: ck.Column})
	}
	if err := checkGrouping(qp); err != nil {
		return nil, err
	}

	// 7. ORDER BY
	for _, o := range stmt.OrderBy {
		ck, err := b.resolveColumn(o.Column)
		if err != nil {
			return nil, err
		}
		qp.OrderBy = append(qp.OrderBy, plan.SortKey{Table: ck.Table, Column: ck.Column, Desc: o.Desc})
	}

	// 8. Routing: an equality predicate on the driving table's affinity
	// key pins the query to one partition
	qp.Routing = chooseRouting(b.tables[0], qp.Tables[0])

	return qp, nil
}

func (b *binder) bindProjection(stmt *ast.SelectStatement, qp *plan.QueryPlan) error {
	for _, field := range stmt.Fields {
		switch f := field.(type) {
		case *ast.Star:
			types := b.tables
			if f.Table != "" {
				typ := b.tableByName(f.Table)
				if typ == nil {
					return &UnresolvedTableError{Table: f.Table}
				}
				types = []*catalog.Type{typ}
			}
			for _, typ := range types {
				for _, fld := range typ.Fields {
					qp.Projection = append(qp.Projection, plan.ProjItem{
						Name: fld.Name,
						Expr: plan.Operand{Kind: plan.ColumnOperand, Table: typ.Name, Column: fld.Name},
					})
				}
			}

		case *ast.FunctionCall:
			if aggregateFns[f.Name] {
				if len(f.Args) != 1 {
					return fmt.Errorf("%s takes exactly one argument", f.Name)
				}
				arg, err := b.convertExpr(f.Args[0])
				if err != nil {
					return err
				}
				qp.Projection = append(qp.Projection, plan.ProjItem{
					Name: field.String(),
					Agg:  f.Name,
					Expr: arg,
				})
				continue
			}
			op, err := b.convertExpr(f)
			if err != nil {
				return err
			}
			qp.Projection = append(qp.Projection, plan.ProjItem{Name: field.String(), Expr: op})

		default:
			op, err := b.convertExpr(field)
			if err != nil {
				return err
			}
			qp.Projection = append(qp.Projection, plan.ProjItem{Name: field.String(), Expr: op})
		}
	}
	return nil
}

// flattenWhere turns the AND tree into a conjunct list.
func (b *binder) flattenWhere(expr ast.Expression) ([]plan.Condition, error) {
	switch e := expr.(type) {
	case *ast.LogicalExpression:
		left, err := b.flattenWhere(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.flattenWhere(e.Right)
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil

	case *ast.BinaryExpression:
		l, err := b.convertExpr(e.Left)
		if err != nil {
			return nil, err
		}
		r, err := b.convertExpr(e.Right)
		if err != nil {
			return nil, err
		}
		return []plan.Condition{{Left: l, Op: e.Operator, Right: r}}, nil

	default:
		return nil, fmt.Errorf("unsupported WHERE expression: %s", expr.String())
	}
}

// convertExpr lowers an AST expression to a plan operand, resolving
// column references and binding placeholders.
func (b *binder) convertExpr(expr ast.Expression) (plan.Operand, error) {
	switch e := expr.(type) {
	case *ast.Identifier:
		ck, err := b.resolveColumn(e)
		if err != nil {
			return plan.Operand{}, err
		}
		return plan.Operand{Kind: plan.ColumnOperand, Table: ck.Table, Column: ck.Column}, nil

	case *ast.Literal:
		return plan.Operand{Kind: plan.LiteralOperand, Value: e.Value}, nil

	case *ast.Placeholder:
		return plan.Operand{Kind: plan.LiteralOperand, Value: b.args[e.Index]}, nil

	case *ast.FunctionCall:
		if aggregateFns[e.Name] {
			return plan.Operand{}, fmt.Errorf("aggregate %s is only allowed in the projection list", e.Name)
		}
		if !scalarFns[e.Name] {
			return plan.Operand{}, fmt.Errorf("unknown function: %s", e.Name)
		}
		op := plan.Operand{Kind: plan.FunctionOperand, Fn: e.Name}
		for _, a := range e.Args {
			arg, err := b.convertExpr(a)
			if err != nil {
				return plan.Operand{}, err
			}
			op.Args = append(op.Args, arg)
		}
		return op, nil

	default:
		return plan.Operand{}, fmt.Errorf("unsupported expression: %s", expr.String())
	}
}

type resolvedColumn struct {
	Table  string
	Column string
	Field  *catalog.Field
}

// resolveColumn maps an identifier to exactly one FROM table.
func (b *binder) resolveColumn(ident *ast.Identifier) (resolvedColumn, error) {
	if ident.Table != "" {
		typ := b.tableByName(ident.Table)
		if typ == nil {
			return resolvedColumn{}, &UnresolvedColumnError{
				Column: ident.Value, Table: ident.Table, Reason: "qualifier is not in the FROM list",
			}
		}
		f, err := typ.Resolve(ident.Value)
		if err != nil {
			return resolvedColumn{}, &UnresolvedColumnError{Column: ident.Value, Table: ident.Table}
		}
		return resolvedColumn{Table: typ.Name, Column: f.Name, Field: f}, nil
	}

	var found resolvedColumn
	matches := 0
	for _, typ := range b.tables {
		if f, err := typ.Resolve(ident.Value); err == nil {
			found = resolvedColumn{Table: typ.Name, Column: f.Name, Field: f}
			matches++
		}
	}
	switch matches {
	case 0:
		return resolvedColumn{}, &UnresolvedColumnError{Column: ident.Value}
	case 1:
		return found, nil
	default:
		return resolvedColumn{}, &UnresolvedColumnError{Column: ident.Value, Reason: "ambiguous, qualify with a table name"}
	}
}

func (b *binder) tableByName(name string) *catalog.Type {
	for _, t := range b.tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func countPlaceholders(stmt *ast.SelectStatement) int {
	n := 0
	var walk func(ast.Expression)
	walk = func(e ast.Expression) {
		switch v := e.(type) {
		case *ast.Placeholder:
			n++
		case *ast.BinaryExpression:
			walk(v.Left)
			walk(v.Right)
		case *ast.LogicalExpression:
			walk(v.Left)
			walk(v.Right)
		case *ast.FunctionCall:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	for _, f := range stmt.Fields {
		walk(f)
	}
	if stmt.Where != nil {
		walk(stmt.Where)
	}
	return n
}

// checkGrouping rejects scalar projections mixed with aggregates when
// there is no GROUP BY. With a GROUP BY, scalar projections evaluate
// against a representative row of each group.
func checkGrouping(qp *plan.QueryPlan) error {
	if !qp.HasAggregates() || len(qp.GroupBy) > 0 {
		return nil
	}
	for _, item := range qp.Projection {
		if item.Agg == "" && item.Expr.Kind != plan.LiteralOperand {
			return fmt.Errorf("column %s must appear in GROUP BY or inside an aggregate", item.Name)
		}
	}
	return nil
}
