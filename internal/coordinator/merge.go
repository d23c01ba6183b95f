package coordinator

import (
	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/executor"
	"github.com/leengari/gridsql/internal/index"
	"github.com/leengari/gridsql/internal/plan"
)

// mergeSorted combines per-partition row sequences into one ordered
// sequence. Locally sorted partials take the k-way merge path; if any
// partition couldn't pre-sort, fall back to a full central sort.
func mergeSorted(partials []*executor.Partial, keys []plan.SortKey) []data.Row {
	allSorted := true
	total := 0
	for _, p := range partials {
		total += len(p.Raw)
		if len(p.Raw) > 0 && !p.Sorted {
			allSorted = false
		}
	}

	if !allSorted {
		out := make([]data.Row, 0, total)
		for _, p := range partials {
			out = append(out, p.Raw...)
		}
		executor.SortRows(out, keys)
		return out
	}

	// k-way merge; k is the partition count, so a linear head scan
	// beats heap bookkeeping at this scale
	heads := make([]int, len(partials))
	out := make([]data.Row, 0, total)
	for {
		best := -1
		for i, p := range partials {
			if heads[i] >= len(p.Raw) {
				continue
			}
			if best == -1 || lessRows(p.Raw[heads[i]], partials[best].Raw[heads[best]], keys) {
				best = i
			}
		}
		if best == -1 {
			break
		}
		out = append(out, partials[best].Raw[heads[best]])
		heads[best]++
	}
	return out
}

func lessRows(a, b data.Row, keys []plan.SortKey) bool {
	for _, k := range keys {
		av, _ := a.Get(k.Table, k.Column)
		bv, _ := b.Get(k.Table, k.Column)
		c := index.Compare(av, bv)
		if c == 0 {
			continue
		}
		if k.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

// joinTables performs the left-to-right nested-loop join, applying
// each cross-table conjunct as soon as both of its sides are bound.
func joinTables(qp *plan.QueryPlan, tableRows [][]data.Row) []data.Row {
	bound := map[string]bool{qp.Tables[0].Type: true}
	acc := tableRows[0]

	for i := 1; i < len(qp.Tables); i++ {
		right := qp.Tables[i]
		bound[right.Type] = true

		conds := applicableConds(qp.JoinConds, bound, right.Type)

		var next []data.Row
		for _, left := range acc {
			for _, r := range tableRows[i] {
				merged := left.Merge(r)
				if executor.EvalConditions(conds, merged) {
					next = append(next, merged)
				}
			}
		}
		acc = next
	}
	return acc
}

// applicableConds picks conjuncts whose tables are all bound and that
// mention the newly joined table.
func applicableConds(conds []plan.Condition, bound map[string]bool, newTable string) []plan.Condition {
	var out []plan.Condition
	for _, c := range conds {
		mentionsNew := false
		allBound := true
		for _, t := range c.Tables() {
			if t == newTable {
				mentionsNew = true
			}
			if !bound[t] {
				allBound = false
			}
		}
		if mentionsNew && allBound {
			out = append(out, c)
		}
	}
	return out
}
