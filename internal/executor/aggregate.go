package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leengari/gridsql/internal/catalog"
	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/index"
	"github.com/leengari/gridsql/internal/plan"
)

// GroupState is the partial aggregate state of one group. Counts and
// Sums align positionally with the aggregate items of the projection.
type GroupState struct {
	Key    []any
	Rep    data.Row // representative row for scalar projections
	Counts []int64
	Sums   []float64
}

// PartialAgg accumulates per-group aggregate state on one partition;
// partials from different partitions merge associatively at the
// coordinator before avg is computed centrally.
type PartialAgg struct {
	GroupBy []plan.ColumnKey
	Items   []plan.ProjItem // aggregate items only
	Groups  map[string]*GroupState
}

func NewPartialAgg(projection []plan.ProjItem, groupBy []plan.ColumnKey) *PartialAgg {
	pa := &PartialAgg{
		GroupBy: groupBy,
		Groups:  make(map[string]*GroupState),
	}
	for _, item := range projection {
		if item.Agg != "" {
			pa.Items = append(pa.Items, item)
		}
	}
	return pa
}

// Add folds one matched row into its group's state.
func (pa *PartialAgg) Add(row data.Row) {
	key := make([]any, len(pa.GroupBy))
	for i, g := range pa.GroupBy {
		v, _ := row.Get(g.Table, g.Column)
		key[i] = v
	}

	k := groupKey(key)
	g, ok := pa.Groups[k]
	if !ok {
		g = &GroupState{
			Key:    key,
			Rep:    row,
			Counts: make([]int64, len(pa.Items)),
			Sums:   make([]float64, len(pa.Items)),
		}
		pa.Groups[k] = g
	}

	for i, item := range pa.Items {
		v, ok := EvalOperand(item.Expr, row)
		if !ok {
			continue // nulls don't count
		}
		g.Counts[i]++
		if n, numOK := catalog.Coerce(catalog.FloatType, v); numOK {
			g.Sums[i] += n.(float64)
		}
	}
}

// Merge folds another partial into this one.
func (pa *PartialAgg) Merge(other *PartialAgg) {
	for k, og := range other.Groups {
		g, ok := pa.Groups[k]
		if !ok {
			pa.Groups[k] = og
			continue
		}
		for i := range g.Counts {
			g.Counts[i] += og.Counts[i]
			g.Sums[i] += og.Sums[i]
		}
	}
}

// Finalize reduces the merged state into result rows, one per group,
// in deterministic group-key order. Without GROUP BY there is exactly
// one row, even over zero inputs (count 0, avg null).
func (pa *PartialAgg) Finalize(projection []plan.ProjItem) []data.ResultRow {
	if len(pa.GroupBy) == 0 && len(pa.Groups) == 0 {
		pa.Groups[groupKey(nil)] = &GroupState{
			Counts: make([]int64, len(pa.Items)),
			Sums:   make([]float64, len(pa.Items)),
		}
	}

	keys := make([]string, 0, len(pa.Groups))
	for k := range pa.Groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []data.ResultRow
	for _, k := range keys {
		g := pa.Groups[k]
		row := make(data.ResultRow, len(projection))
		aggIdx := 0
		for i, item := range projection {
			if item.Agg == "" {
				if g.Rep != nil {
					if v, ok := EvalOperand(item.Expr, g.Rep); ok {
						row[i] = v
					}
				}
				continue
			}
			switch item.Agg {
			case "count":
				row[i] = g.Counts[aggIdx]
			case "avg":
				if g.Counts[aggIdx] > 0 {
					row[i] = g.Sums[aggIdx] / float64(g.Counts[aggIdx])
				}
			}
			aggIdx++
		}
		out = append(out, row)
	}
	return out
}

func groupKey(vals []any) string {
	if len(vals) == 0 {
		return ""
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%T:%v", v, v)
	}
	return strings.Join(parts, "\x00")
}

// SortRows orders rows by the given keys, stable for ties.
func SortRows(rows []data.Row, keys []plan.SortKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			a, _ := rows[i].Get(k.Table, k.Column)
			b, _ := rows[j].Get(k.Table, k.Column)
			c := index.Compare(a, b)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
