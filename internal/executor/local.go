package executor

import (
	"context"

	"github.com/leengari/gridsql/internal/cache"
	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/index"
	"github.com/leengari/gridsql/internal/plan"
)

// FragmentMode selects what a partition returns to the coordinator.
type FragmentMode int

const (
	// ModeProject: filter, project locally, return result rows.
	ModeProject FragmentMode = iota
	// ModeRaw: filter only, return qualified source rows. Used for
	// ordered queries (coordinator merges then projects) and for the
	// broadcast side of distributed joins.
	ModeRaw
	// ModeAggregate: filter and fold into partial aggregate state.
	ModeAggregate
)

// Fragment is the partition-local unit of a distributed plan.
type Fragment struct {
	QueryID    string
	Partition  int
	Mode       FragmentMode
	Scan       plan.TableScan
	Projection []plan.ProjItem  // ModeProject / ModeAggregate
	GroupBy    []plan.ColumnKey // ModeAggregate
	OrderBy    []plan.SortKey   // local pre-sort for the k-way merge
}

// Partial is one partition's contribution to a query.
type Partial struct {
	Partition int
	Rows      []data.ResultRow // ModeProject
	Raw       []data.Row       // ModeRaw, table-qualified keys
	Agg       *PartialAgg      // ModeAggregate
	Sorted    bool             // Raw is ordered by the fragment's sort keys
}

// Local executes fragments against this node's cache and indexes.
type Local struct {
	store *cache.Store
	idx   *index.Manager
}

func NewLocal(store *cache.Store, idx *index.Manager) *Local {
	return &Local{store: store, idx: idx}
}

// Execute runs one fragment against one partition. The scan respects
// the planned access path and the materializer applies whatever the
// index did not satisfy.
func (l *Local) Execute(ctx context.Context, frag *Fragment) (*Partial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := l.scan(frag)

	matched := make([]data.Row, 0, len(entries))
	for _, e := range entries {
		row := e.Value.Qualify(frag.Scan.Type)
		if !EvalConditions(frag.Scan.Residual, row) {
			continue
		}
		matched = append(matched, row)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Partial{Partition: frag.Partition}
	switch frag.Mode {
	case ModeProject:
		out.Rows = make([]data.ResultRow, 0, len(matched))
		for _, row := range matched {
			out.Rows = append(out.Rows, Project(frag.Projection, row))
		}

	case ModeRaw:
		if len(frag.OrderBy) > 0 {
			SortRows(matched, frag.OrderBy)
			out.Sorted = true
		}
		out.Raw = matched

	case ModeAggregate:
		agg := NewPartialAgg(frag.Projection, frag.GroupBy)
		for _, row := range matched {
			agg.Add(row)
		}
		out.Agg = agg
	}

	return out, nil
}

// scan reaches the partition's entries along the planned access path.
// An index miss (path planned against a column this node never
// indexed) degrades to a full scan rather than failing the query.
func (l *Local) scan(frag *Fragment) []cache.Entry {
	s := frag.Scan
	switch s.Access.Kind {
	case plan.EqualityIndexScan:
		if entries, ok := l.idx.EqualityScan(s.Type, s.Access.Column, s.Access.Value, frag.Partition); ok {
			return entries
		}
	case plan.RangeIndexScan:
		if entries, ok := l.idx.RangeScan(s.Type, s.Access.Column, s.Access.Lo, s.Access.Hi, s.Access.LoIncl, s.Access.HiIncl, frag.Partition); ok {
			return entries
		}
	}

	all := l.store.Cache(s.Cache).Scan(frag.Partition)
	entries := all[:0:0]
	for _, e := range all {
		if e.Type == s.Type {
			entries = append(entries, e)
		}
	}
	return entries
}
