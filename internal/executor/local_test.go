package executor

import (
	"context"
	"testing"

	"github.com/leengari/gridsql/internal/cache"
	"github.com/leengari/gridsql/internal/catalog"
	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/index"
	"github.com/leengari/gridsql/internal/plan"
)

func newTestLocal(t *testing.T) (*cache.Store, *Local) {
	t.Helper()
	cat := catalog.New()
	store := cache.NewStore(1) // single partition keeps fragments simple
	idx := index.NewManager(cat, store)

	typ, err := cat.Register("Person", "partitioned", []catalog.FieldSpec{
		{Name: "id", Type: catalog.IntType, Indexed: true},
		{Name: "firstName", Type: catalog.StringType},
		{Name: "salary", Type: catalog.FloatType, Indexed: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	idx.Attach(typ)

	c := store.Cache("partitioned")
	for i := 0; i < 5; i++ {
		c.Put(int64(i), "Person", data.Row{
			"id":        int64(i),
			"firstName": "p",
			"salary":    float64(i * 100),
		})
	}
	return store, NewLocal(store, idx)
}

func TestExecuteProjectMode(t *testing.T) {
	_, local := newTestLocal(t)

	frag := &Fragment{
		Mode: ModeProject,
		Scan: plan.TableScan{
			Type:   "Person",
			Cache:  "partitioned",
			Access: plan.AccessPath{Kind: plan.EqualityIndexScan, Column: "id", Value: int64(3)},
		},
		Projection: []plan.ProjItem{
			{Name: "id", Expr: col("Person", "id")},
			{Name: "salary", Expr: col("Person", "salary")},
		},
	}

	p, err := local.Execute(context.Background(), frag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(p.Rows))
	}
	if p.Rows[0][0] != int64(3) || p.Rows[0][1] != float64(300) {
		t.Errorf("wrong row: %v", p.Rows[0])
	}
}

func TestExecuteRawModeSortsLocally(t *testing.T) {
	_, local := newTestLocal(t)

	frag := &Fragment{
		Mode: ModeRaw,
		Scan: plan.TableScan{
			Type:   "Person",
			Cache:  "partitioned",
			Access: plan.AccessPath{Kind: plan.FullScan},
		},
		OrderBy: []plan.SortKey{{Table: "Person", Column: "salary", Desc: true}},
	}

	p, err := local.Execute(context.Background(), frag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Sorted {
		t.Error("ordered fragment should report a sorted partial")
	}
	if len(p.Raw) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(p.Raw))
	}
	for i := 1; i < len(p.Raw); i++ {
		prev, _ := p.Raw[i-1].Get("Person", "salary")
		cur, _ := p.Raw[i].Get("Person", "salary")
		if prev.(float64) < cur.(float64) {
			t.Errorf("rows out of descending order at %d: %v then %v", i, prev, cur)
		}
	}
}

func TestExecuteAggregateMode(t *testing.T) {
	_, local := newTestLocal(t)

	projection := []plan.ProjItem{
		{Name: "count(id)", Agg: "count", Expr: col("Person", "id")},
	}
	frag := &Fragment{
		Mode: ModeAggregate,
		Scan: plan.TableScan{
			Type:   "Person",
			Cache:  "partitioned",
			Access: plan.AccessPath{Kind: plan.RangeIndexScan, Column: "salary", Lo: float64(200), LoIncl: true},
		},
		Projection: projection,
	}

	p, err := local.Execute(context.Background(), frag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := p.Agg.Finalize(projection)
	if rows[0][0] != int64(3) {
		t.Errorf("expected count 3 for salary >= 200, got %v", rows[0][0])
	}
}

func TestExecuteResidualFilter(t *testing.T) {
	_, local := newTestLocal(t)

	frag := &Fragment{
		Mode: ModeProject,
		Scan: plan.TableScan{
			Type:   "Person",
			Cache:  "partitioned",
			Access: plan.AccessPath{Kind: plan.FullScan},
			Residual: []plan.Condition{
				{Left: lit(int64(0)), Op: "=", Right: lit(int64(1))},
			},
		},
		Projection: []plan.ProjItem{{Name: "id", Expr: col("Person", "id")}},
	}

	p, err := local.Execute(context.Background(), frag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Rows) != 0 {
		t.Errorf("impossible predicate should match nothing, got %d rows", len(p.Rows))
	}
}

func TestExecuteHonorsContext(t *testing.T) {
	_, local := newTestLocal(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frag := &Fragment{
		Mode: ModeProject,
		Scan: plan.TableScan{Type: "Person", Cache: "partitioned", Access: plan.AccessPath{Kind: plan.FullScan}},
	}
	if _, err := local.Execute(ctx, frag); err == nil {
		t.Error("expected error from cancelled context")
	}
}
