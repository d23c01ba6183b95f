package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leengari/gridsql/internal/cache"
	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/domain/query"
	"github.com/leengari/gridsql/internal/executor"
	"github.com/leengari/gridsql/internal/plan"
)

// flakyTransport fails the first N attempts per partition.
type flakyTransport struct {
	mu       sync.Mutex
	failures map[int]int // partition -> remaining failures
	calls    map[int]int
	result   func(frag *executor.Fragment) *executor.Partial
}

func (t *flakyTransport) Execute(ctx context.Context, frag *executor.Fragment) (*executor.Partial, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.calls == nil {
		t.calls = make(map[int]int)
	}
	t.calls[frag.Partition]++
	if t.failures[frag.Partition] > 0 {
		t.failures[frag.Partition]--
		return nil, fmt.Errorf("simulated failure on partition %d", frag.Partition)
	}
	if t.result != nil {
		return t.result(frag), nil
	}
	return &executor.Partial{Partition: frag.Partition}, nil
}

func singleTablePlan() *plan.QueryPlan {
	return &plan.QueryPlan{
		Tables: []plan.TableScan{{
			Type:   "Person",
			Cache:  "partitioned",
			Access: plan.AccessPath{Kind: plan.FullScan},
		}},
		Projection: []plan.ProjItem{{
			Name: "id",
			Expr: plan.Operand{Kind: plan.ColumnOperand, Table: "Person", Column: "id"},
		}},
	}
}

func TestRetrySucceedsOnSecondAttempt(t *testing.T) {
	store := cache.NewStore(4)
	store.Cache("partitioned")

	transport := &flakyTransport{failures: map[int]int{2: 1}}
	coord := New(store, transport, time.Second, nil)

	qctx := query.NewContext("select id from Person", nil)
	res, err := coord.Execute(context.Background(), qctx, singleTablePlan())
	if err != nil {
		t.Fatalf("retry should have recovered: %v", err)
	}
	if res == nil {
		t.Fatal("expected a result")
	}
	if transport.calls[2] != 2 {
		t.Errorf("partition 2 should be attempted twice, got %d", transport.calls[2])
	}
	for pid := 0; pid < 4; pid++ {
		if pid != 2 && transport.calls[pid] != 1 {
			t.Errorf("partition %d should be attempted once, got %d", pid, transport.calls[pid])
		}
	}
}

func TestRetryExhaustionFailsQuery(t *testing.T) {
	store := cache.NewStore(2)
	store.Cache("partitioned")

	transport := &flakyTransport{failures: map[int]int{1: 2}}
	coord := New(store, transport, time.Second, nil)

	qctx := query.NewContext("select id from Person", nil)
	_, err := coord.Execute(context.Background(), qctx, singleTablePlan())

	var perr *PartialResultError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PartialResultError, got %T: %v", err, err)
	}
	if perr.Partition != 1 {
		t.Errorf("error should name the failed partition, got %d", perr.Partition)
	}
}

type slowTransport struct{}

func (slowTransport) Execute(ctx context.Context, frag *executor.Fragment) (*executor.Partial, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return &executor.Partial{Partition: frag.Partition}, nil
	}
}

func TestQueryTimeout(t *testing.T) {
	store := cache.NewStore(2)
	store.Cache("partitioned")

	coord := New(store, slowTransport{}, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	qctx := query.NewContext("select id from Person", nil)
	_, err := coord.Execute(ctx, qctx, singleTablePlan())

	var terr *QueryTimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *QueryTimeoutError, got %T: %v", err, err)
	}
	if terr.QueryID != qctx.ID {
		t.Errorf("timeout should carry the query ID")
	}
}

// stallingTransport never answers before its sub-request deadline.
type stallingTransport struct{}

func (stallingTransport) Execute(ctx context.Context, frag *executor.Fragment) (*executor.Partial, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSubRequestDeadlineIsPartialFailure(t *testing.T) {
	store := cache.NewStore(2)
	store.Cache("partitioned")

	// Generous query deadline, tight per-request timeout. Exhausting the
	// retry must fail as a partition failure, not a query timeout.
	coord := New(store, stallingTransport{}, 20*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	qctx := query.NewContext("select id from Person", nil)
	_, err := coord.Execute(ctx, qctx, singleTablePlan())

	var perr *PartialResultError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PartialResultError, got %T: %v", err, err)
	}
	var terr *QueryTimeoutError
	if errors.As(err, &terr) {
		t.Errorf("sub-request deadline must not surface as a query timeout: %v", err)
	}
}

func TestSinglePartitionRouting(t *testing.T) {
	store := cache.NewStore(8)
	c := store.Cache("partitioned")

	transport := &flakyTransport{}
	coord := New(store, transport, time.Second, nil)

	qp := singleTablePlan()
	qp.Routing = plan.Routing{SinglePartition: true, AffinityValue: int64(42)}

	qctx := query.NewContext("select id from Person where orgId = 42", nil)
	if _, err := coord.Execute(context.Background(), qctx, qp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := c.AffinityKey(int64(42))
	if len(transport.calls) != 1 {
		t.Fatalf("routed query should touch one partition, touched %d", len(transport.calls))
	}
	if transport.calls[want] != 1 {
		t.Errorf("expected the affinity partition %d to be the target, calls: %v", want, transport.calls)
	}
}

func TestOrderByWithAggregatesRejected(t *testing.T) {
	store := cache.NewStore(2)
	store.Cache("partitioned")
	coord := New(store, &flakyTransport{}, time.Second, nil)

	qp := singleTablePlan()
	qp.Projection[0].Agg = "count"
	qp.OrderBy = []plan.SortKey{{Table: "Person", Column: "id"}}

	qctx := query.NewContext("", nil)
	if _, err := coord.Execute(context.Background(), qctx, qp); err == nil {
		t.Error("ORDER BY with aggregates should be rejected")
	}
}

func TestMergeSortedKWayMerge(t *testing.T) {
	keys := []plan.SortKey{{Table: "P", Column: "v"}}
	partials := []*executor.Partial{
		{Sorted: true, Raw: []data.Row{{"P.v": int64(1)}, {"P.v": int64(4)}, {"P.v": int64(9)}}},
		{Sorted: true, Raw: []data.Row{{"P.v": int64(2)}, {"P.v": int64(3)}}},
		{Sorted: true, Raw: []data.Row{}},
		{Sorted: true, Raw: []data.Row{{"P.v": int64(5)}}},
	}

	out := mergeSorted(partials, keys)
	want := []int64{1, 2, 3, 4, 5, 9}
	if len(out) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(out))
	}
	for i, w := range want {
		if out[i]["P.v"] != w {
			t.Errorf("out[%d] = %v, want %d", i, out[i]["P.v"], w)
		}
	}
}

func TestMergeSortedFallbackWhenUnsorted(t *testing.T) {
	keys := []plan.SortKey{{Table: "P", Column: "v"}}
	partials := []*executor.Partial{
		{Sorted: true, Raw: []data.Row{{"P.v": int64(5)}, {"P.v": int64(7)}}},
		{Sorted: false, Raw: []data.Row{{"P.v": int64(6)}, {"P.v": int64(1)}}},
	}

	out := mergeSorted(partials, keys)
	want := []int64{1, 5, 6, 7}
	for i, w := range want {
		if out[i]["P.v"] != w {
			t.Errorf("out[%d] = %v, want %d", i, out[i]["P.v"], w)
		}
	}
}

func TestJoinTables(t *testing.T) {
	qp := &plan.QueryPlan{
		Tables: []plan.TableScan{
			{Type: "Person", Cache: "partitioned"},
			{Type: "Organization", Cache: "partitioned"},
		},
		JoinConds: []plan.Condition{{
			Left:  plan.Operand{Kind: plan.ColumnOperand, Table: "Person", Column: "orgId"},
			Op:    "=",
			Right: plan.Operand{Kind: plan.ColumnOperand, Table: "Organization", Column: "id"},
		}},
	}

	persons := []data.Row{
		{"Person.id": int64(1), "Person.orgId": int64(0)},
		{"Person.id": int64(2), "Person.orgId": int64(1)},
		{"Person.id": int64(3), "Person.orgId": int64(0)},
	}
	orgs := []data.Row{
		{"Organization.id": int64(0), "Organization.name": "Org0"},
		{"Organization.id": int64(1), "Organization.name": "Org1"},
	}

	joined := joinTables(qp, [][]data.Row{persons, orgs})
	if len(joined) != 3 {
		t.Fatalf("expected 3 joined rows, got %d", len(joined))
	}
	for _, row := range joined {
		orgID, _ := row.Get("Person", "orgId")
		id, _ := row.Get("Organization", "id")
		if orgID != id {
			t.Errorf("join condition violated: %v", row)
		}
	}
}
