package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leengari/gridsql/internal/cache"
	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/domain/query"
	"github.com/leengari/gridsql/internal/executor"
	"github.com/leengari/gridsql/internal/metrics"
	"github.com/leengari/gridsql/internal/plan"
)

// Transport delivers a fragment to the node owning a partition. In a
// single-process deployment this is a direct local call; clustered
// deployments send it over the wire.
type Transport interface {
	Execute(ctx context.Context, frag *executor.Fragment) (*executor.Partial, error)
}

// LocalTransport runs fragments in-process.
type LocalTransport struct {
	Exec *executor.Local
}

func (t *LocalTransport) Execute(ctx context.Context, frag *executor.Fragment) (*executor.Partial, error) {
	return t.Exec.Execute(ctx, frag)
}

// Result is a fully merged query result.
type Result struct {
	Columns []string
	Rows    []data.ResultRow
}

// Coordinator fans a planned query out across partitions and merges
// the partial results.
type Coordinator struct {
	store      *cache.Store
	transport  Transport
	subTimeout time.Duration
	logger     *slog.Logger
}

func New(store *cache.Store, transport Transport, subTimeout time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:      store,
		transport:  transport,
		subTimeout: subTimeout,
		logger:     logger,
	}
}

// Execute runs a plan to completion and returns the merged result.
func (c *Coordinator) Execute(ctx context.Context, qctx *query.Context, qp *plan.QueryPlan) (*Result, error) {
	res := &Result{Columns: qp.ColumnNames()}

	if qp.HasAggregates() && len(qp.OrderBy) > 0 {
		return nil, fmt.Errorf("ORDER BY is not supported together with aggregates")
	}

	var rows []data.ResultRow
	var err error
	if qp.SingleTable() {
		rows, err = c.executeSingle(ctx, qctx, qp)
	} else {
		rows, err = c.executeJoin(ctx, qctx, qp)
	}
	if err != nil {
		return nil, err
	}
	res.Rows = rows
	return res, nil
}

// executeSingle pushes as much work as possible into the partitions:
// projection for plain queries, local pre-sort for ordered ones,
// partial aggregation for aggregates.
func (c *Coordinator) executeSingle(ctx context.Context, qctx *query.Context, qp *plan.QueryPlan) ([]data.ResultRow, error) {
	scan := qp.Tables[0]
	partitions := c.targets(scan, qp.Routing, true)
	metrics.PartitionsVisited.Observe(float64(len(partitions)))

	frag := executor.Fragment{
		QueryID:    qctx.ID,
		Scan:       scan,
		Projection: qp.Projection,
		GroupBy:    qp.GroupBy,
	}

	switch {
	case qp.HasAggregates():
		frag.Mode = executor.ModeAggregate
	case len(qp.OrderBy) > 0:
		frag.Mode = executor.ModeRaw
		frag.OrderBy = qp.OrderBy
	default:
		frag.Mode = executor.ModeProject
	}

	partials, err := c.fanOut(ctx, qctx, frag, partitions)
	if err != nil {
		return nil, err
	}

	switch frag.Mode {
	case executor.ModeAggregate:
		merged := executor.NewPartialAgg(qp.Projection, qp.GroupBy)
		for _, p := range partials {
			merged.Merge(p.Agg)
		}
		return merged.Finalize(qp.Projection), nil

	case executor.ModeRaw:
		sorted := mergeSorted(partials, qp.OrderBy)
		out := make([]data.ResultRow, 0, len(sorted))
		for _, row := range sorted {
			out = append(out, executor.Project(qp.Projection, row))
		}
		return out, nil

	default:
		var out []data.ResultRow
		for _, p := range partials {
			out = append(out, p.Rows...)
		}
		return out, nil
	}
}

// executeJoin gathers each table's filtered rows (broadcast), then
// joins, aggregates, sorts and projects centrally. Correctness over
// cleverness: a non-co-located join still sees every matching row.
func (c *Coordinator) executeJoin(ctx context.Context, qctx *query.Context, qp *plan.QueryPlan) ([]data.ResultRow, error) {
	tableRows := make([][]data.Row, len(qp.Tables))
	visited := 0
	for i, scan := range qp.Tables {
		partitions := c.targets(scan, qp.Routing, i == 0)
		visited += len(partitions)

		frag := executor.Fragment{
			QueryID: qctx.ID,
			Mode:    executor.ModeRaw,
			Scan:    scan,
		}
		partials, err := c.fanOut(ctx, qctx, frag, partitions)
		if err != nil {
			return nil, err
		}
		for _, p := range partials {
			tableRows[i] = append(tableRows[i], p.Raw...)
		}
	}
	metrics.PartitionsVisited.Observe(float64(visited))

	joined := joinTables(qp, tableRows)

	if qp.HasAggregates() {
		agg := executor.NewPartialAgg(qp.Projection, qp.GroupBy)
		for _, row := range joined {
			agg.Add(row)
		}
		return agg.Finalize(qp.Projection), nil
	}

	if len(qp.OrderBy) > 0 {
		executor.SortRows(joined, qp.OrderBy)
	}

	out := make([]data.ResultRow, 0, len(joined))
	for _, row := range joined {
		out = append(out, executor.Project(qp.Projection, row))
	}
	return out, nil
}

// targets resolves the partition set for one scan. Affinity routing
// only applies to the driving table; every other table broadcasts.
func (c *Coordinator) targets(scan plan.TableScan, routing plan.Routing, driving bool) []int {
	n := c.store.Partitions()
	if driving && routing.SinglePartition {
		pid := c.store.Cache(scan.Cache).AffinityKey(routing.AffinityValue)
		return []int{pid}
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// fanOut issues one sub-request per target partition, concurrently,
// and waits for all of them. Any partition failing after its retry
// fails the query.
func (c *Coordinator) fanOut(ctx context.Context, qctx *query.Context, frag executor.Fragment, partitions []int) ([]*executor.Partial, error) {
	g, gctx := errgroup.WithContext(ctx)
	partials := make([]*executor.Partial, len(partitions))

	for i, pid := range partitions {
		i, pid := i, pid
		g.Go(func() error {
			f := frag
			f.Partition = pid
			p, err := c.executeWithRetry(gctx, &f)
			if err != nil {
				return err
			}
			partials[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Only the query's own deadline counts as a timeout. A sub-request
		// deadline inside a PartialResultError cause chain does not.
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &QueryTimeoutError{QueryID: qctx.ID, Timeout: qctx.Elapsed()}
		}
		return nil, err
	}
	return partials, nil
}

// executeWithRetry applies the per-request timeout and retries once on
// transient failure before escalating to PartialResultError.
func (c *Coordinator) executeWithRetry(ctx context.Context, frag *executor.Fragment) (*executor.Partial, error) {
	attempt := func() (*executor.Partial, error) {
		subCtx := ctx
		if c.subTimeout > 0 {
			var cancel context.CancelFunc
			subCtx, cancel = context.WithTimeout(ctx, c.subTimeout)
			defer cancel()
		}
		return c.transport.Execute(subCtx, frag)
	}

	p, err := attempt()
	if err == nil {
		return p, nil
	}
	// The whole query is done for, don't bother retrying
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.logger.Warn("partition sub-request failed, retrying",
		"query_id", frag.QueryID,
		"partition", frag.Partition,
		"error", err,
	)
	metrics.SubRequestRetries.Inc()

	p, err = attempt()
	if err == nil {
		return p, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, &PartialResultError{Partition: frag.Partition, Cause: err}
}
