package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leengari/gridsql/internal/cache"
	"github.com/leengari/gridsql/internal/catalog"
	"github.com/leengari/gridsql/internal/config"
	"github.com/leengari/gridsql/internal/coordinator"
	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/domain/query"
	"github.com/leengari/gridsql/internal/executor"
	"github.com/leengari/gridsql/internal/index"
	"github.com/leengari/gridsql/internal/metrics"
	"github.com/leengari/gridsql/internal/parser"
	"github.com/leengari/gridsql/internal/parser/ast"
	"github.com/leengari/gridsql/internal/parser/lexer"
	"github.com/leengari/gridsql/internal/plan"
	"github.com/leengari/gridsql/internal/planner"
)

// Engine is the main entry point for the query system. It owns the
// catalog, the partitioned cache, the index manager and the
// coordinator, and drives a statement through lex, parse, plan and
// distributed execution.
type Engine struct {
	cat       *catalog.Catalog
	store     *cache.Store
	idx       *index.Manager
	coord     *coordinator.Coordinator
	timeout   time.Duration
	observers []Observer
	logger    *slog.Logger
}

// New creates an Engine wired for in-process execution.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	cat := catalog.New()
	store := cache.NewStore(cfg.Partitions)
	idx := index.NewManager(cat, store)
	local := executor.NewLocal(store, idx)
	coord := coordinator.New(store, &coordinator.LocalTransport{Exec: local}, cfg.Query.SubRequestTimeout, logger)

	return &Engine{
		cat:       cat,
		store:     store,
		idx:       idx,
		coord:     coord,
		timeout:   cfg.Query.Timeout,
		observers: make([]Observer, 0),
		logger:    logger,
	}
}

// SetTransport replaces the coordinator with one using the given
// transport. Used when sub-requests go over the cluster network.
func (e *Engine) SetTransport(t coordinator.Transport, subTimeout time.Duration) {
	e.coord = coordinator.New(e.store, t, subTimeout, e.logger)
}

// Catalog exposes the type registry, e.g. for the REPL's listings.
func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

// Store exposes the partitioned cache, e.g. for a cluster server
// executing remote fragments.
func (e *Engine) Store() *cache.Store { return e.store }

// Indexes exposes the index manager.
func (e *Engine) Indexes() *index.Manager { return e.idx }

// RegisterType declares a queryable type and builds its indexes.
// Must happen before data for the type is put.
func (e *Engine) RegisterType(typeName, cacheName string, fields []catalog.FieldSpec) error {
	t, err := e.cat.Register(typeName, cacheName, fields)
	if err != nil {
		return err
	}
	e.idx.Attach(t)
	e.logger.Info("type registered",
		"type", typeName,
		"cache", cacheName,
		"fields", len(fields),
		"affinity", t.AffinityField,
	)
	return nil
}

// Put stores a row of a registered type. Values are canonicalized to
// the declared column types; a value a column cannot represent fails
// the whole put. Placement follows the affinity field when the type
// declares one, the key otherwise.
func (e *Engine) Put(typeName string, key any, row data.Row) error {
	t, ok := e.cat.Lookup(typeName)
	if !ok {
		return fmt.Errorf("type %q is not registered", typeName)
	}

	canonical := make(data.Row, len(t.Fields))
	for _, f := range t.Fields {
		if _, present := row[f.Name]; !present {
			continue
		}
		v, ok := f.Access(row)
		if !ok {
			return &catalog.InvalidFieldError{Type: typeName, Field: f.Name, Reason: "value does not fit declared type"}
		}
		canonical[f.Name] = v
	}

	affinity := key
	if t.AffinityField != "" {
		if v, ok := canonical[t.AffinityField]; ok {
			affinity = v
		}
	}
	e.store.Cache(t.Cache).PutAffinity(key, affinity, typeName, canonical)
	return nil
}

// Remove deletes the entry of a registered type stored under key.
func (e *Engine) Remove(typeName string, key any) (bool, error) {
	t, ok := e.cat.Lookup(typeName)
	if !ok {
		return false, fmt.Errorf("type %q is not registered", typeName)
	}
	return e.store.Cache(t.Cache).Remove(key), nil
}

// Execute processes a SQL string with positional arguments and returns
// the merged result.
func (e *Engine) Execute(ctx context.Context, sql string, args ...any) (*coordinator.Result, error) {
	qctx := query.NewContext(sql, args)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	res, err := e.execute(ctx, qctx)

	metrics.QueryDuration.Observe(qctx.Elapsed().Seconds())
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		e.logger.Error("query failed",
			"query_id", qctx.ID,
			"sql", sql,
			"elapsed", qctx.Elapsed(),
			"error", err,
		)
		return nil, err
	}
	metrics.QueriesTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (e *Engine) execute(ctx context.Context, qctx *query.Context) (*coordinator.Result, error) {
	// 1. Tokenize
	e.notify(Event{Type: EventLexStart, QueryID: qctx.ID, Data: qctx.SQL})
	tokens, err := lexer.Tokenize(qctx.SQL)
	if err != nil {
		return nil, &parser.ParseError{Msg: err.Error(), Line: 1, Column: 1}
	}
	e.notify(Event{Type: EventLexEnd, QueryID: qctx.ID, Data: len(tokens)})

	// 2. Parse
	e.notify(Event{Type: EventParseStart, QueryID: qctx.ID})
	stmt, err := parser.New(tokens).ParseStatement()
	if err != nil {
		return nil, err
	}
	sel, ok := stmt.(*ast.SelectStatement)
	if !ok {
		return nil, fmt.Errorf("unsupported statement %T", stmt)
	}
	e.notify(Event{Type: EventParseEnd, QueryID: qctx.ID, Data: fmt.Sprintf("%T", stmt)})

	// 3. Plan
	e.notify(Event{Type: EventPlanStart, QueryID: qctx.ID})
	qp, err := planner.Plan(sel, e.cat, qctx.Args)
	if err != nil {
		return nil, err
	}
	tree := plan.BuildTree(qp)
	e.notify(Event{Type: EventPlanEnd, QueryID: qctx.ID, Data: map[string]interface{}{
		"nodes": plan.CountNodes(tree),
		"shape": plan.PrintTree(tree),
	}})

	// 4. Execute
	e.notify(Event{Type: EventExecStart, QueryID: qctx.ID})
	res, err := e.coord.Execute(ctx, qctx, qp)
	if err != nil {
		return nil, err
	}
	e.notify(Event{Type: EventExecEnd, QueryID: qctx.ID, Data: map[string]interface{}{
		"rows_returned": len(res.Rows),
		"elapsed":       qctx.Elapsed().String(),
	}})

	return res, nil
}

// AddObserver registers an observer to receive lifecycle events
func (e *Engine) AddObserver(observer Observer) {
	e.observers = append(e.observers, observer)
}

// RemoveObserver unregisters an observer
func (e *Engine) RemoveObserver(observer Observer) {
	for i, o := range e.observers {
		if o == observer {
			e.observers = append(e.observers[:i], e.observers[i+1:]...)
			return
		}
	}
}

// notify sends an event to all registered observers
func (e *Engine) notify(event Event) {
	event.Timestamp = time.Now()
	for _, observer := range e.observers {
		observer.OnEvent(event)
	}
}
