package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/leengari/gridsql/internal/catalog"
	"github.com/leengari/gridsql/internal/domain/data"
	"github.com/leengari/gridsql/internal/parser"
	"github.com/leengari/gridsql/internal/planner"
)

func TestPutCanonicalizesValues(t *testing.T) {
	eng := testEngine()
	if err := eng.RegisterType("Person", "partitioned", []catalog.FieldSpec{
		{Name: "id", Type: catalog.IntType, Indexed: true},
		{Name: "salary", Type: catalog.FloatType},
	}); err != nil {
		t.Fatal(err)
	}

	// plain int for an int column, int for a float column
	if err := eng.Put("Person", 1, data.Row{"id": 1, "salary": 500}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := eng.Execute(context.Background(), "select id, salary from Person")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}
	if res.Rows[0][0] != int64(1) {
		t.Errorf("id should canonicalize to int64, got %T", res.Rows[0][0])
	}
	if res.Rows[0][1] != float64(500) {
		t.Errorf("salary should canonicalize to float64, got %T", res.Rows[0][1])
	}
}

func TestPutRejectsMistypedValue(t *testing.T) {
	eng := testEngine()
	if err := eng.RegisterType("Person", "partitioned", []catalog.FieldSpec{
		{Name: "id", Type: catalog.IntType},
	}); err != nil {
		t.Fatal(err)
	}

	err := eng.Put("Person", 1, data.Row{"id": "not a number"})
	var ferr *catalog.InvalidFieldError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *catalog.InvalidFieldError, got %T: %v", err, err)
	}
}

func TestPutUnregisteredType(t *testing.T) {
	eng := testEngine()
	if err := eng.Put("Ghost", 1, data.Row{}); err == nil {
		t.Error("expected error for unregistered type")
	}
	if _, err := eng.Remove("Ghost", 1); err == nil {
		t.Error("expected error for unregistered type")
	}
}

func TestRemoveDropsRowsFromQueries(t *testing.T) {
	eng := testEngine()
	if err := eng.RegisterType("Person", "partitioned", []catalog.FieldSpec{
		{Name: "id", Type: catalog.IntType, Indexed: true},
	}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := eng.Put("Person", int64(i), data.Row{"id": int64(i)}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := eng.Remove("Person", int64(2))
	if err != nil || !removed {
		t.Fatalf("remove failed: %v %v", removed, err)
	}

	res, err := eng.Execute(context.Background(), "select id from Person")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 4 {
		t.Errorf("expected 4 rows after removal, got %d", len(res.Rows))
	}
	res, err = eng.Execute(context.Background(), "select id from Person where id = 2")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("removed row still visible through the index")
	}
}

func TestRePutWithNewAffinityKeepsOneRow(t *testing.T) {
	eng := testEngine()
	if err := eng.RegisterType("Person", "partitioned", []catalog.FieldSpec{
		{Name: "id", Type: catalog.IntType, Indexed: true},
		{Name: "orgId", Type: catalog.IntType, Indexed: true, Affinity: true},
	}); err != nil {
		t.Fatal(err)
	}

	// Each re-put changes the affinity value, so the row keeps moving
	// between partitions.
	for orgID := int64(0); orgID < 8; orgID++ {
		if err := eng.Put("Person", int64(1), data.Row{"id": int64(1), "orgId": orgID}); err != nil {
			t.Fatal(err)
		}
	}

	res, err := eng.Execute(context.Background(), "select id, orgId from Person")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row after re-puts of one key, got %d: %v", len(res.Rows), res.Rows)
	}
	if res.Rows[0][1] != int64(7) {
		t.Errorf("survivor should carry the last orgId, got %v", res.Rows[0][1])
	}

	// Index lookups agree: stale placements are gone.
	res, err = eng.Execute(context.Background(), "select id from Person where orgId = 3")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("stale placement still visible through the index: %v", res.Rows)
	}
	res, err = eng.Execute(context.Background(), "select id from Person where orgId = 7")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("latest placement should be indexed, got %d rows", len(res.Rows))
	}
}

func TestExecuteErrorTypes(t *testing.T) {
	eng := testEngine()
	if err := eng.RegisterType("Person", "partitioned", []catalog.FieldSpec{
		{Name: "id", Type: catalog.IntType},
	}); err != nil {
		t.Fatal(err)
	}

	_, err := eng.Execute(context.Background(), "select from where")
	var perr *parser.ParseError
	if !errors.As(err, &perr) {
		t.Errorf("expected *parser.ParseError, got %T: %v", err, err)
	}

	_, err = eng.Execute(context.Background(), "select id from Missing")
	var terr *planner.UnresolvedTableError
	if !errors.As(err, &terr) {
		t.Errorf("expected *planner.UnresolvedTableError, got %T: %v", err, err)
	}

	_, err = eng.Execute(context.Background(), "select ghost from Person")
	var cerr *planner.UnresolvedColumnError
	if !errors.As(err, &cerr) {
		t.Errorf("expected *planner.UnresolvedColumnError, got %T: %v", err, err)
	}
}
