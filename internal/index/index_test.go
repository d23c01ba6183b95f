package index

import (
	"testing"

	"github.com/leengari/gridsql/internal/cache"
	"github.com/leengari/gridsql/internal/catalog"
	"github.com/leengari/gridsql/internal/domain/data"
)

func newTestManager(t *testing.T, partitions int) (*catalog.Catalog, *cache.Store, *Manager) {
	t.Helper()
	cat := catalog.New()
	store := cache.NewStore(partitions)
	mgr := NewManager(cat, store)

	typ, err := cat.Register("Person", "partitioned", []catalog.FieldSpec{
		{Name: "id", Type: catalog.IntType, Indexed: true},
		{Name: "name", Type: catalog.StringType},
		{Name: "salary", Type: catalog.FloatType, Indexed: true},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	mgr.Attach(typ)
	return cat, store, mgr
}

func allPartitions(store *cache.Store, scan func(pid int) []cache.Entry) []cache.Entry {
	var out []cache.Entry
	for pid := 0; pid < store.Partitions(); pid++ {
		out = append(out, scan(pid)...)
	}
	return out
}

func TestIndexTracksMutations(t *testing.T) {
	_, store, mgr := newTestManager(t, 4)
	c := store.Cache("partitioned")

	for i := 0; i < 10; i++ {
		c.Put(int64(i), "Person", data.Row{"id": int64(i), "salary": float64(i * 100)})
	}

	// every row findable through the index
	for i := 0; i < 10; i++ {
		found := allPartitions(store, func(pid int) []cache.Entry {
			entries, ok := mgr.EqualityScan("Person", "id", int64(i), pid)
			if !ok {
				t.Fatalf("expected id index on partition %d", pid)
			}
			return entries
		})
		if len(found) != 1 {
			t.Errorf("id=%d matched %d entries, want 1", i, len(found))
		}
	}

	// removals leave exactly the survivors
	for i := 0; i < 4; i++ {
		c.Remove(int64(i))
	}
	total := 0
	for i := 0; i < 10; i++ {
		total += len(allPartitions(store, func(pid int) []cache.Entry {
			entries, _ := mgr.EqualityScan("Person", "id", int64(i), pid)
			return entries
		}))
	}
	if total != 6 {
		t.Errorf("after removing 4 of 10, index matched %d entries, want 6", total)
	}
}

func TestOverwriteReplacesIndexEntry(t *testing.T) {
	_, store, mgr := newTestManager(t, 2)
	c := store.Cache("partitioned")

	c.Put(int64(1), "Person", data.Row{"id": int64(1), "salary": float64(100)})
	c.Put(int64(1), "Person", data.Row{"id": int64(1), "salary": float64(200)})

	old := allPartitions(store, func(pid int) []cache.Entry {
		entries, _ := mgr.EqualityScan("Person", "salary", float64(100), pid)
		return entries
	})
	if len(old) != 0 {
		t.Errorf("stale index entry survived overwrite: %d matches", len(old))
	}

	cur := allPartitions(store, func(pid int) []cache.Entry {
		entries, _ := mgr.EqualityScan("Person", "salary", float64(200), pid)
		return entries
	})
	if len(cur) != 1 {
		t.Errorf("expected 1 match for new value, got %d", len(cur))
	}
}

func TestRangeScanOrderAndBounds(t *testing.T) {
	_, store, mgr := newTestManager(t, 1) // single partition keeps order observable
	c := store.Cache("partitioned")

	for i := 0; i < 10; i++ {
		c.Put(int64(i), "Person", data.Row{"id": int64(i), "salary": float64(i * 100)})
	}

	entries, ok := mgr.RangeScan("Person", "salary", float64(200), float64(700), true, false, 0)
	if !ok {
		t.Fatal("expected salary index")
	}

	if len(entries) != 5 {
		t.Fatalf("expected 5 entries in [200, 700), got %d", len(entries))
	}
	prev := -1.0
	for _, e := range entries {
		v := e.Value["salary"].(float64)
		if v < 200 || v >= 700 {
			t.Errorf("value %v outside [200, 700)", v)
		}
		if v < prev {
			t.Errorf("range scan out of order: %v after %v", v, prev)
		}
		prev = v
	}

	// unbounded low end
	entries, _ = mgr.RangeScan("Person", "salary", nil, float64(100), false, true, 0)
	if len(entries) != 2 {
		t.Errorf("expected 2 entries <= 100, got %d", len(entries))
	}
}

func TestScanOnUnindexedColumn(t *testing.T) {
	_, _, mgr := newTestManager(t, 2)

	if mgr.Indexed("Person", "name") {
		t.Error("name is not declared indexed")
	}
	if _, ok := mgr.EqualityScan("Person", "name", "x", 0); ok {
		t.Error("equality scan on unindexed column should report no index")
	}
	if !mgr.Indexed("Person", "salary") {
		t.Error("salary should be indexed")
	}
}

func TestEqualityScanCoercesPredicateValue(t *testing.T) {
	_, store, mgr := newTestManager(t, 1)
	c := store.Cache("partitioned")
	c.Put(int64(1), "Person", data.Row{"id": int64(7), "salary": float64(700)})

	// raw int predicate against an int64-keyed index
	entries, ok := mgr.EqualityScan("Person", "id", 7, 0)
	if !ok || len(entries) != 1 {
		t.Errorf("expected coerced match, got ok=%v n=%d", ok, len(entries))
	}

	// int predicate against a float index
	entries, ok = mgr.EqualityScan("Person", "salary", 700, 0)
	if !ok || len(entries) != 1 {
		t.Errorf("expected coerced float match, got ok=%v n=%d", ok, len(entries))
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b any
		want int
	}{
		{int64(1), int64(2), -1},
		{int64(2), int64(2), 0},
		{3, int64(2), 1},
		{int32(5), 5, 0},
		{int64(1), 1.5, -1},
		{2.5, int64(2), 1},
		{"a", "b", -1},
		{"b", "b", 0},
		{false, true, -1},
		{true, true, 0},
		{"a", int64(1), 0}, // incomparable kinds tie
	}

	for _, tc := range cases {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
