package data

import "testing"

func TestCopyDoesNotAlias(t *testing.T) {
	r := Row{"id": int64(1)}
	cp := r.Copy()
	cp["id"] = int64(2)

	if r["id"] != int64(1) {
		t.Errorf("copy mutated the original: %v", r["id"])
	}
}

func TestGetPrefersQualifiedKey(t *testing.T) {
	r := Row{
		"Person.id": int64(1),
		"id":        int64(9),
	}

	if v, ok := r.Get("Person", "id"); !ok || v != int64(1) {
		t.Errorf("qualified lookup: %v %v", v, ok)
	}
	if v, ok := r.Get("", "id"); !ok || v != int64(9) {
		t.Errorf("bare lookup: %v %v", v, ok)
	}
	if v, ok := r.Get("Organization", "id"); !ok || v != int64(9) {
		t.Errorf("unmatched qualifier should fall back to the bare name: %v %v", v, ok)
	}
	if _, ok := r.Get("Person", "missing"); ok {
		t.Error("missing column should report false")
	}
}

func TestQualifyAndMerge(t *testing.T) {
	person := Row{"id": int64(3), "orgId": int64(1)}.Qualify("Person")
	org := Row{"id": int64(1), "name": "Org1"}.Qualify("Organization")

	if _, ok := person["Person.id"]; !ok {
		t.Fatalf("qualify should prefix keys: %v", person)
	}

	joined := person.Merge(org)
	if len(joined) != 4 {
		t.Fatalf("expected 4 keys after merge, got %d", len(joined))
	}
	if v, _ := joined.Get("Person", "id"); v != int64(3) {
		t.Errorf("Person.id = %v", v)
	}
	if v, _ := joined.Get("Organization", "id"); v != int64(1) {
		t.Errorf("Organization.id = %v", v)
	}

	// merge leaves the inputs untouched
	if len(person) != 2 || len(org) != 2 {
		t.Error("merge should not mutate its inputs")
	}
}
