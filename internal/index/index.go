package index

import (
	"sort"

	"github.com/leengari/gridsql/internal/cache"
	"github.com/leengari/gridsql/internal/catalog"
)

// ordEntry pairs an index key value with the entry it points at.
type ordEntry struct {
	val   any
	entry cache.Entry
}

// shard is the index state for one (type, column) on one partition.
// Mutated only under the owning partition's write lock; read under its
// read lock (see Manager.view).
type shard struct {
	field   *catalog.Field
	hash    map[any][]cache.Entry
	ordered []ordEntry // sorted by val, ties in insertion order
}

func newShard(f *catalog.Field) *shard {
	return &shard{field: f, hash: make(map[any][]cache.Entry)}
}

func (s *shard) insert(val any, e cache.Entry) {
	s.hash[val] = append(s.hash[val], e)

	pos := sort.Search(len(s.ordered), func(i int) bool {
		return Compare(s.ordered[i].val, val) > 0
	})
	s.ordered = append(s.ordered, ordEntry{})
	copy(s.ordered[pos+1:], s.ordered[pos:])
	s.ordered[pos] = ordEntry{val: val, entry: e}
}

func (s *shard) remove(val any, key any) {
	bucket := s.hash[val]
	for i, e := range bucket {
		if e.Key == key {
			s.hash[val] = append(bucket[:i:i], bucket[i+1:]...)
			break
		}
	}
	if len(s.hash[val]) == 0 {
		delete(s.hash, val)
	}

	for i, oe := range s.ordered {
		if Compare(oe.val, val) == 0 && oe.entry.Key == key {
			s.ordered = append(s.ordered[:i:i], s.ordered[i+1:]...)
			break
		}
	}
}

func (s *shard) equality(val any) []cache.Entry {
	bucket := s.hash[val]
	out := make([]cache.Entry, len(bucket))
	copy(out, bucket)
	return out
}

// rangeScan returns entries with lo <= val <= hi in index-key order.
// A nil bound is unbounded; inclusivity flags apply per bound.
func (s *shard) rangeScan(lo, hi any, loIncl, hiIncl bool) []cache.Entry {
	start := 0
	if lo != nil {
		start = sort.Search(len(s.ordered), func(i int) bool {
			c := Compare(s.ordered[i].val, lo)
			if loIncl {
				return c >= 0
			}
			return c > 0
		})
	}
	var out []cache.Entry
	for i := start; i < len(s.ordered); i++ {
		if hi != nil {
			c := Compare(s.ordered[i].val, hi)
			if c > 0 || (c == 0 && !hiIncl) {
				break
			}
		}
		out = append(out, s.ordered[i].entry)
	}
	return out
}

// Compare orders two canonical index-key values. Mixed numeric kinds
// compare by magnitude; strings compare byte-exact.
func Compare(a, b any) int {
	a = normalize(a)
	b = normalize(b)
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		case float64:
			return cmpFloat(float64(av), bv)
		}
	case float64:
		switch bv := b.(type) {
		case int64:
			return cmpFloat(av, float64(bv))
		case float64:
			return cmpFloat(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			}
			return 1
		}
	}
	// Incomparable kinds sort arbitrarily but deterministically
	return 0
}

// normalize widens small integer kinds so callers can hand us raw
// caller-supplied values.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	}
	return v
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
