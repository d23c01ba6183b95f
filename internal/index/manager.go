package index

import (
	"github.com/leengari/gridsql/internal/cache"
	"github.com/leengari/gridsql/internal/catalog"
)

type shardKey struct {
	typeName  string
	column    string
	partition int
}

// Manager maintains one secondary index per indexed column declared in
// the catalog, sharded by partition. It hooks into cache mutations so
// there is no window where cache state and index disagree: inserts and
// removes run under the same partition write lock as the cache change.
type Manager struct {
	cat    *catalog.Catalog
	store  *cache.Store
	shards map[shardKey]*shard
}

func NewManager(cat *catalog.Catalog, store *cache.Store) *Manager {
	return &Manager{
		cat:    cat,
		store:  store,
		shards: make(map[shardKey]*shard),
	}
}

// Attach creates the index shards for a registered type and subscribes
// to its cache's mutations. Called during registration, before data.
func (m *Manager) Attach(t *catalog.Type) {
	c := m.store.Cache(t.Cache)
	for _, f := range t.Fields {
		if !f.Indexed {
			continue
		}
		for pid := 0; pid < c.Partitions(); pid++ {
			m.shards[shardKey{t.Name, f.Name, pid}] = newShard(f)
		}
	}
	c.OnMutate(&typeHook{mgr: m, typeName: t.Name, typ: t})
}

// typeHook routes mutations of one registered type into its shards.
type typeHook struct {
	mgr      *Manager
	typeName string
	typ      *catalog.Type
}

func (h *typeHook) OnPut(e cache.Entry) {
	if e.Type != h.typeName {
		return
	}
	for _, f := range h.typ.Fields {
		if !f.Indexed {
			continue
		}
		val, ok := f.Access(e.Value)
		if !ok {
			continue // absent field is simply not indexed
		}
		if s := h.mgr.shards[shardKey{h.typeName, f.Name, e.Partition}]; s != nil {
			s.insert(val, e)
		}
	}
}

func (h *typeHook) OnRemove(e cache.Entry) {
	if e.Type != h.typeName {
		return
	}
	for _, f := range h.typ.Fields {
		if !f.Indexed {
			continue
		}
		val, ok := f.Access(e.Value)
		if !ok {
			continue
		}
		if s := h.mgr.shards[shardKey{h.typeName, f.Name, e.Partition}]; s != nil {
			s.remove(val, e.Key)
		}
	}
}

// Indexed reports whether the column of the type carries an index.
func (m *Manager) Indexed(typeName, column string) bool {
	_, ok := m.shards[shardKey{typeName, column, 0}]
	return ok
}

// EqualityScan returns the entries of one partition whose indexed
// column equals the given value. Unordered.
func (m *Manager) EqualityScan(typeName, column string, value any, pid int) ([]cache.Entry, bool) {
	s, ok := m.shards[shardKey{typeName, column, pid}]
	if !ok {
		return nil, false
	}
	canonical, ok := catalog.Coerce(s.field.Type, value)
	if !ok {
		return nil, true // comparable to nothing of this column's type
	}
	var out []cache.Entry
	m.view(typeName, pid, func() {
		out = s.equality(canonical)
	})
	return out, true
}

// RangeScan returns the entries of one partition whose indexed column
// falls inside the given bounds, ordered by index key. Nil bounds are
// unbounded.
func (m *Manager) RangeScan(typeName, column string, lo, hi any, loIncl, hiIncl bool, pid int) ([]cache.Entry, bool) {
	s, ok := m.shards[shardKey{typeName, column, pid}]
	if !ok {
		return nil, false
	}
	if lo != nil {
		if c, ok := catalog.Coerce(s.field.Type, lo); ok {
			lo = c
		} else {
			return nil, true
		}
	}
	if hi != nil {
		if c, ok := catalog.Coerce(s.field.Type, hi); ok {
			hi = c
		} else {
			return nil, true
		}
	}
	var out []cache.Entry
	m.view(typeName, pid, func() {
		out = s.rangeScan(lo, hi, loIncl, hiIncl)
	})
	return out, true
}

func (m *Manager) view(typeName string, pid int, fn func()) {
	t, ok := m.cat.Lookup(typeName)
	if !ok {
		fn()
		return
	}
	m.store.Cache(t.Cache).View(pid, fn)
}
