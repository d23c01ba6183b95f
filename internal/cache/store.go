package cache

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/leengari/gridsql/internal/domain/data"
)

// Entry is one cached record. Type names the catalog entry describing
// the value, replacing the runtime class check of an object cache.
type Entry struct {
	Key       any
	Type      string
	Value     data.Row
	Partition int
}

// MutationHook observes entry mutations. Hooks run while the owning
// partition's write lock is held, so secondary structures stay
// consistent with the cache at every point a reader can observe.
type MutationHook interface {
	OnPut(e Entry)
	OnRemove(e Entry)
}

type partition struct {
	mu      sync.RWMutex
	entries map[any]Entry
}

// Cache is one named, partitioned keyspace.
type Cache struct {
	name  string
	parts []*partition
	hooks []MutationHook

	routeMu sync.RWMutex
	route   map[any]int // key -> partition (differs from hash(key) under affinity placement)
}

func newCache(name string, partitions int) *Cache {
	parts := make([]*partition, partitions)
	for i := range parts {
		parts[i] = &partition{entries: make(map[any]Entry)}
	}
	return &Cache{
		name:  name,
		parts: parts,
		route: make(map[any]int),
	}
}

// OnMutate registers a hook. Must be called before any Put.
func (c *Cache) OnMutate(h MutationHook) {
	c.hooks = append(c.hooks, h)
}

// Partitions returns the partition count.
func (c *Cache) Partitions() int {
	return len(c.parts)
}

// AffinityKey maps a key to its owning partition.
func (c *Cache) AffinityKey(key any) int {
	return int(hashKey(key) % uint64(len(c.parts)))
}

// Put stores an entry under the partition of key itself.
func (c *Cache) Put(key any, typeName string, value data.Row) Entry {
	return c.PutAffinity(key, key, typeName, value)
}

// PutAffinity stores an entry in the partition owned by the affinity
// key, so entries sharing it are co-located.
func (c *Cache) PutAffinity(key, affinity any, typeName string, value data.Row) Entry {
	pid := c.AffinityKey(affinity)
	e := Entry{Key: key, Type: typeName, Value: value.Copy(), Partition: pid}

	// A changed affinity value moves the entry between partitions. The
	// stale copy is evicted from its old partition first so one key never
	// has two live entries.
	if oldPid, ok := c.partitionOf(key); ok && oldPid != pid {
		old := c.parts[oldPid]
		old.mu.Lock()
		if prev, exists := old.entries[key]; exists {
			delete(old.entries, key)
			for _, h := range c.hooks {
				h.OnRemove(prev)
			}
		}
		old.mu.Unlock()
	}

	p := c.parts[pid]
	p.mu.Lock()
	if old, exists := p.entries[key]; exists {
		for _, h := range c.hooks {
			h.OnRemove(old)
		}
	}
	p.entries[key] = e
	for _, h := range c.hooks {
		h.OnPut(e)
	}
	p.mu.Unlock()

	c.routeMu.Lock()
	c.route[key] = pid
	c.routeMu.Unlock()

	return e
}

// Get returns the entry stored under key.
func (c *Cache) Get(key any) (Entry, bool) {
	pid, ok := c.partitionOf(key)
	if !ok {
		return Entry{}, false
	}
	p := c.parts[pid]
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[key]
	return e, ok
}

// Remove deletes the entry stored under key.
func (c *Cache) Remove(key any) bool {
	pid, ok := c.partitionOf(key)
	if !ok {
		return false
	}
	p := c.parts[pid]
	p.mu.Lock()
	e, exists := p.entries[key]
	if exists {
		delete(p.entries, key)
		for _, h := range c.hooks {
			h.OnRemove(e)
		}
	}
	p.mu.Unlock()

	if exists {
		c.routeMu.Lock()
		delete(c.route, key)
		c.routeMu.Unlock()
	}
	return exists
}

// Scan returns a snapshot of all entries in one partition.
func (c *Cache) Scan(pid int) []Entry {
	if pid < 0 || pid >= len(c.parts) {
		return nil
	}
	p := c.parts[pid]
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Entry, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e)
	}
	return out
}

// View runs fn under the partition's read lock. Index lookups use this
// so they see a state consistent with the cache.
func (c *Cache) View(pid int, fn func()) {
	p := c.parts[pid]
	p.mu.RLock()
	defer p.mu.RUnlock()
	fn()
}

// Size returns the total entry count across partitions.
func (c *Cache) Size() int {
	n := 0
	for _, p := range c.parts {
		p.mu.RLock()
		n += len(p.entries)
		p.mu.RUnlock()
	}
	return n
}

func (c *Cache) partitionOf(key any) (int, bool) {
	c.routeMu.RLock()
	defer c.routeMu.RUnlock()
	pid, ok := c.route[key]
	return pid, ok
}

// Store holds the named caches of one node. All caches share the same
// partition count so an affinity key routes identically everywhere.
type Store struct {
	mu         sync.RWMutex
	partitions int
	caches     map[string]*Cache
}

func NewStore(partitions int) *Store {
	if partitions < 1 {
		partitions = 1
	}
	return &Store{
		partitions: partitions,
		caches:     make(map[string]*Cache),
	}
}

// Cache returns the named cache, creating it on first use.
func (s *Store) Cache(name string) *Cache {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.caches[name]
	if !ok {
		c = newCache(name, s.partitions)
		s.caches[name] = c
	}
	return c
}

// Partitions returns the per-cache partition count.
func (s *Store) Partitions() int {
	return s.partitions
}

// Names returns all cache names created so far.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.caches))
	for n := range s.caches {
		names = append(names, n)
	}
	return names
}

func hashKey(key any) uint64 {
	h := fnv.New64a()
	switch k := key.(type) {
	case string:
		h.Write([]byte(k))
	case int:
		writeUint64(h, uint64(k))
	case int32:
		writeUint64(h, uint64(k))
	case int64:
		writeUint64(h, uint64(k))
	case uint64:
		writeUint64(h, k)
	default:
		fmt.Fprintf(h, "%v", k)
	}
	return h.Sum64()
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	h.Write(buf[:])
}
