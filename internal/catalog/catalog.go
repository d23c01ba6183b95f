package catalog

import (
	"sync"

	"github.com/leengari/gridsql/internal/domain/data"
)

// FieldType is the semantic type of a column.
type FieldType int

const (
	IntType FieldType = iota
	FloatType
	StringType
	BoolType
)

func (t FieldType) String() string {
	switch t {
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case StringType:
		return "string"
	case BoolType:
		return "bool"
	default:
		return "unknown"
	}
}

// FieldSpec describes one queryable field at registration time.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Indexed  bool
	Affinity bool // field determining partition placement
}

// Accessor reads a field out of a cached row. Resolved once at
// registration; returns false when the field is absent.
type Accessor func(data.Row) (any, bool)

// Field is the resolved descriptor for one column of a registered type.
type Field struct {
	Name    string
	Type    FieldType
	Indexed bool
	Ordinal int
	Access  Accessor
}

// Type is a catalog entry: a registered type and its column mapping.
// Immutable after registration.
type Type struct {
	Name          string
	Cache         string
	Fields        []*Field
	AffinityField string // empty when placement follows the cache key

	byName map[string]*Field
}

// Resolve returns the field descriptor for a column name.
func (t *Type) Resolve(column string) (*Field, error) {
	if f, ok := t.byName[column]; ok {
		return f, nil
	}
	return nil, &UnknownColumnError{Type: t.Name, Column: column}
}

// Columns returns the declared column names in registration order.
func (t *Type) Columns() []string {
	cols := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		cols[i] = f.Name
	}
	return cols
}

// Catalog tracks registered types and their column mappings.
// Registration happens once at startup; reads during query execution
// see an effectively immutable structure.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]*Type
}

func New() *Catalog {
	return &Catalog{types: make(map[string]*Type)}
}

// Register adds a type to the catalog.
// Fails with DuplicateTypeError if the name is taken, or
// InvalidFieldError if a field spec cannot be resolved to an accessor.
func (c *Catalog) Register(typeName, cacheName string, fields []FieldSpec) (*Type, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.types[typeName]; exists {
		return nil, &DuplicateTypeError{Type: typeName}
	}

	t := &Type{
		Name:   typeName,
		Cache:  cacheName,
		byName: make(map[string]*Field, len(fields)),
	}

	for i, spec := range fields {
		if spec.Name == "" {
			return nil, &InvalidFieldError{Type: typeName, Reason: "empty field name"}
		}
		if _, dup := t.byName[spec.Name]; dup {
			return nil, &InvalidFieldError{Type: typeName, Field: spec.Name, Reason: "duplicate column name"}
		}
		access, err := resolveAccessor(typeName, spec)
		if err != nil {
			return nil, err
		}
		f := &Field{
			Name:    spec.Name,
			Type:    spec.Type,
			Indexed: spec.Indexed,
			Ordinal: i,
			Access:  access,
		}
		t.Fields = append(t.Fields, f)
		t.byName[spec.Name] = f
		if spec.Affinity {
			if t.AffinityField != "" {
				return nil, &InvalidFieldError{Type: typeName, Field: spec.Name, Reason: "multiple affinity fields"}
			}
			t.AffinityField = spec.Name
		}
	}

	c.types[typeName] = t
	return t, nil
}

// Lookup returns the catalog entry for a type name.
func (c *Catalog) Lookup(typeName string) (*Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[typeName]
	return t, ok
}

// Types returns all registered type names.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.types))
	for n := range c.types {
		names = append(names, n)
	}
	return names
}

// TypesForCache returns the catalog entries stored in the given cache.
func (c *Catalog) TypesForCache(cacheName string) []*Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Type
	for _, t := range c.types {
		if t.Cache == cacheName {
			out = append(out, t)
		}
	}
	return out
}

// resolveAccessor builds the typed accessor for a field spec. The
// accessor coerces stored values to the canonical Go type of the
// declared semantic type and refuses values it cannot represent.
func resolveAccessor(typeName string, spec FieldSpec) (Accessor, error) {
	name := spec.Name
	switch spec.Type {
	case IntType:
		return func(r data.Row) (any, bool) {
			v, ok := r[name]
			if !ok {
				return nil, false
			}
			n, ok := toInt64(v)
			if !ok {
				return nil, false
			}
			return n, true
		}, nil
	case FloatType:
		return func(r data.Row) (any, bool) {
			v, ok := r[name]
			if !ok {
				return nil, false
			}
			f, ok := toFloat64(v)
			if !ok {
				return nil, false
			}
			return f, true
		}, nil
	case StringType:
		return func(r data.Row) (any, bool) {
			v, ok := r[name]
			if !ok {
				return nil, false
			}
			s, ok := v.(string)
			return s, ok
		}, nil
	case BoolType:
		return func(r data.Row) (any, bool) {
			v, ok := r[name]
			if !ok {
				return nil, false
			}
			b, ok := v.(bool)
			return b, ok
		}, nil
	default:
		return nil, &InvalidFieldError{Type: typeName, Field: name, Reason: "unsupported field type"}
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		// Accept only values an int column can hold exactly
		if n == float64(int64(n)) {
			return int64(n), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
