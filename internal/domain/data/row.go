package data

// Row holds one cached value's fields.
// Key = column name, Value = cell value.
type Row map[string]any

// NewRow creates a Row from the given data
func NewRow(data map[string]any) Row {
	r := make(Row, len(data))
	for k, v := range data {
		r[k] = v
	}
	return r
}

// Copy creates a deep copy of the row to prevent mutation
func (r Row) Copy() Row {
	cp := make(Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// Get looks up a column, trying the qualified name first when a table
// qualifier is given (e.g. "Person.salary"), then the bare column name.
func (r Row) Get(table, column string) (any, bool) {
	if table != "" {
		if v, ok := r[table+"."+column]; ok {
			return v, true
		}
	}
	v, ok := r[column]
	return v, ok
}

// ResultRow is one row of a query result: typed values positional
// with the query's projection list.
type ResultRow []any

// Qualify returns a copy of the row with every key prefixed by the
// table name, for use in joined row sets.
func (r Row) Qualify(table string) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[table+"."+k] = v
	}
	return out
}

// Merge combines two rows into a new one. Keys of other win on conflict.
func (r Row) Merge(other Row) Row {
	out := make(Row, len(r)+len(other))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
