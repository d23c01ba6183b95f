package catalog

// Coerce converts a value to the canonical Go representation of the
// given semantic type (int64, float64, string, bool). Returns false
// when the value cannot be represented without loss.
func Coerce(t FieldType, v any) (any, bool) {
	switch t {
	case IntType:
		return toInt64(v)
	case FloatType:
		return toFloat64(v)
	case StringType:
		s, ok := v.(string)
		return s, ok
	case BoolType:
		b, ok := v.(bool)
		return b, ok
	}
	return nil, false
}
