package bulk

import "iter"

// Mapping binds cursor ordinal Index to destination Column.
type Mapping[T any] struct {
	Index  int
	Field  string
	Column string
	Value  func(T) any
}

// FieldMapping is the ordered list of mappings of one record shape.
// Indices are exactly 0..len-1.
type FieldMapping[T any] []Mapping[T]

// Columns returns destination column names in ordinal order.
func (m FieldMapping[T]) Columns() []string {
	cols := make([]string, len(m))
	for i, e := range m {
		cols[i] = e.Column
	}
	return cols
}

// WriteConfig is the compiled, read-only bundle used by every write of a
// record shape. It is safe to share between goroutines.
type WriteConfig[T any] struct {
	Table     string
	BatchSize int
	Mapping   FieldMapping[T]
}

// FieldCount returns the number of mapped columns.
func (c *WriteConfig[T]) FieldCount() int { return len(c.Mapping) }

// Cursor wraps records in a cursor whose ordinals follow c.Mapping.
func (c *WriteConfig[T]) Cursor(records iter.Seq[T]) (*RecordCursor[T], error) {
	mapping := c.Mapping
	return NewRecordCursor(len(mapping), records, func(rec T, i int) any {
		return mapping[i].Value(rec)
	})
}
