package bulk

import (
	"database/sql/driver"
	"iter"
	"reflect"
)

// Cursor is the forward-only view a transport pulls rows through.
//
// Next moves to the next record and reports whether one is available. Once
// it returns false (exhaustion or Close) it keeps returning false.
// Value and IsNull read column i of the current record only.
type Cursor interface {
	Next() bool
	FieldCount() int
	Value(i int) (any, error)
	IsNull(i int) (bool, error)
	Close() error
}

// RecordCursor adapts a single-pass sequence of T to Cursor. It is not safe
// for concurrent use; each write owns its cursor.
type RecordCursor[T any] struct {
	fieldCount int
	value      func(record T, i int) any

	next func() (T, bool)
	stop func()

	current T
	has     bool
	done    bool
	closed  bool
	rows    int
}

// NewRecordCursor binds a cursor to records. value returns field i of a
// record and is only called with i in [0, fieldCount).
//
// The sequence is pulled lazily and at most once; records already passed
// are not retained.
func NewRecordCursor[T any](fieldCount int, records iter.Seq[T], value func(record T, i int) any) (*RecordCursor[T], error) {
	if fieldCount <= 0 {
		return nil, invalidConfig("cursor.new", "field count must be greater than 0, got %d", fieldCount)
	}
	if records == nil {
		return nil, invalidConfig("cursor.new", "record sequence is nil")
	}
	if value == nil {
		return nil, invalidConfig("cursor.new", "value accessor is nil")
	}

	next, stop := iter.Pull(records)
	return &RecordCursor[T]{
		fieldCount: fieldCount,
		value:      value,
		next:       next,
		stop:       stop,
	}, nil
}

// Next advances to the next record.
func (c *RecordCursor[T]) Next() bool {
	if c.closed || c.done {
		return false
	}
	rec, ok := c.next()
	if !ok {
		var zero T
		c.current, c.has, c.done = zero, false, true
		c.stop()
		return false
	}
	c.current, c.has = rec, true
	c.rows++
	return true
}

// FieldCount returns the number of columns per record.
func (c *RecordCursor[T]) FieldCount() int { return c.fieldCount }

// Rows returns how many records the cursor has advanced onto.
func (c *RecordCursor[T]) Rows() int { return c.rows }

// Value returns column i of the current record.
func (c *RecordCursor[T]) Value(i int) (any, error) {
	if c.closed {
		return nil, ErrCursorClosed
	}
	if i < 0 || i >= c.fieldCount {
		return nil, newError(KindIndexOutOfRange, "cursor.value", "index %d outside [0, %d)", i, c.fieldCount).
			WithDetail("index", i)
	}
	if !c.has {
		return nil, ErrNoCurrentRecord
	}
	return c.value(c.current, i), nil
}

// IsNull reports whether column i of the current record is null.
func (c *RecordCursor[T]) IsNull(i int) (bool, error) {
	v, err := c.Value(i)
	if err != nil {
		return false, err
	}
	return isNull(v), nil
}

// Close releases the underlying sequence. It is idempotent.
func (c *RecordCursor[T]) Close() error {
	if c.closed {
		return nil
	}
	var zero T
	c.closed, c.has, c.current = true, false, zero
	c.stop()
	return nil
}

// isNull treats nil, typed nil references and driver.Valuers yielding nil
// (sql.NullString{} and friends) as null.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	if valuer, ok := v.(driver.Valuer); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return true
		}
		dv, err := valuer.Value()
		return err == nil && dv == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
