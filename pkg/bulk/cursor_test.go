package bulk

import (
	"database/sql"
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	A int
	B *string
}

func pairCursor(t *testing.T, records ...pair) *RecordCursor[pair] {
	t.Helper()
	cur, err := NewRecordCursor(2, slices.Values(records), func(p pair, i int) any {
		if i == 0 {
			return p.A
		}
		return p.B
	})
	require.NoError(t, err)
	return cur
}

func TestNewRecordCursorRejectsInvalidInput(t *testing.T) {
	value := func(int, int) any { return nil }

	_, err := NewRecordCursor(0, slices.Values([]int{1}), value)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewRecordCursor(-3, slices.Values([]int{1}), value)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewRecordCursor[int](1, nil, value)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewRecordCursor(1, slices.Values([]int{1}), nil)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestRecordCursorIteratesInOrder(t *testing.T) {
	name := "x"
	cur := pairCursor(t, pair{A: 1}, pair{A: 2, B: &name}, pair{A: 3})
	defer cur.Close()

	assert.Equal(t, 2, cur.FieldCount())

	var got []any
	for cur.Next() {
		v, err := cur.Value(0)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []any{1, 2, 3}, got)
	assert.Equal(t, 3, cur.Rows())
}

func TestRecordCursorStaysExhausted(t *testing.T) {
	cur := pairCursor(t, pair{A: 1})
	defer cur.Close()

	require.True(t, cur.Next())
	require.False(t, cur.Next())
	for range 3 {
		assert.False(t, cur.Next())
	}

	_, err := cur.Value(0)
	assert.ErrorIs(t, err, ErrNoCurrentRecord)
}

func TestRecordCursorEmptySequence(t *testing.T) {
	cur := pairCursor(t)
	defer cur.Close()

	assert.False(t, cur.Next())
	assert.Equal(t, 0, cur.Rows())
}

func TestRecordCursorValueBeforeNext(t *testing.T) {
	cur := pairCursor(t, pair{A: 1})
	defer cur.Close()

	_, err := cur.Value(0)
	assert.ErrorIs(t, err, ErrNoCurrentRecord)
	assert.True(t, IsKind(err, KindNoCurrentRecord))

	_, err = cur.IsNull(1)
	assert.ErrorIs(t, err, ErrNoCurrentRecord)
}

func TestRecordCursorIndexOutOfRange(t *testing.T) {
	cur := pairCursor(t, pair{A: 1})
	defer cur.Close()
	require.True(t, cur.Next())

	for _, i := range []int{-1, 2, 100} {
		_, err := cur.Value(i)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)

		var be *Error
		require.True(t, errors.As(err, &be))
		assert.Equal(t, i, be.Details["index"])

		_, err = cur.IsNull(i)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	}

	v, err := cur.Value(0)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRecordCursorIsNull(t *testing.T) {
	name := "x"
	cur := pairCursor(t, pair{A: 0}, pair{A: 1, B: &name})
	defer cur.Close()

	require.True(t, cur.Next())
	null, err := cur.IsNull(1)
	require.NoError(t, err)
	assert.True(t, null, "nil *string is null")
	null, err = cur.IsNull(0)
	require.NoError(t, err)
	assert.False(t, null, "zero int is not null")

	require.True(t, cur.Next())
	null, err = cur.IsNull(1)
	require.NoError(t, err)
	assert.False(t, null)
}

func TestIsNull(t *testing.T) {
	var nilSlice []byte
	var nilMap map[string]int
	var nilValuer *sql.NullString

	assert.True(t, isNull(nil))
	assert.True(t, isNull(nilSlice))
	assert.True(t, isNull(nilMap))
	assert.True(t, isNull(nilValuer))
	assert.True(t, isNull(sql.NullInt64{}))
	assert.False(t, isNull(sql.NullInt64{Int64: 0, Valid: true}))
	assert.False(t, isNull(""))
	assert.False(t, isNull(0))
	assert.False(t, isNull([]byte{}))
}

func TestRecordCursorClose(t *testing.T) {
	cur := pairCursor(t, pair{A: 1}, pair{A: 2})
	require.True(t, cur.Next())

	require.NoError(t, cur.Close())
	require.NoError(t, cur.Close(), "second close is a no-op")

	assert.False(t, cur.Next())
	_, err := cur.Value(0)
	assert.ErrorIs(t, err, ErrCursorClosed)
	_, err = cur.IsNull(0)
	assert.ErrorIs(t, err, ErrCursorClosed)
	_, err = cur.Value(5)
	assert.ErrorIs(t, err, ErrCursorClosed)
}

func TestRecordCursorCloseStopsSequence(t *testing.T) {
	stopped := false
	seq := func(yield func(int) bool) {
		defer func() { stopped = true }()
		for i := 0; ; i++ {
			if !yield(i) {
				return
			}
		}
	}

	cur, err := NewRecordCursor(1, iter.Seq[int](seq), func(v int, _ int) any { return v })
	require.NoError(t, err)
	require.True(t, cur.Next())
	require.True(t, cur.Next())

	require.NoError(t, cur.Close())
	assert.True(t, stopped)
}

func TestRecordCursorPullsSequenceOnce(t *testing.T) {
	pulls := 0
	seq := func(yield func(int) bool) {
		for i := range 3 {
			pulls++
			if !yield(i) {
				return
			}
		}
	}

	cur, err := NewRecordCursor(1, iter.Seq[int](seq), func(v int, _ int) any { return v })
	require.NoError(t, err)
	defer cur.Close()

	for cur.Next() {
		_, _ = cur.Value(0)
		_, _ = cur.Value(0)
	}
	assert.False(t, cur.Next())
	assert.Equal(t, 3, pulls)
}
