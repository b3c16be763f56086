// Package transport holds what the concrete bulk transports share: the
// copy settings a writer configures and the batch pull loop over a cursor.
//
// Each subpackage (mssql, postgres, mysql, mongo) implements bulk.Transport
// for one destination and commits one unit of work per batch.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/BartekS5/fastinsert/pkg/bulk"
)

// ColumnMapping maps cursor ordinal Index to destination Column.
type ColumnMapping struct {
	Index  int
	Column string
}

// Settings records the configuration of one copy session. Transports embed
// it to satisfy the setter half of bulk.Copy.
type Settings struct {
	Table     string
	Mappings  []ColumnMapping
	BatchSize int
}

// SetDestinationTable sets the destination table.
func (s *Settings) SetDestinationTable(name string) { s.Table = name }

// AddColumnMapping appends a mapping; destination column order follows
// registration order.
func (s *Settings) AddColumnMapping(index int, column string) {
	s.Mappings = append(s.Mappings, ColumnMapping{Index: index, Column: column})
}

// SetBatchSize sets the number of rows committed per batch.
func (s *Settings) SetBatchSize(n int) { s.BatchSize = n }

// Columns returns destination columns in registration order.
func (s *Settings) Columns() []string {
	cols := make([]string, len(s.Mappings))
	for i, m := range s.Mappings {
		cols[i] = m.Column
	}
	return cols
}

// Ordinals returns cursor ordinals in registration order.
func (s *Settings) Ordinals() []int {
	idx := make([]int, len(s.Mappings))
	for i, m := range s.Mappings {
		idx[i] = m.Index
	}
	return idx
}

// ErrNotConfigured is returned when a copy is started without a table,
// mappings or a positive batch size.
var ErrNotConfigured = errors.New("transport: copy is not configured")

// Validate checks the settings against the cursor about to be streamed.
func (s *Settings) Validate(cur bulk.Cursor) error {
	switch {
	case s.Table == "":
		return fmt.Errorf("%w: destination table is empty", ErrNotConfigured)
	case len(s.Mappings) == 0:
		return fmt.Errorf("%w: no column mappings", ErrNotConfigured)
	case s.BatchSize < 1:
		return fmt.Errorf("%w: batch size %d", ErrNotConfigured, s.BatchSize)
	}
	for _, m := range s.Mappings {
		if m.Index < 0 || m.Index >= cur.FieldCount() {
			return fmt.Errorf("%w: mapping %d -> %q outside cursor field count %d",
				ErrNotConfigured, m.Index, m.Column, cur.FieldCount())
		}
	}
	return nil
}

// ReadRow reads the current record's values at ordinals into a new slice.
func ReadRow(cur bulk.Cursor, ordinals []int) ([]any, error) {
	row := make([]any, len(ordinals))
	for j, i := range ordinals {
		v, err := cur.Value(i)
		if err != nil {
			return nil, err
		}
		row[j] = v
	}
	return row, nil
}

// ReadBatch advances cur up to limit times and calls emit with each row.
// It returns the number of rows emitted and whether the cursor may hold
// more rows (false once it reported exhaustion). ctx is checked around
// every advance, so a cancelled batch is never reported as complete.
func ReadBatch(ctx context.Context, cur bulk.Cursor, ordinals []int, limit int, emit func(row []any) error) (n int, more bool, err error) {
	for n < limit {
		if err := ctx.Err(); err != nil {
			return n, false, err
		}
		if !cur.Next() {
			// A producer that failed may have cancelled ctx before ending the sequence.
			return n, false, ctx.Err()
		}
		row, err := ReadRow(cur, ordinals)
		if err != nil {
			return n, false, err
		}
		if err := emit(row); err != nil {
			return n, false, err
		}
		n++
	}
	return n, true, nil
}
