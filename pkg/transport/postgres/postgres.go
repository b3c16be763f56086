// Package postgres streams cursors into PostgreSQL with COPY FROM STDIN
// through pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/transport"
)

// CopyFromer is implemented by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type CopyFromer interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Transport opens COPY sessions on a pgx connection or pool.
type Transport struct {
	db  CopyFromer
	log *zap.Logger
}

// New returns a transport over db. A single *pgx.Conn is not safe for
// concurrent copies; use a pool for concurrent writers.
func New(db CopyFromer, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{db: db, log: log.Named("postgres")}
}

// NewCopy implements bulk.Transport.
func (t *Transport) NewCopy() bulk.Copy {
	return &Copy{db: t.db, log: t.log}
}

// Copy is one COPY session; it issues one COPY statement per batch.
type Copy struct {
	transport.Settings

	db  CopyFromer
	log *zap.Logger
}

// WriteFromCursor implements bulk.Copy.
func (c *Copy) WriteFromCursor(ctx context.Context, cur bulk.Cursor) (int64, error) {
	if err := c.Validate(cur); err != nil {
		return 0, err
	}

	table := Identifier(c.Table)
	columns := c.Columns()
	src := &batchSource{ctx: ctx, cur: cur, ordinals: c.Ordinals()}

	var total int64
	for batch := 1; ; batch++ {
		if !src.begin(c.BatchSize) {
			return total, src.err
		}
		n, err := c.db.CopyFrom(ctx, table, columns, src)
		total += n
		if err != nil {
			return total, fmt.Errorf("batch %d: %w", batch, err)
		}
		c.log.Debug("batch committed", zap.String("table", c.Table), zap.Int("batch", batch), zap.Int64("rows", n))
		if src.exhausted {
			return total, nil
		}
	}
}

// Identifier splits a possibly schema-qualified table name.
func Identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

// batchSource exposes at most limit cursor rows per COPY as a
// pgx.CopyFromSource. begin peeks one record so an empty trailing COPY is
// never issued.
type batchSource struct {
	ctx      context.Context
	cur      bulk.Cursor
	ordinals []int

	limit     int
	served    int
	peeked    bool
	exhausted bool
	row       []any
	err       error
}

func (s *batchSource) begin(limit int) bool {
	s.limit, s.served = limit, 0
	if s.err != nil || s.exhausted {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}
	if !s.cur.Next() {
		s.exhausted = true
		s.err = s.ctx.Err()
		return false
	}
	s.peeked = true
	return true
}

// Next implements pgx.CopyFromSource.
func (s *batchSource) Next() bool {
	if s.err != nil || s.served >= s.limit {
		return false
	}
	if s.peeked {
		s.peeked = false
	} else {
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}
		if !s.cur.Next() {
			s.exhausted = true
			s.err = s.ctx.Err()
			return false
		}
	}
	row, err := transport.ReadRow(s.cur, s.ordinals)
	if err != nil {
		s.err = err
		return false
	}
	s.row = row
	s.served++
	return true
}

// Values implements pgx.CopyFromSource.
func (s *batchSource) Values() ([]any, error) { return s.row, nil }

// Err implements pgx.CopyFromSource.
func (s *batchSource) Err() error { return s.err }
