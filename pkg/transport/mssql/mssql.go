// Package mssql streams cursors into SQL Server with the TDS bulk-load
// protocol (the same wire path as SqlBulkCopy / bcp).
package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	mssql "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/transport"
)

// Options mirror the bulk-load hints sent with every batch.
type Options struct {
	// Tablock takes a bulk-update table lock for each batch. On by default.
	Tablock          bool
	CheckConstraints bool
	FireTriggers     bool
	KeepNulls        bool
}

// Transport opens bulk copies on a SQL Server connection pool.
type Transport struct {
	db   *sql.DB
	opts Options
	log  *zap.Logger
}

// New returns a transport over db, which must use the "sqlserver" driver.
func New(db *sql.DB, log *zap.Logger) *Transport {
	return NewWithOptions(db, Options{Tablock: true}, log)
}

// NewWithOptions is New with explicit bulk options.
func NewWithOptions(db *sql.DB, opts Options, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{db: db, opts: opts, log: log.Named("mssql")}
}

// NewCopy implements bulk.Transport.
func (t *Transport) NewCopy() bulk.Copy {
	return &Copy{db: t.db, opts: t.opts, log: t.log}
}

// Copy is one bulk copy session.
type Copy struct {
	transport.Settings

	db   *sql.DB
	opts Options
	log  *zap.Logger
}

// WriteFromCursor pins one pooled connection and sends one bulk load per
// batch. Each batch commits on its own; rows of earlier batches remain if a
// later batch fails.
func (c *Copy) WriteFromCursor(ctx context.Context, cur bulk.Cursor) (int64, error) {
	if err := c.Validate(cur); err != nil {
		return 0, err
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire SQL Server connection: %w", err)
	}
	defer conn.Close()

	var total int64
	err = conn.Raw(func(dc any) error {
		mc, ok := dc.(*mssql.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T, want *mssql.Conn", dc)
		}
		n, err := c.stream(ctx, mc, cur)
		total = n
		return err
	})
	return total, err
}

func (c *Copy) stream(ctx context.Context, mc *mssql.Conn, cur bulk.Cursor) (int64, error) {
	columns := c.Columns()
	ordinals := c.Ordinals()

	var total int64
	for batch := 1; ; batch++ {
		var b *mssql.Bulk
		n, more, err := transport.ReadBatch(ctx, cur, ordinals, c.BatchSize, func(row []any) error {
			if b == nil {
				b = mc.CreateBulkContext(ctx, c.Table, columns)
				b.Options = mssql.BulkOptions{
					Tablock:          c.opts.Tablock,
					CheckConstraints: c.opts.CheckConstraints,
					FireTriggers:     c.opts.FireTriggers,
					KeepNulls:        c.opts.KeepNulls,
					RowsPerBatch:     c.BatchSize,
				}
			}
			if err := normalizeRow(row); err != nil {
				return err
			}
			return b.AddRow(row)
		})
		if err != nil {
			if b != nil {
				// A bulk load stream was left open; the connection cannot be reused.
				return total, errors.Join(fmt.Errorf("batch %d: %w", batch, err), driver.ErrBadConn)
			}
			return total, err
		}
		if b == nil {
			return total, nil
		}

		affected, err := b.Done()
		total += affected
		if err != nil {
			return total, fmt.Errorf("batch %d: %w", batch, err)
		}
		c.log.Debug("batch committed", zap.String("table", c.Table), zap.Int("batch", batch), zap.Int("rows", n))
		if !more {
			return total, nil
		}
	}
}

var timeOfDayZero = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)

// normalizeRow converts values the bulk encoder does not accept directly.
func normalizeRow(row []any) error {
	for i, v := range row {
		nv, err := normalizeValue(v)
		if err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
		row[i] = nv
	}
	return nil
}

func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case mssql.UniqueIdentifier:
		return x.Value()
	case time.Duration:
		return timeOfDayZero.Add(x), nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Len() == 16 && rv.Type().Elem().Kind() == reflect.Uint8 {
		// uuid.UUID and similar 16-byte identifiers
		var id mssql.UniqueIdentifier
		reflect.Copy(reflect.ValueOf(id[:]), rv)
		return id.Value()
	}
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return nil, err
		}
		return normalizeValue(dv)
	}
	if rv.Kind() == reflect.Pointer {
		return normalizeValue(rv.Elem().Interface())
	}
	return v, nil
}

func uintToInt64(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("unsigned value %d overflows bigint", u)
	}
	return int64(u), nil
}
