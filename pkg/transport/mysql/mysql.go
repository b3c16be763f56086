// Package mysql streams cursors into MySQL with LOAD DATA LOCAL INFILE,
// feeding each batch through a registered go-sql-driver reader handler.
//
// The server must allow local_infile.
package mysql

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/transport"
)

// Execer is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ErrRowsSkipped is returned when the server loaded fewer rows than were
// sent. LOAD DATA LOCAL turns duplicate keys and bad values into warnings
// and drops the offending rows.
var ErrRowsSkipped = errors.New("mysql: rows skipped by LOAD DATA")

// Transport opens LOAD DATA sessions on a MySQL handle.
type Transport struct {
	db  Execer
	log *zap.Logger
}

// New returns a transport over db, which must use the "mysql" driver.
func New(db Execer, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{db: db, log: log.Named("mysql")}
}

// NewCopy implements bulk.Transport.
func (t *Transport) NewCopy() bulk.Copy {
	return &Copy{db: t.db, log: t.log}
}

// Copy is one load session; it runs one LOAD DATA statement per batch.
type Copy struct {
	transport.Settings

	db  Execer
	log *zap.Logger
}

// WriteFromCursor implements bulk.Copy.
func (c *Copy) WriteFromCursor(ctx context.Context, cur bulk.Cursor) (int64, error) {
	if err := c.Validate(cur); err != nil {
		return 0, err
	}

	ordinals := c.Ordinals()
	var buf bytes.Buffer

	var total int64
	for batch := 1; ; batch++ {
		buf.Reset()
		n, more, err := transport.ReadBatch(ctx, cur, ordinals, c.BatchSize, func(row []any) error {
			return EncodeRow(&buf, row)
		})
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}

		affected, err := c.load(ctx, buf.Bytes())
		total += affected
		if err != nil {
			return total, fmt.Errorf("batch %d: %w", batch, err)
		}
		if affected != int64(n) {
			return total, fmt.Errorf("batch %d: %w: %d of %d rows not loaded", batch, ErrRowsSkipped, int64(n)-affected, n)
		}
		c.log.Debug("batch loaded", zap.String("table", c.Table), zap.Int("batch", batch), zap.Int("rows", n))
		if !more {
			return total, nil
		}
	}
}

func (c *Copy) load(ctx context.Context, data []byte) (int64, error) {
	name := "fastinsert-" + uuid.NewString()
	mysql.RegisterReaderHandler(name, func() io.Reader { return bytes.NewReader(data) })
	defer mysql.DeregisterReaderHandler(name)

	res, err := c.db.ExecContext(ctx, LoadStatement(name, c.Table, c.Columns()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// LoadStatement builds the LOAD DATA statement reading from reader handler
// name into table.
func LoadStatement(name, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = QuoteIdentifier(col)
	}
	return "LOAD DATA LOCAL INFILE 'Reader::" + name + "' INTO TABLE " + QuoteIdentifier(table) +
		` CHARACTER SET utf8mb4 FIELDS TERMINATED BY '\t' ESCAPED BY '\\' LINES TERMINATED BY '\n' (` +
		strings.Join(quoted, ", ") + ")"
}

// QuoteIdentifier backtick-quotes a possibly schema-qualified name.
func QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

// EncodeRow writes row as one tab-separated line. NULL is \N.
func EncodeRow(w *bytes.Buffer, row []any) error {
	for i, v := range row {
		if i > 0 {
			w.WriteByte('\t')
		}
		if err := encodeValue(w, v); err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
	}
	w.WriteByte('\n')
	return nil
}

const timeLayout = "2006-01-02 15:04:05.999999"

func encodeValue(w *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		w.WriteString(`\N`)
	case string:
		escape(w, x)
	case []byte:
		if x == nil {
			w.WriteString(`\N`)
			return nil
		}
		escape(w, string(x))
	case bool:
		if x {
			w.WriteByte('1')
		} else {
			w.WriteByte('0')
		}
	case int:
		w.WriteString(strconv.FormatInt(int64(x), 10))
	case int8:
		w.WriteString(strconv.FormatInt(int64(x), 10))
	case int16:
		w.WriteString(strconv.FormatInt(int64(x), 10))
	case int32:
		w.WriteString(strconv.FormatInt(int64(x), 10))
	case int64:
		w.WriteString(strconv.FormatInt(x, 10))
	case uint:
		w.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint8:
		w.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint16:
		w.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint32:
		w.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint64:
		w.WriteString(strconv.FormatUint(x, 10))
	case float32:
		w.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	case float64:
		w.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	case time.Time:
		w.WriteString(x.Format(timeLayout))
	case time.Duration:
		w.WriteString(formatDuration(x))
	case uuid.UUID:
		w.WriteString(x.String())
	case driver.Valuer:
		rv := reflect.ValueOf(x)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			w.WriteString(`\N`)
			return nil
		}
		dv, err := x.Value()
		if err != nil {
			return err
		}
		return encodeValue(w, dv)
	case fmt.Stringer:
		escape(w, x.String())
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				w.WriteString(`\N`)
				return nil
			}
			return encodeValue(w, rv.Elem().Interface())
		}
		if rv.Kind() == reflect.Array && rv.Len() == 16 && rv.Type().Elem().Kind() == reflect.Uint8 {
			var id uuid.UUID
			reflect.Copy(reflect.ValueOf(id[:]), rv)
			w.WriteString(id.String())
			return nil
		}
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// formatDuration renders d as a MySQL TIME literal.
func formatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	us := d / time.Microsecond
	if us == 0 {
		return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, s)
	}
	return fmt.Sprintf("%s%02d:%02d:%02d.%06d", sign, h, m, s, us)
}

func escape(w *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			w.WriteString(`\\`)
		case '\t':
			w.WriteString(`\t`)
		case '\n':
			w.WriteString(`\n`)
		case '\r':
			w.WriteString(`\r`)
		case 0:
			w.WriteString(`\0`)
		default:
			w.WriteByte(c)
		}
	}
}
