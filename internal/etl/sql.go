package etl

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/BartekS5/fastinsert/pkg/models"
)

// Queryer is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLSource reads the rows of a query. Result columns are matched to
// mapping fields by name.
type SQLSource struct {
	db          Queryer
	query       string
	transformer *Transformer
	err         error
}

func NewSQLSource(db Queryer, query string, schema *models.MappingSchema) *SQLSource {
	return &SQLSource{db: db, query: query, transformer: NewTransformer(schema)}
}

// Records implements Source.
func (s *SQLSource) Records(ctx context.Context) iter.Seq[models.Row] {
	return func(yield func(models.Row) bool) {
		rows, err := s.db.QueryContext(ctx, s.query)
		if err != nil {
			s.err = fmt.Errorf("query: %w", err)
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			s.err = err
			return
		}
		values := make([]any, len(cols))
		pointers := make([]any, len(cols))
		for i := range values {
			pointers[i] = &values[i]
		}

		for rows.Next() {
			if err := rows.Scan(pointers...); err != nil {
				s.err = fmt.Errorf("scan: %w", err)
				return
			}
			doc := make(map[string]any, len(cols))
			for i, col := range cols {
				if b, ok := values[i].([]byte); ok {
					doc[col] = string(b)
				} else {
					doc[col] = values[i]
				}
			}
			row, err := s.transformer.Transform(doc)
			if err != nil {
				s.err = err
				return
			}
			if !yield(row) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			s.err = err
		}
	}
}

// Err implements Source.
func (s *SQLSource) Err() error { return s.err }
