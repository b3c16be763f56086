package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	json "github.com/goccy/go-json"

	"github.com/BartekS5/fastinsert/pkg/models"
)

// JSONLSource decodes a stream of JSON objects, one record each. Objects
// may be separated by any whitespace, newline-delimited being the usual
// form.
type JSONLSource struct {
	r           io.Reader
	transformer *Transformer
	err         error
	records     int
}

func NewJSONLSource(r io.Reader, schema *models.MappingSchema) *JSONLSource {
	return &JSONLSource{r: r, transformer: NewTransformer(schema)}
}

// Records implements Source. Numbers are decoded as json.Number so integer
// columns keep their full precision.
func (s *JSONLSource) Records(ctx context.Context) iter.Seq[models.Row] {
	return func(yield func(models.Row) bool) {
		dec := json.NewDecoder(s.r)
		dec.UseNumber()
		for {
			if err := ctx.Err(); err != nil {
				s.err = err
				return
			}
			var doc map[string]any
			if err := dec.Decode(&doc); err != nil {
				if !errors.Is(err, io.EOF) {
					s.err = fmt.Errorf("record %d: %w", s.records+1, err)
				}
				return
			}
			s.records++
			row, err := s.transformer.Transform(doc)
			if err != nil {
				s.err = fmt.Errorf("record %d: %w", s.records, err)
				return
			}
			if !yield(row) {
				return
			}
		}
	}
}

// Err implements Source.
func (s *JSONLSource) Err() error { return s.err }

// Count returns the number of records decoded so far.
func (s *JSONLSource) Count() int { return s.records }
