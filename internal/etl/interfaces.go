// Package etl feeds records from an input into a bulk writer: it decodes
// source documents, converts them to the declared field types and hands
// the resulting rows to the writer as one pass.
package etl

import (
	"context"
	"iter"

	"github.com/BartekS5/fastinsert/pkg/models"
)

// Source produces the rows of one load. Records may be ranged over once;
// Err reports the error that ended the sequence early, if any.
type Source interface {
	Records(ctx context.Context) iter.Seq[models.Row]
	Err() error
}
