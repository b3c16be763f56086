package etl

import (
	"context"
	"fmt"
	"iter"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/fastinsert/pkg/models"
)

// Finder is the part of *mongo.Collection a MongoSource reads through.
type Finder interface {
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// MongoSource reads every document of a collection, ordered by _id.
type MongoSource struct {
	coll        Finder
	transformer *Transformer
	batchSize   int32
	err         error
}

func NewMongoSource(coll Finder, schema *models.MappingSchema) *MongoSource {
	return &MongoSource{coll: coll, transformer: NewTransformer(schema), batchSize: cursorBatchSize(schema.BatchSize)}
}

// cursorBatchSize clamps n to the driver's int32 batch size; 0 leaves the
// server default.
func cursorBatchSize(n int) int32 {
	switch {
	case n <= 0:
		return 0
	case n > math.MaxInt32:
		return math.MaxInt32
	}
	return int32(n)
}

// Records implements Source.
func (m *MongoSource) Records(ctx context.Context) iter.Seq[models.Row] {
	return func(yield func(models.Row) bool) {
		findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
		if m.batchSize > 0 {
			findOpts.SetBatchSize(m.batchSize)
		}
		cursor, err := m.coll.Find(ctx, bson.D{}, findOpts)
		if err != nil {
			m.err = fmt.Errorf("find: %w", err)
			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc bson.M
			if err := cursor.Decode(&doc); err != nil {
				m.err = fmt.Errorf("decode: %w", err)
				return
			}
			row, err := m.transformer.Transform(fromBSON(doc))
			if err != nil {
				m.err = fmt.Errorf("document %v: %w", doc["_id"], err)
				return
			}
			if !yield(row) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			m.err = err
		}
	}
}

// Err implements Source.
func (m *MongoSource) Err() error { return m.err }

// fromBSON replaces driver types with the values the transformer expects.
func fromBSON(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch t := v.(type) {
		case primitive.ObjectID:
			out[k] = t.Hex()
		case primitive.DateTime:
			out[k] = t.Time().UTC()
		case primitive.Decimal128:
			out[k] = t.String()
		case primitive.Binary:
			out[k] = t.Data
		case primitive.Null, primitive.Undefined:
			out[k] = nil
		default:
			out[k] = v
		}
	}
	return out
}
