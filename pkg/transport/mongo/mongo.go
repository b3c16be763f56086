// Package mongo streams cursors into a MongoDB collection with ordered
// InsertMany batches. The destination table name is the collection name.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/transport"
)

// Inserter is the part of *mongo.Collection the transport uses.
type Inserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// CollectionFunc resolves a destination name to a collection.
type CollectionFunc func(name string) Inserter

// Transport opens insert sessions on one database.
type Transport struct {
	collection CollectionFunc
	log        *zap.Logger
}

// New returns a transport writing into db.
func New(db *mongo.Database, log *zap.Logger) *Transport {
	return NewWithCollections(func(name string) Inserter { return db.Collection(name) }, log)
}

// NewWithCollections returns a transport resolving collections with fn.
func NewWithCollections(fn CollectionFunc, log *zap.Logger) *Transport {
	if log == nil {
		log = zap.NewNop()
	}
	return &Transport{collection: fn, log: log.Named("mongo")}
}

// NewCopy implements bulk.Transport.
func (t *Transport) NewCopy() bulk.Copy {
	return &Copy{collection: t.collection, log: t.log}
}

// Copy is one insert session.
type Copy struct {
	transport.Settings

	collection CollectionFunc
	log        *zap.Logger
}

// WriteFromCursor inserts one ordered InsertMany per batch. On a write
// error the documents before the failing one stay inserted.
func (c *Copy) WriteFromCursor(ctx context.Context, cur bulk.Cursor) (int64, error) {
	if err := c.Validate(cur); err != nil {
		return 0, err
	}

	coll := c.collection(c.Table)
	columns := c.Columns()
	ordinals := c.Ordinals()
	docs := make([]interface{}, 0, c.BatchSize)
	opts := options.InsertMany().SetOrdered(true)

	var total int64
	for batch := 1; ; batch++ {
		docs = docs[:0]
		_, more, err := transport.ReadBatch(ctx, cur, ordinals, c.BatchSize, func(row []any) error {
			docs = append(docs, document(columns, row))
			return nil
		})
		if err != nil {
			return total, err
		}
		if len(docs) == 0 {
			return total, nil
		}

		res, err := coll.InsertMany(ctx, docs, opts)
		if err != nil {
			total += insertedBeforeFailure(err)
			return total, fmt.Errorf("batch %d: %w", batch, err)
		}
		total += int64(len(res.InsertedIDs))
		c.log.Debug("batch inserted", zap.String("collection", c.Table), zap.Int("batch", batch), zap.Int("documents", len(docs)))
		if !more {
			return total, nil
		}
	}
}

func document(columns []string, row []any) bson.D {
	doc := make(bson.D, len(columns))
	for i, col := range columns {
		doc[i] = bson.E{Key: col, Value: bsonValue(row[i])}
	}
	return doc
}

const binaryUUID byte = 0x04

// bsonValue stores 16-byte identifiers as UUID binaries instead of arrays.
func bsonValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Len() == 16 && rv.Type().Elem().Kind() == reflect.Uint8 {
		data := make([]byte, 16)
		reflect.Copy(reflect.ValueOf(data), rv)
		return primitive.Binary{Subtype: binaryUUID, Data: data}
	}
	return v
}

// insertedBeforeFailure counts the documents an ordered insert committed
// before its first write error.
func insertedBeforeFailure(err error) int64 {
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
		return int64(bwe.WriteErrors[0].Index)
	}
	return 0
}
