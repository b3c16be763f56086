package bulk

import (
	"context"
	"iter"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BartekS5/fastinsert/pkg/logger"
	"github.com/BartekS5/fastinsert/pkg/metrics"
)

// Transport opens bulk-copy sessions against one destination.
type Transport interface {
	NewCopy() Copy
}

// Copy is a single bulk-copy session. The writer configures it and then
// hands it the cursor; the copy decides batching, framing and commits.
type Copy interface {
	SetDestinationTable(name string)
	AddColumnMapping(index int, column string)
	SetBatchSize(n int)
	// WriteFromCursor pulls rows until the cursor is exhausted and returns
	// the number of rows the destination accepted.
	WriteFromCursor(ctx context.Context, cur Cursor) (int64, error)
}

// Writer streams sequences of T into the table described by its config.
// A Writer holds no per-call state and may be used concurrently, provided
// the transport supports it.
type Writer[T any] struct {
	transport Transport
	cfg       *WriteConfig[T]
	log       *zap.Logger
	metrics   *metrics.Collector
	tracer    trace.Tracer
}

// Option configures a Writer.
type Option func(*options)

type options struct {
	log     *zap.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// WithLogger sets the writer's logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithMetrics records every write on c.
func WithMetrics(c *metrics.Collector) Option { return func(o *options) { o.metrics = c } }

// WithTracer sets the tracer used for write spans.
func WithTracer(t trace.Tracer) Option { return func(o *options) { o.tracer = t } }

const tracerName = "github.com/BartekS5/fastinsert/pkg/bulk"

// NewWriter binds a transport to a compiled configuration.
func NewWriter[T any](t Transport, cfg *WriteConfig[T], opts ...Option) (*Writer[T], error) {
	if t == nil {
		return nil, invalidConfig("writer.new", "transport is nil")
	}
	if cfg == nil {
		return nil, invalidConfig("writer.new", "write configuration is nil")
	}
	if cfg.BatchSize < 1 || len(cfg.Mapping) == 0 {
		return nil, invalidConfig("writer.new", "write configuration for %q is not compiled", cfg.Table)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	return &Writer[T]{
		transport: t,
		cfg:       cfg,
		log:       o.log.With(zap.String("table", cfg.Table)),
		metrics:   o.metrics,
		tracer:    o.tracer,
	}, nil
}

// Config returns the writer's compiled configuration.
func (w *Writer[T]) Config() *WriteConfig[T] { return w.cfg }

// Write streams records to the destination and returns the number of rows
// the transport reports as written. records is traversed at most once.
//
// Cancellation before the transport starts aborts without sending rows.
// Failures are returned as is; whatever the transport committed before
// failing stays committed.
func (w *Writer[T]) Write(ctx context.Context, records iter.Seq[T]) (n int64, err error) {
	const op = "write"

	ctx, span := w.tracer.Start(ctx, "bulk.Write", trace.WithAttributes(
		attribute.String("bulk.table", w.cfg.Table),
		attribute.Int("bulk.batch_size", w.cfg.BatchSize),
		attribute.Int("bulk.columns", len(w.cfg.Mapping)),
	))
	start := time.Now()
	done := w.metrics.StartWrite(w.cfg.Table)
	defer func() {
		elapsed := time.Since(start)
		done(n, elapsed, err)
		span.SetAttributes(attribute.Int64("bulk.rows", n))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			w.log.Error("bulk write failed", zap.Int64("rows", n), zap.Duration("elapsed", elapsed), zap.Error(err))
		} else {
			w.log.Debug("bulk write finished", zap.Int64("rows", n), zap.Duration("elapsed", elapsed))
		}
		span.End()
	}()

	if err := ctx.Err(); err != nil {
		return 0, wrapTransport(op, err)
	}

	cur, err := w.cfg.Cursor(records)
	if err != nil {
		return 0, err
	}
	defer cur.Close()

	cp := w.transport.NewCopy()
	cp.SetDestinationTable(w.cfg.Table)
	for _, m := range w.cfg.Mapping {
		cp.AddColumnMapping(m.Index, m.Column)
	}
	cp.SetBatchSize(w.cfg.BatchSize)

	w.log.Debug("bulk write started", zap.Int("batch_size", w.cfg.BatchSize), zap.Int("columns", len(w.cfg.Mapping)))

	n, err = cp.WriteFromCursor(ctx, cur)
	if err != nil {
		return n, wrapTransport(op, err)
	}
	return n, nil
}
