package etl

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/logger"
	"github.com/BartekS5/fastinsert/pkg/models"
)

// Pipeline loads every record of Source through Writer in one pass. A dry
// run only decodes the source and needs no Writer.
type Pipeline struct {
	Source Source
	Config *bulk.WriteConfig[models.Row]
	Writer *bulk.Writer[models.Row]
	DryRun bool
}

// Result summarizes a run.
type Result struct {
	Rows     int64
	Duration time.Duration
}

// Rate returns rows per second.
func (r Result) Rate() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Rows) / r.Duration.Seconds()
}

func NewPipeline(src Source, cfg *bulk.WriteConfig[models.Row], w *bulk.Writer[models.Row], dryRun bool) *Pipeline {
	return &Pipeline{Source: src, Config: cfg, Writer: w, DryRun: dryRun}
}

// Run streams the source into the writer. A source that fails mid-way
// cancels the write so the batch in progress is not committed; batches
// committed before the failure stay committed.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	cfg := p.Config
	if cfg == nil && p.Writer != nil {
		cfg = p.Writer.Config()
	}
	if cfg == nil {
		return Result{}, errors.New("pipeline has no write configuration")
	}
	if !p.DryRun && p.Writer == nil {
		return Result{}, errors.New("pipeline has no writer")
	}
	logger.Infof("Starting pipeline. Table: %s, Batch Size: %d, DryRun: %v", cfg.Table, cfg.BatchSize, p.DryRun)
	start := time.Now()

	if p.DryRun {
		var count int64
		for range p.Source.Records(ctx) {
			count++
		}
		res := Result{Rows: count, Duration: time.Since(start)}
		if err := p.Source.Err(); err != nil {
			return res, fmt.Errorf("reading input: %w", err)
		}
		logger.Infof("[DRY RUN] Would load %d records into %s", count, cfg.Table)
		return res, nil
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	n, err := p.Writer.Write(ctx, p.records(ctx, cancel))
	res := Result{Rows: n, Duration: time.Since(start)}
	if srcErr := p.Source.Err(); srcErr != nil {
		return res, fmt.Errorf("reading input after %d rows: %w", n, srcErr)
	}
	if err != nil {
		return res, fmt.Errorf("loading into %s failed after %d rows: %w", cfg.Table, n, err)
	}

	logger.Infof("Pipeline finished. Total: %d. Rate: %.2f rows/sec", res.Rows, res.Rate())
	return res, nil
}

func (p *Pipeline) records(ctx context.Context, cancel context.CancelCauseFunc) iter.Seq[models.Row] {
	return func(yield func(models.Row) bool) {
		for row := range p.Source.Records(ctx) {
			if !yield(row) {
				return
			}
		}
		if err := p.Source.Err(); err != nil {
			cancel(err)
		}
	}
}
