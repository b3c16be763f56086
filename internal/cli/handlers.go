package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BartekS5/fastinsert/internal/config"
	"github.com/BartekS5/fastinsert/internal/etl"
	"github.com/BartekS5/fastinsert/pkg/bulk"
	"github.com/BartekS5/fastinsert/pkg/database"
	"github.com/BartekS5/fastinsert/pkg/logger"
	"github.com/BartekS5/fastinsert/pkg/metrics"
	"github.com/BartekS5/fastinsert/pkg/models"
	mongotransport "github.com/BartekS5/fastinsert/pkg/transport/mongo"
	mssqltransport "github.com/BartekS5/fastinsert/pkg/transport/mssql"
	mysqltransport "github.com/BartekS5/fastinsert/pkg/transport/mysql"
	pgtransport "github.com/BartekS5/fastinsert/pkg/transport/postgres"
)

func runLoad(ctx context.Context, cfg *config.Config, opts *LoadOptions, target string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	schema, err := config.LoadMapping(opts.MappingFile)
	if err != nil {
		return err
	}
	writeCfg, err := etl.CompileSchema(schema, opts.BatchSize)
	if err != nil {
		return fmt.Errorf("invalid mapping '%s': %w", opts.MappingFile, err)
	}

	src, closeSrc, err := openSource(cfg, opts, schema)
	if err != nil {
		return err
	}
	defer closeSrc()

	var writer *bulk.Writer[models.Row]
	if !opts.DryRun {
		t, closeTransport, err := openTransport(cfg, target)
		if err != nil {
			return err
		}
		defer closeTransport()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if opts.MetricsAddr != "" {
			stop := serveMetrics(opts.MetricsAddr, reg)
			defer stop()
		}

		writer, err = bulk.NewWriter(t, writeCfg,
			bulk.WithLogger(logger.Get()),
			bulk.WithMetrics(metrics.NewCollector(reg)))
		if err != nil {
			return err
		}
	}

	fmt.Printf("Starting load of %s into %s (%s)...\n", schema.Entity, writeCfg.Table, target)
	res, err := etl.NewPipeline(src, writeCfg, writer, opts.DryRun).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Load finished: %d rows in %s (%.0f rows/sec).\n", res.Rows, res.Duration.Round(time.Millisecond), res.Rate())
	return nil
}

func openSource(cfg *config.Config, opts *LoadOptions, schema *models.MappingSchema) (etl.Source, func(), error) {
	switch {
	case opts.FromSQL != "":
		connString, err := cfg.ConnString(config.TargetMSSQL)
		if err != nil {
			return nil, nil, err
		}
		db, err := database.ConnectSQL(connString)
		if err != nil {
			return nil, nil, err
		}
		return etl.NewSQLSource(db, opts.FromSQL, schema), func() { db.Close() }, nil

	case opts.FromMongo != "":
		connString, err := cfg.ConnString(config.TargetMongo)
		if err != nil {
			return nil, nil, err
		}
		client, err := database.ConnectMongo(connString)
		if err != nil {
			return nil, nil, err
		}
		coll := client.Database(cfg.MongoDatabase).Collection(opts.FromMongo)
		return etl.NewMongoSource(coll, schema), func() { disconnect(client.Disconnect) }, nil

	case opts.Input == "-":
		return etl.NewJSONLSource(os.Stdin, schema), func() {}, nil

	case opts.Input != "":
		f, err := os.Open(opts.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open input file '%s': %w", opts.Input, err)
		}
		return etl.NewJSONLSource(f, schema), func() { f.Close() }, nil
	}
	return nil, nil, errors.New("no input: set --input, --from-sql or --from-mongo")
}

func openTransport(cfg *config.Config, target string) (bulk.Transport, func(), error) {
	connString, err := cfg.ConnString(target)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Get()

	switch target {
	case config.TargetMSSQL:
		db, err := database.ConnectSQL(connString)
		if err != nil {
			return nil, nil, err
		}
		return mssqltransport.New(db, log), func() { db.Close() }, nil

	case config.TargetPostgres:
		pool, err := database.ConnectPostgres(connString)
		if err != nil {
			return nil, nil, err
		}
		return pgtransport.New(pool, log), pool.Close, nil

	case config.TargetMySQL:
		db, err := database.ConnectMySQL(connString)
		if err != nil {
			return nil, nil, err
		}
		return mysqltransport.New(db, log), func() { db.Close() }, nil

	case config.TargetMongo:
		client, err := database.ConnectMongo(connString)
		if err != nil {
			return nil, nil, err
		}
		return mongotransport.New(client.Database(cfg.MongoDatabase), log), func() { disconnect(client.Disconnect) }, nil
	}
	return nil, nil, fmt.Errorf("unknown target %q", target)
}

func disconnect(fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warnf("disconnect: %v", err)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logger.Infof("Serving metrics on %s/metrics", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
