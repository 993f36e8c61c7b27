package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-pricer/internal/batch"
	"github.com/xenking/order-pricer/internal/domain/discount"
	"github.com/xenking/order-pricer/internal/domain/order"
	"github.com/xenking/order-pricer/internal/domain/pricing"
	"github.com/xenking/order-pricer/internal/report"
	"github.com/xenking/order-pricer/internal/repository"
	"github.com/xenking/order-pricer/internal/source"
)

// Run creates all dependencies, prices every order of the input file, and
// prints the batch summary. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	_, err := run(ctx, lg, cfg, os.Stdout, m.TracerProvider(), m.MeterProvider())
	return err
}

func run(
	ctx context.Context,
	lg *zap.Logger,
	cfg *Config,
	stdout io.Writer,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (_ batch.Summary, rerr error) {
	ctx = zctx.Base(ctx, lg)
	lg.Info("Initializing", zap.String("input", cfg.Input))

	var sinks, reporters []batch.Sink

	// JSON Lines report.
	if cfg.Report != "" {
		w, err := report.Create(cfg.Report)
		if err != nil {
			return batch.Summary{}, errors.Wrap(err, "create report")
		}
		defer func() {
			if err := w.Close(); err != nil && rerr == nil {
				rerr = errors.Wrap(err, "close report")
			}
		}()
		reporters = append(reporters, w)
	}

	// PostgreSQL ledger + migrations.
	var ledger *repository.LedgerRepository
	if cfg.DatabaseURL != "" {
		pool, err := repository.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return batch.Summary{}, errors.Wrap(err, "connect ledger")
		}
		defer pool.Close()

		if err := repository.Migrate(ctx, pool); err != nil {
			return batch.Summary{}, errors.Wrap(err, "run migrations")
		}
		ledger = repository.NewLedgerRepository(pool, uuid.New())
		sinks = append(sinks, ledger)
		lg.Info("Recording to ledger", zap.Stringer("run_id", ledger.RunID()))
	}

	// Domain services.
	calc := discount.NewCalculator(discount.DefaultConfig(), discount.NewHistory())
	pipeline := pricing.NewPipeline(calc, pricing.DefaultRates())

	runner, err := batch.NewRunner(pipeline, batch.Config{
		Sinks:     sinks,
		Reporters: reporters,
		Dedup: batch.DedupConfig{
			Capacity: cfg.Dedup.Capacity,
			FPR:      cfg.Dedup.FPR,
		},
		TracerProvider: tp,
		MeterProvider:  mp,
	})
	if err != nil {
		return batch.Summary{}, errors.Wrap(err, "create runner")
	}

	summary, err := process(ctx, runner, cfg)
	if err != nil {
		return summary, err
	}

	lg.Info("Batch complete",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	if _, err := fmt.Fprintf(stdout,
		"Processed %d orders: %d succeeded, %d failed\n",
		summary.Total, summary.Succeeded, summary.Failed,
	); err != nil {
		return summary, errors.Wrap(err, "print summary")
	}

	if ledger != nil {
		counts, err := ledger.CountByStatus(ctx)
		if err != nil {
			return summary, errors.Wrap(err, "count ledger")
		}
		lg.Info("Ledger stored",
			zap.Stringer("run_id", ledger.RunID()),
			zap.Int("processed", counts["processed"]),
			zap.Int("skipped", counts["skipped"]),
		)
	}
	return summary, nil
}

// process streams rows from the input file to the runner. Rows are handed
// over one at a time so input order is preserved.
func process(ctx context.Context, runner *batch.Runner, cfg *Config) (batch.Summary, error) {
	rows := make(chan order.Row)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rows)
		return source.Stream(gctx, cfg.Input, cfg.DelimiterRune(), func(row order.Row) error {
			select {
			case rows <- row:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var summary batch.Summary
	g.Go(func() error {
		var err error
		summary, err = runner.Run(gctx, rows)
		return err
	})

	if err := g.Wait(); err != nil {
		return runner.Summary(), errors.Wrap(err, "process orders")
	}
	return summary, nil
}
