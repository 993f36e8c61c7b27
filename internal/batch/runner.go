// Package batch feeds order rows through validation and pricing one at a
// time and isolates every failure to its own order.
package batch

import (
	"context"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/order-pricer/internal/domain/order"
	"github.com/xenking/order-pricer/internal/domain/pricing"
)

const instrumentationName = "github.com/xenking/order-pricer/internal/batch"

// Pricer prices a validated order record.
type Pricer interface {
	Price(ctx context.Context, rec order.Record) pricing.Result
}

// DedupConfig sizes the duplicate order id filter. A zero Capacity disables
// the check.
type DedupConfig struct {
	Capacity uint
	FPR      float64
}

// Config holds the optional collaborators of a Runner.
type Config struct {
	// Sinks store each outcome. An error from a sink fails an order that
	// would otherwise have succeeded.
	Sinks []Sink
	// Reporters receive each outcome after every sink has run, so they see
	// its final status. Their errors are logged and leave the outcome as is.
	Reporters []Sink

	Dedup          DedupConfig
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Runner processes rows strictly in the order they are handed to it. It is
// not safe for concurrent use: the loyalty bonus depends on a fixed
// processing order.
type Runner struct {
	pricer    Pricer
	sinks     []Sink
	reporters []Sink
	seen      *bloom.BloomFilter

	tracer trace.Tracer
	orders metric.Int64Counter
	totals metric.Float64Histogram

	seq     int
	summary Summary
}

// NewRunner creates a Runner around p.
func NewRunner(p Pricer, cfg Config) (*Runner, error) {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	orders, err := meter.Int64Counter("pricer.orders",
		metric.WithDescription("Orders processed, by status and reason."),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}
	totals, err := meter.Float64Histogram("pricer.order.final_total",
		metric.WithDescription("Final total of processed orders."),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create totals histogram")
	}

	r := &Runner{
		pricer:    p,
		sinks:     cfg.Sinks,
		reporters: cfg.Reporters,
		tracer:    tp.Tracer(instrumentationName),
		orders:    orders,
		totals:    totals,
	}
	if cfg.Dedup.Capacity > 0 {
		r.seen = bloom.NewWithEstimates(cfg.Dedup.Capacity, cfg.Dedup.FPR)
	}
	return r, nil
}

// Summary returns the tally of all rows processed so far.
func (r *Runner) Summary() Summary {
	return r.summary
}

// Process parses, validates and prices one row, hands the outcome to every
// sink and then, once settled, to every reporter. It never panics and never returns an error: any fault is
// logged at critical severity and reported as a failed Outcome.
func (r *Runner) Process(ctx context.Context, row order.Row) Outcome {
	r.seq++
	out := Outcome{
		Seq:    r.seq,
		Record: order.Record{OrderID: order.UnknownOrderID},
	}

	ctx, span := r.tracer.Start(ctx, "batch.ProcessOrder",
		trace.WithAttributes(attribute.Int("order.seq", out.Seq)),
	)
	defer span.End()

	r.protect(ctx, &out, func() error {
		out.Record = order.Parse(row)
		return nil
	})
	ctx = zctx.With(ctx,
		zap.Int("seq", out.Seq),
		zap.String("order_id", out.Record.OrderID),
	)
	span.SetAttributes(attribute.String("order.id", out.Record.OrderID))

	if out.Reason == order.ReasonNone {
		r.protect(ctx, &out, func() error {
			r.evaluate(ctx, &out)
			return nil
		})
	}

	for _, s := range r.sinks {
		r.protect(ctx, &out, func() error {
			return s.Record(ctx, out)
		})
	}

	for _, rep := range r.reporters {
		r.report(ctx, rep, out)
	}

	r.finish(ctx, span, out)
	return out
}

// Run processes rows from the channel until it is closed or ctx is done.
// Cancellation is only observed between orders.
func (r *Runner) Run(ctx context.Context, rows <-chan order.Row) (Summary, error) {
	for {
		select {
		case <-ctx.Done():
			return r.summary, ctx.Err()
		case row, ok := <-rows:
			if !ok {
				return r.summary, nil
			}
			r.Process(ctx, row)
		}
	}
}

func (r *Runner) evaluate(ctx context.Context, out *Outcome) {
	lg := zctx.From(ctx)
	rec := out.Record

	if r.seen != nil && rec.OrderID != order.UnknownOrderID && r.seen.TestAndAddString(rec.OrderID) {
		lg.Warn("Order id seen earlier in this batch")
	}

	adv, err := order.Validate(rec)
	out.Advisory = adv
	if err != nil {
		out.Reason = order.ReasonOf(err)
		out.Err = err
		lg.Error("Skipping order",
			zap.String("reason", string(out.Reason)),
			zap.Error(err),
		)
		return
	}
	if adv.ZeroQuantity {
		lg.Warn("Order has zero quantity, flagged for review")
	}

	lg.Debug("Pricing order",
		zap.String("product_id", rec.ProductID),
		zap.Int64("quantity", rec.Quantity),
		zap.Stringer("unit_price", rec.UnitPrice),
	)
	out.Result = r.pricer.Price(ctx, rec)
	out.OK = true
}

// protect runs fn and turns a returned error or a panic into an
// UnexpectedFault on out.
func (r *Runner) protect(ctx context.Context, out *Outcome, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			fault(ctx, out, errors.Errorf("panic: %v", rec))
		}
	}()
	if err := fn(); err != nil {
		fault(ctx, out, err)
	}
}

// report hands a settled outcome to rep. Failures are only logged.
func (r *Runner) report(ctx context.Context, rep Sink, out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			logCritical(zctx.From(ctx), "Reporter failed", errors.Errorf("panic: %v", rec))
		}
	}()
	if err := rep.Record(ctx, out); err != nil {
		logCritical(zctx.From(ctx), "Reporter failed", err)
	}
}

func (r *Runner) finish(ctx context.Context, span trace.Span, out Outcome) {
	r.summary.Add(out)

	attrs := metric.WithAttributes(
		attribute.String("status", out.Status()),
		attribute.String("reason", string(out.Reason)),
	)
	r.orders.Add(ctx, 1, attrs)

	if !out.OK {
		span.SetStatus(codes.Error, string(out.Reason))
		return
	}

	r.totals.Record(ctx, out.Result.FinalTotal.InexactFloat64())
	zctx.From(ctx).Info("Order processed",
		zap.Stringer("subtotal", out.Result.Subtotal),
		zap.Stringer("discount_rate", out.Result.DiscountRate),
		zap.Stringer("tax", out.Result.Tax),
		zap.Stringer("shipping", out.Result.Shipping),
		zap.Stringer("final_total", out.Result.FinalTotal),
	)
}
