package batch

import (
	"context"

	"github.com/xenking/order-pricer/internal/domain/order"
	"github.com/xenking/order-pricer/internal/domain/pricing"
)

// Outcome is the result of processing one input row.
type Outcome struct {
	// Seq is the 1-based position of the row in the batch.
	Seq      int
	Record   order.Record
	Advisory order.Advisory
	Result   pricing.Result
	OK       bool
	Reason   order.Reason
	Err      error
}

// Status returns "processed" or "skipped".
func (o Outcome) Status() string {
	if o.OK {
		return "processed"
	}
	return "skipped"
}

// Summary tallies outcomes across a batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Add counts o.
func (s *Summary) Add(o Outcome) {
	s.Total++
	if o.OK {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// Sink receives every outcome after processing, in input order.
type Sink interface {
	Record(ctx context.Context, o Outcome) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, o Outcome) error

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, o Outcome) error {
	return f(ctx, o)
}
