// Package report writes batch outcomes as JSON Lines.
package report

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-pricer/internal/batch"
)

var _ batch.Sink = (*Writer)(nil)

// Writer encodes one JSON object per outcome.
type Writer struct {
	out    *bufio.Writer
	closer io.Closer
	enc    jx.Encoder
}

// NewWriter returns a Writer that writes to w. Close flushes but does not
// close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(w)}
}

// Create creates or truncates the file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create report %s", path)
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// Record writes o as a single line.
func (w *Writer) Record(_ context.Context, o batch.Outcome) error {
	w.enc.Reset()
	encodeOutcome(&w.enc, o)

	if _, err := w.out.Write(w.enc.Bytes()); err != nil {
		return errors.Wrapf(err, "write report line %d", o.Seq)
	}
	if err := w.out.WriteByte('\n'); err != nil {
		return errors.Wrapf(err, "write report line %d", o.Seq)
	}
	return nil
}

// Close flushes buffered lines and closes the underlying file, if any.
func (w *Writer) Close() error {
	if err := w.out.Flush(); err != nil {
		return errors.Wrap(err, "flush report")
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil {
			return errors.Wrap(err, "close report")
		}
	}
	return nil
}

func encodeOutcome(e *jx.Encoder, o batch.Outcome) {
	e.ObjStart()

	e.FieldStart("seq")
	e.Int(o.Seq)
	e.FieldStart("order_id")
	e.Str(o.Record.OrderID)
	e.FieldStart("customer_name")
	e.Str(o.Record.CustomerName)
	e.FieldStart("product_id")
	e.Str(o.Record.ProductID)
	e.FieldStart("status")
	e.Str(o.Status())

	if !o.OK {
		e.FieldStart("reason")
		e.Str(string(o.Reason))
		if o.Err != nil {
			e.FieldStart("error")
			e.Str(o.Err.Error())
		}
		e.ObjEnd()
		return
	}

	e.FieldStart("quantity")
	e.Int64(o.Record.Quantity)
	e.FieldStart("unit_price")
	e.Str(o.Record.UnitPrice.String())
	e.FieldStart("zero_quantity")
	e.Bool(o.Advisory.ZeroQuantity)
	// Computed amounts are shown to cents.
	e.FieldStart("discount_rate")
	e.Str(o.Result.DiscountRate.String())
	e.FieldStart("subtotal")
	money(e, o.Result.Subtotal)
	e.FieldStart("discounted_total")
	money(e, o.Result.DiscountedTotal)
	e.FieldStart("tax")
	money(e, o.Result.Tax)
	e.FieldStart("shipping")
	money(e, o.Result.Shipping)
	e.FieldStart("final_total")
	money(e, o.Result.FinalTotal)

	e.ObjEnd()
}

// money encodes d as a string with two decimal places.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Str(d.StringFixed(2))
}
