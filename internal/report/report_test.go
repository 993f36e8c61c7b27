package report

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-pricer/internal/batch"
	"github.com/xenking/order-pricer/internal/domain/order"
	"github.com/xenking/order-pricer/internal/domain/pricing"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// decodeLine reads a flat JSON object into a map of raw values.
func decodeLine(t *testing.T, line []byte) map[string]string {
	t.Helper()
	fields := make(map[string]string)
	err := jx.DecodeBytes(line).Obj(func(dec *jx.Decoder, key string) error {
		raw, err := dec.Raw()
		if err != nil {
			return err
		}
		fields[key] = raw.String()
		return nil
	})
	require.NoError(t, err)
	return fields
}

func processed() batch.Outcome {
	return batch.Outcome{
		Seq: 1,
		Record: order.Record{
			OrderID:      "A-1",
			CustomerName: "Ada",
			ProductID:    "CT-RC-001",
			Quantity:     3,
			UnitPrice:    d("10"),
		},
		OK: true,
		Result: pricing.Result{
			Subtotal:        d("30"),
			DiscountRate:    d("0.20"),
			DiscountedTotal: d("24"),
			Tax:             d("1.92"),
			Shipping:        d("10.49"),
			FinalTotal:      d("36.41"),
		},
	}
}

func skipped() batch.Outcome {
	return batch.Outcome{
		Seq:    2,
		Record: order.Record{OrderID: "B-2", ProductID: "CT-RC-002"},
		Reason: order.ReasonInvalidQuantity,
		Err:    errors.New(`quantity "abc": quantity is not an integer`),
	}
}

func TestWriter_Record(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Record(context.Background(), processed()))
	require.NoError(t, w.Record(context.Background(), skipped()))
	require.NoError(t, w.Close())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	first := decodeLine(t, lines[0])
	assert.Equal(t, "1", first["seq"])
	assert.Equal(t, `"A-1"`, first["order_id"])
	assert.Equal(t, `"processed"`, first["status"])
	assert.Equal(t, `"30.00"`, first["subtotal"])
	assert.Equal(t, `"0.2"`, first["discount_rate"])
	assert.Equal(t, `"24.00"`, first["discounted_total"])
	assert.Equal(t, `"1.92"`, first["tax"])
	assert.Equal(t, `"10.49"`, first["shipping"])
	assert.Equal(t, `"36.41"`, first["final_total"])
	assert.Equal(t, `"10"`, first["unit_price"])
	assert.Equal(t, "false", first["zero_quantity"])
	assert.NotContains(t, first, "reason")

	second := decodeLine(t, lines[1])
	assert.Equal(t, `"skipped"`, second["status"])
	assert.Equal(t, `"InvalidQuantity"`, second["reason"])
	assert.Contains(t, second["error"], "not an integer")
	assert.NotContains(t, second, "final_total")
}

func TestWriter_SubCentAmounts(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	o := processed()
	o.Record.Quantity = 1
	o.Record.UnitPrice = d("0.125")
	o.Result = pricing.Result{
		Subtotal:        d("0.125"),
		DiscountRate:    d("0.15"),
		DiscountedTotal: d("0.10625"),
		Tax:             d("0.0085"),
		Shipping:        d("7.49"),
		FinalTotal:      d("7.60"),
	}
	require.NoError(t, w.Record(context.Background(), o))
	require.NoError(t, w.Close())

	fields := decodeLine(t, bytes.TrimSpace(buf.Bytes()))
	assert.Equal(t, `"0.125"`, fields["unit_price"])
	assert.Equal(t, `"0.13"`, fields["subtotal"])
	assert.Equal(t, `"0.11"`, fields["discounted_total"])
	assert.Equal(t, `"0.01"`, fields["tax"])
	assert.Equal(t, `"7.60"`, fields["final_total"])
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.jsonl")

	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Record(context.Background(), processed()))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	fields := decodeLine(t, sc.Bytes())
	assert.Equal(t, `"A-1"`, fields["order_id"])
	assert.False(t, sc.Scan())
}

func TestCreate_BadPath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing", "report.jsonl"))
	require.Error(t, err)
}
