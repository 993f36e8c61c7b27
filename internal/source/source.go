// Package source reads order rows from delimited text files. Files ending in
// .gz are decompressed on the fly.
package source

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/order-pricer/internal/domain/order"
)

// ErrNoHeader is returned when the input has no header line.
var ErrNoHeader = errors.New("input has no header row")

// Reader yields order rows keyed by the header's column names.
type Reader struct {
	csv    *csv.Reader
	header []string
	rows   int
}

// NewReader reads the header from r and returns a Reader positioned at the
// first data row. A zero delimiter means comma.
func NewReader(r io.Reader, delimiter rune) (*Reader, error) {
	cr := csv.NewReader(r)
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, errors.Wrap(err, "read header")
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	return &Reader{csv: cr, header: names}, nil
}

// Header returns the column names.
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next row, or io.EOF when the input is exhausted. Columns
// missing from a short line are set to the empty string; extra fields are
// ignored.
func (r *Reader) Next() (order.Row, error) {
	rec, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "read row %d", r.rows+1)
	}
	r.rows++

	row := make(order.Row, len(r.header))
	for i, name := range r.header {
		if i < len(rec) {
			row[name] = rec[i]
		} else {
			row[name] = ""
		}
	}
	return row, nil
}

// Stream opens path and calls fn for each row in file order. It stops early
// when ctx is cancelled or fn returns an error.
func Stream(ctx context.Context, path string, delimiter rune, fn func(order.Row) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var in io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		in = gz
	}

	r, err := NewReader(in, delimiter)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "scan %s", path)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}
