package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Reason classifies why an order was not processed.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInvalidQuantity  Reason = "InvalidQuantity"
	ReasonInvalidPrice     Reason = "InvalidPrice"
	ReasonNegativeQuantity Reason = "NegativeQuantity"
	ReasonNegativePrice    Reason = "NegativePrice"
	ReasonUnexpectedFault  Reason = "UnexpectedFault"
)

// Sentinel errors for order validation.
var (
	ErrInvalidQuantity  = errors.New("quantity is not an integer")
	ErrInvalidPrice     = errors.New("unit price is not a decimal")
	ErrNegativeQuantity = errors.New("quantity must not be negative")
	ErrNegativePrice    = errors.New("unit price must not be negative")
)

var reasons = map[error]Reason{
	ErrInvalidQuantity:  ReasonInvalidQuantity,
	ErrInvalidPrice:     ReasonInvalidPrice,
	ErrNegativeQuantity: ReasonNegativeQuantity,
	ErrNegativePrice:    ReasonNegativePrice,
}

// ValidationError reports the field and raw value that failed a check.
type ValidationError struct {
	Reason Reason
	Field  string
	Value  string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Advisory carries non-fatal findings about an accepted order.
type Advisory struct {
	// ZeroQuantity marks an order that should be reviewed. It is still priced.
	ZeroQuantity bool
}

// Validate checks the numeric fields of rec, stopping at the first failure.
// Identity and product fields are not validated.
func Validate(rec Record) (Advisory, error) {
	var adv Advisory

	if !rec.QuantityValid {
		return adv, invalid(ErrInvalidQuantity, FieldQuantity, rec.RawQuantity)
	}
	if !rec.UnitPriceValid {
		return adv, invalid(ErrInvalidPrice, FieldUnitPrice, rec.RawUnitPrice)
	}
	if rec.Quantity < 0 {
		return adv, invalid(ErrNegativeQuantity, FieldQuantity, rec.RawQuantity)
	}
	if rec.Quantity == 0 {
		adv.ZeroQuantity = true
	}
	if rec.UnitPrice.IsNegative() {
		return adv, invalid(ErrNegativePrice, FieldUnitPrice, rec.RawUnitPrice)
	}

	return adv, nil
}

func invalid(err error, field, value string) *ValidationError {
	return &ValidationError{
		Reason: reasons[err],
		Field:  field,
		Value:  value,
		Err:    err,
	}
}

// ReasonOf returns the taxonomy reason for err. Errors that did not come from
// Validate are reported as ReasonUnexpectedFault.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Reason
	}
	return ReasonUnexpectedFault
}
