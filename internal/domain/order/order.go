package order

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Input column names.
const (
	FieldOrderID      = "order_id"
	FieldCustomerName = "customer_name"
	FieldProductID    = "product_id"
	FieldProductName  = "product_name"
	FieldQuantity     = "quantity"
	FieldUnitPrice    = "unit_price"
)

// UnknownOrderID is used for rows that carry no order identifier.
const UnknownOrderID = "UNKNOWN"

// Columns lists the input columns in their canonical order.
var Columns = []string{
	FieldOrderID,
	FieldCustomerName,
	FieldProductID,
	FieldProductName,
	FieldQuantity,
	FieldUnitPrice,
}

// Row is one raw input row keyed by column name.
type Row map[string]string

// Record is a typed order built from a Row. Numeric fields that fail to parse
// are kept with their Valid flag unset so validation can report them.
type Record struct {
	OrderID      string
	CustomerName string
	ProductID    string
	ProductName  string

	RawQuantity    string
	Quantity       int64
	QuantityValid  bool
	RawUnitPrice   string
	UnitPrice      decimal.Decimal
	UnitPriceValid bool
}

// Parse converts a raw row into a Record. It never fails: malformed numbers
// leave QuantityValid or UnitPriceValid false.
func Parse(row Row) Record {
	rec := Record{
		OrderID:      strings.TrimSpace(row[FieldOrderID]),
		CustomerName: row[FieldCustomerName],
		ProductID:    row[FieldProductID],
		ProductName:  row[FieldProductName],
		RawQuantity:  row[FieldQuantity],
		RawUnitPrice: row[FieldUnitPrice],
	}
	if rec.OrderID == "" {
		rec.OrderID = UnknownOrderID
	}

	if qty, err := strconv.ParseInt(strings.TrimSpace(rec.RawQuantity), 10, 64); err == nil {
		rec.Quantity = qty
		rec.QuantityValid = true
	}

	if price, err := decimal.NewFromString(strings.TrimSpace(rec.RawUnitPrice)); err == nil {
		rec.UnitPrice = price
		rec.UnitPriceValid = true
	}

	return rec
}
