// Package pricing turns a validated order into subtotal, discount, tax,
// shipping and final total.
package pricing

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/order-pricer/internal/domain/order"
)

// Rates holds the fixed tax and shipping parameters.
type Rates struct {
	TaxRate         decimal.Decimal
	ShippingBase    decimal.Decimal
	ShippingPerUnit decimal.Decimal
}

// DefaultRates returns 8% tax and 5.99 + 1.50 per unit shipping.
func DefaultRates() Rates {
	return Rates{
		TaxRate:         decimal.RequireFromString("0.08"),
		ShippingBase:    decimal.RequireFromString("5.99"),
		ShippingPerUnit: decimal.RequireFromString("1.50"),
	}
}

// RateSource supplies the discount rate for an order.
type RateSource interface {
	Rate(ctx context.Context, subtotal decimal.Decimal, orderID, productID string) decimal.Decimal
}

// Result holds every pricing stage for one order. Intermediate stages keep
// full precision; FinalTotal is rounded to cents.
type Result struct {
	Subtotal        decimal.Decimal
	DiscountRate    decimal.Decimal
	DiscountedTotal decimal.Decimal
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
	FinalTotal      decimal.Decimal
}

// Pipeline prices validated orders.
type Pipeline struct {
	discounts RateSource
	rates     Rates
}

// NewPipeline creates a Pipeline that takes discount rates from discounts.
func NewPipeline(discounts RateSource, rates Rates) *Pipeline {
	return &Pipeline{discounts: discounts, rates: rates}
}

// Price runs subtotal, discount, tax, shipping and total for rec. Stages are
// computed exactly from one another; only the final total is rounded to 2
// decimal places.
//
// The record must have passed order.Validate.
func (p *Pipeline) Price(ctx context.Context, rec order.Record) Result {
	lg := zctx.From(ctx)
	qty := decimal.NewFromInt(rec.Quantity)

	subtotal := qty.Mul(rec.UnitPrice)
	lg.Debug("Subtotal", zap.Stringer("subtotal", subtotal))

	rate := p.discounts.Rate(ctx, subtotal, rec.OrderID, rec.ProductID)
	discounted := subtotal.Mul(decimal.NewFromInt(1).Sub(rate))
	lg.Debug("Discount applied",
		zap.Stringer("rate", rate),
		zap.Stringer("discounted_total", discounted),
	)

	tax := discounted.Mul(p.rates.TaxRate)
	lg.Debug("Tax", zap.Stringer("tax", tax))

	shipping := p.rates.ShippingBase.Add(qty.Mul(p.rates.ShippingPerUnit))
	lg.Debug("Shipping", zap.Stringer("shipping", shipping))

	final := discounted.Add(tax).Add(shipping).Round(2)
	lg.Debug("Final total", zap.Stringer("final_total", final))

	return Result{
		Subtotal:        subtotal,
		DiscountRate:    rate,
		DiscountedTotal: discounted,
		Tax:             tax,
		Shipping:        shipping,
		FinalTotal:      final,
	}
}
