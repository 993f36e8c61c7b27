package discount

import (
	"context"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var zero = decimal.Zero

// Input describes the order a rate is computed for.
type Input struct {
	Subtotal  decimal.Decimal
	OrderID   string
	ProductID string
}

// TermFunc contributes an additional rate to the combined discount.
type TermFunc func(ctx context.Context, in Input) decimal.Decimal

type term struct {
	name string
	fn   TermFunc
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithTerm adds a named rate term on top of the base, category and loyalty
// contributions. The combined rate is still clamped to [0, MaxRate].
func WithTerm(name string, fn TermFunc) Option {
	return func(c *Calculator) {
		c.terms = append(c.terms, term{name: name, fn: fn})
	}
}

// Calculator produces discount rates. It owns the order History, which it
// advances exactly once per Rate call.
type Calculator struct {
	cfg     Config
	history *History
	terms   []term
}

// NewCalculator creates a Calculator over an already-built Config.
func NewCalculator(cfg Config, history *History, opts ...Option) *Calculator {
	c := &Calculator{cfg: cfg, history: history}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// History returns the order history the calculator advances.
func (c *Calculator) History() *History {
	return c.history
}

// BonusRate returns the category bonus for a product id of the form
// XXX-CAT-ZZZ. Identifiers without a category segment earn nothing.
func (c *Calculator) BonusRate(ctx context.Context, productID string) decimal.Decimal {
	parts := strings.Split(productID, "-")
	if len(parts) < 2 {
		zctx.From(ctx).Warn("Product id has no category segment, skipping category bonus",
			zap.String("product_id", productID),
		)
		return zero
	}
	if c.cfg.IsBonusCategory(parts[1]) {
		return c.cfg.CategoryBonus
	}
	return zero
}

// LoyaltyBonus returns the loyalty bonus when the order processed just before
// orderID carries the loyalty prefix. It records orderID in the history
// whatever the outcome.
func (c *Calculator) LoyaltyBonus(ctx context.Context, orderID string) decimal.Decimal {
	prev, ok := c.history.Advance(orderID)
	if ok && strings.HasPrefix(prev, c.cfg.LoyaltyPrefix) {
		zctx.From(ctx).Debug("Loyalty bonus applied", zap.String("previous_order_id", prev))
		return c.cfg.LoyaltyBonus
	}
	return zero
}

// Rate returns the combined discount rate for one order, clamped to
// [0, MaxRate].
func (c *Calculator) Rate(ctx context.Context, subtotal decimal.Decimal, orderID, productID string) decimal.Decimal {
	lg := zctx.From(ctx)

	bonus := c.BonusRate(ctx, productID)
	loyalty := c.LoyaltyBonus(ctx, orderID)
	rate := c.cfg.BaseRate.Add(bonus).Add(loyalty)

	in := Input{Subtotal: subtotal, OrderID: orderID, ProductID: productID}
	for _, t := range c.terms {
		v := t.fn(ctx, in)
		lg.Debug("Discount term", zap.String("term", t.name), zap.Stringer("rate", v))
		rate = rate.Add(v)
	}

	clamped := clamp(rate, c.cfg.MaxRate)
	lg.Debug("Discount rate",
		zap.Stringer("subtotal", subtotal),
		zap.Stringer("base", c.cfg.BaseRate),
		zap.Stringer("category_bonus", bonus),
		zap.Stringer("loyalty_bonus", loyalty),
		zap.Stringer("rate", clamped),
	)
	return clamped
}

// clamp bounds rate to [0, limit].
func clamp(rate, limit decimal.Decimal) decimal.Decimal {
	return floorAtZero(decimal.Min(rate, limit))
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
