// Package discount computes the per-order discount rate from a base rate, a
// product category bonus and a loyalty bonus keyed on the previous order.
package discount

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds the discount rules. Build it once, before pricing starts, and
// treat it as read-only afterwards.
type Config struct {
	BaseRate      decimal.Decimal
	CategoryBonus decimal.Decimal
	LoyaltyBonus  decimal.Decimal
	MaxRate       decimal.Decimal
	LoyaltyPrefix string

	categories map[string]struct{}
}

// DefaultConfig returns the standard discount rules.
func DefaultConfig() Config {
	return NewConfig(
		decimal.RequireFromString("0.15"),
		decimal.RequireFromString("0.05"),
		decimal.RequireFromString("0.02"),
		decimal.RequireFromString("0.50"),
		"CT-100",
		"RC", "Robot", "EL",
	)
}

// NewConfig builds a Config. Category names are matched case-insensitively.
func NewConfig(
	base, categoryBonus, loyaltyBonus, maxRate decimal.Decimal,
	loyaltyPrefix string,
	categories ...string,
) Config {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[strings.ToUpper(c)] = struct{}{}
	}
	return Config{
		BaseRate:      base,
		CategoryBonus: categoryBonus,
		LoyaltyBonus:  loyaltyBonus,
		MaxRate:       maxRate,
		LoyaltyPrefix: loyaltyPrefix,
		categories:    set,
	}
}

// IsBonusCategory reports whether category earns the category bonus.
func (c Config) IsBonusCategory(category string) bool {
	_, ok := c.categories[strings.ToUpper(category)]
	return ok
}
