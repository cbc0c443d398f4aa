package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownCoupon is returned for a code the POS does not recognize.
var ErrUnknownCoupon = errors.New("pricing: unknown coupon code")

// Quote is the pricing snapshot taken at session start. Once stored on the
// session it is never recomputed.
type Quote struct {
	HourlyRate     decimal.Decimal
	OriginalRate   decimal.Decimal
	CouponCode     string
	DiscountAmount *decimal.Decimal
}

type coupon struct {
	percentOff int64
	flatOff    decimal.Decimal
}

var coupons = map[string]coupon{
	"CUE10":      {percentOff: 10},
	"CUE25":      {percentOff: 25},
	"HAPPYHOUR":  {percentOff: 50},
	"WELCOME100": {flatOff: decimal.NewFromInt(100)},
}

// NewQuote snapshots the station's rate, applying the coupon if present.
// Percent coupons lower the effective hourly rate; flat coupons record a
// discount amount subtracted from the final charge.
func NewQuote(stationRate decimal.Decimal, couponCode string) (Quote, error) {
	quote := Quote{
		HourlyRate:   stationRate,
		OriginalRate: stationRate,
	}

	code := strings.ToUpper(strings.TrimSpace(couponCode))
	if code == "" {
		return quote, nil
	}

	c, ok := coupons[code]
	if !ok {
		return Quote{}, ErrUnknownCoupon
	}

	quote.CouponCode = code
	if c.percentOff > 0 {
		factor := decimal.NewFromInt(100 - c.percentOff).Div(decimal.NewFromInt(100))
		quote.HourlyRate = stationRate.Mul(factor).Round(2)
	}
	if c.flatOff.IsPositive() {
		flat := c.flatOff
		quote.DiscountAmount = &flat
	}
	return quote, nil
}

// LoyaltyPoints converts a final charge into earned points, one point per
// whole currency unit.
func LoyaltyPoints(charge decimal.Decimal) int {
	if charge.IsNegative() {
		return 0
	}
	return int(charge.IntPart())
}
