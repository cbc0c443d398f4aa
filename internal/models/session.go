package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is a time-bounded occupancy of a station by a customer.
// EndTime == nil means the session is still running. Pricing fields are a
// snapshot taken at session start and never recomputed afterwards, except
// for explicit coupon application.
type Session struct {
	ID             string           `db:"id" json:"id"`
	StationID      string           `db:"station_id" json:"station_id"`
	CustomerID     string           `db:"customer_id" json:"customer_id"`
	StartTime      time.Time        `db:"start_time" json:"start_time"`
	EndTime        *time.Time       `db:"end_time" json:"end_time,omitempty"`
	Duration       int              `db:"duration" json:"duration"`
	HourlyRate     decimal.Decimal  `db:"hourly_rate" json:"hourly_rate"`
	OriginalRate   decimal.Decimal  `db:"original_rate" json:"original_rate"`
	CouponCode     string           `db:"coupon_code" json:"coupon_code,omitempty"`
	DiscountAmount *decimal.Decimal `db:"discount_amount" json:"discount_amount,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// IsActive reports whether the session has no end time yet.
func (s *Session) IsActive() bool {
	return s != nil && s.EndTime == nil
}

// Charge computes the amount owed for the session given its recorded
// duration in minutes, applying the discount snapshot if present.
func (s *Session) Charge() decimal.Decimal {
	minutes := decimal.NewFromInt(int64(s.Duration))
	amount := s.HourlyRate.Mul(minutes).Div(decimal.NewFromInt(60))
	if s.DiscountAmount != nil {
		amount = amount.Sub(*s.DiscountAmount)
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
