package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill is a customer's checkout document. Items reference sessions and
// products; session-backed items are what blocks station deletion.
type Bill struct {
	ID            string          `db:"id" json:"id"`
	CustomerID    string          `db:"customer_id" json:"customer_id"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	Total         decimal.Decimal `db:"total" json:"total"`
	PointsEarned  int             `db:"points_earned" json:"points_earned"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// BillItem is one line on a bill. SessionID is set for station-time charges.
type BillItem struct {
	ID        string          `db:"id" json:"id"`
	BillID    string          `db:"bill_id" json:"bill_id"`
	SessionID string          `db:"session_id" json:"session_id,omitempty"`
	Name      string          `db:"name" json:"name"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
