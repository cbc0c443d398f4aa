package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer tracks loyalty and lifetime spend for a lounge member.
type Customer struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Phone         string          `db:"phone" json:"phone"`
	Email         string          `db:"email" json:"email"`
	IsMember      bool            `db:"is_member" json:"is_member"`
	LoyaltyPoints int             `db:"loyalty_points" json:"loyalty_points"`
	TotalSpent    decimal.Decimal `db:"total_spent" json:"total_spent"`
	TotalPlayTime int             `db:"total_play_time" json:"total_play_time"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Staff is an employee account allowed to operate the POS.
type Staff struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
