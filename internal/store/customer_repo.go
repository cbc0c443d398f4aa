package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/Axeist/cuephoria-pos/internal/models"
)

// CustomerRepository handles persistence of customers.
type CustomerRepository struct {
	db *sql.DB
}

// NewCustomerRepository returns repository.
func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByID returns one customer.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	const query = `
		SELECT id, name, phone, email, is_member, loyalty_points, total_spent, total_play_time, created_at
		FROM customers
		WHERE id = $1
	`
	var c models.Customer
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Phone,
		&c.Email,
		&c.IsMember,
		&c.LoyaltyPoints,
		&c.TotalSpent,
		&c.TotalPlayTime,
		&c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AccrueLoyalty adds loyalty points, spend, and play time to a customer.
func (r *CustomerRepository) AccrueLoyalty(ctx context.Context, id string, points int, spent decimal.Decimal, playMinutes int) error {
	const query = `
		UPDATE customers
		SET loyalty_points = loyalty_points + $2,
		    total_spent = total_spent + $3,
		    total_play_time = total_play_time + $4
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, points, spent, playMinutes)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
