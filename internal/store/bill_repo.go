package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Axeist/cuephoria-pos/internal/models"
)

// BillRepository handles persistence of bills and bill items.
type BillRepository struct {
	db *sql.DB
}

// NewBillRepository returns repository.
func NewBillRepository(db *sql.DB) *BillRepository {
	return &BillRepository{db: db}
}

// CreateWithItem persists a bill and its single line item atomically.
func (r *BillRepository) CreateWithItem(ctx context.Context, bill *models.Bill, item *models.BillItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const billQuery = `
		INSERT INTO bills (id, customer_id, subtotal, discount, total, points_earned, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at
	`
	if err := tx.QueryRowContext(ctx, billQuery,
		bill.ID,
		bill.CustomerID,
		bill.Subtotal,
		bill.Discount,
		bill.Total,
		bill.PointsEarned,
		bill.PaymentMethod,
	).Scan(&bill.CreatedAt); err != nil {
		return fmt.Errorf("store: insert bill: %w", err)
	}

	const itemQuery = `
		INSERT INTO bill_items (id, bill_id, session_id, name, quantity, amount, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NOW())
		RETURNING created_at
	`
	item.BillID = bill.ID
	if err := tx.QueryRowContext(ctx, itemQuery,
		item.ID,
		item.BillID,
		item.SessionID,
		item.Name,
		item.Quantity,
		item.Amount,
	).Scan(&item.CreatedAt); err != nil {
		return fmt.Errorf("store: insert bill item: %w", err)
	}

	return tx.Commit()
}

// CountItemsForStationSessions counts bill line items referencing any session
// of the station. A non-zero count blocks station deletion.
func (r *BillRepository) CountItemsForStationSessions(ctx context.Context, stationID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM bill_items bi
		JOIN sessions s ON s.id = bi.session_id
		WHERE s.station_id = $1
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, stationID).Scan(&count)
	return count, err
}
