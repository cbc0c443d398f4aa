package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Axeist/cuephoria-pos/internal/models"
)

// SessionRepository handles persistence of play sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ListRecent returns the most recently created sessions, newest first.
func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, station_id, customer_id, start_time, end_time, duration, hourly_rate, original_rate, coupon_code, discount_amount, created_at
		FROM sessions
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		var endTime sql.NullTime
		var coupon sql.NullString
		var discount decimal.NullDecimal
		if err := rows.Scan(
			&s.ID,
			&s.StationID,
			&s.CustomerID,
			&s.StartTime,
			&endTime,
			&s.Duration,
			&s.HourlyRate,
			&s.OriginalRate,
			&coupon,
			&discount,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		if endTime.Valid {
			t := endTime.Time
			s.EndTime = &t
		}
		if coupon.Valid {
			s.CouponCode = coupon.String
		}
		if discount.Valid {
			d := discount.Decimal
			s.DiscountAmount = &d
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Insert creates a session row.
func (r *SessionRepository) Insert(ctx context.Context, session *models.Session) error {
	const query = `
		INSERT INTO sessions (id, station_id, customer_id, start_time, duration, hourly_rate, original_rate, coupon_code, discount_amount, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6, NULLIF($7, ''), $8, NOW())
		RETURNING created_at
	`
	var discount interface{}
	if session.DiscountAmount != nil {
		discount = *session.DiscountAmount
	}
	return r.db.QueryRowContext(ctx, query,
		session.ID,
		session.StationID,
		session.CustomerID,
		session.StartTime,
		session.HourlyRate,
		session.OriginalRate,
		session.CouponCode,
		discount,
	).Scan(&session.CreatedAt)
}

// Complete sets the end time and final duration in minutes.
func (r *SessionRepository) Complete(ctx context.Context, id string, endTime time.Time, durationMinutes int) error {
	const query = `
		UPDATE sessions
		SET end_time = $2, duration = $3
		WHERE id = $1 AND end_time IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id, endTime, durationMinutes)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes a session row.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// CountByStation returns how many historical sessions reference the station.
func (r *SessionRepository) CountByStation(ctx context.Context, stationID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE station_id = $1`, stationID,
	).Scan(&count)
	return count, err
}
