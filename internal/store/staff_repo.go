package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Axeist/cuephoria-pos/internal/models"
)

// ErrStaffNotFound indicates a missing staff account.
var ErrStaffNotFound = errors.New("store: staff not found")

// StaffRepository handles persistence of staff accounts.
type StaffRepository struct {
	db *sql.DB
}

// NewStaffRepository returns repository.
func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// GetByUsername returns one staff account.
func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*models.Staff, error) {
	const query = `
		SELECT id, username, password_hash, role, created_at
		FROM staff
		WHERE username = $1
	`
	var s models.Staff
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&s.ID,
		&s.Username,
		&s.PasswordHash,
		&s.Role,
		&s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create persists a staff account.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	const query = `
		INSERT INTO staff (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query,
		staff.ID,
		staff.Username,
		staff.PasswordHash,
		staff.Role,
	).Scan(&staff.CreatedAt)
}
