package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Axeist/cuephoria-pos/internal/models"
)

// StationRecord is a station row plus the raw current-session snapshot stored
// on it. Snapshot decoding is left to the caller so one malformed row cannot
// fail the whole list.
type StationRecord struct {
	Station  models.Station
	Snapshot []byte
}

// StationRepository handles persistence of stations.
type StationRepository struct {
	db *sql.DB
}

// NewStationRepository returns repository.
func NewStationRepository(db *sql.DB) *StationRepository {
	return &StationRepository{db: db}
}

// ListPage returns one fixed-size page of stations ordered by name. A page
// shorter than limit means the caller has reached the end.
func (r *StationRepository) ListPage(ctx context.Context, limit, offset int) ([]StationRecord, error) {
	const query = `
		SELECT id, name, type, hourly_rate, is_occupied, current_session, category, event_enabled, slot_duration, created_at, updated_at
		FROM stations
		ORDER BY name, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StationRecord
	for rows.Next() {
		var rec StationRecord
		var snapshot sql.NullString
		if err := rows.Scan(
			&rec.Station.ID,
			&rec.Station.Name,
			&rec.Station.Type,
			&rec.Station.HourlyRate,
			&rec.Station.IsOccupied,
			&snapshot,
			&rec.Station.Category,
			&rec.Station.EventEnabled,
			&rec.Station.SlotDuration,
			&rec.Station.CreatedAt,
			&rec.Station.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if snapshot.Valid {
			rec.Snapshot = []byte(snapshot.String)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Create persists a new station.
func (r *StationRepository) Create(ctx context.Context, station *models.Station) error {
	const query = `
		INSERT INTO stations (id, name, type, hourly_rate, is_occupied, category, event_enabled, slot_duration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		station.ID,
		station.Name,
		station.Type,
		station.HourlyRate,
		station.Category,
		station.EventEnabled,
		station.SlotDuration,
	).Scan(&station.CreatedAt, &station.UpdatedAt)
}

// Update writes name and hourly rate.
func (r *StationRepository) Update(ctx context.Context, id, name string, hourlyRate decimal.Decimal) error {
	const query = `
		UPDATE stations
		SET name = $2, hourly_rate = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, name, hourlyRate)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetOccupancy writes the derived occupancy flag and session snapshot.
// A nil session clears the snapshot.
func (r *StationRepository) SetOccupancy(ctx context.Context, id string, occupied bool, session *models.Session) error {
	var snapshot interface{}
	if session != nil {
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("store: encode session snapshot: %w", err)
		}
		snapshot = string(data)
	}

	const query = `
		UPDATE stations
		SET is_occupied = $2, current_session = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, occupied, snapshot)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes the station row.
func (r *StationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
