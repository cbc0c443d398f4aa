package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Station types supported by the lounge.
const (
	StationTypeConsole   = "console"
	StationTypePoolTable = "pool-table"
	StationTypeVR        = "vr"
)

// Station is a billable physical resource (console, pool table, VR rig).
// IsOccupied and CurrentSession are derived from the live session collection
// and kept consistent by the reconciler.
type Station struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Type           string          `db:"type" json:"type"`
	HourlyRate     decimal.Decimal `db:"hourly_rate" json:"hourly_rate"`
	IsOccupied     bool            `db:"is_occupied" json:"is_occupied"`
	CurrentSession *Session        `db:"-" json:"current_session,omitempty"`
	Category       string          `db:"category" json:"category"`
	EventEnabled   bool            `db:"event_enabled" json:"event_enabled"`
	SlotDuration   int             `db:"slot_duration" json:"slot_duration"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy suitable for optimistic-update rollback.
func (s *Station) Clone() *Station {
	if s == nil {
		return nil
	}
	dup := *s
	if s.CurrentSession != nil {
		sessionCopy := *s.CurrentSession
		dup.CurrentSession = &sessionCopy
	}
	return &dup
}
