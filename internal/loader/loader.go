package loader

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/store"
)

// SessionStore is the remote-store surface the session loader needs.
type SessionStore interface {
	ListRecent(ctx context.Context, limit int) ([]models.Session, error)
	Delete(ctx context.Context, id string) error
}

// StationStore is the remote-store surface the station loader needs.
type StationStore interface {
	ListPage(ctx context.Context, limit, offset int) ([]store.StationRecord, error)
	Update(ctx context.Context, id, name string, hourlyRate decimal.Decimal) error
	Delete(ctx context.Context, id string) error
}

// SessionHistory answers referential-integrity questions before a station
// can be deleted.
type SessionHistory interface {
	CountByStation(ctx context.Context, stationID string) (int, error)
}

// BillHistory counts bill line items referencing a station's sessions.
type BillHistory interface {
	CountItemsForStationSessions(ctx context.Context, stationID string) (int, error)
}

// CollectionCache is the local cache surface shared by both loaders.
type CollectionCache interface {
	Get(ctx context.Context, name string, out interface{}) (bool, error)
	Set(ctx context.Context, name string, value interface{}) error
	IsStale(ctx context.Context, name string) bool
	Invalidate(ctx context.Context, name string) error
}

func toPointers(sessions []models.Session) []*models.Session {
	out := make([]*models.Session, 0, len(sessions))
	for i := range sessions {
		s := sessions[i]
		out = append(out, &s)
	}
	return out
}

func fromPointers(sessions []*models.Session) []models.Session {
	out := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, *s)
	}
	return out
}
