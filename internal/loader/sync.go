package loader

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/monitoring"
	"github.com/Axeist/cuephoria-pos/internal/reconcile"
)

// Syncer runs the reconciliation pass whenever the session collection
// changes or the station collection changes length, keeping occupancy
// derived state consistent with the live session list.
type Syncer struct {
	stations *StationLoader
	sessions *SessionLoader
	logger   *zap.Logger

	mu        sync.Mutex
	broadcast func([]*models.Station)
}

// NewSyncer binds the two loaders together.
func NewSyncer(stations *StationLoader, sessions *SessionLoader, logger *zap.Logger) *Syncer {
	s := &Syncer{stations: stations, sessions: sessions, logger: logger}
	sessions.OnChange(s.Run)
	stations.OnChange(func(lengthChanged bool) {
		if lengthChanged {
			s.Run()
		}
	})
	return s
}

// OnReconciled registers a consumer of the settled station collection,
// typically the dashboard broadcast.
func (s *Syncer) OnReconciled(fn func([]*models.Station)) {
	s.broadcast = fn
}

// Run executes one reconciliation pass. Passes are serialized; the pass
// itself is pure and cannot fail.
func (s *Syncer) Run() {
	s.mu.Lock()
	defer s.mu.Unlock()

	stations := s.stations.Stations()
	sessions := s.sessions.Sessions()
	next, changed := reconcile.Pass(stations, sessions, s.logger)
	monitoring.ObserveReconcile(changed)
	if changed {
		s.stations.Apply(next)
	}
	if s.broadcast != nil {
		s.broadcast(next)
	}
}
