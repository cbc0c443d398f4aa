package reconcile

import (
	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/models"
)

// Pass recomputes each station's occupancy flag and attached session from the
// live session collection. Stations that are already correct are returned as
// the same pointer, untouched; only stations whose derived state differs get
// a fresh value. That compare-before-write is the correctness mechanism: an
// optimistic end-session already cleared the station, and a pass running over
// a momentarily stale active-session list must not re-attach the just-ended
// session.
//
// The returned bool reports whether any station changed.
func Pass(stations []*models.Station, sessions []*models.Session, logger *zap.Logger) ([]*models.Station, bool) {
	active := make(map[string]*models.Session)
	for _, session := range sessions {
		if !session.IsActive() {
			continue
		}
		if prev, ok := active[session.StationID]; ok {
			// Two active sessions on one station is a data error. Last write
			// wins here; the store is left alone for an operator to inspect.
			logger.Error("multiple active sessions for station",
				zap.String("station_id", session.StationID),
				zap.String("kept", session.ID),
				zap.String("dropped", prev.ID))
		}
		active[session.StationID] = session
	}

	result := make([]*models.Station, len(stations))
	changed := false
	for i, station := range stations {
		session, ok := active[station.ID]
		if ok {
			if station.IsOccupied && station.CurrentSession != nil && station.CurrentSession.ID == session.ID {
				result[i] = station
				continue
			}
			if !station.IsOccupied && station.CurrentSession == nil {
				// A manual end-session cleared this station before the session
				// collection caught up. Re-occupying here would undo the
				// operator's action with a stale read; the next session refresh
				// settles it.
				result[i] = station
				continue
			}
			next := station.Clone()
			next.IsOccupied = true
			sessionCopy := *session
			next.CurrentSession = &sessionCopy
			result[i] = next
			changed = true
			continue
		}

		if !station.IsOccupied && station.CurrentSession == nil {
			result[i] = station
			continue
		}
		next := station.Clone()
		next.IsOccupied = false
		next.CurrentSession = nil
		result[i] = next
		changed = true
	}

	return result, changed
}
