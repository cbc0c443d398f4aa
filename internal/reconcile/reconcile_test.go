package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/models"
)

func station(id string, occupied bool, current *models.Session) *models.Station {
	return &models.Station{
		ID:         id,
		Name:       "Station " + id,
		Type:       models.StationTypeConsole,
		HourlyRate: decimal.NewFromInt(100),
		IsOccupied: occupied,
		CurrentSession: current,
	}
}

func activeSession(id, stationID string) *models.Session {
	return &models.Session{
		ID:        id,
		StationID: stationID,
		StartTime: time.Now().Add(-time.Hour),
	}
}

func endedSession(id, stationID string) *models.Session {
	s := activeSession(id, stationID)
	end := time.Now()
	s.EndTime = &end
	return s
}

func TestPassAttachesActiveSession(t *testing.T) {
	stations := []*models.Station{station("s1", true, nil)}
	sessions := []*models.Session{activeSession("t1", "s1")}

	result, changed := Pass(stations, sessions, zap.NewNop())
	if !changed {
		t.Fatalf("expected change")
	}
	if !result[0].IsOccupied {
		t.Fatalf("expected occupied station")
	}
	if result[0].CurrentSession == nil || result[0].CurrentSession.ID != "t1" {
		t.Fatalf("expected session t1 attached, got %+v", result[0].CurrentSession)
	}
	if result[0] == stations[0] {
		t.Fatalf("changed station must be a new value")
	}
}

func TestPassClearsEndedSession(t *testing.T) {
	current := activeSession("t1", "s1")
	stations := []*models.Station{station("s1", true, current)}
	sessions := []*models.Session{endedSession("t1", "s1")}

	result, changed := Pass(stations, sessions, zap.NewNop())
	if !changed {
		t.Fatalf("expected change")
	}
	if result[0].IsOccupied || result[0].CurrentSession != nil {
		t.Fatalf("expected cleared station, got %+v", result[0])
	}
}

func TestPassIdempotence(t *testing.T) {
	stations := []*models.Station{
		station("s1", true, nil),
		station("s2", false, nil),
		station("s3", true, activeSession("t3", "s3")),
	}
	sessions := []*models.Session{
		activeSession("t1", "s1"),
		activeSession("t3", "s3"),
		endedSession("t9", "s2"),
	}

	first, changed := Pass(stations, sessions, zap.NewNop())
	if !changed {
		t.Fatalf("first pass should change s1")
	}

	second, changed := Pass(first, sessions, zap.NewNop())
	if changed {
		t.Fatalf("second pass must be a no-op")
	}
	for i := range first {
		if second[i] != first[i] {
			t.Fatalf("station %d: second pass must preserve pointer identity", i)
		}
	}
}

func TestPassInvariant(t *testing.T) {
	stations := []*models.Station{
		station("s1", false, nil),
		station("s2", true, activeSession("stale", "s2")),
		station("s3", true, nil),
		station("s4", false, nil),
	}
	sessions := []*models.Session{
		activeSession("t2", "s2"),
		activeSession("t3", "s3"),
		endedSession("t4", "s4"),
	}

	result, _ := Pass(stations, sessions, zap.NewNop())
	for _, st := range result {
		if st.IsOccupied != (st.CurrentSession != nil) {
			t.Fatalf("station %s: occupancy flag disagrees with attached session", st.ID)
		}
		if st.CurrentSession != nil {
			if st.CurrentSession.StationID != st.ID {
				t.Fatalf("station %s: attached session belongs to %s", st.ID, st.CurrentSession.StationID)
			}
			if !st.CurrentSession.IsActive() {
				t.Fatalf("station %s: attached session already ended", st.ID)
			}
		}
	}
}

func TestPassDoesNotReoccupyManuallyFreedStation(t *testing.T) {
	// End-session cleared the station optimistically, but the session
	// collection still lists the session as active (stale read).
	freed := station("s1", false, nil)
	stations := []*models.Station{freed}
	sessions := []*models.Session{activeSession("t1", "s1")}

	result, changed := Pass(stations, sessions, zap.NewNop())
	if changed {
		t.Fatalf("pass must not fight the manual transition")
	}
	if result[0] != freed {
		t.Fatalf("freed station must come back unchanged")
	}
}

func TestPassDuplicateActiveSessionsLastWriteWins(t *testing.T) {
	stations := []*models.Station{station("s1", true, nil)}
	sessions := []*models.Session{
		activeSession("t1", "s1"),
		activeSession("t2", "s1"),
	}

	result, changed := Pass(stations, sessions, zap.NewNop())
	if !changed {
		t.Fatalf("expected change")
	}
	if result[0].CurrentSession == nil || result[0].CurrentSession.ID != "t2" {
		t.Fatalf("expected last session to win, got %+v", result[0].CurrentSession)
	}
}

func TestPassLeavesUnrelatedMetadataAlone(t *testing.T) {
	st := station("s1", true, nil)
	st.Category = "premium"
	st.EventEnabled = true
	st.SlotDuration = 45

	result, _ := Pass([]*models.Station{st}, []*models.Session{activeSession("t1", "s1")}, zap.NewNop())
	got := result[0]
	if got.Category != "premium" || !got.EventEnabled || got.SlotDuration != 45 {
		t.Fatalf("booking metadata must survive reconciliation, got %+v", got)
	}
}
