package loader

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/cache"
	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/notify"
	"github.com/Axeist/cuephoria-pos/internal/push"
	"github.com/Axeist/cuephoria-pos/internal/store"
)

// Remote-store primary keys are UUIDs; the deletion guards only run for them.
const stationUUID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

func stationRecord(id string, snapshot []byte) store.StationRecord {
	return store.StationRecord{
		Station: models.Station{
			ID:         id,
			Name:       "Station " + id,
			Type:       models.StationTypePoolTable,
			HourlyRate: decimal.NewFromInt(200),
		},
		Snapshot: snapshot,
	}
}

func newStationLoaderForTest(st *fakeStationStore, history *fakeHistory, c *memCache, sink *captureSink, pageSize int) *StationLoader {
	return NewStationLoader(st, history, history, c, &fakeBus{}, sink, zap.NewNop(), pageSize, 10*time.Millisecond, NewRealClock())
}

func TestStationLoaderPaginationComplete(t *testing.T) {
	for _, tc := range []struct {
		total    int
		pageSize int
	}{
		{total: 0, pageSize: 10},
		{total: 7, pageSize: 10},
		{total: 10, pageSize: 10},
		{total: 23, pageSize: 10},
		{total: 30, pageSize: 10},
		{total: 5, pageSize: 1},
	} {
		t.Run(fmt.Sprintf("%d_rows_page_%d", tc.total, tc.pageSize), func(t *testing.T) {
			st := &fakeStationStore{}
			for i := 0; i < tc.total; i++ {
				st.records = append(st.records, stationRecord(fmt.Sprintf("s%03d", i), nil))
			}
			l := newStationLoaderForTest(st, &fakeHistory{}, newMemCache(), &captureSink{}, tc.pageSize)

			require.NoError(t, l.Refresh(context.Background(), false))

			stations := l.Stations()
			require.Len(t, stations, tc.total)
			seen := make(map[string]bool, tc.total)
			for _, s := range stations {
				require.False(t, seen[s.ID], "duplicate station %s", s.ID)
				seen[s.ID] = true
			}
		})
	}
}

func TestStationLoaderParsesSnapshots(t *testing.T) {
	good := []byte(`{"id":"t1","station_id":"s1","startTime":"2025-06-01T10:00:00Z","hourlyRate":150}`)
	malformed := []byte(`{"id":`)

	st := &fakeStationStore{records: []store.StationRecord{
		stationRecord("s1", good),
		stationRecord("s2", malformed),
		stationRecord("s3", nil),
	}}
	l := newStationLoaderForTest(st, &fakeHistory{}, newMemCache(), &captureSink{}, 50)

	require.NoError(t, l.Refresh(context.Background(), false))
	stations := l.Stations()
	require.Len(t, stations, 3, "malformed snapshot must not drop the row")

	require.NotNil(t, stations[0].CurrentSession)
	assert.Equal(t, "t1", stations[0].CurrentSession.ID)
	assert.Nil(t, stations[1].CurrentSession, "malformed snapshot degrades to absent")
	assert.Nil(t, stations[2].CurrentSession)
}

func TestStationLoaderUpdateStation(t *testing.T) {
	st := &fakeStationStore{records: []store.StationRecord{stationRecord("s1", nil)}}
	sink := &captureSink{}
	l := newStationLoaderForTest(st, &fakeHistory{}, newMemCache(), sink, 50)
	require.NoError(t, l.Refresh(context.Background(), false))

	newRate := decimal.NewFromInt(250)
	require.NoError(t, l.UpdateStation(context.Background(), "s1", "Renamed", newRate))

	got := l.Get("s1")
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.HourlyRate.Equal(newRate))
	assert.Equal(t, []string{"s1"}, st.updated)
	assert.Equal(t, 1, sink.count(notify.KindSuccess))
}

func TestStationLoaderUpdateUnknownStation(t *testing.T) {
	l := newStationLoaderForTest(&fakeStationStore{}, &fakeHistory{}, newMemCache(), &captureSink{}, 50)
	err := l.UpdateStation(context.Background(), "missing", "x", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrStationUnknown)
}

func TestStationLoaderDeleteRefusesOccupied(t *testing.T) {
	st := &fakeStationStore{records: []store.StationRecord{stationRecord(stationUUID, nil)}}
	sink := &captureSink{}
	l := newStationLoaderForTest(st, &fakeHistory{}, newMemCache(), sink, 50)
	require.NoError(t, l.Refresh(context.Background(), false))

	_, err := l.SetCurrentSession(stationUUID, &models.Session{ID: "t1", StationID: stationUUID})
	require.NoError(t, err)

	err = l.DeleteStation(context.Background(), stationUUID)
	assert.ErrorIs(t, err, ErrStationOccupied)
	assert.Len(t, l.Stations(), 1, "collection unchanged on refusal")
	assert.Empty(t, st.deleted)
}

func TestStationLoaderDeleteRefusesBilledHistory(t *testing.T) {
	st := &fakeStationStore{records: []store.StationRecord{stationRecord(stationUUID, nil)}}
	history := &fakeHistory{sessions: 4, billed: 3}
	sink := &captureSink{}
	l := newStationLoaderForTest(st, history, newMemCache(), sink, 50)
	require.NoError(t, l.Refresh(context.Background(), false))

	err := l.DeleteStation(context.Background(), stationUUID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3", "error reports the bill item count")
	assert.Len(t, l.Stations(), 1)
	assert.Empty(t, st.deleted)
}

func TestStationLoaderDeleteRefusesUnbilledHistory(t *testing.T) {
	st := &fakeStationStore{records: []store.StationRecord{stationRecord(stationUUID, nil)}}
	history := &fakeHistory{sessions: 2}
	l := newStationLoaderForTest(st, history, newMemCache(), &captureSink{}, 50)
	require.NoError(t, l.Refresh(context.Background(), false))

	err := l.DeleteStation(context.Background(), stationUUID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2", "error reports the session count")
	assert.Empty(t, st.deleted, "the loader never cascade-deletes")
}

func TestStationLoaderDeleteSucceedsWhenClean(t *testing.T) {
	st := &fakeStationStore{records: []store.StationRecord{stationRecord(stationUUID, nil)}}
	c := newMemCache()
	l := newStationLoaderForTest(st, &fakeHistory{}, c, &captureSink{}, 50)
	require.NoError(t, l.Refresh(context.Background(), false))

	require.NoError(t, l.DeleteStation(context.Background(), stationUUID))
	assert.Empty(t, l.Stations())
	assert.Equal(t, []string{stationUUID}, st.deleted)
	assert.True(t, c.has(cache.KeyStations), "cache rewritten after mutation")
}

func TestStationLoaderOptimisticTransitionAndRollback(t *testing.T) {
	st := &fakeStationStore{records: []store.StationRecord{stationRecord("s1", nil)}}
	l := newStationLoaderForTest(st, &fakeHistory{}, newMemCache(), &captureSink{}, 50)
	require.NoError(t, l.Refresh(context.Background(), false))

	prev, err := l.SetCurrentSession("s1", &models.Session{ID: "t1", StationID: "s1"})
	require.NoError(t, err)
	require.True(t, l.Get("s1").IsOccupied)

	l.Replace(prev)
	restored := l.Get("s1")
	assert.Same(t, prev, restored, "rollback restores the exact prior value")
	assert.False(t, restored.IsOccupied)
}

func TestStationLoaderPushEventTriggersSilentRefresh(t *testing.T) {
	st := &fakeStationStore{records: []store.StationRecord{stationRecord("a1", nil)}}
	bus := &fakeBus{}
	sink := &captureSink{}
	l := NewStationLoader(st, &fakeHistory{}, &fakeHistory{}, newMemCache(), bus, sink, zap.NewNop(), 50, 10*time.Millisecond, NewRealClock())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)

	before := st.listCount()
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(ctx, push.RowEvent{Table: push.TableStations, Type: push.EventUpdate, RowID: "a1"}))
	}

	waitFor(t, time.Second, func() bool { return st.listCount() == before+1 })
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before+1, st.listCount(), "event burst coalesces into one refresh")
	assert.Equal(t, 0, sink.count(notify.KindError), "push refreshes are silent")
	assert.NotNil(t, l.Get("a1"))
}
