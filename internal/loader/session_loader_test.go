package loader

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/cache"
	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/notify"
)

func newSessionLoaderForTest(store *fakeSessionStore, c *memCache, bus *fakeBus, sink *captureSink) *SessionLoader {
	return NewSessionLoader(store, c, bus, sink, zap.NewNop(), 100, 50*time.Millisecond, NewRealClock())
}

func sessionRow(id, stationID string, active bool) models.Session {
	s := models.Session{
		ID:        id,
		StationID: stationID,
		StartTime: time.Now().Add(-time.Hour),
		CreatedAt: time.Now(),
	}
	if !active {
		end := time.Now()
		s.EndTime = &end
	}
	return s
}

func TestSessionLoaderRefreshReplacesCollection(t *testing.T) {
	store := &fakeSessionStore{rows: []models.Session{
		sessionRow("t2", "s2", true),
		sessionRow("t1", "s1", false),
	}}
	c := newMemCache()
	sink := &captureSink{}
	l := newSessionLoaderForTest(store, c, &fakeBus{}, sink)

	require.NoError(t, l.Refresh(context.Background(), false))
	sessions := l.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "t2", sessions[0].ID, "newest first")
	assert.True(t, c.has(cache.KeySessions), "refresh writes the cache")
}

func TestSessionLoaderRefreshDeduplicates(t *testing.T) {
	store := &fakeSessionStore{rows: []models.Session{
		sessionRow("t1", "s1", true),
		sessionRow("t1", "s1", true),
		sessionRow("t2", "s2", true),
	}}
	l := newSessionLoaderForTest(store, newMemCache(), &fakeBus{}, &captureSink{})

	require.NoError(t, l.Refresh(context.Background(), false))
	require.Len(t, l.Sessions(), 2)
}

func TestSessionLoaderLoadServesCacheWithoutStoreRead(t *testing.T) {
	c := newMemCache()
	require.NoError(t, c.Set(context.Background(), cache.KeySessions, []models.Session{
		sessionRow("cached", "s1", true),
	}))

	store := &fakeSessionStore{}
	l := newSessionLoaderForTest(store, c, &fakeBus{}, &captureSink{})

	require.NoError(t, l.Load(context.Background()))
	require.Len(t, l.Sessions(), 1)
	assert.Equal(t, "cached", l.Sessions()[0].ID)
	assert.Equal(t, 0, store.listCount(), "fresh cache must not hit the store")
}

func TestSessionLoaderStaleCacheTriggersSilentRefresh(t *testing.T) {
	c := newMemCache()
	require.NoError(t, c.Set(context.Background(), cache.KeySessions, []models.Session{
		sessionRow("cached", "s1", true),
	}))
	c.markStale(cache.KeySessions)

	store := &fakeSessionStore{rows: []models.Session{sessionRow("fresh", "s1", true)}}
	sink := &captureSink{}
	l := newSessionLoaderForTest(store, c, &fakeBus{}, sink)

	require.NoError(t, l.Load(context.Background()))
	// Cached data serves synchronously.
	require.Equal(t, "cached", l.Sessions()[0].ID)

	waitFor(t, time.Second, func() bool {
		s := l.Sessions()
		return len(s) == 1 && s[0].ID == "fresh"
	})
	assert.Equal(t, 0, sink.count(notify.KindError), "silent refresh shows no errors")
}

func TestSessionLoaderRefreshFailureKeepsCollection(t *testing.T) {
	store := &fakeSessionStore{rows: []models.Session{sessionRow("t1", "s1", true)}}
	sink := &captureSink{}
	l := newSessionLoaderForTest(store, newMemCache(), &fakeBus{}, sink)
	require.NoError(t, l.Refresh(context.Background(), false))

	store.mu.Lock()
	store.listErr = errors.New("network down")
	store.mu.Unlock()

	err := l.Refresh(context.Background(), false)
	require.Error(t, err)
	assert.Len(t, l.Sessions(), 1, "previous collection untouched")
	assert.Equal(t, 1, sink.count(notify.KindError), "user-initiated failure notifies")

	err = l.Refresh(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, 1, sink.count(notify.KindError), "silent failure is logged only")
}

func TestSessionLoaderPushEventsDebounceIntoOneRefresh(t *testing.T) {
	store := &fakeSessionStore{rows: []models.Session{sessionRow("t1", "s1", true)}}
	bus := &fakeBus{}
	l := newSessionLoaderForTest(store, newMemCache(), bus, &captureSink{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(ctx, pushEvent()))
	}

	waitFor(t, time.Second, func() bool { return store.listCount() == 1 })
	// Settle: no further refreshes arrive from the burst.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, store.listCount())
}

func TestSessionLoaderDeleteSession(t *testing.T) {
	store := &fakeSessionStore{rows: []models.Session{
		sessionRow("t1", "s1", true),
		sessionRow("t2", "s2", true),
	}}
	c := newMemCache()
	sink := &captureSink{}
	l := newSessionLoaderForTest(store, c, &fakeBus{}, sink)
	require.NoError(t, l.Refresh(context.Background(), false))

	require.NoError(t, l.DeleteSession(context.Background(), "t1"))
	require.Len(t, l.Sessions(), 1)
	assert.Equal(t, "t2", l.Sessions()[0].ID)
	assert.False(t, c.has(cache.KeySessions), "delete invalidates the cache")
	assert.Equal(t, []string{"t1"}, store.deleted)
}

func TestSessionLoaderDeleteFailureLeavesCollection(t *testing.T) {
	store := &fakeSessionStore{
		rows:   []models.Session{sessionRow("t1", "s1", true)},
		delErr: errors.New("store refused"),
	}
	sink := &captureSink{}
	l := newSessionLoaderForTest(store, newMemCache(), &fakeBus{}, sink)
	require.NoError(t, l.Refresh(context.Background(), false))

	require.Error(t, l.DeleteSession(context.Background(), "t1"))
	assert.Len(t, l.Sessions(), 1)
	assert.Equal(t, 1, sink.count(notify.KindError))
}
