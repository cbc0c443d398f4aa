package loader

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/notify"
	"github.com/Axeist/cuephoria-pos/internal/push"
	"github.com/Axeist/cuephoria-pos/internal/store"
)

// memCache is an in-memory CollectionCache with a controllable staleness
// answer.
type memCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	stale map[string]bool
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), stale: make(map[string]bool)}
}

func (c *memCache) Get(_ context.Context, name string, out interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[name]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, out)
}

func (c *memCache) Set(_ context.Context, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[name] = data
	c.stale[name] = false
	c.mu.Unlock()
	return nil
}

func (c *memCache) IsStale(_ context.Context, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale[name]
}

func (c *memCache) Invalidate(_ context.Context, name string) error {
	c.mu.Lock()
	delete(c.data, name)
	c.mu.Unlock()
	return nil
}

func (c *memCache) markStale(name string) {
	c.mu.Lock()
	c.stale[name] = true
	c.mu.Unlock()
}

func (c *memCache) has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[name]
	return ok
}

// fakeSessionStore serves scripted session lists.
type fakeSessionStore struct {
	mu       sync.Mutex
	rows     []models.Session
	listErr  error
	delErr   error
	listed   int
	deleted  []string
}

func (f *fakeSessionStore) ListRecent(_ context.Context, limit int) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.rows) > limit {
		return append([]models.Session(nil), f.rows[:limit]...), nil
	}
	return append([]models.Session(nil), f.rows...), nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSessionStore) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed
}

// fakeStationStore serves a station table through the paged interface.
type fakeStationStore struct {
	mu      sync.Mutex
	records []store.StationRecord
	listErr error
	updated []string
	deleted []string
	delErr  error
	listed  int
}

func (f *fakeStationStore) ListPage(_ context.Context, limit, offset int) ([]store.StationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offset == 0 {
		f.listed++
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	return append([]store.StationRecord(nil), f.records[offset:end]...), nil
}

func (f *fakeStationStore) Update(_ context.Context, id, name string, hourlyRate decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, id)
	return nil
}

func (f *fakeStationStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStationStore) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed
}

// fakeHistory answers the station-deletion integrity questions.
type fakeHistory struct {
	sessions int
	billed   int
}

func (f *fakeHistory) CountByStation(context.Context, string) (int, error) {
	return f.sessions, nil
}

func (f *fakeHistory) CountItemsForStationSessions(context.Context, string) (int, error) {
	return f.billed, nil
}

// fakeBus is an in-process push channel.
type fakeBus struct {
	mu   sync.Mutex
	subs []chan push.RowEvent
}

func (f *fakeBus) Publish(_ context.Context, event push.RowEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		ch <- event
	}
	return nil
}

func (f *fakeBus) Subscribe(_ context.Context, _ string) (<-chan push.RowEvent, func()) {
	ch := make(chan push.RowEvent, 32)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch, func() {}
}

// captureSink records notifications for assertions.
type captureSink struct {
	mu       sync.Mutex
	messages []string
	kinds    []notify.Kind
}

func (s *captureSink) Notify(kind notify.Kind, message string) {
	s.mu.Lock()
	s.kinds = append(s.kinds, kind)
	s.messages = append(s.messages, message)
	s.mu.Unlock()
}

func (s *captureSink) count(kind notify.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func pushEvent() push.RowEvent {
	return push.RowEvent{Table: push.TableSessions, Type: push.EventInsert, RowID: "row"}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
