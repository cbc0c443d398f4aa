package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/cache"
	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/monitoring"
	"github.com/Axeist/cuephoria-pos/internal/notify"
	"github.com/Axeist/cuephoria-pos/internal/push"
	"github.com/Axeist/cuephoria-pos/internal/store"
)

// Deletion guard failures. These are expected user-triggerable conditions,
// not bugs, so they come back as plain errors with a descriptive message.
var (
	ErrStationOccupied = errors.New("loader: station is occupied")
	ErrStationUnknown  = errors.New("loader: station not found")
)

// StationLoader owns the in-memory station collection.
type StationLoader struct {
	store    StationStore
	history  SessionHistory
	billing  BillHistory
	cache    CollectionCache
	bus      push.Subscriber
	sink     notify.Sink
	logger   *zap.Logger
	pageSize int

	debouncer *Debouncer

	mu       sync.RWMutex
	stations []*models.Station

	onChange func(lengthChanged bool)
}

// NewStationLoader builds the loader. The debounce window coalesces bursts
// of push-channel events into one silent refresh, as for sessions.
func NewStationLoader(
	stationStore StationStore,
	history SessionHistory,
	billing BillHistory,
	collectionCache CollectionCache,
	bus push.Subscriber,
	sink notify.Sink,
	logger *zap.Logger,
	pageSize int,
	debounceWindow time.Duration,
	clock Clock,
) *StationLoader {
	if pageSize <= 0 {
		pageSize = 50
	}
	l := &StationLoader{
		store:    stationStore,
		history:  history,
		billing:  billing,
		cache:    collectionCache,
		bus:      bus,
		sink:     sink,
		logger:   logger,
		pageSize: pageSize,
	}
	l.debouncer = NewDebouncer(debounceWindow, clock, l.refreshFromPush)
	return l
}

// Load serves the cached collection first, then refreshes, mirroring the
// session loader's cache-first behavior.
func (l *StationLoader) Load(ctx context.Context) error {
	var cached []models.Station
	ok, err := l.cache.Get(ctx, cache.KeyStations, &cached)
	if err != nil {
		l.logger.Warn("station cache read failed", zap.Error(err))
	}
	if ok && len(cached) > 0 {
		l.replace(stationPointers(cached))
		if l.cache.IsStale(ctx, cache.KeyStations) {
			go func() {
				if err := l.Refresh(context.Background(), true); err != nil {
					l.logger.Warn("background station refresh failed", zap.Error(err))
				}
			}()
		}
		return nil
	}
	return l.Refresh(ctx, false)
}

// Refresh fetches the full station list page by page until a short page
// signals the end, so no single-request row cap can truncate the list.
func (l *StationLoader) Refresh(ctx context.Context, silent bool) error {
	var stations []*models.Station
	for offset := 0; ; offset += l.pageSize {
		page, err := l.store.ListPage(ctx, l.pageSize, offset)
		if err != nil {
			monitoring.ObserveRefresh(cache.KeyStations, silent, err)
			if silent {
				l.logger.Warn("silent station refresh failed", zap.Error(err))
			} else {
				l.logger.Error("station refresh failed", zap.Error(err))
				l.sink.Notify(notify.KindError, "Failed to load stations")
			}
			return err
		}
		for _, rec := range page {
			stations = append(stations, l.decodeRecord(rec))
		}
		if len(page) < l.pageSize {
			break
		}
	}
	monitoring.ObserveRefresh(cache.KeyStations, silent, nil)

	l.replace(stations)

	if err := l.cache.Set(ctx, cache.KeyStations, stationValues(stations)); err != nil {
		l.logger.Warn("station cache write failed", zap.Error(err))
	}
	return nil
}

// Start subscribes to the station row-change channel so edits made by
// another terminal (or directly in the store) show up without a manual
// reload. Every event schedules a silent refresh one debounce window after
// the last event.
func (l *StationLoader) Start(ctx context.Context) {
	events, cancel := l.bus.Subscribe(ctx, push.TableStations)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				l.debouncer.Stop()
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				monitoring.ObservePushEvent(event.Table, event.Type)
				l.debouncer.Trigger()
			}
		}
	}()
}

func (l *StationLoader) refreshFromPush() {
	if err := l.Refresh(context.Background(), true); err != nil {
		l.logger.Warn("push-triggered station refresh failed", zap.Error(err))
	}
}

// decodeRecord turns a station row into the entity, parsing the embedded
// session snapshot defensively. A malformed snapshot degrades to "no current
// session" so one bad row cannot block the rest of the list.
func (l *StationLoader) decodeRecord(rec store.StationRecord) *models.Station {
	station := rec.Station
	session, err := models.ParseSessionSnapshot(rec.Snapshot)
	switch {
	case err == nil:
		station.CurrentSession = session
	case errors.Is(err, models.ErrEmptySnapshot):
		station.CurrentSession = nil
	default:
		l.logger.Warn("malformed session snapshot on station",
			zap.String("station_id", station.ID), zap.Error(err))
		station.CurrentSession = nil
	}
	return &station
}

// UpdateStation writes name and hourly rate remotely, then updates the
// in-memory entity.
func (l *StationLoader) UpdateStation(ctx context.Context, id, name string, hourlyRate decimal.Decimal) error {
	l.mu.RLock()
	_, exists := l.find(id)
	l.mu.RUnlock()
	if !exists {
		l.sink.Notify(notify.KindError, "Station not found")
		return ErrStationUnknown
	}

	if err := l.store.Update(ctx, id, name, hourlyRate); err != nil {
		l.logger.Error("update station failed", zap.String("station_id", id), zap.Error(err))
		l.sink.Notify(notify.KindError, "Failed to update station")
		return err
	}

	l.mu.Lock()
	if idx, ok := l.find(id); ok {
		next := l.stations[idx].Clone()
		next.Name = name
		next.HourlyRate = hourlyRate
		l.stations[idx] = next
	}
	l.mu.Unlock()

	if err := l.cache.Set(ctx, cache.KeyStations, l.values()); err != nil {
		l.logger.Warn("station cache write failed", zap.Error(err))
	}
	l.sink.Notify(notify.KindSuccess, "Station updated")
	l.notifyChange(false)
	return nil
}

// DeleteStation removes a station after the integrity guards pass: the
// station must be unoccupied, and no historical session of the station may
// remain, let alone one referenced by a bill line item. The loader never
// cascade-deletes.
func (l *StationLoader) DeleteStation(ctx context.Context, id string) error {
	l.mu.RLock()
	idx, exists := l.find(id)
	var occupied bool
	if exists {
		occupied = l.stations[idx].IsOccupied
	}
	l.mu.RUnlock()

	if !exists {
		l.sink.Notify(notify.KindError, "Station not found")
		return ErrStationUnknown
	}
	if occupied {
		l.sink.Notify(notify.KindError, "Cannot delete an occupied station")
		return ErrStationOccupied
	}

	// Only remote-store primary keys can have remote history. Locally minted
	// identifiers skip the checks and only exist in memory until first sync.
	if uuid.Validate(id) == nil {
		billed, err := l.billing.CountItemsForStationSessions(ctx, id)
		if err != nil {
			l.logger.Error("bill reference check failed", zap.String("station_id", id), zap.Error(err))
			l.sink.Notify(notify.KindError, "Failed to check bill references")
			return err
		}
		if billed > 0 {
			msg := fmt.Sprintf("Station has %d billed session item(s); deletion refused", billed)
			l.sink.Notify(notify.KindError, msg)
			return fmt.Errorf("loader: %d bill items reference this station's sessions", billed)
		}

		historical, err := l.history.CountByStation(ctx, id)
		if err != nil {
			l.logger.Error("session history check failed", zap.String("station_id", id), zap.Error(err))
			l.sink.Notify(notify.KindError, "Failed to check session history")
			return err
		}
		if historical > 0 {
			msg := fmt.Sprintf("Station has %d historical session(s); remove them first", historical)
			l.sink.Notify(notify.KindError, msg)
			return fmt.Errorf("loader: %d sessions reference this station", historical)
		}

		if err := l.store.Delete(ctx, id); err != nil {
			l.logger.Error("delete station failed", zap.String("station_id", id), zap.Error(err))
			l.sink.Notify(notify.KindError, "Failed to delete station")
			return err
		}
	}

	l.mu.Lock()
	if idx, ok := l.find(id); ok {
		l.stations = append(l.stations[:idx], l.stations[idx+1:]...)
	}
	l.mu.Unlock()

	if err := l.cache.Set(ctx, cache.KeyStations, l.values()); err != nil {
		l.logger.Warn("station cache write failed", zap.Error(err))
	}
	l.sink.Notify(notify.KindSuccess, "Station deleted")
	l.notifyChange(true)
	return nil
}

// Get returns the current in-memory station pointer.
func (l *StationLoader) Get(id string) *models.Station {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx, ok := l.find(id); ok {
		return l.stations[idx]
	}
	return nil
}

// Stations returns a copy of the collection slice.
func (l *StationLoader) Stations() []*models.Station {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Station, len(l.stations))
	copy(out, l.stations)
	return out
}

// SetCurrentSession applies an optimistic occupancy transition and returns
// the prior value for rollback. A nil session clears the station.
func (l *StationLoader) SetCurrentSession(stationID string, session *models.Session) (*models.Station, error) {
	l.mu.Lock()
	idx, ok := l.find(stationID)
	if !ok {
		l.mu.Unlock()
		return nil, ErrStationUnknown
	}
	prev := l.stations[idx]
	next := prev.Clone()
	if session != nil {
		next.IsOccupied = true
		sessionCopy := *session
		next.CurrentSession = &sessionCopy
	} else {
		next.IsOccupied = false
		next.CurrentSession = nil
	}
	l.stations[idx] = next
	l.mu.Unlock()
	l.notifyChange(false)
	return prev, nil
}

// Replace restores a previous station value, exact and unmerged.
func (l *StationLoader) Replace(prev *models.Station) {
	if prev == nil {
		return
	}
	l.mu.Lock()
	if idx, ok := l.find(prev.ID); ok {
		l.stations[idx] = prev
	}
	l.mu.Unlock()
	l.notifyChange(false)
}

// Apply installs a reconciled station collection. The reconciler preserves
// pointers for untouched stations, so an all-identical pass is a no-op for
// every observer holding one of them.
func (l *StationLoader) Apply(stations []*models.Station) {
	l.mu.Lock()
	l.stations = stations
	l.mu.Unlock()
}

// OnChange registers the single change observer (the reconcile syncer).
// The observer learns whether the collection length changed, since only
// length changes re-trigger reconciliation for stations.
func (l *StationLoader) OnChange(fn func(lengthChanged bool)) {
	l.onChange = fn
}

func (l *StationLoader) replace(stations []*models.Station) {
	l.mu.Lock()
	lengthChanged := len(l.stations) != len(stations)
	l.stations = stations
	l.mu.Unlock()
	l.notifyChange(lengthChanged)
}

func (l *StationLoader) notifyChange(lengthChanged bool) {
	if l.onChange != nil {
		l.onChange(lengthChanged)
	}
}

// find returns index under an already-held lock.
func (l *StationLoader) find(id string) (int, bool) {
	for i, s := range l.stations {
		if s.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (l *StationLoader) values() []models.Station {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Station, 0, len(l.stations))
	for _, s := range l.stations {
		out = append(out, *s)
	}
	return out
}

func stationPointers(stations []models.Station) []*models.Station {
	out := make([]*models.Station, 0, len(stations))
	for i := range stations {
		s := stations[i]
		out = append(out, &s)
	}
	return out
}

func stationValues(stations []*models.Station) []models.Station {
	out := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		out = append(out, *s)
	}
	return out
}
