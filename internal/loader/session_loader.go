package loader

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/cache"
	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/monitoring"
	"github.com/Axeist/cuephoria-pos/internal/notify"
	"github.com/Axeist/cuephoria-pos/internal/push"
)

// SessionLoader owns the in-memory session collection. It is the only writer
// of that collection; everything else reads through Sessions/Active.
type SessionLoader struct {
	store  SessionStore
	cache  CollectionCache
	bus    push.Subscriber
	sink   notify.Sink
	logger *zap.Logger
	limit  int

	debouncer *Debouncer

	mu       sync.RWMutex
	sessions []*models.Session

	onChange func()
}

// NewSessionLoader builds the loader. The debounce window coalesces bursts
// of push-channel events into one silent refresh.
func NewSessionLoader(
	sessionStore SessionStore,
	collectionCache CollectionCache,
	bus push.Subscriber,
	sink notify.Sink,
	logger *zap.Logger,
	limit int,
	debounceWindow time.Duration,
	clock Clock,
) *SessionLoader {
	if limit <= 0 {
		limit = 100
	}
	l := &SessionLoader{
		store:  sessionStore,
		cache:  collectionCache,
		bus:    bus,
		sink:   sink,
		logger: logger,
		limit:  limit,
	}
	l.debouncer = NewDebouncer(debounceWindow, clock, l.refreshFromPush)
	return l
}

// Load serves the cached collection first, then refreshes. With a warm,
// fresh cache no remote read happens at all; a warm but stale cache serves
// immediately and refreshes silently in the background.
func (l *SessionLoader) Load(ctx context.Context) error {
	var cached []models.Session
	ok, err := l.cache.Get(ctx, cache.KeySessions, &cached)
	if err != nil {
		l.logger.Warn("session cache read failed", zap.Error(err))
	}
	if ok && len(cached) > 0 {
		l.replace(toPointers(cached))
		if l.cache.IsStale(ctx, cache.KeySessions) {
			go func() {
				if err := l.Refresh(context.Background(), true); err != nil {
					l.logger.Warn("background session refresh failed", zap.Error(err))
				}
			}()
		}
		return nil
	}
	return l.Refresh(ctx, false)
}

// Refresh re-reads the most recent sessions from the remote store. A
// non-silent failure notifies the user and leaves the collection untouched;
// a silent failure is logged only.
func (l *SessionLoader) Refresh(ctx context.Context, silent bool) error {
	rows, err := l.store.ListRecent(ctx, l.limit)
	monitoring.ObserveRefresh(cache.KeySessions, silent, err)
	if err != nil {
		if silent {
			l.logger.Warn("silent session refresh failed", zap.Error(err))
		} else {
			l.logger.Error("session refresh failed", zap.Error(err))
			l.sink.Notify(notify.KindError, "Failed to load sessions")
		}
		return err
	}

	sessions := dedupeSessions(rows)
	l.replace(sessions)

	if err := l.cache.Set(ctx, cache.KeySessions, fromPointers(sessions)); err != nil {
		l.logger.Warn("session cache write failed", zap.Error(err))
	}
	return nil
}

// Start subscribes to the session row-change channel. Every event schedules
// a silent refresh one debounce window after the last event.
func (l *SessionLoader) Start(ctx context.Context) {
	events, cancel := l.bus.Subscribe(ctx, push.TableSessions)
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

func (l *SessionLoader) refreshFromPush() {
	if err := l.Refresh(context.Background(), true); err != nil {
		l.logger.Warn("push-triggered session refresh failed", zap.Error(err))
	}
}

// DeleteSession removes the session remotely and locally.
func (l *SessionLoader) DeleteSession(ctx context.Context, id string) error {
	if err := l.store.Delete(ctx, id); err != nil {
		l.logger.Error("delete session failed", zap.String("session_id", id), zap.Error(err))
		l.sink.Notify(notify.KindError, "Failed to delete session")
		return err
	}

	l.mu.Lock()
	kept := l.sessions[:0:0]
	for _, s := range l.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	l.sessions = kept
	l.mu.Unlock()

	if err := l.cache.Invalidate(ctx, cache.KeySessions); err != nil {
		l.logger.Warn("session cache invalidate failed", zap.Error(err))
	}
	l.sink.Notify(notify.KindSuccess, "Session deleted")
	l.notifyChange()
	return nil
}

// RemoveLocal drops a session from the in-memory collection only, used to
// unwind an optimistic insert whose remote write failed.
func (l *SessionLoader) RemoveLocal(id string) {
	l.mu.Lock()
	kept := l.sessions[:0:0]
	for _, s := range l.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	l.sessions = kept
	l.mu.Unlock()
	l.notifyChange()
}

// Prepend inserts a just-started session at the head of the collection.
func (l *SessionLoader) Prepend(session *models.Session) {
	l.mu.Lock()
	l.sessions = append([]*models.Session{session}, l.sessions...)
	l.mu.Unlock()
	l.notifyChange()
}

// MarkEnded sets the end time and duration on the in-memory session.
// It returns the prior value for rollback, or nil if the session is unknown.
func (l *SessionLoader) MarkEnded(id string, endTime time.Time, durationMinutes int) *models.Session {
	l.mu.Lock()
	var prev *models.Session
	for i, s := range l.sessions {
		if s.ID == id {
			prev = s
			next := *s
			next.EndTime = &endTime
			next.Duration = durationMinutes
			l.sessions[i] = &next
			break
		}
	}
	l.mu.Unlock()
	if prev != nil {
		l.notifyChange()
	}
	return prev
}

// Restore puts a previous session value back, exact and unmerged.
func (l *SessionLoader) Restore(prev *models.Session) {
	if prev == nil {
		return
	}
	l.mu.Lock()
	for i, s := range l.sessions {
		if s.ID == prev.ID {
			l.sessions[i] = prev
			break
		}
	}
	l.mu.Unlock()
	l.notifyChange()
}

// Sessions returns a copy of the collection slice.
func (l *SessionLoader) Sessions() []*models.Session {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Session, len(l.sessions))
	copy(out, l.sessions)
	return out
}

// ActiveByStation returns the active session for the station, if any.
func (l *SessionLoader) ActiveByStation(stationID string) *models.Session {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.sessions {
		if s.StationID == stationID && s.IsActive() {
			return s
		}
	}
	return nil
}

// Get returns the session with the given id.
func (l *SessionLoader) Get(id string) *models.Session {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// OnChange registers the single change observer (the reconcile syncer).
func (l *SessionLoader) OnChange(fn func()) {
	l.onChange = fn
}

func (l *SessionLoader) replace(sessions []*models.Session) {
	l.mu.Lock()
	l.sessions = sessions
	l.mu.Unlock()
	l.notifyChange()
}

func (l *SessionLoader) notifyChange() {
	if l.onChange != nil {
		l.onChange()
	}
}

// dedupeSessions drops duplicate ids, keeping the newest-first order from
// the store.
func dedupeSessions(rows []models.Session) []*models.Session {
	seen := make(map[string]struct{}, len(rows))
	out := make([]*models.Session, 0, len(rows))
	for i := range rows {
		s := rows[i]
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, &s)
	}
	return out
}
