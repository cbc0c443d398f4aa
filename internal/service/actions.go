package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Axeist/cuephoria-pos/internal/loader"
	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/monitoring"
	"github.com/Axeist/cuephoria-pos/internal/notify"
	"github.com/Axeist/cuephoria-pos/internal/pricing"
	"github.com/Axeist/cuephoria-pos/internal/push"
)

// Action failures that callers branch on.
var (
	ErrStationOccupied  = errors.New("service: station already occupied")
	ErrStationUnknown   = errors.New("service: station not found")
	ErrSessionNotActive = errors.New("service: no active session")
)

// SessionWriter is the remote surface for session mutations.
type SessionWriter interface {
	Insert(ctx context.Context, session *models.Session) error
	Complete(ctx context.Context, id string, endTime time.Time, durationMinutes int) error
	Delete(ctx context.Context, id string) error
}

// StationWriter persists derived occupancy state.
type StationWriter interface {
	SetOccupancy(ctx context.Context, id string, occupied bool, session *models.Session) error
}

// CustomerAccounts reads and adjusts customer loyalty state.
type CustomerAccounts interface {
	GetByID(ctx context.Context, id string) (*models.Customer, error)
	AccrueLoyalty(ctx context.Context, id string, points int, spent decimal.Decimal, playMinutes int) error
}

// Billing persists the checkout document for an ended session.
type Billing interface {
	CreateWithItem(ctx context.Context, bill *models.Bill, item *models.BillItem) error
}

// Actions orchestrates starting and ending sessions: remote writes, the
// optimistic local transitions the reconciler must respect, and the
// billing/loyalty follow-up.
type Actions struct {
	stations  *loader.StationLoader
	sessions  *loader.SessionLoader
	sessionDB SessionWriter
	stationDB StationWriter
	customers CustomerAccounts
	billing   Billing
	bus       push.Publisher
	sink      notify.Sink
	logger    *zap.Logger
	now       func() time.Time
}

// NewActions builds the action layer.
func NewActions(
	stations *loader.StationLoader,
	sessions *loader.SessionLoader,
	sessionDB SessionWriter,
	stationDB StationWriter,
	customers CustomerAccounts,
	billing Billing,
	bus push.Publisher,
	sink notify.Sink,
	logger *zap.Logger,
) *Actions {
	return &Actions{
		stations:  stations,
		sessions:  sessions,
		sessionDB: sessionDB,
		stationDB: stationDB,
		customers: customers,
		billing:   billing,
		bus:       bus,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// StartSession validates the station is free, snapshots pricing, applies the
// optimistic occupancy transition, then persists. On remote failure the
// optimistic mutations are restored exactly.
func (a *Actions) StartSession(ctx context.Context, stationID, customerID, couponCode string) (*models.Session, error) {
	err := a.startSession(ctx, stationID, customerID, couponCode)
	monitoring.ObserveSessionAction("start", err)
	if err != nil {
		return nil, err
	}
	return a.sessions.ActiveByStation(stationID), nil
}

func (a *Actions) startSession(ctx context.Context, stationID, customerID, couponCode string) error {
	station := a.stations.Get(stationID)
	if station == nil {
		a.sink.Notify(notify.KindError, "Station not found")
		return ErrStationUnknown
	}
	if station.IsOccupied {
		a.sink.Notify(notify.KindError, fmt.Sprintf("%s is already occupied", station.Name))
		return ErrStationOccupied
	}

	if _, err := a.customers.GetByID(ctx, customerID); err != nil {
		a.logger.Error("customer lookup failed", zap.String("customer_id", customerID), zap.Error(err))
		a.sink.Notify(notify.KindError, "Customer not found")
		return fmt.Errorf("service: customer lookup: %w", err)
	}

	quote, err := pricing.NewQuote(station.HourlyRate, couponCode)
	if err != nil {
		a.sink.Notify(notify.KindError, "Invalid coupon code")
		return err
	}

	session := &models.Session{
		ID:             uuid.NewString(),
		StationID:      stationID,
		CustomerID:     customerID,
		StartTime:      a.now().UTC(),
		HourlyRate:     quote.HourlyRate,
		OriginalRate:   quote.OriginalRate,
		CouponCode:     quote.CouponCode,
		DiscountAmount: quote.DiscountAmount,
	}

	prevStation, err := a.stations.SetCurrentSession(stationID, session)
	if err != nil {
		return err
	}
	a.sessions.Prepend(session)

	rollback := func() {
		a.sessions.RemoveLocal(session.ID)
		a.stations.Replace(prevStation)
	}

	if err := a.sessionDB.Insert(ctx, session); err != nil {
		rollback()
		a.logger.Error("start session failed", zap.String("station_id", stationID), zap.Error(err))
		a.sink.Notify(notify.KindError, "Failed to start session")
		return fmt.Errorf("service: insert session: %w", err)
	}

	if err := a.stationDB.SetOccupancy(ctx, stationID, true, session); err != nil {
		if delErr := a.sessionDB.Delete(ctx, session.ID); delErr != nil {
			a.logger.Warn("orphaned session row after failed station write",
				zap.String("session_id", session.ID), zap.Error(delErr))
		}
		rollback()
		a.logger.Error("station occupancy write failed", zap.String("station_id", stationID), zap.Error(err))
		a.sink.Notify(notify.KindError, "Failed to start session")
		return fmt.Errorf("service: update station: %w", err)
	}

	a.publish(ctx, push.RowEvent{Table: push.TableSessions, Type: push.EventInsert, RowID: session.ID})
	a.publish(ctx, push.RowEvent{Table: push.TableStations, Type: push.EventUpdate, RowID: stationID})
	a.sink.Notify(notify.KindSuccess, fmt.Sprintf("Session started on %s", station.Name))
	return nil
}

// EndSession finalizes the active session, optimistically frees the station,
// and settles the bill and loyalty accrual. The optimistic clear must win
// over any reconciliation pass running against a stale active-session list.
func (a *Actions) EndSession(ctx context.Context, sessionID string) error {
	err := a.endSession(ctx, sessionID)
	monitoring.ObserveSessionAction("end", err)
	return err
}

func (a *Actions) endSession(ctx context.Context, sessionID string) error {
	session := a.sessions.Get(sessionID)
	if session == nil || !session.IsActive() {
		a.sink.Notify(notify.KindError, "No active session to end")
		return ErrSessionNotActive
	}

	endTime := a.now().UTC()
	minutes := int(endTime.Sub(session.StartTime).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	// Free the station before ending the session: the reconciler reacts to
	// every session-collection change, and it must already see the station
	// as manually freed — and the rollback value must be the occupied one.
	prevStation, err := a.stations.SetCurrentSession(session.StationID, nil)
	if err != nil {
		return err
	}
	prevSession := a.sessions.MarkEnded(sessionID, endTime, minutes)

	if err := a.sessionDB.Complete(ctx, sessionID, endTime, minutes); err != nil {
		a.sessions.Restore(prevSession)
		a.stations.Replace(prevStation)
		a.logger.Error("end session failed", zap.String("session_id", sessionID), zap.Error(err))
		a.sink.Notify(notify.KindError, "Failed to end session")
		return fmt.Errorf("service: complete session: %w", err)
	}

	if err := a.stationDB.SetOccupancy(ctx, session.StationID, false, nil); err != nil {
		// The session itself ended; the station row catches up on the next
		// refresh, so this is not worth unwinding the completed session for.
		a.logger.Warn("station occupancy clear failed",
			zap.String("station_id", session.StationID), zap.Error(err))
	}

	a.settleBill(ctx, sessionID)

	a.publish(ctx, push.RowEvent{Table: push.TableSessions, Type: push.EventUpdate, RowID: sessionID})
	a.publish(ctx, push.RowEvent{Table: push.TableStations, Type: push.EventUpdate, RowID: session.StationID})
	a.sink.Notify(notify.KindSuccess, "Session ended")
	return nil
}

// settleBill creates the bill for the ended session and accrues loyalty.
// Billing failures are reported but never unwind the ended session.
func (a *Actions) settleBill(ctx context.Context, sessionID string) {
	ended := a.sessions.Get(sessionID)
	if ended == nil {
		return
	}

	charge := ended.Charge()
	discount := decimal.Zero
	if ended.DiscountAmount != nil {
		discount = *ended.DiscountAmount
	}
	points := pricing.LoyaltyPoints(charge)

	station := a.stations.Get(ended.StationID)
	itemName := "Station time"
	if station != nil {
		itemName = fmt.Sprintf("%s (%d min)", station.Name, ended.Duration)
	}

	bill := &models.Bill{
		ID:            uuid.NewString(),
		CustomerID:    ended.CustomerID,
		Subtotal:      charge.Add(discount),
		Discount:      discount,
		Total:         charge,
		PointsEarned:  points,
		PaymentMethod: "cash",
	}
	item := &models.BillItem{
		ID:        uuid.NewString(),
		SessionID: ended.ID,
		Name:      itemName,
		Quantity:  1,
		Amount:    charge,
	}

	if err := a.billing.CreateWithItem(ctx, bill, item); err != nil {
		a.logger.Error("bill creation failed", zap.String("session_id", sessionID), zap.Error(err))
		a.sink.Notify(notify.KindError, "Session ended but billing failed")
		return
	}

	if err := a.customers.AccrueLoyalty(ctx, ended.CustomerID, points, charge, ended.Duration); err != nil {
		a.logger.Error("loyalty accrual failed", zap.String("customer_id", ended.CustomerID), zap.Error(err))
	}
}

func (a *Actions) publish(ctx context.Context, event push.RowEvent) {
	if err := a.bus.Publish(ctx, event); err != nil {
		a.logger.Warn("row event publish failed",
			zap.String("table", event.Table), zap.String("type", event.Type), zap.Error(err))
	}
}
