package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_loader_refresh_total",
			Help: "Collection refreshes by collection, mode and status",
		},
		[]string{"collection", "mode", "status"},
	)

	reconcilePasses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_reconcile_passes_total",
			Help: "Station/session reconciliation passes",
		},
	)

	reconcileUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pos_reconcile_station_updates_total",
			Help: "Stations rewritten by a reconciliation pass",
		},
	)

	pushEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_push_events_total",
			Help: "Row change events received from the push channel",
		},
		[]string{"table", "type"},
	)

	sessionActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pos_session_actions_total",
			Help: "Start/end session actions by outcome",
		},
		[]string{"action", "status"},
	)

	wsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pos_ws_clients",
			Help: "Connected dashboard websocket clients",
		},
	)
)

// ObserveRefresh records one loader refresh.
func ObserveRefresh(collection string, silent bool, err error) {
	mode := "user"
	if silent {
		mode = "silent"
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	refreshTotal.WithLabelValues(collection, mode, status).Inc()
}

// ObserveReconcile records one reconciliation pass.
func ObserveReconcile(changed bool) {
	reconcilePasses.Inc()
	if changed {
		reconcileUpdates.Inc()
	}
}

// ObservePushEvent records one row change event.
func ObservePushEvent(table, eventType string) {
	pushEvents.WithLabelValues(table, eventType).Inc()
}

// ObserveSessionAction records one start/end action.
func ObserveSessionAction(action string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	sessionActions.WithLabelValues(action, status).Inc()
}

// WSClientConnected adjusts the dashboard client gauge.
func WSClientConnected(delta int) {
	wsClients.Add(float64(delta))
}
