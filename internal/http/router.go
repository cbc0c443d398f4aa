package httpserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes groups handlers.
type Routes struct {
	Login          http.HandlerFunc
	Stations       http.HandlerFunc
	StationCreate  http.HandlerFunc
	StationUpdate  http.HandlerFunc
	StationDelete  http.HandlerFunc
	Sessions       http.HandlerFunc
	ActiveSessions http.HandlerFunc
	SessionDelete  http.HandlerFunc
	SessionStart   http.HandlerFunc
	SessionEnd     http.HandlerFunc
	Dashboard      http.HandlerFunc
	Health         http.HandlerFunc

	// Protect wraps mutating endpoints with staff authentication.
	Protect func(http.Handler) http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()

	protect := routes.Protect
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}

	if routes.Login != nil {
		mux.Handle("/auth/login", method(http.MethodPost, routes.Login))
	}
	if routes.Stations != nil {
		mux.Handle("/stations", method(http.MethodGet, routes.Stations))
	}
	if routes.StationCreate != nil {
		mux.Handle("/stations/create", protect(method(http.MethodPost, routes.StationCreate)))
	}
	if routes.StationUpdate != nil {
		mux.Handle("/stations/update", protect(method(http.MethodPost, routes.StationUpdate)))
	}
	if routes.StationDelete != nil {
		mux.Handle("/stations/delete", protect(method(http.MethodPost, routes.StationDelete)))
	}
	if routes.Sessions != nil {
		mux.Handle("/sessions", method(http.MethodGet, routes.Sessions))
	}
	if routes.ActiveSessions != nil {
		mux.Handle("/sessions/active", method(http.MethodGet, routes.ActiveSessions))
	}
	if routes.SessionDelete != nil {
		mux.Handle("/sessions/delete", protect(method(http.MethodPost, routes.SessionDelete)))
	}
	if routes.SessionStart != nil {
		mux.Handle("/sessions/start", protect(method(http.MethodPost, routes.SessionStart)))
	}
	if routes.SessionEnd != nil {
		mux.Handle("/sessions/end", protect(method(http.MethodPost, routes.SessionEnd)))
	}
	if routes.Dashboard != nil {
		mux.Handle("/ws", routes.Dashboard)
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
