package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Axeist/cuephoria-pos/internal/loader"
	"github.com/Axeist/cuephoria-pos/internal/models"
	"github.com/Axeist/cuephoria-pos/internal/service"
)

// NewSessionsHandler returns GET /sessions handler.
func NewSessionsHandler(sessions *loader.SessionLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": sessions.Sessions(),
		})
	}
}

// NewActiveSessionsHandler returns GET /sessions/active handler.
func NewActiveSessionsHandler(sessions *loader.SessionLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := make([]*models.Session, 0)
		for _, s := range sessions.Sessions() {
			if s.IsActive() {
				active = append(active, s)
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": active,
		})
	}
}

// NewSessionDeleteHandler returns POST /sessions/delete handler.
func NewSessionDeleteHandler(sessions *loader.SessionLoader) http.HandlerFunc {
	type request struct {
		ID string `json:"id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if err := sessions.DeleteSession(r.Context(), req.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to delete session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// NewSessionStartHandler returns POST /sessions/start handler.
func NewSessionStartHandler(actions *service.Actions) http.HandlerFunc {
	type request struct {
		StationID  string `json:"station_id"`
		CustomerID string `json:"customer_id"`
		CouponCode string `json:"coupon_code"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.StationID == "" || req.CustomerID == "" {
			writeError(w, http.StatusBadRequest, "station_id and customer_id are required")
			return
		}

		session, err := actions.StartSession(r.Context(), req.StationID, req.CustomerID, req.CouponCode)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrStationUnknown):
				writeError(w, http.StatusNotFound, "station not found")
			case errors.Is(err, service.ErrStationOccupied):
				writeError(w, http.StatusConflict, "station already occupied")
			default:
				writeError(w, http.StatusInternalServerError, "failed to start session")
			}
			return
		}

		writeJSON(w, http.StatusCreated, session)
	}
}

// NewSessionEndHandler returns POST /sessions/end handler.
func NewSessionEndHandler(actions *service.Actions) http.HandlerFunc {
	type request struct {
		SessionID string `json:"session_id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if err := actions.EndSession(r.Context(), req.SessionID); err != nil {
			if errors.Is(err, service.ErrSessionNotActive) {
				writeError(w, http.StatusConflict, "no active session with that id")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to end session")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
	}
}
