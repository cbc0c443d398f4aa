package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Axeist/cuephoria-pos/internal/loader"
	"github.com/Axeist/cuephoria-pos/internal/models"
)

// StationCreator persists new stations.
type StationCreator interface {
	Create(ctx context.Context, station *models.Station) error
}

// NewStationsHandler returns GET /stations handler.
func NewStationsHandler(stations *loader.StationLoader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"stations": stations.Stations(),
		})
	}
}

// NewStationCreateHandler returns POST /stations/create handler.
func NewStationCreateHandler(creator StationCreator, stations *loader.StationLoader) http.HandlerFunc {
	type request struct {
		Name         string `json:"name"`
		Type         string `json:"type"`
		HourlyRate   string `json:"hourly_rate"`
		Category     string `json:"category"`
		EventEnabled bool   `json:"event_enabled"`
		SlotDuration int    `json:"slot_duration"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		switch req.Type {
		case models.StationTypeConsole, models.StationTypePoolTable, models.StationTypeVR:
		default:
			writeError(w, http.StatusBadRequest, "unknown station type")
			return
		}
		rate, err := decimal.NewFromString(req.HourlyRate)
		if err != nil || rate.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid hourly rate")
			return
		}

		station := &models.Station{
			ID:           uuid.NewString(),
			Name:         req.Name,
			Type:         req.Type,
			HourlyRate:   rate,
			Category:     req.Category,
			EventEnabled: req.EventEnabled,
			SlotDuration: req.SlotDuration,
		}
		if err := creator.Create(r.Context(), station); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create station")
			return
		}
		if err := stations.Refresh(r.Context(), true); err != nil {
			writeError(w, http.StatusInternalServerError, "station created but refresh failed")
			return
		}

		writeJSON(w, http.StatusCreated, station)
	}
}

// NewStationUpdateHandler returns POST /stations/update handler.
func NewStationUpdateHandler(stations *loader.StationLoader) http.HandlerFunc {
	type request struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		HourlyRate string `json:"hourly_rate"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		rate, err := decimal.NewFromString(req.HourlyRate)
		if err != nil || rate.IsNegative() {
			writeError(w, http.StatusBadRequest, "invalid hourly rate")
			return
		}

		if err := stations.UpdateStation(r.Context(), req.ID, strings.TrimSpace(req.Name), rate); err != nil {
			if errors.Is(err, loader.ErrStationUnknown) {
				writeError(w, http.StatusNotFound, "station not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to update station")
			return
		}

		writeJSON(w, http.StatusOK, stations.Get(req.ID))
	}
}

// NewStationDeleteHandler returns POST /stations/delete handler.
func NewStationDeleteHandler(stations *loader.StationLoader) http.HandlerFunc {
	type request struct {
		ID string `json:"id"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if err := stations.DeleteStation(r.Context(), req.ID); err != nil {
			switch {
			case errors.Is(err, loader.ErrStationUnknown):
				writeError(w, http.StatusNotFound, "station not found")
			case errors.Is(err, loader.ErrStationOccupied):
				writeError(w, http.StatusConflict, "station is occupied")
			default:
				writeError(w, http.StatusConflict, err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
