package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"growlink/backend/app/apperr"
	"growlink/backend/app/dto"
	"growlink/backend/app/models"
	"growlink/backend/global"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the failure taxonomy to HTTP. Anything outside it is a
// store-level problem and surfaces as a generic transient failure.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, apperr.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthenticated"})
	case errors.Is(err, apperr.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict"})
	case errors.Is(err, apperr.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "invalid transition"})
	default:
		global.Logger.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "temporary failure, retry"})
	}
}

func deviceSummary(d *models.Device, online bool) dto.DeviceSummary {
	s := dto.DeviceSummary{ID: d.ID, Name: d.Name, PublicID: d.PublicID, Status: d.Status, Online: online}
	if d.PairedAt != nil {
		s.PairedAt = d.PairedAt.Format(time.RFC3339)
	}
	if d.LastSeenAt != nil {
		s.LastSeenAt = d.LastSeenAt.Format(time.RFC3339)
	}
	return s
}

func commandView(c *models.Command) dto.CommandView {
	v := dto.CommandView{
		ID:            c.ID,
		Type:          c.Type,
		Status:        c.Status,
		ResultMessage: c.ResultMessage,
		CreatedBy:     c.CreatedByUserID,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
	if c.Params != "" {
		v.Params = json.RawMessage(c.Params)
	}
	if c.ResultData != "" {
		v.ResultData = json.RawMessage(c.ResultData)
	}
	if c.CompletedAt != nil {
		v.CompletedAt = c.CompletedAt.Format(time.RFC3339)
	}
	return v
}
