package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"growlink/backend/app/apperr"
	"growlink/backend/app/dto"
	"growlink/backend/app/services"
)

// BootstrapController serves the two public agent entry points. Nothing
// here is authenticated: an agent has no identity yet, and the responses
// are shaped so that nothing about existing devices can be enumerated.
type BootstrapController struct{ Pairing *services.PairingService }

func NewBootstrapController(pairing *services.PairingService) *BootstrapController {
	return &BootstrapController{Pairing: pairing}
}

func bootstrapResponse(res *services.BootstrapResult) dto.BootstrapResponse {
	return dto.BootstrapResponse{
		Status:        res.Status,
		BootstrapCode: res.BootstrapCode,
		Message:       res.Message,
		PublicID:      res.PublicID,
		DeviceToken:   res.Credential,
		DeviceName:    res.DeviceName,
		OwnerContact:  res.OwnerContact,
	}
}

// Bootstrap handles POST /api/agents/bootstrap.
func (c *BootstrapController) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req dto.BootstrapRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.BootstrapID == "" || len(req.BootstrapID) > 64 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bootstrap_id required (max 64 chars)"})
		return
	}
	res, err := c.Pairing.Bootstrap(req.BootstrapID, req.Name)
	if err != nil {
		writeErr(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, bootstrapResponse(res))
}

// PairingStatus handles GET /api/agents/pairing/status. A miss of any
// kind answers the same "expired" body.
func (c *BootstrapController) PairingStatus(w http.ResponseWriter, r *http.Request) {
	bootstrapID := r.URL.Query().Get("bootstrap_id")
	code := r.URL.Query().Get("bootstrap_code")
	if bootstrapID == "" || code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bootstrap_id and bootstrap_code required"})
		return
	}
	res, err := c.Pairing.PollStatus(bootstrapID, code)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "expired"})
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bootstrapResponse(res))
}
