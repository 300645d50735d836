package controllers

import (
	"encoding/json"
	"net/http"

	"growlink/backend/app/dto"
	"growlink/backend/app/middleware"
	"growlink/backend/app/services"
)

// PairingController is the operator side of the claim: code pairing and
// the direct registration shortcut for provisioning automation.
type PairingController struct{ Pairing *services.PairingService }

func NewPairingController(pairing *services.PairingService) *PairingController {
	return &PairingController{Pairing: pairing}
}

// Pair handles POST /api/devices/pair. Exactly one concurrent claim of a
// code can succeed; losers receive the same 404 as a bad code.
func (c *PairingController) Pair(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	var req dto.PairRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if len(req.BootstrapCode) != 6 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bootstrap_code must be 6 characters"})
		return
	}
	d, plaintext, err := c.Pairing.Pair(req.BootstrapCode, claims.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PairResponse{
		Device:      deviceSummary(d, false),
		DeviceToken: plaintext,
	})
}

// RegisterDirect handles POST /api/devices/register. 201 on a fresh
// device, 200 on reuse, 409 when another operator owns it.
func (c *PairingController) RegisterDirect(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	var req dto.RegisterDirectRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.BootstrapID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bootstrap_id and name required"})
		return
	}
	d, plaintext, created, err := c.Pairing.RegisterDirect(req.BootstrapID, req.Name, claims.UserID, req.RotateToken)
	if err != nil {
		writeErr(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, dto.PairResponse{
		Device:      deviceSummary(d, false),
		DeviceToken: plaintext,
	})
}
