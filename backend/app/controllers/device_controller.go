package controllers

import (
	"net/http"
	"time"

	"growlink/backend/app/dto"
	"growlink/backend/app/middleware"
	"growlink/backend/app/models"
	"growlink/backend/app/notify"
	"growlink/backend/app/services"
)

type DeviceController struct {
	Devices  *services.DeviceService
	Presence *notify.Presence
}

func NewDeviceController(devices *services.DeviceService, presence *notify.Presence) *DeviceController {
	return &DeviceController{Devices: devices, Presence: presence}
}

// List handles GET /api/devices: the caller's own devices with liveness.
func (c *DeviceController) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	devices, err := c.Devices.ListByUser(claims.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.DeviceSummary, 0, len(devices))
	for i := range devices {
		d := &devices[i]
		online := d.Status == models.DeviceOnline
		if !online && d.PublicID != nil {
			online = c.Presence.IsOnline(*d.PublicID)
		}
		out = append(out, deviceSummary(d, online))
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": out, "count": len(out)})
}

// Unclaimed handles GET /api/devices/unclaimed (admin): devices waiting
// for a pairing claim.
func (c *DeviceController) Unclaimed(w http.ResponseWriter, r *http.Request) {
	devices, err := c.Devices.ListUnclaimed()
	if err != nil {
		writeErr(w, err)
		return
	}
	type row struct {
		ID            uint   `json:"id"`
		Name          string `json:"name"`
		BootstrapID   string `json:"bootstrap_id"`
		BootstrapCode string `json:"bootstrap_code"`
		CreatedAt     string `json:"created_at"`
	}
	out := make([]row, 0, len(devices))
	for _, d := range devices {
		out = append(out, row{ID: d.ID, Name: d.Name, BootstrapID: d.BootstrapID, BootstrapCode: d.BootstrapCode, CreatedAt: d.CreatedAt.Format(time.RFC3339)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": out})
}
