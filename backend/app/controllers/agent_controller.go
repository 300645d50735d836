package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"growlink/backend/app/dto"
	"growlink/backend/app/middleware"
	"growlink/backend/app/services"
)

// AgentController is everything a paired, gate-authenticated agent calls.
// The resolved device comes from the request context; no handler here
// trusts an id from the payload.
type AgentController struct {
	Devices  *services.DeviceService
	Commands *services.CommandService
}

func NewAgentController(devices *services.DeviceService, commands *services.CommandService) *AgentController {
	return &AgentController{Devices: devices, Commands: commands}
}

// Heartbeat handles POST /api/agent/heartbeat.
func (c *AgentController) Heartbeat(w http.ResponseWriter, r *http.Request) {
	d := middleware.GetDevice(r.Context())
	if err := c.Devices.Heartbeat(d); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Pending handles GET /api/agent/commands/pending. Plain polling is a
// pure read (at-least-once); ?claim=true atomically moves the returned
// commands to executing so a duplicate poller cannot see them again.
func (c *AgentController) Pending(w http.ResponseWriter, r *http.Request) {
	d := middleware.GetDevice(r.Context())
	claim := r.URL.Query().Get("claim") == "true"
	cmds, err := c.Commands.Pending(d, claim)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]dto.CommandView, 0, len(cmds))
	for i := range cmds {
		out = append(out, commandView(&cmds[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"commands": out, "count": len(out)})
}

// Result handles POST /api/agent/commands/{id}/result.
func (c *AgentController) Result(w http.ResponseWriter, r *http.Request) {
	d := middleware.GetDevice(r.Context())
	cmdID, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid command id"})
		return
	}
	var req dto.CommandResultRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status required"})
		return
	}
	cmd, err := c.Commands.ReportResult(d, uint(cmdID), req.Status, req.ResultMessage, req.ResultData)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"command": commandView(cmd)})
}
