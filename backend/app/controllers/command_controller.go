package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"growlink/backend/app/dto"
	"growlink/backend/app/middleware"
	"growlink/backend/app/services"
)

// CommandController is the operator side of the queue: enqueue work for
// an owned device and read outcomes back.
type CommandController struct{ Commands *services.CommandService }

func NewCommandController(commands *services.CommandService) *CommandController {
	return &CommandController{Commands: commands}
}

// Enqueue handles POST /api/devices/{public_id}/commands.
func (c *CommandController) Enqueue(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	publicID := r.PathValue("public_id")
	var req dto.EnqueueCommandRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Type == "" || len(req.Type) > 64 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type required (max 64 chars)"})
		return
	}
	cmd, err := c.Commands.Enqueue(claims.UserID, publicID, req.Type, req.Params)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"command": commandView(cmd)})
}

// History handles GET /api/devices/{public_id}/commands.
func (c *CommandController) History(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	publicID := r.PathValue("public_id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cmds, err := c.Commands.History(claims.UserID, publicID, limit)
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

// Get handles GET /api/commands/{id}.
func (c *CommandController) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	cmdID, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid command id"})
		return
	}
	cmd, err := c.Commands.Get(claims.UserID, uint(cmdID))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"command": commandView(cmd)})
}
