package router

import (
	"net/http"

	"growlink/backend/app/controllers"
	"growlink/backend/app/middleware"
)

// NewRouter wires the three authentication strategies onto one mux:
// public (bootstrap/pairing-status/login), operator JWT, and the device
// gate for everything under /api/agent/.
func NewRouter(
	httpCtrl *controllers.HTTPController,
	authCtrl *controllers.AuthController,
	bootstrapCtrl *controllers.BootstrapController,
	pairingCtrl *controllers.PairingController,
	deviceCtrl *controllers.DeviceController,
	commandCtrl *controllers.CommandController,
	agentCtrl *controllers.AgentController,
	auth *middleware.Auth,
	gate *middleware.DeviceGate,
) http.Handler {
	mux := http.NewServeMux()

	// public
	mux.HandleFunc("GET /ping", httpCtrl.Ping)
	mux.HandleFunc("POST /api/login", authCtrl.Login)
	mux.HandleFunc("POST /api/agents/bootstrap", bootstrapCtrl.Bootstrap)
	mux.HandleFunc("GET /api/agents/pairing/status", bootstrapCtrl.PairingStatus)

	// operator
	mux.Handle("POST /api/devices/pair", auth.RequireAuth(http.HandlerFunc(pairingCtrl.Pair)))
	mux.Handle("POST /api/devices/register", auth.RequireAuth(http.HandlerFunc(pairingCtrl.RegisterDirect)))
	mux.Handle("GET /api/devices", auth.RequireAuth(http.HandlerFunc(deviceCtrl.List)))
	mux.Handle("POST /api/devices/{public_id}/commands", auth.RequireAuth(http.HandlerFunc(commandCtrl.Enqueue)))
	mux.Handle("GET /api/devices/{public_id}/commands", auth.RequireAuth(http.HandlerFunc(commandCtrl.History)))
	mux.Handle("GET /api/commands/{id}", auth.RequireAuth(http.HandlerFunc(commandCtrl.Get)))

	// admin
	mux.Handle("GET /api/devices/unclaimed", auth.RequireAdmin(http.HandlerFunc(deviceCtrl.Unclaimed)))
	mux.Handle("POST /api/admin/users", auth.RequireAdmin(http.HandlerFunc(authCtrl.CreateUser)))

	// device-authenticated agent endpoints
	mux.Handle("POST /api/agent/heartbeat", gate.Require(http.HandlerFunc(agentCtrl.Heartbeat)))
	mux.Handle("GET /api/agent/commands/pending", gate.Require(http.HandlerFunc(agentCtrl.Pending)))
	mux.Handle("POST /api/agent/commands/{id}/result", gate.Require(http.HandlerFunc(agentCtrl.Result)))

	return mux
}
