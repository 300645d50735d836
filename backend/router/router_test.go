package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"growlink/backend/app/controllers"
	"growlink/backend/app/db"
	jwtutil "growlink/backend/app/jwt"
	"growlink/backend/app/middleware"
	"growlink/backend/app/models"
	"growlink/backend/app/repo"
	"growlink/backend/app/services"
)

func newTestApp(t *testing.T) http.Handler {
	t.Helper()
	gdb, err := db.Connect(db.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.Device{}, &models.Command{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	userRepo := repo.NewUserRepository(gdb)
	deviceRepo := repo.NewDeviceRepository(gdb)
	commandRepo := repo.NewCommandRepository(gdb)
	userSvc := services.NewUserService(userRepo)
	pairingSvc := services.NewPairingService(deviceRepo, userRepo, 0)
	deviceSvc := services.NewDeviceService(deviceRepo, nil)
	commandSvc := services.NewCommandService(commandRepo, deviceRepo, nil)

	if err := userSvc.CreateUser("alice", "alice@example.com", "hunter22", "user"); err != nil {
		t.Fatalf("seed operator: %v", err)
	}

	signer := &jwtutil.Signer{Secret: []byte("test-secret"), Issuer: "growlink-test", ExpMin: 60}
	return NewRouter(
		controllers.NewHTTPController(),
		controllers.NewAuthController(userSvc, signer),
		controllers.NewBootstrapController(pairingSvc),
		controllers.NewPairingController(pairingSvc),
		controllers.NewDeviceController(deviceSvc, nil),
		controllers.NewCommandController(commandSvc),
		controllers.NewAgentController(deviceSvc, commandSvc),
		&middleware.Auth{Signer: signer},
		&middleware.DeviceGate{Devices: deviceRepo},
	)
}

type call struct {
	method, path string
	body         any
	bearer       string
	deviceID     string
	deviceToken  string
}

func do(t *testing.T, h http.Handler, c call) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		if err := json.NewEncoder(&buf).Encode(c.body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if c.deviceID != "" {
		req.Header.Set(middleware.HeaderDeviceID, c.deviceID)
	}
	if c.deviceToken != "" {
		req.Header.Set(middleware.HeaderDeviceToken, c.deviceToken)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("bad json response (%d): %s", rec.Code, rec.Body.String())
		}
	}
	return rec, out
}

func login(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	rec, body := do(t, h, call{method: "POST", path: "/api/login",
		body: map[string]string{"username": username, "password": password}})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	return body["access_token"].(string)
}

// TestPairingAndCommandFlow drives the whole lifecycle through HTTP: an
// agent bootstraps, the operator pairs it by code, the agent picks up its
// rotated credential per poll, heartbeats, claims an enqueued command and
// reports the outcome, which the operator then reads back.
func TestPairingAndCommandFlow(t *testing.T) {
	h := newTestApp(t)

	// Agent first contact: registered, code issued.
	rec, body := do(t, h, call{method: "POST", path: "/api/agents/bootstrap",
		body: map[string]string{"bootstrap_id": "field-agent-7", "name": "North Plot"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("bootstrap: %d %s", rec.Code, rec.Body.String())
	}
	code := body["bootstrap_code"].(string)
	if len(code) != 6 {
		t.Fatalf("bootstrap code %q", code)
	}

	// Repeat bootstrap is idempotent: 200, same code.
	rec, body = do(t, h, call{method: "POST", path: "/api/agents/bootstrap",
		body: map[string]string{"bootstrap_id": "field-agent-7"}})
	if rec.Code != http.StatusOK || body["bootstrap_code"].(string) != code {
		t.Fatalf("repeat bootstrap: %d %v", rec.Code, body)
	}

	// Waiting for the human.
	rec, body = do(t, h, call{method: "GET", path: "/api/agents/pairing/status?bootstrap_id=field-agent-7&bootstrap_code=" + code})
	if rec.Code != http.StatusOK || body["status"] != "pending" {
		t.Fatalf("status poll: %d %v", rec.Code, body)
	}

	// Operator claims the code.
	operator := login(t, h, "alice", "hunter22")
	rec, body = do(t, h, call{method: "POST", path: "/api/devices/pair", bearer: operator,
		body: map[string]string{"bootstrap_code": code}})
	if rec.Code != http.StatusOK {
		t.Fatalf("pair: %d %s", rec.Code, rec.Body.String())
	}
	publicID := body["device"].(map[string]any)["public_id"].(string)

	// Same code cannot be claimed twice.
	rec, _ = do(t, h, call{method: "POST", path: "/api/devices/pair", bearer: operator,
		body: map[string]string{"bootstrap_code": code}})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("re-pair: %d, want 404", rec.Code)
	}

	// Agent poll now delivers identity plus a freshly rotated credential.
	rec, body = do(t, h, call{method: "GET", path: "/api/agents/pairing/status?bootstrap_id=field-agent-7&bootstrap_code=" + code})
	if rec.Code != http.StatusOK || body["status"] != "paired" {
		t.Fatalf("paired poll: %d %v", rec.Code, body)
	}
	deviceToken := body["device_token"].(string)
	if body["public_id"].(string) != publicID {
		t.Fatalf("poll public_id %v != pair %s", body["public_id"], publicID)
	}
	if body["owner_contact"] != "alice@example.com" {
		t.Errorf("owner_contact = %v", body["owner_contact"])
	}

	// Heartbeat under the device gate.
	rec, _ = do(t, h, call{method: "POST", path: "/api/agent/heartbeat",
		deviceID: publicID, deviceToken: deviceToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("heartbeat: %d %s", rec.Code, rec.Body.String())
	}

	// A wrong secret is forbidden, not a 404.
	rec, _ = do(t, h, call{method: "POST", path: "/api/agent/heartbeat",
		deviceID: publicID, deviceToken: "bogus"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad secret heartbeat: %d, want 403", rec.Code)
	}

	// Operator queues a spray.
	rec, body = do(t, h, call{method: "POST", path: "/api/devices/" + publicID + "/commands", bearer: operator,
		body: map[string]any{"type": "spray", "params": map[string]any{"duration_ms": 1500}}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("enqueue: %d %s", rec.Code, rec.Body.String())
	}
	cmdID := body["command"].(map[string]any)["id"].(float64)

	// Agent claims it.
	rec, body = do(t, h, call{method: "GET", path: "/api/agent/commands/pending?claim=true",
		deviceID: publicID, deviceToken: deviceToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: %d %s", rec.Code, rec.Body.String())
	}
	cmds := body["commands"].([]any)
	if len(cmds) != 1 || cmds[0].(map[string]any)["status"] != models.CommandExecuting {
		t.Fatalf("claimed = %v", cmds)
	}

	// Claimed work does not come back on the next poll.
	rec, body = do(t, h, call{method: "GET", path: "/api/agent/commands/pending?claim=true",
		deviceID: publicID, deviceToken: deviceToken})
	if rec.Code != http.StatusOK || body["count"].(float64) != 0 {
		t.Fatalf("second claim: %d %v", rec.Code, body)
	}

	// Agent reports completion.
	resultPath := "/api/agent/commands/" + jsonID(cmdID) + "/result"
	rec, _ = do(t, h, call{method: "POST", path: resultPath,
		deviceID: publicID, deviceToken: deviceToken,
		body: map[string]any{"status": "completed", "result_message": "sprayed 1500 ms",
			"result_data": map[string]any{"sprayed_ms": 1500}}})
	if rec.Code != http.StatusOK {
		t.Fatalf("result: %d %s", rec.Code, rec.Body.String())
	}

	// A duplicate report conflicts and changes nothing.
	rec, _ = do(t, h, call{method: "POST", path: resultPath,
		deviceID: publicID, deviceToken: deviceToken,
		body: map[string]any{"status": "failed", "result_message": "retry"}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate result: %d, want 409", rec.Code)
	}

	// Operator reads the outcome.
	rec, body = do(t, h, call{method: "GET", path: "/api/commands/" + jsonID(cmdID), bearer: operator})
	if rec.Code != http.StatusOK {
		t.Fatalf("get command: %d %s", rec.Code, rec.Body.String())
	}
	got := body["command"].(map[string]any)
	if got["status"] != models.CommandCompleted || got["result_message"] != "sprayed 1500 ms" {
		t.Fatalf("command = %v", got)
	}

	// And the device list shows it online after the heartbeat.
	rec, body = do(t, h, call{method: "GET", path: "/api/devices", bearer: operator})
	if rec.Code != http.StatusOK {
		t.Fatalf("device list: %d", rec.Code)
	}
	devices := body["devices"].([]any)
	if len(devices) != 1 || devices[0].(map[string]any)["online"] != true {
		t.Fatalf("devices = %v", devices)
	}
}

func TestPairingStatusMissesLookExpired(t *testing.T) {
	h := newTestApp(t)

	rec, body := do(t, h, call{method: "GET", path: "/api/agents/pairing/status?bootstrap_id=never-seen&bootstrap_code=ABC123"})
	if rec.Code != http.StatusNotFound || body["status"] != "expired" {
		t.Fatalf("unknown poll: %d %v, want 404 expired", rec.Code, body)
	}
}

func TestOperatorEndpointsRequireToken(t *testing.T) {
	h := newTestApp(t)

	paths := []call{
		{method: "POST", path: "/api/devices/pair", body: map[string]string{"bootstrap_code": "ABC123"}},
		{method: "GET", path: "/api/devices"},
		{method: "POST", path: "/api/devices/some-id/commands", body: map[string]string{"type": "spray"}},
	}
	for _, c := range paths {
		rec, _ := do(t, h, c)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: %d, want 401", c.method, c.path, rec.Code)
		}
	}
}

func TestAdminEndpointsRequireRole(t *testing.T) {
	h := newTestApp(t)
	operator := login(t, h, "alice", "hunter22")

	rec, _ := do(t, h, call{method: "GET", path: "/api/devices/unclaimed", bearer: operator})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-admin unclaimed list: %d, want 403", rec.Code)
	}
}

func jsonID(f float64) string { return strconv.Itoa(int(f)) }
