package services

import (
	"encoding/json"
	"errors"
	"testing"

	"growlink/backend/app/apperr"
	"growlink/backend/app/models"
)

func pairDevice(t *testing.T, f *fixture, svc *PairingService, userID uint, bootstrapID string) *models.Device {
	t.Helper()
	res, err := svc.Bootstrap(bootstrapID, "dev")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	d, _, err := svc.Pair(res.BootstrapCode, userID)
	if err != nil {
		t.Fatalf("pair: %v", err)
	}
	return d
}

func TestEnqueueOwnershipScoped(t *testing.T) {
	f := newFixture(t)
	pairing := NewPairingService(f.devices, f.users, 0)
	cmds := NewCommandService(f.commands, f.devices, nil)
	alice := seedUser(t, f.gdb, "alice")
	bob := seedUser(t, f.gdb, "bob")
	d := pairDevice(t, f, pairing, alice.ID, "agent-1")

	if _, err := cmds.Enqueue(alice.ID, *d.PublicID, "spray", json.RawMessage(`{"duration_ms":1000}`)); err != nil {
		t.Fatalf("owner enqueue: %v", err)
	}
	// Someone else's device looks nonexistent, never forbidden.
	if _, err := cmds.Enqueue(bob.ID, *d.PublicID, "spray", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign enqueue: got %v, want ErrNotFound", err)
	}
	if _, err := cmds.Enqueue(alice.ID, "no-such-device", "spray", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown device: got %v, want ErrNotFound", err)
	}
}

func TestCommandLifecycle(t *testing.T) {
	f := newFixture(t)
	pairing := NewPairingService(f.devices, f.users, 0)
	notifier := &captureNotifier{}
	cmds := NewCommandService(f.commands, f.devices, notifier)
	alice := seedUser(t, f.gdb, "alice")
	d := pairDevice(t, f, pairing, alice.ID, "agent-1")

	queued, err := cmds.Enqueue(alice.ID, *d.PublicID, "spray", json.RawMessage(`{"duration_ms":1500}`))
	if err != nil {
		t.Fatal(err)
	}
	if queued.Status != models.CommandPending {
		t.Fatalf("fresh command status = %q", queued.Status)
	}

	// Agent claims the queue: pending -> executing, second poll empty.
	claimed, err := cmds.Pending(d, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 1 || claimed[0].ID != queued.ID || claimed[0].Status != models.CommandExecuting {
		t.Fatalf("claim = %+v", claimed)
	}
	if again, _ := cmds.Pending(d, true); len(again) != 0 {
		t.Fatalf("second claim returned %d commands", len(again))
	}

	// Agent reports completion with a result payload.
	done, err := cmds.ReportResult(d, queued.ID, models.CommandCompleted, "sprayed 1500 ms", json.RawMessage(`{"sprayed_ms":1500}`))
	if err != nil {
		t.Fatal(err)
	}
	if !done.IsTerminal() || done.CompletedAt == nil {
		t.Fatalf("completed command not terminal: %+v", done)
	}
	if notifier.count() != 1 {
		t.Errorf("notified %d times, want 1", notifier.count())
	}

	// Operator reads the outcome back.
	got, err := cmds.Get(alice.ID, queued.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ResultMessage != "sprayed 1500 ms" {
		t.Errorf("result message %q", got.ResultMessage)
	}

	// Duplicate terminal report: rejected, no second notification.
	if _, err := cmds.ReportResult(d, queued.ID, models.CommandFailed, "retry", nil); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("duplicate report: got %v, want ErrInvalidTransition", err)
	}
	if notifier.count() != 1 {
		t.Errorf("notified %d times after duplicate, want 1", notifier.count())
	}
}

func TestReportResultValidatesStatus(t *testing.T) {
	f := newFixture(t)
	pairing := NewPairingService(f.devices, f.users, 0)
	cmds := NewCommandService(f.commands, f.devices, nil)
	alice := seedUser(t, f.gdb, "alice")
	d := pairDevice(t, f, pairing, alice.ID, "agent-1")
	queued, _ := cmds.Enqueue(alice.ID, *d.PublicID, "status", nil)

	for _, bad := range []string{"pending", "done", "", "COMPLETED"} {
		if _, err := cmds.ReportResult(d, queued.ID, bad, "", nil); !errors.Is(err, apperr.ErrInvalidTransition) {
			t.Errorf("status %q: got %v, want ErrInvalidTransition", bad, err)
		}
	}
}

func TestReportResultWrongDevice(t *testing.T) {
	f := newFixture(t)
	pairing := NewPairingService(f.devices, f.users, 0)
	notifier := &captureNotifier{}
	cmds := NewCommandService(f.commands, f.devices, notifier)
	alice := seedUser(t, f.gdb, "alice")
	a := pairDevice(t, f, pairing, alice.ID, "agent-a")
	b := pairDevice(t, f, pairing, alice.ID, "agent-b")
	queued, _ := cmds.Enqueue(alice.ID, *a.PublicID, "spray", nil)

	if _, err := cmds.ReportResult(b, queued.ID, models.CommandCompleted, "", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-device report: got %v, want ErrNotFound", err)
	}
	if notifier.count() != 0 {
		t.Error("rejected report still notified")
	}
}

func TestHistoryAndGetOwnership(t *testing.T) {
	f := newFixture(t)
	pairing := NewPairingService(f.devices, f.users, 0)
	cmds := NewCommandService(f.commands, f.devices, nil)
	alice := seedUser(t, f.gdb, "alice")
	bob := seedUser(t, f.gdb, "bob")
	d := pairDevice(t, f, pairing, alice.ID, "agent-1")

	var last *models.Command
	for i := 0; i < 3; i++ {
		last, _ = cmds.Enqueue(alice.ID, *d.PublicID, "status", nil)
	}

	hist, err := cmds.History(alice.ID, *d.PublicID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 || hist[0].ID != last.ID {
		t.Fatalf("history = %+v, want newest-first capped at 2", hist)
	}

	if _, err := cmds.History(bob.ID, *d.PublicID, 10); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign history: got %v, want ErrNotFound", err)
	}
	if _, err := cmds.Get(bob.ID, last.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign get: got %v, want ErrNotFound", err)
	}
}
