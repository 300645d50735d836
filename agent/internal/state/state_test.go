package state

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestLoadMissingFileIsZeroState(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Paired() || s.BootstrapID != "" {
		t.Errorf("zero state = %+v", s)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent", "state.json")
	want := &State{
		BootstrapID:   "field-agent-7",
		BootstrapCode: "A1B2C3",
		PublicID:      "pub-1",
		DeviceToken:   "secret",
		DeviceName:    "North Plot",
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip: got %+v, want %+v", got, want)
	}
	if !got.Paired() {
		t.Error("persisted state not paired")
	}
}

func TestSavePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "state.json")
	if err := Save(path, &State{BootstrapID: "a", DeviceToken: "secret"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("state file mode %o, want 600", perm)
	}
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := Save(path, &State{BootstrapID: "a", BootstrapCode: "OLD111"}); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, &State{BootstrapID: "a", PublicID: "pub-1", DeviceToken: "new"}); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.BootstrapCode != "" || got.DeviceToken != "new" {
		t.Errorf("overwrite left stale fields: %+v", got)
	}
}
