package state

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// State is everything the agent must survive a restart with. The
// credential is written to disk *before* it is ever used against the
// server (store-then-use), so a crash between rotation and persistence
// costs at most the one grace authentication.
type State struct {
	BootstrapID   string `json:"bootstrap_id"`
	BootstrapCode string `json:"bootstrap_code,omitempty"`
	PublicID      string `json:"public_id,omitempty"`
	DeviceToken   string `json:"device_token,omitempty"`
	DeviceName    string `json:"device_name,omitempty"`
}

func (s *State) Paired() bool { return s.PublicID != "" && s.DeviceToken != "" }

// Load returns a zero state if the file does not exist yet.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &State{}, nil
	}
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes atomically (temp file + rename) with owner-only
// permissions; the file holds a plaintext credential.
func Save(path string, s *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
