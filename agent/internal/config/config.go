package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	BackendHost       string
	BackendPort       int
	Name              string
	BootstrapID       string
	StatePath         string
	LogPath           string
	PairingInterval   time.Duration
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	ClaimCommands     bool
}

var cfg AppConfig

func Init(path string) AppConfig {
	defaultStateDir := filepath.Join(os.TempDir(), "growlink")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// defaults
	v.SetDefault("agent.backend.host", "127.0.0.1")
	v.SetDefault("agent.backend.port", 9400)
	v.SetDefault("agent.name", "")
	v.SetDefault("agent.bootstrap_id", "")
	v.SetDefault("agent.state_path", filepath.Join(defaultStateDir, "agent.state.json"))
	v.SetDefault("agent.log_path", "")
	v.SetDefault("agent.pairing_interval", 5*time.Second)
	v.SetDefault("agent.poll_interval", 10*time.Second)
	v.SetDefault("agent.heartbeat_interval", 30*time.Second)
	v.SetDefault("agent.claim_commands", true)
	_ = v.ReadInConfig()

	cfg = AppConfig{
		BackendHost:       v.GetString("agent.backend.host"),
		BackendPort:       v.GetInt("agent.backend.port"),
		Name:              v.GetString("agent.name"),
		BootstrapID:       v.GetString("agent.bootstrap_id"),
		StatePath:         v.GetString("agent.state_path"),
		LogPath:           v.GetString("agent.log_path"),
		PairingInterval:   v.GetDuration("agent.pairing_interval"),
		PollInterval:      v.GetDuration("agent.poll_interval"),
		HeartbeatInterval: v.GetDuration("agent.heartbeat_interval"),
		ClaimCommands:     v.GetBool("agent.claim_commands"),
	}
	return cfg
}

func Get() AppConfig { return cfg }

func BackendURL() string {
	return fmt.Sprintf("http://%s:%d", cfg.BackendHost, cfg.BackendPort)
}
