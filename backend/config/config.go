package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type HTTP struct {
	Host string
	Port int
}

type DB struct {
	Driver string
	Host   string
	Port   int
	User   string
	Pass   string
	Name   string
	Path   string
}

type JWT struct {
	Secret string
	Issuer string
	ExpMin int
}

type Redis struct {
	Addr string // empty disables redis entirely
	DB   int
}

// Pairing policy. CodeTTL of zero means bootstrap codes never expire.
type Pairing struct {
	CodeTTL time.Duration
}

// Sweep drives the background janitor. A zero cutoff disables that sweep.
type Sweep struct {
	Interval         time.Duration
	OfflineAfter     time.Duration
	PendingTimeout   time.Duration
	ExecutingTimeout time.Duration
}

type Config struct {
	HTTP          HTTP
	DB            DB
	JWT           JWT
	Redis         Redis
	Pairing       Pairing
	Sweep         Sweep
	NotifyChannel string
	PresenceTTL   time.Duration
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("backend.host", "127.0.0.1")
	v.SetDefault("backend.port", 9400)
	v.SetDefault("backend.db.driver", "mysql")
	v.SetDefault("backend.db.host", "127.0.0.1")
	v.SetDefault("backend.db.port", 3306)
	v.SetDefault("backend.db.user", "root")
	v.SetDefault("backend.db.pass", "")
	v.SetDefault("backend.db.name", "growlink")
	v.SetDefault("backend.db.path", "growlink.db")
	v.SetDefault("backend.redis.addr", "")
	v.SetDefault("backend.redis.db", 0)
	v.SetDefault("backend.pairing.code_ttl", time.Duration(0))
	v.SetDefault("backend.sweep.interval", time.Minute)
	v.SetDefault("backend.sweep.offline_after", 2*time.Minute)
	v.SetDefault("backend.sweep.pending_timeout", time.Duration(0))
	v.SetDefault("backend.sweep.executing_timeout", time.Duration(0))
	v.SetDefault("backend.notify.channel", "growlink:commands")
	v.SetDefault("backend.presence.ttl", 90*time.Second)
	return v
}

func parse(v *viper.Viper) *Config {
	cfg := &Config{
		HTTP: HTTP{Host: v.GetString("backend.host"), Port: v.GetInt("backend.port")},
		DB: DB{
			Driver: v.GetString("backend.db.driver"),
			Host:   v.GetString("backend.db.host"),
			Port:   v.GetInt("backend.db.port"),
			User:   v.GetString("backend.db.user"),
			Pass:   v.GetString("backend.db.pass"),
			Name:   v.GetString("backend.db.name"),
			Path:   v.GetString("backend.db.path"),
		},
		Redis:         Redis{Addr: v.GetString("backend.redis.addr"), DB: v.GetInt("backend.redis.db")},
		Pairing:       Pairing{CodeTTL: v.GetDuration("backend.pairing.code_ttl")},
		Sweep:         Sweep{Interval: v.GetDuration("backend.sweep.interval"), OfflineAfter: v.GetDuration("backend.sweep.offline_after"), PendingTimeout: v.GetDuration("backend.sweep.pending_timeout"), ExecutingTimeout: v.GetDuration("backend.sweep.executing_timeout")},
		NotifyChannel: v.GetString("backend.notify.channel"),
		PresenceTTL:   v.GetDuration("backend.presence.ttl"),
	}
	cfg.JWT.Secret = v.GetString("backend.jwt.secret")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-secret"
	}
	cfg.JWT.Issuer = v.GetString("backend.jwt.issuer")
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "growlink"
	}
	cfg.JWT.ExpMin = v.GetInt("backend.jwt.exp_min")
	if cfg.JWT.ExpMin <= 0 {
		cfg.JWT.ExpMin = 60
	}
	return cfg
}

func Load(path string) (*Config, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parse(v), nil
}

// Watch re-parses the file on every change and hands the fresh config to
// onChange. Only runtime-tunable policy (pairing TTL, sweep cutoffs)
// should be re-applied; listeners must not rebind sockets or stores.
func Watch(path string, onChange func(*Config)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		onChange(parse(v))
	})
	v.WatchConfig()
	return nil
}
