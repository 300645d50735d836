package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"growlink/backend/app/models"
	"growlink/backend/app/notify"
	"growlink/backend/app/repo"
	"growlink/backend/config"
	"growlink/backend/global"
)

// Sweeper is the caller-level scheduler the queue itself does not have:
// it ages out liveness and force-fails commands no agent picked up or
// finished. Every termination goes through the same conditional guard as
// an agent report, so it can never overwrite a terminal command.
type Sweeper struct {
	devices  *repo.DeviceRepository
	commands *repo.CommandRepository
	notifier notify.Notifier

	mu  sync.Mutex
	cfg config.Sweep
}

func NewSweeper(devices *repo.DeviceRepository, commands *repo.CommandRepository, notifier notify.Notifier, cfg config.Sweep) *Sweeper {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Sweeper{devices: devices, commands: commands, notifier: notifier, cfg: cfg}
}

// SetPolicy applies a config reload; picked up on the next tick.
func (s *Sweeper) SetPolicy(cfg config.Sweep) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Sweeper) policy() config.Sweep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Run blocks until ctx is done. Interval changes take effect each cycle.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		interval := s.policy().Interval
		if interval <= 0 {
			interval = time.Minute
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			s.Sweep()
		}
	}
}

// Sweep performs one pass. Exported so tests and operators can trigger it
// directly.
func (s *Sweeper) Sweep() {
	cfg := s.policy()
	now := time.Now()

	if cfg.OfflineAfter > 0 {
		if n, err := s.devices.MarkStaleOffline(now.Add(-cfg.OfflineAfter)); err != nil {
			global.Logger.Error().Err(err).Msg("offline sweep failed")
		} else if n > 0 {
			global.Logger.Info().Int64("devices", n).Msg("marked stale devices offline")
		}
	}

	if cfg.PendingTimeout > 0 {
		s.failStale(models.CommandPending, now.Add(-cfg.PendingTimeout),
			fmt.Sprintf("timeout: no agent picked up the command within %s", cfg.PendingTimeout))
	}
	if cfg.ExecutingTimeout > 0 {
		s.failStale(models.CommandExecuting, now.Add(-cfg.ExecutingTimeout),
			fmt.Sprintf("timeout: agent did not report a result within %s", cfg.ExecutingTimeout))
	}
}

func (s *Sweeper) failStale(status string, cutoff time.Time, reason string) {
	stale, err := s.commands.StaleIDs(status, cutoff)
	if err != nil {
		global.Logger.Error().Err(err).Str("status", status).Msg("stale command scan failed")
		return
	}
	for _, cmd := range stale {
		finished, err := s.commands.Fail(cmd.ID, reason)
		if err != nil {
			// Lost to a concurrent agent report; that outcome stands.
			continue
		}
		global.Logger.Warn().Uint("command", cmd.ID).Uint("device", cmd.DeviceID).Str("was", status).Msg("command timed out")
		s.notifier.CommandFinished(finished)
	}
}
