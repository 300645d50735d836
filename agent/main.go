package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"growlink/agent/internal/client"
	"growlink/agent/internal/command"
	"growlink/agent/internal/config"
	"growlink/agent/internal/logger"
	"growlink/agent/internal/state"

	"github.com/google/uuid"
)

func main() {
	cfgPath := flag.String("config", "config/agent.yaml", "Path to configuration file")
	flag.Parse()

	cfg := config.Init(*cfgPath)
	if err := logger.Init(cfg.LogPath); err != nil {
		fmt.Fprintln(os.Stderr, "cannot open log file:", err)
		os.Exit(1)
	}

	st, err := state.Load(cfg.StatePath)
	if err != nil {
		logger.Error("cannot load state:", err)
		os.Exit(1)
	}

	// The bootstrap id is chosen once and survives reflash of everything
	// except the state file; config can pin it for provisioning.
	if cfg.BootstrapID != "" {
		st.BootstrapID = cfg.BootstrapID
	}
	if st.BootstrapID == "" {
		st.BootstrapID = "agent-" + uuid.NewString()
	}
	if err := state.Save(cfg.StatePath, st); err != nil {
		logger.Error("cannot persist state:", err)
		os.Exit(1)
	}

	api := client.New(config.BackendURL())

	// Pair, run, and on credential death come back around; the process
	// only leaves this loop on a shutdown signal.
	for {
		for !st.Paired() {
			if err := pairOnce(api, cfg, st); err != nil {
				logger.Errorf("pairing failed: %v; retrying in %v", err, cfg.PairingInterval)
				time.Sleep(cfg.PairingInterval)
			}
		}
		logger.Infof("paired as %s (%s)", st.PublicID, st.DeviceName)

		if !runLoop(api, cfg, st) {
			return
		}

		// Credential rejected: drop it and walk bootstrap again. The
		// server rotates on re-announce, which revokes whoever else may
		// hold a secret for this identity.
		logger.Warnf("credential rejected, re-bootstrapping as %s", st.BootstrapID)
		st.PublicID = ""
		st.DeviceToken = ""
		if err := state.Save(cfg.StatePath, st); err != nil {
			logger.Error("cannot persist state:", err)
			os.Exit(1)
		}
	}
}

// pairOnce walks the bootstrap state machine one round: announce, then
// sit on the status poll until a human enters the code. Credentials are
// persisted before first use.
func pairOnce(api *client.Client, cfg config.AppConfig, st *state.State) error {
	reply, err := api.Bootstrap(st.BootstrapID, cfg.Name)
	if err != nil {
		return err
	}
	if reply.Status == "paired" {
		return adoptCredentials(cfg, st, reply)
	}

	st.BootstrapCode = reply.BootstrapCode
	if err := state.Save(cfg.StatePath, st); err != nil {
		return err
	}
	logger.Infof("waiting for pairing; enter code %s in the dashboard", st.BootstrapCode)

	for {
		time.Sleep(cfg.PairingInterval)
		status, err := api.PairingStatus(st.BootstrapID, st.BootstrapCode)
		if err != nil {
			logger.Warnf("pairing status poll failed: %v", err)
			continue
		}
		switch status.Status {
		case "paired":
			return adoptCredentials(cfg, st, status)
		case "expired":
			// Code aged out server-side; re-announce to refresh it.
			logger.Warnf("pairing code expired, re-announcing")
			return nil
		}
	}
}

func adoptCredentials(cfg config.AppConfig, st *state.State, reply *client.BootstrapReply) error {
	st.PublicID = reply.PublicID
	st.DeviceToken = reply.DeviceToken
	st.DeviceName = reply.DeviceName
	if err := state.Save(cfg.StatePath, st); err != nil {
		return fmt.Errorf("persist credentials: %w", err)
	}
	return nil
}

// runLoop heartbeats and polls the command queue. Returns true when the
// stored credential was rotated away from us and the caller should go
// back through bootstrap, false on a shutdown signal.
func runLoop(api *client.Client, cfg config.AppConfig, st *state.State) bool {
	creds := client.Credentials{PublicID: st.PublicID, Token: st.DeviceToken}

	heartbeat := time.NewTicker(cfg.HeartbeatInterval)
	poll := time.NewTicker(cfg.PollInterval)
	defer heartbeat.Stop()
	defer poll.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	if err := api.Heartbeat(creds); err != nil {
		logger.Warnf("heartbeat failed: %v", err)
	}

	for {
		select {
		case <-sig:
			logger.Info("shutting down")
			return false
		case <-heartbeat.C:
			if err := api.Heartbeat(creds); err != nil {
				if credentialDead(err) {
					return true
				}
				logger.Warnf("heartbeat failed: %v", err)
			}
		case <-poll.C:
			cmds, err := api.PendingCommands(creds, cfg.ClaimCommands)
			if err != nil {
				if credentialDead(err) {
					return true
				}
				logger.Warnf("command poll failed: %v", err)
				continue
			}
			for _, cmd := range cmds {
				executeAndReport(api, creds, cmd)
			}
		}
	}
}

func executeAndReport(api *client.Client, creds client.Credentials, cmd client.PendingCommand) {
	res, err := command.Dispatch(cmd.Type, cmd.Params)
	status, message := "completed", res.Message
	var data any
	if len(res.Data) > 0 {
		data = res.Data
	}
	if err != nil {
		status, message, data = "failed", err.Error(), nil
	}
	if rerr := api.ReportResult(creds, cmd.ID, status, message, data); rerr != nil {
		if errors.Is(rerr, client.ErrConflict) {
			// Someone (another poller, the timeout sweeper) already
			// terminated it; their outcome stands.
			logger.Warnf("command %d already terminal, dropping report", cmd.ID)
			return
		}
		logger.Errorf("result report for command %d failed: %v", cmd.ID, rerr)
	}
}

func credentialDead(err error) bool {
	return errors.Is(err, client.ErrForbidden) || errors.Is(err, client.ErrNotFound)
}
