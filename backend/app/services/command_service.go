package services

import (
	"encoding/json"
	"fmt"

	"growlink/backend/app/apperr"
	"growlink/backend/app/models"
	"growlink/backend/app/notify"
	"growlink/backend/app/repo"
)

const historyLimitMax = 100

// CommandService is the per-device work queue: enqueue by an operator,
// poll by the device's agent, terminate by that same agent's report.
type CommandService struct {
	commands *repo.CommandRepository
	devices  *repo.DeviceRepository
	notifier notify.Notifier
}

func NewCommandService(commands *repo.CommandRepository, devices *repo.DeviceRepository, notifier notify.Notifier) *CommandService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &CommandService{commands: commands, devices: devices, notifier: notifier}
}

// ownedDevice resolves a public id and checks ownership. A device that
// exists but belongs to someone else is reported exactly like one that
// does not exist.
func (s *CommandService) ownedDevice(userID uint, publicID string) (*models.Device, error) {
	d, err := s.devices.FindByPublicID(publicID)
	if err != nil {
		return nil, err
	}
	if d.UserID == nil || *d.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return d, nil
}

// Enqueue appends a pending command to the device's queue. Params are
// opaque here; the agent's handler for the type owns their meaning.
func (s *CommandService) Enqueue(userID uint, publicID, cmdType string, params json.RawMessage) (*models.Command, error) {
	d, err := s.ownedDevice(userID, publicID)
	if err != nil {
		return nil, err
	}
	cmd := &models.Command{
		DeviceID:        d.ID,
		CreatedByUserID: &userID,
		Type:            cmdType,
		Params:          string(params),
		Status:          models.CommandPending,
	}
	if err := s.commands.Create(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// Pending returns the device's queue oldest-first. With claim set the
// returned commands are atomically moved to executing, so a second poll
// will not see them again.
func (s *CommandService) Pending(d *models.Device, claim bool) ([]models.Command, error) {
	if claim {
		return s.commands.ClaimPending(d.ID)
	}
	return s.commands.ListPending(d.ID)
}

// ReportResult applies an agent-reported outcome. The command must belong
// to the reporting device; terminal commands reject any further report.
// The notification hook fires synchronously, at most once per terminal
// transition.
func (s *CommandService) ReportResult(d *models.Device, cmdID uint, status, resultMessage string, resultData json.RawMessage) (*models.Command, error) {
	switch status {
	case models.CommandExecuting, models.CommandCompleted, models.CommandFailed:
	default:
		return nil, fmt.Errorf("status %q: %w", status, apperr.ErrInvalidTransition)
	}
	cmd, err := s.commands.ApplyResult(d.ID, cmdID, status, resultMessage, string(resultData))
	if err != nil {
		return nil, err
	}
	if cmd.IsTerminal() {
		s.notifier.CommandFinished(cmd)
	}
	return cmd, nil
}

// History is the operator-facing read path over the queue.
func (s *CommandService) History(userID uint, publicID string, limit int) ([]models.Command, error) {
	d, err := s.ownedDevice(userID, publicID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > historyLimitMax {
		limit = historyLimitMax
	}
	return s.commands.ListByDevice(d.ID, limit)
}

// Get exposes one command's current status/result to its device's owner.
func (s *CommandService) Get(userID, cmdID uint) (*models.Command, error) {
	cmd, err := s.commands.FindByID(cmdID)
	if err != nil {
		return nil, err
	}
	d, err := s.devices.FindByID(cmd.DeviceID)
	if err != nil {
		return nil, err
	}
	if d.UserID == nil || *d.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	return cmd, nil
}
