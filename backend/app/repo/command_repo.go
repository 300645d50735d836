package repo

import (
	"errors"
	"time"

	"growlink/backend/app/apperr"
	"growlink/backend/app/models"

	"gorm.io/gorm"
)

type CommandRepository struct{ db *gorm.DB }

func NewCommandRepository(db *gorm.DB) *CommandRepository { return &CommandRepository{db: db} }

func (r *CommandRepository) Create(cmd *models.Command) error {
	return r.db.Create(cmd).Error
}

// ListPending returns the device's pending queue oldest-first. Pure read;
// two concurrent polls can both see the same command (at-least-once).
func (r *CommandRepository) ListPending(deviceID uint) ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.Where("device_id = ? AND status = ?", deviceID, models.CommandPending).
		Order("created_at ASC, id ASC").
		Find(&cmds).Error
	return cmds, err
}

// ClaimPending atomically flips the device's pending commands to executing
// and returns only the ones this caller won. Each claim is a single
// conditional update, so a duplicated agent process cannot claim the same
// command twice.
func (r *CommandRepository) ClaimPending(deviceID uint) ([]models.Command, error) {
	pending, err := r.ListPending(deviceID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	claimed := make([]models.Command, 0, len(pending))
	for _, cmd := range pending {
		res := r.db.Model(&models.Command{}).
			Where("id = ? AND status = ?", cmd.ID, models.CommandPending).
			Updates(map[string]any{
				"status":     models.CommandExecuting,
				"claimed_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			cmd.Status = models.CommandExecuting
			cmd.ClaimedAt = &now
			claimed = append(claimed, cmd)
		}
	}
	return claimed, nil
}

// FindForDevice scopes the lookup to the owning device so a valid
// credential for device A can never reach device B's commands.
func (r *CommandRepository) FindForDevice(deviceID, cmdID uint) (*models.Command, error) {
	var cmd models.Command
	if err := r.db.Where("id = ? AND device_id = ?", cmdID, deviceID).First(&cmd).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &cmd, nil
}

func (r *CommandRepository) FindByID(cmdID uint) (*models.Command, error) {
	var cmd models.Command
	if err := r.db.First(&cmd, cmdID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &cmd, nil
}

// ApplyResult writes an agent-reported outcome. Terminal commands are
// immutable: a second terminal report loses with apperr.ErrInvalidTransition,
// enforced by the conditional update rather than a read-then-write.
func (r *CommandRepository) ApplyResult(deviceID, cmdID uint, status, resultMessage, resultData string) (*models.Command, error) {
	cmd, err := r.FindForDevice(deviceID, cmdID)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{
		"status":         status,
		"result_message": resultMessage,
		"result_data":    resultData,
	}
	if models.TerminalCommandStatus(status) {
		updates["completed_at"] = time.Now()
	}
	res := r.db.Model(&models.Command{}).
		Where("id = ? AND status IN ?", cmd.ID, []string{models.CommandPending, models.CommandExecuting}).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrInvalidTransition
	}
	return r.FindForDevice(deviceID, cmdID)
}

// ListByDevice returns command history newest-first, capped at limit.
func (r *CommandRepository) ListByDevice(deviceID uint, limit int) ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.Where("device_id = ?", deviceID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&cmds).Error
	return cmds, err
}

// StaleIDs lists commands in the given status created before the cutoff.
// The sweeper terminates each one through ApplyResult-style conditional
// updates so the immutability guard still applies.
func (r *CommandRepository) StaleIDs(status string, cutoff time.Time) ([]models.Command, error) {
	var cmds []models.Command
	err := r.db.Where("status = ? AND created_at < ?", status, cutoff).Find(&cmds).Error
	return cmds, err
}

// Fail force-terminates a non-terminal command (sweeper path). Same
// conditional guard as agent reports.
func (r *CommandRepository) Fail(cmdID uint, resultMessage string) (*models.Command, error) {
	res := r.db.Model(&models.Command{}).
		Where("id = ? AND status IN ?", cmdID, []string{models.CommandPending, models.CommandExecuting}).
		Updates(map[string]any{
			"status":         models.CommandFailed,
			"result_message": resultMessage,
			"completed_at":   time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrInvalidTransition
	}
	return r.FindByID(cmdID)
}
