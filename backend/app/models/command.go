package models

import "time"

const (
	CommandPending   = "pending"
	CommandExecuting = "executing"
	CommandCompleted = "completed"
	CommandFailed    = "failed"
)

// Command is one queued unit of work for a device. Once the status is
// terminal (completed or failed) the row never changes again and
// CompletedAt is set exactly once.
type Command struct {
	ID              uint   `gorm:"primaryKey"`
	DeviceID        uint   `gorm:"index;not null"`
	CreatedByUserID *uint  `gorm:"index"`
	Type            string `gorm:"size:64;not null"`
	Params          string `gorm:"type:longtext"` // opaque JSON, validated by the caller's domain
	Status          string `gorm:"size:32;index;default:pending"`
	ResultMessage   string `gorm:"size:1024"`
	ResultData      string `gorm:"type:longtext"` // opaque JSON
	ClaimedAt       *time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (c *Command) IsTerminal() bool {
	return c.Status == CommandCompleted || c.Status == CommandFailed
}

func TerminalCommandStatus(status string) bool {
	return status == CommandCompleted || status == CommandFailed
}
