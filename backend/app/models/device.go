package models

import "time"

const (
	DeviceUnclaimed = "unclaimed"
	DevicePaired    = "paired"
	DeviceOnline    = "online"
	DeviceOffline   = "offline"
	DeviceError     = "error"
)

// Device is one field gateway. A device is either fully unclaimed
// (UserID, PairedAt and PublicID all nil) or fully paired (all three set);
// no intermediate state is ever persisted.
type Device struct {
	ID            uint    `gorm:"primaryKey"`
	BootstrapID   string  `gorm:"uniqueIndex;size:191;not null"`
	BootstrapCode string  `gorm:"uniqueIndex;size:12;not null"`
	PublicID      *string `gorm:"uniqueIndex;size:64"`
	Name          string  `gorm:"size:255"`
	UserID        *uint   `gorm:"index"`
	PairedAt      *time.Time

	// SHA-256 hex of the current secret. PrevCredentialHash holds the
	// immediately-prior secret for one grace authentication after a rotation.
	CredentialHash     string  `gorm:"size:64"`
	PrevCredentialHash *string `gorm:"size:64"`

	Status     string `gorm:"size:32;index;default:unclaimed"`
	LastSeenAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (d *Device) IsPaired() bool {
	return d.UserID != nil && d.PairedAt != nil && d.PublicID != nil
}
