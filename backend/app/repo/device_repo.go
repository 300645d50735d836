package repo

import (
	"errors"
	"fmt"
	"time"

	"growlink/backend/app/apperr"
	"growlink/backend/app/models"
	"growlink/backend/app/token"

	"gorm.io/gorm"
)

// codeAttempts bounds the retry loop when a freshly minted bootstrap code
// collides with the unique index. Codes are never recycled, so the space
// only shrinks; 36^6 keeps collisions rare for any realistic fleet.
const codeAttempts = 5

type DeviceRepository struct{ db *gorm.DB }

func NewDeviceRepository(db *gorm.DB) *DeviceRepository { return &DeviceRepository{db: db} }

// CreateUnclaimed persists a fresh unclaimed device for an agent's first
// contact. Returns apperr.ErrConflict if the bootstrap id already exists.
func (r *DeviceRepository) CreateUnclaimed(bootstrapID, name string) (*models.Device, error) {
	if _, err := r.FindByBootstrapID(bootstrapID); err == nil {
		return nil, fmt.Errorf("bootstrap id %q already registered: %w", bootstrapID, apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	for attempt := 0; attempt < codeAttempts; attempt++ {
		d := &models.Device{
			BootstrapID:   bootstrapID,
			BootstrapCode: token.NewBootstrapCode(),
			Name:          name,
			Status:        models.DeviceUnclaimed,
		}
		err := r.db.Create(d).Error
		if err == nil {
			return d, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Either the code collided or a concurrent bootstrap won the
			// bootstrap_id index; re-check which before retrying.
			if _, ferr := r.FindByBootstrapID(bootstrapID); ferr == nil {
				return nil, fmt.Errorf("bootstrap id %q already registered: %w", bootstrapID, apperr.ErrConflict)
			}
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("could not allocate a unique bootstrap code after %d attempts", codeAttempts)
}

func (r *DeviceRepository) find(query string, args ...any) (*models.Device, error) {
	var d models.Device
	if err := r.db.Where(query, args...).First(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepository) FindByID(id uint) (*models.Device, error) {
	return r.find("id = ?", id)
}

func (r *DeviceRepository) FindByBootstrapID(bootstrapID string) (*models.Device, error) {
	return r.find("bootstrap_id = ?", bootstrapID)
}

func (r *DeviceRepository) FindByPublicID(publicID string) (*models.Device, error) {
	return r.find("public_id = ?", publicID)
}

// FindUnclaimedByCode is deliberately scoped to unclaimed devices: a code
// belonging to an already-paired device looks exactly like a code that
// never existed.
func (r *DeviceRepository) FindUnclaimedByCode(code string) (*models.Device, error) {
	return r.find("bootstrap_code = ? AND user_id IS NULL", code)
}

// Pair performs the one-time unclaimed->paired transition as a single
// conditional update. Exactly one caller can win; everyone else gets
// apperr.ErrNotFound because the row is no longer unclaimed.
func (r *DeviceRepository) Pair(deviceID, userID uint, publicID, credentialHash string) (*models.Device, error) {
	now := time.Now()
	res := r.db.Model(&models.Device{}).
		Where("id = ? AND user_id IS NULL", deviceID).
		Updates(map[string]any{
			"user_id":         userID,
			"public_id":       publicID,
			"credential_hash": credentialHash,
			"paired_at":       now,
			"status":          models.DevicePaired,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrNotFound
	}
	return r.FindByID(deviceID)
}

// RotateCredential installs a new credential hash and keeps the previous
// one for a single grace authentication. One atomic write; under
// concurrent rotations the last writer wins and only its secret is usable.
func (r *DeviceRepository) RotateCredential(d *models.Device, newHash string) error {
	prev := d.CredentialHash
	res := r.db.Model(&models.Device{}).
		Where("id = ?", d.ID).
		Updates(map[string]any{
			"credential_hash":      newHash,
			"prev_credential_hash": prev,
		})
	if res.Error != nil {
		return res.Error
	}
	d.CredentialHash = newHash
	d.PrevCredentialHash = &prev
	return nil
}

// ConsumeGrace clears the prior-secret hash if it still matches, making the
// grace window single-use. Reports whether this caller consumed it.
func (r *DeviceRepository) ConsumeGrace(deviceID uint, prevHash string) (bool, error) {
	res := r.db.Model(&models.Device{}).
		Where("id = ? AND prev_credential_hash = ?", deviceID, prevHash).
		Update("prev_credential_hash", nil)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Touch records an agent liveness signal for a paired device.
func (r *DeviceRepository) Touch(deviceID uint, status string) error {
	return r.db.Model(&models.Device{}).
		Where("id = ? AND user_id IS NOT NULL", deviceID).
		Updates(map[string]any{
			"last_seen_at": time.Now(),
			"status":       status,
		}).Error
}

// MarkStaleOffline flips online devices whose last heartbeat predates the
// cutoff. Returns how many rows changed.
func (r *DeviceRepository) MarkStaleOffline(cutoff time.Time) (int64, error) {
	res := r.db.Model(&models.Device{}).
		Where("status = ? AND last_seen_at < ?", models.DeviceOnline, cutoff).
		Update("status", models.DeviceOffline)
	return res.RowsAffected, res.Error
}

// RefreshUnclaimed bumps updated_at on an unclaimed device. Bootstrap
// contact keeps the pairing-code TTL clock running from "last seen", not
// from creation.
func (r *DeviceRepository) RefreshUnclaimed(deviceID uint) error {
	return r.db.Model(&models.Device{}).
		Where("id = ? AND user_id IS NULL", deviceID).
		Update("updated_at", time.Now()).Error
}

func (r *DeviceRepository) UpdateName(deviceID uint, name string) error {
	return r.db.Model(&models.Device{}).Where("id = ?", deviceID).Update("name", name).Error
}

func (r *DeviceRepository) ListUnclaimed() ([]models.Device, error) {
	var out []models.Device
	err := r.db.Where("user_id IS NULL").Order("created_at ASC").Find(&out).Error
	return out, err
}

func (r *DeviceRepository) ListByUser(userID uint) ([]models.Device, error) {
	var out []models.Device
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&out).Error
	return out, err
}

// Delete removes a device and, intentionally, every command that
// references it.
func (r *DeviceRepository) Delete(deviceID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", deviceID).Delete(&models.Command{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Device{}, deviceID).Error
	})
}
