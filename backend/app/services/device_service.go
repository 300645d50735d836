package services

import (
	"growlink/backend/app/models"
	"growlink/backend/app/notify"
	"growlink/backend/app/repo"
)

// DeviceService covers the operator-facing device views and the liveness
// signal. Liveness is external to the pairing protocol: it only moves a
// paired device between online/offline.
type DeviceService struct {
	devices  *repo.DeviceRepository
	presence *notify.Presence
}

func NewDeviceService(devices *repo.DeviceRepository, presence *notify.Presence) *DeviceService {
	return &DeviceService{devices: devices, presence: presence}
}

// Heartbeat marks the device online and refreshes its presence key.
func (s *DeviceService) Heartbeat(d *models.Device) error {
	if err := s.devices.Touch(d.ID, models.DeviceOnline); err != nil {
		return err
	}
	if d.PublicID != nil {
		s.presence.Touch(*d.PublicID)
	}
	return nil
}

func (s *DeviceService) ListByUser(userID uint) ([]models.Device, error) {
	return s.devices.ListByUser(userID)
}

func (s *DeviceService) ListUnclaimed() ([]models.Device, error) {
	return s.devices.ListUnclaimed()
}

func (s *DeviceService) Delete(deviceID uint) error {
	return s.devices.Delete(deviceID)
}
