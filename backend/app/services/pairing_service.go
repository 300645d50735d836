package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"growlink/backend/app/apperr"
	"growlink/backend/app/models"
	"growlink/backend/app/repo"
	"growlink/backend/app/token"

	"github.com/google/uuid"
)

const (
	StatusUnpaired = "unpaired"
	StatusPaired   = "paired"
	StatusPending  = "pending"
)

// BootstrapResult is what an agent learns from bootstrap or a status poll.
// Credential is plaintext and only ever set on the paired branch, freshly
// rotated for this response.
type BootstrapResult struct {
	Status        string
	Created       bool
	BootstrapCode string
	Message       string
	PublicID      string
	Credential    string
	DeviceName    string
	OwnerContact  string
}

// PairingService drives the unclaimed -> paired state machine.
type PairingService struct {
	devices *repo.DeviceRepository
	users   *repo.UserRepository

	mu      sync.RWMutex
	codeTTL time.Duration
}

func NewPairingService(devices *repo.DeviceRepository, users *repo.UserRepository, codeTTL time.Duration) *PairingService {
	return &PairingService{devices: devices, users: users, codeTTL: codeTTL}
}

// SetCodeTTL applies a config reload. Zero disables expiry.
func (s *PairingService) SetCodeTTL(ttl time.Duration) {
	s.mu.Lock()
	s.codeTTL = ttl
	s.mu.Unlock()
}

// codeExpired reports whether an unclaimed device's code has aged out.
// The clock runs from the last bootstrap contact, so a live agent keeps
// its code valid indefinitely; only abandoned rows expire.
func (s *PairingService) codeExpired(d *models.Device) bool {
	s.mu.RLock()
	ttl := s.codeTTL
	s.mu.RUnlock()
	return ttl > 0 && time.Since(d.UpdatedAt) > ttl
}

// Bootstrap is the agent's first (and recovery) entry point. Idempotent:
// an unclaimed device gets its existing code back, never a new one. A
// paired device gets a rotated credential, which deliberately revokes
// whatever secret a previous holder had.
func (s *PairingService) Bootstrap(bootstrapID, name string) (*BootstrapResult, error) {
	d, err := s.devices.FindByBootstrapID(bootstrapID)
	if errors.Is(err, apperr.ErrNotFound) {
		if name == "" {
			name = "Unclaimed Device"
		}
		created := true
		d, err = s.devices.CreateUnclaimed(bootstrapID, name)
		if errors.Is(err, apperr.ErrConflict) {
			// Lost a concurrent bootstrap of the same id; fall through to
			// the row the winner created. Only the winner inserted.
			created = false
			d, err = s.devices.FindByBootstrapID(bootstrapID)
		}
		if err != nil {
			return nil, err
		}
		return &BootstrapResult{
			Status:        StatusUnpaired,
			Created:       created,
			BootstrapCode: d.BootstrapCode,
			Message:       fmt.Sprintf("Device registered. Pair it with code: %s", d.BootstrapCode),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if d.IsPaired() {
		return s.issueRotated(d)
	}

	// Known but still unclaimed: refresh the code's TTL clock and repeat
	// the existing code.
	if err := s.devices.RefreshUnclaimed(d.ID); err != nil {
		return nil, err
	}
	return &BootstrapResult{
		Status:        StatusUnpaired,
		BootstrapCode: d.BootstrapCode,
		Message:       fmt.Sprintf("Device waiting for pairing. Use code: %s", d.BootstrapCode),
	}, nil
}

// PollStatus answers an unpaired agent waiting for its human. The lookup
// must match both fields; any miss (wrong id, wrong code, expired,
// never existed) is the same ErrNotFound so nothing can be enumerated.
// A store failure is not a miss and passes through untranslated.
func (s *PairingService) PollStatus(bootstrapID, bootstrapCode string) (*BootstrapResult, error) {
	d, err := s.devices.FindByBootstrapID(bootstrapID)
	if err != nil {
		return nil, err
	}
	if d.BootstrapCode != bootstrapCode {
		return nil, apperr.ErrNotFound
	}
	if d.IsPaired() {
		return s.issueRotated(d)
	}
	if s.codeExpired(d) {
		return nil, apperr.ErrNotFound
	}
	return &BootstrapResult{Status: StatusPending}, nil
}

// issueRotated rotates the device credential and builds the paired-branch
// response. The previous secret stays valid for exactly one request, so a
// response lost in transit costs one retry, not the device.
func (s *PairingService) issueRotated(d *models.Device) (*BootstrapResult, error) {
	plaintext, hash := token.NewSecret()
	if err := s.devices.RotateCredential(d, hash); err != nil {
		return nil, err
	}
	res := &BootstrapResult{
		Status:     StatusPaired,
		PublicID:   *d.PublicID,
		Credential: plaintext,
		DeviceName: d.Name,
	}
	if d.UserID != nil {
		if owner, err := s.users.FindByID(*d.UserID); err == nil {
			res.OwnerContact = owner.Contact()
		}
	}
	return res, nil
}

// Pair claims an unclaimed device for an operator. Under concurrent
// attempts on the same code exactly one caller wins; the rest see
// ErrNotFound, as if the code no longer exists (logically it does not).
func (s *PairingService) Pair(bootstrapCode string, userID uint) (*models.Device, string, error) {
	d, err := s.devices.FindUnclaimedByCode(bootstrapCode)
	if err != nil {
		return nil, "", err
	}
	if s.codeExpired(d) {
		return nil, "", apperr.ErrNotFound
	}
	plaintext, hash := token.NewSecret()
	paired, err := s.devices.Pair(d.ID, userID, uuid.NewString(), hash)
	if err != nil {
		return nil, "", err
	}
	return paired, plaintext, nil
}

// RegisterDirect claims (or re-claims) a device by bootstrap id in one
// step, for provisioning automation where the operator also controls the
// agent. Refuses devices paired to someone else; rotation is opt-in so a
// re-registration does not silently cut off a running agent.
func (s *PairingService) RegisterDirect(bootstrapID, name string, userID uint, rotate bool) (*models.Device, string, bool, error) {
	d, err := s.devices.FindByBootstrapID(bootstrapID)
	if errors.Is(err, apperr.ErrNotFound) {
		d, err = s.devices.CreateUnclaimed(bootstrapID, name)
		if errors.Is(err, apperr.ErrConflict) {
			d, err = s.devices.FindByBootstrapID(bootstrapID)
		}
		if err != nil {
			return nil, "", false, err
		}
		plaintext, hash := token.NewSecret()
		paired, perr := s.devices.Pair(d.ID, userID, uuid.NewString(), hash)
		if perr != nil {
			return nil, "", false, perr
		}
		return paired, plaintext, true, nil
	}
	if err != nil {
		return nil, "", false, err
	}

	if d.IsPaired() {
		if *d.UserID != userID {
			return nil, "", false, fmt.Errorf("device paired to another operator: %w", apperr.ErrConflict)
		}
		if name != "" && name != d.Name {
			if err := s.devices.UpdateName(d.ID, name); err != nil {
				return nil, "", false, err
			}
			d.Name = name
		}
		var plaintext string
		if rotate {
			var hash string
			plaintext, hash = token.NewSecret()
			if err := s.devices.RotateCredential(d, hash); err != nil {
				return nil, "", false, err
			}
		}
		return d, plaintext, false, nil
	}

	plaintext, hash := token.NewSecret()
	paired, err := s.devices.Pair(d.ID, userID, uuid.NewString(), hash)
	if err != nil {
		return nil, "", false, err
	}
	if name != "" && name != paired.Name {
		if err := s.devices.UpdateName(paired.ID, name); err != nil {
			return nil, "", false, err
		}
		paired.Name = name
	}
	return paired, plaintext, false, nil
}
