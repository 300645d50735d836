package dto

type BootstrapRequest struct {
	BootstrapID string `json:"bootstrap_id"`
	Name        string `json:"name,omitempty"`
}

// BootstrapResponse covers both branches: unpaired carries the code and a
// human message, paired carries the identity and the one-time plaintext
// credential.
type BootstrapResponse struct {
	Status        string `json:"status"`
	BootstrapCode string `json:"bootstrap_code,omitempty"`
	Message       string `json:"message,omitempty"`
	PublicID      string `json:"public_id,omitempty"`
	DeviceToken   string `json:"device_token,omitempty"`
	DeviceName    string `json:"device_name,omitempty"`
	OwnerContact  string `json:"owner_contact,omitempty"`
}

type PairRequest struct {
	BootstrapCode string `json:"bootstrap_code"`
}

type RegisterDirectRequest struct {
	BootstrapID string `json:"bootstrap_id"`
	Name        string `json:"name"`
	RotateToken bool   `json:"rotate_token,omitempty"`
}

type DeviceSummary struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	PublicID   *string `json:"public_id,omitempty"`
	Status     string  `json:"status"`
	PairedAt   string  `json:"paired_at,omitempty"`
	LastSeenAt string  `json:"last_seen_at,omitempty"`
	Online     bool    `json:"online"`
}

type PairResponse struct {
	Device      DeviceSummary `json:"device"`
	DeviceToken string        `json:"device_token"`
}
