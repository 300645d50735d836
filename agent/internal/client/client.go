package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors for the gate's outcomes so callers can react to each:
// ErrForbidden means the stored credential is dead (re-bootstrap),
// ErrNotFound means the identity itself is gone.
var (
	ErrUnauthorized = errors.New("missing credentials")
	ErrForbidden    = errors.New("credential rejected")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

type Credentials struct {
	PublicID string
	Token    string
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 15 * time.Second}}
}

func statusErr(code int, body []byte) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return fmt.Errorf("backend returned %d: %s", code, bytes.TrimSpace(body))
	}
}

func (c *Client) do(method, path string, creds *Credentials, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds != nil {
		req.Header.Set("X-Device-ID", creds.PublicID)
		req.Header.Set("X-Device-Token", creds.Token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusErr(resp.StatusCode, data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

// BootstrapReply mirrors both branches of the bootstrap response.
type BootstrapReply struct {
	Status        string `json:"status"`
	BootstrapCode string `json:"bootstrap_code"`
	Message       string `json:"message"`
	PublicID      string `json:"public_id"`
	DeviceToken   string `json:"device_token"`
	DeviceName    string `json:"device_name"`
	OwnerContact  string `json:"owner_contact"`
}

func (c *Client) Bootstrap(bootstrapID, name string) (*BootstrapReply, error) {
	var out BootstrapReply
	err := c.do(http.MethodPost, "/api/agents/bootstrap", nil,
		map[string]string{"bootstrap_id": bootstrapID, "name": name}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PairingStatus returns status "pending", "paired" or "expired".
func (c *Client) PairingStatus(bootstrapID, code string) (*BootstrapReply, error) {
	q := url.Values{"bootstrap_id": {bootstrapID}, "bootstrap_code": {code}}
	var out BootstrapReply
	err := c.do(http.MethodGet, "/api/agents/pairing/status?"+q.Encode(), nil, nil, &out)
	if errors.Is(err, ErrNotFound) {
		return &BootstrapReply{Status: "expired"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Heartbeat(creds Credentials) error {
	return c.do(http.MethodPost, "/api/agent/heartbeat", &creds, nil, nil)
}

type PendingCommand struct {
	ID     uint            `json:"id"`
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

func (c *Client) PendingCommands(creds Credentials, claim bool) ([]PendingCommand, error) {
	path := "/api/agent/commands/pending"
	if claim {
		path += "?claim=true"
	}
	var out struct {
		Commands []PendingCommand `json:"commands"`
	}
	if err := c.do(http.MethodGet, path, &creds, nil, &out); err != nil {
		return nil, err
	}
	return out.Commands, nil
}

func (c *Client) ReportResult(creds Credentials, cmdID uint, status, message string, data any) error {
	body := map[string]any{"status": status}
	if message != "" {
		body["result_message"] = message
	}
	if data != nil {
		body["result_data"] = data
	}
	return c.do(http.MethodPost, fmt.Sprintf("/api/agent/commands/%d/result", cmdID), &creds, body, nil)
}
