package dto

import "encoding/json"

type EnqueueCommandRequest struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params,omitempty"`
}

type CommandResultRequest struct {
	Status        string          `json:"status"`
	ResultMessage string          `json:"result_message,omitempty"`
	ResultData    json.RawMessage `json:"result_data,omitempty"`
}

type CommandView struct {
	ID            uint            `json:"id"`
	Type          string          `json:"type"`
	Params        json.RawMessage `json:"params,omitempty"`
	Status        string          `json:"status"`
	ResultMessage string          `json:"result_message,omitempty"`
	ResultData    json.RawMessage `json:"result_data,omitempty"`
	CreatedBy     *uint           `json:"created_by,omitempty"`
	CreatedAt     string          `json:"created_at"`
	CompletedAt   string          `json:"completed_at,omitempty"`
}
