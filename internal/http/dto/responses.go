package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type AccountResponse struct {
	Account string `json:"account"`
}

type PayloadResponse struct {
	Payload   string `json:"payload"`
	ExpiresAt string `json:"expires_at"`
}
