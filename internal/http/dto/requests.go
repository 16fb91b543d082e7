package dto

// WaveMessageRequest carries the text bound to the wave input. A nil Message
// on submit keeps the pending message set earlier.
type WaveMessageRequest struct {
	Message *string `json:"message,omitempty"`
}
