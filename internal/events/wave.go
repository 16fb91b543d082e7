package events

import (
	"time"

	"github.com/waveportal/backend/internal/models"
)

// WaveEvent builds the payload pushed to websocket clients for a live wave.
func WaveEvent(w models.Wave) Event {
	return Event{
		Type: EventNewWave,
		Payload: map[string]any{
			"sender":     w.Sender,
			"created_at": w.CreatedAt.UTC().Format(time.RFC3339),
			"message":    w.Message,
		},
	}
}
