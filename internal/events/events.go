package events

import "context"

// Event types
const (
	EventNewWave       = "new_wave"
	EventWaveSubmitted = "wave_submitted"
	EventWaveIndexed   = "wave_indexed"
)

// Streams
const (
	StreamWaves = "events:waves"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
