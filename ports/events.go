package ports

import (
	"context"
	"time"

	"github.com/layer-3/tradeclient/core"
)

// GenerationChanged is emitted once per context change
type GenerationChanged struct {
	Generation core.Generation `json:"generation"`
	Reason     string          `json:"reason"`
	At         time.Time       `json:"at"`
}

// CompletionEvent reports how an operation settled
type CompletionEvent struct {
	ID        string          `json:"id"`
	Operation string          `json:"operation"`
	Snapshot  core.Generation `json:"snapshot"`
	Live      core.Generation `json:"live"`
	Outcome   string          `json:"outcome"`
	Late      bool            `json:"late"`
	Error     string          `json:"error,omitempty"`
}

// EventPublisher publishes state events so other components can observe the app state
type EventPublisher interface {
	PublishGenerationChanged(ctx context.Context, event GenerationChanged) error
	PublishCompletion(ctx context.Context, event CompletionEvent) error
}
