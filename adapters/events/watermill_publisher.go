package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/layer-3/tradeclient/ports"
)

const (
	// GenerationTopic carries ports.GenerationChanged events
	GenerationTopic = "tradeclient.generation"
	// CompletionTopic carries ports.CompletionEvent events
	CompletionTopic = "tradeclient.completion"
)

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishGenerationChanged publishes a context change
func (p *WatermillPublisher) PublishGenerationChanged(ctx context.Context, event ports.GenerationChanged) error {
	return p.publish(ctx, GenerationTopic, uuid.New().String(), event)
}

// PublishCompletion publishes how an operation settled
func (p *WatermillPublisher) PublishCompletion(ctx context.Context, event ports.CompletionEvent) error {
	id := event.ID
	if id == "" {
		id = uuid.New().String()
	}
	return p.publish(ctx, CompletionTopic, id, event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
