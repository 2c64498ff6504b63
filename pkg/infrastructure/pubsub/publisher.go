package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/cloudevents/sdk-go/v2/event"
)

// PubSubAdapter publishes CloudEvents through Google Cloud Pub/Sub. Events
// travel as structured JSON in the message body.
type PubSubAdapter struct {
	Client *pubsub.Client
}

func (a *PubSubAdapter) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode event %s: %w", e.Type(), err)
	}

	topic := a.Client.Topic(topicID)
	res := topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"ce-type":   e.Type(),
			"ce-source": e.Source(),
		},
	})
	return res.Get(ctx)
}

// LogPublisher stands in for Pub/Sub during local development: events are
// logged instead of published.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("mock publish", "topic", topicID, "type", e.Type(), "data", string(e.Data()))
	return "mock-msg-id", nil
}
