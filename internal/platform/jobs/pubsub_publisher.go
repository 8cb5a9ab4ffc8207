package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/stylenest/api/internal/services"
)

// PubSubCartEventPublisher publishes cart activity events to a Pub/Sub topic
// for downstream analytics consumers.
type PubSubCartEventPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubCartEventPublisher constructs a Pub/Sub backed cart event publisher.
func NewPubSubCartEventPublisher(topic *pubsub.Topic) (*PubSubCartEventPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub cart event publisher: topic is required")
	}
	return &PubSubCartEventPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishCartEvent enqueues a cart event message on the configured topic.
func (p *PubSubCartEventPublisher) PublishCartEvent(ctx context.Context, message services.CartEventMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub cart event publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal cart event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "event", message.Event)
	setAttr(attrs, "sessionId", message.SessionID)
	setAttr(attrs, "itemId", message.ItemID)
	setAttr(attrs, "itemType", message.ItemType)
	if message.Quantity > 0 {
		attrs["quantity"] = strconv.Itoa(message.Quantity)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish cart event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
