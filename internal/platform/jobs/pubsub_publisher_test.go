package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/stylenest/api/internal/services"
)

func TestPubSubCartEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "cart-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubCartEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubCartEventPublisher: %v", err)
	}

	occurredAt := time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC)
	msg := services.CartEventMessage{
		Event:       "cart.item_added",
		SessionID:   "session-1",
		CartID:      "cart-1",
		ItemID:      "item-42",
		ItemType:    "product",
		Quantity:    2,
		TotalItems:  5,
		TotalAmount: 10990,
		OccurredAt:  occurredAt,
	}

	if _, err := publisher.PublishCartEvent(ctx, msg); err != nil {
		t.Fatalf("PublishCartEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload services.CartEventMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Event != msg.Event || payload.SessionID != msg.SessionID {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["event"]; attr != "cart.item_added" {
		t.Fatalf("expected event attribute, got %q", attr)
	}
	if attr := messages[0].Attributes["quantity"]; attr != "2" {
		t.Fatalf("expected quantity attribute, got %q", attr)
	}
}

func TestNewPubSubCartEventPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubCartEventPublisher(nil); err == nil {
		t.Fatal("expected error for nil topic")
	}
}
