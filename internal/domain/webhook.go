package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookEventKind is the closed set of semantic events the adapters map
// heterogeneous marketplace envelopes into.
type WebhookEventKind string

const (
	WebhookNewOrder      WebhookEventKind = "new_order"
	WebhookOrderUpdate   WebhookEventKind = "order_update"
	WebhookProductUpdate WebhookEventKind = "product_update"
	WebhookUnknown       WebhookEventKind = "unknown"
)

// WebhookEvent is a normalized inbound marketplace notification. Webhook
// payloads carry only identifiers; for order events the adapter hydrates the
// full record into Order before the event leaves the adapter.
type WebhookEvent struct {
	ID         uuid.UUID        `json:"id" bson:"_id"`
	Platform   Platform         `json:"platform" bson:"platform"`
	Kind       WebhookEventKind `json:"kind" bson:"kind"`
	OrderID    string           `json:"orderId,omitempty" bson:"order_id,omitempty"`
	ProductID  string           `json:"productId,omitempty" bson:"product_id,omitempty"`
	Order      json.RawMessage  `json:"order,omitempty" bson:"order,omitempty"`
	Payload    json.RawMessage  `json:"payload,omitempty" bson:"payload,omitempty"`
	ReceivedAt time.Time        `json:"receivedAt" bson:"received_at"`
}

// NewWebhookEvent stamps a fresh event with an ID and receive time.
func NewWebhookEvent(platform Platform, kind WebhookEventKind, payload []byte) *WebhookEvent {
	return &WebhookEvent{
		ID:         uuid.New(),
		Platform:   platform,
		Kind:       kind,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
}
