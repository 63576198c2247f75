// Package repository persists the webhook audit trail. Marketplace
// credentials are deliberately absent: they live only in process memory.
package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"commerce-sync-layer/internal/domain"
	"commerce-sync-layer/internal/ports"
)

// MongoWebhookLog stores every processed webhook event for later auditing.
type MongoWebhookLog struct {
	collection *mongo.Collection
}

// NewMongoWebhookLog creates a webhook log backed by the given database.
func NewMongoWebhookLog(db *mongo.Database) ports.WebhookLogRepository {
	return &MongoWebhookLog{
		collection: db.Collection("webhook_events"),
	}
}

type webhookDoc struct {
	ID         primitive.ObjectID      `bson:"_id,omitempty"`
	EventID    string                  `bson:"eventId"`
	Platform   domain.Platform         `bson:"platform"`
	Kind       domain.WebhookEventKind `bson:"kind"`
	OrderID    string                  `bson:"orderId,omitempty"`
	ProductID  string                  `bson:"productId,omitempty"`
	Payload    string                  `bson:"payload,omitempty"`
	ReceivedAt time.Time               `bson:"receivedAt"`
	CreatedAt  time.Time               `bson:"createdAt"`
}

// LogWebhook appends one event to the audit collection.
func (r *MongoWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	doc := webhookDoc{
		ID:         primitive.NewObjectID(),
		EventID:    event.ID.String(),
		Platform:   event.Platform,
		Kind:       event.Kind,
		OrderID:    event.OrderID,
		ProductID:  event.ProductID,
		Payload:    string(event.Payload),
		ReceivedAt: event.ReceivedAt,
		CreatedAt:  time.Now(),
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}

// NoopWebhookLog discards events. Used when no MongoDB is configured.
type NoopWebhookLog struct{}

// NewNoopWebhookLog creates a webhook log that drops everything.
func NewNoopWebhookLog() ports.WebhookLogRepository {
	return NoopWebhookLog{}
}

// LogWebhook does nothing.
func (NoopWebhookLog) LogWebhook(context.Context, *domain.WebhookEvent) error {
	return nil
}
