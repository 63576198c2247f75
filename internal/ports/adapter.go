package ports

import (
	"context"
	"encoding/json"

	"commerce-sync-layer/internal/domain"
)

// Adapter is the uniform capability set every marketplace adapter exposes.
// Adapters are platform-truthful: GetOrders and GetProducts return the raw
// marketplace records; normalization happens at the registry boundary.
type Adapter interface {
	Platform() domain.Platform

	// Authenticate exchanges credentials for a token pair using the
	// platform's signing scheme. It never retries; retry policy lives in the
	// request layer.
	Authenticate(ctx context.Context) error

	// VerifyShop confirms the credentials actually reach the configured shop.
	// Connect is complete only after Authenticate and VerifyShop both succeed.
	VerifyShop(ctx context.Context) error

	GetOrders(ctx context.Context) ([]json.RawMessage, error)
	GetProducts(ctx context.Context) ([]json.RawMessage, error)
	GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error)

	UpdateStock(ctx context.Context, productID, skuID string, quantity int64) error
	ShipOrder(ctx context.Context, orderID, carrier, trackingNumber string) error

	// HandleWebhook maps the platform envelope to a domain.WebhookEvent.
	// Order events are hydrated through GetOrderDetails before returning;
	// webhook payloads are not trusted as complete records.
	HandleWebhook(ctx context.Context, payload []byte) (*domain.WebhookEvent, error)
}
