package ports

import (
	"context"

	"commerce-sync-layer/internal/domain"
)

// EventSink receives normalized webhook events after the registry has
// processed them. Sinks must not block the webhook path for long; slow
// consumers drop rather than stall.
type EventSink interface {
	Publish(ctx context.Context, event *domain.WebhookEvent) error
}

// WebhookLogRepository persists an audit trail of received webhook events.
// Credentials are never persisted; only events pass through here.
type WebhookLogRepository interface {
	LogWebhook(ctx context.Context, event *domain.WebhookEvent) error
}

// SyncMetrics records sync and webhook outcomes. The concrete recorder lives
// at the infrastructure boundary; a nil recorder disables recording.
type SyncMetrics interface {
	RecordSync(platform string, err error, orders, products int)
	RecordWebhook(platform, kind string)
}
