package pubsub

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"commerce-sync-layer/internal/domain"
)

// EventChannel represents one subscription to the in-process webhook stream.
type EventChannel struct {
	ID     string
	Filter *EventFilter
	Events chan *domain.WebhookEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// EventFilter narrows a subscription. Empty slices match everything.
type EventFilter struct {
	Platforms []domain.Platform
	Kinds     []domain.WebhookEventKind
}

// WebhookPubSub fans normalized webhook events out to in-process subscribers.
// Delivery is non-blocking: a subscriber that stops draining its channel
// loses events rather than stalling the webhook path.
type WebhookPubSub struct {
	mu       sync.RWMutex
	channels map[string]*EventChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

// NewWebhookPubSub creates an empty pub/sub hub.
func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{
		channels: make(map[string]*EventChannel),
		logger:   logger,
	}
}

// Subscribe creates a subscription that lives until ctx is cancelled or
// Unsubscribe is called.
func (ps *WebhookPubSub) Subscribe(ctx context.Context, filter *EventFilter) *EventChannel {
	ps.idMu.Lock()
	ps.nextID++
	id := fmt.Sprintf("channel-%d", ps.nextID)
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &EventChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan *domain.WebhookEvent, 10),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("webhook subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel. Unknown IDs are a no-op.
func (ps *WebhookPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("webhook subscription removed")
}

// Publish broadcasts an event to every matching subscriber.
func (ps *WebhookPubSub) Publish(_ context.Context, event *domain.WebhookEvent) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	published := 0
	for _, channel := range ps.channels {
		if !matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
			published++
		case <-channel.ctx.Done():
			// Subscription is shutting down, skip.
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("channel buffer full, dropping event")
		}
	}

	if published > 0 {
		ps.logger.Debug().
			Str("platform", string(event.Platform)).
			Str("kind", string(event.Kind)).
			Int("subscribers", published).
			Msg("published webhook event to subscribers")
	}
	return nil
}

func matchesFilter(event *domain.WebhookEvent, filter *EventFilter) bool {
	if filter == nil {
		return true
	}

	if len(filter.Platforms) > 0 {
		match := false
		for _, p := range filter.Platforms {
			if event.Platform == p {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	if len(filter.Kinds) > 0 {
		match := false
		for _, k := range filter.Kinds {
			if event.Kind == k {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	return true
}

// Stats reports the active subscription count.
func (ps *WebhookPubSub) Stats() map[string]interface{} {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return map[string]interface{}{
		"active_subscriptions": len(ps.channels),
	}
}
