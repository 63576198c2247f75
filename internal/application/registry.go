// Package application holds the integration registry: the single component
// the HTTP layer talks to. The registry owns the adapter connection table,
// the sync cache, and the scheduled sync loop; adapters never touch either
// piece of shared state directly.
package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"commerce-sync-layer/internal/domain"
	"commerce-sync-layer/internal/ports"
)

// AdapterFactory builds a platform adapter from a credential bundle. The
// concrete factory lives in main so the application layer stays free of
// infrastructure imports.
type AdapterFactory func(platform domain.Platform, creds domain.Credentials) (ports.Adapter, error)

// PlatformConfig is one platform's slice of the environment configuration.
type PlatformConfig struct {
	Enabled     bool
	Credentials domain.Credentials
}

// Config maps each known platform to its configuration.
type Config map[domain.Platform]PlatformConfig

// PlatformStatus is the per-platform entry returned by GetStatus. LastSync is
// the time of the last successful sync, zero until one has completed.
type PlatformStatus struct {
	Connected bool      `json:"connected"`
	LastSync  time.Time `json:"lastSync,omitzero"`
}

// PlatformSyncResult reports one platform's share of a sync pass.
type PlatformSyncResult struct {
	Platform domain.Platform `json:"platform"`
	Orders   int             `json:"orders"`
	Products int             `json:"products"`
	Error    string          `json:"error,omitempty"`
	Skipped  bool            `json:"skipped,omitempty"`
	SyncedAt time.Time       `json:"syncedAt,omitzero"`
}

// SyncResult reports a whole manual or scheduled sync pass.
type SyncResult struct {
	RunID     uuid.UUID                               `json:"runId"`
	StartedAt time.Time                               `json:"startedAt"`
	Platforms map[domain.Platform]*PlatformSyncResult `json:"platforms"`
}

// WebhookResult is the structured answer for an inbound webhook. Unsupported
// or unconnected platforms produce Success=false, never an HTTP failure.
type WebhookResult struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Event   *domain.WebhookEvent `json:"event,omitempty"`
}

// Registry owns the adapter connection table and the sync cache.
type Registry struct {
	factory    AdapterFactory
	webhookLog ports.WebhookLogRepository
	sinks      []ports.EventSink
	metrics    ports.SyncMetrics
	logger     zerolog.Logger

	// mu guards the connection table and both cache maps. Orders and
	// products for a platform are always published together under one
	// critical section so readers never observe a torn sync.
	mu       sync.RWMutex
	adapters map[domain.Platform]ports.Adapter
	orders   map[domain.Platform][]domain.NormalizedOrder
	products map[domain.Platform][]domain.NormalizedProduct
	lastSync map[domain.Platform]time.Time

	// inflight serializes syncs per platform so a scheduled tick and a
	// manual sync for the same platform never interleave cache writes.
	inflightMu sync.Mutex
	inflight   map[domain.Platform]*sync.Mutex

	schedMu     sync.Mutex
	schedCancel context.CancelFunc
	schedDone   chan struct{}
}

// NewRegistry creates an empty registry. Pass a no-op webhook log, a nil
// sink slice, or a nil metrics recorder when those collaborators are not
// configured.
func NewRegistry(factory AdapterFactory, webhookLog ports.WebhookLogRepository, sinks []ports.EventSink, recorder ports.SyncMetrics, logger zerolog.Logger) *Registry {
	return &Registry{
		factory:    factory,
		webhookLog: webhookLog,
		sinks:      sinks,
		metrics:    recorder,
		logger:     logger,
		adapters:   make(map[domain.Platform]ports.Adapter),
		orders:     make(map[domain.Platform][]domain.NormalizedOrder),
		products:   make(map[domain.Platform][]domain.NormalizedProduct),
		lastSync:   make(map[domain.Platform]time.Time),
		inflight:   make(map[domain.Platform]*sync.Mutex),
	}
}

// Initialize connects every enabled platform with complete credentials.
// Platforms that fail to connect are logged and skipped; initialization never
// fails wholesale because one platform is misconfigured.
func (r *Registry) Initialize(ctx context.Context, cfg Config) {
	for _, platform := range domain.KnownPlatforms() {
		pc, ok := cfg[platform]
		if !ok || !pc.Enabled {
			continue
		}
		if err := pc.Credentials.Validate(platform); err != nil {
			r.logger.Warn().Err(err).Str("platform", string(platform)).Msg("platform enabled but incomplete, skipping")
			continue
		}
		if err := r.ConnectPlatform(ctx, platform, pc.Credentials); err != nil {
			r.logger.Error().Err(err).Str("platform", string(platform)).Msg("failed to connect platform")
			continue
		}
	}
}

// ConnectPlatform builds and authenticates an adapter, verifies the shop, and
// stores the adapter only when both steps succeed. A successful connect
// triggers one immediate sync; a failed first sync does not undo the connect.
func (r *Registry) ConnectPlatform(ctx context.Context, platform domain.Platform, creds domain.Credentials) error {
	if err := creds.Validate(platform); err != nil {
		return err
	}

	adapter, err := r.factory(platform, creds)
	if err != nil {
		return err
	}
	if err := adapter.Authenticate(ctx); err != nil {
		return err
	}
	if err := adapter.VerifyShop(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.adapters[platform] = adapter
	r.mu.Unlock()

	r.logger.Info().Str("platform", string(platform)).Msg("platform connected")

	if _, err := r.SyncPlatform(ctx, platform); err != nil {
		r.logger.Error().Err(err).Str("platform", string(platform)).Msg("initial sync failed")
	}
	return nil
}

// DisconnectPlatform drops the adapter and clears the platform's cache
// entries. Disconnecting an unconnected platform is a no-op.
func (r *Registry) DisconnectPlatform(platform domain.Platform) {
	r.mu.Lock()
	delete(r.adapters, platform)
	delete(r.orders, platform)
	delete(r.products, platform)
	delete(r.lastSync, platform)
	r.mu.Unlock()

	r.logger.Info().Str("platform", string(platform)).Msg("platform disconnected")
}

func (r *Registry) adapterFor(platform domain.Platform) (ports.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[platform]
	return adapter, ok
}

func (r *Registry) inflightLock(platform domain.Platform) *sync.Mutex {
	r.inflightMu.Lock()
	defer r.inflightMu.Unlock()
	lock, ok := r.inflight[platform]
	if !ok {
		lock = &sync.Mutex{}
		r.inflight[platform] = lock
	}
	return lock
}

// SyncPlatform runs one fetch-and-cache cycle for a platform. Syncs for the
// same platform are serialized. The cache entries reflect only the most
// recent attempt: a failed sync overwrites both slots with empty lists
// rather than leaving stale data in place.
func (r *Registry) SyncPlatform(ctx context.Context, platform domain.Platform) (*PlatformSyncResult, error) {
	adapter, ok := r.adapterFor(platform)
	if !ok {
		// Not connected: a no-op, not an error.
		return &PlatformSyncResult{Platform: platform, Skipped: true}, nil
	}

	lock := r.inflightLock(platform)
	lock.Lock()
	defer lock.Unlock()

	rawOrders, err := adapter.GetOrders(ctx)
	if err != nil {
		return r.failSync(platform, err)
	}
	rawProducts, err := adapter.GetProducts(ctx)
	if err != nil {
		return r.failSync(platform, err)
	}

	orders := make([]domain.NormalizedOrder, 0, len(rawOrders))
	for _, raw := range rawOrders {
		orders = append(orders, normalizeOrder(platform, raw))
	}
	products := make([]domain.NormalizedProduct, 0, len(rawProducts))
	for _, raw := range rawProducts {
		products = append(products, normalizeProduct(platform, raw))
	}

	// Both cache slots are published together so a concurrent read never
	// observes orders from this sync next to products from the previous one.
	now := time.Now()
	r.mu.Lock()
	r.orders[platform] = orders
	r.products[platform] = products
	r.lastSync[platform] = now
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordSync(string(platform), nil, len(orders), len(products))
	}
	r.logger.Info().
		Str("platform", string(platform)).
		Int("orders", len(orders)).
		Int("products", len(products)).
		Msg("platform synced")

	return &PlatformSyncResult{
		Platform: platform,
		Orders:   len(orders),
		Products: len(products),
		SyncedAt: now,
	}, nil
}

// failSync wipes both cache slots together so callers see "zero items" for
// the platform, never a stale partial view.
func (r *Registry) failSync(platform domain.Platform, err error) (*PlatformSyncResult, error) {
	r.mu.Lock()
	r.orders[platform] = []domain.NormalizedOrder{}
	r.products[platform] = []domain.NormalizedProduct{}
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordSync(string(platform), err, 0, 0)
	}
	r.logger.Error().Err(err).Str("platform", string(platform)).Msg("sync failed, cache cleared")

	return &PlatformSyncResult{Platform: platform, Error: err.Error()}, err
}

// ManualSync syncs one named platform, or every connected platform strictly
// sequentially when platform is empty. Per-platform failures land in the
// result; they never abort the pass.
func (r *Registry) ManualSync(ctx context.Context, platform string) (*SyncResult, error) {
	result := &SyncResult{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
		Platforms: make(map[domain.Platform]*PlatformSyncResult),
	}

	if platform != "" {
		p, err := domain.ParsePlatform(platform)
		if err != nil {
			return nil, err
		}
		pr, _ := r.SyncPlatform(ctx, p)
		result.Platforms[p] = pr
		return result, nil
	}

	for _, p := range r.connectedPlatforms() {
		pr, _ := r.SyncPlatform(ctx, p)
		result.Platforms[p] = pr
	}
	return result, nil
}

func (r *Registry) connectedPlatforms() []domain.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connected := make([]domain.Platform, 0, len(r.adapters))
	for _, p := range domain.KnownPlatforms() {
		if _, ok := r.adapters[p]; ok {
			connected = append(connected, p)
		}
	}
	return connected
}

// GetStatus reports the connection state and last successful sync time for
// every connected platform.
func (r *Registry) GetStatus() map[domain.Platform]PlatformStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[domain.Platform]PlatformStatus, len(r.adapters))
	for p := range r.adapters {
		status[p] = PlatformStatus{
			Connected: true,
			LastSync:  r.lastSync[p],
		}
	}
	return status
}

// GetSyncedOrders flattens the per-platform cache into one list, in platform
// order then insertion order.
func (r *Registry) GetSyncedOrders() []domain.NormalizedOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.NormalizedOrder, 0)
	for _, p := range domain.KnownPlatforms() {
		all = append(all, r.orders[p]...)
	}
	return all
}

// GetSyncedOrdersByPlatform returns the cached orders for one platform.
func (r *Registry) GetSyncedOrdersByPlatform(platform domain.Platform) []domain.NormalizedOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.NormalizedOrder(nil), r.orders[platform]...)
}

// GetSyncedProducts flattens the per-platform product cache into one list.
func (r *Registry) GetSyncedProducts() []domain.NormalizedProduct {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]domain.NormalizedProduct, 0)
	for _, p := range domain.KnownPlatforms() {
		all = append(all, r.products[p]...)
	}
	return all
}

// HandleWebhook delegates an inbound marketplace notification to the
// platform's adapter, then logs and publishes the normalized event. An
// unconnected platform yields a structured unsupported answer, never an
// error across the HTTP boundary.
func (r *Registry) HandleWebhook(ctx context.Context, platform string, payload []byte) *WebhookResult {
	p, err := domain.ParsePlatform(platform)
	if err != nil {
		return &WebhookResult{Success: false, Message: domain.ErrWebhookUnsupported.Error()}
	}

	adapter, ok := r.adapterFor(p)
	if !ok {
		return &WebhookResult{Success: false, Message: domain.ErrWebhookUnsupported.Error()}
	}

	event, err := adapter.HandleWebhook(ctx, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("platform", platform).Msg("webhook processing failed")
		return &WebhookResult{Success: false, Message: err.Error()}
	}

	if r.metrics != nil {
		r.metrics.RecordWebhook(string(p), string(event.Kind))
	}

	if r.webhookLog != nil {
		if err := r.webhookLog.LogWebhook(ctx, event); err != nil {
			// Logging failure never fails the webhook.
			r.logger.Error().Err(err).Str("platform", platform).Msg("failed to log webhook event")
		}
	}
	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			r.logger.Error().Err(err).Str("platform", platform).Msg("failed to publish webhook event")
		}
	}

	return &WebhookResult{Success: true, Event: event}
}
