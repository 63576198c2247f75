// Package tokopedia implements the marketplace adapter for the Tokopedia
// fulfillment-service API. Tokopedia issues short-lived bearer tokens through
// an HTTP Basic client-credentials grant and signals expiry with a plain 401;
// the adapter refreshes proactively inside the five-minute expiry buffer.
package tokopedia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"

	"commerce-sync-layer/internal/domain"
	"commerce-sync-layer/internal/infrastructure/marketplace"
	"commerce-sync-layer/internal/ports"
)

const (
	pageSize = 50
	maxPages = 10

	orderSyncWindow = 7 * 24 * time.Hour
)

// Adapter speaks the Tokopedia REST dialect behind the uniform capability set.
type Adapter struct {
	config Config
	client *marketplace.Client
	auth   *http.Client
	logger zerolog.Logger

	mu      sync.Mutex
	session *domain.AuthSession
}

// NewAdapter creates a Tokopedia adapter from the generic credential bundle.
func NewAdapter(creds domain.Credentials, logger zerolog.Logger) (*Adapter, error) {
	return NewAdapterWithConfig(ConfigFromCredentials(creds), logger)
}

// NewAdapterWithConfig creates an adapter from an explicit config, mainly so
// tests can point the hosts at a mock server.
func NewAdapterWithConfig(config Config, logger zerolog.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config: config,
		auth:   &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("platform", string(domain.PlatformTokopedia)).Logger(),
	}
	a.client = marketplace.NewClient(marketplace.Options{
		Platform:       domain.PlatformTokopedia,
		BaseURL:        config.BaseURL,
		Timeout:        config.Timeout,
		Sign:           a.signRequest,
		TokenExpired:   tokenExpired,
		Reauthenticate: a.Authenticate,
		NeedsRefresh:   a.needsRefresh,
		Logger:         a.logger,
	})
	return a, nil
}

func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformTokopedia
}

// Authenticate runs the client-credentials grant. Tokopedia issues no refresh
// token; renewing simply repeats the grant.
func (a *Adapter) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.AccountsURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(a.config.ClientID, a.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.auth.Do(req)
	if err != nil {
		return &domain.AuthenticationError{Platform: domain.PlatformTokopedia, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.AuthenticationError{Platform: domain.PlatformTokopedia, Status: resp.StatusCode, Reason: err.Error()}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return &domain.AuthenticationError{
			Platform: domain.PlatformTokopedia,
			Status:   resp.StatusCode,
			Body:     string(body),
			Reason:   "no access token in response",
		}
	}

	a.mu.Lock()
	a.session = &domain.AuthSession{
		AccessToken: token.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}
	a.mu.Unlock()

	a.logger.Info().Str("fsId", a.config.FsID).Msg("authenticated with Tokopedia")
	return nil
}

func (a *Adapter) needsRefresh() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.NeedsRefresh(time.Now())
}

func (a *Adapter) signRequest(req *http.Request) error {
	a.mu.Lock()
	accessToken := ""
	if a.session != nil {
		accessToken = a.session.AccessToken
	}
	a.mu.Unlock()

	req.Header.Set("Authorization", "Bearer "+accessToken)
	return nil
}

func tokenExpired(status int, _ []byte) bool {
	return status == http.StatusUnauthorized
}

// VerifyShop confirms the credentials reach the configured shop.
func (a *Adapter) VerifyShop(ctx context.Context) error {
	q := url.Values{}
	q.Set("shop_id", a.config.ShopID)

	path := fmt.Sprintf("/v1/shop/fs/%s/shop-info", a.config.FsID)
	body, err := a.client.Do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}

	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to parse shop info: %w", err)
	}
	a.logger.Debug().Str("shopId", a.config.ShopID).Msg("verified shop info")
	return nil
}

// GetOrders pulls recent orders, walking Tokopedia's page pagination.
func (a *Adapter) GetOrders(ctx context.Context) ([]json.RawMessage, error) {
	now := time.Now()
	orders := make([]json.RawMessage, 0)

	for page := 1; page <= maxPages; page++ {
		params := orderListParams{
			FsID:     a.config.FsID,
			ShopID:   a.config.ShopID,
			FromDate: now.Add(-orderSyncWindow).Unix(),
			ToDate:   now.Unix(),
			Page:     page,
			PerPage:  pageSize,
		}
		q, err := query.Values(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode order query: %w", err)
		}

		body, err := a.client.Do(ctx, http.MethodGet, "/v2/order/list", q, nil)
		if err != nil {
			return nil, err
		}

		var resp listResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse order list: %w", err)
		}

		orders = append(orders, resp.Data...)
		if len(resp.Data) < pageSize {
			break
		}
	}

	return orders, nil
}

// GetProducts pulls the product list for the shop.
func (a *Adapter) GetProducts(ctx context.Context) ([]json.RawMessage, error) {
	products := make([]json.RawMessage, 0)
	path := fmt.Sprintf("/inventory/v1/fs/%s/product/info", a.config.FsID)

	for page := 1; page <= maxPages; page++ {
		params := productListParams{
			ShopID:  a.config.ShopID,
			Page:    page,
			PerPage: pageSize,
		}
		q, err := query.Values(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode product query: %w", err)
		}

		body, err := a.client.Do(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, err
		}

		var resp listResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse product list: %w", err)
		}

		products = append(products, resp.Data...)
		if len(resp.Data) < pageSize {
			break
		}
	}

	return products, nil
}

// GetOrderDetails fetches the full record for one order.
func (a *Adapter) GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("order_id", orderID)

	path := fmt.Sprintf("/v2/fs/%s/order", a.config.FsID)
	body, err := a.client.Do(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}

	var resp detailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse order detail: %w", err)
	}
	// {"data": null} and {"data": {}} both mean the order does not exist.
	data := bytes.TrimSpace(resp.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte("{}")) {
		return nil, &domain.UpstreamError{Platform: domain.PlatformTokopedia, Path: path, Status: http.StatusOK, Body: string(body)}
	}
	return json.RawMessage(data), nil
}

// UpdateStock sets the available stock for one product.
func (a *Adapter) UpdateStock(ctx context.Context, productID, _ string, quantity int64) error {
	q := url.Values{}
	q.Set("shop_id", a.config.ShopID)

	payload := map[string]any{
		"products": []map[string]any{
			{"product_id": productID, "new_stock": quantity},
		},
	}

	path := fmt.Sprintf("/inventory/v1/fs/%s/stock/update", a.config.FsID)
	_, err := a.client.Do(ctx, http.MethodPost, path, q, payload)
	return err
}

// ShipOrder confirms shipment with the logistics reference number.
func (a *Adapter) ShipOrder(ctx context.Context, orderID, _, trackingNumber string) error {
	payload := map[string]any{
		"order_status":     500, // shipped
		"shipping_ref_num": trackingNumber,
	}

	path := fmt.Sprintf("/v1/order/%s/fs/%s/status", orderID, a.config.FsID)
	_, err := a.client.Do(ctx, http.MethodPost, path, nil, payload)
	return err
}

// HandleWebhook maps a Tokopedia notification onto the shared event variants
// and hydrates order events with the full order record.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	switch env.Type {
	case webhookTypeOrderNotification, webhookTypeOrderStatus:
		orderID := env.OrderID.String()
		if orderID == "" {
			return domain.NewWebhookEvent(domain.PlatformTokopedia, domain.WebhookUnknown, payload), nil
		}

		kind := domain.WebhookOrderUpdate
		if env.Type == webhookTypeOrderNotification {
			kind = domain.WebhookNewOrder
		}

		order, err := a.GetOrderDetails(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate order %s: %w", orderID, err)
		}

		event := domain.NewWebhookEvent(domain.PlatformTokopedia, kind, payload)
		event.OrderID = orderID
		event.Order = order
		return event, nil

	case webhookTypeProductUpdate:
		event := domain.NewWebhookEvent(domain.PlatformTokopedia, domain.WebhookProductUpdate, payload)
		event.ProductID = env.ProductID.String()
		return event, nil

	default:
		return domain.NewWebhookEvent(domain.PlatformTokopedia, domain.WebhookUnknown, payload), nil
	}
}

var _ ports.Adapter = (*Adapter)(nil)
