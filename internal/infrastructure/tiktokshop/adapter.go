// Package tiktokshop implements the marketplace adapter for the TikTok Shop
// open API. Requests carry an HMAC-SHA256 digest over the app secret, path,
// and sorted query parameters; token expiry arrives as an HTTP 401 or as
// platform error code 1000004.
package tiktokshop

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"commerce-sync-layer/internal/domain"
	"commerce-sync-layer/internal/infrastructure/marketplace"
	"commerce-sync-layer/internal/ports"
)

const (
	pathAuthToken    = "/api/v2/token/get"
	pathRefreshToken = "/api/v2/token/refresh"
	pathShopInfo     = "/api/shop/get_authorized_shop"
	pathOrderSearch  = "/api/orders/search"
	pathOrderDetail  = "/api/orders/detail/query"
	pathProductList  = "/api/products/search"
	pathUpdateStock  = "/api/products/stocks"
	pathShipOrder    = "/api/order/rts"

	pageSize = 50
	maxPages = 10

	orderSyncWindow = 7 * 24 * time.Hour
)

// Adapter speaks the TikTok Shop REST dialect behind the uniform capability set.
type Adapter struct {
	config Config
	client *marketplace.Client
	auth   *http.Client
	logger zerolog.Logger

	mu      sync.Mutex
	session *domain.AuthSession
}

// NewAdapter creates a TikTok Shop adapter from the generic credential bundle.
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
		logger: logger.With().Str("platform", string(domain.PlatformTikTokShop)).Logger(),
	}
	a.client = marketplace.NewClient(marketplace.Options{
		Platform:       domain.PlatformTikTokShop,
		BaseURL:        config.BaseURL,
		Timeout:        config.Timeout,
		Sign:           a.signRequest,
		TokenExpired:   tokenExpired,
		Reauthenticate: a.refreshSession,
		NeedsRefresh:   a.needsRefresh,
		Logger:         a.logger,
	})
	return a, nil
}

func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformTikTokShop
}

// Authenticate exchanges the auth code (first connect) for a token pair.
func (a *Adapter) Authenticate(ctx context.Context) error {
	query := url.Values{}
	query.Set("app_key", a.config.AppKey)
	query.Set("app_secret", a.config.AppSecret)
	query.Set("grant_type", "authorized_code")
	if a.config.AuthCode != "" {
		query.Set("auth_code", a.config.AuthCode)
	}
	return a.tokenExchange(ctx, pathAuthToken, query)
}

// refreshSession renews the token pair with the refresh grant, falling back
// to the auth-code exchange when no refresh token is held. A failed refresh
// drops the session so the adapter is Unauthenticated again.
func (a *Adapter) refreshSession(ctx context.Context) error {
	a.mu.Lock()
	refreshToken := ""
	if a.session != nil {
		refreshToken = a.session.RefreshToken
	}
	a.mu.Unlock()

	if refreshToken == "" {
		return a.Authenticate(ctx)
	}

	query := url.Values{}
	query.Set("app_key", a.config.AppKey)
	query.Set("app_secret", a.config.AppSecret)
	query.Set("grant_type", "refresh_token")
	query.Set("refresh_token", refreshToken)

	if err := a.tokenExchange(ctx, pathRefreshToken, query); err != nil {
		a.mu.Lock()
		a.session = nil
		a.mu.Unlock()
		return err
	}
	return nil
}

func (a *Adapter) tokenExchange(ctx context.Context, path string, query url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.AuthURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}

	resp, err := a.auth.Do(req)
	if err != nil {
		return &domain.AuthenticationError{Platform: domain.PlatformTikTokShop, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.AuthenticationError{Platform: domain.PlatformTikTokShop, Status: resp.StatusCode, Reason: err.Error()}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil || token.IsError() || token.Data.AccessToken == "" {
		return &domain.AuthenticationError{
			Platform: domain.PlatformTikTokShop,
			Status:   resp.StatusCode,
			Body:     string(body),
			Reason:   "no access token in response",
		}
	}

	// access_token_expire_in is an absolute unix timestamp.
	expiresAt := time.Time{}
	if token.Data.AccessTokenExpireIn > 0 {
		expiresAt = time.Unix(token.Data.AccessTokenExpireIn, 0)
	}

	a.mu.Lock()
	a.session = &domain.AuthSession{
		AccessToken:  token.Data.AccessToken,
		RefreshToken: token.Data.RefreshToken,
		ExpiresAt:    expiresAt,
	}
	a.mu.Unlock()

	a.logger.Info().Str("shopId", a.config.ShopID).Msg("authenticated with TikTok Shop")
	return nil
}

func (a *Adapter) needsRefresh() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.NeedsRefresh(time.Now())
}

// signRequest adds the common parameters, computes the digest over the sorted
// query, and attaches the access token as both parameter and header.
func (a *Adapter) signRequest(req *http.Request) error {
	a.mu.Lock()
	accessToken := ""
	if a.session != nil {
		accessToken = a.session.AccessToken
	}
	a.mu.Unlock()

	query := req.URL.Query()
	query.Set("app_key", a.config.AppKey)
	query.Set("timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	query.Set("shop_id", a.config.ShopID)

	params := make(map[string]string, len(query))
	for k := range query {
		params[k] = query.Get(k)
	}
	query.Set("sign", a.config.Sign(req.URL.Path, params))
	query.Set("access_token", accessToken)
	req.URL.RawQuery = query.Encode()
	req.Header.Set("x-tts-access-token", accessToken)
	return nil
}

func tokenExpired(status int, body []byte) bool {
	if status == http.StatusUnauthorized {
		return true
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	return env.Code == codeTokenExpired
}

// VerifyShop confirms the credentials reach an authorized shop.
func (a *Adapter) VerifyShop(ctx context.Context) error {
	body, err := a.client.Do(ctx, http.MethodGet, pathShopInfo, nil, nil)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("failed to parse shop info: %w", err)
	}
	if env.IsError() {
		return &domain.UpstreamError{Platform: domain.PlatformTikTokShop, Path: pathShopInfo, Status: http.StatusOK, Body: string(body)}
	}
	a.logger.Debug().Str("shopId", a.config.ShopID).Msg("verified authorized shop")
	return nil
}

// GetOrders pulls recent orders, walking TikTok Shop's cursor pagination.
func (a *Adapter) GetOrders(ctx context.Context) ([]json.RawMessage, error) {
	now := time.Now()
	orders := make([]json.RawMessage, 0)
	cursor := ""

	for page := 0; page < maxPages; page++ {
		payload := map[string]any{
			"page_size":        pageSize,
			"create_time_from": now.Add(-orderSyncWindow).Unix(),
			"create_time_to":   now.Unix(),
		}
		if cursor != "" {
			payload["cursor"] = cursor
		}

		body, err := a.client.Do(ctx, http.MethodPost, pathOrderSearch, nil, payload)
		if err != nil {
			return nil, err
		}

		var resp orderListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse order list: %w", err)
		}
		if resp.IsError() {
			return nil, &domain.UpstreamError{Platform: domain.PlatformTikTokShop, Path: pathOrderSearch, Status: http.StatusOK, Body: string(body)}
		}

		orders = append(orders, resp.Data.OrderList...)
		if !resp.Data.More || resp.Data.NextCursor == "" {
			break
		}
		cursor = resp.Data.NextCursor
	}

	return orders, nil
}

// GetProducts pulls the product list, walking the same cursor pagination.
func (a *Adapter) GetProducts(ctx context.Context) ([]json.RawMessage, error) {
	products := make([]json.RawMessage, 0)
	cursor := ""

	for page := 0; page < maxPages; page++ {
		payload := map[string]any{
			"page_size": pageSize,
		}
		if cursor != "" {
			payload["cursor"] = cursor
		}

		body, err := a.client.Do(ctx, http.MethodPost, pathProductList, nil, payload)
		if err != nil {
			return nil, err
		}

		var resp productListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse product list: %w", err)
		}
		if resp.IsError() {
			return nil, &domain.UpstreamError{Platform: domain.PlatformTikTokShop, Path: pathProductList, Status: http.StatusOK, Body: string(body)}
		}

		products = append(products, resp.Data.Products...)
		if !resp.Data.More || resp.Data.NextCursor == "" {
			break
		}
		cursor = resp.Data.NextCursor
	}

	return products, nil
}

// GetOrderDetails fetches the full record for one order.
func (a *Adapter) GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	payload := map[string]any{
		"order_id_list": []string{orderID},
	}

	body, err := a.client.Do(ctx, http.MethodPost, pathOrderDetail, nil, payload)
	if err != nil {
		return nil, err
	}

	var resp orderListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse order detail: %w", err)
	}
	if resp.IsError() || len(resp.Data.OrderList) == 0 {
		return nil, &domain.UpstreamError{Platform: domain.PlatformTikTokShop, Path: pathOrderDetail, Status: http.StatusOK, Body: string(body)}
	}
	return resp.Data.OrderList[0], nil
}

// UpdateStock sets the available stock for one SKU.
func (a *Adapter) UpdateStock(ctx context.Context, productID, skuID string, quantity int64) error {
	payload := map[string]any{
		"product_id": productID,
		"skus": []map[string]any{
			{
				"id": skuID,
				"stock_infos": []map[string]any{
					{"available_stock": quantity},
				},
			},
		},
	}

	body, err := a.client.Do(ctx, http.MethodPut, pathUpdateStock, nil, payload)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.IsError() {
		return &domain.UpstreamError{Platform: domain.PlatformTikTokShop, Path: pathUpdateStock, Status: http.StatusOK, Body: string(body)}
	}
	return nil
}

// ShipOrder marks an order ready to ship.
func (a *Adapter) ShipOrder(ctx context.Context, orderID, _, _ string) error {
	payload := map[string]any{
		"order_id": orderID,
	}

	body, err := a.client.Do(ctx, http.MethodPost, pathShipOrder, nil, payload)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.IsError() {
		return &domain.UpstreamError{Platform: domain.PlatformTikTokShop, Path: pathShipOrder, Status: http.StatusOK, Body: string(body)}
	}
	return nil
}

// HandleWebhook maps a TikTok Shop notification onto the shared event
// variants and hydrates order events with the full order record.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	switch env.Type {
	case webhookTypeOrderStatus:
		if env.Data.OrderID == "" {
			return domain.NewWebhookEvent(domain.PlatformTikTokShop, domain.WebhookUnknown, payload), nil
		}

		kind := domain.WebhookOrderUpdate
		if env.Data.OrderStatus == "UNPAID" || env.Data.OrderStatus == "AWAITING_SHIPMENT" {
			kind = domain.WebhookNewOrder
		}

		order, err := a.GetOrderDetails(ctx, env.Data.OrderID)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate order %s: %w", env.Data.OrderID, err)
		}

		event := domain.NewWebhookEvent(domain.PlatformTikTokShop, kind, payload)
		event.OrderID = env.Data.OrderID
		event.Order = order
		return event, nil

	case webhookTypeProductAudit:
		event := domain.NewWebhookEvent(domain.PlatformTikTokShop, domain.WebhookProductUpdate, payload)
		event.ProductID = env.Data.ProductID
		return event, nil

	default:
		return domain.NewWebhookEvent(domain.PlatformTikTokShop, domain.WebhookUnknown, payload), nil
	}
}

var _ ports.Adapter = (*Adapter)(nil)
