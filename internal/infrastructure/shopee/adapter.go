// Package shopee implements the marketplace adapter for the Shopee Open
// Platform v2 API. Shopee signs every request with HMAC-SHA256 over a
// per-endpoint base string and reports token expiry through a platform-level
// error code in a 200 response rather than an HTTP 401.
package shopee

import (
	"bytes"
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
	pathAuthToken    = "/api/v2/auth/token/get"
	pathRefreshToken = "/api/v2/auth/access_token/get"
	pathShopInfo     = "/api/v2/shop/get_shop_info"
	pathOrderList    = "/api/v2/order/get_order_list"
	pathOrderDetail  = "/api/v2/order/get_order_detail"
	pathItemList     = "/api/v2/product/get_item_list"
	pathUpdateStock  = "/api/v2/product/update_stock"
	pathShipOrder    = "/api/v2/logistics/ship_order"

	pageSize = 50
	maxPages = 10

	// orderSyncWindow is how far back each order sync looks.
	orderSyncWindow = 7 * 24 * time.Hour
)

// Adapter speaks the Shopee REST dialect behind the uniform capability set.
type Adapter struct {
	config Config
	client *marketplace.Client
	auth   *http.Client
	logger zerolog.Logger

	mu      sync.Mutex
	session *domain.AuthSession
}

// NewAdapter creates a Shopee adapter from the generic credential bundle.
func NewAdapter(creds domain.Credentials, logger zerolog.Logger) (*Adapter, error) {
	config := ConfigFromCredentials(creds)
	return NewAdapterWithConfig(config, logger)
}

// NewAdapterWithConfig creates an adapter from an explicit config, mainly so
// tests can point BaseURL at a mock server.
func NewAdapterWithConfig(config Config, logger zerolog.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config: config,
		auth:   &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("platform", string(domain.PlatformShopee)).Logger(),
	}
	a.client = marketplace.NewClient(marketplace.Options{
		Platform:       domain.PlatformShopee,
		BaseURL:        config.BaseURL,
		Timeout:        config.Timeout,
		Sign:           a.signRequest,
		TokenExpired:   tokenExpired,
		Reauthenticate: a.refreshSession,
		Logger:         a.logger,
	})
	return a, nil
}

func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformShopee
}

// Authenticate exchanges the partner credentials (plus the one-time auth code
// when present) for an access/refresh token pair.
func (a *Adapter) Authenticate(ctx context.Context) error {
	body := map[string]any{
		"partner_id": a.config.PartnerID,
		"shop_id":    a.config.ShopID,
	}
	if a.config.AuthCode != "" {
		body["code"] = a.config.AuthCode
	}
	return a.tokenExchange(ctx, pathAuthToken, body)
}

// refreshSession renews the token pair. With a refresh token in hand it uses
// the refresh endpoint; otherwise it falls back to a full token exchange.
// A failed refresh drops the session so the adapter is Unauthenticated again.
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

	body := map[string]any{
		"partner_id":    a.config.PartnerID,
		"shop_id":       a.config.ShopID,
		"refresh_token": refreshToken,
	}
	if err := a.tokenExchange(ctx, pathRefreshToken, body); err != nil {
		a.mu.Lock()
		a.session = nil
		a.mu.Unlock()
		return err
	}
	return nil
}

// tokenExchange posts to a Shopee auth endpoint with the public signature.
// No retry happens here; retry policy lives in the request client.
func (a *Adapter) tokenExchange(ctx context.Context, path string, body map[string]any) error {
	timestamp := time.Now().Unix()
	query := url.Values{}
	query.Set("partner_id", a.config.PartnerID)
	query.Set("timestamp", strconv.FormatInt(timestamp, 10))
	query.Set("sign", a.config.SignPublic(path, timestamp))

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+path+"?"+query.Encode(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.auth.Do(req)
	if err != nil {
		return &domain.AuthenticationError{Platform: domain.PlatformShopee, Reason: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.AuthenticationError{Platform: domain.PlatformShopee, Status: resp.StatusCode, Reason: err.Error()}
	}

	var token tokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil || token.AccessToken == "" {
		return &domain.AuthenticationError{
			Platform: domain.PlatformShopee,
			Status:   resp.StatusCode,
			Body:     string(respBody),
			Reason:   "no access token in response",
		}
	}

	a.mu.Lock()
	a.session = &domain.AuthSession{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiryFrom(token.ExpireIn),
	}
	a.mu.Unlock()

	a.logger.Info().Str("shopId", a.config.ShopID).Msg("authenticated with Shopee")
	return nil
}

func expiryFrom(expireIn int64) time.Time {
	if expireIn <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(expireIn) * time.Second)
}

// signRequest appends the shop-endpoint signature parameters to the query.
// It re-reads the session on every attempt so a refreshed token is used.
func (a *Adapter) signRequest(req *http.Request) error {
	a.mu.Lock()
	accessToken := ""
	if a.session != nil {
		accessToken = a.session.AccessToken
	}
	a.mu.Unlock()

	timestamp := time.Now().Unix()
	query := req.URL.Query()
	query.Set("partner_id", a.config.PartnerID)
	query.Set("timestamp", strconv.FormatInt(timestamp, 10))
	query.Set("access_token", accessToken)
	query.Set("shop_id", a.config.ShopID)
	query.Set("sign", a.config.SignShop(req.URL.Path, timestamp, accessToken))
	req.URL.RawQuery = query.Encode()
	return nil
}

// tokenExpired recognizes Shopee's expired-token answer: a 200 carrying the
// invalid_access_token error code.
func tokenExpired(_ int, body []byte) bool {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false
	}
	return env.Error == errTokenExpired
}

// VerifyShop confirms the credentials reach the configured shop.
func (a *Adapter) VerifyShop(ctx context.Context) error {
	body, err := a.client.Do(ctx, http.MethodGet, pathShopInfo, nil, nil)
	if err != nil {
		return err
	}
	var info shopInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return fmt.Errorf("failed to parse shop info: %w", err)
	}
	if info.IsError() {
		return &domain.UpstreamError{Platform: domain.PlatformShopee, Path: pathShopInfo, Status: http.StatusOK, Body: string(body)}
	}
	a.logger.Debug().Str("shopName", info.ShopName).Str("region", info.Region).Msg("verified shop info")
	return nil
}

// GetOrders pulls recent orders, walking Shopee's cursor pagination.
func (a *Adapter) GetOrders(ctx context.Context) ([]json.RawMessage, error) {
	now := time.Now()
	orders := make([]json.RawMessage, 0)
	cursor := ""

	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("time_range_field", "create_time")
		query.Set("time_from", strconv.FormatInt(now.Add(-orderSyncWindow).Unix(), 10))
		query.Set("time_to", strconv.FormatInt(now.Unix(), 10))
		query.Set("page_size", strconv.Itoa(pageSize))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		body, err := a.client.Do(ctx, http.MethodGet, pathOrderList, query, nil)
		if err != nil {
			return nil, err
		}

		var resp orderListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse order list: %w", err)
		}
		if resp.IsError() {
			return nil, &domain.UpstreamError{Platform: domain.PlatformShopee, Path: pathOrderList, Status: http.StatusOK, Body: string(body)}
		}

		orders = append(orders, resp.Response.OrderList...)
		if !resp.Response.More || resp.Response.NextCursor == "" {
			break
		}
		cursor = resp.Response.NextCursor
	}

	return orders, nil
}

// GetProducts pulls the item list, walking Shopee's offset pagination.
func (a *Adapter) GetProducts(ctx context.Context) ([]json.RawMessage, error) {
	products := make([]json.RawMessage, 0)
	offset := 0

	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("offset", strconv.Itoa(offset))
		query.Set("page_size", strconv.Itoa(pageSize))
		query.Set("item_status", "NORMAL")

		body, err := a.client.Do(ctx, http.MethodGet, pathItemList, query, nil)
		if err != nil {
			return nil, err
		}

		var resp itemListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse item list: %w", err)
		}
		if resp.IsError() {
			return nil, &domain.UpstreamError{Platform: domain.PlatformShopee, Path: pathItemList, Status: http.StatusOK, Body: string(body)}
		}

		products = append(products, resp.Response.Item...)
		if !resp.Response.HasNextPage {
			break
		}
		offset = resp.Response.NextOffset
	}

	return products, nil
}

// GetOrderDetails fetches the full record for one order.
func (a *Adapter) GetOrderDetails(ctx context.Context, orderID string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("order_sn_list", orderID)

	body, err := a.client.Do(ctx, http.MethodGet, pathOrderDetail, query, nil)
	if err != nil {
		return nil, err
	}

	var resp orderListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse order detail: %w", err)
	}
	if resp.IsError() || len(resp.Response.OrderList) == 0 {
		return nil, &domain.UpstreamError{Platform: domain.PlatformShopee, Path: pathOrderDetail, Status: http.StatusOK, Body: string(body)}
	}
	return resp.Response.OrderList[0], nil
}

// UpdateStock sets the stock level for one item model.
func (a *Adapter) UpdateStock(ctx context.Context, productID, skuID string, quantity int64) error {
	itemID, err := strconv.ParseInt(productID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid shopee item id %q: %w", productID, err)
	}

	stock := map[string]any{"normal_stock": quantity}
	if skuID != "" {
		modelID, err := strconv.ParseInt(skuID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shopee model id %q: %w", skuID, err)
		}
		stock["model_id"] = modelID
	}

	payload := map[string]any{
		"item_id":    itemID,
		"stock_list": []map[string]any{stock},
	}

	body, err := a.client.Do(ctx, http.MethodPost, pathUpdateStock, nil, payload)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.IsError() {
		return &domain.UpstreamError{Platform: domain.PlatformShopee, Path: pathUpdateStock, Status: http.StatusOK, Body: string(body)}
	}
	return nil
}

// ShipOrder marks an order as shipped.
func (a *Adapter) ShipOrder(ctx context.Context, orderID, carrier, trackingNumber string) error {
	payload := map[string]any{
		"order_sn": orderID,
	}
	if trackingNumber != "" {
		payload["tracking_number"] = trackingNumber
	}
	if carrier != "" {
		payload["shipping_carrier"] = carrier
	}

	body, err := a.client.Do(ctx, http.MethodPost, pathShipOrder, nil, payload)
	if err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.IsError() {
		return &domain.UpstreamError{Platform: domain.PlatformShopee, Path: pathShipOrder, Status: http.StatusOK, Body: string(body)}
	}
	return nil
}

// HandleWebhook maps a Shopee push envelope onto the shared event variants
// and hydrates order events with the full order record.
func (a *Adapter) HandleWebhook(ctx context.Context, payload []byte) (*domain.WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	switch env.Code {
	case webhookCodeOrderStatus:
		var data webhookOrderData
		if err := json.Unmarshal(env.Data, &data); err != nil || data.OrderSN == "" {
			return domain.NewWebhookEvent(domain.PlatformShopee, domain.WebhookUnknown, payload), nil
		}

		kind := domain.WebhookOrderUpdate
		if data.Status == "UNPAID" {
			kind = domain.WebhookNewOrder
		}

		order, err := a.GetOrderDetails(ctx, data.OrderSN)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate order %s: %w", data.OrderSN, err)
		}

		event := domain.NewWebhookEvent(domain.PlatformShopee, kind, payload)
		event.OrderID = data.OrderSN
		event.Order = order
		return event, nil

	case webhookCodeItemUpdate:
		var data webhookItemData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return domain.NewWebhookEvent(domain.PlatformShopee, domain.WebhookUnknown, payload), nil
		}
		event := domain.NewWebhookEvent(domain.PlatformShopee, domain.WebhookProductUpdate, payload)
		event.ProductID = strconv.FormatInt(data.ItemID, 10)
		return event, nil

	default:
		return domain.NewWebhookEvent(domain.PlatformShopee, domain.WebhookUnknown, payload), nil
	}
}

var _ ports.Adapter = (*Adapter)(nil)
