package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-sync-layer/internal/application"
	"commerce-sync-layer/internal/domain"
	"commerce-sync-layer/internal/ports"
)

type stubAdapter struct {
	platform domain.Platform
	authErr  error
	orders   []json.RawMessage
	webhook  *domain.WebhookEvent
}

func (s *stubAdapter) Platform() domain.Platform          { return s.platform }
func (s *stubAdapter) Authenticate(context.Context) error { return s.authErr }
func (s *stubAdapter) VerifyShop(context.Context) error   { return nil }

func (s *stubAdapter) GetOrders(context.Context) ([]json.RawMessage, error) {
	return s.orders, nil
}

func (s *stubAdapter) GetProducts(context.Context) ([]json.RawMessage, error) {
	return nil, nil
}

func (s *stubAdapter) GetOrderDetails(_ context.Context, orderID string) (json.RawMessage, error) {
	return json.RawMessage(fmt.Sprintf(`{"order_id":%q}`, orderID)), nil
}

func (s *stubAdapter) UpdateStock(context.Context, string, string, int64) error { return nil }
func (s *stubAdapter) ShipOrder(context.Context, string, string, string) error  { return nil }

func (s *stubAdapter) HandleWebhook(context.Context, []byte) (*domain.WebhookEvent, error) {
	if s.webhook == nil {
		return domain.NewWebhookEvent(s.platform, domain.WebhookUnknown, nil), nil
	}
	return s.webhook, nil
}

func newTestRouter(adapters map[domain.Platform]*stubAdapter) (*chi.Mux, *application.Registry) {
	factory := func(platform domain.Platform, _ domain.Credentials) (ports.Adapter, error) {
		a, ok := adapters[platform]
		if !ok {
			return nil, errors.New("no stub configured")
		}
		return a, nil
	}
	registry := application.NewRegistry(factory, nil, nil, nil, zerolog.Nop())

	r := chi.NewRouter()
	NewHandlers(registry, zerolog.Nop()).Routes(r)
	return r, registry
}

func connectShopee(t *testing.T, registry *application.Registry) {
	t.Helper()
	err := registry.ConnectPlatform(context.Background(), domain.PlatformShopee, domain.Credentials{
		APIKey: "k", APISecret: "s", PartnerID: "1", ShopID: "2",
	})
	require.NoError(t, err)
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestStatusEndpoint(t *testing.T) {
	stub := &stubAdapter{platform: domain.PlatformShopee}
	router, registry := newTestRouter(map[domain.Platform]*stubAdapter{domain.PlatformShopee: stub})
	connectShopee(t, registry)

	rec, body := doRequest(t, router, http.MethodGet, "/api/ecommerce/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	status, ok := body["status"].(map[string]any)
	require.True(t, ok)
	shopee, ok := status["shopee"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, shopee["connected"])
	assert.NotEmpty(t, shopee["lastSync"])
}

func TestOrdersEndpoint(t *testing.T) {
	stub := &stubAdapter{
		platform: domain.PlatformShopee,
		orders:   []json.RawMessage{json.RawMessage(`{"order_sn":"A1","order_status":"READY_TO_SHIP"}`)},
	}
	router, registry := newTestRouter(map[domain.Platform]*stubAdapter{domain.PlatformShopee: stub})
	connectShopee(t, registry)

	t.Run("all platforms", func(t *testing.T) {
		rec, body := doRequest(t, router, http.MethodGet, "/api/ecommerce/orders", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), body["count"])
	})

	t.Run("filtered by platform", func(t *testing.T) {
		rec, body := doRequest(t, router, http.MethodGet, "/api/ecommerce/orders?platform=shopee", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(1), body["count"])

		rec, body = doRequest(t, router, http.MethodGet, "/api/ecommerce/orders?platform=tokopedia", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(0), body["count"])
	})

	t.Run("unknown platform filter", func(t *testing.T) {
		rec, body := doRequest(t, router, http.MethodGet, "/api/ecommerce/orders?platform=amazon", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, body["success"])
	})
}

func TestSyncEndpoints(t *testing.T) {
	stub := &stubAdapter{platform: domain.PlatformShopee}
	router, registry := newTestRouter(map[domain.Platform]*stubAdapter{domain.PlatformShopee: stub})
	connectShopee(t, registry)

	t.Run("sync all", func(t *testing.T) {
		rec, body := doRequest(t, router, http.MethodPost, "/api/ecommerce/sync", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
	})

	t.Run("sync one", func(t *testing.T) {
		rec, body := doRequest(t, router, http.MethodPost, "/api/ecommerce/sync/shopee", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
	})

	t.Run("sync unknown platform", func(t *testing.T) {
		rec, body := doRequest(t, router, http.MethodPost, "/api/ecommerce/sync/amazon", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, body["success"])
	})
}

func TestConnectEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		stub := &stubAdapter{platform: domain.PlatformShopee}
		router, _ := newTestRouter(map[domain.Platform]*stubAdapter{domain.PlatformShopee: stub})

		rec, body := doRequest(t, router, http.MethodPost, "/api/ecommerce/connect/shopee",
			`{"apiKey":"k","apiSecret":"s","partnerId":"1","shopId":"2"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "shopee connected", body["message"])
	})

	t.Run("missing credential field", func(t *testing.T) {
		router, _ := newTestRouter(nil)

		rec, body := doRequest(t, router, http.MethodPost, "/api/ecommerce/connect/shopee",
			`{"apiKey":"k"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "missing required field")
	})

	t.Run("marketplace rejects credentials", func(t *testing.T) {
		stub := &stubAdapter{platform: domain.PlatformShopee, authErr: errors.New("denied")}
		router, _ := newTestRouter(map[domain.Platform]*stubAdapter{domain.PlatformShopee: stub})

		rec, body := doRequest(t, router, http.MethodPost, "/api/ecommerce/connect/shopee",
			`{"apiKey":"k","apiSecret":"s","partnerId":"1","shopId":"2"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, false, body["success"])
	})
}

func TestDisconnectEndpoint(t *testing.T) {
	stub := &stubAdapter{platform: domain.PlatformShopee}
	router, registry := newTestRouter(map[domain.Platform]*stubAdapter{domain.PlatformShopee: stub})
	connectShopee(t, registry)

	rec, body := doRequest(t, router, http.MethodPost, "/api/ecommerce/disconnect/shopee", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "shopee disconnected", body["message"])
	assert.Empty(t, registry.GetStatus())
}

func TestWebhookEndpoint(t *testing.T) {
	t.Run("processed event", func(t *testing.T) {
		event := domain.NewWebhookEvent(domain.PlatformShopee, domain.WebhookNewOrder, []byte(`{}`))
		event.OrderID = "ORD-1"
		stub := &stubAdapter{platform: domain.PlatformShopee, webhook: event}
		router, registry := newTestRouter(map[domain.Platform]*stubAdapter{domain.PlatformShopee: stub})
		connectShopee(t, registry)

		rec, body := doRequest(t, router, http.MethodPost, "/api/webhook/shopee", `{"code":3}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])

		result, ok := body["result"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ORD-1", result["orderId"])
	})

	t.Run("unconnected platform still answers 200", func(t *testing.T) {
		router, _ := newTestRouter(nil)

		rec, body := doRequest(t, router, http.MethodPost, "/api/webhook/tokopedia", `{"type":"order_notification"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "webhook not supported", body["error"])
	})
}
