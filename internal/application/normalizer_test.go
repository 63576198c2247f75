package application

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-sync-layer/internal/domain"
)

func TestNormalizeOrder(t *testing.T) {
	t.Run("shopee", func(t *testing.T) {
		raw := json.RawMessage(`{
			"order_sn": "220101ABCDEF",
			"order_status": "READY_TO_SHIP",
			"total_amount": 150000.50,
			"currency": "IDR",
			"create_time": 1704067200,
			"buyer_username": "budi"
		}`)

		order := normalizeOrder(domain.PlatformShopee, raw)
		assert.Equal(t, domain.PlatformShopee, order.Platform)
		assert.Equal(t, domain.SourceEcommerce, order.Source)
		assert.Equal(t, "220101ABCDEF", order.OrderID)
		assert.Equal(t, "READY_TO_SHIP", order.Status)
		assert.True(t, order.Total.Equal(decimal.NewFromFloat(150000.50)))
		assert.Equal(t, "IDR", order.Currency)
		assert.Equal(t, int64(1704067200), order.CreatedAt.Unix())
		assert.JSONEq(t, string(raw), string(order.Raw), "the full payload rides along")
	})

	t.Run("tokopedia numeric ids and implicit currency", func(t *testing.T) {
		raw := json.RawMessage(`{
			"order_id": 554433,
			"order_status": 220,
			"payment_amount": 99000
		}`)

		order := normalizeOrder(domain.PlatformTokopedia, raw)
		assert.Equal(t, "554433", order.OrderID)
		assert.Equal(t, "220", order.Status)
		assert.True(t, order.Total.Equal(decimal.NewFromInt(99000)))
		assert.Equal(t, "IDR", order.Currency)
	})

	t.Run("tiktokshop nested payment info", func(t *testing.T) {
		raw := json.RawMessage(`{
			"order_id": "576462",
			"order_status": "AWAITING_SHIPMENT",
			"payment_info": {"total_amount": 42.99, "currency": "USD"},
			"create_time": 1704067200
		}`)

		order := normalizeOrder(domain.PlatformTikTokShop, raw)
		assert.Equal(t, "576462", order.OrderID)
		assert.True(t, order.Total.Equal(decimal.NewFromFloat(42.99)))
		assert.Equal(t, "USD", order.Currency)
	})

	t.Run("malformed payload keeps the raw body", func(t *testing.T) {
		raw := json.RawMessage(`{"order_sn": 12345}`)
		order := normalizeOrder(domain.PlatformShopee, raw)
		assert.Empty(t, order.OrderID)
		assert.True(t, order.Total.IsZero())
		assert.Equal(t, raw, order.Raw)
	})
}

func TestNormalizeProduct(t *testing.T) {
	t.Run("shopee", func(t *testing.T) {
		raw := json.RawMessage(`{"item_id": 998877, "item_name": "Kopi Gayo", "price": 75000, "stock": 12}`)
		product := normalizeProduct(domain.PlatformShopee, raw)
		assert.Equal(t, "998877", product.ProductID)
		assert.Equal(t, "Kopi Gayo", product.Name)
		assert.True(t, product.Price.Equal(decimal.NewFromInt(75000)))
		assert.Equal(t, int64(12), product.Stock)
	})

	t.Run("tokopedia", func(t *testing.T) {
		raw := json.RawMessage(`{"product_id": 11, "name": "Teh Hijau", "price": 25000, "stock": 4}`)
		product := normalizeProduct(domain.PlatformTokopedia, raw)
		assert.Equal(t, "11", product.ProductID)
		assert.Equal(t, int64(4), product.Stock)
	})

	t.Run("tiktokshop sums stock across skus", func(t *testing.T) {
		raw := json.RawMessage(`{
			"id": "8811",
			"name": "Phone Case",
			"skus": [
				{"price": {"original_price": "9.99"}, "stock_infos": [{"available_stock": 5}, {"available_stock": 3}]},
				{"price": {"original_price": "12.99"}, "stock_infos": [{"available_stock": 2}]}
			]
		}`)

		product := normalizeProduct(domain.PlatformTikTokShop, raw)
		require.Equal(t, "8811", product.ProductID)
		assert.True(t, product.Price.Equal(decimal.RequireFromString("9.99")), "price comes from the first sku")
		assert.Equal(t, int64(10), product.Stock)
	})
}
