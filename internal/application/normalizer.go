package application

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"commerce-sync-layer/internal/domain"
)

// Each marketplace returns its own payload shape; normalization extracts the
// shared fields best-effort and keeps the original payload in Raw. A field
// that fails to parse is left at its zero value, never an error, so one odd
// order cannot fail a whole sync.

type shopeeOrderFields struct {
	OrderSN     string      `json:"order_sn"`
	OrderStatus string      `json:"order_status"`
	TotalAmount json.Number `json:"total_amount"`
	Currency    string      `json:"currency"`
	CreateTime  int64       `json:"create_time"`
}

type shopeeProductFields struct {
	ItemID   json.Number `json:"item_id"`
	ItemName string      `json:"item_name"`
	Price    json.Number `json:"price"`
	Stock    int64       `json:"stock"`
}

type tokopediaOrderFields struct {
	OrderID       json.Number `json:"order_id"`
	OrderStatus   json.Number `json:"order_status"`
	PaymentAmount json.Number `json:"payment_amount"`
	CreateTime    string      `json:"create_time"`
}

type tokopediaProductFields struct {
	ProductID json.Number `json:"product_id"`
	Name      string      `json:"name"`
	Price     json.Number `json:"price"`
	Stock     int64       `json:"stock"`
}

type tiktokOrderFields struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"`
	PaymentInfo struct {
		TotalAmount json.Number `json:"total_amount"`
		Currency    string      `json:"currency"`
	} `json:"payment_info"`
	CreateTime int64 `json:"create_time"`
}

type tiktokProductFields struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Skus   []struct {
		Price struct {
			OriginalPrice json.Number `json:"original_price"`
		} `json:"price"`
		StockInfos []struct {
			AvailableStock int64 `json:"available_stock"`
		} `json:"stock_infos"`
	} `json:"skus"`
}

func parseAmount(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func normalizeOrder(platform domain.Platform, raw json.RawMessage) domain.NormalizedOrder {
	order := domain.NormalizedOrder{
		Platform: platform,
		Source:   domain.SourceEcommerce,
		Raw:      raw,
	}

	switch platform {
	case domain.PlatformShopee:
		var f shopeeOrderFields
		if json.Unmarshal(raw, &f) == nil {
			order.OrderID = f.OrderSN
			order.Status = f.OrderStatus
			order.Total = parseAmount(f.TotalAmount)
			order.Currency = f.Currency
			if f.CreateTime > 0 {
				order.CreatedAt = time.Unix(f.CreateTime, 0).UTC()
			}
		}
	case domain.PlatformTokopedia:
		var f tokopediaOrderFields
		if json.Unmarshal(raw, &f) == nil {
			order.OrderID = f.OrderID.String()
			order.Status = f.OrderStatus.String()
			order.Total = parseAmount(f.PaymentAmount)
			// Tokopedia amounts are always rupiah.
			order.Currency = "IDR"
			if t, err := time.Parse(time.RFC3339, f.CreateTime); err == nil {
				order.CreatedAt = t
			}
		}
	case domain.PlatformTikTokShop:
		var f tiktokOrderFields
		if json.Unmarshal(raw, &f) == nil {
			order.OrderID = f.OrderID
			order.Status = f.OrderStatus
			order.Total = parseAmount(f.PaymentInfo.TotalAmount)
			order.Currency = f.PaymentInfo.Currency
			if f.CreateTime > 0 {
				order.CreatedAt = time.Unix(f.CreateTime, 0).UTC()
			}
		}
	}

	return order
}

func normalizeProduct(platform domain.Platform, raw json.RawMessage) domain.NormalizedProduct {
	product := domain.NormalizedProduct{
		Platform: platform,
		Source:   domain.SourceEcommerce,
		Raw:      raw,
	}

	switch platform {
	case domain.PlatformShopee:
		var f shopeeProductFields
		if json.Unmarshal(raw, &f) == nil {
			product.ProductID = f.ItemID.String()
			product.Name = f.ItemName
			product.Price = parseAmount(f.Price)
			product.Stock = f.Stock
		}
	case domain.PlatformTokopedia:
		var f tokopediaProductFields
		if json.Unmarshal(raw, &f) == nil {
			product.ProductID = f.ProductID.String()
			product.Name = f.Name
			product.Price = parseAmount(f.Price)
			product.Stock = f.Stock
		}
	case domain.PlatformTikTokShop:
		var f tiktokProductFields
		if json.Unmarshal(raw, &f) == nil {
			product.ProductID = f.ID
			product.Name = f.Name
			if len(f.Skus) > 0 {
				product.Price = parseAmount(f.Skus[0].Price.OriginalPrice)
				for _, sku := range f.Skus {
					for _, stock := range sku.StockInfos {
						product.Stock += stock.AvailableStock
					}
				}
			}
		}
	}

	return product
}
