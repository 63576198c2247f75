package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// NormalizedOrder is the platform-agnostic order shape produced at the
// registry boundary. Common fields are extracted best-effort; the full
// marketplace payload rides along in Raw so nothing is lost.
type NormalizedOrder struct {
	Platform  Platform        `json:"platform"`
	Source    string          `json:"source"`
	OrderID   string          `json:"orderId"`
	Status    string          `json:"status,omitempty"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency,omitempty"`
	CreatedAt time.Time       `json:"createdAt,omitzero"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// NormalizedProduct is the platform-agnostic product shape.
type NormalizedProduct struct {
	Platform  Platform        `json:"platform"`
	Source    string          `json:"source"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Stock     int64           `json:"stock"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}
