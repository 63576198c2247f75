package tiktokshop

import "encoding/json"

// codeTokenExpired is TikTok Shop's platform-level error code for a stale
// token; it can arrive with either a 200 or a 401.
const codeTokenExpired = 1000004

// envelope is the common TikTok Shop response wrapper.
type envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

func (e *envelope) IsError() bool {
	return e.Code != 0
}

type tokenResponse struct {
	envelope
	Data struct {
		AccessToken          string `json:"access_token"`
		RefreshToken         string `json:"refresh_token"`
		AccessTokenExpireIn  int64  `json:"access_token_expire_in"`
		RefreshTokenExpireIn int64  `json:"refresh_token_expire_in"`
	} `json:"data"`
}

type orderListResponse struct {
	envelope
	Data struct {
		OrderList  []json.RawMessage `json:"order_list"`
		More       bool              `json:"more"`
		NextCursor string            `json:"next_cursor"`
		Total      int               `json:"total"`
	} `json:"data"`
}

type productListResponse struct {
	envelope
	Data struct {
		Products   []json.RawMessage `json:"products"`
		More       bool              `json:"more"`
		NextCursor string            `json:"next_cursor"`
		Total      int               `json:"total"`
	} `json:"data"`
}

// TikTok Shop webhook discriminators carried in the numeric type field.
const (
	webhookTypeOrderStatus  = 1
	webhookTypeProductAudit = 5
)

type webhookEnvelope struct {
	Type   int         `json:"type"`
	ShopID json.Number `json:"shop_id"`
	Data   struct {
		OrderID     string `json:"order_id"`
		OrderStatus string `json:"order_status"`
		ProductID   string `json:"product_id"`
	} `json:"data"`
}
