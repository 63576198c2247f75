package shopee

import "encoding/json"

// errTokenExpired is Shopee's platform-level error code for a stale token.
// Shopee answers HTTP 200 with this code rather than a 401.
const errTokenExpired = "invalid_access_token"

// envelope is the common Shopee v2 response wrapper.
type envelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// IsError reports a platform-level failure inside a 2xx response.
func (e *envelope) IsError() bool {
	return e.Error != ""
}

type tokenResponse struct {
	envelope
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpireIn     int64  `json:"expire_in"`
}

type shopInfoResponse struct {
	envelope
	ShopName string `json:"shop_name"`
	Region   string `json:"region"`
	Status   string `json:"status"`
}

type orderListResponse struct {
	envelope
	Response struct {
		OrderList  []json.RawMessage `json:"order_list"`
		More       bool              `json:"more"`
		NextCursor string            `json:"next_cursor"`
	} `json:"response"`
}

type itemListResponse struct {
	envelope
	Response struct {
		Item        []json.RawMessage `json:"item"`
		TotalCount  int               `json:"total_count"`
		HasNextPage bool              `json:"has_next_page"`
		NextOffset  int               `json:"next_offset"`
	} `json:"response"`
}

// webhookEnvelope is the Shopee push payload. The numeric code discriminates
// the event type; data carries only identifiers.
type webhookEnvelope struct {
	Code      int             `json:"code"`
	ShopID    int64           `json:"shop_id"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Shopee push codes this adapter understands.
const (
	webhookCodeOrderStatus = 3
	webhookCodeItemUpdate  = 6
)

type webhookOrderData struct {
	OrderSN string `json:"ordersn"`
	Status  string `json:"status"`
}

type webhookItemData struct {
	ItemID int64 `json:"item_id"`
}
