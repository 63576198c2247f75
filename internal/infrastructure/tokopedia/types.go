package tokopedia

import "encoding/json"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type listResponse struct {
	Data []json.RawMessage `json:"data"`
}

type detailResponse struct {
	Data json.RawMessage `json:"data"`
}

// orderListParams is encoded with go-querystring; Tokopedia paginates order
// and product lists with page + per_page.
type orderListParams struct {
	FsID     string `url:"fs_id"`
	ShopID   string `url:"shop_id"`
	FromDate int64  `url:"from_date"`
	ToDate   int64  `url:"to_date"`
	Page     int    `url:"page"`
	PerPage  int    `url:"per_page"`
}

type productListParams struct {
	ShopID  string `url:"shop_id"`
	Page    int    `url:"page"`
	PerPage int    `url:"per_page"`
}

// Tokopedia webhook discriminators carried in the type field.
const (
	webhookTypeOrderNotification = "order_notification"
	webhookTypeOrderStatus       = "order_status"
	webhookTypeProductUpdate     = "product_update"
)

type webhookEnvelope struct {
	Type      string      `json:"type"`
	OrderID   json.Number `json:"order_id"`
	ProductID json.Number `json:"product_id"`
	ShopID    json.Number `json:"shop_id"`
}
