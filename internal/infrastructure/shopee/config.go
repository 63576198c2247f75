package shopee

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"commerce-sync-layer/internal/domain"
)

// ProductionBaseURL is the Shopee Open Platform v2 endpoint.
const ProductionBaseURL = "https://partner.shopeemobile.com"

// Config holds the Shopee partner credentials and endpoint settings.
type Config struct {
	// PartnerID identifies the partner application.
	PartnerID string
	// PartnerKey signs every request (HMAC-SHA256 over the base string).
	PartnerKey string
	// ShopID is the shop the partner is authorized for.
	ShopID string
	// AuthCode is the optional one-time OAuth code for the first token exchange.
	AuthCode string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds each outbound call.
	Timeout time.Duration
}

// ConfigFromCredentials maps the generic credential bundle onto Shopee's
// partner fields. APISecret is the partner signing key.
func ConfigFromCredentials(creds domain.Credentials) Config {
	return Config{
		PartnerID:  creds.PartnerID,
		PartnerKey: creds.APISecret,
		ShopID:     creds.ShopID,
		AuthCode:   creds.AuthCode,
	}
}

// Validate fills defaults and checks required fields.
func (c *Config) Validate() error {
	if c.PartnerID == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformShopee, Field: "partnerId"}
	}
	if c.PartnerKey == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformShopee, Field: "apiSecret"}
	}
	if c.ShopID == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformShopee, Field: "shopId"}
	}
	if c.BaseURL == "" {
		c.BaseURL = ProductionBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	return nil
}

// SignPublic signs an auth endpoint request. The base string for public
// endpoints is partner_id + path + timestamp.
func (c *Config) SignPublic(path string, timestamp int64) string {
	base := fmt.Sprintf("%s%s%d", c.PartnerID, path, timestamp)
	return c.hmac(base)
}

// SignShop signs a shop endpoint request. The base string is
// partner_id + path + timestamp + access_token + shop_id.
func (c *Config) SignShop(path string, timestamp int64, accessToken string) string {
	base := fmt.Sprintf("%s%s%d%s%s", c.PartnerID, path, timestamp, accessToken, c.ShopID)
	return c.hmac(base)
}

func (c *Config) hmac(base string) string {
	h := hmac.New(sha256.New, []byte(c.PartnerKey))
	h.Write([]byte(base))
	return hex.EncodeToString(h.Sum(nil))
}
