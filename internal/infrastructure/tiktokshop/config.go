package tiktokshop

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"commerce-sync-layer/internal/domain"
)

const (
	// AuthBaseURL is the TikTok Shop token service host.
	AuthBaseURL = "https://auth.tiktok-shops.com"
	// APIBaseURL is the TikTok Shop open API host.
	APIBaseURL = "https://open-api.tiktokglobalshop.com"
)

// Config holds the TikTok Shop app credentials and endpoint settings.
type Config struct {
	AppKey    string
	AppSecret string
	ShopID    string
	// AuthCode is the one-time code for the first token exchange.
	AuthCode string
	// AuthURL and BaseURL override the production hosts, mainly for tests.
	AuthURL string
	BaseURL string
	Timeout time.Duration
}

// ConfigFromCredentials maps the generic credential bundle onto TikTok Shop's
// fields. APIKey is the app key and APISecret the app secret.
func ConfigFromCredentials(creds domain.Credentials) Config {
	return Config{
		AppKey:    creds.APIKey,
		AppSecret: creds.APISecret,
		ShopID:    creds.ShopID,
		AuthCode:  creds.AuthCode,
	}
}

// Validate fills defaults and checks required fields.
func (c *Config) Validate() error {
	if c.AppKey == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformTikTokShop, Field: "apiKey"}
	}
	if c.AppSecret == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformTikTokShop, Field: "apiSecret"}
	}
	if c.ShopID == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformTikTokShop, Field: "shopId"}
	}
	if c.AuthURL == "" {
		c.AuthURL = AuthBaseURL
	}
	if c.BaseURL == "" {
		c.BaseURL = APIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	return nil
}

// Sign computes the TikTok Shop request signature: the query parameters
// (minus sign and access_token) are sorted by key, concatenated as key+value,
// wrapped with the path and the app secret on both sides, then digested with
// HMAC-SHA256 keyed by the app secret.
func (c *Config) Sign(path string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" || k == "access_token" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(c.AppSecret)
	builder.WriteString(path)
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(params[k])
	}
	builder.WriteString(c.AppSecret)

	h := hmac.New(sha256.New, []byte(c.AppSecret))
	h.Write([]byte(builder.String()))
	return hex.EncodeToString(h.Sum(nil))
}
