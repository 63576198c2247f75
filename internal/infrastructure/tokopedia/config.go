package tokopedia

import (
	"time"

	"commerce-sync-layer/internal/domain"
)

const (
	// AccountsBaseURL is the Tokopedia OAuth token endpoint host.
	AccountsBaseURL = "https://accounts.tokopedia.com"
	// APIBaseURL is the Tokopedia fulfillment-service API host.
	APIBaseURL = "https://fs.tokopedia.net"
)

// Config holds the Tokopedia app credentials and endpoint settings.
type Config struct {
	// ClientID and ClientSecret drive the HTTP Basic client-credentials grant.
	ClientID     string
	ClientSecret string
	// FsID is the fulfillment-service ID every data path is scoped to.
	FsID string
	// ShopID selects the shop within the fulfillment service.
	ShopID string
	// AccountsURL and BaseURL override the production hosts, mainly for tests.
	AccountsURL string
	BaseURL     string
	Timeout     time.Duration
}

// ConfigFromCredentials maps the generic credential bundle onto Tokopedia's fields.
func ConfigFromCredentials(creds domain.Credentials) Config {
	return Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		FsID:         creds.FsID,
		ShopID:       creds.ShopID,
	}
}

// Validate fills defaults and checks required fields.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformTokopedia, Field: "clientId"}
	}
	if c.ClientSecret == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformTokopedia, Field: "clientSecret"}
	}
	if c.FsID == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformTokopedia, Field: "fsId"}
	}
	if c.ShopID == "" {
		return &domain.ConfigurationError{Platform: domain.PlatformTokopedia, Field: "shopId"}
	}
	if c.AccountsURL == "" {
		c.AccountsURL = AccountsBaseURL
	}
	if c.BaseURL == "" {
		c.BaseURL = APIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	return nil
}
