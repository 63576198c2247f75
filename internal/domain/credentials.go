package domain

// Credentials is the per-platform secret bundle supplied over the connect
// endpoint or read from the environment. It is held in memory only and is
// never written to disk or to any repository.
type Credentials struct {
	APIKey       string `json:"apiKey,omitempty"`
	APISecret    string `json:"apiSecret,omitempty"`
	PartnerID    string `json:"partnerId,omitempty"`
	ShopID       string `json:"shopId,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	FsID         string `json:"fsId,omitempty"`
	AuthCode     string `json:"authCode,omitempty"`
}

// Validate checks that the fields a platform requires are present.
// It returns a ConfigurationError naming the first missing field.
func (c Credentials) Validate(platform Platform) error {
	required := map[string]string{}
	switch platform {
	case PlatformShopee:
		required["apiKey"] = c.APIKey
		required["apiSecret"] = c.APISecret
		required["partnerId"] = c.PartnerID
		required["shopId"] = c.ShopID
	case PlatformTokopedia:
		required["clientId"] = c.ClientID
		required["clientSecret"] = c.ClientSecret
		required["fsId"] = c.FsID
		required["shopId"] = c.ShopID
	case PlatformTikTokShop:
		required["apiKey"] = c.APIKey
		required["apiSecret"] = c.APISecret
		required["shopId"] = c.ShopID
	default:
		return &ConfigurationError{Platform: platform, Field: "platform"}
	}

	// Deterministic order so error messages are stable.
	for _, field := range []string{"apiKey", "apiSecret", "partnerId", "shopId", "clientId", "clientSecret", "fsId"} {
		value, ok := required[field]
		if ok && value == "" {
			return &ConfigurationError{Platform: platform, Field: field}
		}
	}
	return nil
}
