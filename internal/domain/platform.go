package domain

import "fmt"

// Platform identifies a connected marketplace.
type Platform string

const (
	PlatformShopee     Platform = "shopee"
	PlatformTokopedia  Platform = "tokopedia"
	PlatformTikTokShop Platform = "tiktokshop"
)

// SourceEcommerce tags every record produced by the synchronization layer.
const SourceEcommerce = "ecommerce"

// KnownPlatforms returns all platforms the layer can connect to, in a stable order.
func KnownPlatforms() []Platform {
	return []Platform{PlatformShopee, PlatformTokopedia, PlatformTikTokShop}
}

// ParsePlatform validates a platform name coming from an HTTP path or config.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformShopee, PlatformTokopedia, PlatformTikTokShop:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

func (p Platform) String() string {
	return string(p)
}
