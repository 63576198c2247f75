package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name         string
		platform     Platform
		creds        Credentials
		missingField string
	}{
		{
			name:     "shopee complete",
			platform: PlatformShopee,
			creds: Credentials{
				APIKey:    "key",
				APISecret: "secret",
				PartnerID: "12345",
				ShopID:    "67890",
			},
		},
		{
			name:     "shopee missing partner id",
			platform: PlatformShopee,
			creds: Credentials{
				APIKey:    "key",
				APISecret: "secret",
				ShopID:    "67890",
			},
			missingField: "partnerId",
		},
		{
			name:     "shopee missing secret",
			platform: PlatformShopee,
			creds: Credentials{
				APIKey:    "key",
				PartnerID: "12345",
				ShopID:    "67890",
			},
			missingField: "apiSecret",
		},
		{
			name:     "tokopedia complete",
			platform: PlatformTokopedia,
			creds: Credentials{
				ClientID:     "client",
				ClientSecret: "secret",
				FsID:         "14406",
				ShopID:       "480552",
			},
		},
		{
			name:     "tokopedia missing fs id",
			platform: PlatformTokopedia,
			creds: Credentials{
				ClientID:     "client",
				ClientSecret: "secret",
				ShopID:       "480552",
			},
			missingField: "fsId",
		},
		{
			name:     "tiktokshop complete",
			platform: PlatformTikTokShop,
			creds: Credentials{
				APIKey:    "appkey",
				APISecret: "appsecret",
				ShopID:    "7495",
			},
		},
		{
			name:         "tiktokshop missing shop id",
			platform:     PlatformTikTokShop,
			creds:        Credentials{APIKey: "appkey", APISecret: "appsecret"},
			missingField: "shopId",
		},
		{
			name:         "unknown platform",
			platform:     Platform("lazada"),
			creds:        Credentials{},
			missingField: "platform",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate(tt.platform)
			if tt.missingField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.missingField, ce.Field)
			assert.Equal(t, tt.platform, ce.Platform)
		})
	}
}

func TestParsePlatform(t *testing.T) {
	for _, p := range KnownPlatforms() {
		parsed, err := ParsePlatform(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := ParsePlatform("lazada")
	assert.Error(t, err)
	_, err = ParsePlatform("")
	assert.Error(t, err)
}
