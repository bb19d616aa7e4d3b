package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://acme-goods.myshopify.com/products/mug", PlatformShopify},
		{"https://www.etsy.com/shop/ClayStudio", PlatformEtsy},
		{"https://etsy.com/listing/123", PlatformEtsy},
		{"https://www.amazon.com/dp/B000123", PlatformAmazon},
		{"https://studio.squarespace.com", PlatformSquarespace},
		{"https://maria.wixsite.com/bakery", PlatformWix},
		{"https://acme.test", PlatformUnknown},
		{"://bad", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestRequiresBrowser(t *testing.T) {
	assert.True(t, RequiresBrowser(PlatformWix))
	assert.False(t, RequiresBrowser(PlatformShopify))
}

func TestPlatformContentSelectors_Unknown(t *testing.T) {
	assert.Equal(t, BusinessPageSelectors(), PlatformContentSelectors(PlatformUnknown))
}

func TestPlatformNoiseSelectors(t *testing.T) {
	common := PlatformNoiseSelectors(PlatformUnknown)
	shopify := PlatformNoiseSelectors(PlatformShopify)

	assert.Contains(t, common, ".cookie-banner")
	assert.Contains(t, shopify, ".announcement-bar")
	assert.Greater(t, len(shopify), len(common))
}
