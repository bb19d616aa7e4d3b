// Package fetch - platform.go detects storefront and site-builder platforms and their selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known storefront or site-builder platform.
type Platform string

const (
	// PlatformShopify is a Shopify storefront
	PlatformShopify Platform = "shopify"
	// PlatformEtsy is an Etsy shop or listing
	PlatformEtsy Platform = "etsy"
	// PlatformAmazon is an Amazon product or storefront page
	PlatformAmazon Platform = "amazon"
	// PlatformSquarespace is a Squarespace site
	PlatformSquarespace Platform = "squarespace"
	// PlatformWix is a Wix site
	PlatformWix Platform = "wix"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the hosting platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)

	switch {
	case strings.HasSuffix(host, "myshopify.com"):
		return PlatformShopify
	case host == "etsy.com" || strings.HasSuffix(host, ".etsy.com"):
		return PlatformEtsy
	case strings.Contains(host, "amazon."):
		return PlatformAmazon
	case strings.HasSuffix(host, "squarespace.com"):
		return PlatformSquarespace
	case strings.HasSuffix(host, "wixsite.com") || strings.HasSuffix(host, "wix.com"):
		return PlatformWix
	}

	return PlatformUnknown
}

// RequiresBrowser reports whether pages on the platform render their content client-side.
func RequiresBrowser(platform Platform) bool {
	return platform == PlatformWix
}

// PlatformContentSelectors returns content selectors optimized for a specific platform.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformShopify:
		return []string{
			".product__description",
			".product-single__description",
			"#MainContent",
			"main",
		}
	case PlatformEtsy:
		return []string{
			"[data-product-details-description-text-content]",
			".shop-home-wider-sections",
			"#listing-page-cart",
			"main",
		}
	case PlatformAmazon:
		return []string{
			"#feature-bullets",
			"#productDescription",
			"#dp-container",
		}
	case PlatformSquarespace:
		return []string{
			".sqs-layout",
			"#page",
			"main",
		}
	case PlatformWix:
		return []string{
			"#PAGES_CONTAINER",
			"main",
		}
	default:
		return BusinessPageSelectors()
	}
}

// PlatformNoiseSelectors returns noise exclusion selectors for a specific platform.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		// Newsletter and forms
		"form",
		".newsletter",
		".newsletter-signup",

		// Cart and checkout widgets
		".cart-drawer",
		".mini-cart",

		// Social and share buttons
		".social-share",
		".share-buttons",

		// Cookie and GDPR
		".cookie-banner",
		".cookie-consent",
		".gdpr-notice",
	}

	switch platform {
	case PlatformShopify:
		return append(common,
			".shopify-section-header",
			".announcement-bar",
			"#shopify-section-footer",
		)
	case PlatformEtsy:
		return append(common,
			"#gnav-header",
			".wt-recommendations",
		)
	case PlatformAmazon:
		return append(common,
			"#nav-belt",
			"#rhf",
			".a-carousel-container",
		)
	default:
		return common
	}
}
