package fetch

import (
	"net/url"
	"strings"
)

// Platform is a dealer website provider. Sites on the same provider share inventory markup.
type Platform string

const (
	PlatformDealerOn      Platform = "dealeron"
	PlatformDealerInspire Platform = "dealerinspire"
	PlatformDealerCom     Platform = "dealercom"
	PlatformGeneric       Platform = "generic"
)

// DetectPlatform identifies the dealer website provider from an inventory URL or page HTML.
// html may be empty.
func DetectPlatform(urlStr, html string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformGeneric
	}

	host := strings.ToLower(parsed.Host)
	path := strings.ToLower(parsed.Path)
	body := strings.ToLower(html)

	switch {
	case strings.Contains(host, "dealeron") || strings.Contains(body, "dealeron.com") ||
		strings.Contains(path, "/searchused.aspx") || strings.Contains(path, "/searchnew.aspx"):
		return PlatformDealerOn
	case strings.Contains(host, "dealerinspire") || strings.Contains(body, "dealerinspire"):
		return PlatformDealerInspire
	case strings.Contains(body, "ddc-") || strings.Contains(body, "dealer.com") ||
		strings.Contains(path, "/used-inventory/index.htm"):
		return PlatformDealerCom
	default:
		return PlatformGeneric
	}
}
