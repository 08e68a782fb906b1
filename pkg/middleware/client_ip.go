package middleware

import (
	"fmt"
	"net"

	"github.com/labstack/echo/v4"
)

// ClientIPExtractor returns the extractor used for c.RealIP().
// Without trusted proxies the peer address is used and forwarding headers are
// ignored. Otherwise X-Forwarded-For is honored only when it was appended by one
// of the given CIDRs.
func ClientIPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect(), nil
	}

	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}
