package middleware

import (
	"fmt"
	"net"

	"github.com/labstack/echo/v4"
)

// DefaultTrustedProxies are the private ranges a containerized deployment's
// reverse proxy usually connects from.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fd00::/8",
}

// TrustedProxies makes c.RealIP() read X-Forwarded-For only through peers in
// trustedCIDRs. The rate limiter keys on RealIP, so other clients get their
// socket address no matter what headers they send.
func TrustedProxies(e *echo.Echo, trustedCIDRs []string) error {
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return fmt.Errorf("parsing trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(network))
	}
	e.IPExtractor = echo.ExtractIPFromXFFHeader(opts...)
	return nil
}
