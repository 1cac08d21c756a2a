package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// clientIP returns the first public address in X-Forwarded-For, falling back to
// the socket peer. It is used for logging only.
func clientIP(c *fiber.Ctx) string {
	for _, raw := range strings.Split(c.Get(fiber.HeaderXForwardedFor), ",") {
		if addr, ok := parseAddr(raw); ok && isPublic(addr) {
			return addr.String()
		}
	}
	return c.IP()
}

// parseAddr accepts bare addresses, addr:port and bracketed IPv6.
func parseAddr(raw string) (netip.Addr, bool) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"")
	if clean == "" {
		return netip.Addr{}, false
	}
	if ap, err := netip.ParseAddrPort(clean); err == nil {
		return ap.Addr().Unmap(), true
	}
	clean = strings.TrimSuffix(strings.TrimPrefix(clean, "["), "]")
	if i := strings.IndexByte(clean, '%'); i >= 0 {
		clean = clean[:i]
	}
	addr, err := netip.ParseAddr(clean)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isPublic(addr netip.Addr) bool {
	return addr.IsValid() && !addr.IsPrivate() && !addr.IsLoopback() &&
		!addr.IsLinkLocalUnicast() && !addr.IsUnspecified()
}

// generateETag creates a strong ETag from content using SHA-256
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}
