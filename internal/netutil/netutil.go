package netutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"strings"
	"unicode/utf8"
)

const MaxUserAgentLength = 512

// NormalizeIP takes either a bare IP string or an address that may include a
// port (e.g. "192.0.2.4:1234" or "[2001:db8::1]:443") and returns the
// canonical IP portion without zone identifiers. The second return value
// reports whether the input parsed as an IP address.
func NormalizeIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if addrPort, err := netip.ParseAddrPort(raw); err == nil {
		addr := addrPort.Addr().WithZone("")
		if addr.IsValid() {
			return addr.String(), true
		}
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		addr = addr.WithZone("")
		if addr.IsValid() {
			return addr.String(), true
		}
	}
	// Bracketed IPv6 with a non-numeric port (e.g. "[::1]:port").
	if strings.HasPrefix(raw, "[") && strings.Contains(raw, "]") {
		host := raw[1:strings.LastIndex(raw, "]")]
		if addr, err := netip.ParseAddr(host); err == nil {
			addr = addr.WithZone("")
			if addr.IsValid() {
				return addr.String(), true
			}
		}
	}
	return raw, false
}

// TruncateUserAgent trims overly long user agents to MaxUserAgentLength runes.
func TruncateUserAgent(ua string) string {
	if ua == "" {
		return ""
	}
	if utf8.RuneCountInString(ua) <= MaxUserAgentLength {
		return ua
	}
	var builder strings.Builder
	builder.Grow(len(ua))
	count := 0
	for _, r := range ua {
		builder.WriteRune(r)
		count++
		if count >= MaxUserAgentLength {
			break
		}
	}
	return builder.String()
}

// ClientKey derives the composite client identity used for rate limiting and
// lockout tracking. The fingerprint component is a weak, spoofable hint; it
// sharpens the key but is never an authentication factor.
func ClientKey(ip, userAgent, fingerprint string) string {
	if normalized, ok := NormalizeIP(ip); ok {
		ip = normalized
	}
	sum := sha256.Sum256([]byte(ip + "\x00" + TruncateUserAgent(userAgent) + "\x00" + fingerprint))
	return hex.EncodeToString(sum[:])
}
