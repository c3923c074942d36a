package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the first valid address from X-Forwarded-For, then
// X-Real-IP, then the TCP peer. It returns "" when none parses.
func FromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for ip := range strings.SplitSeq(fwd, ",") {
			if parsed := parseIP(ip); parsed != "" {
				return parsed
			}
		}
	}
	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return PeerIP(r)
}

// PeerIP returns the address of the TCP peer.
func PeerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

// parseIP validates s and returns its canonical form, or "".
func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
