package ingest

import (
	"net"
	"net/http"
	"strings"
)

// DeriveClientIP returns the reporting device's address when the heartbeat
// body did not carry one. Trusted proxy headers are scanned in order; the
// first global (non-private, non-loopback, non-link-local) address wins.
// When no header yields one, the raw connection address is used.
func DeriveClientIP(h http.Header, trustedHeaders []string, remoteAddr string) string {
	for _, header := range trustedHeaders {
		for _, part := range strings.Split(h.Get(header), ",") {
			candidate := strings.TrimSpace(part)
			if ip := net.ParseIP(candidate); ip != nil && isGlobal(ip) {
				return candidate
			}
		}
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// remoteAddr may already be a bare IP.
		host = remoteAddr
	}
	if net.ParseIP(host) != nil {
		return host
	}
	return ""
}

func isGlobal(ip net.IP) bool {
	return !ip.IsPrivate() &&
		!ip.IsLoopback() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsUnspecified()
}
