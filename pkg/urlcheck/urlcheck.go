// Package urlcheck validates and normalizes URLs submitted for shortening.
package urlcheck

import (
	"net/url"
	"strings"
)

var blockedHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
}

// blockedPrefixes are matched against the hostname as plain string prefixes,
// so 172.* is blocked as a whole rather than only 172.16.0.0/12.
var blockedPrefixes = []string{"192.168.", "10.", "172."}

// IsValid reports whether s is an absolute http or https URL whose host is
// neither loopback nor in one of the blocked private ranges.
func IsValid(s string) bool {
	if s == "" {
		return false
	}

	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	if _, ok := blockedHosts[host]; ok {
		return false
	}

	for _, prefix := range blockedPrefixes {
		if strings.HasPrefix(host, prefix) {
			return false
		}
	}

	return true
}

// Normalize returns the canonical form of s with a single trailing slash removed.
// If s cannot be parsed it is returned unchanged.
func Normalize(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return s
	}

	u.Host = strings.ToLower(u.Host)

	return strings.TrimSuffix(u.String(), "/")
}
