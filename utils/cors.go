package utils

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/cors"
)

// IsAllowedOrigin trusts browser origins on the local network: localhost,
// loopback, private and link-local IPs, .local names and single-label hosts.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	switch {
	case hostname == "localhost", strings.HasSuffix(hostname, ".local"):
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
	}

	return !strings.Contains(hostname, ".")
}

// OriginPolicy allows the local network plus explicitly configured origins.
type OriginPolicy struct {
	extra map[string]struct{}
}

// NewOriginPolicy builds a policy; entries are compared without a trailing slash.
func NewOriginPolicy(allowed []string) *OriginPolicy {
	p := &OriginPolicy{extra: make(map[string]struct{}, len(allowed))}
	for _, origin := range allowed {
		origin = strings.TrimSuffix(strings.TrimSpace(origin), "/")
		if origin != "" {
			p.extra[strings.ToLower(origin)] = struct{}{}
		}
	}
	return p
}

// Allow reports whether origin may call the API from a browser.
func (p *OriginPolicy) Allow(origin string) bool {
	if _, ok := p.extra[strings.ToLower(strings.TrimSuffix(origin, "/"))]; ok {
		return true
	}
	return IsAllowedOrigin(origin)
}

// CORS wraps a handler with rs/cors using the policy.
func (p *OriginPolicy) CORS(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc:  p.Allow,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler(next)
}
