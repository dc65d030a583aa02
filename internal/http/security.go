package http

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// securityMetrics tracks security-related events.
type securityMetrics struct {
	rateLimitHits      int64
	suspiciousRequests int64
	crossSiteBlocked   int64
}

// DefaultTrustedProxies are the networks allowed to set forwarding headers
// when none are configured.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

// clientResolver works out the address a request came from. Forwarding
// headers are only honoured when the direct peer is a trusted proxy.
type clientResolver struct {
	trusted []*net.IPNet
}

func newClientResolver(cidrs []string) (*clientResolver, error) {
	c := &clientResolver{}
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		c.trusted = append(c.trusted, network)
	}
	return c, nil
}

func (c *clientResolver) isTrusted(ip net.IP) bool {
	for _, network := range c.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP walks X-Forwarded-For from the nearest hop outwards and returns
// the first address that is not a trusted proxy.
func (c *clientResolver) clientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}
	parsed := net.ParseIP(directIP)
	if parsed == nil || !c.isTrusted(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := net.ParseIP(strings.TrimSpace(hops[i]))
			if hop == nil {
				break
			}
			if !c.isTrusted(hop) {
				return hop.String()
			}
		}
	}

	if xri := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); xri != nil {
		return xri.String()
	}
	return directIP
}

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	suspiciousAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb"}
)

// suspiciousReason names why a request looks like a scan, or returns "".
// Flagged requests are still served; they are only logged.
func suspiciousReason(r *http.Request, metrics *securityMetrics) string {
	reason := scanReason(r)
	if reason != "" && metrics != nil {
		atomic.AddInt64(&metrics.suspiciousRequests, 1)
	}
	return reason
}

func scanReason(r *http.Request) string {
	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	if unescaped, err := url.QueryUnescape(target); err == nil {
		target = unescaped
	}
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(target, pattern) {
			return "pattern " + pattern
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return "scanner " + agent
		}
	}

	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return "method " + r.Method
	}

	if len(r.URL.String()) > 2048 {
		return "long url"
	}
	return ""
}

// crossSiteMutation reports whether a budget change was sent from another
// site's page. Sec-Fetch-Site wins when present; otherwise Origin must match
// the Host.
func crossSiteMutation(r *http.Request) bool {
	if !isMutation(r.Method) {
		return false
	}
	switch r.Header.Get("Sec-Fetch-Site") {
	case "same-origin", "none":
		return false
	case "cross-site", "same-site":
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" {
		return origin == "null"
	}
	u, err := url.Parse(origin)
	if err != nil {
		return true
	}
	return !strings.EqualFold(u.Host, r.Host)
}
