package entity

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// DefaultReferenceHosts are the hosts a channel reference may point at when
// no explicit allow-list is configured.
var DefaultReferenceHosts = []string{"youtube.com", "youtu.be"}

// ValidateReference validates a user supplied channel reference.
// The reference must be an absolute http(s) URL whose host is one of
// allowedHosts or a subdomain of one. Literal private IP hosts are rejected.
// An empty allowedHosts falls back to DefaultReferenceHosts.
func ValidateReference(ref string, allowedHosts []string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(ref) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(ref)
	if err != nil {
		return &ValidationError{Field: "url", Message: "URL is invalid"}
	}

	// HTTPまたはHTTPSスキームのみ許可
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	host := strings.ToLower(parsedURL.Hostname())
	if host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	// SSRF対策: IPリテラルのプライベートアドレスをブロック
	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return &ValidationError{Field: "url", Message: "url cannot point to private network"}
	}

	if len(allowedHosts) == 0 {
		allowedHosts = DefaultReferenceHosts
	}
	if !hostAllowed(host, allowedHosts) {
		return &ValidationError{Field: "url", Message: "URL must be a YouTube channel URL"}
	}

	return nil
}

func hostAllowed(host string, allowed []string) bool {
	for _, h := range allowed {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// isPrivateIP checks if an IP address is in a private or restricted range.
// This prevents SSRF attacks by blocking access to:
// - localhost (127.0.0.0/8, ::1)
// - link-local addresses (169.254.0.0/16, fe80::/10)
// - private networks (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}

	_, metadata, _ := net.ParseCIDR("169.254.0.0/16")
	return metadata.Contains(ip)
}
