package prober

import (
	"fmt"
	"time"

	"chanwatch/pkg/config"
)

// Config holds the configuration for channel page probes.
//
// Security settings:
//   - DenyPrivateIPs: blocks references and redirects resolving to private addresses
//   - MaxBodySize: bounds memory used per page
//   - MaxRedirects: bounds redirect chains
type Config struct {
	// Timeout bounds each of the two requests of a probe.
	// Default: 5s
	Timeout time.Duration

	// MaxBodySize is the maximum number of page bytes read for name
	// extraction. Longer pages are truncated, not rejected.
	// Default: 2MB
	MaxBodySize int64

	// MaxRedirects is the maximum number of redirects followed.
	// Default: 10
	MaxRedirects int

	// DenyPrivateIPs rejects hosts that resolve to loopback, private or
	// link-local addresses. Should always be true in production.
	// Default: true
	DenyPrivateIPs bool

	// UserAgent is sent with every request.
	UserAgent string
}

// DefaultConfig returns the default probe configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		MaxBodySize:    2 * 1024 * 1024,
		MaxRedirects:   10,
		DenyPrivateIPs: true,
		UserAgent:      "Mozilla/5.0 (compatible; chanwatch/1.0)",
	}
}

// Validate checks the configuration for unsafe values.
func (c *Config) Validate() error {
	if c.Timeout <= 0 || c.Timeout > time.Minute {
		return fmt.Errorf("timeout must be between 0 and 1m, got %v", c.Timeout)
	}

	minBody := int64(1024)
	maxBody := int64(20 * 1024 * 1024)
	if c.MaxBodySize < minBody || c.MaxBodySize > maxBody {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBody, maxBody, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 20 {
		return fmt.Errorf("max redirects must be between 0 and 20, got %d", c.MaxRedirects)
	}

	return nil
}

// LoadConfigFromEnv loads the probe configuration.
//
// Environment variables:
//   - PROBE_TIMEOUT: duration string (default: 5s)
//   - PROBE_MAX_BODY_SIZE: bytes (default: 2097152)
//   - PROBE_MAX_REDIRECTS: integer (default: 10)
//   - PROBE_DENY_PRIVATE_IPS: bool (default: true)
//   - PROBE_USER_AGENT: string
func LoadConfigFromEnv() (Config, error) {
	def := DefaultConfig()
	cfg := Config{
		Timeout:        config.GetEnvDuration("PROBE_TIMEOUT", def.Timeout),
		MaxBodySize:    int64(config.GetEnvInt("PROBE_MAX_BODY_SIZE", int(def.MaxBodySize))),
		MaxRedirects:   config.GetEnvInt("PROBE_MAX_REDIRECTS", def.MaxRedirects),
		DenyPrivateIPs: config.GetEnvBool("PROBE_DENY_PRIVATE_IPS", def.DenyPrivateIPs),
		UserAgent:      config.GetEnvString("PROBE_USER_AGENT", def.UserAgent),
	}
	if err := cfg.Validate(); err != nil {
		return def, fmt.Errorf("invalid probe configuration: %w", err)
	}
	return cfg, nil
}
