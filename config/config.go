// Package config provides configuration for the Rspamd client
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rspamd/rspamd-api-go/errors"
	"github.com/spf13/viper"
)

// Version of the library, reported in the default User-Agent
const Version = "0.3.0"

const (
	// DefaultBaseURL is the controller worker of a local daemon
	DefaultBaseURL = "http://localhost:11334"
	// DefaultUserAgent identifies this client to the daemon
	DefaultUserAgent = "rspamd-api-go/" + Version
	// DefaultTimeout in seconds
	DefaultTimeout = 30.0
)

// TLSSettings represents custom TLS settings for the Rspamd client
type TLSSettings struct {
	// Path to the TLS certificate file
	CertPath string
	// Path to the TLS key file
	KeyPath string
	// Optional path to the TLS CA file
	CAPath *string
	// Skip server certificate verification (development only)
	InsecureSkipVerify bool
}

// ProxyConfig represents proxy configuration for the Rspamd client
type ProxyConfig struct {
	// Proxy server URL
	ProxyURL string
	// Optional username for proxy authentication
	Username *string
	// Optional password for proxy authentication
	Password *string
}

// RateLimit caps the request rate of one client
type RateLimit struct {
	// Steady state requests per second
	RPS float64
	// Maximum burst size
	Burst int
}

// Config represents configuration for Rspamd client
type Config struct {
	// Base URL of the Rspamd controller
	BaseURL string
	// User-Agent sent when the caller does not set one
	UserAgent string
	// Optional controller password
	Password *string
	// Timeout duration for requests in seconds, 0 disables it
	Timeout float64
	// Custom TLS settings
	TLSSettings *TLSSettings
	// Proxy configuration
	ProxyConfig *ProxyConfig
	// Use zstd compression for request and reply bodies
	ZSTD bool
	// Encryption key if using native HTTPCrypt encryption (must be in Rspamd base32 format)
	EncryptionKey *string
	// Optional client side rate limit
	RateLimit *RateLimit
}

// NewConfig creates a new Config with default values
func NewConfig(baseURL string) *Config {
	return &Config{
		BaseURL:   baseURL,
		UserAgent: DefaultUserAgent,
		Timeout:   DefaultTimeout,
	}
}

// FromEnv resolves the configuration from RSPAMD_* environment variables.
func FromEnv() (*Config, error) {
	v := viper.New()
	BindEnv(v)
	return Load(v)
}

// BindEnv registers the defaults and the RSPAMD_ environment prefix on v:
// url, user_agent, password, timeout, zstd, encryption_key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix("rspamd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("url", DefaultBaseURL)
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("zstd", false)
	v.SetDefault("password", "")
	v.SetDefault("encryption_key", "")
}

// Load builds a Config from the keys registered by BindEnv.
func Load(v *viper.Viper) (*Config, error) {
	cfg := NewConfig(v.GetString("url"))
	if ua := v.GetString("user_agent"); ua != "" {
		cfg.UserAgent = ua
	}
	cfg.Timeout = v.GetFloat64("timeout")
	cfg.ZSTD = v.GetBool("zstd")
	if p := v.GetString("password"); p != "" {
		cfg.WithPassword(p)
	}
	if k := v.GetString("encryption_key"); k != "" {
		cfg.WithEncryptionKey(k)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can be used to build a client.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return errors.NewParseError(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.NewConfigError(fmt.Sprintf("base URL %q must use http or https", c.BaseURL))
	}
	if u.Host == "" {
		return errors.NewConfigError(fmt.Sprintf("base URL %q has no host", c.BaseURL))
	}
	if c.Timeout < 0 {
		return errors.NewConfigError("timeout must not be negative")
	}
	if c.RateLimit != nil && c.RateLimit.RPS <= 0 {
		return errors.NewConfigError("rate limit must be positive")
	}
	return nil
}

// TimeoutDuration converts Timeout to a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout * float64(time.Second))
}

// WithPassword sets the password for authentication
func (c *Config) WithPassword(password string) *Config {
	c.Password = &password
	return c
}

// WithUserAgent overrides the default User-Agent
func (c *Config) WithUserAgent(ua string) *Config {
	c.UserAgent = ua
	return c
}

// WithTimeout sets the timeout for requests
func (c *Config) WithTimeout(timeout float64) *Config {
	c.Timeout = timeout
	return c
}

// WithTLSSettings sets custom TLS settings
func (c *Config) WithTLSSettings(tls *TLSSettings) *Config {
	c.TLSSettings = tls
	return c
}

// WithProxyConfig sets proxy configuration
func (c *Config) WithProxyConfig(proxy *ProxyConfig) *Config {
	c.ProxyConfig = proxy
	return c
}

// WithZSTD enables or disables ZSTD compression
func (c *Config) WithZSTD(enabled bool) *Config {
	c.ZSTD = enabled
	return c
}

// WithEncryptionKey sets the encryption key for HTTPCrypt
func (c *Config) WithEncryptionKey(key string) *Config {
	c.EncryptionKey = &key
	return c
}

// WithRateLimit limits the client to rps requests per second
func (c *Config) WithRateLimit(rps float64, burst int) *Config {
	if burst < 1 {
		burst = 1
	}
	c.RateLimit = &RateLimit{RPS: rps, Burst: burst}
	return c
}
