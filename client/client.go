// Package client provides the HTTP client for the Rspamd controller API
package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rspamd/rspamd-api-go/config"
	"github.com/rspamd/rspamd-api-go/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client talks to one Rspamd controller. It is safe for concurrent use.
type Client struct {
	config     *config.Config
	baseURL    string
	httpClient *http.Client
	encoder    *zstd.Encoder
	decoder    *zstd.Decoder
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    *metrics
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithLogger sets the logger used for request tracing and for advisory
// messages about dropped headers and flags.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// WithHTTPClient sets a custom http.Client, overriding TLS, proxy and timeout settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithMetrics registers request counters and latency histograms on reg,
// or on the default registerer when reg is nil.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) error {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		m, err := newMetrics(reg)
		if err != nil {
			return errors.NewConfigError(fmt.Sprintf("failed to register metrics: %v", err))
		}
		c.metrics = m
		return nil
	}
}

// NewClient creates a new Rspamd client. A nil cfg is resolved from the
// RSPAMD_* environment.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.FromEnv(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:     cfg,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     zap.NewNop(),
	}

	// Initialize ZSTD encoder/decoder if enabled
	if cfg.ZSTD {
		if c.encoder, err = zstd.NewWriter(nil); err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("failed to create ZSTD encoder: %v", err))
		}
		if c.decoder, err = zstd.NewReader(nil); err != nil {
			c.encoder.Close()
			return nil, errors.NewConfigError(fmt.Sprintf("failed to create ZSTD decoder: %v", err))
		}
	}

	if cfg.RateLimit != nil {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}

	for _, o := range opts {
		if err := o(c); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func newHTTPClient(cfg *config.Config) (*http.Client, error) {
	client := &http.Client{Timeout: cfg.TimeoutDuration()}

	if cfg.TLSSettings == nil && cfg.ProxyConfig == nil {
		return client, nil
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if s := cfg.TLSSettings; s != nil {
		tlsConfig := &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify} //nolint:gosec

		if s.CAPath != nil {
			caCert, err := os.ReadFile(*s.CAPath)
			if err != nil {
				return nil, errors.NewConfigError(fmt.Sprintf("failed to read CA file: %v", err))
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(caCert) {
				return nil, errors.NewConfigError("failed to append CA certificate")
			}
			tlsConfig.RootCAs = pool
		}

		if s.CertPath != "" && s.KeyPath != "" {
			cert, err := tls.LoadX509KeyPair(s.CertPath, s.KeyPath)
			if err != nil {
				return nil, errors.NewConfigError(fmt.Sprintf("failed to load client certificate: %v", err))
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
		transport.TLSClientConfig = tlsConfig
	}

	if p := cfg.ProxyConfig; p != nil {
		proxyURL, err := url.Parse(p.ProxyURL)
		if err != nil {
			return nil, errors.NewConfigError(fmt.Sprintf("invalid proxy URL: %v", err))
		}
		if p.Username != nil && p.Password != nil {
			proxyURL.User = url.UserPassword(*p.Username, *p.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client.Transport = transport
	return client, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *config.Config {
	return c.config
}

// Close releases the compression resources held by the client
func (c *Client) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
