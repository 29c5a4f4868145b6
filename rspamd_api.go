// Package rspamd_api provides an HTTP client for the Rspamd controller API.
// It covers scanning, learning, fuzzy storage and the read-only controller
// routes, and supports HTTPCrypt encryption, ZSTD compression, proxy
// configuration and TLS settings.
//
// Example usage:
//
//	cfg := rspamd_api.NewConfig("http://localhost:11334")
//	envelope := rspamd_api.NewEnvelopeData().WithFrom("sender@example.com")
//
//	reply, err := rspamd_api.Scan(context.Background(), cfg, emailBytes, envelope)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Spam score: %.2f\n", reply.Score)
package rspamd_api

import (
	"context"

	"github.com/rspamd/rspamd-api-go/client"
	"github.com/rspamd/rspamd-api-go/config"
	"github.com/rspamd/rspamd-api-go/protocol"
)

// Re-export commonly used types and functions
type (
	Config        = config.Config
	EnvelopeData  = config.EnvelopeData
	TLSSettings   = config.TLSSettings
	ProxyConfig   = config.ProxyConfig
	Headers       = protocol.Headers
	ScanReply     = protocol.ScanReply
	Response      = protocol.Response
	Symbol        = protocol.Symbol
	Milter        = protocol.Milter
	MailHeader    = protocol.MailHeader
	Client        = client.Client
	Option        = client.Option
	RspamdCommand = protocol.RspamdCommand
)

// Re-export constructors
var (
	NewConfig       = config.NewConfig
	ConfigFromEnv   = config.FromEnv
	NewEnvelopeData = config.NewEnvelopeData
	NewClient       = client.NewClient
	WithLogger      = client.WithLogger
	WithMetrics     = client.WithMetrics
	WithHTTPClient  = client.WithHTTPClient
)

// Re-export commands
const (
	CommandScan      = protocol.Scan
	CommandLearnSpam = protocol.LearnSpam
	CommandLearnHam  = protocol.LearnHam
)

func headersOf(envelope *EnvelopeData) Headers {
	if envelope == nil {
		return nil
	}
	return envelope.ToHeaders()
}

// Scan scans a message with a one-off client and returns the parsed reply.
//
// Example:
//
//	cfg := NewConfig("http://localhost:11334")
//	envelope := NewEnvelopeData().WithRcpt("recipient@example.com")
//	email := []byte("From: user@example.com\nTo: recipient@example.com\nSubject: Test\n\nThis is a test email.")
//
//	reply, err := Scan(context.Background(), cfg, email, envelope)
//	if err != nil {
//		return err
//	}
//
//	fmt.Printf("Action: %s, Score: %.2f\n", reply.Action, reply.Score)
func Scan(ctx context.Context, cfg *Config, body []byte, envelope *EnvelopeData) (*ScanReply, error) {
	c, err := client.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Scan(ctx, body, headersOf(envelope))
}

// LearnSpam learns a message as spam.
func LearnSpam(ctx context.Context, cfg *Config, body []byte, envelope *EnvelopeData) (*Response, error) {
	c, err := client.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.LearnSpam(ctx, body, headersOf(envelope))
}

// LearnHam learns a message as ham (not spam).
func LearnHam(ctx context.Context, cfg *Config, body []byte, envelope *EnvelopeData) (*Response, error) {
	c, err := client.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.LearnHam(ctx, body, headersOf(envelope))
}

// Ping reports whether the controller at cfg answers.
func Ping(ctx context.Context, cfg *Config) error {
	c, err := client.NewClient(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	_, err = c.Ping(ctx)
	return err
}
