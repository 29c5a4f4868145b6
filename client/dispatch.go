package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rspamd/rspamd-api-go/errors"
	"github.com/rspamd/rspamd-api-go/internal/httpcrypt"
	"github.com/rspamd/rspamd-api-go/protocol"
	"go.uber.org/zap"
)

// fetch issues a GET to route and decodes the reply.
func (c *Client) fetch(ctx context.Context, route, query string, headers protocol.Headers) (*protocol.Response, error) {
	body, err := c.roundTrip(ctx, http.MethodGet, route, query, nil, headers)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeResponse(body), nil
}

// push issues a POST carrying body to route and decodes the reply.
func (c *Client) push(ctx context.Context, route, query string, body []byte, headers protocol.Headers) (*protocol.Response, error) {
	reply, err := c.roundTrip(ctx, http.MethodPost, route, query, body, headers)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeResponse(reply), nil
}

func (c *Client) endpointURL(route, query string) string {
	u := c.baseURL + "/" + route
	if query != "" {
		u += "?" + query
	}
	return u
}

// requestHeaders sanitizes the caller's headers and adds the ones the
// client always sends. Header names are kept exactly as given.
func (c *Client) requestHeaders(route string, in protocol.Headers) map[string][]string {
	clean, rejected := protocol.Sanitize(in)
	for _, r := range rejected {
		c.logger.Warn("dropping request "+r.Kind.String(),
			zap.String("route", route),
			zap.String("name", r.Name),
		)
	}

	out := make(map[string][]string, len(clean)+4)
	for name, value := range clean {
		if name == "Rcpt" && strings.Contains(value, ",") {
			for _, rcpt := range strings.Split(value, ",") {
				if rcpt = strings.TrimSpace(rcpt); rcpt != "" {
					out[name] = append(out[name], rcpt)
				}
			}
			continue
		}
		out[name] = []string{value}
	}

	out["Accept"] = []string{"application/json"}
	if _, ok := clean["User-Agent"]; !ok && c.config.UserAgent != "" {
		out["User-Agent"] = []string{c.config.UserAgent}
	}
	if c.config.Password != nil {
		out["Password"] = []string{*c.config.Password}
	}
	if c.encoder != nil {
		out["Content-Encoding"] = []string{"zstd"}
		out["Compression"] = []string{"zstd"}
	}
	return out
}

// roundTrip performs one request and returns the reply body once it is
// known to be a 2xx, decrypted and decompressed.
func (c *Client) roundTrip(ctx context.Context, method, route, query string, body []byte, headers protocol.Headers) ([]byte, error) {
	if route == "" {
		return nil, errors.NewInvalidRequestError("empty route")
	}
	target := c.endpointURL(route, query)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.NewTransportError(target, err)
		}
	}

	reqID := uuid.NewString()
	log := c.logger.With(zap.String("request_id", reqID), zap.String("route", route))
	start := time.Now()

	hdrs := c.requestHeaders(route, headers)
	if c.encoder != nil && len(body) > 0 {
		body = c.encoder.EncodeAll(body, nil)
	}

	var (
		req    *http.Request
		shared *httpcrypt.SharedKey
		err    error
	)
	if c.config.EncryptionKey != nil {
		req, shared, err = c.encryptedRequest(ctx, target, route, query, body, hdrs)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
		if err != nil {
			err = errors.NewInvalidRequestError(err.Error())
		} else {
			req.Header = hdrs
		}
	}
	if err != nil {
		return nil, err
	}

	log.Debug("sending request", zap.String("method", method), zap.String("url", target))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(route, "error", time.Since(start))
		log.Debug("request failed", zap.Error(err))
		return nil, errors.NewTransportError(target, err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observe(route, "error", time.Since(start))
		return nil, errors.NewIOError(err)
	}

	status, replyHeaders := resp.StatusCode, resp.Header
	if shared != nil && status >= 200 && status < 300 {
		plain, err := httpcrypt.Open(*shared, reply)
		if err != nil {
			c.metrics.observe(route, "error", time.Since(start))
			return nil, errors.NewEncryptionError("decryption failed", err)
		}
		status, replyHeaders, reply, err = httpcrypt.ParseResponse(plain)
		if err != nil {
			c.metrics.observe(route, "error", time.Since(start))
			return nil, errors.NewEncryptionError("malformed decrypted reply", err)
		}
	}

	if c.decoder != nil && isZstd(replyHeaders) && len(reply) > 0 {
		reply, err = c.decoder.DecodeAll(reply, nil)
		if err != nil {
			c.metrics.observe(route, "error", time.Since(start))
			return nil, errors.NewIOError(fmt.Errorf("zstd decompression failed: %w", err))
		}
	}

	elapsed := time.Since(start)
	c.metrics.observe(route, strconv.Itoa(status), elapsed)
	log.Debug("received reply",
		zap.Int("status", status),
		zap.Int("bytes", len(reply)),
		zap.Duration("elapsed", elapsed),
	)

	if status < 200 || status >= 300 {
		return nil, errors.NewInvalidResponseError(target, status, protocol.ErrorField(reply))
	}
	return reply, nil
}

// encryptedRequest seals the inner request for HTTPCrypt. The outer request
// is always a POST carrying only the Key header.
func (c *Client) encryptedRequest(ctx context.Context, target, route, query string, body []byte, hdrs map[string][]string) (*http.Request, *httpcrypt.SharedKey, error) {
	path := "/" + route
	if query != "" {
		path += "?" + query
	}

	enc, err := httpcrypt.Encrypt(path, body, hdrs, *c.config.EncryptionKey)
	if err != nil {
		return nil, nil, errors.NewEncryptionError("encryption failed", err)
	}
	keyHeader, err := httpcrypt.KeyHeader(*c.config.EncryptionKey, enc.LocalKey)
	if err != nil {
		return nil, nil, errors.NewEncryptionError("failed to make key header", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(enc.Body))
	if err != nil {
		return nil, nil, errors.NewInvalidRequestError(err.Error())
	}
	req.Header.Set("Key", keyHeader)
	if ua := hdrs["User-Agent"]; len(ua) > 0 {
		req.Header["User-Agent"] = ua
	}
	return req, &enc.Shared, nil
}

func isZstd(h http.Header) bool {
	return strings.EqualFold(h.Get("Content-Encoding"), "zstd") ||
		strings.EqualFold(h.Get("Compression"), "zstd")
}
