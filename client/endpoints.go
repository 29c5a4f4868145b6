package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rspamd/rspamd-api-go/errors"
	"github.com/rspamd/rspamd-api-go/protocol"
)

// Scan submits a message to checkv2 and returns the parsed scan reply.
func (c *Client) Scan(ctx context.Context, message []byte, headers protocol.Headers) (*protocol.ScanReply, error) {
	resp, err := c.push(ctx, protocol.FromCommand(protocol.Scan).Route, "", message, headers)
	if err != nil {
		return nil, err
	}
	if !resp.IsJSON {
		return nil, errors.NewSerdeError(fmt.Errorf("scan reply is not JSON: %.64q", resp.Raw))
	}
	return protocol.NewScanReply(resp.JSON)
}

// FuzzyAdd adds the fuzzy hashes of a message to the fuzzy storage.
func (c *Client) FuzzyAdd(ctx context.Context, message []byte, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.FuzzyAdd, message, headers)
}

// FuzzyDel removes the fuzzy hashes of a message.
func (c *Client) FuzzyDel(ctx context.Context, message []byte, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.FuzzyDel, message, headers)
}

// LearnSpam trains the statistical classifier with a spam message.
func (c *Client) LearnSpam(ctx context.Context, message []byte, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.LearnSpam, message, headers)
}

// LearnHam trains the statistical classifier with a ham message.
func (c *Client) LearnHam(ctx context.Context, message []byte, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.LearnHam, message, headers)
}

// Ping checks that the controller is alive. The reply is usually the plain
// text "pong". No caller headers are sent.
func (c *Client) Ping(ctx context.Context) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.Ping, nil, nil)
}

// Stat returns scanner statistics.
func (c *Client) Stat(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.Stat, nil, headers)
}

// StatReset returns statistics and resets the counters.
func (c *Client) StatReset(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.StatReset, nil, headers)
}

func (c *Client) Errors(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.Errors, nil, headers)
}

// Graph returns throughput data; graphType is one of hourly, daily, weekly
// or monthly.
func (c *Client) Graph(ctx context.Context, graphType string, headers protocol.Headers) (*protocol.Response, error) {
	return c.fetch(ctx, protocol.FromCommand(protocol.Graph).Route, "type="+url.QueryEscape(graphType), headers)
}

func (c *Client) History(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.History, nil, headers)
}

func (c *Client) HistoryReset(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.HistoryReset, nil, headers)
}

// Actions returns the configured actions and their thresholds.
func (c *Client) Actions(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.Actions, nil, headers)
}

// Symbols returns the symbol groups and their scores.
func (c *Client) Symbols(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.Symbols, nil, headers)
}

func (c *Client) Maps(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.Maps, nil, headers)
}

func (c *Client) Neighbors(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.Neighbors, nil, headers)
}

// GetMap returns the content of a map exposed by the controller.
func (c *Client) GetMap(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.GetMap, nil, headers)
}

func (c *Client) FuzzyDelHash(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.FuzzyDelHash, nil, headers)
}

func (c *Client) Plugins(ctx context.Context, headers protocol.Headers) (*protocol.Response, error) {
	return c.Execute(ctx, protocol.Plugins, nil, headers)
}

// Execute sends any command with the verb of its endpoint. body is ignored
// for GET routes.
func (c *Client) Execute(ctx context.Context, cmd protocol.RspamdCommand, body []byte, headers protocol.Headers) (*protocol.Response, error) {
	ep := protocol.FromCommand(cmd)
	if ep.NeedBody {
		return c.push(ctx, ep.Route, "", body, headers)
	}
	return c.fetch(ctx, ep.Route, "", headers)
}
