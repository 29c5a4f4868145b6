// Package protocol contains the request and reply model of the Rspamd
// controller API: routes, header and flag allow-lists, and reply decoding.
package protocol

import (
	"fmt"
	"net/http"
)

// RspamdCommand represents commands that can be sent to the server
type RspamdCommand int

const (
	Scan RspamdCommand = iota
	LearnSpam
	LearnHam
	FuzzyAdd
	FuzzyDel
	Ping
	Stat
	StatReset
	Errors
	Graph
	History
	HistoryReset
	Actions
	Symbols
	Maps
	Neighbors
	GetMap
	FuzzyDelHash
	Plugins
)

// RspamdEndpoint represents an ephemeral endpoint representation
type RspamdEndpoint struct {
	// Route relative to the base URL, without a leading slash
	Route    string
	Command  RspamdCommand
	NeedBody bool
}

// Method returns the HTTP verb used for the endpoint.
func (e RspamdEndpoint) Method() string {
	if e.NeedBody {
		return http.MethodPost
	}
	return http.MethodGet
}

var endpoints = [...]RspamdEndpoint{
	Scan:         {Route: "checkv2", Command: Scan, NeedBody: true},
	LearnSpam:    {Route: "learnspam", Command: LearnSpam, NeedBody: true},
	LearnHam:     {Route: "learnham", Command: LearnHam, NeedBody: true},
	FuzzyAdd:     {Route: "fuzzyadd", Command: FuzzyAdd, NeedBody: true},
	FuzzyDel:     {Route: "fuzzydel", Command: FuzzyDel, NeedBody: true},
	Ping:         {Route: "ping", Command: Ping},
	Stat:         {Route: "stat", Command: Stat},
	StatReset:    {Route: "statreset", Command: StatReset},
	Errors:       {Route: "errors", Command: Errors},
	Graph:        {Route: "graph", Command: Graph},
	History:      {Route: "history", Command: History},
	HistoryReset: {Route: "historyreset", Command: HistoryReset},
	Actions:      {Route: "actions", Command: Actions},
	Symbols:      {Route: "symbols", Command: Symbols},
	Maps:         {Route: "maps", Command: Maps},
	Neighbors:    {Route: "neighbors", Command: Neighbors},
	GetMap:       {Route: "getmap", Command: GetMap},
	FuzzyDelHash: {Route: "fuzzydelhash", Command: FuzzyDelHash},
	Plugins:      {Route: "plugins", Command: Plugins},
}

// FromCommand creates a new endpoint from a command. Unknown commands map to Scan.
func FromCommand(command RspamdCommand) RspamdEndpoint {
	if command < 0 || int(command) >= len(endpoints) {
		return endpoints[Scan]
	}
	return endpoints[command]
}

func (c RspamdCommand) String() string {
	if c < 0 || int(c) >= len(endpoints) {
		return fmt.Sprintf("RspamdCommand(%d)", int(c))
	}
	return endpoints[c].Route
}

// ParseCommand maps a route name such as "checkv2" or "learnspam" to its command.
func ParseCommand(route string) (RspamdCommand, bool) {
	for _, e := range endpoints {
		if e.Route == route {
			return e.Command, true
		}
	}
	return 0, false
}

// Commands returns every known command in declaration order.
func Commands() []RspamdCommand {
	out := make([]RspamdCommand, len(endpoints))
	for i, e := range endpoints {
		out[i] = e.Command
	}
	return out
}
