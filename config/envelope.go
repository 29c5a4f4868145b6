package config

import (
	"strings"

	"github.com/rspamd/rspamd-api-go/protocol"
	"github.com/tidwall/sjson"
)

// EnvelopeData represents email envelope data
type EnvelopeData struct {
	// Sender email address
	From *string
	// Recipients email addresses
	Rcpt []string
	// Optional IP address of the sender
	IP *string
	// Optional user
	User *string
	// Optional HELO string
	Helo *string
	// Optional hostname
	Hostname *string
	// Optional SMTP queue id
	QueueID *string
	// Optional actual delivery recipient
	DeliverTo *string
	// Output flags
	Flags []string
	// Optional settings id
	SettingsID *string
	// Optional settings JSON block
	Settings string
	// Optional additional headers
	AdditionalHeaders protocol.Headers
}

// NewEnvelopeData creates a new EnvelopeData with default values
func NewEnvelopeData() *EnvelopeData {
	return &EnvelopeData{
		Rcpt:              make([]string, 0),
		AdditionalHeaders: make(protocol.Headers),
	}
}

// ToHeaders converts EnvelopeData to request headers. Several recipients
// are joined with commas; the client sends them as repeated Rcpt headers.
func (e *EnvelopeData) ToHeaders() protocol.Headers {
	headers := e.AdditionalHeaders.Clone()

	set := func(name string, v *string) {
		if v != nil {
			headers[name] = *v
		}
	}
	set("From", e.From)
	set("IP", e.IP)
	set("User", e.User)
	set("Helo", e.Helo)
	set("Hostname", e.Hostname)
	set("Queue-Id", e.QueueID)
	set("Deliver-To", e.DeliverTo)
	set("Settings-ID", e.SettingsID)

	if len(e.Rcpt) > 0 {
		headers["Rcpt"] = strings.Join(e.Rcpt, ",")
	}
	if len(e.Flags) > 0 {
		headers[protocol.FlagsHeader] = strings.Join(e.Flags, ",")
	}
	if e.Settings != "" {
		headers["Settings"] = e.Settings
	}

	return headers
}

// WithFrom sets the sender email address
func (e *EnvelopeData) WithFrom(from string) *EnvelopeData {
	e.From = &from
	return e
}

// WithRcpt adds a recipient email address
func (e *EnvelopeData) WithRcpt(rcpt string) *EnvelopeData {
	e.Rcpt = append(e.Rcpt, rcpt)
	return e
}

// WithIP sets the sender IP address
func (e *EnvelopeData) WithIP(ip string) *EnvelopeData {
	e.IP = &ip
	return e
}

// WithUser sets the user
func (e *EnvelopeData) WithUser(user string) *EnvelopeData {
	e.User = &user
	return e
}

// WithHelo sets the HELO string
func (e *EnvelopeData) WithHelo(helo string) *EnvelopeData {
	e.Helo = &helo
	return e
}

// WithHostname sets the hostname
func (e *EnvelopeData) WithHostname(hostname string) *EnvelopeData {
	e.Hostname = &hostname
	return e
}

// WithQueueID sets the SMTP queue id used in daemon logs
func (e *EnvelopeData) WithQueueID(id string) *EnvelopeData {
	e.QueueID = &id
	return e
}

// WithDeliverTo sets the actual delivery recipient
func (e *EnvelopeData) WithDeliverTo(rcpt string) *EnvelopeData {
	e.DeliverTo = &rcpt
	return e
}

// WithFlags appends output flags such as "pass_all" or "groups"
func (e *EnvelopeData) WithFlags(flags ...string) *EnvelopeData {
	e.Flags = append(e.Flags, flags...)
	return e
}

// WithSettingsID selects a settings id configured on the daemon
func (e *EnvelopeData) WithSettingsID(id string) *EnvelopeData {
	e.SettingsID = &id
	return e
}

// WithSetting sets one value of the Settings JSON block, e.g.
// WithSetting("actions.reject", 20) or WithSetting("symbols_disabled.-1", "DKIM_CHECK").
func (e *EnvelopeData) WithSetting(path string, value any) (*EnvelopeData, error) {
	settings := e.Settings
	if settings == "" {
		settings = "{}"
	}
	out, err := sjson.Set(settings, path, value)
	if err != nil {
		return e, err
	}
	e.Settings = out
	return e, nil
}

// WithHeader adds an additional header
func (e *EnvelopeData) WithHeader(key, value string) *EnvelopeData {
	if e.AdditionalHeaders == nil {
		e.AdditionalHeaders = make(protocol.Headers)
	}
	e.AdditionalHeaders[key] = value
	return e
}
