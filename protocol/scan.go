package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/rspamd/rspamd-api-go/errors"
	"github.com/tidwall/gjson"
)

// ScanReply represents the response from Rspamd scan
type ScanReply struct {
	// If message has been skipped
	IsSkipped bool `json:"is_skipped"`
	// Scan score
	Score float64 `json:"score"`
	// Required score (legacy)
	RequiredScore float64 `json:"required_score"`
	// Action to take
	Action string `json:"action"`
	// Symbols in the order the daemon listed them
	Symbols []Symbol `json:"symbols"`
	// Messages
	Messages map[string]any `json:"messages,omitempty"`
	// Message id
	MessageID string `json:"message-id"`
	// Real time of scan
	TimeReal float64 `json:"time_real"`
	// Milter actions block, as sent by the daemon
	Milter any `json:"milter,omitempty"`

	// Action thresholds
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
	// URLs, only with URL-Format: extended
	URLs []string `json:"urls,omitempty"`
	// Emails, only with URL-Format: extended
	Emails []string `json:"emails,omitempty"`
	// Filename
	Filename string `json:"filename,omitempty"`
	// Scan time
	ScanTime float64 `json:"scan_time,omitempty"`

	raw       string
	keys      []string
	milterRaw string
}

// Symbol structure
type Symbol struct {
	Name        string    `json:"name"`
	Score       float64   `json:"score"`
	MetricScore float64   `json:"metric_score"`
	Description *string   `json:"description,omitempty"`
	Options     *[]string `json:"options,omitempty"`
}

// Milter actions block
type Milter struct {
	AddHeaders    map[string]MailHeader `json:"add_headers,omitempty"`
	RemoveHeaders map[string]int        `json:"remove_headers,omitempty"`
}

// MailHeader represents a milter header action
type MailHeader struct {
	Value string `json:"value,omitempty"`
	Order int    `json:"order,omitempty"`
}

// ParseScanReply decodes a checkv2 reply body.
func ParseScanReply(body []byte) (*ScanReply, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.NewSerdeError(fmt.Errorf("scan reply is not valid JSON"))
	}
	return NewScanReply(gjson.ParseBytes(body))
}

// NewScanReply builds a ScanReply from an already parsed document.
func NewScanReply(doc gjson.Result) (*ScanReply, error) {
	if !doc.IsObject() {
		return nil, errors.NewSerdeError(fmt.Errorf("scan reply is not a JSON object"))
	}

	r := &ScanReply{
		IsSkipped:     doc.Get("is_skipped").Bool(),
		Score:         doc.Get("score").Float(),
		RequiredScore: doc.Get("required_score").Float(),
		Action:        doc.Get("action").String(),
		MessageID:     doc.Get("message-id").String(),
		TimeReal:      doc.Get("time_real").Float(),
		Filename:      doc.Get("filename").String(),
		ScanTime:      doc.Get("scan_time").Float(),
		URLs:          stringArray(doc.Get("urls")),
		Emails:        stringArray(doc.Get("emails")),
		raw:           doc.Raw,
	}

	symbols := doc.Get("symbols")
	if symbols.Exists() && symbols.Type != gjson.Null {
		if !symbols.IsObject() {
			return nil, errors.NewSerdeError(fmt.Errorf("symbols: expected object, got %s", symbols.Type))
		}
		var err error
		symbols.ForEach(func(key, value gjson.Result) bool {
			if !value.IsObject() {
				err = fmt.Errorf("symbol %q: expected object, got %s", key.String(), value.Type)
				return false
			}
			r.keys = append(r.keys, key.String())
			r.Symbols = append(r.Symbols, newSymbol(value))
			return true
		})
		if err != nil {
			return nil, errors.NewSerdeError(err)
		}
	}

	if m := doc.Get("messages"); m.IsObject() {
		r.Messages, _ = m.Value().(map[string]any)
	}

	if th := doc.Get("thresholds"); th.IsObject() {
		r.Thresholds = make(map[string]float64)
		th.ForEach(func(key, value gjson.Result) bool {
			r.Thresholds[key.String()] = value.Float()
			return true
		})
	}

	if m := doc.Get("milter"); m.Exists() {
		r.Milter = m.Value()
		r.milterRaw = m.Raw
	}

	return r, nil
}

func newSymbol(v gjson.Result) Symbol {
	s := Symbol{
		Name:        v.Get("name").String(),
		Score:       v.Get("score").Float(),
		MetricScore: v.Get("metric_score").Float(),
	}
	if d := v.Get("description"); d.Exists() && d.Type != gjson.Null {
		desc := d.String()
		s.Description = &desc
	}
	if o := v.Get("options"); o.IsArray() {
		opts := stringArray(o)
		if opts == nil {
			opts = []string{}
		}
		s.Options = &opts
	}
	return s
}

func stringArray(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	for _, e := range v.Array() {
		out = append(out, e.String())
	}
	return out
}

// SymbolScoreSum adds up the score of every symbol.
func (r *ScanReply) SymbolScoreSum() float64 {
	var sum float64
	for _, s := range r.Symbols {
		sum += s.Score
	}
	return sum
}

// SymbolMetricScoreSum adds up the metric score of every symbol.
func (r *ScanReply) SymbolMetricScoreSum() float64 {
	var sum float64
	for _, s := range r.Symbols {
		sum += s.MetricScore
	}
	return sum
}

// Symbol returns the symbol with the given name.
func (r *ScanReply) Symbol(name string) (Symbol, bool) {
	for _, s := range r.Symbols {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// KeyMismatches lists the symbol object keys whose entry carried a
// different inner "name". The inner name is what Symbols exposes.
func (r *ScanReply) KeyMismatches() []string {
	var out []string
	for i, k := range r.keys {
		if r.Symbols[i].Name != k {
			out = append(out, k)
		}
	}
	return out
}

// Raw returns the reply document exactly as the daemon sent it.
func (r *ScanReply) Raw() []byte {
	return []byte(r.raw)
}

// MilterActions decodes the milter block into its typed form. It returns nil
// when the reply carried no milter block.
func (r *ScanReply) MilterActions() (*Milter, error) {
	if r.milterRaw == "" {
		return nil, nil
	}
	var m Milter
	if err := json.Unmarshal([]byte(r.milterRaw), &m); err != nil {
		return nil, errors.NewSerdeError(err)
	}
	return &m, nil
}
