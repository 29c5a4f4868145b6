package protocol

import "github.com/tidwall/gjson"

// Response is a decoded controller reply. Bodies that are not valid JSON,
// such as the plain "pong" of the ping route, are kept verbatim.
type Response struct {
	// Raw is the body exactly as received
	Raw []byte
	// IsJSON reports whether Raw parsed as a JSON document
	IsJSON bool
	// JSON is the ordered document; zero when IsJSON is false
	JSON gjson.Result
}

// DecodeResponse interprets a successful reply body. It never fails.
func DecodeResponse(body []byte) *Response {
	r := &Response{Raw: body}
	if len(body) > 0 && gjson.ValidBytes(body) {
		r.IsJSON = true
		r.JSON = gjson.ParseBytes(body)
	}
	return r
}

// Value returns the parsed JSON value (map[string]any, []any, float64,
// string, bool or nil) or, for non-JSON bodies, the raw body as a string.
func (r *Response) Value() any {
	if !r.IsJSON {
		return string(r.Raw)
	}
	return r.JSON.Value()
}

// Get looks up a gjson path in the document. It returns an empty result for
// non-JSON bodies.
func (r *Response) Get(path string) gjson.Result {
	if !r.IsJSON {
		return gjson.Result{}
	}
	return r.JSON.Get(path)
}

// String returns the raw body.
func (r *Response) String() string {
	return string(r.Raw)
}

// ErrorField extracts the daemon's "error" message from an object body.
func ErrorField(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return ""
	}
	return doc.Get("error").String()
}
