package protocol

import (
	"sort"
	"strings"
)

// FlagsHeader is the request header carrying comma separated output flags.
const FlagsHeader = "Flags"

// Set is a read-only string set.
type Set map[string]struct{}

func newSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is a member of the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the members in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// AllowedHeaders lists the request headers understood by the Rspamd controller.
var AllowedHeaders = newSet(
	"Deliver-To",
	"IP",
	"Helo",
	"Hostname",
	FlagsHeader,
	"From",
	"Queue-Id",
	"Raw",
	"Rcpt",
	"Pass",
	"Subject",
	"User",
	"Message-Length",
	"Settings-ID",
	"Settings",
	"User-Agent",
	"MTA-Tag",
	"MTA-Name",
	"TLS-Cipher",
	"TLS-Version",
	"TLS-Cert-Issuer",
	"URL-Format",
	"Filename",
)

// AllowedFlags lists the values accepted in the Flags header.
var AllowedFlags = newSet(
	"pass_all",     // pass all filters
	"groups",       // return symbols groups
	"zstd",         // compressed input/output
	"no_log",       // do not log task
	"milter",       // apply milter protocol related hacks
	"profile",      // profile performance for this task
	"body_block",   // accept rewritten body as a separate part of reply
	"ext_urls",     // extended urls information
	"skip",         // skip all filters processing
	"skip_process", // skip mime parsing/processing
)

// Headers maps request header names to values.
type Headers map[string]string

// SetBool stores a boolean header using the "yes"/"no" convention of the daemon.
func (h Headers) SetBool(name string, v bool) {
	if v {
		h[name] = "yes"
	} else {
		h[name] = "no"
	}
}

// Clone returns a shallow copy of h. A nil receiver yields an empty map.
func (h Headers) Clone() Headers {
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// RejectionKind tells whether a header name or a flag token was dropped.
type RejectionKind int

const (
	RejectedHeader RejectionKind = iota
	RejectedFlag
)

func (k RejectionKind) String() string {
	if k == RejectedFlag {
		return "flag"
	}
	return "header"
}

// Rejection describes one entry removed by Sanitize.
type Rejection struct {
	Kind RejectionKind
	Name string
}

// SanitizeFlags filters a comma separated flag list against AllowedFlags.
// Blank tokens are skipped silently; unknown tokens are returned as rejected.
func SanitizeFlags(flags string) (accepted string, rejected []string) {
	var keep []string
	for _, tok := range strings.Split(flags, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if AllowedFlags.Has(tok) {
			keep = append(keep, tok)
		} else {
			rejected = append(rejected, tok)
		}
	}
	return strings.Join(keep, ","), rejected
}

// Sanitize returns the subset of h understood by the daemon. The Flags value
// is filtered token by token and dropped when nothing survives. h is not
// modified. The rejections are advisory and sorted by kind, then name.
func Sanitize(h Headers) (Headers, []Rejection) {
	out := make(Headers, len(h))
	var rejections []Rejection

	for name, value := range h {
		if !AllowedHeaders.Has(name) {
			rejections = append(rejections, Rejection{Kind: RejectedHeader, Name: name})
			continue
		}
		if name == FlagsHeader {
			flags, bad := SanitizeFlags(value)
			for _, f := range bad {
				rejections = append(rejections, Rejection{Kind: RejectedFlag, Name: f})
			}
			if flags == "" {
				continue
			}
			value = flags
		}
		out[name] = value
	}

	sort.Slice(rejections, func(i, j int) bool {
		if rejections[i].Kind != rejections[j].Kind {
			return rejections[i].Kind < rejections[j].Kind
		}
		return rejections[i].Name < rejections[j].Name
	})
	return out, rejections
}
