package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rspamd/rspamd-api-go/protocol"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"RSPAMD_URL", "RSPAMD_USER_AGENT", "RSPAMD_PASSWORD", "RSPAMD_TIMEOUT", "RSPAMD_ZSTD", "RSPAMD_ENCRYPTION_KEY"} {
		t.Setenv(k, "")
	}
}

// run executes the CLI with args and returns what it printed on stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		in      []string
		want    protocol.Headers
		wantErr bool
	}{
		{nil, protocol.Headers{}, false},
		{[]string{"Subject=hello", "Settings={\"a\":1}"}, protocol.Headers{"Subject": "hello", "Settings": `{"a":1}`}, false},
		{[]string{"Hostname="}, protocol.Headers{"Hostname": ""}, false},
		{[]string{"novalue"}, nil, true},
		{[]string{"=x"}, nil, true},
	}
	for _, tc := range tests {
		got, err := parseHeaders(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("parseHeaders(%q) error = %v", tc.in, err)
			continue
		}
		if !tc.wantErr && !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseHeaders(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLegacyName(t *testing.T) {
	for route, want := range map[string]string{
		"learnspam":    "learn_spam",
		"fuzzyadd":     "fuzzy_add",
		"fuzzydelhash": "fuzzy_delhash",
		"stat":         "stat",
	} {
		if got := legacyName(route); got != want {
			t.Errorf("legacyName(%q) = %q, want %q", route, got, want)
		}
	}
}

func TestEveryRouteHasCommand(t *testing.T) {
	root := newRootCmd()
	for _, cmd := range protocol.Commands() {
		route := cmd.String()
		found, _, err := root.Find([]string{route})
		if err != nil || found == root {
			t.Errorf("no command for route %s", route)
		}
	}
}

func TestPingCommand(t *testing.T) {
	clearEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "pong\n")
	}))
	defer server.Close()

	out, err := run(t, "", "--url", server.URL, "ping")
	if err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if out != "pong\n" {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, "", "--url", server.URL, "--json", "ping")
	if err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if out != "\"pong\"\n" {
		t.Errorf("json output = %q", out)
	}
}

func TestScanCommand(t *testing.T) {
	clearEnv(t)
	var got http.Header
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		body, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"score":2.5,"required_score":15,"action":"no action","symbols":{"R_DKIM_ALLOW":{"name":"R_DKIM_ALLOW","score":-0.2,"metric_score":-0.2,"options":["example.com:s=dkim"]}}}`)
	}))
	defer server.Close()

	out, err := run(t, "Subject: hi\r\n\r\nbody\r\n",
		"--url", server.URL,
		"--flags", "pass_all,badflag",
		"-H", "Subject=hi",
		"scan", "--rcpt", "a@example.com", "--rcpt", "b@example.com", "--ip", "192.0.2.1",
	)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if string(body) != "Subject: hi\r\n\r\nbody\r\n" {
		t.Errorf("body = %q", body)
	}
	if v := got.Values("Rcpt"); !reflect.DeepEqual(v, []string{"a@example.com", "b@example.com"}) {
		t.Errorf("Rcpt = %q", v)
	}
	if got.Get("Flags") != "pass_all" || got.Get("Subject") != "hi" || got.Get("Ip") != "192.0.2.1" {
		t.Errorf("headers = %v", got)
	}
	for _, want := range []string{"Action: no action", "Score: 2.50 / 15.00", "R_DKIM_ALLOW", "example.com:s=dkim"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestQueryCommandFromConfigFile(t *testing.T) {
	clearEnv(t)
	var path, password string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		password = r.Header.Get("Password")
		io.WriteString(w, `{"scanned":3,"learned":1}`)
	}))
	defer server.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rspamc.yaml")
	if err := os.WriteFile(cfgPath, []byte("url: "+server.URL+"\npassword: q1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(dir, "rspamc.log")

	out, err := run(t, "", "--config", cfgPath, "--log-level", "debug", "--log-file", logPath, "stat")
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if path != "/stat" || password != "q1" {
		t.Errorf("request = %s password=%q", path, password)
	}
	if !strings.Contains(out, `"scanned": 3`) {
		t.Errorf("output = %q", out)
	}

	logged, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(logged), `"request_id"`) {
		t.Errorf("log file lacks request ids:\n%s", logged)
	}
}

func TestErrorStatusFailsCommand(t *testing.T) {
	clearEnv(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":"Unauthorized"}`)
	}))
	defer server.Close()

	_, err := run(t, "", "--url", server.URL, "graph", "hourly")
	if err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Errorf("expected daemon error, got %v", err)
	}
}
