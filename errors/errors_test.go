package errors

import (
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

func TestInvalidResponseMessage(t *testing.T) {
	err := NewInvalidResponseError("http://localhost:11334/stat", 403, "Unauthorized")

	msg := err.Error()
	for _, want := range []string{"http://localhost:11334/stat", "403", "Unauthorized"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not contain %q", msg, want)
		}
	}

	bare := NewInvalidResponseError("http://localhost:11334/ping", 500, "")
	if strings.HasSuffix(bare.Error(), ": ") {
		t.Errorf("unexpected trailing separator: %q", bare.Error())
	}
}

func TestIsMatchesByType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"invalid response", NewInvalidResponseError("u", 500, ""), ErrInvalidResponse, true},
		{"transport", NewTransportError("u", &net.OpError{Op: "dial"}), ErrTransport, true},
		{"wrapped", fmt.Errorf("scan: %w", NewSerdeError(stderrors.New("bad"))), ErrSerde, true},
		{"mismatch", NewConfigError("x"), ErrInvalidResponse, false},
		{"foreign target", NewConfigError("x"), stderrors.New("x"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stderrors.Is(tc.err, tc.target); got != tc.want {
				t.Errorf("errors.Is = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTransportUnwrap(t *testing.T) {
	cause := &net.OpError{Op: "dial", Net: "tcp", Err: stderrors.New("connection refused")}
	err := NewTransportError("http://localhost:11334/ping", cause)

	var opErr *net.OpError
	if !stderrors.As(err, &opErr) {
		t.Fatal("expected transport error to unwrap to *net.OpError")
	}

	re, ok := AsRspamdError(fmt.Errorf("ping: %w", err))
	if !ok {
		t.Fatal("AsRspamdError failed on wrapped error")
	}
	if re.URL != "http://localhost:11334/ping" {
		t.Errorf("URL = %q", re.URL)
	}
}
