// Package errors provides error handling for the Rspamd controller API client
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType int

const (
	// InvalidResponse means the daemon answered with a non-success HTTP status
	InvalidResponse ErrorType = iota
	// Transport means the request never produced an HTTP response
	Transport
	SerdeError
	ConfigError
	IOError
	ParseError
	EncryptionError
	InvalidRequest
)

func (t ErrorType) String() string {
	switch t {
	case InvalidResponse:
		return "invalid response"
	case Transport:
		return "transport"
	case SerdeError:
		return "serde"
	case ConfigError:
		return "config"
	case IOError:
		return "io"
	case ParseError:
		return "parse"
	case EncryptionError:
		return "encryption"
	case InvalidRequest:
		return "invalid request"
	default:
		return "unknown"
	}
}

// RspamdError represents the different types of errors that can occur
type RspamdError struct {
	Type    ErrorType
	Message string
	Cause   error

	// URL is the request URL, set for InvalidResponse and Transport errors
	URL string
	// StatusCode is the HTTP status returned by the daemon (InvalidResponse only)
	StatusCode int
	// DaemonError is the "error" field of the reply body, when there was one
	DaemonError string
}

// Sentinel values usable with errors.Is; matching is done on Type only.
var (
	ErrInvalidResponse = &RspamdError{Type: InvalidResponse}
	ErrTransport       = &RspamdError{Type: Transport}
	ErrSerde           = &RspamdError{Type: SerdeError}
	ErrConfig          = &RspamdError{Type: ConfigError}
	ErrIO              = &RspamdError{Type: IOError}
	ErrParse           = &RspamdError{Type: ParseError}
	ErrEncryption      = &RspamdError{Type: EncryptionError}
	ErrInvalidRequest  = &RspamdError{Type: InvalidRequest}
)

// Error implements the error interface
func (e *RspamdError) Error() string {
	switch e.Type {
	case InvalidResponse:
		msg := fmt.Sprintf("invalid Rspamd API response - URI: %s (HTTP %d)", e.URL, e.StatusCode)
		if e.DaemonError != "" {
			msg += ": " + e.DaemonError
		}
		return msg
	case Transport:
		return fmt.Sprintf("transport error - URI: %s: %s", e.URL, e.Message)
	case SerdeError:
		return fmt.Sprintf("Serialization/Deserialization error: %s", e.Message)
	case ConfigError:
		return fmt.Sprintf("Configuration error: %s", e.Message)
	case IOError:
		return fmt.Sprintf("IO error: %s", e.Message)
	case ParseError:
		return fmt.Sprintf("URL parsing error: %s", e.Message)
	case EncryptionError:
		return fmt.Sprintf("Encryption error: %s", e.Message)
	case InvalidRequest:
		return fmt.Sprintf("Invalid request: %s", e.Message)
	default:
		return fmt.Sprintf("Unknown error: %s", e.Message)
	}
}

// Unwrap returns the underlying cause error
func (e *RspamdError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *RspamdError of the same Type.
func (e *RspamdError) Is(target error) bool {
	t, ok := target.(*RspamdError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// NewInvalidResponseError creates an error for a non-success HTTP status
func NewInvalidResponseError(url string, statusCode int, daemonError string) *RspamdError {
	return &RspamdError{
		Type:        InvalidResponse,
		URL:         url,
		StatusCode:  statusCode,
		DaemonError: daemonError,
	}
}

// NewTransportError wraps a failure of the underlying HTTP transport
func NewTransportError(url string, cause error) *RspamdError {
	return &RspamdError{
		Type:    Transport,
		Message: cause.Error(),
		Cause:   cause,
		URL:     url,
	}
}

// NewSerdeError creates a new serialization/deserialization error
func NewSerdeError(cause error) *RspamdError {
	return &RspamdError{
		Type:    SerdeError,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *RspamdError {
	return &RspamdError{
		Type:    ConfigError,
		Message: message,
	}
}

// NewIOError creates a new IO error
func NewIOError(cause error) *RspamdError {
	return &RspamdError{
		Type:    IOError,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// NewParseError creates a new URL parsing error
func NewParseError(cause error) *RspamdError {
	return &RspamdError{
		Type:    ParseError,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// NewEncryptionError creates a new encryption error
func NewEncryptionError(message string, cause error) *RspamdError {
	return &RspamdError{
		Type:    EncryptionError,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidRequestError creates an error for a request that cannot be built
func NewInvalidRequestError(message string) *RspamdError {
	return &RspamdError{
		Type:    InvalidRequest,
		Message: message,
	}
}

// AsRspamdError extracts the *RspamdError from an error chain.
func AsRspamdError(err error) (*RspamdError, bool) {
	var re *RspamdError
	if stderrors.As(err, &re) {
		return re, true
	}
	return nil, false
}
