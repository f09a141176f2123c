package fetch

import (
	"errors"
	"fmt"
)

// ErrTransport matches every failure to retrieve a document.
// Callers report it as a connection error and skip analysis.
var ErrTransport = errors.New("transport error")

// Causes wrapped by TransportError.
var (
	// ErrInvalidLocator is returned when the locator is not an absolute http(s) URL.
	ErrInvalidLocator = errors.New("invalid locator: expected absolute http or https URL")

	// ErrUnexpectedStatus is returned for a non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrBodyTooLarge is returned when the document exceeds the size limit.
	// Truncated documents are never analysed.
	ErrBodyTooLarge = errors.New("document exceeds maximum body size")

	// ErrInvalidOnionAddress is returned for .onion hosts that fail v3 checksum validation.
	ErrInvalidOnionAddress = errors.New("invalid v3 onion address")

	// ErrOnionWithoutProxy is returned for .onion hosts when no SOCKS5 proxy is configured.
	ErrOnionWithoutProxy = errors.New(".onion locator requires a Tor proxy")

	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// TransportError describes a failed fetch.
type TransportError struct {
	// URL is the locator that was requested.
	URL string

	// StatusCode is the HTTP status for ErrUnexpectedStatus, zero otherwise.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %v (%d)", e.URL, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes every TransportError match ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
