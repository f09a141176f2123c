// Package fetch retrieves documents for analysis.
//
// A Client performs one GET per locator and returns the complete body as
// Unicode text. Any failure (bad locator, connection error, timeout,
// non-2xx status, oversized body) is reported as a *TransportError that
// matches ErrTransport, so callers can report a connection error without
// inspecting the cause.
//
// Requests can be routed through a SOCKS5 proxy such as a Tor daemon.
// Locators on .onion hosts are checked against the v3 address checksum and
// refused unless a proxy is configured.
package fetch
