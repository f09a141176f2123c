// Package tor supports fetching documents from onion services.
//
// It validates v3 onion hostnames before any request is made and can
// launch an embedded Tor daemon, via tornago, whose SOCKS5 listener is then
// used as the fetch proxy.
package tor
