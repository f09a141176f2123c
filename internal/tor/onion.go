package tor

import (
	"encoding/base32"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// OnionSuffix is the suffix of every onion hostname.
	OnionSuffix = ".onion"

	// OnionV3Version is the version byte embedded in v3 addresses.
	OnionV3Version = 0x03

	// onionV3DecodedLength is pubkey (32) + checksum (2) + version (1).
	onionV3DecodedLength = 35
)

// onionV3Pattern matches a bare v3 hostname: 56 base32 characters plus the suffix.
var onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)

// checksumPrefix is prepended to the key when computing the v3 checksum.
var checksumPrefix = []byte(".onion checksum")

// IsOnionHost reports whether host belongs to the .onion domain.
// Subdomains of an onion service count as onion hosts.
func IsOnionHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return strings.HasSuffix(host, OnionSuffix)
}

// IsValidV3Address reports whether host is a v3 onion address with a
// correct checksum. Case is ignored and one leading subdomain label is
// allowed, so "www.<addr>.onion" validates like "<addr>.onion".
func IsValidV3Address(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if labels := strings.Split(host, "."); len(labels) > 2 {
		host = strings.Join(labels[len(labels)-2:], ".")
	}

	if !onionV3Pattern.MatchString(host) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(host, OnionSuffix)))
	if err != nil || len(decoded) != onionV3DecodedLength {
		return false
	}

	pubkey := decoded[:32]
	checksum := decoded[32:34]
	version := decoded[34]
	if version != OnionV3Version {
		return false
	}

	expected := computeV3Checksum(pubkey, version)
	return checksum[0] == expected[0] && checksum[1] == expected[1]
}

// computeV3Checksum returns the first two bytes of
// SHA3-256(".onion checksum" || pubkey || version).
func computeV3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	hash := sha3.Sum256(data)
	return hash[:2]
}

// addressFromPublicKey builds the v3 hostname for an ed25519 public key.
func addressFromPublicKey(pubkey []byte) string {
	data := make([]byte, 0, onionV3DecodedLength)
	data = append(data, pubkey...)
	data = append(data, computeV3Checksum(pubkey, OnionV3Version)...)
	data = append(data, OnionV3Version)
	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix
}
