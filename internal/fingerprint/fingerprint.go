package fingerprint

import (
	"bytes"
	"crypto"
	"encoding/hex"

	// Register SHA-256 for crypto.Hash lookups.
	_ "crypto/sha256"
)

const (
	// Hash is the digest function behind every fingerprint.
	Hash crypto.Hash = crypto.SHA256

	// shortLength is the number of hex characters printed by Short.
	shortLength = 8
)

// Digest is a fixed-size content fingerprint.
type Digest []byte

// Sum returns the fingerprint of data.
func Sum(data []byte) Digest {
	hasher := Hash.New()
	// hash.Hash never returns an error from Write.
	_, _ = hasher.Write(data)

	return hasher.Sum(nil)
}

// Equal reports whether two fingerprints are bit-identical.
func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d, other)
}

// String returns the lowercase hex form of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d)
}

// Short returns the first hex characters of the digest for log lines.
func (d Digest) Short() string {
	s := d.String()
	if len(s) <= shortLength {
		return s
	}

	return s[:shortLength]
}
