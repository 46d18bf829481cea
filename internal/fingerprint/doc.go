// Package fingerprint computes content digests used to decide whether a
// fetched configuration differs from the stored one.
package fingerprint
