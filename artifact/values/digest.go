package values

import (
	_ "crypto/sha256" // registers SHA-256 for go-digest
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
)

// Digest represents a SHA-256 content hash.
type Digest struct {
	d digest.Digest
}

// ParseDigest parses a digest string (e.g., "sha256:abc123...").
func ParseDigest(s string) (Digest, error) {
	d, err := digest.Parse(s)
	if err != nil {
		return Digest{}, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if d.Algorithm() != digest.SHA256 {
		return Digest{}, fmt.Errorf("unsupported digest algorithm: %s", d.Algorithm())
	}
	return Digest{d: d}, nil
}

// DigestFromBytes hashes data.
func DigestFromBytes(data []byte) Digest {
	return Digest{d: digest.SHA256.FromBytes(data)}
}

// ComputeDigestSHA256 computes SHA-256 digest of reader contents.
func ComputeDigestSHA256(r io.Reader) (Digest, error) {
	d, err := digest.SHA256.FromReader(r)
	if err != nil {
		return Digest{}, err
	}
	return Digest{d: d}, nil
}

// String returns the canonical digest string.
func (d Digest) String() string {
	return d.d.String()
}

// Hex returns the lowercase hex-encoded hash value.
func (d Digest) Hex() string {
	if d.d == "" {
		return ""
	}
	return d.d.Encoded()
}

// IsZero reports whether no hash was computed.
func (d Digest) IsZero() bool {
	return d.d == ""
}

// Equals checks equality with another digest.
func (d Digest) Equals(other Digest) bool {
	return d.d == other.d
}

// Verify validates data matches this digest.
func (d Digest) Verify(data []byte) error {
	computed := DigestFromBytes(data)
	if !d.Equals(computed) {
		return fmt.Errorf("digest mismatch: expected %s, got %s", d, computed)
	}
	return nil
}
