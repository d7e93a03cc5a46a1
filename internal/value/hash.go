package value

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainPayload = "paramx/payload/v1"
	DomainOutput  = "paramx/output/v1"
	DomainRuleSet = "paramx/ruleset/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of v under domain.
// Returns an error if v has no canonical form (functions, opaque values).
func Hash(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// HashBytes returns the content hash of raw bytes under domain.
// Used for source documents that are already in a stable textual form.
func HashBytes(domain string, data []byte) string {
	return hashWithDomain(domain, data)
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be canonical.
func MustHash(domain string, v Value) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}
