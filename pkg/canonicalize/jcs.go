// Package canonicalize produces RFC 8785 (JSON Canonicalization
// Scheme) output for deterministic hashing of ontology types, policy
// decisions, and entity property values.
package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// JCS returns the RFC 8785 canonical JSON representation of v. v is
// first marshaled with the standard encoder (so struct tags are
// respected), then re-canonicalized: map keys sorted, no HTML
// escaping, numbers normalized per RFC 8785 §3.2.3.
func JCS(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: transform: %w", err)
	}
	return canonical, nil
}

// Hash returns the SHA-256 hex digest of v's canonical form, prefixed
// "sha256:" to match the store's content-addressed identifiers.
func Hash(v any) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes hex-encodes the SHA-256 digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Equal reports whether a and b canonicalize to the same bytes —
// structural JSON equality independent of key order or formatting.
func Equal(a, b any) (bool, error) {
	ca, err := JCS(a)
	if err != nil {
		return false, err
	}
	cb, err := JCS(b)
	if err != nil {
		return false, err
	}
	return string(ca) == string(cb), nil
}
