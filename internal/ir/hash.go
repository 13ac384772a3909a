package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for derived identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainLabel      = "seedling/label/v1"
	DomainAttributes = "seedling/attributes/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps domain and data from running together.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// LabelID derives the durable identifier for a fixture label.
// The same label always yields the same id, across processes and loads,
// so a durable backend addresses the same row every time it is seeded.
// The label's bytes are hashed as given: labels that differ only in Unicode
// normalization are distinct labels in every store.
func LabelID(label string) string {
	return hashWithDomain(DomainLabel, []byte(label))
}

// Digest hashes the canonical form of a record's attributes.
func Digest(attrs IRObject) (string, error) {
	canonical, err := MarshalCanonical(attrs)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hashWithDomain(DomainAttributes, canonical), nil
}
