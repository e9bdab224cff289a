package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zigbind/zigbind/internal/ast"
)

// Domain prefix for content-addressed declaration identity. The version
// suffix enables future algorithm migration without ambiguity.
const domainDeclaration = "zigbind/declaration/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DeclarationHash computes a content-addressed identity for a declaration.
// Two declarations with the same hash are the same declaration; the symbol
// table uses this to tolerate re-inclusion of identical files while
// rejecting genuine name collisions.
//
// The source location is deliberately excluded: a declaration re-included
// from a different file at a different line is still the same declaration.
func DeclarationHash(d *Declaration) (string, error) {
	stripped := *d
	stripped.Loc = ast.SourceLoc{}

	raw, err := json.Marshal(&stripped)
	if err != nil {
		return "", fmt.Errorf("marshal declaration %s: %w", d.Name, err)
	}

	// Round-trip through a generic map so canonical marshaling controls key
	// order. UseNumber keeps 64-bit magnitudes exact.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic map[string]any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("decode declaration %s: %w", d.Name, err)
	}
	scrubNulls(generic)

	canonical, err := MarshalCanonical(generic)
	if err != nil {
		return "", fmt.Errorf("canonicalize declaration %s: %w", d.Name, err)
	}
	return hashWithDomain(domainDeclaration, canonical), nil
}

// scrubNulls removes JSON nulls in place; canonical marshaling forbids
// them and a nil optional field carries no identity.
func scrubNulls(obj map[string]any) {
	for k, v := range obj {
		switch val := v.(type) {
		case nil:
			delete(obj, k)
		case map[string]any:
			scrubNulls(val)
		case []any:
			scrubNullsSlice(val)
		}
	}
}

func scrubNullsSlice(arr []any) {
	for _, v := range arr {
		switch val := v.(type) {
		case map[string]any:
			scrubNulls(val)
		case []any:
			scrubNullsSlice(val)
		}
	}
}
