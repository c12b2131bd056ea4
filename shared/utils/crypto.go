package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sha256Hex computes the canonical content digest: lowercase sha256 hex.
// The result doubles as the file id in the catalog.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumMatches compares a client-declared digest against a computed one.
// Hex is compared case-insensitively; anything that is not valid hex of the
// right length can never match.
func ChecksumMatches(computed, declared string) bool {
	if len(declared) != len(computed) {
		return false
	}
	return strings.EqualFold(computed, declared)
}
