package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashParts returns a hex sha256 over parts joined by "|".
func HashParts(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
