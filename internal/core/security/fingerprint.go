package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the SHA256 hex digest of a token.
// Raw tokens never reach logs or storage keys; the fingerprint does.
func Fingerprint(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

