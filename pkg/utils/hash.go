package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateStringSHA256 computes the SHA-256 hash of a string.
func CalculateStringSHA256(content string) string {
	hash := sha256.New()
	hash.Write([]byte(content))
	return hex.EncodeToString(hash.Sum(nil))
}

// HashURL returns a fixed-length key for a URL, suitable for use in external key-value stores.
func HashURL(rawURL string) string {
	return CalculateStringSHA256(rawURL)
}
