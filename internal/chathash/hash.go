// Package chathash derives the order-independent identifier of a two-party chat.
package chathash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"

	"message-service/internal/models"
)

// Derive returns the lowercase hex SHA-256 of the two ids sorted as strings
// and joined with "-". Derive(a, b) == Derive(b, a).
func Derive(a, b int64) (string, error) {
	if a == b {
		return "", models.ErrInvalidConversation
	}
	ids := []string{strconv.FormatInt(a, 10), strconv.FormatInt(b, 10)}
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(ids[0] + "-" + ids[1]))
	return hex.EncodeToString(sum[:]), nil
}

// Valid reports whether s looks like a value produced by Derive.
func Valid(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
