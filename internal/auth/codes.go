package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Lifetimes of one-time credentials.
const (
	OTPTTL          = 10 * time.Minute
	VerificationTTL = 24 * time.Hour
	ResetTokenTTL   = 24 * time.Hour
	CodeLength      = 6
)

// GenerateCode returns a random numeric code of n digits.
func GenerateCode(n int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// GenerateToken returns a URL-safe random token with 256 bits of entropy.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hex digest stored in place of a secret.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MatchesHash compares a presented secret with a stored hash in constant time.
func MatchesHash(presented string, stored *string) bool {
	if stored == nil || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(presented)), []byte(*stored)) == 1
}

// Expired reports whether a credential issued at issuedAt has outlived ttl.
func Expired(issuedAt *time.Time, ttl time.Duration, now time.Time) bool {
	return issuedAt == nil || now.After(issuedAt.Add(ttl))
}
