package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/xid"
)

// tokenBytes is the entropy of a session token: 256 bits from the OS CSPRNG.
const tokenBytes = 32

// TokenLength is the encoded length of a token returned by GenerateToken.
var TokenLength = base64.RawURLEncoding.EncodedLen(tokenBytes)

// GenerateToken returns a fresh opaque session token, URL-safe and unpadded (43 chars).
// The token carries no information; it is only meaningful as a key into the session store.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateID returns a new user id (random UUIDv4).
func GenerateID() string {
	return uuid.NewString()
}

// GenerateLogID returns a new id for chat log entries and conversations.
// xid values are 20 chars and sort by creation time.
func GenerateLogID() string {
	return xid.New().String()
}
