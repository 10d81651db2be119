package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/billix/billix/internal/types"
)

// APIKey authenticates server-to-server callers. Only the SHA-256 hash of
// the key is stored; the plaintext is shown once at creation.
type APIKey struct {
	ID         string     `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	HashedKey  string     `db:"hashed_key" json:"-"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	types.BaseModel
}

// IsValid reports whether the key may authenticate requests at t
func (k *APIKey) IsValid(t time.Time) bool {
	if k.Status != types.StatusPublished {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(t) {
		return false
	}
	return true
}

// HashKey derives the stored lookup hash from a plaintext key
func HashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
