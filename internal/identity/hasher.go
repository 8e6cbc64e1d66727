package identity

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrHashing is returned for any internal hashing failure. Callers match it
// with errors.Is and log the wrapped cause server-side; neither the cause nor
// the plaintext is ever surfaced to clients.
var ErrHashing = errors.New("password hashing failed")

// Hasher produces and verifies one-way password digests.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptHasher implements Hasher with bcrypt. Each Hash call embeds a fresh
// random salt, so two hashes of the same plaintext are never equal.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher constructs a BcryptHasher. A cost outside bcrypt's valid
// range falls back to the default cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// prehash folds the plaintext through SHA-256 before bcrypt. bcrypt only
// consumes the first 72 bytes of its input and rejects anything longer, so
// without this step passwords past that limit would fail outright.
func prehash(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(encoded, sum[:])
	return encoded
}

// Hash derives a salted digest of the plaintext.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(prehash(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the digest. bcrypt's
// comparison is constant-time with respect to where a mismatch occurs.
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), prehash(plaintext)) == nil
}

var _ Hasher = (*BcryptHasher)(nil)
