// Package crypto provides the one-way hasher used for encrypted table fields.
//
// Values listed in encryptFields are replaced by their bcrypt hash before
// they reach the database; nothing is ever decrypted. Stored hashes are
// checked with Verify.
package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// BcryptHasher hashes text with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher. A cost of zero selects DefaultCost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int { return h.cost }

// Encrypt returns the bcrypt hash of text at the configured cost.
func (h *BcryptHasher) Encrypt(text string) (string, error) {
	return h.EncryptWithCost(text, h.cost)
}

// EncryptWithCost hashes text at an explicit cost, for callers that must
// match hashes produced elsewhere.
func (h *BcryptHasher) EncryptWithCost(text string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), cost)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether text matches hash. A malformed hash is an error;
// a mismatch is not.
func Verify(hash, text string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(text))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("verify: %w", err)
	}
}
