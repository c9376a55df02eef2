// Package passwd hashes and verifies link passwords.
//
// Digests are bcrypt: every hash carries its own random salt and
// CompareHashAndPassword runs in constant time with respect to the secret.
package passwd

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength is the longest password bcrypt accepts, in bytes.
const MaxLength = 72

var (
	ErrEmpty   = errors.New("password cannot be empty")
	ErrTooLong = fmt.Errorf("password too long (max %d bytes)", MaxLength)
)

// Verifier is a one-way hash over link passwords.
type Verifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type bcryptVerifier struct {
	cost int
}

// NewBcrypt returns a Verifier with the given cost. Out-of-range costs fall
// back to bcrypt.DefaultCost.
func NewBcrypt(cost int) Verifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptVerifier{cost: cost}
}

func (v *bcryptVerifier) Hash(plaintext string) (string, error) {
	if err := Validate(plaintext); err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), v.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

func (v *bcryptVerifier) Verify(plaintext, digest string) bool {
	if plaintext == "" || digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Validate reports whether plaintext can be hashed.
func Validate(plaintext string) error {
	if plaintext == "" {
		return ErrEmpty
	}
	if len(plaintext) > MaxLength {
		return ErrTooLong
	}
	return nil
}
