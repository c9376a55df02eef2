// Package tokengen mints the opaque public tokens that identify shared links.
// Tokens carry no ordering, owner or sequence information; they are the only
// credential needed to read a link, so they come straight from crypto/rand.
package tokengen

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultBytes is the entropy of a minted token (128 bits).
	DefaultBytes = 16
	// MinBytes is the smallest entropy accepted by WithBytes.
	MinBytes = 16
	// MaxBytes keeps tokens comfortably short in URLs.
	MaxBytes = 32
)

// Minter produces unique, unguessable, URL-safe tokens.
// Implementations should be safe for concurrent use.
type Minter interface {
	Mint() (string, error)
}

type hexMinter struct {
	size   int
	reader io.Reader
}

// Option configures the hex minter.
type Option func(*hexMinter)

// WithBytes sets the number of random bytes per token. Values outside
// [MinBytes, MaxBytes] are ignored.
func WithBytes(n int) Option {
	return func(m *hexMinter) {
		if n >= MinBytes && n <= MaxBytes {
			m.size = n
		}
	}
}

// WithReader replaces the randomness source. Tests only.
func WithReader(r io.Reader) Option {
	return func(m *hexMinter) {
		if r != nil {
			m.reader = r
		}
	}
}

// NewHex returns a Minter that hex-encodes secure random bytes.
func NewHex(opts ...Option) Minter {
	m := &hexMinter{size: DefaultBytes, reader: rand.Reader}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *hexMinter) Mint() (string, error) {
	b := make([]byte, m.size)
	if _, err := io.ReadFull(m.reader, b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ErrMalformed reports a token that no minter in this package could have produced.
var ErrMalformed = errors.New("malformed token")

// Validate checks the shape of a token received from the outside world,
// so obviously bogus values never reach the store.
func Validate(token string) error {
	n := len(token)
	if n < MinBytes*2 || n > MaxBytes*2 || n%2 != 0 {
		return ErrMalformed
	}
	for i := 0; i < n; i++ {
		c := token[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return ErrMalformed
		}
	}
	return nil
}
