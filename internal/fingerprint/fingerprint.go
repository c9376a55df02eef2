// Package fingerprint turns a requester's network identity into an opaque,
// stable digest for access analytics. Raw addresses never leave this package.
//
// The digest is a keyed BLAKE3 hash. A plain hash of an IPv4 address can be
// reversed by enumerating the whole address space; a keyed hash cannot
// without the key.
package fingerprint

import (
	"encoding/hex"
	"errors"

	"github.com/zeebo/blake3"
)

// keyContext is the BLAKE3 derive-key context. Changing it changes every digest.
const keyContext = "linkgate viewer fingerprint v1"

// ErrEmptySecret is returned when no key material is configured.
var ErrEmptySecret = errors.New("fingerprint secret cannot be empty")

// Hasher computes viewer digests. It is safe for concurrent use.
type Hasher struct {
	key [32]byte
}

// New derives the hashing key from secret.
func New(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	h := &Hasher{}
	blake3.DeriveKey(keyContext, []byte(secret), h.key[:])
	return h, nil
}

// Sum returns the hex digest of identity, or "" for an empty identity.
func (h *Hasher) Sum(identity string) string {
	if identity == "" {
		return ""
	}
	hasher, err := blake3.NewKeyed(h.key[:])
	if err != nil {
		// The key is always 32 bytes.
		panic("fingerprint: keyed BLAKE3 initialization failed: " + err.Error())
	}
	_, _ = hasher.Write([]byte(identity))
	return hex.EncodeToString(hasher.Sum(nil))
}
