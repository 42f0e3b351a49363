// Package shareid generates the opaque tokens used for share codes and share
// links. Tokens are random UUIDv4 strings drawn from crypto/rand, so callers
// may generate them concurrently without coordination.
package shareid

import "github.com/google/uuid"

// New returns a fresh random token in canonical UUID form.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s has the shape of a token produced by New.
func Valid(s string) bool {
	if len(s) != 36 {
		return false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4 && id.Variant() == uuid.RFC4122
}
