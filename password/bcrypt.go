package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const minPassBytes = 6

// ErrPasswordTooShort is returned by [Bcrypt.Hash] when the plaintext is
// shorter than the minimum accepted length.
var ErrPasswordTooShort = errors.New("password must be at least 6 bytes")

// Config carries the bcrypt work factor.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Cost int
}

// Bcrypt hashes and verifies credentials with a fixed work factor. Instances
// are immutable and safe for concurrent use.
type Bcrypt struct {
	cost int
}

// NewBcrypt validates the configured cost and returns a hasher. A zero cost
// selects bcrypt's default (10).
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}

	return &Bcrypt{cost: cost}, nil
}

// Hash derives a salted one-way hash of the plaintext.
//
// Hash may return an error when input validation or key derivation fails.
// The plaintext is never retained or logged.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	// Raw string bytes exactly as provided; no Unicode normalization.
	if len(plaintext) < minPassBytes {
		return "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. A mismatch is
// (false, nil); a malformed or foreign hash encoding is an error.
func (b *Bcrypt) Verify(plaintext, encodedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, err
}

// Cost reports the configured work factor.
func (b *Bcrypt) Cost() int {
	return b.cost
}
