package otp

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"time"
)

const (
	// MinDigits is the shortest supported code length.
	MinDigits = 6
	// MaxDigits is the longest supported code length.
	MaxDigits = 10
)

// Generator produces fixed-length numeric one-time codes with a uniform
// validity window. A Generator is immutable and safe for concurrent use.
type Generator struct {
	digits int
	ttl    time.Duration
}

// NewGenerator returns a Generator producing codes of the given digit count
// that expire ttl after issuance.
func NewGenerator(digits int, ttl time.Duration) (*Generator, error) {
	if digits < MinDigits || digits > MaxDigits {
		return nil, errors.New("otp digits must be between 6 and 10")
	}
	if ttl <= 0 {
		return nil, errors.New("otp ttl must be positive")
	}

	return &Generator{digits: digits, ttl: ttl}, nil
}

// Generate returns a uniformly random d-digit code. The first digit is never
// zero, so the code range for six digits is [100000, 999999].
func (g *Generator) Generate() (string, error) {
	floor := pow10(g.digits - 1)
	span := big.NewInt(floor*10 - floor)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(n.Int64()+floor, 10), nil
}

// ExpiryFrom returns the expiry timestamp for a code issued at now.
func (g *Generator) ExpiryFrom(now time.Time) time.Time {
	return now.Add(g.ttl)
}

// Digits reports the configured code length.
func (g *Generator) Digits() int {
	return g.digits
}

// TTL reports the configured validity window.
func (g *Generator) TTL() time.Duration {
	return g.ttl
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
