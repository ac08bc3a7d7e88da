// Package otp generates numeric one-time codes for email verification and
// password reset challenges.
//
// Codes are drawn uniformly from crypto/rand over the full d-digit range
// (for six digits: 100000–999999, no leading zero) and carry a fixed validity
// window computed by [Generator.ExpiryFrom].
//
// # What this package must NOT do
//
//   - Store or compare codes. Persistence and matching belong to the Engine.
//   - Seed or expose any deterministic source outside of tests.
package otp
