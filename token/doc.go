// Package token manages issuance and verification of the two bearer-token
// classes: short-lived access tokens and long-lived refresh tokens. Each
// class is signed and validated against its own HS256 secret, so a token of
// one class never verifies under the other.
//
// # Architecture boundaries
//
// This package knows nothing about accounts or storage. It turns a subject
// and email into a signed string and back; whether the subject still exists
// or the refresh token is still on record is decided by the Engine.
//
// # What this package must NOT do
//
//   - Persist tokens or consult any store during verification.
//   - Accept algorithms other than HS256.
//   - Import any other authflow package.
package token
