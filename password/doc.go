// Package password implements credential hashing and verification with bcrypt.
//
// # Output format
//
// Hashes use the standard bcrypt modular crypt encoding ($2a$...) produced by
// golang.org/x/crypto/bcrypt, which embeds the salt and cost factor. The
// default cost is 10.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Which flows re-hash or
// clear credentials is decided by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other authflow package.
//   - Log plaintext passwords.
package password
