// Package refresh is the Redis-backed registry of outstanding refresh tokens.
//
// Tokens are never stored verbatim. The store keys each record by the SHA-256
// digest of the presented token, so a dump of the Redis keyspace does not
// yield usable credentials. Each record carries the owning account ID and an
// absolute expiry, and every record is indexed in a per-account set so that a
// password reset can revoke every session an account holds.
//
// # Storage layout
//
//	<prefix>:t:<digest>    binary record, TTL = time until expiry
//	<prefix>:u:<accountID> set of digests owned by the account
//
// Records use a compact binary encoding with a leading format-version byte.
//
// # Architecture boundaries
//
// The store tracks presence and ownership only. Signature and expiry-claim
// checks on the token itself belong to the token package; the Engine combines
// both before honoring a refresh.
package refresh
