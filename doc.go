// Package authflow provides an embeddable account-authentication engine with
// email-verified activation, JWT access tokens, Redis-registered refresh
// tokens, and code-based password reset.
//
// Callers supply two collaborators: a [Directory] backed by their account
// database and a [Mailer] for outbound delivery. Password hashing, one-time
// codes, token signing, the refresh registry, audit, and metrics are owned by
// the engine and wired up through [Builder.Build].
// Engine methods are safe to call from multiple goroutines after
// initialization.
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator interfaces, and value types. Token signing lives in
// token/, hashing in password/, code generation in otp/, and the refresh
// registry in refresh/; none of those sub-packages import authflow.
//
// # What this package must NOT do
//
//   - Store accounts. The [Directory] is the single source of truth,
//     including for pending one-time codes.
//   - Rotate refresh tokens. A refresh returns the presented token; revoking
//     it is an explicit [Engine.Logout] or a completed password reset.
//   - Rate limit. Callers front the engine with their own throttling; the
//     engine only decides whether a request is authentic.
package authflow
