// Package middleware provides net/http integration for authflow.
//
// Guard extracts the bearer token from the Authorization header, resolves it
// through [authflow.Engine.Authenticate], and stores the resulting
// [authflow.Identity] in the request context for downstream handlers.
package middleware
