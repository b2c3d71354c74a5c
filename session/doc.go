// Package session keeps the authenticated session in a single client-held
// cookie whose value is a signed token from package jwt.
//
// # Lifecycle
//
//   - [Store.Create] mints a token expiring after the sliding window and sets
//     the cookie (HttpOnly, Secure, SameSite=Lax, Path=/).
//   - [Store.Get] reads and verifies the cookie. It never returns an error.
//   - [Store.Update] re-issues the cookie with a fresh window when the current
//     session is valid.
//   - [Store.Delete] emits an expiring cookie. It is idempotent.
//
// Sessions are stateless by default. A [Revoker] such as [RedisRevoker] can be
// attached with [WithRevoker] to deny token ids after logout; any revoker
// failure while reading resolves to "no session".
//
// # What this package must NOT do
//
//   - Inspect token internals (delegated to the [Codec]).
//   - Make routing or redirect decisions (see package middleware).
//   - Log token values.
package session
