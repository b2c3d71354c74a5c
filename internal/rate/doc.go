// Package rate throttles failed logins with Redis-backed fixed-window
// counters.
//
// # Window semantics
//
// INCR plus a conditional EXPIRE on the first hit. Keys:
//   - <prefix>login:user:<identifier>  (identifier lower-cased)
//   - <prefix>login:ip:<ip>            (only with EnableIPThrottle)
//
// # What this package must NOT do
//
//   - Decide what a failed login is (that belongs to internal/accounts).
//   - Be imported outside this module.
package rate
