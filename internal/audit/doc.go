// Package audit records security-relevant account events (registrations,
// logins, throttling, logouts) off the request path.
//
// # Components
//
//   - [Event] is the structured record.
//   - [Sink] consumes events ([ZapSink] in production, [ChannelSink] in tests).
//   - [Dispatcher] is a buffered async relay with drop-if-full or
//     block-if-full semantics.
//
// # What this package must NOT do
//
//   - Decide which events to emit (that belongs to internal/accounts).
//   - Record passwords or session tokens.
package audit
