// Package jwt encodes session payloads into signed, time-limited HS256 tokens
// and decodes them back with strict validation.
//
// # Wire format
//
// A token is a compact JWS (header.payload.signature, base64url). The claims
// carry "userId", "expiresAt" (RFC 3339 UTC), "iat", "exp" and "jti". The
// "exp" claim never exceeds iat + TTL, so the signing library bounds the
// token lifetime independently of the payload's own expiry.
//
// # Failure semantics
//
// [Codec.Decode] never returns an error and never panics. Bad signatures,
// foreign algorithms, elapsed expiry and malformed claims all collapse to the
// same (Payload{}, false) result, so callers cannot tell why a token failed.
//
// # What this package must NOT do
//
//   - Read configuration from the environment (the secret is a constructor
//     argument).
//   - Touch cookies or HTTP requests (see package session).
package jwt
