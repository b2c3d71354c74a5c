// Package middleware exposes the request gate that runs in front of every page
// route: locale resolution from the URL, then access rules driven by the
// session cookie.
//
// # Gate
//
// [Gate] evaluates each request in a fixed order and ends in exactly one
// [Decision]:
//
//  1. API paths and static assets pass through untouched.
//  2. A path without a supported locale prefix is redirected to the same
//     path under the preferred locale (Accept-Language, then the default).
//  3. The session is read through a [SessionReader]. Any failure there,
//     including a panic, counts as "not authenticated".
//  4. Public-only pages redirect authenticated visitors home; protected
//     pages redirect anonymous visitors to the login page with a next
//     parameter. Everything else passes, with the session and locale
//     available via [SessionFromContext] and [LocaleFromContext].
//
// # Architecture boundaries
//
// This package translates HTTP requests into routing decisions. Token
// verification belongs to package jwt and cookie handling to package session.
//
// # What this package must NOT do
//
//   - Render pages (the gate only redirects or delegates).
//   - Mutate the request URL of requests it passes through.
//   - Persist a locale preference.
package middleware
