// Package password hashes account passwords with Argon2id and checks them
// against the registration policy.
//
// # Output format
//
// Hashes are encoded as PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// caller can rehash on the next successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords (callers supply plaintext and receive hashes).
//   - Log plaintext passwords.
package password
