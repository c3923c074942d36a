// Package secrets seals small blobs, such as a persisted session, with
// AES-256-GCM under a key derived from a passphrase.
//
//	key, err := secrets.DeriveKey(passphrase, "ency-session-v1")
//	sealed, err := secrets.Seal(key, raw)
//	raw, err = secrets.Open(key, sealed)
//
// Sealed output is nonce || ciphertext || tag. The purpose string passed to
// DeriveKey separates keys derived from the same passphrase for different
// uses.
package secrets
