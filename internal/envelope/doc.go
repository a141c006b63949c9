// Package envelope implements password-based authenticated encryption of the
// container payload.
//
// Keys come from PBKDF2-HMAC-SHA256 over a random 16-byte salt; the payload is
// sealed with AES-256-GCM under a random 12-byte nonce. The byte layout is
// salt‖nonce‖tag‖ciphertext so existing containers remain readable.
package envelope
