// Package common defines shared constants and sentinel errors used across
// the svoychat server components. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Caller-side failures.
	ErrValidation    = errors.New("validation error")
	ErrUsernameTaken = errors.New("username already taken")

	// Authentication failures. Distinguished internally; the transport layer
	// reports both with the same response shape.
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")

	// ErrDecryptionFailed means the key vault could not open a stored blob.
	// When the password hash already verified, this indicates a corrupted
	// blob or a vault-secret mismatch, not a bad password.
	ErrDecryptionFailed = errors.New("decryption failed")

	// Unexpected storage or crypto failures.
	ErrInternal = errors.New("internal error")
)
