// Package common defines shared constants and sentinel errors used across
// walletd components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrorConflict    = errors.New("already exists")
	ErrorPersistence = errors.New("persistence failure")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Secret-material errors. Messages never include the material itself.
	ErrInvalidMnemonic   = errors.New("invalid mnemonic")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrEntropyFailure    = errors.New("entropy source failure")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
