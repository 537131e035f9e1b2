package utils

import "errors"

// Password/passphrase errors
var (
	// ErrInvalidPassword is returned when password strength validation fails.
	ErrInvalidPassword = errors.New("invalid password - must be 12+ characters with 3+ complexity types")

	// ErrDecryptionFailed is returned when seed decryption fails (wrong
	// password or corrupted data).
	ErrDecryptionFailed = errors.New("decryption failed - wrong password or corrupted data")
)

// BIP39 errors
var (
	// ErrInvalidMnemonic is returned when BIP39 mnemonic validation fails.
	ErrInvalidMnemonic = errors.New("invalid mnemonic phrase - checksum verification failed")
)

// Rate limiting errors
var (
	// ErrRateLimitExceeded is returned when too many failed authentication attempts occur.
	ErrRateLimitExceeded = errors.New("rate limit exceeded - too many failed attempts, please wait")
)
