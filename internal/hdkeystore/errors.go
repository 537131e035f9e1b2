package hdkeystore

import "errors"

// Sentinel errors returned at the façade API boundary. Callers should use
// errors.Is against these; wrapped forms (fmt.Errorf("...: %w", Err...))
// are expected at call sites that add context.
var (
	// ErrInvalidKeyPath is returned when a keypath segment cannot be parsed,
	// or when an unmaterialized chain-switch token 'c' is encountered at
	// derivation time.
	ErrInvalidKeyPath = errors.New("hdkeystore: invalid keypath")

	// ErrUnknownChain is returned when a ChainID has no registered chain or
	// no master seed.
	ErrUnknownChain = errors.New("hdkeystore: unknown chain")

	// ErrUnknownKey is returned when a key hash is not present in the
	// catalog and the base key store (if any) also doesn't have it.
	ErrUnknownKey = errors.New("hdkeystore: unknown key")

	// ErrIndexExhausted is returned when a requested child index is >= 2^31.
	ErrIndexExhausted = errors.New("hdkeystore: child index exhausted (>= 2^31)")

	// ErrLocked is returned when a master seed cannot be decrypted because
	// the encryption collaborator's unlocked key material is unavailable.
	ErrLocked = errors.New("hdkeystore: seed vault is locked")

	// ErrNotCrypted is returned by crypted-only operations while the vault
	// is still in the Plaintext state.
	ErrNotCrypted = errors.New("hdkeystore: seed vault is not encrypted")

	// ErrDerivationFailed is returned when key derivation fails for reasons
	// other than a malformed keypath: a hardened step or a private-scalar
	// request on a neutered key, a zero-value key, or a failure reported by
	// the underlying BIP32/SLIP-10 library (such as the astronomically
	// unlikely infinite-point case).
	ErrDerivationFailed = errors.New("hdkeystore: key derivation failed")

	// ErrSeedEncodingInvalid is returned when a seed of exactly
	// BIP32_EXTKEY_SIZE bytes fails to decode as an extended private key,
	// or when a raw encoded extended public key fails to decode.
	ErrSeedEncodingInvalid = errors.New("hdkeystore: seed encoding invalid")

	// ErrInvalidKeyType is returned when a chain names an unrecognized
	// KeyType, or a combination (KeyType, UsePubCKD) that isn't meaningful.
	ErrInvalidKeyType = errors.New("hdkeystore: invalid key type")
)
