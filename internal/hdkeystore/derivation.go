package hdkeystore

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// extKeyParams is used only to satisfy hdkeychain's network-parameterized
// constructors. The core never surfaces base58-encoded keys or addresses,
// so the choice of network is immaterial to anything this package does;
// mainnet is picked for concreteness.
var extKeyParams = &chaincfg.MainNetParams

// HardenedKeyStart is the first index in BIP32's hardened range (2^31).
const HardenedKeyStart = hdkeychain.HardenedKeyStart

// ExtKey wraps hdkeychain.ExtendedKey, the BIP32 derivation engine this
// package is built on. It carries either a private or a neutered
// (public-only) key, mirroring the distinction hdkeychain itself makes.
type ExtKey struct {
	key *hdkeychain.ExtendedKey
}

// IsPrivate reports whether e holds private key material.
func (e ExtKey) IsPrivate() bool {
	return e.key != nil && e.key.IsPrivate()
}

// Depth returns the BIP32 derivation depth (0 for a master key).
func (e ExtKey) Depth() uint8 {
	return e.key.Depth()
}

// ChildNum returns the child index this key was derived at (0 for master).
func (e ExtKey) ChildNum() uint32 {
	return e.key.ChildIndex()
}

// ChainCode returns the 32-byte chain code.
func (e ExtKey) ChainCode() []byte {
	return e.key.ChainCode()
}

// ParentFingerprint returns the 4-byte fingerprint of the parent key.
func (e ExtKey) ParentFingerprint() []byte {
	return e.key.ParentFingerprint()
}

// ECPubKey returns the 33-byte compressed public key.
func (e ExtKey) ECPubKey() ([]byte, error) {
	if e.key == nil {
		return nil, fmt.Errorf("%w: key is invalid (zero value)", ErrDerivationFailed)
	}
	pub, err := e.key.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return pub.SerializeCompressed(), nil
}

// ECPrivKey returns the 32-byte private scalar. Fails if e is neutered.
func (e ExtKey) ECPrivKey() ([]byte, error) {
	if !e.IsPrivate() {
		return nil, fmt.Errorf("%w: key is neutered (public-only)", ErrDerivationFailed)
	}
	priv, err := e.key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return priv.Serialize(), nil
}

// Neuter strips private key material, returning a public-only ExtKey
// suitable for non-hardened public CKD derivation.
func (e ExtKey) Neuter() (ExtKey, error) {
	pub, err := e.key.Neuter()
	if err != nil {
		return ExtKey{}, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return ExtKey{key: pub}, nil
}

// Derive performs one BIP32 CKD step: hardened derivation if hardened is
// true (requiring e to be private), otherwise plain derivation (private or
// public CKD, depending on whether e itself is private).
func (e ExtKey) Derive(index uint32, hardened bool) (ExtKey, error) {
	if hardened && index >= hdkeychain.HardenedKeyStart {
		return ExtKey{}, fmt.Errorf("%w: index %d already has the hardened bit set", ErrInvalidKeyPath, index)
	}
	if index >= hdkeychain.HardenedKeyStart {
		return ExtKey{}, fmt.Errorf("%w: index %d exceeds the non-hardened range", ErrIndexExhausted, index)
	}
	if hardened && !e.IsPrivate() {
		return ExtKey{}, fmt.Errorf("%w: hardened derivation requires a private key", ErrDerivationFailed)
	}

	childIndex := index
	if hardened {
		childIndex = hdkeychain.HardenedKeyStart + index
	}

	child, err := e.key.Derive(childIndex)
	if err != nil {
		return ExtKey{}, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return ExtKey{key: child}, nil
}

// encodePublic serializes e as a raw BIP32ExtKeySize-byte public extended
// key (33-byte compressed point keydata, no version/checksum). Used by the
// HDChain wire format for ExternalExtPubKey/InternalExtPubKey. An invalid
// (zero-value) ExtKey — the documented representation of an absent
// internal root — encodes as BIP32ExtKeySize zero bytes.
func (e ExtKey) encodePublic() ([]byte, error) {
	if e.key == nil {
		return make([]byte, BIP32ExtKeySize), nil
	}

	pub, err := e.ECPubKey()
	if err != nil {
		return nil, err
	}

	var raw rawExtKey
	raw.depth = e.Depth()
	copy(raw.parentFingerprint[:], e.ParentFingerprint())
	raw.childNumber = e.ChildNum()
	copy(raw.chainCode[:], e.ChainCode())
	copy(raw.keyData[:], pub)

	return encodeRawExtKey(raw), nil
}

// decodePublicExtKey decodes a raw BIP32ExtKeySize-byte public extended
// key, as produced by ExtKey.encodePublic. A buffer of all zero bytes
// decodes back to an invalid (absent) ExtKey rather than an error.
func decodePublicExtKey(buf []byte) (ExtKey, error) {
	if isAllZero(buf) {
		return ExtKey{}, nil
	}

	raw, err := decodeRawExtKey(buf)
	if err != nil {
		return ExtKey{}, err
	}

	if _, err := btcec.ParsePubKey(raw.keyData[:]); err != nil {
		return ExtKey{}, fmt.Errorf("%w: %v", ErrSeedEncodingInvalid, err)
	}

	key := hdkeychain.NewExtendedKey(
		extKeyParams.HDPublicKeyID[:],
		raw.keyData[:],
		raw.chainCode[:],
		raw.parentFingerprint[:],
		raw.depth,
		raw.childNumber,
		false,
	)
	return ExtKey{key: key}, nil
}

// decodePrivateExtKey decodes a raw BIP32ExtKeySize-byte private extended
// key (a MasterSeed that is exactly BIP32ExtKeySize bytes long is treated
// as one of these rather than as raw entropy).
func decodePrivateExtKey(buf []byte) (ExtKey, error) {
	raw, err := decodeRawExtKey(buf)
	if err != nil {
		return ExtKey{}, err
	}
	if raw.keyData[0] != 0x00 {
		return ExtKey{}, fmt.Errorf("%w: private keydata missing leading zero pad byte", ErrSeedEncodingInvalid)
	}

	var privScalar btcec.ModNScalar
	if overflow := privScalar.SetByteSlice(raw.keyData[1:]); overflow || privScalar.IsZero() {
		return ExtKey{}, fmt.Errorf("%w: invalid private scalar", ErrSeedEncodingInvalid)
	}

	key := hdkeychain.NewExtendedKey(
		extKeyParams.HDPrivateKeyID[:],
		raw.keyData[:],
		raw.chainCode[:],
		raw.parentFingerprint[:],
		raw.depth,
		raw.childNumber,
		true,
	)
	return ExtKey{key: key}, nil
}

// isAllZero reports whether every byte in buf is zero.
func isAllZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// masterExtKeyFromSeed builds the root ExtKey for a chain's derivation
// tree. A MasterSeed of exactly BIP32ExtKeySize bytes is interpreted as a
// pre-encoded extended private key (decoded directly); any other length
// is treated as raw entropy and run through BIP32's standard master-key
// generation (HMAC-SHA512 with key "Bitcoin seed").
func masterExtKeyFromSeed(seed []byte) (ExtKey, error) {
	if len(seed) == BIP32ExtKeySize {
		return decodePrivateExtKey(seed)
	}

	master, err := hdkeychain.NewMaster(seed, extKeyParams)
	if err != nil {
		return ExtKey{}, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}
	return ExtKey{key: master}, nil
}

// deriveKeyPath walks path's derivation steps (the segments after the
// leading "m") starting from root, applying one CKD step per segment.
// path must already be materialized (no remaining chain-switch tokens).
func deriveKeyPath(root ExtKey, path KeyPath) (ExtKey, error) {
	steps, err := path.derivationSteps()
	if err != nil {
		return ExtKey{}, err
	}

	current := root
	for _, step := range steps {
		current, err = current.Derive(uint32(step.index), step.hardened)
		if err != nil {
			return ExtKey{}, err
		}
	}
	return current, nil
}
