package hdkeystore

import (
	"crypto/sha256"
	"encoding/hex"
)

// ChainID is a 256-bit opaque identifier: the hash of the chain's master
// extended public key. Equality of ChainIDs implies equality of seeds —
// an invariant the caller is responsible for when it computes the ID, not
// something the store can verify on its own.
type ChainID [32]byte

// String returns the lowercase hex encoding of the ChainID.
func (c ChainID) String() string {
	return hex.EncodeToString(c[:])
}

// IsZero reports whether c is the zero ChainID (never a valid chain).
func (c ChainID) IsZero() bool {
	return c == ChainID{}
}

// NewChainIDFromExtPubKey derives a ChainID by hashing the BIP32-serialized
// extended public key (33-byte compressed pubkey || 32-byte chain code).
// This is a convenience for callers; the core never requires ChainIDs to
// be computed this way, only that equal ChainIDs imply equal seeds.
func NewChainIDFromExtPubKey(pubKey33, chainCode32 []byte) ChainID {
	h := sha256.New()
	h.Write(pubKey33)
	h.Write(chainCode32)
	var id ChainID
	copy(id[:], h.Sum(nil))
	return id
}
