package hdkeystore

import (
	"sort"

	"github.com/btcsuite/btcd/btcutil"
)

// KeyID is the 160-bit catalog key: hash160 (RIPEMD160(SHA256(x))) of a
// compressed public key.
type KeyID [20]byte

// NewKeyID computes the catalog key for a 33-byte compressed public key.
func NewKeyID(pubKey []byte) KeyID {
	var id KeyID
	copy(id[:], btcutil.Hash160(pubKey))
	return id
}

// HDPubKey is a single derived, catalogued public key: enough to know
// where it came from (ChainID + KeyPath + NChild) without holding any
// private material.
type HDPubKey struct {
	Version  int32
	PubKey   []byte
	NChild   uint32
	ChainID  ChainID
	KeyPath  string
	Internal bool
}

// PubKeyCatalog holds every derived HDPubKey, keyed by its KeyID. Like
// ChainRegistry, it performs no locking of its own.
type PubKeyCatalog struct {
	keys map[KeyID]HDPubKey
}

// NewPubKeyCatalog returns an empty PubKeyCatalog.
func NewPubKeyCatalog() *PubKeyCatalog {
	return &PubKeyCatalog{keys: make(map[KeyID]HDPubKey)}
}

// AddPubKey inserts or replaces the catalog entry for k's KeyID.
func (c *PubKeyCatalog) AddPubKey(k HDPubKey) KeyID {
	id := NewKeyID(k.PubKey)
	c.keys[id] = k
	return id
}

// GetPubKey returns the catalog entry for id, if any.
func (c *PubKeyCatalog) GetPubKey(id KeyID) (HDPubKey, bool) {
	k, ok := c.keys[id]
	return k, ok
}

// HaveKey reports whether id is catalogued.
func (c *PubKeyCatalog) HaveKey(id KeyID) bool {
	_, ok := c.keys[id]
	return ok
}

// GetNextChildIndex returns the lowest child index not yet used by any
// catalogued key under chainID with the given internal flag. Indices are
// collected, sorted, and scanned for the first gap — O(N log N) in the
// number of catalogued keys for that (chain, branch) pair, rather than a
// naive scan of the full 2^31 index space.
func (c *PubKeyCatalog) GetNextChildIndex(chainID ChainID, internal bool) uint32 {
	used := make([]uint32, 0)
	for _, k := range c.keys {
		if k.ChainID == chainID && k.Internal == internal {
			used = append(used, k.NChild)
		}
	}
	sort.Slice(used, func(i, j int) bool { return used[i] < used[j] })

	var next uint32
	for _, idx := range used {
		if idx == next {
			next++
		} else if idx > next {
			break
		}
	}
	return next
}
