package hdkeystore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/hdvault/internal/hdkeystore/slip10deriv"
	"github.com/yourusername/hdvault/internal/services/audit"
)

// BaseKeyStore is the non-HD fallthrough: a plain key store holding keys
// that were never derived (imported keys, legacy wallets). HDKeyStore
// consults it only after its own catalog misses, never writes to it.
type BaseKeyStore interface {
	HaveKey(id KeyID) bool
	GetKey(id KeyID) ([]byte, error)
	GetPubKey(id KeyID) ([]byte, error)
}

// HDKeyStore is the façade over ChainRegistry, PubKeyCatalog, and
// SeedVault. A single mutex guards all three; operations never block on
// I/O of their own, since nothing here ever talks to a disk or a network
// (that's the external collaborators' job, by construction) — the one
// exception is the optional audit logger, a best-effort side effect that
// never changes an operation's outcome.
type HDKeyStore struct {
	mu           sync.Mutex
	registry     *ChainRegistry
	catalog      *PubKeyCatalog
	vault        *SeedVault
	collaborator EncryptionCollaborator
	base         BaseKeyStore
	auditLog     *audit.Logger
}

// NewHDKeyStore wires up an HDKeyStore. collaborator must not be nil; base
// may be nil if there is no non-HD fallthrough store. auditLog may be nil,
// in which case every mutating or key-revealing operation simply skips
// logging rather than erroring.
func NewHDKeyStore(collaborator EncryptionCollaborator, base BaseKeyStore, auditLog *audit.Logger) *HDKeyStore {
	return &HDKeyStore{
		registry:     NewChainRegistry(),
		catalog:      NewPubKeyCatalog(),
		vault:        NewSeedVault(),
		collaborator: collaborator,
		base:         base,
		auditLog:     auditLog,
	}
}

// auditStatus maps an operation's outcome to the audit package's
// status/reason vocabulary.
func auditStatus(err error) (status, reason string) {
	if err != nil {
		return audit.StatusFailure, err.Error()
	}
	return audit.StatusSuccess, ""
}

// logOp records one audit entry if s was constructed with a logger;
// with none configured, it's a no-op. Logging failures are swallowed —
// the operation they describe has already succeeded or failed on its own
// terms, and a write to the audit trail should never change that.
func (s *HDKeyStore) logOp(chainIDStr, op, status, reason string) {
	if s.auditLog == nil {
		return
	}
	_ = s.auditLog.LogOperation(audit.LogEntry{
		ID:            newAuditEntryID(),
		ChainID:       chainIDStr,
		Timestamp:     time.Now(),
		Operation:     op,
		Status:        status,
		FailureReason: reason,
	})
}

// newAuditEntryID returns a random 16-byte hex identifier for one audit
// record. A read failure from crypto/rand (never expected in practice)
// degrades to an all-zero ID rather than failing the operation it's
// attached to.
func newAuditEntryID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// AddChain registers chain, making its ChainID available for derivation.
func (s *HDKeyStore) AddChain(chain HDChain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.registry.AddChain(chain)
	status, reason := auditStatus(err)
	s.logOp(chain.ChainID.String(), audit.OpChainAdd, status, reason)
	return err
}

// AddMasterSeed stores seed in plaintext for chainID. The chain must
// already be registered.
func (s *HDKeyStore) AddMasterSeed(chainID ChainID, seed MasterSeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.addMasterSeedLocked(chainID, seed)
	status, reason := auditStatus(err)
	s.logOp(chainID.String(), audit.OpSeedAdd, status, reason)
	return err
}

func (s *HDKeyStore) addMasterSeedLocked(chainID ChainID, seed MasterSeed) error {
	if !s.registry.HaveChain(chainID) {
		return fmt.Errorf("%w: %s", ErrUnknownChain, chainID)
	}
	return s.vault.AddMasterSeed(chainID, seed)
}

// EncryptSeeds encrypts every plaintext seed currently held, via the
// collaborator supplied at construction. Safe to call more than once; it
// resumes from wherever a prior call left off.
func (s *HDKeyStore) EncryptSeeds() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.vault.EncryptSeeds(s.collaborator)
	status, reason := auditStatus(err)
	s.logOp("", audit.OpSeedsEncrypted, status, reason)
	return err
}

// GetAvailableChainIDs returns every ChainID with seed material on hand.
func (s *HDKeyStore) GetAvailableChainIDs() []ChainID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vault.GetAvailableChainIDs()
}

// HaveKey reports whether id is known, either as a derived HD key or via
// the base key store fallthrough.
func (s *HDKeyStore) HaveKey(id KeyID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.catalog.HaveKey(id) {
		return true
	}
	if s.base != nil {
		return s.base.HaveKey(id)
	}
	return false
}

// GetPubKey returns the public key bytes for id: 33-byte compressed for a
// secp256k1 chain, 32 bytes for an ed25519 chain, or whatever the base key
// store holds for a non-HD key.
func (s *HDKeyStore) GetPubKey(id KeyID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.catalog.GetPubKey(id); ok {
		return k.PubKey, nil
	}
	if s.base != nil {
		if pub, err := s.base.GetPubKey(id); err == nil {
			return pub, nil
		}
	}
	return nil, fmt.Errorf("%w: %x", ErrUnknownKey, id)
}

// resolveMasterSeed fetches and, if necessary, decrypts the master seed
// for chainID. Must be called with s.mu held.
func (s *HDKeyStore) resolveMasterSeed(chainID ChainID) (MasterSeed, error) {
	if !s.vault.IsCrypted() {
		return s.vault.GetMasterSeed(chainID)
	}

	blob, err := s.vault.GetCryptedMasterSeed(chainID)
	if err != nil {
		return nil, err
	}
	seed, err := s.collaborator.DecryptSeed(blob, chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocked, err)
	}
	return seed, nil
}

// GetKey returns the private key bytes for id. For HD-catalogued keys
// this always requires the master seed: the private scalar is derived on
// demand and never cached, so this call fails with ErrLocked whenever the
// seed vault cannot currently be decrypted.
func (s *HDKeyStore) GetKey(id KeyID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	priv, chainIDStr, err := s.getKeyLocked(id)
	status, reason := auditStatus(err)
	s.logOp(chainIDStr, audit.OpKeyAccess, status, reason)
	return priv, err
}

func (s *HDKeyStore) getKeyLocked(id KeyID) (priv []byte, chainIDStr string, err error) {
	k, ok := s.catalog.GetPubKey(id)
	if !ok {
		if s.base != nil {
			if priv, err := s.base.GetKey(id); err == nil {
				return priv, "", nil
			}
		}
		return nil, "", fmt.Errorf("%w: %x", ErrUnknownKey, id)
	}
	chainIDStr = k.ChainID.String()

	chain, ok := s.registry.GetChain(k.ChainID)
	if !ok {
		return nil, chainIDStr, fmt.Errorf("%w: %s", ErrUnknownChain, k.ChainID)
	}

	seed, err := s.resolveMasterSeed(k.ChainID)
	if err != nil {
		return nil, chainIDStr, err
	}

	path, err := ParseKeyPath(k.KeyPath)
	if err != nil {
		return nil, chainIDStr, err
	}

	if chain.effectiveKeyType() == KeyTypeEd25519 {
		accountPath, err := path.withoutLastSegment()
		if err != nil {
			return nil, chainIDStr, err
		}
		_, edPriv, err := slip10deriv.DeriveEd25519AtIndex(seed, accountPath.slip10String(), k.NChild)
		if err != nil {
			return nil, chainIDStr, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
		}
		return []byte(edPriv), chainIDStr, nil
	}

	master, err := masterExtKeyFromSeed(seed)
	if err != nil {
		return nil, chainIDStr, err
	}

	leaf, err := deriveKeyPath(master, path)
	if err != nil {
		return nil, chainIDStr, err
	}

	priv, err = leaf.ECPrivKey()
	return priv, chainIDStr, err
}

// LoadHDPubKey inserts an already-derived HDPubKey record (e.g. one read
// back from external storage) into the catalog without re-deriving it.
// The chain it names must already be registered.
func (s *HDKeyStore) LoadHDPubKey(k HDPubKey) (KeyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.HaveChain(k.ChainID) {
		err := fmt.Errorf("%w: %s", ErrUnknownChain, k.ChainID)
		s.logOp(k.ChainID.String(), audit.OpPubKeyLoaded, audit.StatusFailure, err.Error())
		return KeyID{}, err
	}
	id := s.catalog.AddPubKey(k)
	s.logOp(k.ChainID.String(), audit.OpPubKeyLoaded, audit.StatusSuccess, "")
	return id, nil
}

// GetNextChildIndex returns the lowest unused child index for chainID's
// external (internal=false) or internal (internal=true) branch.
func (s *HDKeyStore) GetNextChildIndex(chainID ChainID, internal bool) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog.GetNextChildIndex(chainID, internal)
}

// DeriveHDPubKeyAtIndex derives and returns the public key at nIndex on
// chainID's external (internal=false) or internal (internal=true)
// branch. nIndex must be < 2^31 (address-level derivation is never
// hardened in public mode); callers typically obtain it from
// GetNextChildIndex first.
//
// This does NOT insert the result into the catalog — the caller must
// follow up with LoadHDPubKey if the derivation is meant to be kept,
// which lets a caller discard a speculative derivation (§4.6).
//
// Derivation mode is chosen automatically, never by the caller: if the
// chain is registered with UsePubCKD and the relevant branch root
// (ExternalExtPubKey or InternalExtPubKey) is valid, the neutered root
// is used and the master seed is never touched — this also works while
// the vault is locked. If that branch root was not supplied (a chain
// can register an external root without an internal one) or the chain
// doesn't use public CKD at all, derivation instead proceeds from the
// master seed. Within that seed-derived fallback, the appended index is
// hardened only in the one asymmetric case called out in spec §9: the
// chain otherwise uses public CKD (valid external root) but internal
// derivation was requested and no internal root was supplied. Every
// other seed-derived path (a chain with no public-CKD configuration at
// all) appends a non-hardened index, matching ordinary BIP44-style use.
func (s *HDKeyStore) DeriveHDPubKeyAtIndex(chainID ChainID, nIndex uint32, internal bool) (HDPubKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, err := s.deriveHDPubKeyAtIndexLocked(chainID, nIndex, internal)
	status, reason := auditStatus(err)
	s.logOp(chainID.String(), audit.OpPubKeyDerived, status, reason)
	return k, err
}

func (s *HDKeyStore) deriveHDPubKeyAtIndexLocked(chainID ChainID, nIndex uint32, internal bool) (HDPubKey, error) {
	if nIndex >= HardenedKeyStart {
		return HDPubKey{}, ErrIndexExhausted
	}

	chain, ok := s.registry.GetChain(chainID)
	if !ok {
		return HDPubKey{}, fmt.Errorf("%w: %s", ErrUnknownChain, chainID)
	}

	if chain.effectiveKeyType() == KeyTypeEd25519 {
		return s.deriveEd25519PubKeyAtIndexLocked(chainID, chain, nIndex, internal)
	}

	template, err := ParseKeyPath(chain.KeypathTemplate)
	if err != nil {
		return HDPubKey{}, err
	}
	materialized := template.Materialize(internal)

	var leafPub ExtKey
	usedPubCKD := false
	hardenedFallback := false

	if chain.UsePubCKD {
		branchRoot := chain.ExternalExtPubKey
		if internal {
			branchRoot = chain.InternalExtPubKey
		}
		if branchRoot.key != nil {
			leafPub, err = branchRoot.Derive(nIndex, false)
			if err != nil {
				return HDPubKey{}, err
			}
			usedPubCKD = true
		} else {
			// Public-only mode is configured for this chain but no root
			// exists for the requested branch (internal requested with
			// no internal root, since the registry invariant guarantees
			// ExternalExtPubKey is valid whenever UsePubCKD is true).
			hardenedFallback = true
		}
	}

	path := materialized.AppendIndex(nIndex, hardenedFallback)

	if !usedPubCKD {
		seed, err := s.resolveMasterSeed(chainID)
		if err != nil {
			return HDPubKey{}, err
		}
		master, err := masterExtKeyFromSeed(seed)
		if err != nil {
			return HDPubKey{}, err
		}
		leaf, err := deriveKeyPath(master, path)
		if err != nil {
			return HDPubKey{}, err
		}
		leafPub, err = leaf.Neuter()
		if err != nil {
			return HDPubKey{}, err
		}
	}

	pubBytes, err := leafPub.ECPubKey()
	if err != nil {
		return HDPubKey{}, err
	}

	k := HDPubKey{
		Version:  1,
		PubKey:   pubBytes,
		NChild:   nIndex,
		ChainID:  chainID,
		KeyPath:  path.String(),
		Internal: internal,
	}
	return k, nil
}

// deriveEd25519PubKeyAtIndexLocked is DeriveHDPubKeyAtIndex's parallel
// entry point for chains registered with KeyTypeEd25519 (§13.1): it
// derives through slip10deriv instead of the secp256k1 BIP32 engine
// above, unconditionally from the master seed — SLIP-10's ed25519
// variant has no public-CKD equivalent, so UsePubCKD is rejected for
// these chains at registration time (see HDChain.validate).
func (s *HDKeyStore) deriveEd25519PubKeyAtIndexLocked(chainID ChainID, chain HDChain, nIndex uint32, internal bool) (HDPubKey, error) {
	template, err := ParseKeyPath(chain.KeypathTemplate)
	if err != nil {
		return HDPubKey{}, err
	}
	materialized := template.Materialize(internal)

	seed, err := s.resolveMasterSeed(chainID)
	if err != nil {
		return HDPubKey{}, err
	}

	pub, _, err := slip10deriv.DeriveEd25519AtIndex(seed, materialized.slip10String(), nIndex)
	if err != nil {
		return HDPubKey{}, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
	}

	path := materialized.AppendIndex(nIndex, true)

	k := HDPubKey{
		Version:  1,
		PubKey:   []byte(pub),
		NChild:   nIndex,
		ChainID:  chainID,
		KeyPath:  path.String(),
		Internal: internal,
	}
	return k, nil
}
