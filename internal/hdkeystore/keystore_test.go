package hdkeystore

import (
	"crypto/ed25519"
	"errors"
	"path/filepath"
	"testing"

	"github.com/anyproto/go-slip10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/hdvault/internal/services/audit"
)

// fakeBaseKeyStore is a trivial BaseKeyStore fallthrough for tests.
type fakeBaseKeyStore struct {
	keys map[KeyID][]byte // KeyID -> private key bytes
	pubs map[KeyID][]byte
}

func newFakeBaseKeyStore() *fakeBaseKeyStore {
	return &fakeBaseKeyStore{keys: map[KeyID][]byte{}, pubs: map[KeyID][]byte{}}
}

func (f *fakeBaseKeyStore) HaveKey(id KeyID) bool { _, ok := f.pubs[id]; return ok }

func (f *fakeBaseKeyStore) GetKey(id KeyID) ([]byte, error) {
	if k, ok := f.keys[id]; ok {
		return k, nil
	}
	return nil, ErrUnknownKey
}

func (f *fakeBaseKeyStore) GetPubKey(id KeyID) ([]byte, error) {
	if p, ok := f.pubs[id]; ok {
		return p, nil
	}
	return nil, ErrUnknownKey
}

func setupChain(t *testing.T, s *HDKeyStore, seed []byte, template string) ChainID {
	t.Helper()

	master, err := masterExtKeyFromSeed(seed)
	require.NoError(t, err)
	pub, err := master.ECPubKey()
	require.NoError(t, err)
	chainID := NewChainIDFromExtPubKey(pub, master.ChainCode())

	require.NoError(t, s.AddChain(HDChain{Version: 1, ChainID: chainID, KeypathTemplate: template}))
	require.NoError(t, s.AddMasterSeed(chainID, MasterSeed(seed)))
	return chainID
}

func TestHDKeyStoreDeriveAndGetKeyRoundTrip(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/44'/0'/0'/c")

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, s.GetNextChildIndex(chainID, false), false)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), derived.NChild)
	assert.Equal(t, "m/44'/0'/0'/0/0", derived.KeyPath)

	id := NewKeyID(derived.PubKey)
	assert.False(t, s.HaveKey(id), "DeriveHDPubKeyAtIndex must not insert into the catalog on its own")
	_, err = s.LoadHDPubKey(derived)
	require.NoError(t, err)
	assert.True(t, s.HaveKey(id))

	pub, err := s.GetPubKey(id)
	require.NoError(t, err)
	assert.Equal(t, derived.PubKey, pub)

	priv, err := s.GetKey(id)
	require.NoError(t, err)
	assert.Len(t, priv, 32)
}

func TestHDKeyStoreDeriveFillsGapsAcrossCalls(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/44'/0'/0'/c")

	first, err := s.DeriveHDPubKeyAtIndex(chainID, s.GetNextChildIndex(chainID, false), false)
	require.NoError(t, err)
	_, err = s.LoadHDPubKey(first)
	require.NoError(t, err)

	second, err := s.DeriveHDPubKeyAtIndex(chainID, s.GetNextChildIndex(chainID, false), false)
	require.NoError(t, err)
	_, err = s.LoadHDPubKey(second)
	require.NoError(t, err)

	assert.Equal(t, uint32(0), first.NChild)
	assert.Equal(t, uint32(1), second.NChild)
	assert.Equal(t, uint32(2), s.GetNextChildIndex(chainID, false))
}

func TestHDKeyStoreDeriveDiscardsSpeculativeDerivation(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/44'/0'/0'/c")

	_, err := s.DeriveHDPubKeyAtIndex(chainID, 0, false)
	require.NoError(t, err)

	// Never loaded, so the index is still free on a later call.
	assert.Equal(t, uint32(0), s.GetNextChildIndex(chainID, false))
}

func TestHDKeyStoreDeriveIndexExhausted(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/44'/0'/0'/c")

	_, err := s.DeriveHDPubKeyAtIndex(chainID, HardenedKeyStart, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexExhausted))

	_, err = s.DeriveHDPubKeyAtIndex(chainID, HardenedKeyStart-1, false)
	require.NoError(t, err)
}

func TestHDKeyStoreUnknownChainNoPartialInsertion(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)

	_, err := s.DeriveHDPubKeyAtIndex(newTestChainID(42), 0, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownChain))
	assert.Equal(t, uint32(0), s.GetNextChildIndex(newTestChainID(42), false))
}

func TestHDKeyStoreGetKeyFailsWhenLocked(t *testing.T) {
	collaborator := &fakeCollaborator{crypted: true}
	s := NewHDKeyStore(collaborator, nil, nil)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/44'/0'/0'/c")

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, 0, false)
	require.NoError(t, err)
	_, err = s.LoadHDPubKey(derived)
	require.NoError(t, err)

	require.NoError(t, s.EncryptSeeds())

	collaborator.locked = true
	id := NewKeyID(derived.PubKey)
	_, err = s.GetKey(id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
}

func TestHDKeyStoreGetKeyWorksAfterUnlock(t *testing.T) {
	collaborator := &fakeCollaborator{crypted: true}
	s := NewHDKeyStore(collaborator, nil, nil)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/44'/0'/0'/c")

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, 0, false)
	require.NoError(t, err)
	_, err = s.LoadHDPubKey(derived)
	require.NoError(t, err)
	require.NoError(t, s.EncryptSeeds())

	collaborator.locked = true
	id := NewKeyID(derived.PubKey)
	_, err = s.GetKey(id)
	require.Error(t, err)

	collaborator.locked = false
	priv, err := s.GetKey(id)
	require.NoError(t, err)
	assert.Len(t, priv, 32)
}

func TestHDKeyStorePubCKDMatchesPrivateDerivation(t *testing.T) {
	master, err := masterExtKeyFromSeed(bip32TestVector1Seed)
	require.NoError(t, err)
	account, err := master.Derive(0, true) // m/0'
	require.NoError(t, err)
	externalPub, err := account.Neuter()
	require.NoError(t, err)

	chainID := NewChainIDFromExtPubKey(func() []byte { p, _ := master.ECPubKey(); return p }(), master.ChainCode())

	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	require.NoError(t, s.AddChain(HDChain{
		ChainID:           chainID,
		KeypathTemplate:   "m/0'", // already materialized, no chain-switch branch
		UsePubCKD:         true,
		ExternalExtPubKey: externalPub,
	}))
	require.NoError(t, s.AddMasterSeed(chainID, MasterSeed(bip32TestVector1Seed)))

	viaPubCKD, err := s.DeriveHDPubKeyAtIndex(chainID, 0, false)
	require.NoError(t, err)

	expectedChild, err := account.Derive(0, false)
	require.NoError(t, err)
	expectedPub, err := expectedChild.ECPubKey()
	require.NoError(t, err)

	assert.Equal(t, expectedPub, viaPubCKD.PubKey)
}

// When a chain registers UsePubCKD with only an external root (no
// internal root), deriving on the internal branch has no neutered root
// to use and falls back to the full private path from the seed, using a
// hardened final segment. This is chosen automatically by the store, not
// requested by the caller — documented, not accidental.
func TestDeriveHDPubKeyAtIndex_InternalFallbackIsHardened(t *testing.T) {
	master, err := masterExtKeyFromSeed(bip32TestVector1Seed)
	require.NoError(t, err)
	account, err := master.Derive(0, true) // m/0'
	require.NoError(t, err)
	externalPub, err := account.Neuter()
	require.NoError(t, err)

	chainID := NewChainIDFromExtPubKey(func() []byte { p, _ := master.ECPubKey(); return p }(), master.ChainCode())

	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	require.NoError(t, s.AddChain(HDChain{
		ChainID:           chainID,
		KeypathTemplate:   "m/0'",
		UsePubCKD:         true,
		ExternalExtPubKey: externalPub,
		// InternalExtPubKey intentionally left zero-valued.
	}))
	require.NoError(t, s.AddMasterSeed(chainID, MasterSeed(bip32TestVector1Seed)))

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, 0, true)
	require.NoError(t, err)
	assert.Equal(t, "m/0'/0'", derived.KeyPath)

	expectedChild, err := account.Derive(0, true)
	require.NoError(t, err)
	expectedPub, err := expectedChild.ECPubKey()
	require.NoError(t, err)
	assert.Equal(t, expectedPub, derived.PubKey)

	// same scenario without a passphrase/seed available fails closed
	// rather than silently falling through to PubCKD.
	lockedCollaborator := &fakeCollaborator{crypted: true}
	locked := NewHDKeyStore(lockedCollaborator, nil, nil)
	require.NoError(t, locked.AddChain(HDChain{
		ChainID:           chainID,
		KeypathTemplate:   "m/0'",
		UsePubCKD:         true,
		ExternalExtPubKey: externalPub,
	}))
	require.NoError(t, locked.AddMasterSeed(chainID, MasterSeed(bip32TestVector1Seed)))
	require.NoError(t, locked.EncryptSeeds())
	lockedCollaborator.locked = true

	_, err = locked.DeriveHDPubKeyAtIndex(chainID, 0, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
}

// spec §8 scenario 1: template "m/0'/c", external branch, index 0 ->
// materialized keypath "m/0'/0/0", matching BIP32 test vector 1's
// m/0'/0/0, non-hardened despite there being no public-CKD root at all.
func TestHDKeyStoreScenario1ExternalSeedDerivedNonHardened(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/0'/c")

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, 0, false)
	require.NoError(t, err)
	assert.Equal(t, "m/0'/0/0", derived.KeyPath)
	assert.Equal(t, uint32(0), derived.NChild)
	assert.False(t, derived.Internal)

	master, err := masterExtKeyFromSeed(bip32TestVector1Seed)
	require.NoError(t, err)
	account, err := master.Derive(0, true)
	require.NoError(t, err)
	external, err := account.Derive(0, false)
	require.NoError(t, err)
	expectedLeaf, err := external.Derive(0, false)
	require.NoError(t, err)
	expectedPub, err := expectedLeaf.ECPubKey()
	require.NoError(t, err)
	assert.Equal(t, expectedPub, derived.PubKey)
}

// spec §8 scenario 2: same chain, internal branch, index 5 ->
// materialized keypath "m/0'/1/5".
func TestHDKeyStoreScenario2InternalSeedDerivedNonHardened(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/0'/c")

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, 5, true)
	require.NoError(t, err)
	assert.Equal(t, "m/0'/1/5", derived.KeyPath)
	assert.True(t, derived.Internal)
}

// spec §8 scenario 6: a template with no chain-switch token and a valid
// external root uses public CKD straight off that root.
func TestHDKeyStoreScenario6TemplateWithoutChainSwitchUsesPubCKD(t *testing.T) {
	master, err := masterExtKeyFromSeed(bip32TestVector1Seed)
	require.NoError(t, err)
	account, err := master.Derive(44, true)
	require.NoError(t, err)
	account, err = account.Derive(0, true)
	require.NoError(t, err)
	account, err = account.Derive(0, true)
	require.NoError(t, err)
	externalPub, err := account.Neuter()
	require.NoError(t, err)

	chainID := NewChainIDFromExtPubKey(func() []byte { p, _ := master.ECPubKey(); return p }(), master.ChainCode())

	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	require.NoError(t, s.AddChain(HDChain{
		ChainID:           chainID,
		KeypathTemplate:   "m/44'/0'/0'",
		UsePubCKD:         true,
		ExternalExtPubKey: externalPub,
	}))
	require.NoError(t, s.AddMasterSeed(chainID, MasterSeed(bip32TestVector1Seed)))

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, 7, false)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/0'/0'/7", derived.KeyPath)

	expectedChild, err := account.Derive(7, false)
	require.NoError(t, err)
	expectedPub, err := expectedChild.ECPubKey()
	require.NoError(t, err)
	assert.Equal(t, expectedPub, derived.PubKey)
}

func TestHDKeyStoreLoadHDPubKey(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/44'/0'/0'/c")

	k := HDPubKey{Version: 1, PubKey: []byte{0x02, 0x01, 0x02, 0x03}, NChild: 5, ChainID: chainID, KeyPath: "m/44'/0'/0'/0/5"}
	id, err := s.LoadHDPubKey(k)
	require.NoError(t, err)
	assert.True(t, s.HaveKey(id))
}

func TestHDKeyStoreBaseKeyStoreFallthrough(t *testing.T) {
	base := newFakeBaseKeyStore()
	var legacyID KeyID
	legacyID[0] = 0x7

	base.pubs[legacyID] = []byte{0x02, 0xaa}
	base.keys[legacyID] = []byte{0xbb}

	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, base, nil)

	assert.True(t, s.HaveKey(legacyID))
	pub, err := s.GetPubKey(legacyID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0xaa}, pub)

	priv, err := s.GetKey(legacyID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xbb}, priv)
}

func TestHDKeyStoreGetKeyUnknownKey(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)

	var id KeyID
	id[0] = 0xee
	_, err := s.GetKey(id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKey))
}

// Every mutating or key-revealing façade operation emits one audit record
// when a logger is configured (§13.2), and emits nothing when it isn't
// (the nil case is exercised implicitly by every other test in this file).
func TestHDKeyStoreAuditLogRecordsMutatingOps(t *testing.T) {
	logger, err := audit.NewLogger(filepath.Join(t.TempDir(), "audit.ndjson"))
	require.NoError(t, err)

	collaborator := &fakeCollaborator{crypted: true}
	s := NewHDKeyStore(collaborator, nil, logger)
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/44'/0'/0'/c")

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, 0, false)
	require.NoError(t, err)
	id, err := s.LoadHDPubKey(derived)
	require.NoError(t, err)
	require.NoError(t, s.EncryptSeeds())
	_, err = s.GetKey(id)
	require.NoError(t, err)

	err = s.AddMasterSeed(newTestChainID(99), MasterSeed("bogus"))
	assert.Error(t, err)

	entries, err := logger.ReadLog()
	require.NoError(t, err)

	byOp := map[string][]audit.LogEntry{}
	for _, e := range entries {
		byOp[e.Operation] = append(byOp[e.Operation], e)
	}

	require.Len(t, byOp[audit.OpChainAdd], 1)
	assert.Equal(t, audit.StatusSuccess, byOp[audit.OpChainAdd][0].Status)

	require.Len(t, byOp[audit.OpSeedAdd], 2) // setupChain's, plus the failing one above
	assert.Equal(t, audit.StatusSuccess, byOp[audit.OpSeedAdd][0].Status)
	assert.Equal(t, audit.StatusFailure, byOp[audit.OpSeedAdd][1].Status)
	assert.NotEmpty(t, byOp[audit.OpSeedAdd][1].FailureReason)

	require.Len(t, byOp[audit.OpPubKeyDerived], 1)
	assert.Equal(t, audit.StatusSuccess, byOp[audit.OpPubKeyDerived][0].Status)

	require.Len(t, byOp[audit.OpPubKeyLoaded], 1)
	require.Len(t, byOp[audit.OpSeedsEncrypted], 1)
	require.Len(t, byOp[audit.OpKeyAccess], 1)

	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
	}
}

func TestHDKeyStoreAuditLogNoopWithoutLogger(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)
	// Must not panic with a nil logger.
	chainID := setupChain(t, s, bip32TestVector1Seed, "m/44'/0'/0'/c")
	_, err := s.DeriveHDPubKeyAtIndex(chainID, 0, false)
	require.NoError(t, err)
}

// spec §13.1: a chain registered with KeyType ed25519 derives through
// slip10deriv instead of the secp256k1 engine, matching go-slip10 used
// directly.
func TestHDKeyStoreEd25519DerivePubKeyMatchesSlip10(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)

	var chainID ChainID
	chainID[0] = 0x51

	require.NoError(t, s.AddChain(HDChain{
		Version:         1,
		ChainID:         chainID,
		KeypathTemplate: "m/44'/501'/0'/c",
		KeyType:         KeyTypeEd25519,
	}))
	require.NoError(t, s.AddMasterSeed(chainID, MasterSeed(bip32TestVector1Seed)))

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, 3, false)
	require.NoError(t, err)
	assert.Equal(t, "m/44'/501'/0'/0/3'", derived.KeyPath)
	assert.Len(t, derived.PubKey, ed25519.PublicKeySize)

	node, err := slip10.DeriveForPath("m/44'/501'/0'/0'", bip32TestVector1Seed)
	require.NoError(t, err)
	child, err := node.Derive(slip10.FirstHardenedIndex + 3)
	require.NoError(t, err)
	wantPub, _ := child.Keypair()
	assert.Equal(t, []byte(wantPub), derived.PubKey)
}

func TestHDKeyStoreEd25519GetKeyRoundTrip(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)

	var chainID ChainID
	chainID[0] = 0x52

	require.NoError(t, s.AddChain(HDChain{
		Version:         1,
		ChainID:         chainID,
		KeypathTemplate: "m/44'/501'/0'/c",
		KeyType:         KeyTypeEd25519,
	}))
	require.NoError(t, s.AddMasterSeed(chainID, MasterSeed(bip32TestVector1Seed)))

	derived, err := s.DeriveHDPubKeyAtIndex(chainID, 1, true)
	require.NoError(t, err)
	id, err := s.LoadHDPubKey(derived)
	require.NoError(t, err)

	priv, err := s.GetKey(id)
	require.NoError(t, err)
	require.Len(t, priv, ed25519.PrivateKeySize)
	assert.Equal(t, derived.PubKey, []byte(ed25519.PrivateKey(priv).Public().(ed25519.PublicKey)))
}

func TestHDChainValidateRejectsUsePubCKDWithEd25519(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)

	master, err := masterExtKeyFromSeed(bip32TestVector1Seed)
	require.NoError(t, err)
	externalPub, err := master.Neuter()
	require.NoError(t, err)

	err = s.AddChain(HDChain{
		ChainID:           newTestChainID(7),
		KeypathTemplate:   "m/44'/501'/0'/c",
		KeyType:           KeyTypeEd25519,
		UsePubCKD:         true,
		ExternalExtPubKey: externalPub,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKeyType))
}

func TestHDChainValidateRejectsUnrecognizedKeyType(t *testing.T) {
	collaborator := &fakeCollaborator{}
	s := NewHDKeyStore(collaborator, nil, nil)

	err := s.AddChain(HDChain{
		ChainID:         newTestChainID(8),
		KeypathTemplate: "m/44'/0'/0'/c",
		KeyType:         KeyType("sr25519"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKeyType))
}
