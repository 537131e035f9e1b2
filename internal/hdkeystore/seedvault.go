package hdkeystore

import "fmt"

// MasterSeed is the raw seed material for one chain: either BIP39-style
// entropy or, when exactly BIP32ExtKeySize bytes long, a pre-encoded
// extended private key (see masterExtKeyFromSeed).
type MasterSeed []byte

// CipherBlob is an opaque encrypted seed, produced and consumed only by an
// EncryptionCollaborator. The vault never interprets its contents.
type CipherBlob []byte

// EncryptionCollaborator is the external encryption/decryption and
// lock-state authority the vault delegates to. It owns whatever KDF,
// cipher, and unlock/lock state machine it likes; the vault only ever
// calls through this interface, never reimplementing crypto itself.
type EncryptionCollaborator interface {
	// IsCrypted reports whether the collaborator has encryption
	// parameters established (a passphrase has been set), independent of
	// whether it is currently locked or unlocked.
	IsCrypted() bool

	// EncryptSeed encrypts plain under whatever key material the
	// collaborator holds for chainID. Fails with ErrLocked if the
	// collaborator cannot currently access that key material.
	EncryptSeed(plain MasterSeed, chainID ChainID) (CipherBlob, error)

	// DecryptSeed reverses EncryptSeed. Fails with ErrLocked if the
	// collaborator is locked.
	DecryptSeed(blob CipherBlob, chainID ChainID) (MasterSeed, error)
}

// SeedVault holds master seed material for every registered chain, either
// as plaintext or, once encrypted, as opaque CipherBlobs. The Plaintext to
// Encrypted transition is one-way: EncryptSeeds is the only way to make
// it, and it cannot be undone. Like ChainRegistry and PubKeyCatalog, it
// performs no locking of its own — the owning HDKeyStore serializes all
// access.
type SeedVault struct {
	crypted    bool
	plaintext  map[ChainID]MasterSeed
	cryptedMap map[ChainID]CipherBlob
}

// NewSeedVault returns an empty, Plaintext-state SeedVault.
func NewSeedVault() *SeedVault {
	return &SeedVault{
		plaintext:  make(map[ChainID]MasterSeed),
		cryptedMap: make(map[ChainID]CipherBlob),
	}
}

// IsCrypted reports whether the vault has made the one-way transition to
// the Encrypted state.
func (v *SeedVault) IsCrypted() bool {
	return v.crypted
}

// AddMasterSeed stores seed in plaintext for chainID. Fails once the vault
// has transitioned to Encrypted: from that point on, only
// AddCryptedMasterSeed may add new seed material.
func (v *SeedVault) AddMasterSeed(chainID ChainID, seed MasterSeed) error {
	if v.crypted {
		return fmt.Errorf("hdkeystore: seed vault already encrypted, cannot add plaintext seed for chain %s", chainID)
	}
	v.plaintext[chainID] = seed
	return nil
}

// AddCryptedMasterSeed stores an already-encrypted blob for chainID.
// Requires the vault to already be in the Encrypted state.
func (v *SeedVault) AddCryptedMasterSeed(chainID ChainID, blob CipherBlob) error {
	if !v.crypted {
		return fmt.Errorf("%w: cannot add a crypted seed before EncryptSeeds has run", ErrNotCrypted)
	}
	v.cryptedMap[chainID] = blob
	return nil
}

// GetMasterSeed returns the plaintext seed for chainID. Once the vault is
// encrypted, plaintext entries are cleared by EncryptSeeds, so this will
// return ErrUnknownChain for any chain whose seed now lives only as a
// CipherBlob — callers should check IsCrypted first and route to
// GetCryptedMasterSeed plus the encryption collaborator instead.
func (v *SeedVault) GetMasterSeed(chainID ChainID) (MasterSeed, error) {
	seed, ok := v.plaintext[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: no plaintext seed for chain %s", ErrUnknownChain, chainID)
	}
	return seed, nil
}

// GetCryptedMasterSeed returns the CipherBlob stored for chainID. Requires
// the vault to be in the Encrypted state.
func (v *SeedVault) GetCryptedMasterSeed(chainID ChainID) (CipherBlob, error) {
	if !v.crypted {
		return nil, fmt.Errorf("%w: vault has no crypted seeds yet", ErrNotCrypted)
	}
	blob, ok := v.cryptedMap[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: no crypted seed for chain %s", ErrUnknownChain, chainID)
	}
	return blob, nil
}

// EncryptSeeds performs (or resumes) the one-way Plaintext-to-Encrypted
// transition: every plaintext seed is encrypted via collaborator and
// inserted into the crypted map BEFORE being removed from the plaintext
// map, so a crash or error mid-loop leaves every processed chain
// recoverable either from its still-present plaintext entry or its
// already-inserted crypted entry, and re-invoking EncryptSeeds on the
// same vault safely continues from wherever it stopped.
func (v *SeedVault) EncryptSeeds(collaborator EncryptionCollaborator) error {
	if !collaborator.IsCrypted() {
		return fmt.Errorf("%w: collaborator has no encryption parameters established", ErrLocked)
	}

	v.crypted = true

	for chainID, seed := range v.plaintext {
		if _, already := v.cryptedMap[chainID]; already {
			delete(v.plaintext, chainID)
			continue
		}

		blob, err := collaborator.EncryptSeed(seed, chainID)
		if err != nil {
			return fmt.Errorf("hdkeystore: encrypting seed for chain %s: %w", chainID, err)
		}
		v.cryptedMap[chainID] = blob
		delete(v.plaintext, chainID)
	}

	return nil
}

// GetAvailableChainIDs returns every ChainID that currently has seed
// material, whether plaintext or crypted.
func (v *SeedVault) GetAvailableChainIDs() []ChainID {
	ids := make([]ChainID, 0, len(v.plaintext)+len(v.cryptedMap))
	for id := range v.plaintext {
		ids = append(ids, id)
	}
	for id := range v.cryptedMap {
		ids = append(ids, id)
	}
	return ids
}
