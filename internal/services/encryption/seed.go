// Package encryption implements hdkeystore.EncryptionCollaborator: Argon2id
// key derivation over AES-256-GCM, with a sliding-window limiter throttling
// repeated failed decryption attempts per chain.
package encryption

import "errors"

// EncryptedSeed is the on-the-wire form of one chain's encrypted master
// seed: everything needed to re-derive the AES key and authenticate the
// ciphertext, given the right passphrase.
type EncryptedSeed struct {
	Salt          []byte
	Nonce         []byte
	Ciphertext    []byte // includes the 16-byte GCM authentication tag
	Argon2Time    uint32
	Argon2Memory  uint32
	Argon2Threads uint8
	Version       uint8
}

// ValidateArgon2Params rejects parameter choices weak enough to undermine
// the KDF, whatever their source (a crafted blob, a misconfigured caller).
func ValidateArgon2Params(time, memory uint32, threads uint8) error {
	if time < 3 || time > 10 {
		return errors.New("encryption: argon2 time must be between 3 and 10")
	}
	if memory < 65536 {
		return errors.New("encryption: argon2 memory must be at least 64 MiB (65536 KiB)")
	}
	if threads == 0 || threads > 16 {
		return errors.New("encryption: argon2 threads must be between 1 and 16")
	}
	return nil
}
