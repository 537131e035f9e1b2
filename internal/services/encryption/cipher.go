package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters (OWASP-recommended minimums for interactive use).
	Argon2Time    = 4
	Argon2Memory  = 256 * 1024 // KiB
	Argon2Threads = 4
	Argon2KeyLen  = 32
	Argon2SaltLen = 16
	AESNonceLen   = 12
)

// ClearBytes zeros b in place, guarding against the compiler eliding the
// write because b is about to go out of scope.
func ClearBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// encryptSeedBytes encrypts seed under password using Argon2id + AES-256-GCM.
func encryptSeedBytes(seed []byte, password []byte) (*EncryptedSeed, error) {
	salt := make([]byte, Argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("encryption: generating salt: %w", err)
	}

	key := argon2.IDKey(password, salt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)
	defer ClearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryption: creating GCM: %w", err)
	}

	nonce := make([]byte, AESNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encryption: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, seed, nil)

	return &EncryptedSeed{
		Salt:          salt,
		Nonce:         nonce,
		Ciphertext:    ciphertext,
		Argon2Time:    Argon2Time,
		Argon2Memory:  Argon2Memory,
		Argon2Threads: Argon2Threads,
		Version:       1,
	}, nil
}

// decryptSeedBytes reverses encryptSeedBytes.
func decryptSeedBytes(enc *EncryptedSeed, password []byte) ([]byte, error) {
	if enc == nil {
		return nil, errors.New("encryption: encrypted seed is nil")
	}
	if len(enc.Salt) != Argon2SaltLen {
		return nil, fmt.Errorf("encryption: invalid salt length: got %d, want %d", len(enc.Salt), Argon2SaltLen)
	}
	if len(enc.Nonce) != AESNonceLen {
		return nil, fmt.Errorf("encryption: invalid nonce length: got %d, want %d", len(enc.Nonce), AESNonceLen)
	}

	key := argon2.IDKey(password, enc.Salt, enc.Argon2Time, enc.Argon2Memory, enc.Argon2Threads, Argon2KeyLen)
	defer ClearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryption: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryption: creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, enc.Nonce, enc.Ciphertext, nil)
	if err != nil {
		return nil, errors.New("encryption: authentication failed: wrong passphrase or corrupted data")
	}
	return plaintext, nil
}

// serializeEncryptedSeed packs an EncryptedSeed into a flat byte slice:
// version:1 · time:4 · memory:4 · threads:1 · salt:16 · nonce:12 · ciphertext.
func serializeEncryptedSeed(enc *EncryptedSeed) []byte {
	size := 1 + 4 + 4 + 1 + len(enc.Salt) + len(enc.Nonce) + len(enc.Ciphertext)
	out := make([]byte, size)

	offset := 0
	out[offset] = enc.Version
	offset++
	binary.BigEndian.PutUint32(out[offset:], enc.Argon2Time)
	offset += 4
	binary.BigEndian.PutUint32(out[offset:], enc.Argon2Memory)
	offset += 4
	out[offset] = enc.Argon2Threads
	offset++
	copy(out[offset:], enc.Salt)
	offset += len(enc.Salt)
	copy(out[offset:], enc.Nonce)
	offset += len(enc.Nonce)
	copy(out[offset:], enc.Ciphertext)

	return out
}

// deserializeEncryptedSeed reverses serializeEncryptedSeed.
func deserializeEncryptedSeed(data []byte) (*EncryptedSeed, error) {
	minSize := 1 + 4 + 4 + 1 + Argon2SaltLen + AESNonceLen
	if len(data) < minSize {
		return nil, fmt.Errorf("encryption: encrypted seed too short: %d < %d", len(data), minSize)
	}

	offset := 0
	version := data[offset]
	offset++
	argon2Time := binary.BigEndian.Uint32(data[offset:])
	offset += 4
	argon2Memory := binary.BigEndian.Uint32(data[offset:])
	offset += 4
	argon2Threads := data[offset]
	offset++

	salt := make([]byte, Argon2SaltLen)
	copy(salt, data[offset:offset+Argon2SaltLen])
	offset += Argon2SaltLen

	nonce := make([]byte, AESNonceLen)
	copy(nonce, data[offset:offset+AESNonceLen])
	offset += AESNonceLen

	ciphertext := make([]byte, len(data)-offset)
	copy(ciphertext, data[offset:])

	return &EncryptedSeed{
		Salt:          salt,
		Nonce:         nonce,
		Ciphertext:    ciphertext,
		Argon2Time:    argon2Time,
		Argon2Memory:  argon2Memory,
		Argon2Threads: argon2Threads,
		Version:       version,
	}, nil
}
