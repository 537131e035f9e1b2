// Package walletfile persists the wire-format blobs produced by
// hdkeystore (HDChain and HDPubKey) to disk, external to the CORE (which
// performs no I/O of its own).
package walletfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/hdvault/internal/hdkeystore"
)

// AtomicWriteFile writes data to filename atomically via a
// temp-file-then-rename in the same directory, so a crash mid-write never
// leaves a partially-written file in filename's place.
func AtomicWriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("walletfile: creating directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".hdvault-tmp-*")
	if err != nil {
		return fmt.Errorf("walletfile: creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("walletfile: writing data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("walletfile: syncing to disk: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		return fmt.Errorf("walletfile: setting permissions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("walletfile: closing temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Rename(tmpPath, filename); err != nil {
		return fmt.Errorf("walletfile: renaming temp file: %w", err)
	}

	return nil
}

// SaveHDChain atomically writes an HDChain's wire-format encoding to path.
func SaveHDChain(path string, chain hdkeystore.HDChain) error {
	data, err := hdkeystore.EncodeHDChain(chain)
	if err != nil {
		return fmt.Errorf("walletfile: encoding chain: %w", err)
	}
	return AtomicWriteFile(path, data, 0600)
}

// LoadHDChain reads and decodes an HDChain previously written by SaveHDChain.
func LoadHDChain(path string) (hdkeystore.HDChain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hdkeystore.HDChain{}, fmt.Errorf("walletfile: reading chain file: %w", err)
	}
	return hdkeystore.DecodeHDChain(data)
}

// SaveHDPubKey atomically writes an HDPubKey's wire-format encoding to path.
func SaveHDPubKey(path string, key hdkeystore.HDPubKey) error {
	return AtomicWriteFile(path, hdkeystore.EncodeHDPubKey(key), 0600)
}

// LoadHDPubKey reads and decodes an HDPubKey previously written by SaveHDPubKey.
func LoadHDPubKey(path string) (hdkeystore.HDPubKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hdkeystore.HDPubKey{}, fmt.Errorf("walletfile: reading pubkey file: %w", err)
	}
	return hdkeystore.DecodeHDPubKey(data)
}
