// Package slip10deriv supplements the secp256k1-only BIP32 derivation
// engine in hdkeystore with SLIP-10's ed25519 variant, for chains whose
// registered curve isn't secp256k1. It derives independently of
// hdkeystore's SeedVault/ChainRegistry state machine: callers resolve the
// MasterSeed themselves (through HDKeyStore or otherwise) and pass it in.
package slip10deriv

import (
	"crypto/ed25519"
	"fmt"

	"github.com/anyproto/go-slip10"
)

// DeriveEd25519AtIndex derives the ed25519 keypair at path/index for seed,
// using SLIP-10. SLIP-10's ed25519 variant supports hardened derivation
// only, so index is always derived with the hardened bit implicitly set;
// path must already include the account-level segments (e.g.
// "m/44'/501'/0'") with the final index appended separately here.
func DeriveEd25519AtIndex(seed []byte, path string, index uint32) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	node, err := slip10.DeriveForPath(path, seed)
	if err != nil {
		return nil, nil, fmt.Errorf("slip10deriv: deriving %q: %w", path, err)
	}

	child, err := node.Derive(slip10.FirstHardenedIndex + index)
	if err != nil {
		return nil, nil, fmt.Errorf("slip10deriv: deriving index %d under %q: %w", index, path, err)
	}

	pub, priv := child.Keypair()
	if pub == nil {
		return nil, nil, fmt.Errorf("slip10deriv: keypair generation failed for %q/%d", path, index)
	}
	return pub, priv, nil
}

// IsValidPath reports whether path is a syntactically valid SLIP-10
// derivation path (all-hardened, "m" followed by decimal segments).
func IsValidPath(path string) bool {
	return slip10.IsValidPath(path)
}
