// Package coinregistry is a SLIP-44 coin-type registry, used to seed
// HDChain keypath templates ("m/44'/<cointype>'/0'/c") without hand-typing
// a coin type for every chain a caller registers.
package coinregistry

import (
	"errors"
	"fmt"
	"strings"
)

// KeyType identifies which derivation engine a coin's chain needs:
// secp256k1 chains go through hdkeystore's BIP32 engine directly and
// ed25519 chains through hdkeystore/slip10deriv. hdkeystore has no engine
// for sr25519 and rejects chains registered with that key type.
type KeyType string

const (
	KeyTypeSecp256k1 KeyType = "secp256k1"
	KeyTypeEd25519   KeyType = "ed25519"
	KeyTypeSr25519   KeyType = "sr25519"
)

// CoinMetadata is one SLIP-44 registry entry.
type CoinMetadata struct {
	Symbol        string
	Name          string
	CoinType      uint32
	MarketCapRank int
	KeyType       KeyType
}

// Validate checks that the metadata is well-formed.
func (c *CoinMetadata) Validate() error {
	if c.Symbol == "" {
		return errors.New("coinregistry: symbol cannot be empty")
	}
	if c.Symbol != strings.ToUpper(c.Symbol) {
		return errors.New("coinregistry: symbol must be uppercase")
	}
	if c.Name == "" {
		return errors.New("coinregistry: name cannot be empty")
	}
	if c.MarketCapRank <= 0 {
		return errors.New("coinregistry: marketCapRank must be positive")
	}
	switch c.KeyType {
	case KeyTypeSecp256k1, KeyTypeEd25519, KeyTypeSr25519:
	default:
		return errors.New("coinregistry: keyType must be one of secp256k1, ed25519, sr25519")
	}
	return nil
}

// KeypathTemplate returns the BIP44 chain-switch keypath template for this
// coin's account 0: "m/44'/<cointype>'/0'/c", ready to hand to
// hdkeystore.HDChain.KeypathTemplate.
func (c CoinMetadata) KeypathTemplate() string {
	return fmt.Sprintf("m/44'/%d'/0'/c", c.CoinType)
}
