package hdkeystore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHDPubKeyWireRoundTrip(t *testing.T) {
	var chainID ChainID
	chainID[0] = 0xaa
	chainID[31] = 0x01

	k := HDPubKey{
		Version:  1,
		PubKey:   []byte{0x02, 0x01, 0x02, 0x03, 0x04},
		NChild:   42,
		ChainID:  chainID,
		KeyPath:  "m/44'/0'/0'/0/42",
		Internal: true,
	}

	encoded := EncodeHDPubKey(k)
	decoded, err := DecodeHDPubKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, k, decoded)
}

func TestHDChainWireRoundTripWithoutPubCKD(t *testing.T) {
	var chainID ChainID
	chainID[5] = 0x42

	c := HDChain{
		Version:         1,
		CreateTime:      1700000000,
		ChainID:         chainID,
		KeypathTemplate: "m/44'/0'/0'/c",
		UsePubCKD:       false,
		KeyType:         KeyTypeSecp256k1,
	}

	encoded, err := EncodeHDChain(c)
	require.NoError(t, err)
	decoded, err := DecodeHDChain(encoded)
	require.NoError(t, err)
	assert.Equal(t, c, decoded)
	assert.False(t, decoded.ExternalExtPubKey.IsPrivate())
}

func TestHDChainWireRoundTripWithPubCKDBothRoots(t *testing.T) {
	master, err := masterExtKeyFromSeed(bip32TestVector1Seed)
	require.NoError(t, err)
	account, err := master.Derive(0, true)
	require.NoError(t, err)
	external, err := account.Derive(0, false)
	require.NoError(t, err)
	externalPub, err := external.Neuter()
	require.NoError(t, err)
	internal, err := account.Derive(1, false)
	require.NoError(t, err)
	internalPub, err := internal.Neuter()
	require.NoError(t, err)

	var chainID ChainID
	chainID[0] = 0x7

	c := HDChain{
		Version:           1,
		ChainID:           chainID,
		KeypathTemplate:   "m/0'/c",
		UsePubCKD:         true,
		ExternalExtPubKey: externalPub,
		InternalExtPubKey: internalPub,
		KeyType:           KeyTypeSecp256k1,
	}

	encoded, err := EncodeHDChain(c)
	require.NoError(t, err)
	decoded, err := DecodeHDChain(encoded)
	require.NoError(t, err)

	wantExternal, err := externalPub.ECPubKey()
	require.NoError(t, err)
	gotExternal, err := decoded.ExternalExtPubKey.ECPubKey()
	require.NoError(t, err)
	assert.Equal(t, wantExternal, gotExternal)

	wantInternal, err := internalPub.ECPubKey()
	require.NoError(t, err)
	gotInternal, err := decoded.InternalExtPubKey.ECPubKey()
	require.NoError(t, err)
	assert.Equal(t, wantInternal, gotInternal)
}

// A chain may register UsePubCKD with only an external root (§3: absence
// of the internal root is indicated by an invalid public key field). The
// wire codec must round-trip that absence rather than panicking or
// failing to decode.
func TestHDChainWireRoundTripWithPubCKDNoInternalRoot(t *testing.T) {
	master, err := masterExtKeyFromSeed(bip32TestVector1Seed)
	require.NoError(t, err)
	account, err := master.Derive(0, true)
	require.NoError(t, err)
	externalPub, err := account.Neuter()
	require.NoError(t, err)

	var chainID ChainID
	chainID[0] = 0x9

	c := HDChain{
		Version:           1,
		ChainID:           chainID,
		KeypathTemplate:   "m/0'",
		UsePubCKD:         true,
		ExternalExtPubKey: externalPub,
		KeyType:           KeyTypeSecp256k1,
		// InternalExtPubKey intentionally left zero-valued (absent).
	}

	encoded, err := EncodeHDChain(c)
	require.NoError(t, err)
	decoded, err := DecodeHDChain(encoded)
	require.NoError(t, err)

	assert.False(t, decoded.InternalExtPubKey.IsPrivate())
	assert.Nil(t, decoded.InternalExtPubKey.key, "an absent internal root must decode back to an invalid key, not a usable one")

	wantExternal, err := externalPub.ECPubKey()
	require.NoError(t, err)
	gotExternal, err := decoded.ExternalExtPubKey.ECPubKey()
	require.NoError(t, err)
	assert.Equal(t, wantExternal, gotExternal)
}

func TestCompactSizeRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 0xfc, 0xfd, 0xffff, 0x10000, 0xffffffff, 0x100000000} {
		buf := putCompactSize(nil, n)
		got, consumed, err := readCompactSize(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), consumed)
		assert.Equal(t, n, got)
	}
}
