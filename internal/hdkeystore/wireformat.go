package hdkeystore

import (
	"encoding/binary"
	"fmt"
)

// BIP32ExtKeySize is the size in bytes of a raw (non-base58, no version
// prefix) BIP32 extended key: depth(1) + parentFingerprint(4) +
// childNumber(4) + chainCode(32) + keyData(33, privkeys zero-padded to the
// left) = 74 bytes. This matches Bitcoin Core's BIP32_EXTKEY_SIZE; a
// MasterSeed of exactly this length is treated as a pre-encoded extended
// private key rather than raw entropy.
const BIP32ExtKeySize = 74

// rawExtKey is the decoded form of a BIP32ExtKeySize-byte buffer, common
// to both the private and public encodings.
type rawExtKey struct {
	depth             uint8
	parentFingerprint [4]byte
	childNumber       uint32
	chainCode         [32]byte
	keyData           [33]byte // private: 0x00 || 32-byte scalar; public: 33-byte compressed point
}

// decodeRawExtKey unpacks a BIP32ExtKeySize-byte buffer into its fields.
func decodeRawExtKey(buf []byte) (rawExtKey, error) {
	if len(buf) != BIP32ExtKeySize {
		return rawExtKey{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrSeedEncodingInvalid, BIP32ExtKeySize, len(buf))
	}

	var k rawExtKey
	k.depth = buf[0]
	copy(k.parentFingerprint[:], buf[1:5])
	k.childNumber = binary.BigEndian.Uint32(buf[5:9])
	copy(k.chainCode[:], buf[9:41])
	copy(k.keyData[:], buf[41:74])
	return k, nil
}

// encodeRawExtKey packs fields into a BIP32ExtKeySize-byte buffer.
func encodeRawExtKey(k rawExtKey) []byte {
	buf := make([]byte, BIP32ExtKeySize)
	buf[0] = k.depth
	copy(buf[1:5], k.parentFingerprint[:])
	binary.BigEndian.PutUint32(buf[5:9], k.childNumber)
	copy(buf[9:41], k.chainCode[:])
	copy(buf[41:74], k.keyData[:])
	return buf
}

// --- compact-size varint: variable-length fields are prefixed by a
// compact-size unsigned integer, matching Bitcoin Core's wire convention ---

// putCompactSize appends a Bitcoin-style CompactSize-encoded length to buf.
func putCompactSize(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		tmp := make([]byte, 2)
		binary.LittleEndian.PutUint16(tmp, uint16(n))
		return append(append(buf, 0xfd), tmp...)
	case n <= 0xffffffff:
		tmp := make([]byte, 4)
		binary.LittleEndian.PutUint32(tmp, uint32(n))
		return append(append(buf, 0xfe), tmp...)
	default:
		tmp := make([]byte, 8)
		binary.LittleEndian.PutUint64(tmp, n)
		return append(append(buf, 0xff), tmp...)
	}
}

// readCompactSize reads a CompactSize-encoded length from buf, returning
// the value and the number of bytes consumed.
func readCompactSize(buf []byte) (uint64, int, error) {
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("compact-size: empty buffer")
	}

	switch prefix := buf[0]; {
	case prefix < 0xfd:
		return uint64(prefix), 1, nil
	case prefix == 0xfd:
		if len(buf) < 3 {
			return 0, 0, fmt.Errorf("compact-size: truncated uint16")
		}
		return uint64(binary.LittleEndian.Uint16(buf[1:3])), 3, nil
	case prefix == 0xfe:
		if len(buf) < 5 {
			return 0, 0, fmt.Errorf("compact-size: truncated uint32")
		}
		return uint64(binary.LittleEndian.Uint32(buf[1:5])), 5, nil
	default:
		if len(buf) < 9 {
			return 0, 0, fmt.Errorf("compact-size: truncated uint64")
		}
		return binary.LittleEndian.Uint64(buf[1:9]), 9, nil
	}
}

func putVarBytes(buf []byte, data []byte) []byte {
	buf = putCompactSize(buf, uint64(len(data)))
	return append(buf, data...)
}

func readVarBytes(buf []byte) ([]byte, []byte, error) {
	n, consumed, err := readCompactSize(buf)
	if err != nil {
		return nil, nil, err
	}
	buf = buf[consumed:]
	if uint64(len(buf)) < n {
		return nil, nil, fmt.Errorf("var-bytes: truncated (want %d, have %d)", n, len(buf))
	}
	return buf[:n], buf[n:], nil
}

func putVarString(buf []byte, s string) []byte {
	return putVarBytes(buf, []byte(s))
}

func readVarString(buf []byte) (string, []byte, error) {
	b, rest, err := readVarBytes(buf)
	if err != nil {
		return "", nil, err
	}
	return string(b), rest, nil
}

// EncodeHDPubKey serializes an HDPubKey using the "HDPubKey v1" wire
// layout: version:int32 · pubkey:varlen-bytes · nChild:uint32 ·
// chainID:32bytes · keypath:varlen-string · internal:uint8. Integers are
// little-endian.
func EncodeHDPubKey(k HDPubKey) []byte {
	buf := make([]byte, 0, 4+1+len(k.PubKey)+4+32+1+len(k.KeyPath)+1)

	tmp4 := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp4, uint32(k.Version))
	buf = append(buf, tmp4...)

	buf = putVarBytes(buf, k.PubKey)

	binary.LittleEndian.PutUint32(tmp4, k.NChild)
	buf = append(buf, tmp4...)

	buf = append(buf, k.ChainID[:]...)
	buf = putVarString(buf, k.KeyPath)

	var internalByte byte
	if k.Internal {
		internalByte = 1
	}
	buf = append(buf, internalByte)

	return buf
}

// DecodeHDPubKey deserializes an HDPubKey wire-encoded by EncodeHDPubKey.
func DecodeHDPubKey(buf []byte) (HDPubKey, error) {
	if len(buf) < 4 {
		return HDPubKey{}, fmt.Errorf("hdpubkey: truncated version")
	}
	var k HDPubKey
	k.Version = int32(binary.LittleEndian.Uint32(buf[:4]))
	buf = buf[4:]

	pubKey, buf, err := readVarBytes(buf)
	if err != nil {
		return HDPubKey{}, fmt.Errorf("hdpubkey: pubkey: %w", err)
	}
	k.PubKey = append([]byte(nil), pubKey...)

	if len(buf) < 4 {
		return HDPubKey{}, fmt.Errorf("hdpubkey: truncated nChild")
	}
	k.NChild = binary.LittleEndian.Uint32(buf[:4])
	buf = buf[4:]

	if len(buf) < 32 {
		return HDPubKey{}, fmt.Errorf("hdpubkey: truncated chainID")
	}
	copy(k.ChainID[:], buf[:32])
	buf = buf[32:]

	keypath, buf, err := readVarString(buf)
	if err != nil {
		return HDPubKey{}, fmt.Errorf("hdpubkey: keypath: %w", err)
	}
	k.KeyPath = keypath

	if len(buf) < 1 {
		return HDPubKey{}, fmt.Errorf("hdpubkey: truncated internal flag")
	}
	k.Internal = buf[0] != 0

	return k, nil
}

// keyTypeWire values for HDChain's trailing keyType byte.
const (
	keyTypeWireSecp256k1 byte = 0
	keyTypeWireEd25519   byte = 1
)

func encodeKeyTypeByte(kt KeyType) byte {
	if kt == KeyTypeEd25519 {
		return keyTypeWireEd25519
	}
	return keyTypeWireSecp256k1
}

func decodeKeyTypeByte(b byte) KeyType {
	if b == keyTypeWireEd25519 {
		return KeyTypeEd25519
	}
	return KeyTypeSecp256k1
}

// EncodeHDChain serializes an HDChain using the "HDChain v1" wire layout:
// version:int32 · nCreateTime:int64 · chainID:32bytes ·
// keypathTemplate:varlen-string · usePubCKD:uint8 · if usePubCKD:
// externalExtPubKey, internalExtPubKey (74 raw BIP32 bytes each) ·
// keyType:uint8 (0 = secp256k1, 1 = ed25519; appended after the
// multi-curve supplement, §13.1 — decodes an unset/legacy field to
// secp256k1, matching HDChain.effectiveKeyType's default).
func EncodeHDChain(c HDChain) ([]byte, error) {
	buf := make([]byte, 0, 4+8+32+1+len(c.KeypathTemplate)+1)

	tmp4 := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp4, uint32(c.Version))
	buf = append(buf, tmp4...)

	tmp8 := make([]byte, 8)
	binary.LittleEndian.PutUint64(tmp8, uint64(c.CreateTime))
	buf = append(buf, tmp8...)

	buf = append(buf, c.ChainID[:]...)
	buf = putVarString(buf, c.KeypathTemplate)

	var usePubCKDByte byte
	if c.UsePubCKD {
		usePubCKDByte = 1
	}
	buf = append(buf, usePubCKDByte)

	if c.UsePubCKD {
		extPub, err := c.ExternalExtPubKey.encodePublic()
		if err != nil {
			return nil, fmt.Errorf("hdchain: external ext pub key: %w", err)
		}
		buf = append(buf, extPub...)

		intPub, err := c.InternalExtPubKey.encodePublic()
		if err != nil {
			return nil, fmt.Errorf("hdchain: internal ext pub key: %w", err)
		}
		buf = append(buf, intPub...)
	}

	buf = append(buf, encodeKeyTypeByte(c.KeyType))

	return buf, nil
}

// DecodeHDChain deserializes an HDChain wire-encoded by EncodeHDChain.
func DecodeHDChain(buf []byte) (HDChain, error) {
	if len(buf) < 4+8+32 {
		return HDChain{}, fmt.Errorf("hdchain: truncated header")
	}
	var c HDChain
	c.Version = int32(binary.LittleEndian.Uint32(buf[:4]))
	buf = buf[4:]

	c.CreateTime = int64(binary.LittleEndian.Uint64(buf[:8]))
	buf = buf[8:]

	copy(c.ChainID[:], buf[:32])
	buf = buf[32:]

	template, buf, err := readVarString(buf)
	if err != nil {
		return HDChain{}, fmt.Errorf("hdchain: keypath template: %w", err)
	}
	c.KeypathTemplate = template

	if len(buf) < 1 {
		return HDChain{}, fmt.Errorf("hdchain: truncated usePubCKD flag")
	}
	c.UsePubCKD = buf[0] != 0
	buf = buf[1:]

	if c.UsePubCKD {
		if len(buf) < 2*BIP32ExtKeySize {
			return HDChain{}, fmt.Errorf("hdchain: truncated extended public keys")
		}
		ext, err := decodePublicExtKey(buf[:BIP32ExtKeySize])
		if err != nil {
			return HDChain{}, fmt.Errorf("hdchain: external ext pub key: %w", err)
		}
		c.ExternalExtPubKey = ext

		intKey, err := decodePublicExtKey(buf[BIP32ExtKeySize : 2*BIP32ExtKeySize])
		if err != nil {
			return HDChain{}, fmt.Errorf("hdchain: internal ext pub key: %w", err)
		}
		c.InternalExtPubKey = intKey
		buf = buf[2*BIP32ExtKeySize:]
	}

	if len(buf) < 1 {
		return HDChain{}, fmt.Errorf("hdchain: truncated key type")
	}
	c.KeyType = decodeKeyTypeByte(buf[0])

	return c, nil
}
