package hdkeystore

import (
	"fmt"
	"strconv"
	"strings"
)

// chainSwitchToken is the template placeholder substituted with "0"
// (external) or "1" (internal) during materialization.
const chainSwitchToken = "c"

// maxKeyPathSegments bounds the work a single derivation can perform; a
// keypath never legitimately needs more than a few dozen segments.
const maxKeyPathSegments = 255

// segmentKind identifies what a single keypath segment represents.
type segmentKind int

const (
	segmentMaster segmentKind = iota
	segmentNumeric
	segmentChainSwitch
)

// pathSegment is one '/'-separated component of a keypath, already
// classified and, for numeric segments, parsed.
type pathSegment struct {
	kind     segmentKind
	index    int32 // valid only when kind == segmentNumeric
	hardened bool  // valid only when kind == segmentNumeric
}

// KeyPath is a parsed, tagged-variant sequence of derivation steps, per the
// representation suggested in spec §9: cheaper to walk repeatedly than
// re-splitting a raw string on every derivation.
type KeyPath struct {
	template string // original (possibly unmaterialized) string form
	segments []pathSegment
}

// ParseKeyPath parses a '/'-separated keypath string. The leading segment
// must be the literal "m". Each subsequent segment is a decimal integer
// (optionally hardened with a trailing '), or the literal "c" chain-switch
// placeholder.
func ParseKeyPath(path string) (KeyPath, error) {
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] != "m" {
		return KeyPath{}, fmt.Errorf("%w: keypath must start with \"m\": %q", ErrInvalidKeyPath, path)
	}
	if len(parts)-1 > maxKeyPathSegments {
		return KeyPath{}, fmt.Errorf("%w: keypath exceeds %d segments", ErrInvalidKeyPath, maxKeyPathSegments)
	}

	segments := make([]pathSegment, 0, len(parts))
	segments = append(segments, pathSegment{kind: segmentMaster})

	for i, part := range parts[1:] {
		if part == "" {
			return KeyPath{}, fmt.Errorf("%w: empty segment at position %d in %q", ErrInvalidKeyPath, i+1, path)
		}

		if part == chainSwitchToken {
			segments = append(segments, pathSegment{kind: segmentChainSwitch})
			continue
		}

		hardened := strings.HasSuffix(part, "'")
		numeric := part
		if hardened {
			numeric = strings.TrimSuffix(part, "'")
		}

		n, err := strconv.ParseInt(numeric, 10, 32)
		if err != nil {
			return KeyPath{}, fmt.Errorf("%w: segment %d (%q) is not a valid int32: %v", ErrInvalidKeyPath, i+1, part, err)
		}

		segments = append(segments, pathSegment{kind: segmentNumeric, index: int32(n), hardened: hardened})
	}

	return KeyPath{template: path, segments: segments}, nil
}

// Materialize replaces every chain-switch segment with the external ("0")
// or internal ("1") literal and returns the fully materialized KeyPath. A
// template with no chain-switch segment is returned unchanged (it's valid
// on its own, used verbatim with the final index appended by the caller).
func (p KeyPath) Materialize(internal bool) KeyPath {
	token := "0"
	if internal {
		token = "1"
	}

	out := make([]pathSegment, len(p.segments))
	copy(out, p.segments)
	for i, seg := range out {
		if seg.kind == segmentChainSwitch {
			n, _ := strconv.ParseInt(token, 10, 32)
			out[i] = pathSegment{kind: segmentNumeric, index: int32(n)}
		}
	}

	return KeyPath{template: strings.ReplaceAll(p.template, chainSwitchToken, token), segments: out}
}

// AppendIndex appends a final numeric segment (the address-level index),
// returning a new KeyPath. Used after template materialization.
func (p KeyPath) AppendIndex(index uint32, hardened bool) KeyPath {
	out := make([]pathSegment, len(p.segments), len(p.segments)+1)
	copy(out, p.segments)
	out = append(out, pathSegment{kind: segmentNumeric, index: int32(index), hardened: hardened})

	suffix := strconv.FormatUint(uint64(index), 10)
	if hardened {
		suffix += "'"
	}
	return KeyPath{template: p.template + "/" + suffix, segments: out}
}

// String returns the fully formatted keypath, e.g. "m/44'/0'/0'/0/3".
func (p KeyPath) String() string {
	var b strings.Builder
	for i, seg := range p.segments {
		if i > 0 {
			b.WriteByte('/')
		}
		switch seg.kind {
		case segmentMaster:
			b.WriteByte('m')
		case segmentChainSwitch:
			b.WriteByte('c')
		case segmentNumeric:
			b.WriteString(strconv.FormatInt(int64(seg.index), 10))
			if seg.hardened {
				b.WriteByte('\'')
			}
		}
	}
	return b.String()
}

// slip10String renders p the way SLIP-10 requires: every non-master
// segment hardened, regardless of the hardened bit this package otherwise
// tracks per segment. SLIP-10's ed25519 variant supports hardened
// derivation only, so go-slip10 hardens every segment it parses
// unconditionally; its path grammar requires the trailing ' on each one
// anyway.
func (p KeyPath) slip10String() string {
	var b strings.Builder
	for i, seg := range p.segments {
		if i > 0 {
			b.WriteByte('/')
		}
		switch seg.kind {
		case segmentMaster:
			b.WriteByte('m')
		case segmentChainSwitch:
			b.WriteByte('c')
		case segmentNumeric:
			b.WriteString(strconv.FormatInt(int64(seg.index), 10))
			b.WriteByte('\'')
		}
	}
	return b.String()
}

// withoutLastSegment returns p with its final derivation segment removed.
// Used to recover the account-level path from an already-derived KeyPath
// (e.g. one loaded back from HDPubKey.KeyPath), the form
// slip10deriv.DeriveEd25519AtIndex expects as its path argument.
func (p KeyPath) withoutLastSegment() (KeyPath, error) {
	if len(p.segments) < 2 {
		return KeyPath{}, fmt.Errorf("%w: keypath has no derivation segments to remove: %q", ErrInvalidKeyPath, p.String())
	}
	out := make([]pathSegment, len(p.segments)-1)
	copy(out, p.segments[:len(p.segments)-1])
	return KeyPath{segments: out}, nil
}

// derivationSteps returns the derivation steps after the leading "m", failing if
// any is an unmaterialized chain-switch token (a programmer error: the
// template must be materialized before derivation).
func (p KeyPath) derivationSteps() ([]pathSegment, error) {
	steps := p.segments[1:]
	for i, seg := range steps {
		if seg.kind == segmentChainSwitch {
			return nil, fmt.Errorf("%w: unmaterialized chain-switch token at segment %d", ErrInvalidKeyPath, i+1)
		}
		if seg.kind == segmentMaster {
			return nil, fmt.Errorf("%w: unexpected \"m\" at segment %d", ErrInvalidKeyPath, i+1)
		}
	}
	return steps, nil
}
