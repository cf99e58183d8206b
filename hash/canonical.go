// Package hash implements the canonical byte encoding and SHA-256 based
// fingerprinting that every other package in this module relies on: answer
// fingerprints, transaction/block digests, and delta Merkle roots are all a
// function of the canonical encoding defined here.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// Canonical encodes v into the deterministic byte form used for all
// fingerprints and Merkle leaves in this module. Two logically equal values
// MUST produce byte-identical output on any platform.
//
// Supported shapes (spec.md §4.1):
//   - nil                 -> "n"
//   - bool                -> "t" / "f"
//   - string               -> "s" + length prefix + UTF-8 bytes
//   - int, int64, uint64  -> "i" + decimal ASCII
//   - []byte              -> "b" + length prefix + raw bytes
//   - []any               -> "a" + count prefix + each element in order
//   - map[string]any      -> "m" + count prefix + (key, value) pairs sorted
//     by key in ascending byte order
//
// Any other type is rejected: the encoding must stay total and unambiguous,
// so callers are expected to normalize domain values (e.g. structs) into one
// of these shapes before calling Canonical.
func Canonical(v any) ([]byte, error) {
	var buf []byte
	buf, err := appendCanonical(buf, v)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func appendCanonical(buf []byte, v any) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(buf, 'n'), nil
	case bool:
		if t {
			return append(buf, 't'), nil
		}
		return append(buf, 'f'), nil
	case string:
		return appendString(buf, t), nil
	case int:
		return appendInt(buf, int64(t)), nil
	case int64:
		return appendInt(buf, t), nil
	case uint64:
		buf = append(buf, 'i')
		return append(buf, strconv.FormatUint(t, 10)...), nil
	case []byte:
		return appendBytes(buf, t), nil
	case []any:
		buf = append(buf, 'a')
		buf = append(buf, strconv.Itoa(len(t))...)
		buf = append(buf, ':')
		for _, elem := range t {
			var err error
			buf, err = appendCanonical(buf, elem)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case map[string]any:
		return appendMap(buf, t)
	default:
		return nil, fmt.Errorf("hash: canonical: unsupported type %T", v)
	}
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, 's')
	buf = append(buf, strconv.Itoa(len(s))...)
	buf = append(buf, ':')
	return append(buf, s...)
}

func appendInt(buf []byte, n int64) []byte {
	buf = append(buf, 'i')
	return append(buf, strconv.FormatInt(n, 10)...)
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = append(buf, 'b')
	buf = append(buf, strconv.Itoa(len(b))...)
	buf = append(buf, ':')
	return append(buf, b...)
}

func appendMap(buf []byte, m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf = append(buf, 'm')
	buf = append(buf, strconv.Itoa(len(keys))...)
	buf = append(buf, ':')
	for _, k := range keys {
		buf = appendString(buf, k)
		var err error
		buf, err = appendCanonical(buf, m[k])
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// Sum256 returns the SHA-256 digest of b.
func Sum256(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// Hex returns the lowercase hex encoding of a 32-byte digest.
func Hex(digest [32]byte) string {
	return hex.EncodeToString(digest[:])
}

// FromHex parses a 64-character lowercase hex string into a 32-byte digest.
func FromHex(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) != 64 {
		return out, fmt.Errorf("hash: hex digest must be 64 chars, got %d", len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("hash: invalid hex digest: %w", err)
	}
	copy(out[:], raw)
	return out, nil
}

// Fingerprint returns the hex SHA-256 digest of the canonical encoding of
// answer. This is the `payload.hash` field described in spec.md §3: the
// fingerprint of an opaque answer value.
func Fingerprint(answer any) (string, error) {
	enc, err := Canonical(answer)
	if err != nil {
		return "", err
	}
	digest := Sum256(enc)
	return Hex(digest), nil
}
