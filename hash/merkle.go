package hash

// MerkleRoot computes the delta payload's Merkle root (spec.md §4.4): SHA-256
// over the ordered concatenation of the SHA-256 digests of each item's
// canonical encoding. Unlike a binary hash tree, this is a single digest over
// the concatenated leaf digests — the order of leafDigests is significant and
// is the caller's responsibility (transactions in timestamp order, then
// blocks in timestamp order, per spec.md §4.4 step 4).
//
// An empty leaf set yields the digest of the empty byte string, matching the
// "no transactions or blocks newer than peer_timestamp" delta case.
func MerkleRoot(leafDigests [][32]byte) [32]byte {
	buf := make([]byte, 0, len(leafDigests)*32)
	for _, d := range leafDigests {
		buf = append(buf, d[:]...)
	}
	return Sum256(buf)
}

// LeafDigest hashes the canonical encoding of v, producing one of the
// per-item digests MerkleRoot concatenates.
func LeafDigest(v any) ([32]byte, error) {
	enc, err := Canonical(v)
	if err != nil {
		var zero [32]byte
		return zero, err
	}
	return Sum256(enc), nil
}
