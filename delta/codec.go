// Package delta implements the canonical delta codec of spec.md §4.4: delta
// construction, the 500-byte size contract (backed by snappy compression),
// and the chunked carrier format for out-of-band transport.
//
// The codec's shape — a cursor-based canonical encoder/decoder plus a
// varint-style length-prefixed framing — follows the teacher's
// consensus/wire*.go and compactsize*.go helpers; the chunk format follows
// node/p2p/compactblock.go and node/p2p/envelope.go's hash-checked framing.
package delta

import (
	"sort"

	"github.com/golang/snappy"

	"pok.dev/core/hash"
	"pok.dev/core/types"
)

// MaxEncodedBytes is the delta payload's size contract (spec.md §3, §4.4).
const MaxEncodedBytes = 500

// Version is the only delta wire-format version this core understands
// (spec.md §6).
const Version = "1.0"

// Metadata carries the payload's counts and reported encoded size
// (spec.md §3).
type Metadata struct {
	TransactionCount int
	BlockCount       int
	EncodedSize      int
}

// Payload is the decoded delta wire format (spec.md §3, §6): exactly the
// keys version, timestamp, merkle_root, transactions, blocks, metadata.
type Payload struct {
	Version      string
	Timestamp    int64
	MerkleRoot   string
	Transactions []types.Transaction
	Blocks       []types.Block
	Metadata     Metadata
}

// EncodedDelta is the result of a successful Encode: the wire bytes and
// their exact length.
type EncodedDelta struct {
	Bytes []byte
	Size  int
}

// sortTransactions returns a stable-sorted copy of txs ordered by
// timestamp, ascending.
func sortTransactions(txs []types.Transaction) []types.Transaction {
	out := make([]types.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

func sortBlocks(blocks []types.Block) []types.Block {
	out := make([]types.Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// MerkleRootFor computes the payload's Merkle root per spec.md §4.4 step 4:
// SHA-256 over the ordered concatenation of SHA-256 digests of each item's
// canonical encoding, transactions first (timestamp order) then blocks
// (timestamp order). It is a pure function of (transactions, blocks) only,
// matching the invariant in spec.md §3.
func MerkleRootFor(txs []types.Transaction, blocks []types.Block) (string, error) {
	sortedTxs := sortTransactions(txs)
	sortedBlocks := sortBlocks(blocks)

	leaves := make([][32]byte, 0, len(sortedTxs)+len(sortedBlocks))
	for _, tx := range sortedTxs {
		d, err := hash.LeafDigest(txToMap(tx))
		if err != nil {
			return "", err
		}
		leaves = append(leaves, d)
	}
	for _, b := range sortedBlocks {
		d, err := hash.LeafDigest(blockToMap(b))
		if err != nil {
			return "", err
		}
		leaves = append(leaves, d)
	}
	root := hash.MerkleRoot(leaves)
	return hash.Hex(root), nil
}

// Build assembles a delta payload from the local transaction/block universe
// and a peer's last-known timestamp (spec.md §4.4 construction): only items
// with timestamp strictly greater than peerTimestamp are retained.
func Build(allTxs []types.Transaction, allBlocks []types.Block, peerTimestamp int64, now int64) (Payload, error) {
	var txs []types.Transaction
	for _, tx := range allTxs {
		if tx.Timestamp > peerTimestamp {
			txs = append(txs, tx)
		}
	}
	var blocks []types.Block
	for _, b := range allBlocks {
		if b.Timestamp > peerTimestamp {
			blocks = append(blocks, b)
		}
	}
	txs = sortTransactions(txs)
	blocks = sortBlocks(blocks)

	root, err := MerkleRootFor(txs, blocks)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		Version:      Version,
		Timestamp:    now,
		MerkleRoot:   root,
		Transactions: txs,
		Blocks:       blocks,
		Metadata: Metadata{
			TransactionCount: len(txs),
			BlockCount:       len(blocks),
		},
	}, nil
}

func payloadToMap(p Payload) map[string]any {
	txs := make([]any, 0, len(p.Transactions))
	for _, tx := range p.Transactions {
		txs = append(txs, txToMap(tx))
	}
	blocks := make([]any, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		blocks = append(blocks, blockToMap(b))
	}
	return map[string]any{
		"version":     p.Version,
		"timestamp":   p.Timestamp,
		"merkle_root": p.MerkleRoot,
		"transactions": txs,
		"blocks":       blocks,
		"metadata": map[string]any{
			"transaction_count": int64(p.Metadata.TransactionCount),
			"block_count":       int64(p.Metadata.BlockCount),
			"encoded_size":      int64(p.Metadata.EncodedSize),
		},
	}
}

// encodeWithSize canonically encodes p (whose Metadata.EncodedSize is
// whatever the caller has set so far) and snappy-compresses the result.
func encodeWithSize(p Payload) ([]byte, error) {
	canon, err := hash.Canonical(payloadToMap(p))
	if err != nil {
		return nil, newErr(ErrDecode, "encode: "+err.Error())
	}
	return snappy.Encode(nil, canon), nil
}

// Encode canonically encodes and compresses p, returning ErrSize if the
// result exceeds MaxEncodedBytes (spec.md §4.4's size contract).
//
// metadata.encoded_size is necessarily self-referential (the payload's size
// includes the field that reports it); this is resolved the same way a
// length-prefixed wire format resolves it elsewhere in the pack: encode once
// with the field at its previous value to measure the size, then re-encode
// with the measured value substituted in, repeating while the recorded value
// differs from the encoded length (at most four re-encodings).
func Encode(p Payload) (EncodedDelta, error) {
	final, err := encodeWithSize(p)
	if err != nil {
		return EncodedDelta{}, err
	}
	for pass := 0; pass < 4 && len(final) != p.Metadata.EncodedSize; pass++ {
		p.Metadata.EncodedSize = len(final)
		final, err = encodeWithSize(p)
		if err != nil {
			return EncodedDelta{}, err
		}
	}
	if len(final) > MaxEncodedBytes {
		return EncodedDelta{}, newSizeErr(len(final))
	}
	return EncodedDelta{Bytes: final, Size: len(final)}, nil
}

// Decode parses wire bytes back into a Payload, validating the presence of
// all six required keys and the version string, but NOT the Merkle root —
// callers that need the zero-loss guarantee must call VerifyMerkleRoot
// separately (spec.md §6 splits decode_delta from the Merkle check, which
// merge_delta performs).
func Decode(wire []byte) (Payload, error) {
	canon, err := snappy.Decode(nil, wire)
	if err != nil {
		return Payload{}, newErr(ErrDecode, "snappy decompress: "+err.Error())
	}
	raw, err := hash.DecodeCanonical(canon)
	if err != nil {
		return Payload{}, newErr(ErrDecode, "canonical decode: "+err.Error())
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return Payload{}, newErr(ErrDecode, "delta payload is not a map")
	}

	for _, key := range []string{"version", "timestamp", "merkle_root", "transactions", "blocks", "metadata"} {
		if _, ok := m[key]; !ok {
			return Payload{}, newErr(ErrDecode, "missing required key "+key)
		}
	}

	version, ok := m["version"].(string)
	if !ok || version != Version {
		return Payload{}, newErr(ErrDecode, "unsupported delta version")
	}
	timestamp, ok := m["timestamp"].(int64)
	if !ok {
		return Payload{}, newErr(ErrDecode, "timestamp must be an integer")
	}
	merkleRoot, ok := m["merkle_root"].(string)
	if !ok || len(merkleRoot) != 64 {
		return Payload{}, newErr(ErrDecode, "merkle_root must be a 64-char hex string")
	}

	txsRaw, ok := m["transactions"].([]any)
	if !ok {
		return Payload{}, newErr(ErrDecode, "transactions must be an array")
	}
	txs := make([]types.Transaction, 0, len(txsRaw))
	for _, raw := range txsRaw {
		tx, err := txFromMap(raw)
		if err != nil {
			return Payload{}, err
		}
		txs = append(txs, tx)
	}

	blocksRaw, ok := m["blocks"].([]any)
	if !ok {
		return Payload{}, newErr(ErrDecode, "blocks must be an array")
	}
	blocks := make([]types.Block, 0, len(blocksRaw))
	for _, raw := range blocksRaw {
		b, err := blockFromMap(raw)
		if err != nil {
			return Payload{}, err
		}
		blocks = append(blocks, b)
	}

	metaRaw, ok := m["metadata"].(map[string]any)
	if !ok {
		return Payload{}, newErr(ErrDecode, "metadata must be a map")
	}
	meta := Metadata{
		TransactionCount: int(asInt64(metaRaw["transaction_count"])),
		BlockCount:       int(asInt64(metaRaw["block_count"])),
		EncodedSize:      int(asInt64(metaRaw["encoded_size"])),
	}

	return Payload{
		Version:      version,
		Timestamp:    timestamp,
		MerkleRoot:   merkleRoot,
		Transactions: txs,
		Blocks:       blocks,
		Metadata:     meta,
	}, nil
}

func asInt64(v any) int64 {
	n, _ := v.(int64)
	return n
}

// VerifyMerkleRoot recomputes p's Merkle root from its transactions and
// blocks and compares it against p.MerkleRoot, returning ErrMerkleMismatch
// on disagreement (spec.md §7).
func VerifyMerkleRoot(p Payload) error {
	recomputed, err := MerkleRootFor(p.Transactions, p.Blocks)
	if err != nil {
		return err
	}
	if recomputed != p.MerkleRoot {
		return newErr(ErrMerkleMismatch, "declared merkle_root does not match recomputed root")
	}
	return nil
}
