package delta

import (
	"sort"

	"pok.dev/core/hash"
)

// Chunk is one frame of the chunked carrier format (spec.md §4.4, §6): for
// transport over fixed-capacity carriers (e.g. optical codes), a payload is
// split into ordered, independently hash-checked chunks.
type Chunk struct {
	Version     string
	TotalChunks int
	ChunkIndex  int
	PayloadHash string // hex SHA-256 of the concatenated chunk_bytes, index order
	ChunkBytes  []byte
}

// Split partitions wire into ordered chunks of at most maxChunkBytes each.
// Every chunk carries the same payload_hash: the hex SHA-256 of wire itself,
// letting a receiver verify the reassembled payload once every chunk is
// present; a single chunk cannot be checked on its own.
func Split(wire []byte, maxChunkBytes int) ([]Chunk, error) {
	if maxChunkBytes <= 0 {
		return nil, newErr(ErrChunk, "maxChunkBytes must be positive")
	}
	digest := hash.Sum256(wire)
	payloadHash := hash.Hex(digest)

	if len(wire) == 0 {
		return []Chunk{{Version: Version, TotalChunks: 1, ChunkIndex: 0, PayloadHash: payloadHash, ChunkBytes: nil}}, nil
	}

	total := (len(wire) + maxChunkBytes - 1) / maxChunkBytes
	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		start := i * maxChunkBytes
		end := start + maxChunkBytes
		if end > len(wire) {
			end = len(wire)
		}
		buf := make([]byte, end-start)
		copy(buf, wire[start:end])
		chunks = append(chunks, Chunk{
			Version:     Version,
			TotalChunks: total,
			ChunkIndex:  i,
			PayloadHash: payloadHash,
			ChunkBytes:  buf,
		})
	}
	return chunks, nil
}

// Reassemble validates and concatenates a complete set of chunks back into
// wire bytes (spec.md §4.4): every chunk must be present, indices must be a
// contiguous 0..N-1 permutation with no duplicates, and the hex SHA-256 of
// the concatenation (in index order) must equal the chunks' declared
// payload_hash.
func Reassemble(chunks []Chunk) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, newErr(ErrChunk, "no chunks provided")
	}

	total := chunks[0].TotalChunks
	payloadHash := chunks[0].PayloadHash
	seen := make(map[int]Chunk, len(chunks))
	for _, c := range chunks {
		if c.TotalChunks != total {
			return nil, newErr(ErrChunk, "inconsistent total_chunks across chunks")
		}
		if c.PayloadHash != payloadHash {
			return nil, newErr(ErrChunk, "inconsistent payload_hash across chunks")
		}
		if c.ChunkIndex < 0 || c.ChunkIndex >= total {
			return nil, newErr(ErrChunk, "chunk_index out of range")
		}
		if _, dup := seen[c.ChunkIndex]; dup {
			return nil, newErr(ErrChunk, "duplicate chunk_index")
		}
		seen[c.ChunkIndex] = c
	}
	if len(seen) != total {
		return nil, newErr(ErrChunk, "missing chunks: have fewer than total_chunks")
	}

	ordered := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		ordered = append(ordered, seen[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ChunkIndex < ordered[j].ChunkIndex })

	var buf []byte
	for _, c := range ordered {
		buf = append(buf, c.ChunkBytes...)
	}

	recomputed := hash.Hex(hash.Sum256(buf))
	if recomputed != payloadHash {
		return nil, newErr(ErrChunk, "reassembled hash does not match declared payload_hash")
	}
	return buf, nil
}
