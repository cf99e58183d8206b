package delta

import "testing"

func TestSplitReassemble_RoundTrip(t *testing.T) {
	wire := make([]byte, 257)
	for i := range wire {
		wire[i] = byte(i)
	}
	chunks, err := Split(wire, 64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks of 64 bytes for 257 bytes, got %d", len(chunks))
	}

	got, err := Reassemble(chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(wire) {
		t.Fatalf("reassembled length mismatch: got %d want %d", len(got), len(wire))
	}
	for i := range wire {
		if got[i] != wire[i] {
			t.Fatalf("byte mismatch at %d", i)
		}
	}
}

func TestReassemble_OutOfOrderChunksStillWork(t *testing.T) {
	wire := []byte("the quick brown fox jumps over the lazy dog")
	chunks, err := Split(wire, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	shuffled := make([]Chunk, len(chunks))
	for i, c := range chunks {
		shuffled[len(chunks)-1-i] = c
	}
	got, err := Reassemble(shuffled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(wire) {
		t.Fatalf("reassembled payload mismatch")
	}
}

func TestReassemble_MissingChunk(t *testing.T) {
	wire := []byte("the quick brown fox jumps over the lazy dog")
	chunks, err := Split(wire, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Reassemble(chunks[:len(chunks)-1]); err == nil {
		t.Fatalf("expected chunk error for missing chunk")
	}
}

func TestReassemble_DuplicateIndex(t *testing.T) {
	wire := []byte("the quick brown fox jumps over the lazy dog")
	chunks, err := Split(wire, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dup := append(chunks, chunks[0])
	if _, err := Reassemble(dup); err == nil {
		t.Fatalf("expected chunk error for duplicate index")
	}
}

func TestReassemble_TamperedBytesFailsHashCheck(t *testing.T) {
	wire := []byte("the quick brown fox jumps over the lazy dog")
	chunks, err := Split(wire, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunks[0].ChunkBytes[0] ^= 0xff
	if _, err := Reassemble(chunks); err == nil {
		t.Fatalf("expected chunk error for tampered bytes")
	}
}

func TestSplit_EmptyPayload(t *testing.T) {
	chunks, err := Split(nil, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Reassemble(chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty reassembled payload, got %d bytes", len(got))
	}
}
