package delta

import (
	"strings"
	"testing"

	"pok.dev/core/types"
)

func sampleTx(id string, ts int64) types.Transaction {
	return types.Transaction{
		ID:         id,
		Timestamp:  ts,
		Owner:      "alice",
		QuestionID: "q1",
		Kind:       types.KindAttestation,
		Payload:    types.Payload{Answer: "B", Hash: "deadbeef"},
	}
}

func TestBuild_FiltersByStrictTimestamp(t *testing.T) {
	txs := []types.Transaction{sampleTx("a", 100), sampleTx("b", 200), sampleTx("c", 300)}
	p, err := Build(txs, nil, 200, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Transactions) != 1 || p.Transactions[0].ID != "c" {
		t.Fatalf("expected only tx with timestamp > 200, got %+v", p.Transactions)
	}
}

func TestMerkleRootFor_ContentOnly(t *testing.T) {
	txs := []types.Transaction{sampleTx("a", 1), sampleTx("b", 2)}
	r1, err := MerkleRootFor(txs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r2, err := MerkleRootFor(txs, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r1 != r2 {
		t.Fatalf("merkle root must be a pure function of content")
	}
	if len(r1) != 64 {
		t.Fatalf("expected 64-char hex root, got %d chars", len(r1))
	}

	other, err := MerkleRootFor([]types.Transaction{sampleTx("a", 1)}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if other == r1 {
		t.Fatalf("different content must not collide")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	txs := []types.Transaction{sampleTx("a", 100), sampleTx("b", 200)}
	p, err := Build(txs, nil, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	enc, err := Encode(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enc.Size > MaxEncodedBytes {
		t.Fatalf("encoded size %d exceeds limit %d", enc.Size, MaxEncodedBytes)
	}

	decoded, err := Decode(enc.Bytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded.MerkleRoot != p.MerkleRoot {
		t.Fatalf("merkle root round trip mismatch: %s != %s", decoded.MerkleRoot, p.MerkleRoot)
	}
	if len(decoded.Transactions) != len(p.Transactions) {
		t.Fatalf("expected %d transactions after decode, got %d", len(p.Transactions), len(decoded.Transactions))
	}
	if err := VerifyMerkleRoot(decoded); err != nil {
		t.Fatalf("merkle round-trip property violated: %v", err)
	}
}

func TestEncode_SizeErrorCarriesActualSize(t *testing.T) {
	var txs []types.Transaction
	for i := 0; i < 200; i++ {
		txs = append(txs, sampleTx(strings.Repeat("x", 20)+string(rune('a'+i%26)), int64(i+1)))
	}
	p, err := Build(txs, nil, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = Encode(p)
	if err == nil {
		t.Fatalf("expected a size error for an oversized delta")
	}
	sizeErr, ok := err.(*Error)
	if !ok || sizeErr.Code != ErrSize {
		t.Fatalf("expected *Error with code ErrSize, got %v", err)
	}
	if sizeErr.ActualSize <= MaxEncodedBytes {
		t.Fatalf("expected actual size to exceed the limit, got %d", sizeErr.ActualSize)
	}
}

func TestDecode_RejectsWrongVersion(t *testing.T) {
	p, err := Build(nil, nil, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.Version = "2.0"
	enc, err := Encode(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Decode(enc.Bytes); err == nil {
		t.Fatalf("expected decode error for unsupported version")
	}
}

func TestVerifyMerkleRoot_DetectsTampering(t *testing.T) {
	p, err := Build([]types.Transaction{sampleTx("a", 1)}, nil, 0, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.MerkleRoot = strings.Repeat("0", 64)
	if err := VerifyMerkleRoot(p); err == nil {
		t.Fatalf("expected merkle mismatch error")
	}
}
