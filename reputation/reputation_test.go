package reputation

import (
	"math"
	"testing"

	"pok.dev/core/types"
)

func mkTx(owner string, ts int64, hash string) types.Transaction {
	return types.Transaction{
		ID:         owner + ":" + hash,
		Timestamp:  ts,
		Owner:      owner,
		QuestionID: "q1",
		Kind:       types.KindAttestation,
		Payload:    types.Payload{Hash: hash},
	}
}

// TestProportionAtTime_ThoughtLeaderScenario reproduces spec.md seed
// scenario S1.
func TestProportionAtTime_ThoughtLeaderScenario(t *testing.T) {
	cfg := DefaultConfig()
	attestations := []types.Transaction{
		mkTx("alice", 1000, "H_A"),
		mkTx("bob", 2000, "H_A"),
		mkTx("carol", 3000, "H_B"),
		mkTx("dave", 4000, "H_A"),
	}

	cases := []struct {
		owner string
		ts    int64
		want  float64
	}{
		{"alice", 1000, 0.0},
		{"bob", 2000, 1.0},
		{"dave", 4000, 2.0 / 3.0},
	}
	for _, c := range cases {
		got := ProportionAtTime(cfg, attestations, c.ts)
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("%s: proportion = %v, want %v", c.owner, got, c.want)
		}
	}
}

func TestBonusMultiplier_ExclusivityAndSelfAmplification(t *testing.T) {
	cfg := DefaultConfig()
	attestations := []types.Transaction{
		mkTx("alice", 1000, "H_A"),
		mkTx("bob", 2000, "H_A"),
		mkTx("carol", 3000, "H_B"),
		mkTx("dave", 4000, "H_A"),
	}

	alicePortion := ProportionAtTime(cfg, attestations, 1000)
	if BonusMultiplier(cfg, alicePortion, "H_A", "H_A") != ThoughtLeaderBonus {
		t.Fatalf("alice should receive the thought-leader bonus")
	}

	bobPortion := ProportionAtTime(cfg, attestations, 2000)
	if BonusMultiplier(cfg, bobPortion, "H_A", "H_A") != 1.0 {
		t.Fatalf("bob's proportion is already 1.0, no bonus expected")
	}

	carolPortion := ProportionAtTime(cfg, attestations, 3000)
	if BonusMultiplier(cfg, carolPortion, "H_A", "H_B") != 1.0 {
		t.Fatalf("carol's hash does not match final hash, no bonus expected")
	}

	davePortion := ProportionAtTime(cfg, attestations, 4000)
	if BonusMultiplier(cfg, davePortion, "H_A", "H_A") != 1.0 {
		t.Fatalf("dave's proportion is 2/3 >= 0.5, no bonus expected")
	}
}

func TestProportionAtTime_EmptyRetainedSet(t *testing.T) {
	cfg := DefaultConfig()
	got := ProportionAtTime(cfg, nil, 1000)
	if got != 0.0 {
		t.Fatalf("expected 0.0 for empty input, got %v", got)
	}
}

func TestProportionAtTime_ReplayDepthCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxReplayDepth = 2

	attestations := []types.Transaction{
		mkTx("a", 1, "H_OLD"),
		mkTx("b", 2, "H_OLD"),
		mkTx("c", 3, "H_NEW"),
		mkTx("d", 4, "H_NEW"),
	}
	// Target timestamp 10 retains all four; depth cap keeps only the two
	// most recent (c, d), both H_NEW, so proportion should be 1.0 not 0.5.
	got := ProportionAtTime(cfg, attestations, 10)
	if got != 1.0 {
		t.Fatalf("replay depth cap not applied: got %v, want 1.0", got)
	}
}

func TestUpdate_ClampedToBounds(t *testing.T) {
	cfg := DefaultConfig()
	if got := Update(cfg, RepMax, ThoughtLeaderBonus); got != RepMax {
		t.Fatalf("reputation must clamp at RepMax, got %v", got)
	}
	if got := Update(cfg, 0.0, 1.0); got < RepMin {
		t.Fatalf("reputation must never fall below RepMin, got %v", got)
	}
}

func TestProcessRewards_UnknownAttesterSkippedSilently(t *testing.T) {
	cfg := DefaultConfig()
	table := Table{"alice": 1.0}
	attestations := []types.Transaction{
		mkTx("alice", 1000, "H_A"),
		mkTx("ghost", 2000, "H_A"),
	}

	ProcessRewards(cfg, table, attestations, "H_A")

	if _, ok := table["ghost"]; ok {
		t.Fatalf("unknown attester must not be added to the table")
	}
	if table["alice"] <= 1.0 {
		t.Fatalf("alice should have received a bonus-backed update, got %v", table["alice"])
	}
}

func TestProcessRewards_LaterAttesterSeesElevatedPrior(t *testing.T) {
	cfg := DefaultConfig()
	table := Table{"alice": 1.0, "bob": 1.0}
	attestations := []types.Transaction{
		mkTx("alice", 1000, "H_A"),
		mkTx("bob", 1100, "H_A"),
	}

	ProcessRewards(cfg, table, attestations, "H_A")

	if table["alice"] == table["bob"] {
		t.Fatalf("alice and bob should diverge: alice updates first and bob observes the post-update world")
	}
}

func TestMedian_EmptyDefaultsToOne(t *testing.T) {
	var table Table
	if got := table.Median(); got != 1.0 {
		t.Fatalf("expected median 1.0 for empty table, got %v", got)
	}
}

func TestMedian_EvenCountAverages(t *testing.T) {
	table := Table{"a": 1.0, "b": 3.0}
	if got := table.Median(); got != 2.0 {
		t.Fatalf("expected median 2.0, got %v", got)
	}
}
