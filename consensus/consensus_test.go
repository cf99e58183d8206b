package consensus

import (
	"math"
	"testing"

	"pok.dev/core/types"
)

func mkAttestation(hash string, kind types.Kind) types.Transaction {
	return types.Transaction{Kind: kind, Payload: types.Payload{Hash: hash}, QuestionID: "q1"}
}

// TestWeightedConvergence_APReveal reproduces spec.md seed scenario S2.
func TestWeightedConvergence_APReveal(t *testing.T) {
	cfg := DefaultConfig()
	attestations := []types.Transaction{
		mkAttestation("H_A", types.KindAttestation),
		mkAttestation("H_A", types.KindAttestation),
		mkAttestation("H_B", types.KindAttestation),
	}
	withReveal := append(attestations, mkAttestation("H_A", types.KindApReveal))

	// Unweighted: the ap_reveal counts 1.0 like the other three, so 3/4.
	unweightedCfg := cfg
	unweightedCfg.ApRevealWeight = 1.0
	unweighted := WeightedConvergence(unweightedCfg, withReveal, nil)
	if math.Abs(unweighted-0.75) > 1e-9 {
		t.Fatalf("unweighted convergence = %v, want 0.75", unweighted)
	}

	weighted := WeightedConvergence(cfg, withReveal, nil)
	want := 12.0 / 13.0
	if math.Abs(weighted-want) > 1e-9 {
		t.Fatalf("ap_reveal-weighted convergence = %v, want %v", weighted, want)
	}
}

func TestWeightedConvergence_Empty(t *testing.T) {
	if got := WeightedConvergence(DefaultConfig(), nil, nil); got != 0.0 {
		t.Fatalf("expected 0.0 for empty input, got %v", got)
	}
}

func TestWeightedConvergence_Bounds(t *testing.T) {
	cfg := DefaultConfig()
	attestations := []types.Transaction{
		mkAttestation("H_A", types.KindAttestation),
		mkAttestation("H_B", types.KindAttestation),
		mkAttestation("H_C", types.KindAttestation),
	}
	got := WeightedConvergence(cfg, attestations, nil)
	if got < 0 || got > 1 {
		t.Fatalf("convergence out of bounds: %v", got)
	}
}

// TestDynamicQuorum reproduces spec.md seed scenario S3.
func TestDynamicQuorum(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		active int
		want   int
	}{
		{5, 3},
		{20, 6},
		{40, 12},
	}
	for _, c := range cases {
		if got := DynamicQuorum(cfg, c.active); got != c.want {
			t.Fatalf("DynamicQuorum(%d) = %d, want %d", c.active, got, c.want)
		}
	}
}

func TestDynamicQuorum_Monotonic(t *testing.T) {
	cfg := DefaultConfig()
	prev := DynamicQuorum(cfg, 0)
	for n := 1; n <= 200; n++ {
		got := DynamicQuorum(cfg, n)
		if got < prev {
			t.Fatalf("quorum decreased at active_nodes=%d: %d < %d", n, got, prev)
		}
		prev = got
	}
}

func TestProgressiveQuorum_EarlyVsLate(t *testing.T) {
	cfg := DefaultConfig()
	if got := ProgressiveQuorum(cfg, 0, 10); got != EarlyProgressQuorum {
		t.Fatalf("expected early quorum for index 0 of 10, got %d", got)
	}
	if got := ProgressiveQuorum(cfg, 9, 10); got != LateProgressQuorum {
		t.Fatalf("expected late quorum for index 9 of 10, got %d", got)
	}
}

func TestConsensusAnswer_TieBreakLexicographic(t *testing.T) {
	cfg := DefaultConfig()
	attestations := []types.Transaction{
		mkAttestation("bbbb", types.KindAttestation),
		mkAttestation("aaaa", types.KindAttestation),
	}
	got, ok := ConsensusAnswer(cfg, attestations, nil)
	if !ok {
		t.Fatalf("expected a consensus answer")
	}
	if got != "aaaa" {
		t.Fatalf("tie-break should prefer lexicographically smaller hash, got %s", got)
	}
}

func TestReady_RequiresBothQuorumAndConvergence(t *testing.T) {
	cfg := DefaultConfig()
	attestations := []types.Transaction{
		mkAttestation("H_A", types.KindAttestation),
		mkAttestation("H_A", types.KindAttestation),
		mkAttestation("H_B", types.KindAttestation),
	}
	// 3 attestations meets BaseQuorum(3) but convergence is 2/3 < 0.7.
	if Ready(cfg, attestations, nil, 1, 0, 1) {
		t.Fatalf("expected not-ready: convergence below threshold")
	}

	unanimous := []types.Transaction{
		mkAttestation("H_A", types.KindAttestation),
		mkAttestation("H_A", types.KindAttestation),
		mkAttestation("H_A", types.KindAttestation),
	}
	if !Ready(cfg, unanimous, nil, 1, 0, 1) {
		t.Fatalf("expected ready: quorum met and unanimous convergence")
	}
}
