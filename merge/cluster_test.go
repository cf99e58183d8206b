package merge

import (
	"testing"

	"pok.dev/core/reputation"
	"pok.dev/core/types"
)

func TestClusterAndOrder_Empty(t *testing.T) {
	if got := ClusterAndOrder(nil, nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestClusterAndOrder_GapStartsNewCluster(t *testing.T) {
	txs := []types.Transaction{
		txFor("a", "alice", "q", 0),
		txFor("b", "bob", "q", 5000), // gap > ClusterWindow starts a new cluster
	}
	got := ClusterAndOrder(txs, nil)
	if len(got) != 2 {
		t.Fatalf("expected both transactions retained, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("expected original order preserved across disjoint clusters, got %+v", got)
	}
}

func TestClusterAndOrder_SameClusterReorderedByWeightThenOwner(t *testing.T) {
	reps := reputation.Table{"alice": 0.5, "bob": 5.0}
	txs := []types.Transaction{
		txFor("a", "alice", "q", 100),
		txFor("b", "bob", "q", 200), // within ClusterWindow of a
	}
	got := ClusterAndOrder(txs, reps)
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	if got[0].Owner != "bob" {
		t.Fatalf("expected higher-weight owner bob first in cluster, got %+v", got)
	}
}

func TestClusterAndOrder_TieWeightOrdersByOwnerThenTimestamp(t *testing.T) {
	txs := []types.Transaction{
		txFor("a", "zeta", "q", 100),
		txFor("b", "alpha", "q", 200),
	}
	got := ClusterAndOrder(txs, nil) // nil reps -> every owner weighs 0, a tie
	if got[0].Owner != "alpha" || got[1].Owner != "zeta" {
		t.Fatalf("expected ascending-owner tie-break, got %+v", got)
	}
}

func TestClusterAndOrder_RetainsAllMembers(t *testing.T) {
	txs := []types.Transaction{
		txFor("a", "alice", "q1", 0),
		txFor("b", "bob", "q2", 100),
		txFor("c", "carol", "q3", 900),
		txFor("d", "dave", "q4", 5000),
	}
	got := ClusterAndOrder(txs, nil)
	if len(got) != len(txs) {
		t.Fatalf("expected all %d transactions retained, got %d", len(txs), len(got))
	}
}
