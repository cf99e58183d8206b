package merge

import (
	"sort"

	"pok.dev/core/consensus"
	"pok.dev/core/types"
)

// Result is the outcome of a full four-level merge (spec.md §4.5): the
// reconciled transaction set, partitioned by whether it landed in the
// selected fork's chain content or remains loose mempool material, plus the
// stats a sync-history record needs.
type Result struct {
	Chain       []types.Transaction
	Mempool     []types.Transaction
	SelectedFork Fork
	ForkWeight  float64
	Stats       Stats
}

// Stats summarizes a merge for sync-history reporting.
type Stats struct {
	InputCount      int
	IdentityDropped int
	LatestDropped   int
	OutputCount     int
	CandidateForks  int
}

// Merge runs Levels 1-3 over txs (identity dedup, timestamp clustering,
// logical-latest-per-owner-question) and Level 4 over the supplied fork
// candidates, then partitions the Level-3 survivors into the blocks the
// winning fork actually contains versus everything else (spec.md §4.5's
// zero-loss guarantee: every surviving transaction appears in either the
// chain or the mempool bucket, never discarded silently).
func Merge(cfg consensus.Config, txs []types.Transaction, reps types.ReputationTable, localChains map[string][]types.Block, peerBlocks []types.Block) Result {
	level1 := ResolveIdentity(txs, reps)
	level2 := ClusterAndOrder(level1, reps)
	level3 := LatestPerOwnerQuestion(level2)

	candidates := Candidates(localChains, peerBlocks)
	fork, ok := SelectFork(cfg, candidates, reps)

	inChain := make(map[string]bool)
	if ok {
		for _, b := range fork.Blocks {
			for _, tx := range b.Transactions {
				inChain[tx.ID] = true
			}
		}
	}

	chain := make([]types.Transaction, 0, len(level3))
	mempool := make([]types.Transaction, 0, len(level3))
	for _, tx := range level3 {
		if inChain[tx.ID] {
			chain = append(chain, tx)
		} else {
			mempool = append(mempool, tx)
		}
	}

	var weight float64
	if ok {
		weight = Weight(cfg, fork, reps)
	}

	return Result{
		Chain:        chain,
		Mempool:      mempool,
		SelectedFork: fork,
		ForkWeight:   weight,
		Stats: Stats{
			InputCount:      len(txs),
			IdentityDropped: len(txs) - len(level1),
			LatestDropped:   len(level2) - len(level3),
			OutputCount:     len(level3),
			CandidateForks:  len(candidates),
		},
	}
}

// sortedTransactionIDs is a small helper used by tests to get a
// deterministic view of a transaction set.
func sortedTransactionIDs(txs []types.Transaction) []string {
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}
	sort.Strings(ids)
	return ids
}
