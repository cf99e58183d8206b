// Package merge implements the four-level conflict-resolution merge of
// spec.md §4.5: identity dedup, timestamp clustering, logical-latest
// selection, and hybrid fork selection — the guarantee underneath
// zero-loss blockchain reconciliation across partitions.
//
// The shape follows the teacher's node/store/reorg.go (find a fork point,
// discard everything not on the winning side) and consensus/fork_choice.go
// (sum a per-block scalar across a candidate chain to pick a winner).
package merge

import (
	"sort"

	"pok.dev/core/reputation"
	"pok.dev/core/types"
)

// ResolveIdentity is Level 1 (spec.md §4.5): group transactions by id, and
// within each group of more than one member keep only the one whose owner
// has the highest ln(1+reputation), ties broken by ascending owner string.
// An owner absent from reps is treated as reputation 0 (weight 0), the same
// default spec.md's UnknownOwner handling assumes before a provisional node
// is created.
func ResolveIdentity(txs []types.Transaction, reps types.ReputationTable) []types.Transaction {
	groups := make(map[string][]types.Transaction)
	var order []string
	for _, tx := range txs {
		if _, seen := groups[tx.ID]; !seen {
			order = append(order, tx.ID)
		}
		groups[tx.ID] = append(groups[tx.ID], tx)
	}

	out := make([]types.Transaction, 0, len(order))
	for _, id := range order {
		group := groups[id]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}
		out = append(out, pickHighestReputation(group, reps))
	}
	return out
}

func ownerWeight(owner string, reps types.ReputationTable) float64 {
	if reps == nil {
		return 0
	}
	r, ok := reps.Reputation(owner)
	if !ok {
		return 0
	}
	return reputation.Weight(r)
}

func pickHighestReputation(group []types.Transaction, reps types.ReputationTable) types.Transaction {
	sorted := make([]types.Transaction, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Owner < sorted[j].Owner })

	best := sorted[0]
	bestWeight := ownerWeight(best.Owner, reps)
	for _, tx := range sorted[1:] {
		w := ownerWeight(tx.Owner, reps)
		if w > bestWeight {
			best = tx
			bestWeight = w
		}
	}
	return best
}
