package merge

import (
	"sort"

	"pok.dev/core/types"
)

// ClusterWindow is the timestamp-clustering constant (spec.md §4.5, in
// milliseconds).
const ClusterWindow = 1000

// weightFor is the per-transaction weight used to order a cluster's members
// (spec.md §4.5 Level 2): ln(1+reputation(owner)), or 0 if the owner is
// unknown.
func weightFor(tx types.Transaction, reps types.ReputationTable) float64 {
	return ownerWeight(tx.Owner, reps)
}

// ClusterAndOrder is Level 2 (spec.md §4.5): sort by timestamp, walk the
// sequence forming clusters (a gap from the previous cluster's last
// timestamp exceeding ClusterWindow starts a new cluster), and within any
// cluster of size > 1 reorder members by (descending weight, ascending
// owner, ascending timestamp). Every input transaction is retained; only
// ordering changes.
func ClusterAndOrder(txs []types.Transaction, reps types.ReputationTable) []types.Transaction {
	if len(txs) == 0 {
		return nil
	}
	sorted := make([]types.Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	var clusters [][]types.Transaction
	current := []types.Transaction{sorted[0]}
	lastTimestamp := sorted[0].Timestamp
	for _, tx := range sorted[1:] {
		if tx.Timestamp-lastTimestamp > ClusterWindow {
			clusters = append(clusters, current)
			current = nil
		}
		current = append(current, tx)
		lastTimestamp = tx.Timestamp
	}
	clusters = append(clusters, current)

	out := make([]types.Transaction, 0, len(sorted))
	for _, cluster := range clusters {
		if len(cluster) > 1 {
			ordered := make([]types.Transaction, len(cluster))
			copy(ordered, cluster)
			sort.SliceStable(ordered, func(i, j int) bool {
				wi, wj := weightFor(ordered[i], reps), weightFor(ordered[j], reps)
				if wi != wj {
					return wi > wj
				}
				if ordered[i].Owner != ordered[j].Owner {
					return ordered[i].Owner < ordered[j].Owner
				}
				return ordered[i].Timestamp < ordered[j].Timestamp
			})
			out = append(out, ordered...)
		} else {
			out = append(out, cluster...)
		}
	}
	return out
}
