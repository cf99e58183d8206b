package merge

import "pok.dev/core/types"

// LatestPerOwnerQuestion is Level 3 (spec.md §4.5): group by (owner,
// question-id) and retain only the member with the maximum timestamp in
// each group — a student's revised answer supersedes their earlier one.
// The output preserves the relative order in which each (owner, question)
// group first appeared in txs; a winning revision takes its group's slot.
func LatestPerOwnerQuestion(txs []types.Transaction) []types.Transaction {
	type key struct{ owner, question string }

	winners := make(map[key]types.Transaction)
	var order []key
	for _, tx := range txs {
		k := key{tx.Owner, tx.QuestionID}
		cur, ok := winners[k]
		if !ok {
			order = append(order, k)
			winners[k] = tx
			continue
		}
		if tx.Timestamp > cur.Timestamp {
			winners[k] = tx
		}
	}

	out := make([]types.Transaction, 0, len(order))
	for _, k := range order {
		out = append(out, winners[k])
	}
	return out
}
