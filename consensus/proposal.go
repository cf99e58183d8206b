package consensus

import (
	"sort"

	"pok.dev/core/types"
)

// Curriculum is the minimal opaque-curriculum view the proposal protocol
// needs: a question's position (for progressive quorum) and the total
// curriculum size. spec.md §4.6 keeps curriculum metadata opaque to the
// core; this is the one sliver of it the consensus engine must see.
type Curriculum interface {
	QuestionIndex(questionID string) int
	Size() int
}

// Proposal is the pure result of the block-proposal protocol: the ordered
// transactions a PoK block would contain if proposed now. An empty Proposal
// means nothing in the mempool is ready yet.
type Proposal struct {
	Transactions []types.Transaction
}

// Propose computes spec.md §4.3's block-proposal protocol: every completion
// in mempool that passes the readiness check, plus every attestation in
// mempool referencing one of those now-ready questions.
//
// Propose is a pure function of (mempool, reps, activeNodes, curriculum): it
// performs no mutation and is safe to call repeatedly. Calling it twice with
// an unchanged mempool yields the same (non-empty) result both times —
// idempotence in spec.md's sense ("second call on unchanged inputs yields an
// empty proposal") refers to the caller removing the proposed transactions
// from the mempool between calls, which is the state manager's job, not
// this function's.
func Propose(cfg Config, mempool []types.Transaction, reps types.ReputationTable, activeNodes int, curriculum Curriculum) Proposal {
	byQuestion := make(map[string][]types.Transaction)
	for _, tx := range mempool {
		byQuestion[tx.QuestionID] = append(byQuestion[tx.QuestionID], tx)
	}

	curriculumSize := 0
	if curriculum != nil {
		curriculumSize = curriculum.Size()
	}

	readyQuestions := make(map[string]bool)
	for _, tx := range mempool {
		if tx.Kind != types.KindCompletion {
			continue
		}
		if readyQuestions[tx.QuestionID] {
			continue
		}
		questionIndex := 0
		if curriculum != nil {
			questionIndex = curriculum.QuestionIndex(tx.QuestionID)
		}
		universe := byQuestion[tx.QuestionID]
		if Ready(cfg, universe, reps, activeNodes, questionIndex, curriculumSize) {
			readyQuestions[tx.QuestionID] = true
		}
	}

	if len(readyQuestions) == 0 {
		return Proposal{}
	}

	var out []types.Transaction
	for _, tx := range mempool {
		if readyQuestions[tx.QuestionID] {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return Proposal{Transactions: out}
}
