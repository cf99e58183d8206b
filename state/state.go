// Package state implements the state manager of spec.md §4.6: a single
// owned value threaded through the core's operations, each a pure function
// from (state, event) to (new state, emitted effects). The core itself
// never runs concurrently (spec.md §5); a single goroutine owns State at
// any moment.
//
// The "operations return a new state value, never mutate the old one in
// place" discipline follows the teacher's node/store/reorg.go, which
// computes a candidate chainstate fully before swapping it in rather than
// mutating the live one mid-reorg.
package state

import (
	"sort"

	"pok.dev/core/reputation"
	"pok.dev/core/types"
)

// Node mirrors spec.md §3's Node entity.
type Node struct {
	Pubkey           string
	Archetype        string
	Mempool          []types.Transaction
	Chain            []types.Block
	Reputation       float64
	Progress         int
	ConsensusHistory map[string]string
}

// SyncHistoryEntry records one merge-delta event (spec.md §3).
type SyncHistoryEntry struct {
	Timestamp        int64
	MerkleRoot       string
	IdentityDropped  int
	LatestDropped    int
	OutputCount      int
	Completed        bool
}

// State is the state manager's single owned value: the node table,
// current-user reference, opaque curriculum metadata, and sync history
// (spec.md §4.6).
type State struct {
	Nodes       map[string]*Node
	CurrentUser string
	Curriculum  Curriculum
	SyncHistory []SyncHistoryEntry
}

// Curriculum is the opaque curriculum metadata the state manager carries
// for the consensus engine's progressive quorum (spec.md §4.3, §4.6).
// QuestionOrder lists question IDs in curriculum order; an ID absent from
// it is treated as index 0.
type Curriculum struct {
	QuestionOrder []string
}

func (c Curriculum) QuestionIndex(questionID string) int {
	for i, q := range c.QuestionOrder {
		if q == questionID {
			return i
		}
	}
	return 0
}

func (c Curriculum) Size() int {
	return len(c.QuestionOrder)
}

// Init returns a fresh, empty State (spec.md §6's `init() -> State`).
func Init() State {
	return State{Nodes: make(map[string]*Node)}
}

// reputationTable returns a snapshot reputation.Table view over s's nodes,
// suitable for passing into the reputation/consensus/merge packages, which
// only ever need the read-only types.ReputationTable view.
func (s State) reputationTable() reputation.Table {
	t := make(reputation.Table, len(s.Nodes))
	for pubkey, n := range s.Nodes {
		t[pubkey] = n.Reputation
	}
	return t
}

// activeNodeCount is the number of nodes currently known to the state, used
// as consensus's "active_nodes" input (spec.md §4.3).
func (s State) activeNodeCount() int {
	return len(s.Nodes)
}

// sortedPubkeys returns the node table's keys in ascending order, for
// deterministic iteration wherever node order affects output.
func (s State) sortedPubkeys() []string {
	keys := make([]string, 0, len(s.Nodes))
	for k := range s.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// allTransactions collects every transaction across every node's mempool
// and chain-block contents (spec.md §4.4 step 1).
func (s State) allTransactions() []types.Transaction {
	var out []types.Transaction
	for _, pubkey := range s.sortedPubkeys() {
		n := s.Nodes[pubkey]
		out = append(out, n.Mempool...)
		for _, b := range n.Chain {
			out = append(out, b.Transactions...)
		}
	}
	return out
}

// allBlocks collects every block across every node's chain (spec.md §4.4
// step 2).
func (s State) allBlocks() []types.Block {
	var out []types.Block
	for _, pubkey := range s.sortedPubkeys() {
		out = append(out, s.Nodes[pubkey].Chain...)
	}
	return out
}
