package state

import (
	"sort"

	"pok.dev/core/consensus"
	"pok.dev/core/delta"
	"pok.dev/core/hash"
	"pok.dev/core/merge"
	"pok.dev/core/reputation"
	"pok.dev/core/types"
)

// AddNode inserts a node with provisional reputation equal to the current
// median (spec.md §4.6, §3). Returns the new state unchanged if pubkey is
// already present.
func AddNode(s State, pubkey, archetype string) State {
	if _, exists := s.Nodes[pubkey]; exists {
		return s
	}
	out := s
	out.Nodes = make(map[string]*Node, len(s.Nodes)+1)
	for k, v := range s.Nodes {
		out.Nodes[k] = v
	}
	out.Nodes[pubkey] = &Node{
		Pubkey:           pubkey,
		Archetype:        archetype,
		Reputation:       s.reputationTable().Median(),
		ConsensusHistory: make(map[string]string),
	}
	return out
}

// Submit computes the answer's fingerprint, constructs a transaction, and
// appends it to owner's mempool (spec.md §4.6). id and timestamp are
// supplied by the caller (the façade mints them from a clock and a UUID
// generator) so this operation stays a pure function of its inputs.
func Submit(s State, owner, questionID string, answer any, kind types.Kind, id string, timestamp int64) (State, types.Transaction, error) {
	if !kind.Valid() {
		return s, types.Transaction{}, newErr(ErrInvalidKind, string(kind))
	}
	fingerprint, err := hash.Fingerprint(answer)
	if err != nil {
		return s, types.Transaction{}, err
	}
	tx := types.Transaction{
		ID:         id,
		Timestamp:  timestamp,
		Owner:      owner,
		QuestionID: questionID,
		Kind:       kind,
		Payload:    types.Payload{Answer: answer, Hash: fingerprint},
	}

	out := cloneNodes(s)
	n, ok := out.Nodes[owner]
	if !ok {
		n = &Node{Pubkey: owner, Reputation: s.reputationTable().Median(), ConsensusHistory: make(map[string]string)}
		out.Nodes[owner] = n
	}
	n.Mempool = append(append([]types.Transaction{}, n.Mempool...), tx)
	return out, tx, nil
}

// ProposeBlockResult is ProposeBlock's emitted-effects value: the block
// formed (if any) and whether one was proposed.
type ProposeBlockResult struct {
	Block    *types.Block
	Proposed bool
}

// ProposeBlock runs spec.md §4.3's block proposal protocol for owner's
// mempool. On success it moves the selected transactions into a new block
// appended to owner's chain, removes them from the mempool, and applies
// reputation updates (spec.md §4.2) for each completion's question using
// the block's own attestations as the reward universe. blockHash and
// timestamp are supplied by the caller.
func ProposeBlock(cfg consensus.Config, s State, owner string, blockHash string, timestamp int64) (State, ProposeBlockResult) {
	n, ok := s.Nodes[owner]
	if !ok {
		return s, ProposeBlockResult{}
	}

	reps := s.reputationTable()
	proposal := consensus.Propose(cfg, n.Mempool, reps, s.activeNodeCount(), s.Curriculum)
	if len(proposal.Transactions) == 0 {
		return s, ProposeBlockResult{}
	}

	out := cloneNodes(s)
	newMempool := subtractByID(out.Nodes[owner].Mempool, proposal.Transactions)
	block := types.Block{
		Hash:         blockHash,
		Timestamp:    timestamp,
		Proposer:     owner,
		Kind:         "pok",
		Transactions: proposal.Transactions,
	}
	out.Nodes[owner].Mempool = newMempool
	out.Nodes[owner].Chain = append(append([]types.Block{}, out.Nodes[owner].Chain...), block)

	applyReputationUpdates(out, reps, cfg, proposal.Transactions)
	recordConsensusHistory(out.Nodes[owner], proposal.Transactions)

	return out, ProposeBlockResult{Block: &block, Proposed: true}
}

// applyReputationUpdates runs spec.md §4.2's reward pass once per distinct
// question touched by a completion in txs, using the question's own
// attestations within txs (the attestations a ready completion pulled along
// with it, per §4.3's proposal protocol) and the completion's own answer
// hash as the declared final hash.
func applyReputationUpdates(s State, reps reputation.Table, cfg consensus.Config, txs []types.Transaction) {
	byQuestion := make(map[string][]types.Transaction)
	var order []string
	finalHash := make(map[string]string)
	for _, tx := range txs {
		if _, seen := byQuestion[tx.QuestionID]; !seen {
			order = append(order, tx.QuestionID)
		}
		byQuestion[tx.QuestionID] = append(byQuestion[tx.QuestionID], tx)
		if tx.Kind == types.KindCompletion {
			finalHash[tx.QuestionID] = tx.Payload.Hash
		}
	}

	repCfg := reputation.DefaultConfig()
	for _, q := range order {
		h, ok := finalHash[q]
		if !ok {
			continue
		}
		reputation.ProcessRewards(repCfg, reps, byQuestion[q], h)
	}
	for pubkey, r := range reps {
		if n, ok := s.Nodes[pubkey]; ok {
			n.Reputation = r
		}
	}
}

// recordConsensusHistory stamps n's consensus-history map with the outcome
// tag (the completion's own answer hash) of every question a just-proposed
// block resolved (spec.md §3).
func recordConsensusHistory(n *Node, txs []types.Transaction) {
	if n.ConsensusHistory == nil {
		n.ConsensusHistory = make(map[string]string)
	}
	for _, tx := range txs {
		if tx.Kind != types.KindCompletion {
			continue
		}
		n.ConsensusHistory[tx.QuestionID] = tx.Payload.Hash
	}
}

// CreateDelta runs spec.md §4.4's delta construction over the full node
// table and encodes the result (spec.md §6's `create_delta`).
func CreateDelta(s State, peerTimestamp, now int64) (delta.EncodedDelta, error) {
	payload, err := delta.Build(s.allTransactions(), s.allBlocks(), peerTimestamp, now)
	if err != nil {
		return delta.EncodedDelta{}, err
	}
	return delta.Encode(payload)
}

// MergeDeltaResult is MergeDelta's emitted-effects value.
type MergeDeltaResult struct {
	Stats    merge.Stats
	Warnings []Warning
}

// MergeDelta decodes wire, validates its Merkle root, runs spec.md §4.5's
// four-level conflict resolution against the local state and the peer
// delta, installs the resulting state, and appends a sync-history entry
// (spec.md §4.6, §6's `merge_delta`). On any error the input state is
// returned unchanged (spec.md §7).
func MergeDelta(cfg consensus.Config, s State, wire []byte, now int64) (State, MergeDeltaResult, error) {
	payload, err := delta.Decode(wire)
	if err != nil {
		return s, MergeDeltaResult{}, err
	}
	if err := delta.VerifyMerkleRoot(payload); err != nil {
		return s, MergeDeltaResult{}, err
	}

	reps := s.reputationTable()
	var warnings []Warning
	for _, tx := range payload.Transactions {
		if _, ok := reps[tx.Owner]; !ok {
			reps[tx.Owner] = reps.Median()
			warnings = append(warnings, Warning{Code: ErrUnknownOwner, Msg: "provisional node created for " + tx.Owner})
		}
	}

	localTxs := s.allTransactions()
	allTxs := append(append([]types.Transaction{}, localTxs...), payload.Transactions...)

	localChains := make(map[string][]types.Block, len(s.Nodes))
	for pubkey := range s.Nodes {
		localChains[pubkey] = s.Nodes[pubkey].Chain
	}

	result := merge.Merge(cfg, allTxs, reps, localChains, payload.Blocks)

	out := cloneNodes(s)
	for pubkey, r := range reps {
		n, ok := out.Nodes[pubkey]
		if !ok {
			n = &Node{Pubkey: pubkey, ConsensusHistory: make(map[string]string)}
			out.Nodes[pubkey] = n
		}
		n.Reputation = r
	}

	if len(result.SelectedFork.Blocks) > 0 {
		if owner, ok := out.Nodes[result.SelectedFork.Owner]; ok {
			owner.Chain = result.SelectedFork.Blocks
		}
	}

	mempoolByOwner := make(map[string][]types.Transaction)
	for _, tx := range result.Mempool {
		mempoolByOwner[tx.Owner] = append(mempoolByOwner[tx.Owner], tx)
	}
	owners := make([]string, 0, len(mempoolByOwner))
	for owner := range mempoolByOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	for _, owner := range owners {
		n, ok := out.Nodes[owner]
		if !ok {
			n = &Node{Pubkey: owner, ConsensusHistory: make(map[string]string)}
			out.Nodes[owner] = n
		}
		n.Mempool = mempoolByOwner[owner]
	}

	out.SyncHistory = append(append([]SyncHistoryEntry{}, out.SyncHistory...), SyncHistoryEntry{
		Timestamp:       now,
		MerkleRoot:      payload.MerkleRoot,
		IdentityDropped: result.Stats.IdentityDropped,
		LatestDropped:   result.Stats.LatestDropped,
		OutputCount:     result.Stats.OutputCount,
		Completed:       true,
	})

	return out, MergeDeltaResult{Stats: result.Stats, Warnings: warnings}, nil
}

// Reputation returns pubkey's current reputation (spec.md §6's
// `reputation`). The second return value is false if pubkey is unknown.
func Reputation(s State, pubkey string) (float64, bool) {
	n, ok := s.Nodes[pubkey]
	if !ok {
		return 0, false
	}
	return n.Reputation, true
}

// ConsensusStatus is the result of spec.md §6's `consensus_status` query.
type ConsensusStatus struct {
	Convergence      float64
	AttestationCount int
	Ready            bool
}

// ConsensusStatus reports the current convergence, attestation count, and
// readiness for questionID across every node's mempool (spec.md §6).
func ConsensusStatus(cfg consensus.Config, s State, questionID string) ConsensusStatus {
	var universe []types.Transaction
	for _, pubkey := range s.sortedPubkeys() {
		for _, tx := range s.Nodes[pubkey].Mempool {
			if tx.QuestionID == questionID {
				universe = append(universe, tx)
			}
		}
	}
	reps := s.reputationTable()
	questionIndex := s.Curriculum.QuestionIndex(questionID)
	return ConsensusStatus{
		Convergence:      consensus.WeightedConvergence(cfg, universe, reps),
		AttestationCount: len(universe),
		Ready:            consensus.Ready(cfg, universe, reps, s.activeNodeCount(), questionIndex, s.Curriculum.Size()),
	}
}

func cloneNodes(s State) State {
	out := s
	out.Nodes = make(map[string]*Node, len(s.Nodes))
	for k, v := range s.Nodes {
		clone := *v
		clone.Mempool = append([]types.Transaction{}, v.Mempool...)
		clone.Chain = append([]types.Block{}, v.Chain...)
		clone.ConsensusHistory = make(map[string]string, len(v.ConsensusHistory))
		for ck, cv := range v.ConsensusHistory {
			clone.ConsensusHistory[ck] = cv
		}
		out.Nodes[k] = &clone
	}
	out.SyncHistory = append([]SyncHistoryEntry{}, s.SyncHistory...)
	return out
}

func subtractByID(mempool, remove []types.Transaction) []types.Transaction {
	removed := make(map[string]bool, len(remove))
	for _, tx := range remove {
		removed[tx.ID] = true
	}
	out := make([]types.Transaction, 0, len(mempool))
	for _, tx := range mempool {
		if !removed[tx.ID] {
			out = append(out, tx)
		}
	}
	return out
}
