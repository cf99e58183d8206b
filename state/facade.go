package state

import (
	"github.com/google/uuid"

	"pok.dev/core/delta"
	"pok.dev/core/types"
)

// Facade owns one ambient State value for applications that don't want to
// thread state through themselves (spec.md §9: "expose a thin façade that
// owns one such value for applications that want ambient state"). It is not
// safe for concurrent use — spec.md §5 mandates single-threaded, cooperative
// scheduling, so a Facade is meant to be driven from one goroutine.
type Facade struct {
	cfg   Config
	state State
	now   func() int64
}

// NewFacade constructs a Facade around a fresh State. now supplies the
// monotonic millisecond clock every operation needing a timestamp uses; it
// is called without a nil check, so now must not be nil.
func NewFacade(cfg Config, now func() int64) *Facade {
	s := Init()
	s.Curriculum = Curriculum{QuestionOrder: cfg.QuestionOrder}
	return &Facade{cfg: cfg, state: s, now: now}
}

// State returns a read-only snapshot of the façade's current state.
func (f *Facade) State() State {
	return f.state
}

// AddNode inserts a node (spec.md §6's `add_node`).
func (f *Facade) AddNode(pubkey, archetype string) {
	f.state = AddNode(f.state, pubkey, archetype)
}

// Submit mints a transaction id and submits an attestation, returning the
// constructed transaction (spec.md §6's `submit`).
func (f *Facade) Submit(owner, questionID string, answer any, kind types.Kind) (types.Transaction, error) {
	id := uuid.NewString()
	next, tx, err := Submit(f.state, owner, questionID, answer, kind, id, f.now())
	if err != nil {
		return types.Transaction{}, err
	}
	f.state = next
	return tx, nil
}

// ProposeBlock runs the block-proposal protocol for owner, minting a random
// UUID as the block hash and stamping the block with the current timestamp
// (spec.md §6's `propose_block`).
func (f *Facade) ProposeBlock(owner string) ProposeBlockResult {
	blockHash := uuid.NewString()
	next, result := ProposeBlock(f.cfg.Consensus, f.state, owner, blockHash, f.now())
	f.state = next
	return result
}

// CreateDelta runs delta construction and encoding (spec.md §6's
// `create_delta`).
func (f *Facade) CreateDelta(peerTimestamp int64) (delta.EncodedDelta, error) {
	return CreateDelta(f.state, peerTimestamp, f.now())
}

// MergeDelta decodes, validates, and merges a peer delta into the façade's
// state (spec.md §6's `merge_delta`).
func (f *Facade) MergeDelta(wire []byte) (MergeDeltaResult, error) {
	next, result, err := MergeDelta(f.cfg.Consensus, f.state, wire, f.now())
	if err != nil {
		return MergeDeltaResult{}, err
	}
	f.state = next
	return result, nil
}

// Reputation reports pubkey's current reputation (spec.md §6's
// `reputation`).
func (f *Facade) Reputation(pubkey string) (float64, bool) {
	return Reputation(f.state, pubkey)
}

// ConsensusStatus reports convergence, attestation count, and readiness for
// questionID (spec.md §6's `consensus_status`).
func (f *Facade) ConsensusStatus(questionID string) ConsensusStatus {
	return ConsensusStatus(f.cfg.Consensus, f.state, questionID)
}
