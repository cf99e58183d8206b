// Package consensus implements the weighted-convergence consensus engine of
// spec.md §4.3: quorum math, readiness checks, consensus-answer selection,
// and the pure block-proposal protocol.
//
// The grouping-then-scoring shape (bucket attestations by a logical key, sum
// a per-item weight per bucket, pick the max) follows the same pattern as an
// eth2-style attestation pool aggregating by data key before scoring — here
// the bucket key is simply the answer hash.
package consensus

import (
	"sort"

	"pok.dev/core/reputation"
	"pok.dev/core/types"
)

// Tunable constants (spec.md §4.3).
const (
	ConvergenceThreshold = 0.7
	ApRevealWeight       = 10.0
	BaseQuorum           = 3
	QuorumFraction       = 0.3
	EarlyProgressQuorum  = 2
	LateProgressQuorum   = 4
)

// Config carries the tunable constants, overridable per classroom
// deployment the same way node/config.go lets the teacher's node override
// network parameters.
type Config struct {
	ConvergenceThreshold float64
	ApRevealWeight       float64
	BaseQuorum           int
	QuorumFraction       float64
	EarlyProgressQuorum  int
	LateProgressQuorum   int
}

// DefaultConfig returns the literal constants from spec.md §4.3.
func DefaultConfig() Config {
	return Config{
		ConvergenceThreshold: ConvergenceThreshold,
		ApRevealWeight:       ApRevealWeight,
		BaseQuorum:           BaseQuorum,
		QuorumFraction:       QuorumFraction,
		EarlyProgressQuorum:  EarlyProgressQuorum,
		LateProgressQuorum:   LateProgressQuorum,
	}
}

// attestationWeight assigns a single attestation its weight per spec.md
// §4.3: AP_REVEAL_WEIGHT for ap_reveal transactions; ln(1+reputation(owner))
// when reps is non-nil and the owner is known; else 1.0.
func attestationWeight(cfg Config, tx types.Transaction, reps types.ReputationTable) float64 {
	if tx.Kind == types.KindApReveal {
		w := cfg.ApRevealWeight
		if w == 0 {
			w = ApRevealWeight
		}
		return w
	}
	if reps != nil {
		if r, ok := reps.Reputation(tx.Owner); ok {
			return reputation.Weight(r)
		}
	}
	return 1.0
}

// WeightedConvergence groups attestations by payload.Hash, sums each
// attestation's weight into its group, and returns the dominant group's
// weight over the total weight. reps may be nil for unweighted mode (every
// non-ap_reveal attestation then weighs 1.0). Empty input returns 0.0
// (spec.md §4.3).
func WeightedConvergence(cfg Config, attestations []types.Transaction, reps types.ReputationTable) float64 {
	if len(attestations) == 0 {
		return 0.0
	}
	groups := make(map[string]float64, len(attestations))
	var total float64
	for _, tx := range attestations {
		w := attestationWeight(cfg, tx, reps)
		groups[tx.Payload.Hash] += w
		total += w
	}
	if total == 0 {
		return 0.0
	}
	var maxWeight float64
	for _, w := range groups {
		if w > maxWeight {
			maxWeight = w
		}
	}
	return maxWeight / total
}

// ConsensusAnswer returns the payload.Hash with the maximum total weight
// under WeightedConvergence's weighting rules, ties broken by ascending hex
// string (spec.md §4.3). The second return value is false for empty input.
func ConsensusAnswer(cfg Config, attestations []types.Transaction, reps types.ReputationTable) (string, bool) {
	if len(attestations) == 0 {
		return "", false
	}
	groups := make(map[string]float64, len(attestations))
	for _, tx := range attestations {
		groups[tx.Payload.Hash] += attestationWeight(cfg, tx, reps)
	}

	hashes := make([]string, 0, len(groups))
	for h := range groups {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	best := hashes[0]
	bestWeight := groups[best]
	for _, h := range hashes[1:] {
		if groups[h] > bestWeight {
			best = h
			bestWeight = groups[h]
		}
	}
	return best, true
}

// DynamicQuorum returns max(BaseQuorum, floor(QuorumFraction*activeNodes))
// (spec.md §4.3). It is monotone non-decreasing in activeNodes.
func DynamicQuorum(cfg Config, activeNodes int) int {
	base := cfg.BaseQuorum
	if base == 0 {
		base = BaseQuorum
	}
	fraction := cfg.QuorumFraction
	if fraction == 0 {
		fraction = QuorumFraction
	}
	scaled := int(fraction * float64(activeNodes))
	if scaled > base {
		return scaled
	}
	return base
}

// ProgressiveQuorum returns EarlyProgressQuorum when questionIndex is below
// half the curriculum size, else LateProgressQuorum (spec.md §4.3).
func ProgressiveQuorum(cfg Config, questionIndex, curriculumSize int) int {
	early := cfg.EarlyProgressQuorum
	if early == 0 {
		early = EarlyProgressQuorum
	}
	late := cfg.LateProgressQuorum
	if late == 0 {
		late = LateProgressQuorum
	}
	if 2*questionIndex < curriculumSize {
		return early
	}
	return late
}

// EffectiveQuorum is the maximum of DynamicQuorum and ProgressiveQuorum
// (spec.md §4.3).
func EffectiveQuorum(cfg Config, activeNodes, questionIndex, curriculumSize int) int {
	d := DynamicQuorum(cfg, activeNodes)
	p := ProgressiveQuorum(cfg, questionIndex, curriculumSize)
	if d > p {
		return d
	}
	return p
}

// Ready reports whether a question is ready for block inclusion (spec.md
// §4.3): attestation count at or above the effective quorum, and weighted
// convergence at or above ConvergenceThreshold.
func Ready(cfg Config, attestations []types.Transaction, reps types.ReputationTable, activeNodes, questionIndex, curriculumSize int) bool {
	quorum := EffectiveQuorum(cfg, activeNodes, questionIndex, curriculumSize)
	if len(attestations) < quorum {
		return false
	}
	threshold := cfg.ConvergenceThreshold
	if threshold == 0 {
		threshold = ConvergenceThreshold
	}
	return WeightedConvergence(cfg, attestations, reps) >= threshold
}
