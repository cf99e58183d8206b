package merge

import (
	"math"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"pok.dev/core/consensus"
	"pok.dev/core/reputation"
	"pok.dev/core/types"
)

// ForkWeights (spec.md §4.5 Level 4).
const (
	forkWeightReputation = 0.35
	forkWeightRecency    = 0.35
	forkWeightConsensus  = 0.30
	recencyDecay         = 0.95

	diversityMaxBonus    = 0.15
	diversityMinProposers = 3
	repeatProposerLimit  = 5
	repeatPenaltyPerUnit = 0.10
	repeatPenaltyCap     = 0.50
)

// Fork is a candidate chain under consideration by hybrid fork selection.
type Fork struct {
	Owner  string // the local node whose chain this candidate extends
	Blocks []types.Block
}

func (f Fork) terminalProposer() string {
	if len(f.Blocks) == 0 {
		return f.Owner
	}
	return f.Blocks[len(f.Blocks)-1].Proposer
}

func (f Fork) terminalHash() string {
	if len(f.Blocks) == 0 {
		return ""
	}
	return f.Blocks[len(f.Blocks)-1].Hash
}

// Candidates builds one fork candidate per local chain (spec.md §4.5 Level
// 4): each chain is extended with peer blocks whose proposer matches the
// chain's terminal proposer (its own pubkey, for a chain with no blocks
// yet — the natural reading for a freshly bootstrapped node), in timestamp
// order, excluding any peer block already present by hash.
func Candidates(localChains map[string][]types.Block, peerBlocks []types.Block) []Fork {
	var owners []string
	for owner := range localChains {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	out := make([]Fork, 0, len(owners))
	for _, owner := range owners {
		chain := localChains[owner]
		present := mapset.NewThreadUnsafeSet[string]()
		for _, b := range chain {
			present.Add(b.Hash)
		}
		terminal := owner
		if len(chain) > 0 {
			terminal = chain[len(chain)-1].Proposer
		}

		var extension []types.Block
		for _, b := range peerBlocks {
			if b.Proposer == terminal && !present.Contains(b.Hash) {
				extension = append(extension, b)
			}
		}
		sort.SliceStable(extension, func(i, j int) bool { return extension[i].Timestamp < extension[j].Timestamp })

		blocks := make([]types.Block, 0, len(chain)+len(extension))
		blocks = append(blocks, chain...)
		blocks = append(blocks, extension...)
		out = append(out, Fork{Owner: owner, Blocks: blocks})
	}
	return out
}

// consensusStrength is the mean weighted convergence (spec.md §4.3) across
// the distinct questions touched by the fork's OWN transactions — the
// fork-local subset spec.md §9 prescribes, never the whole transaction
// pool.
func consensusStrength(cfg consensus.Config, fork Fork, reps types.ReputationTable) float64 {
	byQuestion := make(map[string][]types.Transaction)
	var order []string
	for _, b := range fork.Blocks {
		for _, tx := range b.Transactions {
			if _, ok := byQuestion[tx.QuestionID]; !ok {
				order = append(order, tx.QuestionID)
			}
			byQuestion[tx.QuestionID] = append(byQuestion[tx.QuestionID], tx)
		}
	}
	if len(order) == 0 {
		return 0
	}
	var sum float64
	for _, q := range order {
		sum += consensus.WeightedConvergence(cfg, byQuestion[q], reps)
	}
	return sum / float64(len(order))
}

// diversityBonus implements spec.md §4.5's diversity-bonus formula.
func diversityBonus(fork Fork) float64 {
	counts := make(map[string]int)
	proposers := mapset.NewThreadUnsafeSet[string]()
	for _, b := range fork.Blocks {
		counts[b.Proposer]++
		proposers.Add(b.Proposer)
	}
	u := proposers.Cardinality()

	var base float64
	if u >= diversityMinProposers {
		base = float64(u) / 10.0 * diversityMaxBonus
		if base > diversityMaxBonus {
			base = diversityMaxBonus
		}
		if base < 0 {
			base = 0
		}
	} else {
		base = 0.5 * diversityMaxBonus * float64(u) / 3.0
	}

	var penalty float64
	for _, c := range counts {
		if c > repeatProposerLimit {
			excess := c - repeatProposerLimit
			penalty += repeatPenaltyPerUnit * float64(excess)
		}
	}
	if penalty > repeatPenaltyCap {
		penalty = repeatPenaltyCap
	}

	bonus := base - penalty
	if bonus < 0 {
		return 0
	}
	return bonus
}

// Weight computes the hybrid fork weight W (spec.md §4.5):
//
//	W = 0.35*Σ ln(1+rep(proposer_i)) + 0.35*Σ 0.95^i + 0.30*(consensus_strength + diversity_bonus)
func Weight(cfg consensus.Config, fork Fork, reps types.ReputationTable) float64 {
	var repSum, recencySum float64
	for i, b := range fork.Blocks {
		repSum += ownerWeightOrZero(b.Proposer, reps)
		recencySum += math.Pow(recencyDecay, float64(i))
	}
	cs := consensusStrength(cfg, fork, reps)
	db := diversityBonus(fork)
	return forkWeightReputation*repSum + forkWeightRecency*recencySum + forkWeightConsensus*(cs+db)
}

func ownerWeightOrZero(owner string, reps types.ReputationTable) float64 {
	if reps == nil {
		return 0
	}
	r, ok := reps.Reputation(owner)
	if !ok {
		return 0
	}
	return reputation.Weight(r)
}

// SelectFork picks the maximum-weight candidate (spec.md §4.5), breaking
// ties by greater height then ascending terminal-block hash. It returns
// false if candidates is empty.
func SelectFork(cfg consensus.Config, candidates []Fork, reps types.ReputationTable) (Fork, bool) {
	if len(candidates) == 0 {
		return Fork{}, false
	}
	best := candidates[0]
	bestWeight := Weight(cfg, best, reps)
	for _, f := range candidates[1:] {
		w := Weight(cfg, f, reps)
		switch {
		case w > bestWeight:
			best, bestWeight = f, w
		case w == bestWeight:
			if len(f.Blocks) > len(best.Blocks) {
				best, bestWeight = f, w
			} else if len(f.Blocks) == len(best.Blocks) && f.terminalHash() < best.terminalHash() {
				best, bestWeight = f, w
			}
		}
	}
	return best, true
}
