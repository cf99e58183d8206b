// Package reputation implements the time-windowed, accuracy-conditional
// reputation engine of spec.md §4.2: proportion-at-time, the thought-leader
// bonus multiplier, logarithmic weight, and the bounded reputation update.
//
// Every function here is pure: given identical inputs they return identical
// outputs, and none of them perform I/O. The bounded-update shape (clamp a
// running scalar into a fixed range after a deterministic delta) mirrors the
// teacher's p2p ban-score primitive, just climbing instead of decaying.
package reputation

import (
	"math"
	"sort"

	"pok.dev/core/types"
)

// Tunable constants (spec.md §4.2). These are package-level defaults;
// Config lets a classroom deployment override them without touching code.
const (
	ThoughtLeaderThreshold = 0.5
	ThoughtLeaderBonus     = 2.5
	RepMin                 = 0.1
	RepMax                 = 10.0
	MaxReplayDepth         = 50
)

// Config carries the tunable constants as a value so state/Config can expose
// overrides the way node/config.go does for the teacher's node.
type Config struct {
	ThoughtLeaderThreshold float64
	ThoughtLeaderBonus     float64
	RepMin                 float64
	RepMax                 float64
	MaxReplayDepth         int
}

// DefaultConfig returns the literal constants from spec.md §4.2.
func DefaultConfig() Config {
	return Config{
		ThoughtLeaderThreshold: ThoughtLeaderThreshold,
		ThoughtLeaderBonus:     ThoughtLeaderBonus,
		RepMin:                 RepMin,
		RepMax:                 RepMax,
		MaxReplayDepth:         MaxReplayDepth,
	}
}

// Table is a mutable owner -> reputation map satisfying
// types.ReputationTable. Nodes absent from the table are "not in the node
// table" per spec.md §4.2's failure semantics.
type Table map[string]float64

func (t Table) Reputation(owner string) (float64, bool) {
	v, ok := t[owner]
	return v, ok
}

// Median returns the median reputation across the table, or 1.0 if the
// table is empty (spec.md §3: new nodes are seeded at the median reputation,
// or 1.0 if none exist).
func (t Table) Median() float64 {
	if len(t) == 0 {
		return 1.0
	}
	vals := make([]float64, 0, len(t))
	for _, v := range t {
		vals = append(vals, v)
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}

// Clamp bounds r into [min, max].
func Clamp(r, min, max float64) float64 {
	if r < min {
		return min
	}
	if r > max {
		return max
	}
	return r
}

// Weight is the monotone, saturating weight function ln(1+r) (spec.md
// §4.2), defined for r = 0.
func Weight(r float64) float64 {
	return math.Log1p(r)
}

// ProportionAtTime computes the proportion-at-time of (targetTimestamp,
// targetHash) within attestations for a single question (spec.md §4.2):
//
//  1. retain attestations with timestamp strictly less than targetTimestamp;
//  2. if more than MaxReplayDepth remain, keep only the most recent
//     MaxReplayDepth by timestamp;
//  3. tally payload.hash frequency in the retained set;
//  4. return max_count / total_count, or 0.0 if nothing was retained.
//
// The strict inequality is deliberate: it excludes the target attestation
// itself, preventing an attester from amplifying its own proportion.
func ProportionAtTime(cfg Config, attestations []types.Transaction, targetTimestamp int64) float64 {
	retained := make([]types.Transaction, 0, len(attestations))
	for _, a := range attestations {
		if a.Timestamp < targetTimestamp {
			retained = append(retained, a)
		}
	}
	if len(retained) == 0 {
		return 0.0
	}

	maxDepth := cfg.MaxReplayDepth
	if maxDepth <= 0 {
		maxDepth = MaxReplayDepth
	}
	if len(retained) > maxDepth {
		sort.SliceStable(retained, func(i, j int) bool {
			return retained[i].Timestamp < retained[j].Timestamp
		})
		retained = retained[len(retained)-maxDepth:]
	}

	counts := make(map[string]int, len(retained))
	for _, a := range retained {
		counts[a.Payload.Hash]++
	}
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	return float64(maxCount) / float64(len(retained))
}

// BonusMultiplier returns ThoughtLeaderBonus iff proportionAtTime is
// strictly below ThoughtLeaderThreshold AND attestationHash equals
// finalHash; otherwise 1.0. A wrong answer never receives a bonus, no
// matter how early it arrived (spec.md §4.2).
func BonusMultiplier(cfg Config, proportionAtTime float64, finalHash, attestationHash string) float64 {
	threshold := cfg.ThoughtLeaderThreshold
	if threshold == 0 {
		threshold = ThoughtLeaderThreshold
	}
	bonus := cfg.ThoughtLeaderBonus
	if bonus == 0 {
		bonus = ThoughtLeaderBonus
	}
	if proportionAtTime < threshold && attestationHash == finalHash {
		return bonus
	}
	return 1.0
}

// Update computes clamp(r + bonus*weight(r), RepMin, RepMax) (spec.md
// §4.2).
func Update(cfg Config, r, bonus float64) float64 {
	min, max := cfg.RepMin, cfg.RepMax
	if min == 0 && max == 0 {
		min, max = RepMin, RepMax
	}
	return Clamp(r+bonus*Weight(r), min, max)
}

// ProcessRewards applies spec.md §4.2's consensus-event reward pass to
// table in place and returns it. attestations is the full collection for one
// question; finalHash is the declared consensus answer.
//
// Attestations are filtered to finalHash matches, sorted by (timestamp,
// owner) ascending, and applied one at a time — each update commits before
// the next attestation's proportion-at-time is computed, so later
// correct attesters see the elevated prior. Attesters absent from table are
// skipped silently; the batch never fails as a whole.
func ProcessRewards(cfg Config, table Table, attestations []types.Transaction, finalHash string) {
	if table == nil {
		return
	}

	sorted := make([]types.Transaction, len(attestations))
	copy(sorted, attestations)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].Owner < sorted[j].Owner
	})

	matching := make([]types.Transaction, 0, len(sorted))
	for _, a := range sorted {
		if a.Payload.Hash == finalHash {
			matching = append(matching, a)
		}
	}

	for _, a := range matching {
		r, ok := table[a.Owner]
		if !ok {
			continue
		}
		proportion := ProportionAtTime(cfg, attestations, a.Timestamp)
		bonus := BonusMultiplier(cfg, proportion, finalHash, a.Payload.Hash)
		table[a.Owner] = Update(cfg, r, bonus)
	}
}
