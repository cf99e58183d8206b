package state

import (
	"errors"
	"fmt"

	"pok.dev/core/consensus"
	"pok.dev/core/reputation"
)

// Config carries the tunable constants every layer of the core exposes as
// overridable, the same way node/config.go lets the teacher's node override
// network parameters without touching code.
type Config struct {
	// Reputation is checked by Validate but not passed to the reward pass:
	// ProposeBlock applies reputation updates with reputation.DefaultConfig().
	Reputation reputation.Config
	Consensus  consensus.Config
	// QuestionOrder seeds the façade's Curriculum; Size() drives
	// progressive quorum (spec.md §4.3).
	QuestionOrder []string
}

// DefaultConfig returns the literal constants of spec.md §4.2-§4.3 with an
// empty curriculum.
func DefaultConfig() Config {
	return Config{
		Reputation: reputation.DefaultConfig(),
		Consensus:  consensus.DefaultConfig(),
	}
}

// Validate rejects configs with nonsensical tunables. A zero-valued field
// means "use the package default" throughout reputation/ and consensus/
// (see e.g. reputation.Update's cfg.RepMin == 0 fallback), so only non-zero
// fields are checked here: a deployment can retune the constants, but not
// invert their meaning.
func Validate(cfg Config) error {
	if cfg.Reputation.RepMin != 0 && cfg.Reputation.RepMin <= 0 {
		return errors.New("reputation.rep_min must be > 0")
	}
	if cfg.Reputation.RepMax != 0 && cfg.Reputation.RepMax <= cfg.Reputation.RepMin {
		return errors.New("reputation.rep_max must be > rep_min")
	}
	if cfg.Reputation.MaxReplayDepth < 0 {
		return errors.New("reputation.max_replay_depth must be >= 0")
	}
	if cfg.Consensus.ConvergenceThreshold != 0 && (cfg.Consensus.ConvergenceThreshold < 0 || cfg.Consensus.ConvergenceThreshold > 1) {
		return fmt.Errorf("consensus.convergence_threshold must be in (0, 1], got %v", cfg.Consensus.ConvergenceThreshold)
	}
	if cfg.Consensus.BaseQuorum < 0 {
		return errors.New("consensus.base_quorum must be >= 0")
	}
	if cfg.Consensus.QuorumFraction != 0 && (cfg.Consensus.QuorumFraction < 0 || cfg.Consensus.QuorumFraction > 1) {
		return errors.New("consensus.quorum_fraction must be in (0, 1]")
	}
	if cfg.Consensus.EarlyProgressQuorum < 0 || cfg.Consensus.LateProgressQuorum < 0 {
		return errors.New("consensus progress quorums must be >= 0")
	}
	return nil
}
