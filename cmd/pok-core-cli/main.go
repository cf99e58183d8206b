// Command pok-core-cli is a thin demonstration front-end for the core: it
// replays a JSON event script against one façade-owned State and reports
// the result of each event, in the teacher's cmd/rubin-node/main.go style
// (flag-based config, plain fmt.Fprintf to an injected writer, a testable
// run(args, stdout, stderr) int entry point).
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"pok.dev/core/state"
	"pok.dev/core/types"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// event is one element of the replay script's JSON array. Which fields are read depends on
// Op; unused fields are ignored.
type event struct {
	Op            string `json:"op"`
	Pubkey        string `json:"pubkey"`
	Archetype     string `json:"archetype"`
	Owner         string `json:"owner"`
	QuestionID    string `json:"question_id"`
	Answer        any    `json:"answer"`
	Kind          string `json:"kind"`
	PeerTimestamp int64  `json:"peer_timestamp"`
	WireBase64    string `json:"wire_base64"`
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pok-core-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)

	eventsPath := fs.String("events", "", "path to a JSON array of events to replay")
	questionOrderCSV := fs.String("curriculum", "", "comma-separated question ids in curriculum order (optional)")
	dryRun := fs.Bool("dry-run", false, "print the effective config and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := state.DefaultConfig()
	cfg.QuestionOrder = splitNonEmpty(*questionOrderCSV)
	if err := state.Validate(cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}
	if *dryRun {
		if err := printConfig(stdout, cfg); err != nil {
			_, _ = fmt.Fprintf(stderr, "config encode failed: %v\n", err)
			return 1
		}
		return 0
	}

	if *eventsPath == "" {
		_, _ = fmt.Fprintln(stderr, "missing required -events path")
		return 2
	}
	raw, err := os.ReadFile(*eventsPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "read events failed: %v\n", err)
		return 2
	}
	var events []event
	if err := json.Unmarshal(raw, &events); err != nil {
		_, _ = fmt.Fprintf(stderr, "parse events failed: %v\n", err)
		return 2
	}

	facade := state.NewFacade(cfg, func() int64 { return time.Now().UnixMilli() })
	for i, ev := range events {
		if err := applyEvent(facade, ev, stdout); err != nil {
			_, _ = fmt.Fprintf(stderr, "event %d (%s) failed: %v\n", i, ev.Op, err)
			return 1
		}
	}
	return 0
}

func applyEvent(facade *state.Facade, ev event, stdout io.Writer) error {
	switch ev.Op {
	case "add_node":
		facade.AddNode(ev.Pubkey, ev.Archetype)
		_, _ = fmt.Fprintf(stdout, "add_node: pubkey=%s archetype=%s\n", ev.Pubkey, ev.Archetype)
		return nil

	case "submit":
		tx, err := facade.Submit(ev.Owner, ev.QuestionID, ev.Answer, types.Kind(ev.Kind))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "submit: id=%s owner=%s question=%s hash=%s\n", tx.ID, tx.Owner, tx.QuestionID, tx.Payload.Hash)
		return nil

	case "propose_block":
		result := facade.ProposeBlock(ev.Owner)
		if !result.Proposed {
			_, _ = fmt.Fprintf(stdout, "propose_block: owner=%s proposed=false\n", ev.Owner)
			return nil
		}
		_, _ = fmt.Fprintf(stdout, "propose_block: owner=%s proposed=true hash=%s tx_count=%d\n", ev.Owner, result.Block.Hash, len(result.Block.Transactions))
		return nil

	case "create_delta":
		encoded, err := facade.CreateDelta(ev.PeerTimestamp)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "create_delta: size=%d wire_base64=%s\n", encoded.Size, base64.StdEncoding.EncodeToString(encoded.Bytes))
		return nil

	case "merge_delta":
		wire, err := base64.StdEncoding.DecodeString(ev.WireBase64)
		if err != nil {
			return fmt.Errorf("invalid wire_base64: %w", err)
		}
		result, err := facade.MergeDelta(wire)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "merge_delta: output_count=%d identity_dropped=%d latest_dropped=%d warnings=%d\n",
			result.Stats.OutputCount, result.Stats.IdentityDropped, result.Stats.LatestDropped, len(result.Warnings))
		return nil

	case "reputation":
		r, ok := facade.Reputation(ev.Pubkey)
		_, _ = fmt.Fprintf(stdout, "reputation: pubkey=%s known=%v value=%v\n", ev.Pubkey, ok, r)
		return nil

	case "consensus_status":
		status := facade.ConsensusStatus(ev.QuestionID)
		_, _ = fmt.Fprintf(stdout, "consensus_status: question=%s convergence=%.4f attestations=%d ready=%v\n",
			ev.QuestionID, status.Convergence, status.AttestationCount, status.Ready)
		return nil

	default:
		return fmt.Errorf("unknown op %q", ev.Op)
	}
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				out = append(out, csv[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func printConfig(w io.Writer, cfg state.Config) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
