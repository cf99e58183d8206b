// Package types holds the value types shared by every layer of the core:
// hashing, reputation, consensus, delta sync, merge, and state. Keeping them
// here (rather than in the state package) lets the lower layers stay pure
// functions of plain data without importing the orchestration layer.
package types

import "fmt"

// Kind is the tagged-variant discriminant for an attestation transaction
// (spec.md §3).
type Kind string

const (
	KindCompletion  Kind = "completion"
	KindAttestation Kind = "attestation"
	KindApReveal    Kind = "ap_reveal"
)

// Valid reports whether k is one of the three known transaction kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCompletion, KindAttestation, KindApReveal:
		return true
	default:
		return false
	}
}

// Payload carries an attestation's opaque answer and its fingerprint
// (spec.md §3: `payload.answer`, `payload.hash`).
type Payload struct {
	Answer any
	Hash   string
}

// Transaction is the core's atomic unit of attestation: immutable once
// constructed (spec.md §3). ID is expected to be unique per
// producer+timestamp+kind, but the core never enforces that itself — it is
// the caller's (or Submit's) responsibility.
type Transaction struct {
	ID         string
	Timestamp  int64
	Owner      string
	QuestionID string
	Kind       Kind
	Payload    Payload
}

func (t Transaction) String() string {
	return fmt.Sprintf("tx(%s owner=%s q=%s kind=%s ts=%d)", t.ID, t.Owner, t.QuestionID, t.Kind, t.Timestamp)
}

// Block is an immutable, ordered bundle of transactions proposed by a single
// node (spec.md §3). The only kind defined by the core is "pok".
type Block struct {
	Hash         string
	Timestamp    int64
	Proposer     string
	Kind         string
	Transactions []Transaction
}

// ReputationTable is the read-only view of per-owner reputation that the
// reputation and consensus engines consume. It is satisfied by a plain
// map[string]float64 (see reputation.Table) so those packages never need to
// import the state package.
type ReputationTable interface {
	Reputation(owner string) (float64, bool)
}
