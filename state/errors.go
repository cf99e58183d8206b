package state

import "fmt"

// ErrorCode tags the state manager's error kinds (spec.md §7).
type ErrorCode string

const (
	// ErrInvalidKind is returned when a transaction kind is outside the
	// known set.
	ErrInvalidKind ErrorCode = "INVALID_KIND"
	// ErrUnknownOwner is a warning code: merge referenced an owner absent
	// from the local node table. The merge proceeds regardless (spec.md
	// §7); this code only labels the warning.
	ErrUnknownOwner ErrorCode = "UNKNOWN_OWNER"
)

// Error is the state manager's uniform error type. On any Error return, the
// State value passed in is returned unchanged (spec.md §7): operations
// never partially mutate state.
type Error struct {
	Code ErrorCode
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newErr(code ErrorCode, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Warning is a non-fatal condition reported alongside a successful result
// (spec.md §7).
type Warning struct {
	Code ErrorCode
	Msg  string
}
