package engine

import "fmt"

// Code is a stable, machine-readable error code. Codes that also exist on
// the wire (protocol.Error.Code) share their names; the coordinator reports
// DECK_EXHAUSTED and VALUE_ERROR to clients as INVALID_ACTION.
type Code string

const (
	CodeTeamRequired  Code = "TEAM_REQUIRED"
	CodeTableFull     Code = "TABLE_FULL"
	CodeDeckExhausted Code = "DECK_EXHAUSTED"
	CodeValueError    Code = "VALUE_ERROR"
	CodeOutOfTurn     Code = "OUT_OF_TURN"
	CodeActionTooLate Code = "ACTION_TOO_LATE"
	CodeInvalidAction Code = "INVALID_ACTION"
)

// Error is a rule-violation or protocol error the engine reports to a
// caller. It is never used for programmer errors (chip conservation
// breaches, missing seats for a pending actor); those are invariant
// breaches and panic instead.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
