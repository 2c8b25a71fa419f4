package engine

// EventKind identifies an engine-emitted event. These map one-to-one onto
// the wire protocol's "event" message `ev` field.
type EventKind string

const (
	EventPostBlinds EventKind = "POST_BLINDS"
	EventFold       EventKind = "FOLD"
	EventCheck      EventKind = "CHECK"
	EventCall       EventKind = "CALL"
	EventBet        EventKind = "BET"
	EventFlop       EventKind = "FLOP"
	EventTurn       EventKind = "TURN"
	EventRiver      EventKind = "RIVER"
	EventShowdown   EventKind = "SHOWDOWN"
	EventPotAward   EventKind = "POT_AWARD"
	EventEliminated EventKind = "ELIMINATED"
)

// Event is a single engine-emitted fact about a hand in progress. Only the
// fields relevant to Kind are populated; the rest are zero values. The
// coordinator translates each Event into the wire `event` message.
type Event struct {
	Kind EventKind

	Seat    int // acting or affected seat, where applicable
	Amount  int // chips involved: call/bet/pot-award amount
	RaiseTo int // BET: the raiser's new total commitment this round

	Cards []string // FLOP: 3 labels; SHOWDOWN: the seat's hole cards
	Card  string   // TURN/RIVER: single revealed card label
	Board []string // FLOP/TURN/RIVER/SHOWDOWN: full board so far

	Category string // SHOWDOWN: hand category name (evaluator.Category.String())

	SmallBlindSeat int // POST_BLINDS
	BigBlindSeat   int
	SmallBlind     int
	BigBlind       int
}
