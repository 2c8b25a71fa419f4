package coordinator

import (
	"time"

	"github.com/lox/holdem-table/internal/deck"
	"github.com/lox/holdem-table/internal/engine"
	"github.com/lox/holdem-table/internal/protocol"
)

// legalActionStrings converts an engine.LegalActions' permitted actions to
// the wire's string action names.
func legalActionStrings(la engine.LegalActions) []string {
	out := make([]string, len(la.Actions))
	for i, a := range la.Actions {
		out[i] = string(a)
	}
	return out
}

// eventToWire translates one engine-emitted Event into its wire `event`
// frame, populating only the fields that event kind carries.
func eventToWire(now time.Time, ev engine.Event) protocol.Event {
	switch ev.Kind {
	case engine.EventPostBlinds:
		return protocol.NewEvent(now, protocol.EvPostBlinds,
			protocol.WithBlinds(ev.SmallBlindSeat, ev.BigBlindSeat, ev.SmallBlind, ev.BigBlind))
	case engine.EventFold:
		return protocol.NewEvent(now, protocol.EvFold, protocol.WithSeat(ev.Seat))
	case engine.EventCheck:
		return protocol.NewEvent(now, protocol.EvCheck, protocol.WithSeat(ev.Seat))
	case engine.EventCall:
		return protocol.NewEvent(now, protocol.EvCall, protocol.WithSeat(ev.Seat), protocol.WithAmount(ev.Amount))
	case engine.EventBet:
		return protocol.NewEvent(now, protocol.EvBet,
			protocol.WithSeat(ev.Seat), protocol.WithAmount(ev.Amount), protocol.WithRaiseTo(ev.RaiseTo))
	case engine.EventFlop:
		return protocol.NewEvent(now, protocol.EvFlop, protocol.WithCards(ev.Cards), protocol.WithBoard(ev.Board))
	case engine.EventTurn:
		return protocol.NewEvent(now, protocol.EvTurn, protocol.WithCard(ev.Card), protocol.WithBoard(ev.Board))
	case engine.EventRiver:
		return protocol.NewEvent(now, protocol.EvRiver, protocol.WithCard(ev.Card), protocol.WithBoard(ev.Board))
	case engine.EventShowdown:
		return protocol.NewEvent(now, protocol.EvShowdown,
			protocol.WithSeat(ev.Seat), protocol.WithHand(ev.Cards), protocol.WithBoard(ev.Board), protocol.WithRank(ev.Category))
	case engine.EventPotAward:
		return protocol.NewEvent(now, protocol.EvPotAward, protocol.WithSeat(ev.Seat), protocol.WithAmount(ev.Amount))
	case engine.EventEliminated:
		return protocol.NewEvent(now, protocol.EvEliminated, protocol.WithSeat(ev.Seat))
	default:
		return protocol.NewEvent(now, string(ev.Kind))
	}
}

// seatErrorCode maps an engine.Error to the wire error code a client
// should see for it.
func seatErrorCode(err error) string {
	engErr, ok := err.(*engine.Error)
	if !ok {
		return protocol.CodeInvalidAction
	}
	switch engErr.Code {
	case engine.CodeTeamRequired:
		return protocol.CodeTeamRequired
	case engine.CodeTableFull:
		return protocol.CodeTableFull
	case engine.CodeOutOfTurn:
		return protocol.CodeOutOfTurn
	case engine.CodeActionTooLate:
		return protocol.CodeActionTooLate
	default:
		return protocol.CodeInvalidAction
	}
}

func holeCardLabels(seat *engine.Seat) []string {
	return deck.Labels(seat.HoleCards)
}

func boardLabels(hand *engine.HandContext) []string {
	return deck.Labels(hand.Community)
}
