package engine

import (
	"fmt"

	"github.com/lox/holdem-table/internal/deck"
)

// ActionType is a player's choice on their turn. These map one-to-one onto
// the wire protocol's "action" message names.
type ActionType string

const (
	ActionFold    ActionType = "FOLD"
	ActionCheck   ActionType = "CHECK"
	ActionCall    ActionType = "CALL"
	ActionRaiseTo ActionType = "RAISE_TO"
)

// LegalActions describes the actions available to the current actor and
// the chip amounts that bound a raise.
type LegalActions struct {
	Actions    []ActionType
	CallAmount int
	MinRaiseTo int
	MaxRaiseTo int
}

// Allows reports whether a is among the actions l permits.
func (l LegalActions) Allows(a ActionType) bool {
	for _, x := range l.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// LegalActions computes the actions available to seatIndex given the
// current hand state. Returns a zero LegalActions if no hand is live or it
// is not seatIndex's turn.
func (t *Table) LegalActions(seatIndex int) LegalActions {
	if t.Hand == nil {
		return LegalActions{}
	}
	seat := t.seatByIndex(seatIndex)
	if seat == nil {
		return LegalActions{}
	}
	hand := t.Hand

	callAmount := hand.CurrentBet - seat.Committed
	if callAmount < 0 {
		callAmount = 0
	}
	if callAmount > seat.Stack {
		callAmount = seat.Stack
	}

	actions := []ActionType{ActionFold}
	switch {
	case hand.CurrentBet == seat.Committed:
		actions = append(actions, ActionCheck)
	case seat.Stack > 0:
		actions = append(actions, ActionCall)
	}

	maxRaiseTo := seat.Stack + seat.Committed
	minRaiseTo := hand.CurrentBet + hand.MinRaiseIncrement
	if minRaiseTo > maxRaiseTo {
		minRaiseTo = maxRaiseTo
	}
	// A seat that already acted this round may only raise if the betting
	// has been reopened since (a full raise clears acted); a short all-in
	// leaves it set, so callers of a short all-in cannot re-raise.
	if seat.Stack > 0 && maxRaiseTo > hand.CurrentBet && !hand.acted[seatIndex] {
		actions = append(actions, ActionRaiseTo)
	}

	return LegalActions{
		Actions:    actions,
		CallAmount: callAmount,
		MinRaiseTo: minRaiseTo,
		MaxRaiseTo: maxRaiseTo,
	}
}

// ApplyAction applies seatIndex's chosen action to the live hand, returning
// the events it produced. amount is only meaningful for ActionRaiseTo,
// where it is the seat's new total commitment for the betting round (not
// the incremental chip count).
func (t *Table) ApplyAction(seatIndex int, action ActionType, amount int) ([]Event, error) {
	hand := t.Hand
	if hand == nil {
		return nil, newError(CodeInvalidAction, "no hand in progress")
	}
	actor, ok := t.CurrentActor()
	if !ok {
		return nil, newError(CodeInvalidAction, "no actor pending")
	}
	if actor != seatIndex {
		return nil, newError(CodeOutOfTurn, "seat %d acted out of turn", seatIndex)
	}

	seat := t.seatByIndex(seatIndex)
	if seat == nil {
		panic(fmt.Sprintf("engine: no seat for pending actor %d", seatIndex))
	}
	legal := t.LegalActions(seatIndex)
	if !legal.Allows(action) {
		return nil, newError(CodeInvalidAction, "%s is not a legal action for seat %d", action, seatIndex)
	}

	fullRaise := false
	switch action {
	case ActionFold:
		seat.Folded = true
		hand.emit(Event{Kind: EventFold, Seat: seatIndex})

	case ActionCheck:
		hand.emit(Event{Kind: EventCheck, Seat: seatIndex})

	case ActionCall:
		paid := t.payToward(seat, hand.CurrentBet)
		hand.emit(Event{Kind: EventCall, Seat: seatIndex, Amount: paid})

	case ActionRaiseTo:
		if amount < legal.MinRaiseTo && amount < legal.MaxRaiseTo {
			return nil, newError(CodeValueError, "raise to %d is below the minimum %d", amount, legal.MinRaiseTo)
		}
		if amount > legal.MaxRaiseTo {
			return nil, newError(CodeValueError, "raise to %d exceeds available chips (max %d)", amount, legal.MaxRaiseTo)
		}
		fullRaise = amount-hand.CurrentBet >= hand.MinRaiseIncrement
		paid := t.payToward(seat, amount)
		if fullRaise {
			hand.MinRaiseIncrement = amount - hand.CurrentBet
			hand.LastRaiseSeat = seatIndex
			// The raise reopens the betting: every other seat gets a
			// fresh option to re-raise.
			for i := range hand.acted {
				hand.acted[i] = false
			}
		}
		hand.CurrentBet = amount
		hand.emit(Event{Kind: EventBet, Seat: seatIndex, Amount: paid, RaiseTo: amount})
	}
	hand.acted[seatIndex] = true

	t.advanceAfterAction(seatIndex, action)
	t.assertConservation()
	return hand.drainEvents(), nil
}

func (t *Table) payToward(seat *Seat, target int) int {
	owed := target - seat.Committed
	if owed <= 0 {
		return 0
	}
	paid := owed
	if paid > seat.Stack {
		paid = seat.Stack
	}
	seat.Stack -= paid
	seat.Committed += paid
	seat.TotalContributed += paid
	t.Hand.Pot += paid
	return paid
}

// inHandSeats returns the seats dealt into the live hand, in seat-index
// order.
func (t *Table) inHandSeats() []*Seat {
	var out []*Seat
	for _, s := range t.Seats {
		if len(s.HoleCards) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func (t *Table) activeSeats() []*Seat {
	var out []*Seat
	for _, s := range t.inHandSeats() {
		if !s.Folded {
			out = append(out, s)
		}
	}
	return out
}

func (t *Table) advanceAfterAction(actedSeat int, action ActionType) {
	hand := t.Hand

	if len(hand.actorQueue) > 0 && hand.actorQueue[0] == actedSeat {
		hand.actorQueue = hand.actorQueue[1:]
	}

	active := t.activeSeats()
	if len(active) == 1 {
		t.awardUncontestedPot(active[0])
		return
	}

	// Any raise, full or short all-in, leaves the other seats owing chips;
	// requeue them in order after the raiser. Whether they may re-raise is
	// a legality question (hand.acted), not a queueing one.
	if action == ActionRaiseTo {
		hand.actorQueue = t.callersAfter(actedSeat, active)
	}

	if len(hand.actorQueue) == 0 {
		t.advancePhase()
	}
}

// callersAfter returns, in clockwise order starting after raiser and
// excluding it, the active seats with chips still short of the current bet.
func (t *Table) callersAfter(raiser int, active []*Seat) []int {
	activeSet := make(map[int]*Seat, len(active))
	for _, s := range active {
		activeSet[s.Index] = s
	}
	n := len(t.Seats)
	var out []int
	for offset := 1; offset < n; offset++ {
		idx := (raiser + offset) % n
		if s, ok := activeSet[idx]; ok && s.Stack > 0 && s.Committed < t.Hand.CurrentBet {
			out = append(out, idx)
		}
	}
	return out
}

// openActorsAfter returns, in clockwise order starting after from and
// wrapping around to include it, the still-active seats with chips. It
// builds the acting order for a fresh street, where the seat at from (the
// button) acts last.
func (t *Table) openActorsAfter(from int, active []*Seat) []int {
	activeSet := make(map[int]*Seat, len(active))
	for _, s := range active {
		activeSet[s.Index] = s
	}
	n := len(t.Seats)
	var out []int
	for offset := 1; offset <= n; offset++ {
		idx := (from + offset) % n
		if s, ok := activeSet[idx]; ok && s.Stack > 0 {
			out = append(out, idx)
		}
	}
	return out
}

// advancePhase is called once a betting round's actor queue empties. It
// either deals the next street and opens a fresh round, runs the remaining
// streets out with no further betting when at most one active seat still
// has chips to wager, or resolves the showdown from the river.
func (t *Table) advancePhase() {
	hand := t.Hand
	active := t.activeSeats()

	canStillBet := 0
	for _, s := range active {
		if s.Stack > 0 {
			canStillBet++
		}
	}

	for hand.Phase < Showdown {
		if hand.Phase == River {
			break
		}
		t.dealNextStreet()
		if canStillBet > 1 {
			hand.actorQueue = t.openActorsAfter(hand.Button, active)
			if len(hand.actorQueue) > 0 {
				return
			}
		}
	}

	t.resolveShowdown()
}

func (t *Table) dealNextStreet() {
	hand := t.Hand
	for _, s := range t.inHandSeats() {
		s.Committed = 0
	}
	hand.CurrentBet = 0
	hand.MinRaiseIncrement = t.Config.BigBlind
	hand.LastRaiseSeat = noSeat
	for i := range hand.acted {
		hand.acted[i] = false
	}

	switch hand.Phase {
	case PreFlop:
		cards, _ := hand.deck.Deal(3)
		hand.Community = append(hand.Community, cards...)
		hand.Phase = Flop
		hand.emit(Event{Kind: EventFlop, Cards: deck.Labels(cards), Board: deck.Labels(hand.Community)})
	case Flop:
		cards, _ := hand.deck.Deal(1)
		hand.Community = append(hand.Community, cards...)
		hand.Phase = Turn
		hand.emit(Event{Kind: EventTurn, Card: cards[0].Label(), Board: deck.Labels(hand.Community)})
	case Turn:
		cards, _ := hand.deck.Deal(1)
		hand.Community = append(hand.Community, cards...)
		hand.Phase = River
		hand.emit(Event{Kind: EventRiver, Card: cards[0].Label(), Board: deck.Labels(hand.Community)})
	}
}
