package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-table/internal/deck"
)

// Table owns a table's seats and, while a hand is live, its HandContext. It
// implements the pure, synchronous rules of No-Limit Hold'em: no method on
// Table ever performs I/O or blocks. The coordinator is the sole caller and
// is responsible for serialising every call (see internal/coordinator).
type Table struct {
	Config TableConfig
	Seats  []*Seat
	Hand   *HandContext

	logger *log.Logger

	handCounter int
	everStarted bool
	lastButton  int
}

// NewTable builds an empty table with cfg.Seats empty seats.
func NewTable(cfg TableConfig, logger *log.Logger) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seats := make([]*Seat, cfg.Seats)
	for i := range seats {
		seats[i] = &Seat{Index: i}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Table{Config: cfg, Seats: seats, logger: logger}, nil
}

// AssignSeat claims or recovers a seat for team. Trims whitespace and
// rejects empty labels. If a seat with the same case-folded identity
// already exists, it is returned (with TeamLabel refreshed). Otherwise the
// lowest-indexed empty seat is claimed with the table's starting stack.
func (t *Table) AssignSeat(team string) (*Seat, error) {
	key := normalizeTeamKey(team)
	if key == "" {
		return nil, newError(CodeTeamRequired, "team label is required")
	}

	for _, s := range t.Seats {
		if s.teamKey == key {
			s.TeamLabel = strings.TrimSpace(team)
			return s, nil
		}
	}

	for _, s := range t.Seats {
		if s.Empty() {
			s.teamKey = key
			s.TeamLabel = strings.TrimSpace(team)
			s.Stack = t.Config.StartingStack
			return s, nil
		}
	}

	return nil, newError(CodeTableFull, "no empty seats remain")
}

// nextHandID generates the next monotonic hand identifier for this table:
// H-YYYYMMDD-NNNNN, where NNNNN is a 5-digit, zero-padded counter scoped to
// the table's lifetime.
func (t *Table) nextHandID(now time.Time) string {
	t.handCounter++
	return fmt.Sprintf("H-%s-%05d", now.UTC().Format("20060102"), t.handCounter)
}

// fundedSeats returns the seats with chips, in seat-index order.
func (t *Table) fundedSeats() []*Seat {
	var out []*Seat
	for _, s := range t.Seats {
		if !s.Empty() && s.Stack > 0 {
			out = append(out, s)
		}
	}
	return out
}

// MatchOver reports whether at most one seat retains chips.
func (t *Table) MatchOver() bool {
	return len(t.fundedSeats()) <= 1
}

// StartHand starts a new hand with a system-time-derived seed. See
// StartHandSeeded for the deterministic, replayable variant.
func (t *Table) StartHand() ([]Event, error) {
	return t.StartHandSeeded(time.Now().UnixNano())
}

// StartHandSeeded starts a new hand, atomically: either every step below
// completes and the hand is live, or none of the table's seat state is
// mutated and an error is returned.
func (t *Table) StartHandSeeded(seed int64) ([]Event, error) {
	funded := t.fundedSeats()
	if len(funded) < 2 {
		return nil, newError(CodeValueError, "at least two seats must have chips to start a hand")
	}
	// Fail before touching any state if the deck cannot cover two hole
	// cards per funded seat.
	if 2*len(funded) > deck.New().Remaining() {
		return nil, newError(CodeDeckExhausted, "deck exhausted dealing hole cards")
	}

	button := t.chooseButton(funded)

	d := deck.New()
	d.Shuffle(seed)

	now := time.Now()
	hand := &HandContext{
		HandID:            t.nextHandID(now),
		Seed:              seed,
		Button:            button,
		deck:              d,
		Phase:             PreFlop,
		MinRaiseIncrement: t.Config.BigBlind,
		LastRaiseSeat:     noSeat,
		acted:             make([]bool, len(t.Seats)),
	}

	// Busted seats get their per-hand state cleared too; stale hole cards
	// or contributions from a prior hand must never leak into this one's
	// showdown accounting.
	for _, s := range t.Seats {
		if !s.Empty() {
			resetForHand(s)
		}
	}

	t.Hand = hand
	t.lastButton = button
	t.everStarted = true

	if err := t.dealHoleCards(funded); err != nil {
		t.Hand = nil
		return nil, err
	}

	t.postBlinds(funded)
	t.queueFirstRoundActors(funded)

	for _, s := range funded {
		hand.startTotal += s.Stack
	}
	hand.startTotal += hand.Pot

	t.logger.Debug("hand started", "hand_id", hand.HandID, "button", button, "seed", seed)
	return hand.drainEvents(), nil
}

// assertConservation panics if the live hand has created or destroyed
// chips. A breach is a programmer error, never a recoverable rule
// violation, so it fails loudly rather than corrupt the table.
func (t *Table) assertConservation() {
	hand := t.Hand
	if hand == nil {
		return
	}
	total := hand.Pot
	for _, s := range t.inHandSeats() {
		if s.Stack < 0 {
			panic(fmt.Sprintf("engine: seat %d stack is negative (%d)", s.Index, s.Stack))
		}
		total += s.Stack
	}
	if total != hand.startTotal {
		panic(fmt.Sprintf("engine: chip conservation breached in hand %s: have %d, want %d",
			hand.HandID, total, hand.startTotal))
	}
}

// chooseButton picks the dealer: the first hand takes the lowest-indexed
// funded seat; subsequent hands advance clockwise from the previous
// button, skipping busted seats.
func (t *Table) chooseButton(funded []*Seat) int {
	if !t.everStarted {
		return funded[0].Index
	}
	n := len(t.Seats)
	for offset := 1; offset <= n; offset++ {
		idx := (t.lastButton + offset) % n
		if !t.Seats[idx].Busted() && !t.Seats[idx].Empty() && t.Seats[idx].Stack > 0 {
			return idx
		}
	}
	return funded[0].Index
}

func (t *Table) dealHoleCards(funded []*Seat) error {
	order := seatsClockwiseFrom(t.Seats, t.Hand.Button, funded)
	for round := 0; round < 2; round++ {
		for _, s := range order {
			cards, err := t.Hand.deck.Deal(1)
			if err != nil {
				return newError(CodeDeckExhausted, "deck exhausted dealing hole cards")
			}
			s.HoleCards = append(s.HoleCards, cards[0])
		}
	}
	return nil
}

// seatsClockwiseFrom returns the funded seats in clockwise order starting
// from the seat immediately after `from`.
func seatsClockwiseFrom(all []*Seat, from int, funded []*Seat) []*Seat {
	fundedSet := make(map[int]bool, len(funded))
	for _, s := range funded {
		fundedSet[s.Index] = true
	}
	n := len(all)
	var order []*Seat
	for offset := 1; offset <= n; offset++ {
		idx := (from + offset) % n
		if fundedSet[idx] {
			order = append(order, all[idx])
		}
	}
	return order
}

func (t *Table) seatByIndex(idx int) *Seat {
	for _, s := range t.Seats {
		if s.Index == idx {
			return s
		}
	}
	return nil
}

func (t *Table) postBlinds(funded []*Seat) {
	hand := t.Hand
	sb := t.Config.SmallBlind
	bb := t.Config.BigBlind

	var sbSeat, bbSeat *Seat
	if len(funded) == 2 {
		// Heads-up: button posts small blind, other seat posts big blind.
		for _, s := range funded {
			if s.Index == hand.Button {
				sbSeat = s
			} else {
				bbSeat = s
			}
		}
	} else {
		order := seatsClockwiseFrom(t.Seats, hand.Button, funded)
		sbSeat = order[0]
		bbSeat = order[1]
	}

	postAmount := func(s *Seat, amount int) int {
		paid := amount
		if paid > s.Stack {
			paid = s.Stack
		}
		s.Stack -= paid
		s.Committed += paid
		s.TotalContributed += paid
		hand.Pot += paid
		return paid
	}

	sbPaid := postAmount(sbSeat, sb)
	bbPaid := postAmount(bbSeat, bb)

	hand.CurrentBet = bb
	hand.MinRaiseIncrement = bb
	hand.LastRaiseSeat = bbSeat.Index

	hand.emit(Event{
		Kind:           EventPostBlinds,
		SmallBlindSeat: sbSeat.Index,
		BigBlindSeat:   bbSeat.Index,
		SmallBlind:     sbPaid,
		BigBlind:       bbPaid,
	})
}

func (t *Table) queueFirstRoundActors(funded []*Seat) {
	hand := t.Hand
	var firstActor int
	if len(funded) == 2 {
		// Heads-up: button (small blind) acts first pre-flop.
		firstActor = hand.Button
	} else {
		order := seatsClockwiseFrom(t.Seats, hand.Button, funded)
		// order[0]=SB, order[1]=BB; action begins after BB.
		firstActor = order[2%len(order)].Index
	}

	queueOrder := seatsClockwiseFrom(t.Seats, prevIndex(firstActor, len(t.Seats)), funded)
	hand.actorQueue = nil
	for _, s := range queueOrder {
		if s.Stack > 0 {
			hand.actorQueue = append(hand.actorQueue, s.Index)
		}
	}
}

func prevIndex(idx, n int) int {
	return (idx - 1 + n) % n
}

// CurrentActor returns the seat whose turn it is, if any.
func (t *Table) CurrentActor() (int, bool) {
	if t.Hand == nil || len(t.Hand.actorQueue) == 0 {
		return 0, false
	}
	return t.Hand.actorQueue[0], true
}

// HandComplete reports whether the live hand has finished: showdown phase
// reached and the pot fully awarded.
func (t *Table) HandComplete() bool {
	return t.Hand != nil && t.Hand.Phase == Showdown && t.Hand.Pot == 0
}

// ClearHand releases the completed hand's context. The coordinator calls
// this once it has broadcast end_hand, before attempting the next hand.
func (t *Table) ClearHand() {
	t.Hand = nil
}
