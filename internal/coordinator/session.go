// Package coordinator hosts a table over WebSocket: one TableSession per
// table, owning the single internal/engine.Table and serialising every
// engine call behind a single-writer discipline so no two engine
// mutations ever interleave.
package coordinator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdem-table/internal/engine"
	"github.com/lox/holdem-table/internal/protocol"
	"github.com/lox/holdem-table/internal/tableid"
)

// request is one closure the owner goroutine runs to completion before
// picking up the next. The engine is owned state behind a message-passing
// channel: every mutation arrives here and is awaited by its sender.
type request struct {
	fn   func()
	done chan struct{}
}

// TableSession owns one table's engine and every connection attached to
// it. All exported methods are safe to call from any goroutine: they hand
// their work to the owner goroutine and block until it completes.
type TableSession struct {
	ID string

	table  *engine.Table
	logger *log.Logger
	clock  quartz.Clock
	timer  *turnTimer

	requests chan request
	ctx      context.Context
	cancel   context.CancelFunc

	// conns maps a live seat index to its current connection. A seat with
	// no entry is disconnected but still owns its chips and identity, so
	// the bot can reconnect and resume.
	conns map[int]*Connection
}

// NewTableSession builds a session around a freshly constructed table.
func NewTableSession(cfg engine.TableConfig, logger *log.Logger, clock quartz.Clock) (*TableSession, error) {
	table, err := engine.NewTable(cfg, logger)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &TableSession{
		ID:       tableid.New(),
		table:    table,
		logger:   logger.WithPrefix("session"),
		clock:    clock,
		requests: make(chan request),
		ctx:      ctx,
		cancel:   cancel,
		conns:    make(map[int]*Connection),
	}
	s.timer = newTurnTimer(clock)
	return s, nil
}

// Run is the owner goroutine: it serialises every engine mutation and
// connection-map update until ctx is cancelled. Callers typically run this
// under an errgroup alongside the HTTP listener.
func (s *TableSession) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.cancel()
			return ctx.Err()
		case req := <-s.requests:
			req.fn()
			close(req.done)
		}
	}
}

// do hands fn to the owner goroutine and blocks until it has run. Every
// method below that touches s.table or s.conns goes through do.
func (s *TableSession) do(fn func()) {
	done := make(chan struct{})
	select {
	case s.requests <- request{fn: fn, done: done}:
	case <-s.ctx.Done():
		return
	}
	select {
	case <-done:
	case <-s.ctx.Done():
	}
}

func (s *TableSession) now() time.Time {
	return s.clock.Now()
}

// HandleHello attaches a connection that has already passed the hello
// handshake: assign or recover the seat, replace any prior connection
// holding it, send welcome, broadcast the lobby, and either catch the
// joiner up on a live hand or try to start one.
func (s *TableSession) HandleHello(conn *Connection, team string) {
	s.do(func() {
		seat, err := s.table.AssignSeat(team)
		if err != nil {
			// The connection's pumps aren't running yet; write in place so
			// the rejection reaches the client before the close.
			conn.SendDirect(protocol.NewError(s.now(), seatErrorCode(err), err.Error()))
			_ = conn.Close()
			return
		}

		if prior, ok := s.conns[seat.Index]; ok && prior != nil {
			_ = prior.CloseWithReason("REPLACED")
		}
		s.conns[seat.Index] = conn
		seat.Connected = true

		conn.Send(protocol.NewWelcome(s.now(), s.ID, seat.Index, s.wireConfig()))
		s.broadcastLobby()

		if s.table.Hand != nil {
			s.sendSnapshot(conn, seat.Index)
			if actor, ok := s.table.CurrentActor(); ok && actor == seat.Index {
				s.sendAct(conn, actor)
			}
		} else {
			s.maybeStartHand()
		}
	})
}

// HandleFrame dispatches one post-handshake inbound frame from conn. The
// only accepted type is "action"; anything else is UNKNOWN_TYPE.
func (s *TableSession) HandleFrame(conn *Connection, raw []byte) {
	msgType, err := protocol.PeekType(raw)
	if err != nil {
		s.do(func() { conn.SendError(s.now(), protocol.CodeBadSchema, "malformed frame") })
		return
	}
	if msgType != protocol.TypeAction {
		s.do(func() {
			conn.SendError(s.now(), protocol.CodeUnknownType, "unexpected message type: "+msgType)
		})
		return
	}

	var action protocol.Action
	if err := json.Unmarshal(raw, &action); err != nil {
		s.do(func() { conn.SendError(s.now(), protocol.CodeBadSchema, "malformed action") })
		return
	}
	s.do(func() { s.applyAction(conn, action) })
}

// HandleDisconnect marks the seat disconnected and drops the session
// mapping. The seat itself (stack, identity) remains for a reconnect.
func (s *TableSession) HandleDisconnect(conn *Connection) {
	s.do(func() {
		seatIdx, ok := s.seatOfLocked(conn)
		if !ok {
			return
		}
		delete(s.conns, seatIdx)
		s.table.Seats[seatIdx].Connected = false
		s.broadcastLobby()
	})
}

func (s *TableSession) seatOfLocked(conn *Connection) (int, bool) {
	for idx, c := range s.conns {
		if c == conn {
			return idx, true
		}
	}
	return 0, false
}

func (s *TableSession) applyAction(conn *Connection, msg protocol.Action) {
	seatIdx, ok := s.seatOfLocked(conn)
	if !ok {
		return
	}

	if s.table.Hand == nil || msg.HandID != s.table.Hand.HandID {
		conn.SendError(s.now(), protocol.CodeActionTooLate, "hand is no longer live")
		return
	}
	actor, ok := s.table.CurrentActor()
	if !ok || actor != seatIdx {
		conn.SendError(s.now(), protocol.CodeOutOfTurn, "it is not your turn")
		return
	}

	actionType := engine.ActionType(strings.ToUpper(msg.Action))
	amount := 0
	if actionType == engine.ActionRaiseTo {
		if msg.Amount == nil {
			conn.SendError(s.now(), protocol.CodeBadSchema, "RAISE_TO requires an integer amount")
			return
		}
		amount = *msg.Amount
	}

	events, err := s.table.ApplyAction(seatIdx, actionType, amount)
	if err != nil {
		conn.SendError(s.now(), protocol.CodeInvalidAction, err.Error())
		return
	}
	s.timer.Cancel()
	s.broadcastEvents(events)
	s.afterAction()
}

// afterAction prompts the next actor, or finishes the hand once the
// engine reports it complete.
func (s *TableSession) afterAction() {
	if s.table.HandComplete() {
		s.finishHand()
		return
	}
	if actor, ok := s.table.CurrentActor(); ok {
		s.promptActor(actor)
	}
}

// promptActor arms the turn timer and sends the acting seat an act prompt
// (if connected). The timer runs even while the seat is disconnected.
func (s *TableSession) promptActor(seat int) {
	if deadline := s.table.Config.DecisionDeadline; deadline > 0 {
		handID := s.table.Hand.HandID
		s.timer.Arm(deadline, func() {
			s.do(func() { s.fireTimeout(handID, seat) })
		})
	}

	if conn, ok := s.conns[seat]; ok && conn != nil {
		s.sendAct(conn, seat)
	}
}

func (s *TableSession) sendAct(conn *Connection, seat int) {
	hand := s.table.Hand
	legal := s.table.LegalActions(seat)

	act := protocol.Act{
		HandID:       hand.HandID,
		Seat:         seat,
		Phase:        hand.Phase.String(),
		Board:        boardLabels(hand),
		Pot:          hand.Pot,
		CurrentBet:   hand.CurrentBet,
		HoleCards:    holeCardLabels(s.table.Seats[seat]),
		LegalActions: legalActionStrings(legal),
		CallAmount:   legal.CallAmount,
		MinRaiseTo:   legal.MinRaiseTo,
		MaxRaiseTo:   legal.MaxRaiseTo,
	}
	if deadline := s.table.Config.DecisionDeadline; deadline > 0 {
		act.DeadlineMs = deadline.Milliseconds()
		// A reconnecting actor resumes mid-clock; tell it what's left.
		if rem, ok := s.timer.Remaining(s.now()); ok {
			act.DeadlineMs = rem.Milliseconds()
		}
	}
	conn.Send(protocol.NewAct(s.now(), act))
}

// fireTimeout applies the timer's fallback decision: CHECK if legal, else
// CALL, else FOLD. It re-validates the hand and seat are still current,
// since the timer may have lost a race with a just-submitted action.
func (s *TableSession) fireTimeout(handID string, seat int) {
	if s.table.Hand == nil || s.table.Hand.HandID != handID {
		return
	}
	actor, ok := s.table.CurrentActor()
	if !ok || actor != seat {
		return
	}
	s.applyFallback(seat)
}

// Skip applies the timer's fallback decision to the current actor
// immediately. It is the operator hook for tables configured with
// DecisionDeadline == 0, where a stalled seat would otherwise hold the
// hand open forever; it has no wire message of its own.
func (s *TableSession) Skip() {
	s.do(func() {
		actor, ok := s.table.CurrentActor()
		if !ok {
			return
		}
		s.applyFallback(actor)
	})
}

func (s *TableSession) applyFallback(seat int) {
	legal := s.table.LegalActions(seat)
	action := engine.ActionFold
	switch {
	case legal.Allows(engine.ActionCheck):
		action = engine.ActionCheck
	case legal.Allows(engine.ActionCall):
		action = engine.ActionCall
	}

	events, err := s.table.ApplyAction(seat, action, 0)
	if err != nil {
		s.logger.Error("fallback action rejected by engine", "seat", seat, "action", action, "error", err)
		return
	}
	s.broadcastEvents(events)
	s.afterAction()
}

func (s *TableSession) broadcastEvents(events []engine.Event) {
	for _, ev := range events {
		s.broadcastAll(eventToWire(s.now(), ev))
	}
}

// subscribers takes a stable snapshot of the live connections so a
// broadcast never races a concurrent join or disconnect.
func (s *TableSession) subscribers() []*Connection {
	out := make([]*Connection, 0, len(s.conns))
	for _, c := range s.conns {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (s *TableSession) broadcastAll(v any) {
	for _, conn := range s.subscribers() {
		conn.Send(v)
	}
}

func (s *TableSession) broadcastLobby() {
	players := make([]protocol.LobbyPlayer, 0, len(s.table.Seats))
	for _, seat := range s.table.Seats {
		if seat.Empty() {
			continue
		}
		players = append(players, protocol.LobbyPlayer{
			Seat: seat.Index, Team: seat.TeamLabel, Connected: seat.Connected, Stack: seat.Stack,
		})
	}
	s.broadcastAll(protocol.NewLobby(s.now(), players))
}

func (s *TableSession) sendSnapshot(conn *Connection, seatIdx int) {
	hand := s.table.Hand
	seats := make([]protocol.SnapshotSeat, 0, len(s.table.Seats))
	for _, seat := range s.table.Seats {
		if seat.Empty() {
			continue
		}
		seats = append(seats, protocol.SnapshotSeat{
			Seat: seat.Index, Team: seat.TeamLabel, Stack: seat.Stack,
			Committed: seat.Committed, Connected: seat.Connected, Folded: seat.Folded,
		})
	}

	snap := protocol.Snapshot{
		HandID:    hand.HandID,
		Phase:     hand.Phase.String(),
		Board:     boardLabels(hand),
		Pot:       hand.Pot,
		Seats:     seats,
		HoleCards: holeCardLabels(s.table.Seats[seatIdx]),
	}
	if actor, ok := s.table.CurrentActor(); ok {
		a := actor
		snap.CurrentActor = &a
	}
	conn.Send(protocol.NewSnapshot(s.now(), snap))
}

// maybeStartHand deals a fresh hand if none is live and at least two
// seats have chips. It runs on every join and after every completed hand.
func (s *TableSession) maybeStartHand() {
	if s.table.Hand != nil {
		return
	}
	events, err := s.table.StartHand()
	if err != nil {
		// Fewer than two funded seats; wait for more players.
		return
	}

	hand := s.table.Hand
	stacks := make([]protocol.SeatStack, 0, len(s.table.Seats))
	for _, seat := range s.table.Seats {
		if len(seat.HoleCards) == 0 {
			continue
		}
		// Blinds are already in the pot by now; reported stacks are the
		// hand-start values, with posted blinds added back.
		stacks = append(stacks, protocol.SeatStack{Seat: seat.Index, Stack: seat.Stack + seat.Committed})
	}
	s.broadcastAll(protocol.NewStartHand(s.now(), hand.HandID, hand.Seed, hand.Button, stacks))
	s.broadcastEvents(events)

	if actor, ok := s.table.CurrentActor(); ok {
		s.promptActor(actor)
	}
}

// finishHand broadcasts end_hand with final stacks, then either declares
// the match over or rolls straight into the next hand.
func (s *TableSession) finishHand() {
	hand := s.table.Hand
	stacks := make([]protocol.SeatStack, 0, len(s.table.Seats))
	for _, seat := range s.table.Seats {
		if seat.Empty() {
			continue
		}
		stacks = append(stacks, protocol.SeatStack{Seat: seat.Index, Stack: seat.Stack})
	}
	s.broadcastAll(protocol.NewEndHand(s.now(), hand.HandID, stacks))
	s.table.ClearHand()

	if s.table.MatchOver() {
		s.broadcastMatchEnd()
		return
	}
	s.maybeStartHand()
}

func (s *TableSession) broadcastMatchEnd() {
	var winner *protocol.MatchWinner
	finals := make([]protocol.FinalStack, 0, len(s.table.Seats))
	for _, seat := range s.table.Seats {
		if seat.Empty() {
			continue
		}
		finals = append(finals, protocol.FinalStack{Seat: seat.Index, Team: seat.TeamLabel, Stack: seat.Stack})
		if seat.Stack > 0 {
			w := protocol.MatchWinner{Seat: seat.Index, Team: seat.TeamLabel}
			winner = &w
		}
	}
	s.broadcastAll(protocol.NewMatchEnd(s.now(), winner, finals))
}

func (s *TableSession) wireConfig() protocol.TableWireConfig {
	cfg := s.table.Config
	return protocol.TableWireConfig{
		Variant:       cfg.Variant,
		Seats:         cfg.Seats,
		StartingStack: cfg.StartingStack,
		SmallBlind:    cfg.SmallBlind,
		BigBlind:      cfg.BigBlind,
		MoveTimeMs:    cfg.DecisionDeadline.Milliseconds(),
	}
}
