package engine

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestTable(t *testing.T, seats, stack, sb, bb int, teams ...string) *Table {
	t.Helper()
	tbl, err := NewTable(TableConfig{
		Seats:         seats,
		StartingStack: stack,
		SmallBlind:    sb,
		BigBlind:      bb,
		Variant:       "NLHE",
	}, testLogger())
	require.NoError(t, err)
	for _, team := range teams {
		_, err := tbl.AssignSeat(team)
		require.NoError(t, err)
	}
	return tbl
}

func mustAct(t *testing.T, tbl *Table, seat int, action ActionType, amount int) []Event {
	t.Helper()
	actor, ok := tbl.CurrentActor()
	require.True(t, ok, "no actor pending")
	require.Equal(t, seat, actor, "wrong seat to act")
	events, err := tbl.ApplyAction(seat, action, amount)
	require.NoError(t, err)
	return events
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestNewTableValidatesConfig(t *testing.T) {
	cases := []TableConfig{
		{Seats: 1, StartingStack: 100, SmallBlind: 5, BigBlind: 10},
		{Seats: 2, StartingStack: 0, SmallBlind: 5, BigBlind: 10},
		{Seats: 2, StartingStack: 100, SmallBlind: 0, BigBlind: 10},
		{Seats: 2, StartingStack: 100, SmallBlind: 20, BigBlind: 10},
		{Seats: 2, StartingStack: 100, SmallBlind: 5, BigBlind: 10, DecisionDeadline: -1},
	}
	for _, cfg := range cases {
		_, err := NewTable(cfg, testLogger())
		assert.Error(t, err, "config %+v", cfg)
	}
}

func TestAssignSeat(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20)

	alpha, err := tbl.AssignSeat("Alpha")
	require.NoError(t, err)
	assert.Equal(t, 0, alpha.Index)
	assert.Equal(t, "Alpha", alpha.TeamLabel)
	assert.Equal(t, 1000, alpha.Stack)

	beta, err := tbl.AssignSeat("  Beta  ")
	require.NoError(t, err)
	assert.Equal(t, 1, beta.Index)
	assert.Equal(t, "Beta", beta.TeamLabel)
}

func TestAssignSeatRecoversByCaseFoldedIdentity(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "Alpha")

	again, err := tbl.AssignSeat("ALPHA")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Index)
	// The display label follows the latest hello.
	assert.Equal(t, "ALPHA", again.TeamLabel)
}

func TestAssignSeatRejectsEmptyTeam(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20)
	for _, team := range []string{"", "   ", "\t"} {
		_, err := tbl.AssignSeat(team)
		require.Error(t, err)
		assert.Equal(t, CodeTeamRequired, err.(*Error).Code)
	}
}

func TestAssignSeatTableFull(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	_, err := tbl.AssignSeat("c")
	require.Error(t, err)
	assert.Equal(t, CodeTableFull, err.(*Error).Code)
}

func TestStartHandNeedsTwoFundedSeats(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "a")
	_, err := tbl.StartHandSeeded(1)
	assert.Error(t, err)
}

func TestStartHandPostsBlindsAndDeals(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "a", "b", "c")
	events, err := tbl.StartHandSeeded(7)
	require.NoError(t, err)

	require.Equal(t, []EventKind{EventPostBlinds}, kinds(events))
	assert.Equal(t, 0, tbl.Hand.Button)
	assert.Equal(t, 1, events[0].SmallBlindSeat)
	assert.Equal(t, 2, events[0].BigBlindSeat)
	assert.Equal(t, 10, events[0].SmallBlind)
	assert.Equal(t, 20, events[0].BigBlind)

	assert.Equal(t, 30, tbl.Hand.Pot)
	assert.Equal(t, 20, tbl.Hand.CurrentBet)
	assert.Equal(t, 20, tbl.Hand.MinRaiseIncrement)

	for _, seat := range tbl.Seats {
		assert.Len(t, seat.HoleCards, 2, "seat %d", seat.Index)
	}

	// 3+ handed: action opens after the big blind.
	actor, ok := tbl.CurrentActor()
	require.True(t, ok)
	assert.Equal(t, 0, actor)
}

func TestHandIDFormat(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	_, err := tbl.StartHandSeeded(1)
	require.NoError(t, err)
	assert.Regexp(t, `^H-\d{8}-00001$`, tbl.Hand.HandID)

	mustAct(t, tbl, 0, ActionFold, 0)
	tbl.ClearHand()

	_, err = tbl.StartHandSeeded(2)
	require.NoError(t, err)
	assert.Regexp(t, `^H-\d{8}-00002$`, tbl.Hand.HandID)
}

func TestHeadsUpBlindsAndOrder(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	events, err := tbl.StartHandSeeded(3)
	require.NoError(t, err)

	// Heads-up: the button posts the small blind and acts first pre-flop.
	assert.Equal(t, 0, tbl.Hand.Button)
	assert.Equal(t, 0, events[0].SmallBlindSeat)
	assert.Equal(t, 1, events[0].BigBlindSeat)

	actor, ok := tbl.CurrentActor()
	require.True(t, ok)
	assert.Equal(t, 0, actor)

	// Post-flop the big blind acts first.
	mustAct(t, tbl, 0, ActionCall, 0)
	mustAct(t, tbl, 1, ActionCheck, 0)
	require.Equal(t, Flop, tbl.Hand.Phase)
	actor, ok = tbl.CurrentActor()
	require.True(t, ok)
	assert.Equal(t, 1, actor)
}

func TestButtonRotatesClockwiseSkippingBusted(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "a", "b", "c")

	_, err := tbl.StartHandSeeded(1)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Hand.Button)
	foldToWinner(t, tbl)
	tbl.ClearHand()

	_, err = tbl.StartHandSeeded(2)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Hand.Button)
	foldToWinner(t, tbl)
	tbl.ClearHand()

	// Bust seat 2; the button should skip from 1 past 2 back to 0.
	tbl.Seats[2].Stack = 0
	_, err = tbl.StartHandSeeded(3)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Hand.Button)
}

// foldToWinner folds every pending actor until the hand resolves.
func foldToWinner(t *testing.T, tbl *Table) {
	t.Helper()
	for !tbl.HandComplete() {
		actor, ok := tbl.CurrentActor()
		require.True(t, ok)
		_, err := tbl.ApplyAction(actor, ActionFold, 0)
		require.NoError(t, err)
	}
}

func TestBlindLargerThanStackIsCapped(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	tbl.Seats[1].Stack = 15

	events, err := tbl.StartHandSeeded(5)
	require.NoError(t, err)
	// Seat 1 is the big blind but can only post 15 of the 20.
	assert.Equal(t, 15, events[0].BigBlind)
	assert.Equal(t, 0, tbl.Seats[1].Stack)
	assert.Equal(t, 20, tbl.Hand.CurrentBet)
	assert.Equal(t, 25, tbl.Hand.Pot)

	// Seat 1 is all-in from the blind, so only the button can act; once it
	// calls, the board runs out to showdown with no further betting.
	mustAct(t, tbl, 0, ActionCall, 0)
	assert.True(t, tbl.HandComplete())
	assert.Equal(t, 1015, tbl.Seats[0].Stack+tbl.Seats[1].Stack)
}

func TestMatchOver(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	assert.False(t, tbl.MatchOver())
	tbl.Seats[1].Stack = 0
	assert.True(t, tbl.MatchOver())
}

func TestReplayDeterminism(t *testing.T) {
	play := func() (*Table, [][]Event) {
		tbl := newTestTable(t, 3, 1000, 10, 20, "a", "b", "c")
		var all [][]Event
		events, err := tbl.StartHandSeeded(99)
		require.NoError(t, err)
		all = append(all, events)

		all = append(all, mustAct(t, tbl, 0, ActionRaiseTo, 60))
		all = append(all, mustAct(t, tbl, 1, ActionCall, 0))
		all = append(all, mustAct(t, tbl, 2, ActionFold, 0))
		for !tbl.HandComplete() {
			actor, ok := tbl.CurrentActor()
			require.True(t, ok)
			all = append(all, mustAct(t, tbl, actor, ActionCheck, 0))
		}
		return tbl, all
	}

	tbl1, events1 := play()
	tbl2, events2 := play()

	assert.Equal(t, events1, events2)
	for i := range tbl1.Seats {
		assert.Equal(t, tbl1.Seats[i].Stack, tbl2.Seats[i].Stack, "seat %d", i)
	}
}
