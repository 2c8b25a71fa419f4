package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadsUpFoldPreFlop(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	_, err := tbl.StartHandSeeded(42)
	require.NoError(t, err)

	events := mustAct(t, tbl, 0, ActionFold, 0)
	require.Equal(t, []EventKind{EventFold, EventPotAward}, kinds(events))
	assert.Equal(t, 1, events[1].Seat)
	assert.Equal(t, 30, events[1].Amount)

	assert.Equal(t, 990, tbl.Seats[0].Stack)
	assert.Equal(t, 1010, tbl.Seats[1].Stack)
	assert.True(t, tbl.HandComplete())
	assert.False(t, tbl.MatchOver())
}

func TestThreeHandedRaiseCallsToShowdown(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "a", "b", "c")
	_, err := tbl.StartHandSeeded(11)
	require.NoError(t, err)

	events := mustAct(t, tbl, 0, ActionRaiseTo, 40)
	require.Equal(t, []EventKind{EventBet}, kinds(events))
	assert.Equal(t, 40, events[0].Amount)

	// SB already has 10 in, so calling 40 commits 30 more.
	events = mustAct(t, tbl, 1, ActionCall, 0)
	require.Equal(t, []EventKind{EventCall}, kinds(events))
	assert.Equal(t, 30, events[0].Amount)

	// BB's call of 20 closes the round and deals the flop.
	events = mustAct(t, tbl, 2, ActionCall, 0)
	require.Equal(t, []EventKind{EventCall, EventFlop}, kinds(events))
	assert.Equal(t, 20, events[0].Amount)
	assert.Len(t, events[1].Cards, 3)
	assert.Equal(t, 120, tbl.Hand.Pot)

	// Post-flop action starts left of the button: 1, 2, then 0.
	mustAct(t, tbl, 1, ActionCheck, 0)
	mustAct(t, tbl, 2, ActionCheck, 0)
	events = mustAct(t, tbl, 0, ActionCheck, 0)
	require.Equal(t, []EventKind{EventCheck, EventTurn}, kinds(events))

	mustAct(t, tbl, 1, ActionCheck, 0)
	mustAct(t, tbl, 2, ActionCheck, 0)
	events = mustAct(t, tbl, 0, ActionCheck, 0)
	require.Equal(t, []EventKind{EventCheck, EventRiver}, kinds(events))

	mustAct(t, tbl, 1, ActionCheck, 0)
	mustAct(t, tbl, 2, ActionCheck, 0)
	events = mustAct(t, tbl, 0, ActionCheck, 0)

	ks := kinds(events)
	require.Equal(t, EventCheck, ks[0])
	showdowns, awarded := 0, 0
	for _, ev := range events {
		switch ev.Kind {
		case EventShowdown:
			showdowns++
		case EventPotAward:
			awarded += ev.Amount
		}
	}
	assert.Equal(t, 3, showdowns)
	assert.Equal(t, 120, awarded)

	assert.True(t, tbl.HandComplete())
	total := 0
	for _, s := range tbl.Seats {
		total += s.Stack
	}
	assert.Equal(t, 3000, total)
}

func TestBigBlindOptionAfterLimps(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "a", "b", "c")
	_, err := tbl.StartHandSeeded(13)
	require.NoError(t, err)

	mustAct(t, tbl, 0, ActionCall, 0)
	mustAct(t, tbl, 1, ActionCall, 0)

	// The big blind still owes an action and may raise.
	legal := tbl.LegalActions(2)
	assert.True(t, legal.Allows(ActionCheck))
	assert.True(t, legal.Allows(ActionRaiseTo))

	events := mustAct(t, tbl, 2, ActionRaiseTo, 60)
	require.Equal(t, []EventKind{EventBet}, kinds(events))

	// The limpers get a renewed option against a full raise.
	legal = tbl.LegalActions(0)
	assert.True(t, legal.Allows(ActionRaiseTo))
	mustAct(t, tbl, 0, ActionCall, 0)
	mustAct(t, tbl, 1, ActionFold, 0)
	assert.Equal(t, Flop, tbl.Hand.Phase)
}

func TestShortAllInDoesNotReopenBetting(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "a", "b", "c")
	tbl.Seats[0].Stack = 100
	tbl.Seats[2].Stack = 400
	_, err := tbl.StartHandSeeded(17)
	require.NoError(t, err)

	// Button shoves 100: a full raise of 80 over the big blind.
	mustAct(t, tbl, 0, ActionRaiseTo, 100)
	assert.Equal(t, 80, tbl.Hand.MinRaiseIncrement)
	assert.Equal(t, 0, tbl.Hand.LastRaiseSeat)

	// SB re-raises to 300: full raise of 200, reopening the betting.
	mustAct(t, tbl, 1, ActionRaiseTo, 300)
	assert.Equal(t, 200, tbl.Hand.MinRaiseIncrement)
	assert.Equal(t, 1, tbl.Hand.LastRaiseSeat)

	// BB's stack reaches only 400: short of the 500 min-raise-to, legal
	// only as an all-in, and it must not reopen the betting.
	legal := tbl.LegalActions(2)
	require.True(t, legal.Allows(ActionRaiseTo))
	assert.Equal(t, 400, legal.MinRaiseTo)
	assert.Equal(t, 400, legal.MaxRaiseTo)

	_, err = tbl.ApplyAction(2, ActionRaiseTo, 350)
	require.Error(t, err, "a short raise that is not all-in must be rejected")

	mustAct(t, tbl, 2, ActionRaiseTo, 400)
	assert.Equal(t, 200, tbl.Hand.MinRaiseIncrement, "short all-in must not change the increment")
	assert.Equal(t, 1, tbl.Hand.LastRaiseSeat, "short all-in must not take the raise reference")

	// Action returns to the SB, who may only call or fold.
	actor, ok := tbl.CurrentActor()
	require.True(t, ok)
	require.Equal(t, 1, actor)
	legal = tbl.LegalActions(1)
	assert.True(t, legal.Allows(ActionCall))
	assert.False(t, legal.Allows(ActionRaiseTo))
	assert.Equal(t, 100, legal.CallAmount)

	_, err = tbl.ApplyAction(1, ActionRaiseTo, 600)
	require.Error(t, err)

	mustAct(t, tbl, 1, ActionCall, 0)

	// Everyone left is all-in or covered; the board runs out.
	assert.True(t, tbl.HandComplete())
	total := 0
	for _, s := range tbl.Seats {
		total += s.Stack
	}
	assert.Equal(t, 1500, total)
}

func TestCheckIllegalFacingABet(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	_, err := tbl.StartHandSeeded(1)
	require.NoError(t, err)

	// Button owes 10 to call; a check is a rule violation, not a state
	// change.
	_, err = tbl.ApplyAction(0, ActionCheck, 0)
	require.Error(t, err)
	assert.Equal(t, 20, tbl.Hand.CurrentBet)
	actor, _ := tbl.CurrentActor()
	assert.Equal(t, 0, actor, "the turn stays open after a rejected action")
}

func TestOutOfTurnRejected(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "a", "b", "c")
	_, err := tbl.StartHandSeeded(1)
	require.NoError(t, err)

	_, err = tbl.ApplyAction(1, ActionFold, 0)
	require.Error(t, err)
	assert.Equal(t, CodeOutOfTurn, err.(*Error).Code)
}

func TestRaiseBounds(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	_, err := tbl.StartHandSeeded(1)
	require.NoError(t, err)

	legal := tbl.LegalActions(0)
	assert.Equal(t, 40, legal.MinRaiseTo)
	assert.Equal(t, 1000, legal.MaxRaiseTo)

	_, err = tbl.ApplyAction(0, ActionRaiseTo, 30)
	require.Error(t, err, "below min raise and not all-in")
	_, err = tbl.ApplyAction(0, ActionRaiseTo, 1200)
	require.Error(t, err, "beyond available chips")

	events := mustAct(t, tbl, 0, ActionRaiseTo, 40)
	assert.Equal(t, []EventKind{EventBet}, kinds(events))
	assert.Equal(t, 20, tbl.Hand.MinRaiseIncrement)
}

func TestFullRaiseUpdatesIncrement(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	_, err := tbl.StartHandSeeded(1)
	require.NoError(t, err)

	mustAct(t, tbl, 0, ActionRaiseTo, 70)
	assert.Equal(t, 50, tbl.Hand.MinRaiseIncrement)
	assert.Equal(t, 0, tbl.Hand.LastRaiseSeat)

	legal := tbl.LegalActions(1)
	assert.Equal(t, 120, legal.MinRaiseTo)
}

func TestUncontestedPotEndsHandWithoutReveals(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "a", "b", "c")
	_, err := tbl.StartHandSeeded(1)
	require.NoError(t, err)

	mustAct(t, tbl, 0, ActionFold, 0)
	events := mustAct(t, tbl, 1, ActionFold, 0)

	require.Equal(t, []EventKind{EventFold, EventPotAward}, kinds(events))
	assert.Empty(t, tbl.Hand.Community, "no community cards revealed")
	assert.True(t, tbl.HandComplete())
}

func TestAllInSeatLeavesActorQueue(t *testing.T) {
	tbl := newTestTable(t, 3, 1000, 10, 20, "a", "b", "c")
	tbl.Seats[1].Stack = 50
	_, err := tbl.StartHandSeeded(1)
	require.NoError(t, err)

	mustAct(t, tbl, 0, ActionRaiseTo, 100)
	// SB calls all-in short; it participates through showdown but never
	// appears in the queue again.
	mustAct(t, tbl, 1, ActionCall, 0)
	assert.Equal(t, 0, tbl.Seats[1].Stack)

	mustAct(t, tbl, 2, ActionCall, 0)
	require.Equal(t, Flop, tbl.Hand.Phase)

	for !tbl.HandComplete() {
		actor, ok := tbl.CurrentActor()
		require.True(t, ok)
		require.NotEqual(t, 1, actor, "all-in seat must not be prompted")
		mustAct(t, tbl, actor, ActionCheck, 0)
	}
}

func TestFallbackOrderCheckThenCallThenFold(t *testing.T) {
	tbl := newTestTable(t, 2, 1000, 10, 20, "a", "b")
	_, err := tbl.StartHandSeeded(1)
	require.NoError(t, err)

	// Button faces a call: CHECK is not legal, CALL is.
	legal := tbl.LegalActions(0)
	assert.False(t, legal.Allows(ActionCheck))
	assert.True(t, legal.Allows(ActionCall))

	mustAct(t, tbl, 0, ActionCall, 0)

	// Big blind owes nothing: CHECK is legal.
	legal = tbl.LegalActions(1)
	assert.True(t, legal.Allows(ActionCheck))
}
