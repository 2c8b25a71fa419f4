package engine

import (
	"sort"

	"github.com/lox/holdem-table/internal/deck"
	"github.com/lox/holdem-table/internal/evaluator"
)

// awardUncontestedPot ends the hand immediately when folds have left a
// single active seat: no cards are revealed, the whole pot goes to the
// survivor.
func (t *Table) awardUncontestedPot(winner *Seat) {
	hand := t.Hand
	amount := hand.Pot
	winner.Stack += amount
	hand.Pot = 0
	hand.emit(Event{Kind: EventPotAward, Seat: winner.Index, Amount: amount})
	t.finishHand()
}

// resolveShowdown evaluates every active seat's best hand against the
// board, reveals them, and splits each pot layer among its eligible
// winners. Split remainders (the pot does not divide evenly) go to winners
// in ascending seat order, one chip at a time.
func (t *Table) resolveShowdown() {
	hand := t.Hand
	board := hand.Community

	ranks := make(map[int]evaluator.HandRank)
	for _, s := range t.activeSeats() {
		cards := make([]deck.Card, 0, len(s.HoleCards)+len(board))
		cards = append(cards, s.HoleCards...)
		cards = append(cards, board...)
		rank := evaluator.Evaluate(cards)
		ranks[s.Index] = rank
		hand.emit(Event{
			Kind:     EventShowdown,
			Seat:     s.Index,
			Cards:    deck.Labels(s.HoleCards),
			Board:    deck.Labels(board),
			Category: rank.Category.String(),
		})
	}

	for _, pot := range t.buildSidePots() {
		winners := bestHands(pot.EligibleSeats, ranks)
		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		sort.Ints(winners)
		for i, seatIdx := range winners {
			amount := share
			if i < remainder {
				amount++
			}
			t.seatByIndex(seatIdx).Stack += amount
			hand.emit(Event{Kind: EventPotAward, Seat: seatIdx, Amount: amount})
		}
	}
	hand.Pot = 0

	t.finishHand()
}

// bestHands returns the eligible seats holding the strongest hand, in
// ascending seat order.
func bestHands(eligible []int, ranks map[int]evaluator.HandRank) []int {
	var best evaluator.HandRank
	var winners []int
	for i, seatIdx := range eligible {
		rank := ranks[seatIdx]
		if i == 0 || rank.Compare(best) > 0 {
			best = rank
			winners = []int{seatIdx}
		} else if rank.Compare(best) == 0 {
			winners = append(winners, seatIdx)
		}
	}
	sort.Ints(winners)
	return winners
}

// finishHand marks the hand as resolved and emits ELIMINATED for any seat
// the hand left without chips.
func (t *Table) finishHand() {
	hand := t.Hand
	hand.Phase = Showdown
	hand.actorQueue = nil

	for _, s := range t.inHandSeats() {
		s.Committed = 0
		s.TotalContributed = 0
		if s.Stack == 0 {
			hand.emit(Event{Kind: EventEliminated, Seat: s.Index})
		}
	}
}
