package engine

import "sort"

// Pot is one layer of the pot: a chip amount and the seats eligible to win
// it. The main pot and any side pots are each represented this way.
type Pot struct {
	Amount        int
	EligibleSeats []int
}

// buildSidePots layers the pot by each in-hand seat's total contribution
// this hand, following the classic minimum-contribution algorithm: sort the
// distinct contribution levels, and at each level the layer's amount is
// (level - previous level) times the number of seats that contributed at
// least that much. A seat that folded still counts toward the layer amount
// (its chips stay in the pot) but is never eligible to win it.
func (t *Table) buildSidePots() []Pot {
	inHand := t.inHandSeats()

	levelSet := make(map[int]bool)
	for _, s := range inHand {
		if s.TotalContributed > 0 {
			levelSet[s.TotalContributed] = true
		}
	}
	levels := make([]int, 0, len(levelSet))
	for lvl := range levelSet {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)

	var pots []Pot
	prev := 0
	for _, level := range levels {
		amount := 0
		var eligible []int
		for _, s := range inHand {
			if s.TotalContributed >= level {
				amount += level - prev
				if !s.Folded {
					eligible = append(eligible, s.Index)
				}
			}
		}
		if amount > 0 {
			pots = append(pots, Pot{Amount: amount, EligibleSeats: eligible})
		}
		prev = level
	}
	return pots
}
