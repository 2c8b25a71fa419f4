package engine

import (
	"strings"

	"github.com/lox/holdem-table/internal/deck"
)

// Seat holds per-seat state that persists across hands until the player
// busts. It is created on first seat claim and mutated only by the engine
// during a hand, or by the coordinator when toggling Connected.
type Seat struct {
	Index            int
	TeamLabel        string // display label, may change across reconnects
	teamKey          string // case-folded identity key, immutable once set
	Stack            int
	Committed        int // committed this betting round
	TotalContributed int // total contributed this hand
	Connected        bool
	Folded           bool
	HoleCards        []deck.Card
}

// TeamKey returns the case-folded identity key used to recognise a
// reconnecting team across sessions.
func (s *Seat) TeamKey() string {
	return s.teamKey
}

// Empty reports whether the seat has never been claimed.
func (s *Seat) Empty() bool {
	return s.teamKey == ""
}

// Busted reports whether the seat has no chips left between hands. Busted
// seats are skipped by button rotation and hand-start eligibility.
func (s *Seat) Busted() bool {
	return !s.Empty() && s.Stack == 0
}

func normalizeTeamKey(team string) string {
	return strings.ToLower(strings.TrimSpace(team))
}

func resetForHand(s *Seat) {
	s.Folded = false
	s.Committed = 0
	s.TotalContributed = 0
	s.HoleCards = nil
}
