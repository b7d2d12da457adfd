package store

import (
	"fmt"

	"github.com/bobylevd/dart-ranking/app/rating"
)

// Player represents a registered club member.
type Player struct {
	Name        string `db:"name"`
	Rating      int    `db:"rating"`
	GamesPlayed int    `db:"games_played"`
	Seed        *int   `db:"seed"` // start rating of the current season, nil for the default
}

// Match represents a single entry of the match log.
type Match struct {
	ID       int64  `db:"id"`
	Season   int    `db:"season"`
	Position int    `db:"position"`
	Round    string `db:"round"`
	rating.Game
}

// Result returns the scores of the match from the point of view of the given
// player. Equal legs follow the tie policy of the engine.
func (m Match) Result(e rating.Engine, name string) (own, opp float64) {
	sa, sb := e.Score(m.LegsA, m.LegsB)
	if m.PlayerA == name {
		return sa, sb
	}
	return sb, sa
}

// Involves reports whether the player took part in the match.
func (m Match) Involves(name string) bool {
	return m.PlayerA == name || m.PlayerB == name
}

// Side returns legs won, legs lost, average and delta from the point of view
// of the given player.
func (m Match) Side(name string) (won, lost int, avg float64, delta int) {
	if m.PlayerA == name {
		return m.LegsA, m.LegsB, m.AvgA, m.DeltaA
	}
	return m.LegsB, m.LegsA, m.AvgB, m.DeltaB
}

// String returns the match in format of "A 3:1 B".
func (m Match) String() string {
	return fmt.Sprintf("%s %d:%d %s", m.PlayerA, m.LegsA, m.LegsB, m.PlayerB)
}

// Rank is a single line of the leaderboard.
type Rank struct {
	Place int
	Player
	Form int // sum of the deltas of the last three matches
}

// Stats summarizes the season of a single player.
type Stats struct {
	Player
	Wins    int
	Losses  int
	LegDiff int
	Average float64 // mean performance average over all matches
	Points  int     // sum of all deltas
}

// WinRate returns the share of matches won.
func (s Stats) WinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.GamesPlayed)
}

// Compression is the effect of the season multiplier on a single player.
type Compression struct {
	Name   string
	Rating int
	New    int
}
