// Package draw produces randomized pairing schedules for an event night.
package draw

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

// Errors returned by Draw.
var (
	ErrInvalid          = errors.New("invalid draw request")
	ErrNotEnoughPlayers = errors.New("not enough players for the requested number of opponents")
	ErrNoSchedule       = errors.New("no valid schedule found")
)

// Strategy defines the order in which candidate pairs are tried.
type Strategy string

// Supported strategies.
const (
	PerPlayer Strategy = "per-player" // shuffle each player's remaining opponents in turn
	Pairs     Strategy = "pairs"      // shuffle the full list of unordered pairs once per attempt
)

// DefaultAttempts is the retry budget used when Drawer.Attempts is zero.
const DefaultAttempts = 5000

// Pair is an unordered pairing, A sorts before B.
type Pair struct {
	A, B string
}

// String returns the pair in format of "A vs B".
func (p Pair) String() string {
	return fmt.Sprintf("%s vs %s", p.A, p.B)
}

// Schedule is the set of pairings of an event night.
type Schedule []Pair

// Opponents returns the sorted list of opponents of every player.
func (s Schedule) Opponents() map[string][]string {
	res := map[string][]string{}
	for _, p := range s {
		res[p.A] = append(res[p.A], p.B)
		res[p.B] = append(res[p.B], p.A)
	}
	for _, opps := range res {
		sort.Strings(opps)
	}
	return res
}

// Drawer searches for schedules in which every player meets exactly the
// requested number of distinct opponents. The search is greedy with random
// restarts and may fail on inputs for which a schedule exists.
type Drawer struct {
	Attempts int
	Strategy Strategy
	Rand     *rand.Rand // defaults to the global source
}

// Draw returns a schedule for the given players. Every player appears in
// exactly opponents pairs, no pair appears twice and nobody plays themselves.
func (d Drawer) Draw(players []string, opponents int) (Schedule, error) {
	if opponents < 1 {
		return nil, fmt.Errorf("%w: opponents per player must be positive, got %d", ErrInvalid, opponents)
	}

	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w: empty player name", ErrInvalid)
		}
		if _, ok := seen[p]; ok {
			return nil, fmt.Errorf("%w: duplicate player %q", ErrInvalid, p)
		}
		seen[p] = struct{}{}
	}

	if len(players) < opponents+1 {
		return nil, fmt.Errorf("%w: %d players, %d opponents each", ErrNotEnoughPlayers, len(players), opponents)
	}

	// every pair adds two to the degree sum, an odd sum can never be met
	if len(players)*opponents%2 != 0 {
		return nil, fmt.Errorf("%w: %d players can't each meet %d opponents", ErrNoSchedule, len(players), opponents)
	}

	attempts := d.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	for i := 0; i < attempts; i++ {
		var g graph
		switch d.Strategy {
		case Pairs:
			g = d.byPairs(players, opponents)
		default:
			g = d.byPlayer(players, opponents)
		}

		if g.regular(players, opponents) {
			return g.schedule(players), nil
		}
	}

	return nil, fmt.Errorf("%w: %d players, %d opponents each, %d attempts", ErrNoSchedule,
		len(players), opponents, attempts)
}

// byPlayer goes through the players in order, shuffles the opponents each of
// them may still meet and greedily accepts them while both have room.
func (d Drawer) byPlayer(players []string, opponents int) graph {
	g := newGraph(players)
	for _, s := range players {
		var candidates []string
		for _, o := range players {
			if o != s && !g.has(s, o) {
				candidates = append(candidates, o)
			}
		}
		d.shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

		for _, o := range candidates {
			if len(g[s]) < opponents && len(g[o]) < opponents {
				g.add(s, o)
			}
		}
	}
	return g
}

// byPairs shuffles all unordered pairs and greedily accepts them while both
// players have room.
func (d Drawer) byPairs(players []string, opponents int) graph {
	pairs := make([]Pair, 0, len(players)*(len(players)-1)/2)
	for i := range players {
		for j := i + 1; j < len(players); j++ {
			pairs = append(pairs, Pair{A: players[i], B: players[j]})
		}
	}
	d.shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })

	g := newGraph(players)
	for _, p := range pairs {
		if len(g[p.A]) < opponents && len(g[p.B]) < opponents && !g.has(p.A, p.B) {
			g.add(p.A, p.B)
		}
	}
	return g
}

func (d Drawer) shuffle(n int, swap func(i, j int)) {
	if d.Rand != nil {
		d.Rand.Shuffle(n, swap)
		return
	}
	rand.Shuffle(n, swap)
}

// graph maps each player to the set of assigned opponents.
type graph map[string]map[string]struct{}

func newGraph(players []string) graph {
	g := make(graph, len(players))
	for _, p := range players {
		g[p] = map[string]struct{}{}
	}
	return g
}

func (g graph) has(a, b string) bool {
	_, ok := g[a][b]
	return ok
}

func (g graph) add(a, b string) {
	g[a][b] = struct{}{}
	g[b][a] = struct{}{}
}

func (g graph) regular(players []string, degree int) bool {
	for _, p := range players {
		if len(g[p]) != degree {
			return false
		}
	}
	return true
}

// schedule emits every edge once, following the order of players.
func (g graph) schedule(players []string) Schedule {
	res := make(Schedule, 0, len(players))
	for i, a := range players {
		for _, b := range players[i+1:] {
			if !g.has(a, b) {
				continue
			}
			p := Pair{A: a, B: b}
			if p.B < p.A {
				p.A, p.B = p.B, p.A
			}
			res = append(res, p)
		}
	}
	return res
}
