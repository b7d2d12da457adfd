package rating

// Game is a single match of the log as seen by the engine.
type Game struct {
	PlayerA string  `db:"player_a"`
	PlayerB string  `db:"player_b"`
	LegsA   int     `db:"legs_a"`
	LegsB   int     `db:"legs_b"`
	AvgA    float64 `db:"avg_a"`
	AvgB    float64 `db:"avg_b"`
	DeltaA  int     `db:"delta_a"`
	DeltaB  int     `db:"delta_b"`
}

// Standing is the replayed state of a single player.
type Standing struct {
	Rating int
	Games  int
}

// Replay is the result of replaying a match log.
type Replay struct {
	Standings map[string]Standing
	Games     []Game // annotated copy of the log, same order
}

// Replay rebuilds every rating from scratch by applying the games in the
// given order. Each player in players and in the log starts at its seed, or
// at StartRating when it has none. The returned games carry the deltas
// applied at that point of the log; the input slice is not modified.
func (e Engine) Replay(players []string, games []Game, seeds map[string]int) Replay {
	res := Replay{
		Standings: make(map[string]Standing, len(players)),
		Games:     make([]Game, len(games)),
	}

	seed := func(name string) {
		if _, ok := res.Standings[name]; ok {
			return
		}
		r, ok := seeds[name]
		if !ok {
			r = e.StartRating
		}
		res.Standings[name] = Standing{Rating: r}
	}

	for _, name := range players {
		seed(name)
	}

	for i, g := range games {
		seed(g.PlayerA)
		seed(g.PlayerB)

		a, b := res.Standings[g.PlayerA], res.Standings[g.PlayerB]
		g.DeltaA, g.DeltaB = e.Delta(a.Rating, b.Rating, g.LegsA, g.LegsB, g.AvgA, g.AvgB)

		a.Rating += g.DeltaA
		b.Rating += g.DeltaB
		a.Games++
		b.Games++

		res.Standings[g.PlayerA], res.Standings[g.PlayerB] = a, b
		res.Games[i] = g
	}

	return res
}
