package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/bobylevd/dart-ranking/app/draw"
	"github.com/bobylevd/dart-ranking/app/rating"
)

// Service wraps the database store with the ranking logic. Every change of
// the match log replays the whole season and saves the result at once.
type Service struct {
	Store  *Store
	Engine rating.Engine
	Drawer draw.Drawer

	mu sync.Mutex // guards the read, replay, write sequence
}

// ErrInvalidMatch is issued when a match result can't be recorded.
var ErrInvalidMatch = errors.New("invalid match")

// ErrInvalidFactor is issued when the season multiplier is out of (0, 1].
var ErrInvalidFactor = errors.New("invalid season multiplier")

// ErrInvalidName is issued on registration with an empty name.
var ErrInvalidName = errors.New("invalid player name")

// ErrUnknownPlayers indicates that certain players were not found in the
// database and are required to be registered.
type ErrUnknownPlayers []string

// Error returns the error message.
func (e ErrUnknownPlayers) Error() string {
	return fmt.Sprintf("players are required to register: %s", strings.Join(e, ", "))
}

// formGames is the number of recent matches summed up in Rank.Form.
const formGames = 3

// Register registers a new player with the start rating.
func (s *Service) Register(ctx context.Context, name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pl := Player{Name: name, Rating: s.Engine.StartRating}
	if err := s.Store.Create(ctx, pl); err != nil {
		return Player{}, fmt.Errorf("create player: %w", err)
	}

	log.Printf("[INFO] registered player %q", name)
	return pl, nil
}

// Players returns all registered players ordered by name.
func (s *Service) Players(ctx context.Context) ([]Player, error) {
	players, err := s.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// Matches returns the log of the current season, oldest first.
func (s *Service) Matches(ctx context.Context) ([]Match, error) {
	season, err := s.Store.Season(ctx)
	if err != nil {
		return nil, err
	}

	matches, err := s.Store.Matches(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// AddMatch appends the match to the log and returns it with the applied deltas.
func (s *Service) AddMatch(ctx context.Context, m Match) (Match, error) {
	var added Match
	err := s.replay(ctx, func(players map[string]Player, ms []Match) ([]Match, []int64, error) {
		if err := s.validate(players, m); err != nil {
			return nil, nil, err
		}
		m.ID = 0
		return append(ms, m), nil, nil
	}, func(ms []Match) { added = ms[len(ms)-1] })
	if err != nil {
		return Match{}, err
	}

	log.Printf("[INFO] recorded match %s, deltas %+d/%+d", added, added.DeltaA, added.DeltaB)
	return added, nil
}

// UpdateMatch replaces the match at the given position of the current log.
func (s *Service) UpdateMatch(ctx context.Context, idx int, m Match) (Match, error) {
	var updated Match
	err := s.replay(ctx, func(players map[string]Player, ms []Match) ([]Match, []int64, error) {
		if idx < 0 || idx >= len(ms) {
			return nil, nil, fmt.Errorf("match #%d: %w", idx, ErrNotFound)
		}
		if err := s.validate(players, m); err != nil {
			return nil, nil, err
		}
		m.ID = ms[idx].ID
		ms[idx] = m
		return ms, nil, nil
	}, func(ms []Match) { updated = ms[idx] })
	if err != nil {
		return Match{}, err
	}

	log.Printf("[INFO] updated match #%d to %s", idx, updated)
	return updated, nil
}

// DeleteMatch removes the match at the given position of the current log.
func (s *Service) DeleteMatch(ctx context.Context, idx int) (Match, error) {
	var deleted Match
	err := s.replay(ctx, func(_ map[string]Player, ms []Match) ([]Match, []int64, error) {
		if idx < 0 || idx >= len(ms) {
			return nil, nil, fmt.Errorf("match #%d: %w", idx, ErrNotFound)
		}
		deleted = ms[idx]
		return append(ms[:idx], ms[idx+1:]...), []int64{deleted.ID}, nil
	}, nil)
	if err != nil {
		return Match{}, err
	}

	log.Printf("[INFO] deleted match #%d %s", idx, deleted)
	return deleted, nil
}

// Recompute replays the current log without changing it.
func (s *Service) Recompute(ctx context.Context) error {
	return s.replay(ctx, unchanged, nil)
}

type mutation func(players map[string]Player, log []Match) (newLog []Match, deleted []int64, err error)

func unchanged(_ map[string]Player, ms []Match) ([]Match, []int64, error) { return ms, nil, nil }

// replay loads the current season, applies the mutation, replays the log and
// saves players and matches in one go. Nothing is written if the mutation
// fails. done receives the annotated log before it's saved.
func (s *Service) replay(ctx context.Context, mutate mutation, done func([]Match)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replayLocked(ctx, mutate, done)
}

func (s *Service) replayLocked(ctx context.Context, mutate mutation, done func([]Match)) error {
	season, err := s.Store.Season(ctx)
	if err != nil {
		return err
	}

	players, err := s.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}

	matches, err := s.Store.Matches(ctx, season)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}

	byName := make(map[string]Player, len(players))
	names := make([]string, 0, len(players))
	seeds := map[string]int{}
	for _, pl := range players {
		byName[pl.Name] = pl
		names = append(names, pl.Name)
		if pl.Seed != nil {
			seeds[pl.Name] = *pl.Seed
		}
	}

	matches, deleted, err := mutate(byName, matches)
	if err != nil {
		return err
	}

	games := make([]rating.Game, len(matches))
	for i, m := range matches {
		games[i] = m.Game
	}

	res := s.Engine.Replay(names, games, seeds)
	for i := range matches {
		matches[i].Game = res.Games[i]
	}

	snap := Snapshot{Season: season, Matches: matches, Deleted: deleted}
	for name, st := range res.Standings {
		pl, ok := byName[name]
		if !ok {
			log.Printf("[WARN] player %q is referenced by the log but not registered, seeding", name)
			pl = Player{Name: name}
		}
		pl.Rating, pl.GamesPlayed = st.Rating, st.Games
		snap.Players = append(snap.Players, pl)
	}
	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].Name < snap.Players[j].Name })

	log.Printf("[DEBUG] replayed %d matches of season %d for %d players", len(matches), season, len(snap.Players))

	if done != nil {
		done(matches)
	}

	if err := s.Store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// validate checks a match result before it reaches the log.
func (s *Service) validate(players map[string]Player, m Match) error {
	switch {
	case m.PlayerA == "" || m.PlayerB == "":
		return fmt.Errorf("%w: both players are required", ErrInvalidMatch)
	case m.PlayerA == m.PlayerB:
		return fmt.Errorf("%w: %s can't play against themselves", ErrInvalidMatch, m.PlayerA)
	case m.LegsA < 0 || m.LegsB < 0:
		return fmt.Errorf("%w: legs can't be negative", ErrInvalidMatch)
	case m.AvgA < 0 || m.AvgB < 0 || math.IsNaN(m.AvgA) || math.IsNaN(m.AvgB) ||
		math.IsInf(m.AvgA, 0) || math.IsInf(m.AvgB, 0):
		return fmt.Errorf("%w: averages must be non-negative numbers", ErrInvalidMatch)
	}

	var missing ErrUnknownPlayers
	for _, name := range []string{m.PlayerA, m.PlayerB} {
		if _, ok := players[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return missing
	}

	return nil
}

// Draw draws a schedule for the given attendees, all of them must be registered.
func (s *Service) Draw(ctx context.Context, attendees []string, opponents int) (draw.Schedule, error) {
	players, err := s.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	known := make(map[string]bool, len(players))
	for _, pl := range players {
		known[pl.Name] = true
	}

	var missing ErrUnknownPlayers
	for _, name := range attendees {
		if !known[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, missing
	}

	schedule, err := s.Drawer.Draw(attendees, opponents)
	if err != nil {
		return nil, fmt.Errorf("draw: %w", err)
	}

	log.Printf("[INFO] drew %d pairings for %d players", len(schedule), len(attendees))
	return schedule, nil
}

// Ranking returns the leaderboard of the current season, best first.
func (s *Service) Ranking(ctx context.Context) ([]Rank, error) {
	players, err := s.Players(ctx)
	if err != nil {
		return nil, err
	}

	matches, err := s.Matches(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(players, func(i, j int) bool { return players[i].Rating > players[j].Rating })

	ranks := make([]Rank, len(players))
	for i, pl := range players {
		ranks[i] = Rank{Place: i + 1, Player: pl, Form: form(matches, pl.Name)}
	}
	return ranks, nil
}

// form sums up the deltas of the last matches of the player.
func form(matches []Match, name string) int {
	var sum, n int
	for i := len(matches) - 1; i >= 0 && n < formGames; i-- {
		if !matches[i].Involves(name) {
			continue
		}
		_, _, _, delta := matches[i].Side(name)
		sum += delta
		n++
	}
	return sum
}

// PlayerStats returns the season summary of the player.
func (s *Service) PlayerStats(ctx context.Context, name string) (Stats, error) {
	pl, err := s.Store.Get(ctx, name)
	if err != nil {
		return Stats{}, err
	}

	matches, err := s.Matches(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{Player: pl}
	var avgSum float64
	var games int
	for _, m := range matches {
		if !m.Involves(name) {
			continue
		}
		won, lost, avg, delta := m.Side(name)
		games++
		st.LegDiff += won - lost
		st.Points += delta
		avgSum += avg

		switch own, opp := m.Result(s.Engine, name); {
		case own > opp:
			st.Wins++
		case own < opp:
			st.Losses++
		}
	}

	st.GamesPlayed = games
	if games > 0 {
		st.Average = avgSum / float64(games)
	}
	return st, nil
}

// PreviewSeason returns the ratings the players would carry into the next
// season with the given multiplier.
func (s *Service) PreviewSeason(ctx context.Context, factor float64) ([]Compression, error) {
	if err := checkFactor(factor); err != nil {
		return nil, err
	}

	players, err := s.Players(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]Compression, len(players))
	for i, pl := range players {
		res[i] = Compression{Name: pl.Name, Rating: pl.Rating, New: s.compress(pl.Rating, factor)}
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Rating > res[j].Rating })
	return res, nil
}

// CloseSeason pulls all ratings towards the start rating with the given
// multiplier and starts a new season. The compressed ratings become the
// seeds of the new season's replay.
func (s *Service) CloseSeason(ctx context.Context, factor float64) (int, []Compression, error) {
	if err := checkFactor(factor); err != nil {
		return 0, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.replayLocked(ctx, unchanged, nil); err != nil {
		return 0, nil, fmt.Errorf("recompute: %w", err)
	}

	preview, err := s.PreviewSeason(ctx, factor)
	if err != nil {
		return 0, nil, err
	}

	players := make([]Player, len(preview))
	for i, c := range preview {
		seed := c.New
		players[i] = Player{Name: c.Name, Rating: c.New, Seed: &seed}
	}

	season, err := s.Store.StartSeason(ctx, factor, players)
	if err != nil {
		return 0, nil, fmt.Errorf("start season: %w", err)
	}

	log.Printf("[INFO] started season %d with multiplier %.2f", season, factor)
	return season, preview, nil
}

func checkFactor(factor float64) error {
	if factor <= 0 || factor > 1 || math.IsNaN(factor) {
		return fmt.Errorf("%w: must be in (0, 1], got %.2f", ErrInvalidFactor, factor)
	}
	return nil
}

func (s *Service) compress(r int, factor float64) int {
	start := s.Engine.StartRating
	return start + rating.Round(float64(r-start)*factor)
}
