package store

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobylevd/dart-ranking/app/draw"
	"github.com/bobylevd/dart-ranking/app/rating"
)

func newService(t *testing.T, names ...string) *Service {
	t.Helper()
	svc := &Service{
		Store:  newStore(t),
		Engine: rating.Engine{Config: rating.DefaultConfig()},
		Drawer: draw.Drawer{Rand: rand.New(rand.NewPCG(1, 2))},
	}
	for _, name := range names {
		_, err := svc.Register(context.Background(), name)
		require.NoError(t, err)
	}
	return svc
}

func match(a, b string, la, lb int, avgA, avgB float64) Match {
	return Match{Round: "1", Game: rating.Game{PlayerA: a, PlayerB: b, LegsA: la, LegsB: lb, AvgA: avgA, AvgB: avgB}}
}

func ratings(t *testing.T, svc *Service) map[string]Player {
	t.Helper()
	players, err := svc.Players(context.Background())
	require.NoError(t, err)
	res := map[string]Player{}
	for _, pl := range players {
		res[pl.Name] = pl
	}
	return res
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	pl, err := svc.Register(ctx, "  anna ")
	require.NoError(t, err)
	assert.Equal(t, "anna", pl.Name)
	assert.Equal(t, 1000, pl.Rating)

	_, err = svc.Register(ctx, "anna")
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = svc.Register(ctx, "   ")
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestService_AddMatch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "anna", "ben")

	m, err := svc.AddMatch(ctx, match("anna", "ben", 3, 1, 55, 45))
	require.NoError(t, err)
	assert.Equal(t, 17, m.DeltaA)
	assert.Equal(t, -17, m.DeltaB)
	assert.NotZero(t, m.ID)

	pls := ratings(t, svc)
	assert.Equal(t, 1017, pls["anna"].Rating)
	assert.Equal(t, 983, pls["ben"].Rating)
	assert.Equal(t, 1, pls["anna"].GamesPlayed)

	matches, err := svc.Matches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 17, matches[0].DeltaA)
}

func TestService_AddMatchRejected(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "anna", "ben")

	tbl := map[string]Match{
		"same player":   match("anna", "anna", 3, 1, 50, 50),
		"negative legs": match("anna", "ben", -1, 3, 50, 50),
		"negative avg":  match("anna", "ben", 3, 1, -2, 50),
		"empty player":  match("", "ben", 3, 1, 50, 50),
	}
	for name, m := range tbl {
		_, err := svc.AddMatch(ctx, m)
		assert.ErrorIs(t, err, ErrInvalidMatch, name)
	}

	_, err := svc.AddMatch(ctx, match("anna", "zoe", 3, 1, 50, 50))
	var missing ErrUnknownPlayers
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, ErrUnknownPlayers{"zoe"}, missing)

	matches, err := svc.Matches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 1000, ratings(t, svc)["anna"].Rating)
}

func TestService_UpdateDeleteReplays(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "anna", "ben", "carl")

	log := []Match{
		match("anna", "ben", 3, 1, 55, 45),
		match("ben", "carl", 3, 2, 48.2, 51.7),
		match("carl", "anna", 0, 3, 39.9, 62.1),
	}
	for _, m := range log {
		_, err := svc.AddMatch(ctx, m)
		require.NoError(t, err)
	}

	// a reference service that never saw the deleted match
	ref := newService(t, "anna", "ben", "carl")
	for _, m := range []Match{log[0], log[2]} {
		_, err := ref.AddMatch(ctx, m)
		require.NoError(t, err)
	}

	deleted, err := svc.DeleteMatch(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ben", deleted.PlayerA)

	assert.Equal(t, ratings(t, ref), ratings(t, svc))

	got, err := svc.Matches(ctx)
	require.NoError(t, err)
	want, err := ref.Matches(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range got {
		assert.Equal(t, want[i].Game, got[i].Game)
		assert.Equal(t, i, got[i].Position)
	}

	// editing the first match changes everything after it
	before := got[1].DeltaB
	updated, err := svc.UpdateMatch(ctx, 0, match("ben", "anna", 3, 0, 70, 30))
	require.NoError(t, err)
	assert.Equal(t, got[0].ID, updated.ID)
	assert.Positive(t, updated.DeltaA)

	got, err = svc.Matches(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ben", got[0].PlayerA)
	assert.NotEqual(t, before, got[1].DeltaB)

	_, err = svc.UpdateMatch(ctx, 5, match("ben", "anna", 3, 0, 70, 30))
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.DeleteMatch(ctx, -1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_RecomputeIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "anna", "ben", "carl")

	for _, m := range []Match{
		match("anna", "ben", 3, 1, 55, 45),
		match("ben", "carl", 3, 2, 48.2, 51.7),
		match("carl", "anna", 3, 1, 59.9, 42.1),
	} {
		_, err := svc.AddMatch(ctx, m)
		require.NoError(t, err)
	}

	first := ratings(t, svc)
	firstLog, err := svc.Matches(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Recompute(ctx))
	require.NoError(t, svc.Recompute(ctx))

	assert.Equal(t, first, ratings(t, svc))
	secondLog, err := svc.Matches(ctx)
	require.NoError(t, err)
	assert.Equal(t, firstLog, secondLog)
}

func TestService_RecomputeSeedsUnregistered(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "anna")

	// a log entry written behind the service's back
	require.NoError(t, svc.Store.Save(ctx, Snapshot{Season: 1, Matches: []Match{match("anna", "dora", 1, 3, 50, 50)}}))
	require.NoError(t, svc.Recompute(ctx))

	pls := ratings(t, svc)
	require.Contains(t, pls, "dora")
	assert.Equal(t, 1, pls["dora"].GamesPlayed)
	assert.Greater(t, pls["dora"].Rating, 1000)
}

func TestService_RankingAndStats(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "anna", "ben", "carl", "eve")

	for _, m := range []Match{
		match("anna", "ben", 3, 1, 55, 45),
		match("ben", "carl", 3, 2, 48, 52),
		match("carl", "anna", 0, 3, 40, 60),
		match("anna", "ben", 2, 3, 50, 51),
		match("anna", "carl", 3, 0, 58, 37),
	} {
		_, err := svc.AddMatch(ctx, m)
		require.NoError(t, err)
	}

	ranks, err := svc.Ranking(ctx)
	require.NoError(t, err)
	require.Len(t, ranks, 4)
	assert.Equal(t, "anna", ranks[0].Name)
	assert.Equal(t, 1, ranks[0].Place)
	assert.Equal(t, 4, ranks[3].Place)
	for i := 1; i < len(ranks); i++ {
		assert.GreaterOrEqual(t, ranks[i-1].Rating, ranks[i].Rating)
	}

	matches, err := svc.Matches(ctx)
	require.NoError(t, err)
	byName := map[string]Rank{}
	for _, r := range ranks {
		byName[r.Name] = r
	}
	assert.Equal(t, matches[2].DeltaB+matches[3].DeltaA+matches[4].DeltaA, byName["anna"].Form)
	assert.Equal(t, 0, byName["eve"].Form)

	st, err := svc.PlayerStats(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, 4, st.GamesPlayed)
	assert.Equal(t, 3, st.Wins)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, 2+3-1+3, st.LegDiff)
	assert.InDelta(t, (55+60+50+58)/4.0, st.Average, 1e-9)
	assert.Equal(t, st.Rating-1000, st.Points)
	assert.InDelta(t, 0.75, st.WinRate(), 1e-9)

	_, err = svc.PlayerStats(ctx, "zoe")
	require.ErrorIs(t, err, ErrNotFound)

	// equal legs count as a loss for player A only, matching the deltas
	tie, err := svc.AddMatch(ctx, match("carl", "eve", 2, 2, 50, 50))
	require.NoError(t, err)
	assert.Negative(t, tie.DeltaA)
	assert.Positive(t, tie.DeltaB)

	st, err = svc.PlayerStats(ctx, "eve")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Wins)
	assert.Equal(t, 0, st.Losses)
	assert.Equal(t, 0, st.LegDiff)

	st, err = svc.PlayerStats(ctx, "carl")
	require.NoError(t, err)
	assert.Equal(t, 0, st.Wins)
	assert.Equal(t, 4, st.Losses)
}

func TestService_PlayerStatsTieAsDraw(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "anna", "ben")
	svc.Engine.Tie = rating.TieDraw

	_, err := svc.AddMatch(ctx, match("anna", "ben", 2, 2, 50, 50))
	require.NoError(t, err)

	for _, name := range []string{"anna", "ben"} {
		st, err := svc.PlayerStats(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 0, st.Wins, name)
		assert.Equal(t, 0, st.Losses, name)
		assert.Equal(t, 1, st.GamesPlayed, name)
	}
}

func TestService_Draw(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "a", "b", "c", "d", "e")

	s, err := svc.Draw(ctx, []string{"a", "b", "c", "d", "e"}, 4)
	require.NoError(t, err)
	assert.Len(t, s, 10)

	_, err = svc.Draw(ctx, []string{"a", "b", "c", "d"}, 4)
	require.ErrorIs(t, err, draw.ErrNotEnoughPlayers)

	_, err = svc.Draw(ctx, []string{"a", "b", "x"}, 2)
	var missing ErrUnknownPlayers
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, ErrUnknownPlayers{"x"}, missing)
}

func TestService_CloseSeason(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, "anna", "ben")

	_, err := svc.AddMatch(ctx, match("anna", "ben", 3, 1, 55, 45))
	require.NoError(t, err)

	preview, err := svc.PreviewSeason(ctx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []Compression{{Name: "anna", Rating: 1017, New: 1008}, {Name: "ben", Rating: 983, New: 992}}, preview)

	_, err = svc.PreviewSeason(ctx, 0)
	require.ErrorIs(t, err, ErrInvalidFactor)

	// a rejected multiplier leaves the stored state alone, a replay would
	// have restored anna's rating from the log
	require.NoError(t, svc.Store.Save(ctx, Snapshot{Season: 1, Players: []Player{{Name: "anna", Rating: 1234}}}))
	_, _, err = svc.CloseSeason(ctx, 1.5)
	require.ErrorIs(t, err, ErrInvalidFactor)
	assert.Equal(t, 1234, ratings(t, svc)["anna"].Rating)
	cur, err := svc.Store.Season(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cur)

	season, _, err := svc.CloseSeason(ctx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 2, season)

	matches, err := svc.Matches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// the compressed rating survives a replay of the new season
	require.NoError(t, svc.Recompute(ctx))
	pls := ratings(t, svc)
	assert.Equal(t, 1008, pls["anna"].Rating)
	assert.Equal(t, 0, pls["anna"].GamesPlayed)

	m, err := svc.AddMatch(ctx, match("ben", "anna", 3, 1, 50, 50))
	require.NoError(t, err)
	assert.Equal(t, 1008+m.DeltaB, ratings(t, svc)["anna"].Rating)
}
