package event

import (
	"context"
	"math/rand/v2"
	"testing"

	_ "github.com/glebarez/go-sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobylevd/dart-ranking/app/draw"
	"github.com/bobylevd/dart-ranking/app/rating"
	"github.com/bobylevd/dart-ranking/app/store"
)

func newDiscord(t *testing.T) *Discord {
	t.Helper()
	s, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return &Discord{
		AdminIDs: []string{"42"},
		Service: &store.Service{
			Store:  s,
			Engine: rating.Engine{Config: rating.DefaultConfig()},
			Drawer: draw.Drawer{Rand: rand.New(rand.NewPCG(3, 4))},
		},
	}
}

func TestParseMatch(t *testing.T) {
	m, err := parseMatch([]string{"anna", "ben", "3:1", "55,5", "45.25", "round", "3"})
	require.NoError(t, err)
	assert.Equal(t, "anna", m.PlayerA)
	assert.Equal(t, "ben", m.PlayerB)
	assert.Equal(t, 3, m.LegsA)
	assert.Equal(t, 1, m.LegsB)
	assert.Equal(t, 55.5, m.AvgA)
	assert.Equal(t, 45.25, m.AvgB)
	assert.Equal(t, "round 3", m.Round)

	m, err = parseMatch([]string{"anna", "ben", "0:3"})
	require.NoError(t, err)
	assert.Equal(t, 50.0, m.AvgA)
	assert.Equal(t, 50.0, m.AvgB)
	assert.Empty(t, m.Round)

	for _, args := range [][]string{
		{"anna", "ben"},
		{"anna", "ben", "3-1"},
		{"anna", "ben", "x:1"},
		{"anna", "ben", "3:y"},
		{"anna", "ben", "3:1", "fast"},
	} {
		_, err := parseMatch(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestRoute(t *testing.T) {
	d := newDiscord(t)

	assert.NotNil(t, d.route("!rank", "1"))
	assert.NotNil(t, d.route("!draw", "1"))
	assert.Nil(t, d.route("!match", "1"))
	assert.Nil(t, d.route("!delete", "1"))
	assert.NotNil(t, d.route("!match", "42"))
	assert.Nil(t, d.route("!unknown", "42"))
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	d := newDiscord(t)

	for _, name := range []string{"anna", "ben", "carl", "dora", "eve"} {
		reply, err := d.register(ctx, []string{name})
		require.NoError(t, err)
		assert.Contains(t, reply, "registered")
	}

	reply, err := d.register(ctx, []string{"anna"})
	require.NoError(t, err)
	assert.Equal(t, "invalid or already registered name", reply)

	reply, err = d.addMatch(ctx, []string{"anna", "ben", "3:1", "55", "45", "1"})
	require.NoError(t, err)
	assert.Contains(t, reply, "+17 ▲ | -17 ▼")

	reply, err = d.addMatch(ctx, []string{"anna", "anna", "3:1"})
	require.NoError(t, err)
	assert.Contains(t, reply, "invalid match")

	reply, err = d.addMatch(ctx, []string{"anna", "zoe", "3:1"})
	require.NoError(t, err)
	assert.Contains(t, reply, "zoe")

	reply, err = d.rank(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "1017")

	reply, err = d.matches(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, reply, "anna 3:1 ben")

	reply, err = d.editMatch(ctx, []string{"0", "ben", "anna", "3:2"})
	require.NoError(t, err)
	assert.Contains(t, reply, "match #0 updated")

	reply, err = d.player(ctx, []string{"ben"})
	require.NoError(t, err)
	assert.Contains(t, reply, "100.00%")

	reply, err = d.player(ctx, []string{"zoe"})
	require.NoError(t, err)
	assert.Equal(t, "player zoe not found", reply)

	reply, err = d.deleteMatch(ctx, []string{"3"})
	require.NoError(t, err)
	assert.Contains(t, reply, "not found")

	reply, err = d.deleteMatch(ctx, []string{"0"})
	require.NoError(t, err)
	assert.Contains(t, reply, "deleted")

	reply, err = d.draw(ctx, []string{"4", "anna", "ben", "carl", "dora", "eve"})
	require.NoError(t, err)
	assert.Contains(t, reply, "ben, carl, dora, eve")

	reply, err = d.draw(ctx, []string{"4", "anna", "ben", "carl", "dora"})
	require.NoError(t, err)
	assert.Contains(t, reply, "can't draw")

	reply, err = d.draw(ctx, []string{"3", "anna", "ben", "carl", "dora", "eve"})
	require.NoError(t, err)
	assert.Contains(t, reply, "no valid draw found")
}
