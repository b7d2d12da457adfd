// Package report renders rankings, matches and schedules as text tables.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/syohex/go-texttable"

	"github.com/bobylevd/dart-ranking/app/draw"
	"github.com/bobylevd/dart-ranking/app/store"
)

// Delta formats a rating change with its sign and a trend arrow.
func Delta(v int) string {
	switch {
	case v > 0:
		return fmt.Sprintf("+%d ▲", v)
	case v < 0:
		return fmt.Sprintf("%d ▼", v)
	default:
		return "0"
	}
}

// Ranking renders the leaderboard.
func Ranking(ranks []store.Rank) string {
	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("#", "Player", "Games", "Rating", "Form")

	for _, r := range ranks {
		_ = tbl.AddRow(
			strconv.Itoa(r.Place),
			r.Name,
			strconv.Itoa(r.GamesPlayed),
			strconv.Itoa(r.Rating),
			Delta(r.Form),
		)
	}

	return tbl.Draw()
}

// Players renders the registered players.
func Players(players []store.Player) string {
	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("Player", "Rating", "Games", "Seed")

	for _, pl := range players {
		seed := "-"
		if pl.Seed != nil {
			seed = strconv.Itoa(*pl.Seed)
		}
		_ = tbl.AddRow(pl.Name, strconv.Itoa(pl.Rating), strconv.Itoa(pl.GamesPlayed), seed)
	}

	return tbl.Draw()
}

// Matches renders the match log with the index used to edit or delete entries.
func Matches(matches []store.Match) string {
	return MatchesFrom(matches, 0)
}

// MatchesFrom renders a tail of the match log, first is the log index of
// matches[0].
func MatchesFrom(matches []store.Match, first int) string {
	if len(matches) == 0 {
		return "no matches recorded yet"
	}

	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("#", "Round", "Match", "Avg", "Delta")

	for idx, m := range matches {
		_ = tbl.AddRow(
			strconv.Itoa(first+idx),
			m.Round,
			m.String(),
			fmt.Sprintf("%.2f / %.2f", m.AvgA, m.AvgB),
			fmt.Sprintf("%s | %s", Delta(m.DeltaA), Delta(m.DeltaB)),
		)
	}

	return tbl.Draw()
}

// Stats renders the season summary of a player.
func Stats(st store.Stats) string {
	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("Player", "Rating", "Games", "Wins", "Losses", "WinRate", "LegDiff", "Average", "Points")

	_ = tbl.AddRow(
		st.Name,
		strconv.Itoa(st.Rating),
		strconv.Itoa(st.GamesPlayed),
		strconv.Itoa(st.Wins),
		strconv.Itoa(st.Losses),
		fmt.Sprintf("%.2f%%", st.WinRate()*100),
		fmt.Sprintf("%+d", st.LegDiff),
		fmt.Sprintf("%.2f", st.Average),
		Delta(st.Points),
	)

	return tbl.Draw()
}

// Recorded renders the result of a newly recorded match.
func Recorded(m store.Match) string {
	return fmt.Sprintf("%s recorded (avg %.2f/%.2f), rating change: %s | %s",
		m, m.AvgA, m.AvgB, Delta(m.DeltaA), Delta(m.DeltaB))
}

// Schedule renders the opponents of every player, sorted by name.
func Schedule(s draw.Schedule) string {
	opps := s.Opponents()

	names := make([]string, 0, len(opps))
	for name := range opps {
		names = append(names, name)
	}
	sort.Strings(names)

	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("Player", "Opponents")
	for _, name := range names {
		_ = tbl.AddRow(name, strings.Join(opps[name], ", "))
	}

	return tbl.Draw()
}

// Season renders the effect of the season multiplier.
func Season(cs []store.Compression) string {
	tbl := &texttable.TextTable{}
	_ = tbl.SetHeader("Player", "Rating", "New")
	for _, c := range cs {
		_ = tbl.AddRow(c.Name, strconv.Itoa(c.Rating), strconv.Itoa(c.New))
	}
	return tbl.Draw()
}
