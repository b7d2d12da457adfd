package cmd

import (
	"context"
	"fmt"

	"github.com/bobylevd/dart-ranking/app/rating"
	"github.com/bobylevd/dart-ranking/app/report"
	"github.com/bobylevd/dart-ranking/app/store"
)

// MatchOpts defines a match result.
type MatchOpts struct {
	PlayerA string  `long:"a"      required:"true"  description:"player A"`
	PlayerB string  `long:"b"      required:"true"  description:"player B"`
	LegsA   int     `long:"legs-a" required:"true"  description:"legs won by player A"`
	LegsB   int     `long:"legs-b" required:"true"  description:"legs won by player B"`
	AvgA    float64 `long:"avg-a"  default:"50"     description:"performance average of player A"`
	AvgB    float64 `long:"avg-b"  default:"50"     description:"performance average of player B"`
	Round   string  `long:"round"                   description:"date or round label"`
}

func (m MatchOpts) match() store.Match {
	return store.Match{
		Round: m.Round,
		Game: rating.Game{
			PlayerA: m.PlayerA,
			PlayerB: m.PlayerB,
			LegsA:   m.LegsA,
			LegsB:   m.LegsB,
			AvgA:    m.AvgA,
			AvgB:    m.AvgB,
		},
	}
}

// AddMatch is a command to record a match result.
type AddMatch struct {
	CommonOpts
	MatchOpts
}

// Execute runs the command.
func (a *AddMatch) Execute([]string) error {
	svc, closeFn, err := a.service()
	if err != nil {
		return err
	}
	defer closeFn()

	m, err := svc.AddMatch(context.Background(), a.match())
	if err != nil {
		return fmt.Errorf("add match: %w", err)
	}

	a.printf("%s\n", report.Recorded(m))
	return nil
}

// EditMatch is a command to replace a match of the current season.
type EditMatch struct {
	CommonOpts
	MatchOpts
	Index int `long:"index" required:"true" description:"position of the match in the log, see matches"`
}

// Execute runs the command.
func (e *EditMatch) Execute([]string) error {
	svc, closeFn, err := e.service()
	if err != nil {
		return err
	}
	defer closeFn()

	m, err := svc.UpdateMatch(context.Background(), e.Index, e.match())
	if err != nil {
		return fmt.Errorf("edit match: %w", err)
	}

	e.printf("match #%d updated: %s\n", e.Index, report.Recorded(m))
	return nil
}

// DeleteMatch is a command to remove a match of the current season.
type DeleteMatch struct {
	CommonOpts
	Args struct {
		Index int `positional-arg-name:"index"`
	} `positional-args:"yes" required:"yes"`
}

// Execute runs the command.
func (d *DeleteMatch) Execute([]string) error {
	svc, closeFn, err := d.service()
	if err != nil {
		return err
	}
	defer closeFn()

	m, err := svc.DeleteMatch(context.Background(), d.Args.Index)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}

	d.printf("match #%d %s deleted\n", d.Args.Index, m)
	return nil
}

// Matches is a command to print the log of the current season.
type Matches struct {
	CommonOpts
}

// Execute runs the command.
func (m *Matches) Execute([]string) error {
	svc, closeFn, err := m.service()
	if err != nil {
		return err
	}
	defer closeFn()

	matches, err := svc.Matches(context.Background())
	if err != nil {
		return err
	}

	m.printf("%s\n", report.Matches(matches))
	return nil
}

// Recompute is a command to replay the log of the current season.
type Recompute struct {
	CommonOpts
}

// Execute runs the command.
func (r *Recompute) Execute([]string) error {
	svc, closeFn, err := r.service()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := svc.Recompute(context.Background()); err != nil {
		return fmt.Errorf("recompute: %w", err)
	}

	ranks, err := svc.Ranking(context.Background())
	if err != nil {
		return fmt.Errorf("ranking: %w", err)
	}

	r.printf("%s\n", report.Ranking(ranks))
	return nil
}
