package cmd

import (
	"context"
	"fmt"

	"github.com/bobylevd/dart-ranking/app/report"
)

// Draw is a command to draw the pairings of an event night.
type Draw struct {
	CommonOpts
	Opponents int `long:"opponents" short:"n" default:"4" description:"opponents per player"`
	Args      struct {
		Names []string `positional-arg-name:"player" required:"2"`
	} `positional-args:"yes" required:"yes"`
}

// Execute runs the command.
func (d *Draw) Execute([]string) error {
	svc, closeFn, err := d.service()
	if err != nil {
		return err
	}
	defer closeFn()

	schedule, err := svc.Draw(context.Background(), d.Args.Names, d.Opponents)
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	d.printf("%d pairings\n%s\n", len(schedule), report.Schedule(schedule))
	return nil
}

// Season is a command to pull the ratings together and start a new season.
type Season struct {
	CommonOpts
	Factor float64 `long:"factor" default:"0.5" description:"multiplier applied to the distance from the start rating"`
	Apply  bool    `long:"apply"                description:"start the new season, otherwise only print the preview"`
}

// Execute runs the command.
func (s *Season) Execute([]string) error {
	svc, closeFn, err := s.service()
	if err != nil {
		return err
	}
	defer closeFn()

	if !s.Apply {
		preview, err := svc.PreviewSeason(context.Background(), s.Factor)
		if err != nil {
			return fmt.Errorf("preview season: %w", err)
		}
		s.printf("%s\nrun with --apply to start the new season\n", report.Season(preview))
		return nil
	}

	season, res, err := svc.CloseSeason(context.Background(), s.Factor)
	if err != nil {
		return fmt.Errorf("close season: %w", err)
	}

	s.printf("%s\nseason %d started\n", report.Season(res), season)
	return nil
}
