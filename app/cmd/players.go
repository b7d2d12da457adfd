package cmd

import (
	"context"
	"fmt"

	"github.com/bobylevd/dart-ranking/app/report"
)

// Register is a command to register new players.
type Register struct {
	CommonOpts
	Args struct {
		Names []string `positional-arg-name:"name" required:"1"`
	} `positional-args:"yes" required:"yes"`
}

// Execute runs the command.
func (r *Register) Execute([]string) error {
	svc, closeFn, err := r.service()
	if err != nil {
		return err
	}
	defer closeFn()

	for _, name := range r.Args.Names {
		pl, err := svc.Register(context.Background(), name)
		if err != nil {
			return fmt.Errorf("register %q: %w", name, err)
		}
		r.printf("player %s registered with rating %d\n", pl.Name, pl.Rating)
	}
	return nil
}

// Players is a command to list the registered players.
type Players struct {
	CommonOpts
}

// Execute runs the command.
func (p *Players) Execute([]string) error {
	svc, closeFn, err := p.service()
	if err != nil {
		return err
	}
	defer closeFn()

	players, err := svc.Players(context.Background())
	if err != nil {
		return err
	}

	p.printf("%s\n", report.Players(players))
	return nil
}

// Ranking is a command to print the leaderboard.
type Ranking struct {
	CommonOpts
}

// Execute runs the command.
func (r *Ranking) Execute([]string) error {
	svc, closeFn, err := r.service()
	if err != nil {
		return err
	}
	defer closeFn()

	ranks, err := svc.Ranking(context.Background())
	if err != nil {
		return fmt.Errorf("ranking: %w", err)
	}

	r.printf("%s\n", report.Ranking(ranks))
	return nil
}

// PlayerStat is a command to print the season summary of a player.
type PlayerStat struct {
	CommonOpts
	Args struct {
		Name string `positional-arg-name:"name"`
	} `positional-args:"yes" required:"yes"`
}

// Execute runs the command.
func (p *PlayerStat) Execute([]string) error {
	svc, closeFn, err := p.service()
	if err != nil {
		return err
	}
	defer closeFn()

	st, err := svc.PlayerStats(context.Background(), p.Args.Name)
	if err != nil {
		return fmt.Errorf("player stats: %w", err)
	}

	p.printf("%s\n", report.Stats(st))
	return nil
}
