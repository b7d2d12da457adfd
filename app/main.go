package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	_ "github.com/glebarez/go-sqlite"
	"github.com/hashicorp/logutils"
	"github.com/jessevdk/go-flags"

	"github.com/bobylevd/dart-ranking/app/cmd"
)

var options struct {
	Bot        cmd.Bot         `command:"bot"       description:"run discord bot"`
	Register   cmd.Register    `command:"register"  description:"register new players"`
	Players    cmd.Players     `command:"players"   description:"list registered players"`
	Ranking    cmd.Ranking     `command:"ranking"   description:"print the leaderboard"`
	Player     cmd.PlayerStat  `command:"player"    description:"print the season summary of a player"`
	Add        cmd.AddMatch    `command:"add"       description:"record a match result"`
	Edit       cmd.EditMatch   `command:"edit"      description:"replace a recorded match"`
	Delete     cmd.DeleteMatch `command:"delete"    description:"delete a recorded match"`
	Matches    cmd.Matches     `command:"matches"   description:"print the match log of the current season"`
	Recompute  cmd.Recompute   `command:"recompute" description:"replay the match log of the current season"`
	Draw       cmd.Draw        `command:"draw"      description:"draw the pairings of an event night"`
	Season     cmd.Season      `command:"season"    description:"pull ratings together and start a new season"`

	StoreLocation string         `long:"loc"   env:"LOCATION" default:"dart_ranking.db" description:"store location"`
	Rating        cmd.RatingOpts `group:"rating" namespace:"rating" env-namespace:"RATING"`
	Draws         cmd.DrawOpts   `group:"draw"   namespace:"draw"   env-namespace:"DRAW"`
	Debug         bool           `long:"debug" env:"DEBUG" description:"turn on debug mode"`
}

var version = "unknown"

func getVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return version
}

func main() {
	p := flags.NewParser(&options, flags.Default)
	p.CommandHandler = func(c flags.Commander, args []string) error {
		setupLog(options.Debug)

		if options.Debug {
			log.Printf("[DEBUG] debug mode on, version: %s", getVersion())
		}

		commonOpts := cmd.CommonOpts{
			Version:       getVersion(),
			StoreLocation: options.StoreLocation,
			Rating:        options.Rating.Config(),
			Drawer:        options.Draws.Drawer(),
		}
		if cs, ok := c.(interface{ Set(cmd.CommonOpts) }); ok {
			cs.Set(commonOpts)
		}

		if err := c.Execute(args); err != nil {
			log.Printf("[ERROR] failed to execute command: %v", err)
			return fmt.Errorf("execute command: %w", err)
		}

		return nil
	}

	if _, err := p.Parse(); err != nil {
		if errors.Is(err, flags.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func setupLog(dbg bool) {
	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"},
		MinLevel: "INFO",
		Writer:   os.Stderr,
	}

	logFlags := log.Ldate | log.Ltime

	if dbg {
		logFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
		filter.MinLevel = "DEBUG"
	}

	log.SetFlags(logFlags)
	log.SetOutput(filter)
}
