package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/bobylevd/dart-ranking/app/draw"
	"github.com/bobylevd/dart-ranking/app/rating"
	"github.com/bobylevd/dart-ranking/app/store"
)

// CommonOpts contains information that is common for all commands.
type CommonOpts struct {
	Version       string
	StoreLocation string
	Rating        rating.Config
	Drawer        draw.Drawer
	Out           io.Writer
}

// Set sets the common options.
func (c *CommonOpts) Set(cc CommonOpts) {
	*c = cc
}

// RatingOpts defines the rating policy flags.
type RatingOpts struct {
	KFactor         float64 `long:"k-factor"         env:"K_FACTOR"         default:"28"         description:"maximum rating swing of a single match"`
	StartRating     int     `long:"start"            env:"START"            default:"1000"       description:"rating of a new player"`
	MarginDivisor   float64 `long:"margin-divisor"   env:"MARGIN_DIVISOR"   default:"10"         description:"leg margin divisor"`
	GapDivisor      float64 `long:"gap-divisor"      env:"GAP_DIVISOR"      default:"1200"       description:"rating gap divisor"`
	GapCap          float64 `long:"gap-cap"          env:"GAP_CAP"          default:"1.3"        description:"rating gap multiplier cap"`
	Underdog        bool    `long:"underdog"         env:"UNDERDOG"                              description:"apply the per-side underdog multiplier"`
	UnderdogDivisor float64 `long:"underdog-divisor" env:"UNDERDOG_DIVISOR" default:"2000"       description:"underdog multiplier divisor"`
	UnderdogCap     float64 `long:"underdog-cap"     env:"UNDERDOG_CAP"     default:"1.3"        description:"underdog multiplier cap"`
	Average         string  `long:"average"          env:"AVERAGE"          default:"asymmetric" description:"performance average mode" choice:"off" choice:"asymmetric" choice:"symmetric" choice:"clamped"`
	AverageBaseline float64 `long:"average-baseline" env:"AVERAGE_BASELINE" default:"50"         description:"neutral performance average"`
	AverageWeight   float64 `long:"average-weight"   env:"AVERAGE_WEIGHT"   default:"0.3"        description:"weight of the performance average"`
	BandLow         float64 `long:"band-low"         env:"BAND_LOW"         default:"0.85"       description:"lower bound of the clamped average multiplier"`
	BandHigh        float64 `long:"band-high"        env:"BAND_HIGH"        default:"1.15"       description:"upper bound of the clamped average multiplier"`
	Expected        string  `long:"expected"         env:"EXPECTED"         default:"swapped"    description:"expected score of player B" choice:"swapped" choice:"complement"`
	Tie             string  `long:"tie"              env:"TIE"              default:"loss"       description:"score of equal legs" choice:"loss" choice:"draw"`
}

// Config returns the engine configuration.
func (r RatingOpts) Config() rating.Config {
	return rating.Config{
		KFactor:         r.KFactor,
		StartRating:     r.StartRating,
		MarginDivisor:   r.MarginDivisor,
		GapDivisor:      r.GapDivisor,
		GapCap:          r.GapCap,
		Underdog:        r.Underdog,
		UnderdogDivisor: r.UnderdogDivisor,
		UnderdogCap:     r.UnderdogCap,
		Average:         rating.AverageMode(r.Average),
		AverageBaseline: r.AverageBaseline,
		AverageWeight:   r.AverageWeight,
		BandLow:         r.BandLow,
		BandHigh:        r.BandHigh,
		Expected:        rating.ExpectedMode(r.Expected),
		Tie:             rating.TiePolicy(r.Tie),
	}
}

// DrawOpts defines the pairing generator flags.
type DrawOpts struct {
	Attempts int    `long:"attempts" env:"ATTEMPTS" default:"5000"       description:"number of attempts before a draw is given up"`
	Strategy string `long:"strategy" env:"STRATEGY" default:"per-player" description:"order of candidate pairings" choice:"per-player" choice:"pairs"`
}

// Drawer returns the pairing generator.
func (d DrawOpts) Drawer() draw.Drawer {
	return draw.Drawer{Attempts: d.Attempts, Strategy: draw.Strategy(d.Strategy)}
}

// service opens the store and wires the ranking service.
func (c CommonOpts) service() (*store.Service, func(), error) {
	engine, err := rating.New(c.Rating)
	if err != nil {
		return nil, nil, fmt.Errorf("rating engine: %w", err)
	}

	s, err := store.New(c.StoreLocation)
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	closeFn := func() {
		if err := s.Close(); err != nil {
			log.Printf("[WARN] failed to close store: %v", err)
		}
	}

	return &store.Service{Store: s, Engine: engine, Drawer: c.Drawer}, closeFn, nil
}

func (c CommonOpts) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

func (c CommonOpts) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out(), format, args...)
}
