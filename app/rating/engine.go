// Package rating implements the Elo-family rating update used by the club
// ranking and the full replay of a season's match log.
package rating

import (
	"errors"
	"fmt"
	"math"
)

// AverageMode selects how a player's performance average scales the delta.
type AverageMode string

// Supported average modes.
const (
	AverageOff        AverageMode = "off"
	AverageAsymmetric AverageMode = "asymmetric" // higher average boosts a win and softens a loss
	AverageSymmetric  AverageMode = "symmetric"  // higher average boosts the delta regardless of outcome
	AverageClamped    AverageMode = "clamped"    // asymmetric, clamped to [BandLow, BandHigh]
)

// ExpectedMode selects how the expected score of the second player is derived.
type ExpectedMode string

// Supported expected score conventions.
const (
	ExpectedSwapped    ExpectedMode = "swapped"    // same formula with arguments swapped
	ExpectedComplement ExpectedMode = "complement" // 1 - E_A
)

// TiePolicy defines the score of a match with equal legs.
type TiePolicy string

// Supported tie policies.
const (
	TieLoss TiePolicy = "loss" // equal legs count as a loss for player A
	TieDraw TiePolicy = "draw" // half a point each
)

// Config holds the tunable parameters of the engine.
type Config struct {
	KFactor     float64
	StartRating int

	MarginDivisor float64
	GapDivisor    float64
	GapCap        float64

	Underdog        bool
	UnderdogDivisor float64
	UnderdogCap     float64

	Average         AverageMode
	AverageBaseline float64
	AverageWeight   float64
	BandLow         float64
	BandHigh        float64

	Expected ExpectedMode
	Tie      TiePolicy
}

// DefaultConfig returns the configuration of the club's current season.
func DefaultConfig() Config {
	return Config{
		KFactor:         28,
		StartRating:     1000,
		MarginDivisor:   10,
		GapDivisor:      1200,
		GapCap:          1.3,
		Underdog:        false,
		UnderdogDivisor: 2000,
		UnderdogCap:     1.3,
		Average:         AverageAsymmetric,
		AverageBaseline: 50,
		AverageWeight:   0.3,
		BandLow:         0.85,
		BandHigh:        1.15,
		Expected:        ExpectedSwapped,
		Tie:             TieLoss,
	}
}

// ErrInvalidConfig is returned by Validate for unusable parameters.
var ErrInvalidConfig = errors.New("invalid rating config")

// Validate checks that the configuration can be used by the engine.
func (c Config) Validate() error {
	switch {
	case c.KFactor <= 0:
		return fmt.Errorf("%w: k-factor must be positive", ErrInvalidConfig)
	case c.MarginDivisor <= 0 || c.GapDivisor <= 0 || c.UnderdogDivisor <= 0:
		return fmt.Errorf("%w: divisors must be positive", ErrInvalidConfig)
	case c.AverageBaseline <= 0:
		return fmt.Errorf("%w: average baseline must be positive", ErrInvalidConfig)
	case c.BandLow > c.BandHigh:
		return fmt.Errorf("%w: average band %.2f..%.2f is inverted", ErrInvalidConfig, c.BandLow, c.BandHigh)
	}

	switch c.Average {
	case AverageOff, AverageAsymmetric, AverageSymmetric, AverageClamped:
	default:
		return fmt.Errorf("%w: unknown average mode %q", ErrInvalidConfig, c.Average)
	}

	switch c.Expected {
	case ExpectedSwapped, ExpectedComplement:
	default:
		return fmt.Errorf("%w: unknown expected mode %q", ErrInvalidConfig, c.Expected)
	}

	switch c.Tie {
	case TieLoss, TieDraw:
	default:
		return fmt.Errorf("%w: unknown tie policy %q", ErrInvalidConfig, c.Tie)
	}

	return nil
}

// Engine computes rating deltas. The zero value is not usable, build it
// with New or from DefaultConfig.
type Engine struct {
	Config
}

// New returns an engine for the given configuration.
func New(cfg Config) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return Engine{}, err
	}
	return Engine{Config: cfg}, nil
}

// Breakdown holds the intermediate values of a single delta computation.
type Breakdown struct {
	ExpectedA, ExpectedB float64
	ScoreA, ScoreB       float64
	Margin               float64 // G
	Gap                  float64 // D
	UnderdogA, UnderdogB float64 // 1 when the underdog multiplier is disabled
	AverageA, AverageB   float64 // M
	RawA, RawB           float64 // deltas before rounding
}

// Expected returns the expected score of a player rated own against a
// player rated opp.
func Expected(own, opp float64) float64 {
	return 1 / (1 + math.Pow(10, (opp-own)/400))
}

// Score returns the actual scores of both players for the given legs.
func (e Engine) Score(legsA, legsB int) (scoreA, scoreB float64) {
	switch {
	case legsA > legsB:
		return 1, 0
	case legsA < legsB:
		return 0, 1
	case e.Tie == TieDraw:
		return 0.5, 0.5
	default:
		return 0, 1
	}
}

// Breakdown computes all multipliers for a match between A and B.
func (e Engine) Breakdown(ratingA, ratingB, legsA, legsB int, avgA, avgB float64) Breakdown {
	ra, rb := float64(ratingA), float64(ratingB)

	var b Breakdown
	b.ExpectedA = Expected(ra, rb)
	b.ExpectedB = Expected(rb, ra)
	if e.Expected == ExpectedComplement {
		b.ExpectedB = 1 - b.ExpectedA
	}

	b.ScoreA, b.ScoreB = e.Score(legsA, legsB)
	b.Margin = 1 + math.Abs(float64(legsA-legsB))/e.MarginDivisor
	b.Gap = math.Min(e.GapCap, 1+math.Abs(ra-rb)/e.GapDivisor)

	b.UnderdogA, b.UnderdogB = 1, 1
	if e.Underdog {
		b.UnderdogA = math.Min(e.UnderdogCap, 1+(rb-ra)/e.UnderdogDivisor)
		b.UnderdogB = math.Min(e.UnderdogCap, 1+(ra-rb)/e.UnderdogDivisor)
	}

	b.AverageA = e.averageFactor(avgA, b.ScoreA, b.ScoreB)
	b.AverageB = e.averageFactor(avgB, b.ScoreB, b.ScoreA)

	base := e.KFactor * b.Margin * b.Gap
	b.RawA = base * b.UnderdogA * (b.ScoreA - b.ExpectedA) * b.AverageA
	b.RawB = base * b.UnderdogB * (b.ScoreB - b.ExpectedB) * b.AverageB
	return b
}

// Delta returns the integer rating deltas for A and B.
func (e Engine) Delta(ratingA, ratingB, legsA, legsB int, avgA, avgB float64) (deltaA, deltaB int) {
	b := e.Breakdown(ratingA, ratingB, legsA, legsB, avgA, avgB)
	return Round(b.RawA), Round(b.RawB)
}

// averageFactor returns M for a player with the given average and score.
// A drawn match counts as neither win nor loss and leaves M at 1 in the
// asymmetric modes.
func (e Engine) averageFactor(avg, own, opp float64) float64 {
	rel := e.AverageWeight * (avg - e.AverageBaseline) / e.AverageBaseline

	switch e.Average {
	case AverageSymmetric:
		return 1 + rel
	case AverageAsymmetric, AverageClamped:
		m := 1.0
		switch {
		case own > opp:
			m = 1 + rel
		case own < opp:
			m = 1 - rel
		}
		if e.Average == AverageClamped {
			m = math.Max(e.BandLow, math.Min(e.BandHigh, m))
		}
		return m
	default:
		return 1
	}
}

// Round rounds a raw delta half to even.
func Round(v float64) int {
	return int(math.RoundToEven(v))
}
