// Package odds turns a player's archived results into the serve-hold and
// tie-break probabilities the match simulator flips coins against.
package odds

import (
	"time"

	"tennis-sim/internal/models"
)

const (
	// DefaultHoldRate is used when a player has no serve data in any slice.
	DefaultHoldRate = 0.6
	// DefaultTieBreakRate is used when a player has no tie-break data in any slice.
	DefaultTieBreakRate = 0.5
)

// Slice weights.
const (
	levelWeight    = 4.0 / 3
	roundWeight    = 3.0 / 4
	bestOfWeight   = 2.0 / 3
	yearWeight     = 3.0 / 4
	opponentWeight = 3.0 / 2
	surfaceWeight  = 4.0 / 3
)

// Context describes the match being simulated.
type Context struct {
	Surface models.Surface
	Level   models.Level
	Round   models.Round
	BestOf  models.BestOf
	Year    int
}

// ContextAt builds a Context for a match played on date.
func ContextAt(surface models.Surface, level models.Level, round models.Round, bestOf models.BestOf, date time.Time) Context {
	return Context{Surface: surface, Level: level, Round: round, BestOf: bestOf, Year: date.Year()}
}

// Rates are one player's probabilities against one opponent.
type Rates struct {
	Hold     float64
	TieBreak float64
}

// PlayerRates computes p's rates against opponentID in ctx. A player without
// statistics gets the fallback constants.
func PlayerRates(p *models.Player, opponentID int, ctx Context) Rates {
	st := p.Stats()
	if st == nil {
		return Rates{Hold: DefaultHoldRate, TieBreak: DefaultTieBreakRate}
	}
	return Rates{
		Hold:     weighted(st.ServeHolds, opponentID, ctx, DefaultHoldRate),
		TieBreak: weighted(st.TieBreaks, opponentID, ctx, DefaultTieBreakRate),
	}
}

type slice struct {
	ratio  models.Ratio
	weight float64
}

// weighted averages rate×weight over the slices holding data. The divisor is
// the number of contributing slices, not the sum of their weights.
func weighted(t models.RateTable, opponentID int, ctx Context, fallback float64) float64 {
	slices := []slice{
		{t.ByLevel[ctx.Level], levelWeight},
		{t.ByRound[ctx.Round], roundWeight},
		{t.ByBestOf[ctx.BestOf], bestOfWeight},
		{t.ByYear[ctx.Year], yearWeight},
		{t.ByOpponent[opponentID], opponentWeight},
		{t.BySurface[ctx.Surface], surfaceWeight},
	}

	var total float64
	var count int
	for _, s := range slices {
		rate, ok := s.ratio.Rate()
		if !ok {
			continue
		}
		total += rate * s.weight
		count++
	}
	if count == 0 {
		return fallback
	}
	return total / float64(count)
}

// Probabilities is what a match needs: each side's hold rate and the chance
// that side 0 wins a tie-break.
type Probabilities struct {
	Hold     [2]float64
	TieBreak float64
}

// ForMatch computes the probabilities of p1 (side 0) against p2 (side 1).
func ForMatch(p1, p2 *models.Player, ctx Context) Probabilities {
	r1 := PlayerRates(p1, p2.ID, ctx)
	r2 := PlayerRates(p2, p1.ID, ctx)
	return Probabilities{
		Hold:     [2]float64{r1.Hold, r2.Hold},
		TieBreak: TieBreakShare(r1.TieBreak, r2.TieBreak),
	}
}

// TieBreakShare normalizes two tie-break rates into side 0's winning chance.
func TieBreakShare(p1, p2 float64) float64 {
	if p1+p2 == 0 {
		return DefaultTieBreakRate
	}
	return p1 / (p1 + p2)
}
