// Package scoring implements tennis scoring: points into games, games into
// sets (with tie-breaks) and sets into a match.
package scoring

import (
	"fmt"

	"tennis-sim/internal/models"
)

var (
	ErrFinished    = fmt.Errorf("%w: already finished", models.ErrInvalidState)
	ErrWrongMode   = fmt.Errorf("%w: wrong scoring mode", models.ErrInvalidState)
	ErrTieBreak    = fmt.Errorf("%w: a tie-break is in progress", models.ErrInvalidState)
	ErrNoTieBreak  = fmt.Errorf("%w: no tie-break in progress", models.ErrInvalidState)
	ErrInvalidSide = fmt.Errorf("%w: side should be 0 or 1", models.ErrInvalidArgument)
)

const noAdvantage = -1

// gamePoints is the ordered sequence of point levels within a game.
var gamePoints = [...]int{0, 15, 30, 40}

const fortyLevel = len(gamePoints) - 1

// Game tracks the point score of a single game.
type Game struct {
	levels    [2]int
	advantage int
	finished  bool
	winner    int
}

func NewGame() *Game {
	return &Game{advantage: noAdvantage}
}

func checkSide(side int) error {
	if side != 0 && side != 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidSide, side)
	}
	return nil
}

// AddPoint scores a point for side and reports whether the game just ended.
func (g *Game) AddPoint(side int) (bool, error) {
	if err := checkSide(side); err != nil {
		return false, err
	}
	if g.finished {
		return false, fmt.Errorf("game: %w", ErrFinished)
	}

	other := 1 - side
	switch {
	case g.advantage == side:
		return g.end(side), nil
	case g.advantage == other:
		g.advantage = noAdvantage
	case g.IsDeuce():
		g.advantage = side
	case g.levels[side] < fortyLevel:
		g.levels[side]++
	default:
		// side is at 40 and the opponent is not.
		return g.end(side), nil
	}
	return false, nil
}

func (g *Game) end(side int) bool {
	g.finished = true
	g.winner = side
	return true
}

// Points returns the displayed score of side: 0, 15, 30 or 40.
func (g *Game) Points(side int) int {
	return gamePoints[g.levels[side]]
}

// Advantage returns the side holding advantage, if any.
func (g *Game) Advantage() (int, bool) {
	if g.advantage == noAdvantage {
		return 0, false
	}
	return g.advantage, true
}

// IsDeuce reports 40-40 with no advantage.
func (g *Game) IsDeuce() bool {
	return g.advantage == noAdvantage && g.levels[0] == fortyLevel && g.levels[1] == fortyLevel
}

func (g *Game) Finished() bool {
	return g.finished
}

// Winner returns the side that won the game once it is finished.
func (g *Game) Winner() (int, bool) {
	return g.winner, g.finished
}

// lead compares the two sides of an unfinished game; -1 when level.
func (g *Game) lead() int {
	if adv, ok := g.Advantage(); ok {
		return adv
	}
	switch {
	case g.levels[0] > g.levels[1]:
		return 0
	case g.levels[1] > g.levels[0]:
		return 1
	}
	return -1
}

func (g *Game) String() string {
	s := [2]string{}
	for side := range 2 {
		s[side] = fmt.Sprint(g.Points(side))
		if g.advantage == side {
			s[side] += " (A)"
		}
	}
	return s[0] + " - " + s[1]
}
