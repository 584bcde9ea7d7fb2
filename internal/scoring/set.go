package scoring

import (
	"fmt"
	"strconv"

	"tennis-sim/internal/models"
)

const (
	setGames          = 6
	longSetGames      = 12
	tieBreakPoints    = 7
	tieBreakMinMargin = 2
)

// PointResult tells the scoreboard what a point changed at set level.
type PointResult struct {
	// SwitchServer is set after every completed game and on odd tie-break totals.
	SwitchServer bool
	// NewGame is set when the point closed a game (or the tie-break).
	NewGame bool
	// SetOver is set when the point closed the set.
	SetOver bool
}

// Set sequences the games of one set and runs its tie-break.
type Set struct {
	games    [2]int
	tieBreak bool
	tbPoints [2]int
	current  *Game
	finished bool
	winner   int
}

func NewSet() *Set {
	return &Set{current: NewGame()}
}

// AddPoint scores a point for side. fifthSet and rule decide whether and when
// a tie-break is played at the end of the set.
func (s *Set) AddPoint(side int, fifthSet bool, rule models.FifthSetRule) (PointResult, error) {
	if err := checkSide(side); err != nil {
		return PointResult{}, err
	}
	if s.finished {
		return PointResult{}, fmt.Errorf("set: %w", ErrFinished)
	}

	if s.tieBreak {
		s.tbPoints[side]++
		if !s.tieBreakOver() {
			return PointResult{SwitchServer: (s.tbPoints[0]+s.tbPoints[1])%2 == 1}, nil
		}
		return s.closeGame(side, fifthSet, rule), nil
	}

	over, err := s.current.AddPoint(side)
	if err != nil {
		return PointResult{}, err
	}
	if !over {
		return PointResult{}, nil
	}
	return s.closeGame(side, fifthSet, rule), nil
}

func (s *Set) tieBreakOver() bool {
	for side := range 2 {
		if s.tbPoints[side] >= tieBreakPoints && s.tbPoints[side]-s.tbPoints[1-side] >= tieBreakMinMargin {
			return true
		}
	}
	return false
}

func (s *Set) closeGame(side int, fifthSet bool, rule models.FifthSetRule) PointResult {
	res := PointResult{SwitchServer: true, NewGame: true}
	s.games[side]++
	s.current = NewGame()

	switch {
	case s.bothAt(setGames) && (!fifthSet || rule == models.FifthSetAt6):
		s.tieBreak = true
	case s.bothAt(longSetGames) && fifthSet && rule == models.FifthSetAt12:
		s.tieBreak = true
	case s.tieBreak || s.overWithoutTieBreak():
		s.finished = true
		s.winner = side
		res.SetOver = true
	}
	return res
}

func (s *Set) bothAt(games int) bool {
	return s.games[0] == games && s.games[1] == games
}

func (s *Set) overWithoutTieBreak() bool {
	diff := s.games[0] - s.games[1]
	return (s.games[0] >= setGames || s.games[1] >= setGames) && (diff > 1 || diff < -1)
}

func (s *Set) clone() Set {
	c := *s
	g := *s.current
	c.current = &g
	return c
}

func (s *Set) Games(side int) int {
	return s.games[side]
}

func (s *Set) TieBreakPoints(side int) int {
	return s.tbPoints[side]
}

// IsTieBreak reports whether the set has gone to a tie-break (even once over).
func (s *Set) IsTieBreak() bool {
	return s.tieBreak
}

func (s *Set) Finished() bool {
	return s.finished
}

func (s *Set) Winner() (int, bool) {
	return s.winner, s.finished
}

// CurrentGame returns a copy of the game in progress.
func (s *Set) CurrentGame() Game {
	return *s.current
}

// lead compares games, then the running tie-break or game; -1 when level.
func (s *Set) lead() int {
	switch {
	case s.games[0] > s.games[1]:
		return 0
	case s.games[1] > s.games[0]:
		return 1
	}
	if s.tieBreak {
		switch {
		case s.tbPoints[0] > s.tbPoints[1]:
			return 0
		case s.tbPoints[1] > s.tbPoints[0]:
			return 1
		}
		return -1
	}
	return s.current.lead()
}

// String renders "6/4", or "7/6[5]" with the loser's tie-break points once the
// set is over.
func (s *Set) String() string {
	out := strconv.Itoa(s.games[0]) + "/" + strconv.Itoa(s.games[1])
	if s.tieBreak && s.finished {
		out += "[" + strconv.Itoa(s.tbPoints[1-s.winner]) + "]"
	}
	return out
}
