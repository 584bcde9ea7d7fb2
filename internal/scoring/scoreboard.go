package scoring

import (
	"fmt"
	"strings"

	"tennis-sim/internal/models"
)

// Mode fixes the granularity a Scoreboard is driven at.
type Mode int

const (
	// ModePoint scores one point at a time.
	ModePoint Mode = iota
	// ModeGame resolves whole games and whole tie-breaks.
	ModeGame
)

func (m Mode) String() string {
	if m == ModeGame {
		return "game"
	}
	return "point"
}

// ParseMode accepts "point" or "game".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "point", "":
		return ModePoint, nil
	case "game":
		return ModeGame, nil
	}
	return ModePoint, fmt.Errorf("%w: unknown scoring mode %q", models.ErrInvalidArgument, s)
}

const maxSets = 5

// Scoreboard scores a best-of-3 or best-of-5 match and tracks who serves.
// It is not safe for concurrent use.
type Scoreboard struct {
	bestOf   models.BestOf
	rule     models.FifthSetRule
	mode     Mode
	sets     []*Set
	server   int
	finished bool
	winner   int
}

// NewScoreboard starts a match at 0-0 with firstServer (0 or 1) serving.
func NewScoreboard(bestOf models.BestOf, rule models.FifthSetRule, mode Mode, firstServer int) (*Scoreboard, error) {
	if !bestOf.Valid() {
		return nil, fmt.Errorf("%w: best-of %d", models.ErrInvalidArgument, bestOf)
	}
	if !rule.Valid() {
		return nil, fmt.Errorf("%w: fifth set rule %q", models.ErrInvalidArgument, rule)
	}
	if mode != ModePoint && mode != ModeGame {
		return nil, fmt.Errorf("%w: scoring mode %d", models.ErrInvalidArgument, mode)
	}
	if err := checkSide(firstServer); err != nil {
		return nil, err
	}
	return &Scoreboard{
		bestOf: bestOf,
		rule:   rule,
		mode:   mode,
		sets:   []*Set{NewSet()},
		server: firstServer,
	}, nil
}

func (sb *Scoreboard) check(mode Mode) error {
	if sb.finished {
		return fmt.Errorf("scoreboard: %w", ErrFinished)
	}
	if sb.mode != mode {
		return fmt.Errorf("scoreboard in %s mode: %w", sb.mode, ErrWrongMode)
	}
	return nil
}

func (sb *Scoreboard) AddServerPoint() error {
	if err := sb.check(ModePoint); err != nil {
		return err
	}
	_, err := sb.addPoint(sb.server)
	return err
}

func (sb *Scoreboard) AddReceiverPoint() error {
	if err := sb.check(ModePoint); err != nil {
		return err
	}
	_, err := sb.addPoint(1 - sb.server)
	return err
}

// AddServerGame gives the whole current game to the server.
func (sb *Scoreboard) AddServerGame() error {
	return sb.addGame(sb.server)
}

// AddReceiverGame gives the whole current game to the receiver.
func (sb *Scoreboard) AddReceiverGame() error {
	return sb.addGame(1 - sb.server)
}

func (sb *Scoreboard) addGame(side int) error {
	if err := sb.check(ModeGame); err != nil {
		return err
	}
	if sb.IsTieBreak() {
		return fmt.Errorf("scoreboard: %w", ErrTieBreak)
	}
	return sb.feed(side)
}

// AddTieBreak gives the whole tie-break in progress to side.
func (sb *Scoreboard) AddTieBreak(side int) error {
	if err := checkSide(side); err != nil {
		return err
	}
	if err := sb.check(ModeGame); err != nil {
		return err
	}
	if !sb.IsTieBreak() {
		return fmt.Errorf("scoreboard: %w", ErrNoTieBreak)
	}
	return sb.feed(side)
}

// feed scores points for side until a game boundary is reached.
func (sb *Scoreboard) feed(side int) error {
	for {
		res, err := sb.addPoint(side)
		if err != nil {
			return err
		}
		if res.NewGame || sb.finished {
			return nil
		}
	}
}

func (sb *Scoreboard) addPoint(side int) (PointResult, error) {
	set := sb.currentSet()
	res, err := set.AddPoint(side, len(sb.sets) == maxSets, sb.rule)
	if err != nil {
		return res, err
	}
	if res.SwitchServer {
		sb.server = 1 - sb.server
	}
	if res.SetOver {
		if sb.SetsWon(side) == sb.bestOf.SetsToWin() {
			sb.finished = true
			sb.winner = side
		} else {
			sb.sets = append(sb.sets, NewSet())
		}
	}
	return res, nil
}

func (sb *Scoreboard) currentSet() *Set {
	return sb.sets[len(sb.sets)-1]
}

// SetsWon counts the finished sets won by side.
func (sb *Scoreboard) SetsWon(side int) int {
	won := 0
	for _, s := range sb.sets {
		if w, ok := s.Winner(); ok && w == side {
			won++
		}
	}
	return won
}

// IndexLead returns the side ahead on sets, then games in the current set,
// then points in the current game or tie-break; -1 when nothing separates them.
func (sb *Scoreboard) IndexLead() int {
	s0, s1 := sb.SetsWon(0), sb.SetsWon(1)
	switch {
	case s0 > s1:
		return 0
	case s1 > s0:
		return 1
	}
	if sb.finished {
		return -1
	}
	return sb.currentSet().lead()
}

// IsTieBreak reports whether the current set is being decided by a tie-break.
func (sb *Scoreboard) IsTieBreak() bool {
	set := sb.currentSet()
	return set.IsTieBreak() && !set.Finished()
}

// Server returns the side currently serving.
func (sb *Scoreboard) Server() int {
	return sb.server
}

func (sb *Scoreboard) Mode() Mode {
	return sb.mode
}

func (sb *Scoreboard) BestOf() models.BestOf {
	return sb.bestOf
}

func (sb *Scoreboard) Finished() bool {
	return sb.finished
}

// Winner returns the side that won the match once it is over.
func (sb *Scoreboard) Winner() (int, bool) {
	return sb.winner, sb.finished
}

// Sets returns copies of the sets played so far, the last one possibly in
// progress. Scoring a copy leaves the scoreboard untouched.
func (sb *Scoreboard) Sets() []Set {
	out := make([]Set, len(sb.sets))
	for i, s := range sb.sets {
		out[i] = s.clone()
	}
	return out
}

// String renders the score, e.g. "6/4 7/6[5]", "6/4 3/2 | 40 (A) - 40" or
// "6/4 6/6 | [3]-[2]".
func (sb *Scoreboard) String() string {
	parts := make([]string, len(sb.sets))
	for i, s := range sb.sets {
		parts[i] = s.String()
	}
	out := strings.Join(parts, " ")
	if sb.finished {
		return out
	}
	set := sb.currentSet()
	if set.IsTieBreak() {
		return fmt.Sprintf("%s | [%d]-[%d]", out, set.TieBreakPoints(0), set.TieBreakPoints(1))
	}
	return out + " | " + set.current.String()
}
