package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidArgument marks precondition violations attributable to the caller.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState marks operations that are not allowed in the current state.
	ErrInvalidState = errors.New("invalid operation in current state")
)

type Surface string

const (
	SurfaceGrass  Surface = "grass"
	SurfaceClay   Surface = "clay"
	SurfaceHard   Surface = "hard"
	SurfaceCarpet Surface = "carpet"
)

func (s Surface) Valid() bool {
	switch s {
	case SurfaceGrass, SurfaceClay, SurfaceHard, SurfaceCarpet:
		return true
	}
	return false
}

type Level string

const (
	LevelGrandSlam     Level = "grand_slam"
	LevelDavisCup      Level = "davis_cup"
	LevelTourFinals    Level = "tour_finals"
	LevelTour250       Level = "tour_250"
	LevelMasters1000   Level = "masters_1000"
	LevelOlympics      Level = "olympics"
	LevelTour500       Level = "tour_500"
	LevelNextGenFinals Level = "next_gen_finals"
	LevelGrandSlamCup  Level = "grand_slam_cup"
)

func (l Level) Valid() bool {
	switch l {
	case LevelGrandSlam, LevelDavisCup, LevelTourFinals, LevelTour250, LevelMasters1000,
		LevelOlympics, LevelTour500, LevelNextGenFinals, LevelGrandSlamCup:
		return true
	}
	return false
}

// DefaultBestOf is the format usually played at the level.
func (l Level) DefaultBestOf() BestOf {
	if l == LevelGrandSlam || l == LevelDavisCup {
		return BestOfFive
	}
	return BestOfThree
}

type Round string

const (
	RoundFinal   Round = "F"
	RoundSemi    Round = "SF"
	RoundQuarter Round = "QF"
	Round16      Round = "R16"
	Round32      Round = "R32"
	Round64      Round = "R64"
	Round128     Round = "R128"
	// RoundRobin and RoundBronze only appear in archives.
	RoundRobin  Round = "RR"
	RoundBronze Round = "BR"
)

// knockoutRounds is ordered from the final outwards; index i holds 2^(i+1) players.
var knockoutRounds = []Round{RoundFinal, RoundSemi, RoundQuarter, Round16, Round32, Round64, Round128}

func (r Round) Valid() bool {
	return r == RoundRobin || r == RoundBronze || r.Players() > 0
}

// Players returns how many players enter the round, or 0 for non-knockout rounds.
func (r Round) Players() int {
	for i, k := range knockoutRounds {
		if k == r {
			return 2 << i
		}
	}
	return 0
}

// Next returns the round that follows r towards the final.
func (r Round) Next() (Round, bool) {
	for i, k := range knockoutRounds {
		if k == r && i > 0 {
			return knockoutRounds[i-1], true
		}
	}
	return "", false
}

// FirstRound returns the opening round of a draw of the given size: the
// smallest round able to hold drawSize players.
func FirstRound(drawSize int) (Round, error) {
	if drawSize < 2 || drawSize > 128 {
		return "", fmt.Errorf("%w: draw size %d should be between 2 and 128", ErrInvalidArgument, drawSize)
	}
	for _, k := range knockoutRounds {
		if k.Players() >= drawSize {
			return k, nil
		}
	}
	return Round128, nil
}

type BestOf int

const (
	BestOfThree BestOf = 3
	BestOfFive  BestOf = 5
)

func (b BestOf) Valid() bool {
	return b == BestOfThree || b == BestOfFive
}

// SetsToWin is the number of sets a side needs to take the match.
func (b BestOf) SetsToWin() int {
	return (int(b) + 1) / 2
}

// FifthSetRule selects how a deciding fifth set is closed.
type FifthSetRule string

const (
	FifthSetNoTieBreak FifthSetRule = "none"
	FifthSetAt6        FifthSetRule = "6-6"
	FifthSetAt12       FifthSetRule = "12-12"
)

func (f FifthSetRule) Valid() bool {
	return f == FifthSetNoTieBreak || f == FifthSetAt6 || f == FifthSetAt12
}

// Player is a competitor. Rank is the ranking position, 0 when unranked.
type Player struct {
	ID          int        `json:"id" firestore:"id"`
	Name        string     `json:"name" firestore:"name"`
	Rank        int        `json:"rank" firestore:"rank"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty" firestore:"dateOfBirth,omitempty"`

	history []MatchArchive
	stats   *Statistics
}

// History returns the archived matches attached by SetHistory.
func (p *Player) History() []MatchArchive {
	return p.history
}

// Stats returns the precomputed statistics, or nil before SetHistory.
func (p *Player) Stats() *Statistics {
	return p.stats
}

// SetHistory attaches the matches involving p and computes its statistics.
// It can only be called once per player.
func (p *Player) SetHistory(matches []MatchArchive) error {
	if p.stats != nil {
		return fmt.Errorf("%w: history of player %d already set", ErrInvalidState, p.ID)
	}
	own := make([]MatchArchive, 0, len(matches))
	for _, m := range matches {
		if m.WinnerID == p.ID || m.LoserID == p.ID {
			own = append(own, m)
		}
	}
	p.history = own
	p.stats = ComputeStatistics(p.ID, own)
	return nil
}

func (p *Player) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("%w: player id %d should be positive", ErrInvalidArgument, p.ID)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: player %d has no name", ErrInvalidArgument, p.ID)
	}
	if p.Rank < 0 {
		return fmt.Errorf("%w: player %d has rank %d", ErrInvalidArgument, p.ID, p.Rank)
	}
	return nil
}

func (p *Player) String() string {
	return p.Name
}

// FullName renders "Last, First" with either part optional.
func FullName(firstName, lastName string) string {
	switch {
	case lastName == "":
		return firstName
	case firstName == "":
		return lastName
	}
	return lastName + ", " + firstName
}

type SetScore struct {
	WinnerGames int `json:"winnerGames" firestore:"winnerGames"`
	LoserGames  int `json:"loserGames" firestore:"loserGames"`
	// TieBreakLoserPoints is set when the set ended in a tie-break.
	TieBreakLoserPoints *int `json:"tieBreakLoserPoints,omitempty" firestore:"tieBreakLoserPoints,omitempty"`
}

// HasTieBreak reports whether the set was decided by a tie-break. A completed
// set with a one-game margin can only come from a tie-break; shorter sets with
// that margin were cut short by a retirement.
func (s SetScore) HasTieBreak() bool {
	if s.TieBreakLoserPoints != nil {
		return true
	}
	diff := s.WinnerGames - s.LoserGames
	return (diff == 1 || diff == -1) && max(s.WinnerGames, s.LoserGames) >= 7
}

// ServeRecord counts service games played and held by one side.
type ServeRecord struct {
	Played int `json:"played" firestore:"played"`
	Held   int `json:"held" firestore:"held"`
}

type MatchArchive struct {
	ID          string       `json:"id,omitempty" firestore:"id"`
	Surface     Surface      `json:"surface" firestore:"surface"`
	Level       Level        `json:"level" firestore:"level"`
	Round       Round        `json:"round" firestore:"round"`
	BestOf      BestOf       `json:"bestOf" firestore:"bestOf"`
	Date        time.Time    `json:"date" firestore:"date"`
	WinnerID    int          `json:"winnerId" firestore:"winnerId"`
	LoserID     int          `json:"loserId" firestore:"loserId"`
	Sets        []SetScore   `json:"sets" firestore:"sets"`
	WinnerServe *ServeRecord `json:"winnerServe,omitempty" firestore:"winnerServe,omitempty"`
	LoserServe  *ServeRecord `json:"loserServe,omitempty" firestore:"loserServe,omitempty"`
}

func (m MatchArchive) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: match id is required", ErrInvalidArgument)
	}
	if m.WinnerID == m.LoserID {
		return fmt.Errorf("%w: winner and loser are both %d", ErrInvalidArgument, m.WinnerID)
	}
	if len(m.Sets) > 5 {
		return fmt.Errorf("%w: %d sets, at most 5 allowed", ErrInvalidArgument, len(m.Sets))
	}
	if !m.BestOf.Valid() {
		return fmt.Errorf("%w: best-of %d", ErrInvalidArgument, m.BestOf)
	}
	for _, rec := range []*ServeRecord{m.WinnerServe, m.LoserServe} {
		if rec != nil && (rec.Held < 0 || rec.Held > rec.Played) {
			return fmt.Errorf("%w: %d service games held out of %d", ErrInvalidArgument, rec.Held, rec.Played)
		}
	}
	return nil
}

// Opponent returns the other side of the match from playerID's point of view.
func (m MatchArchive) Opponent(playerID int) int {
	if m.WinnerID == playerID {
		return m.LoserID
	}
	return m.WinnerID
}
