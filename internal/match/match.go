// Package match simulates a single tennis match by flipping weighted coins
// against each player's serve-hold and tie-break probabilities.
package match

import (
	"fmt"
	"time"

	"tennis-sim/internal/models"
	"tennis-sim/internal/odds"
	"tennis-sim/internal/random"
	"tennis-sim/internal/scoring"
)

// Coin flips are bounded away from certainty so a point-by-point tie-break
// between two perfect servers still ends. The cost is that a hold rate of 1.0
// still drops about one point in a hundred, and 0.0 still wins one.
const (
	minFlip = 0.01
	maxFlip = 0.99
)

type Config struct {
	BestOf       models.BestOf
	FifthSetRule models.FifthSetRule
	Surface      models.Surface
	Level        models.Level
	Round        models.Round
	Date         time.Time
	Mode         scoring.Mode
}

// Match is one pairing of the draw. A match without a second player is a bye:
// it is decided from the start and has no scoreboard.
type Match struct {
	cfg     Config
	players [2]*models.Player
	board   *scoring.Scoreboard
	probs   odds.Probabilities
	rng     random.Source
}

// New prepares p1 against p2. A nil p2 makes a bye for p1. The first server is
// drawn from rng.
func New(p1, p2 *models.Player, cfg Config, rng random.Source) (*Match, error) {
	if p1 == nil {
		return nil, fmt.Errorf("%w: first player is required", models.ErrInvalidArgument)
	}
	m := &Match{cfg: cfg, players: [2]*models.Player{p1, p2}, rng: rng}
	if p2 == nil {
		return m, nil
	}
	if p1.ID == p2.ID {
		return nil, fmt.Errorf("%w: player %d cannot face itself", models.ErrInvalidArgument, p1.ID)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", models.ErrInvalidArgument)
	}

	board, err := scoring.NewScoreboard(cfg.BestOf, cfg.FifthSetRule, cfg.Mode, rng.IntN(2))
	if err != nil {
		return nil, err
	}
	m.board = board
	m.probs = odds.ForMatch(p1, p2, odds.ContextAt(cfg.Surface, cfg.Level, cfg.Round, cfg.BestOf, cfg.Date))
	return m, nil
}

func flip(rng random.Source, p float64) bool {
	return rng.Float64() < min(max(p, minFlip), maxFlip)
}

// RunToEnd plays the match out. It does nothing for a bye or a finished match.
func (m *Match) RunToEnd() error {
	if m.board == nil {
		return nil
	}
	for !m.board.Finished() {
		if err := m.step(); err != nil {
			return fmt.Errorf("match %s: %w", m.label(), err)
		}
	}
	return nil
}

func (m *Match) step() error {
	server := m.board.Server()
	if m.board.Mode() == scoring.ModePoint {
		if flip(m.rng, m.probs.Hold[server]) {
			return m.board.AddServerPoint()
		}
		return m.board.AddReceiverPoint()
	}

	if m.board.IsTieBreak() {
		if flip(m.rng, m.probs.TieBreak) {
			return m.board.AddTieBreak(0)
		}
		return m.board.AddTieBreak(1)
	}
	if flip(m.rng, m.probs.Hold[server]) {
		return m.board.AddServerGame()
	}
	return m.board.AddReceiverGame()
}

func (m *Match) IsBye() bool {
	return m.players[1] == nil
}

// Finished reports whether the winner is known.
func (m *Match) Finished() bool {
	return m.board == nil || m.board.Finished()
}

// Winner returns the bye player, the player on the scoreboard's winning side,
// or nil while the match is undecided.
func (m *Match) Winner() *models.Player {
	if m.board == nil {
		return m.players[0]
	}
	side, ok := m.board.Winner()
	if !ok {
		return nil
	}
	return m.players[side]
}

// Players returns both sides; the second is nil for a bye.
func (m *Match) Players() (*models.Player, *models.Player) {
	return m.players[0], m.players[1]
}

// Scoreboard is nil for a bye.
func (m *Match) Scoreboard() *scoring.Scoreboard {
	return m.board
}

func (m *Match) Probabilities() odds.Probabilities {
	return m.probs
}

func (m *Match) Config() Config {
	return m.cfg
}

// Score renders the scoreboard, or "bye".
func (m *Match) Score() string {
	if m.board == nil {
		return "bye"
	}
	return m.board.String()
}

func (m *Match) label() string {
	if m.IsBye() {
		return m.players[0].Name + " (bye)"
	}
	return m.players[0].Name + " - " + m.players[1].Name
}

func (m *Match) String() string {
	return fmt.Sprintf("%s\n%s - %s - %s\n%s", m.label(), m.cfg.Surface, m.cfg.Level, m.cfg.Round, m.Score())
}
