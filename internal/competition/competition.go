// Package competition drives a single-elimination tournament round by round,
// from the generated draw to the final.
package competition

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tennis-sim/internal/draw"
	"tennis-sim/internal/logger"
	"tennis-sim/internal/match"
	"tennis-sim/internal/models"
	"tennis-sim/internal/random"
	"tennis-sim/internal/scoring"
)

type Config struct {
	Surface models.Surface
	Level   models.Level
	Date    time.Time
	// BestOf applies to every round but the final. Zero means the level's default.
	BestOf models.BestOf
	// FinalBestOf applies to the final. Zero means BestOf.
	FinalBestOf  models.BestOf
	FifthSetRule models.FifthSetRule
	Mode         scoring.Mode
	// AllowByes accepts a pool smaller than the draw; the missing slots become
	// byes. The pool must still fill at least half of the draw.
	AllowByes bool
}

// WithDefaults fills the zero-valued formats from the level.
func (c Config) WithDefaults() Config {
	if c.BestOf == 0 {
		c.BestOf = c.Level.DefaultBestOf()
	}
	if c.FinalBestOf == 0 {
		c.FinalBestOf = c.BestOf
	}
	if c.FifthSetRule == "" {
		c.FifthSetRule = models.FifthSetNoTieBreak
	}
	return c
}

func (c Config) validate() error {
	if !c.Surface.Valid() {
		return fmt.Errorf("%w: surface %q", models.ErrInvalidArgument, c.Surface)
	}
	if !c.Level.Valid() {
		return fmt.Errorf("%w: level %q", models.ErrInvalidArgument, c.Level)
	}
	if !c.BestOf.Valid() || !c.FinalBestOf.Valid() {
		return fmt.Errorf("%w: best-of %d / final best-of %d", models.ErrInvalidArgument, c.BestOf, c.FinalBestOf)
	}
	if !c.FifthSetRule.Valid() {
		return fmt.Errorf("%w: fifth set rule %q", models.ErrInvalidArgument, c.FifthSetRule)
	}
	return nil
}

// RoundDraw holds the matches of one round in bracket order.
type RoundDraw struct {
	Round   models.Round
	Matches []*match.Match
}

// Competition is not safe for concurrent use.
type Competition struct {
	cfg    Config
	size   int
	rounds []RoundDraw
	rng    random.Source
	log    logrus.FieldLogger
}

// New draws the first round. players must be ordered by ranking, best first;
// only the top gen.Size() of them enter the draw.
func New(gen *draw.Generator, players []*models.Player, cfg Config, rng random.Source, log logrus.FieldLogger) (*Competition, error) {
	if gen == nil {
		return nil, fmt.Errorf("%w: draw generator is required", models.ErrInvalidArgument)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", models.ErrInvalidArgument)
	}
	if log == nil {
		log = logger.Discard()
	}
	cfg = cfg.WithDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	size := gen.Size()
	if len(players) > size {
		players = players[:size]
	}
	if len(players) < size && !cfg.AllowByes {
		return nil, fmt.Errorf("%w: %d players for a draw of %d", models.ErrInvalidArgument, len(players), size)
	}

	ids := make([]int, len(players))
	byID := make(map[int]*models.Player, len(players))
	for i, p := range players {
		if p == nil {
			return nil, fmt.Errorf("%w: player at rank %d is nil", models.ErrInvalidArgument, i+1)
		}
		ids[i] = p.ID
		byID[p.ID] = p
	}

	pairings, err := gen.Generate(ids, rng)
	if err != nil {
		return nil, err
	}

	round, err := models.FirstRound(size)
	if err != nil {
		return nil, err
	}
	c := &Competition{cfg: cfg, size: size, rng: rng, log: log}

	matches := make([]*match.Match, len(pairings))
	for i, p := range pairings {
		var second *models.Player
		if p.Second != nil {
			second = byID[*p.Second]
		}
		if matches[i], err = match.New(byID[p.First], second, c.matchConfig(round), rng); err != nil {
			return nil, err
		}
	}
	c.rounds = append(c.rounds, RoundDraw{Round: round, Matches: matches})

	log.WithFields(logrus.Fields{
		"draw_size": size,
		"players":   len(players),
		"seeds":     gen.Seeds(),
		"round":     round,
	}).Debug("Draw generated")
	return c, nil
}

func (c *Competition) matchConfig(round models.Round) match.Config {
	bestOf := c.cfg.BestOf
	if round == models.RoundFinal {
		bestOf = c.cfg.FinalBestOf
	}
	return match.Config{
		BestOf:       bestOf,
		FifthSetRule: c.cfg.FifthSetRule,
		Surface:      c.cfg.Surface,
		Level:        c.cfg.Level,
		Round:        round,
		Date:         c.cfg.Date,
		Mode:         c.cfg.Mode,
	}
}

func (c *Competition) current() RoundDraw {
	return c.rounds[len(c.rounds)-1]
}

// NextRound plays every match of the current round and, unless that was the
// final, draws the next round from adjacent winners. It does nothing once the
// competition is finished.
func (c *Competition) NextRound() error {
	if c.Finished() {
		return nil
	}
	cur := c.current()
	if len(cur.Matches) == 0 {
		panic(fmt.Sprintf("competition: round %s has no match", cur.Round))
	}

	winners := make([]*models.Player, len(cur.Matches))
	for i, m := range cur.Matches {
		if err := m.RunToEnd(); err != nil {
			return fmt.Errorf("round %s: %w", cur.Round, err)
		}
		winners[i] = m.Winner()
		c.log.WithFields(logrus.Fields{
			"round":  cur.Round,
			"winner": winners[i].Name,
			"score":  m.Score(),
		}).Trace("Match played")
	}
	c.log.WithFields(logrus.Fields{
		"round":   cur.Round,
		"matches": len(cur.Matches),
	}).Debug("Round played")

	if c.Finished() {
		return nil
	}

	next, ok := cur.Round.Next()
	if !ok {
		panic(fmt.Sprintf("competition: no round after %s", cur.Round))
	}
	if len(winners) != next.Players() {
		panic(fmt.Sprintf("competition: %d winners for round %s of %d players", len(winners), next, next.Players()))
	}

	matches := make([]*match.Match, len(winners)/2)
	for i := range matches {
		m, err := match.New(winners[2*i], winners[2*i+1], c.matchConfig(next), c.rng)
		if err != nil {
			return fmt.Errorf("round %s: %w", next, err)
		}
		matches[i] = m
	}
	c.rounds = append(c.rounds, RoundDraw{Round: next, Matches: matches})
	return nil
}

// Run plays every remaining round.
func (c *Competition) Run() error {
	for !c.Finished() {
		if err := c.NextRound(); err != nil {
			return err
		}
	}
	return nil
}

// Finished reports whether the final has been played.
func (c *Competition) Finished() bool {
	cur := c.current()
	return cur.Round == models.RoundFinal && len(cur.Matches) == 1 && cur.Matches[0].Winner() != nil
}

// Champion returns the winner of the final, or nil before it is played.
func (c *Competition) Champion() *models.Player {
	if !c.Finished() {
		return nil
	}
	return c.current().Matches[0].Winner()
}

// Rounds returns the rounds drawn so far, earliest first.
func (c *Competition) Rounds() []RoundDraw {
	out := make([]RoundDraw, len(c.rounds))
	copy(out, c.rounds)
	return out
}

func (c *Competition) Size() int {
	return c.size
}

func (c *Competition) Config() Config {
	return c.cfg
}

// Record converts the rounds played so far into their stored form.
func (c *Competition) Record() []models.RunRound {
	out := make([]models.RunRound, 0, len(c.rounds))
	for _, r := range c.rounds {
		rr := models.RunRound{Round: r.Round, Matches: make([]models.RunMatch, 0, len(r.Matches))}
		for _, m := range r.Matches {
			p1, p2 := m.Players()
			rm := models.RunMatch{
				PlayerOneID:   p1.ID,
				PlayerOneName: p1.Name,
				Score:         m.Score(),
			}
			if p2 != nil {
				id := p2.ID
				rm.PlayerTwoID = &id
				rm.PlayerTwoName = p2.Name
			}
			if w := m.Winner(); w != nil {
				rm.WinnerID = w.ID
			}
			rr.Matches = append(rr.Matches, rm)
		}
		out = append(out, rr)
	}
	return out
}
