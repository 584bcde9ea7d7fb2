// Package simulation plays the same competition many times and tallies how
// far every player got.
package simulation

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"tennis-sim/internal/competition"
	"tennis-sim/internal/draw"
	"tennis-sim/internal/logger"
	"tennis-sim/internal/models"
	"tennis-sim/internal/random"
)

// MaxIterations bounds a single batch.
const MaxIterations = 100000

// Input is the field and settings shared by every iteration.
type Input struct {
	Generator *draw.Generator
	// Players are ordered by ranking, best first. Their history must already be
	// set; they are only read while the batch runs.
	Players []*models.Player
	Config  competition.Config
}

// Batch controls how many competitions are played. Iteration i is seeded with
// Seed+i, so results do not depend on Workers.
type Batch struct {
	Iterations int
	Seed       uint64
	Workers    int
}

// Play runs one competition to its end with a source seeded from seed.
func Play(in Input, seed uint64, log logrus.FieldLogger) (*competition.Competition, error) {
	c, err := competition.New(in.Generator, in.Players, in.Config, random.New(seed), log)
	if err != nil {
		return nil, err
	}
	if err := c.Run(); err != nil {
		return nil, err
	}
	return c, nil
}

// outcome is what one iteration contributes to the summary.
type outcome struct {
	champion int
	// rounds lists, per player, every round the player was drawn in.
	rounds map[int][]models.Round
}

func collect(c *competition.Competition) outcome {
	o := outcome{champion: c.Champion().ID, rounds: make(map[int][]models.Round)}
	for _, r := range c.Rounds() {
		for _, m := range r.Matches {
			p1, p2 := m.Players()
			o.rounds[p1.ID] = append(o.rounds[p1.ID], r.Round)
			if p2 != nil {
				o.rounds[p2.ID] = append(o.rounds[p2.ID], r.Round)
			}
		}
	}
	return o
}

// Run plays the batch. Iterations are spread over Workers goroutines (at
// least one) and merged in iteration order.
func Run(ctx context.Context, b Batch, in Input, log logrus.FieldLogger) (*Summary, error) {
	if b.Iterations < 1 || b.Iterations > MaxIterations {
		return nil, fmt.Errorf("%w: %d iterations, expected between 1 and %d", models.ErrInvalidArgument, b.Iterations, MaxIterations)
	}
	if log == nil {
		log = logger.Discard()
	}
	workers := max(b.Workers, 1)
	start := time.Now()

	outcomes := make([]outcome, b.Iterations)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range b.Iterations {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := Play(in, b.Seed+uint64(i), nil)
			if err != nil {
				return fmt.Errorf("iteration %d: %w", i, err)
			}
			outcomes[i] = collect(c)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := summarize(b, in, outcomes)
	log.WithFields(logrus.Fields{
		"iterations": b.Iterations,
		"seed":       b.Seed,
		"workers":    workers,
		"digest":     s.Digest,
		"duration":   time.Since(start).String(),
	}).Info("Batch simulation completed")
	return s, nil
}

// Standing is one player's tally over the batch.
type Standing struct {
	PlayerID int    `json:"playerId"`
	Name     string `json:"name"`
	Rank     int    `json:"rank"`
	Titles   int    `json:"titles"`
	// TitleShare is Titles over iterations, in percent.
	TitleShare float64 `json:"titleShare"`
	// Reached counts, per round, the iterations in which the player played it.
	Reached map[models.Round]int `json:"reached"`
}

type Summary struct {
	Iterations int        `json:"iterations"`
	Seed       uint64     `json:"seed"`
	Standings  []Standing `json:"standings"`
	// Champions lists the winner of every iteration, in order.
	Champions []int `json:"champions"`
	// Digest is the hex BLAKE2b-256 of the champion sequence.
	Digest string `json:"digest"`
}

func summarize(b Batch, in Input, outcomes []outcome) *Summary {
	byID := make(map[int]*Standing)
	for _, p := range in.Players {
		byID[p.ID] = &Standing{PlayerID: p.ID, Name: p.Name, Rank: p.Rank, Reached: make(map[models.Round]int)}
	}

	s := &Summary{Iterations: b.Iterations, Seed: b.Seed, Champions: make([]int, len(outcomes))}
	for i, o := range outcomes {
		s.Champions[i] = o.champion
		byID[o.champion].Titles++
		for id, rounds := range o.rounds {
			for _, r := range rounds {
				byID[id].Reached[r]++
			}
		}
	}

	for _, st := range byID {
		if len(st.Reached) == 0 {
			continue
		}
		st.TitleShare = 100 * float64(st.Titles) / float64(b.Iterations)
		s.Standings = append(s.Standings, *st)
	}
	sort.Slice(s.Standings, func(i, j int) bool {
		a, c := s.Standings[i], s.Standings[j]
		if a.Titles != c.Titles {
			return a.Titles > c.Titles
		}
		if (a.Rank == 0) != (c.Rank == 0) {
			return c.Rank == 0
		}
		if a.Rank != c.Rank {
			return a.Rank < c.Rank
		}
		return a.PlayerID < c.PlayerID
	})
	s.Digest = digest(s.Champions)
	return s
}

func digest(champions []int) string {
	buf := make([]byte, 0, len(champions)*4)
	for i, id := range champions {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendInt(buf, int64(id), 10)
	}
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
