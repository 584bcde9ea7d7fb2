package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tennis-sim/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// PlayerQuery filters the player list. Zero values disable a filter.
type PlayerQuery struct {
	// BornAfter keeps players born strictly after the date; players without a
	// date of birth are dropped when it is set.
	BornAfter *time.Time
	// Limit caps the number of players returned, best ranked first.
	Limit int
}

// DateRange selects matches played in [From, To). A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (d DateRange) contains(t time.Time) bool {
	if !d.From.IsZero() && t.Before(d.From) {
		return false
	}
	if !d.To.IsZero() && !t.Before(d.To) {
		return false
	}
	return true
}

// Store defines the interface for player, match history and run persistence.
// Implementations back this with in-memory storage, JSON files, SQL or Firestore.
type Store interface {
	// Players
	UpsertPlayer(ctx context.Context, p *models.Player) error
	GetPlayer(ctx context.Context, id int) (*models.Player, error)
	// ListPlayers returns players ordered by rank, unranked players last.
	ListPlayers(ctx context.Context, q PlayerQuery) ([]*models.Player, error)

	// Match history
	AddMatch(ctx context.Context, m *models.MatchArchive) error
	// ListMatches returns the matches of playerID within span, oldest first.
	ListMatches(ctx context.Context, playerID int, span DateRange) ([]models.MatchArchive, error)

	// Simulation runs
	CreateRun(ctx context.Context, r *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]*models.Run, error)
	DeleteRun(ctx context.Context, id string) error
}

// Importer is implemented by stores that can take a run as-is, keeping its
// timestamps. Used when migrating between backends.
type Importer interface {
	ImportRun(ctx context.Context, r *models.Run) error
}

func checkRunID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: run without id", models.ErrInvalidArgument)
	}
	return nil
}

func playerNotFound(id int) error {
	return fmt.Errorf("player %d %w", id, ErrNotFound)
}

func runNotFound(id string) error {
	return fmt.Errorf("run %s %w", id, ErrNotFound)
}

// selectPlayers applies q to players and sorts them by rank.
func selectPlayers(players []*models.Player, q PlayerQuery) []*models.Player {
	out := make([]*models.Player, 0, len(players))
	for _, p := range players {
		if q.BornAfter != nil && (p.DateOfBirth == nil || !p.DateOfBirth.After(*q.BornAfter)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Rank == 0) != (b.Rank == 0) {
			return b.Rank == 0
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.ID < b.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// selectMatches keeps the matches of playerID within span, oldest first.
func selectMatches(matches []models.MatchArchive, playerID int, span DateRange) []models.MatchArchive {
	out := make([]models.MatchArchive, 0)
	for _, m := range matches {
		if (m.WinnerID == playerID || m.LoserID == playerID) && span.contains(m.Date) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortRuns(runs []*models.Run) {
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
}

// LoadField loads the ranked players matching q and attaches their match
// history within span, computing their statistics.
func LoadField(ctx context.Context, s Store, q PlayerQuery, span DateRange) ([]*models.Player, error) {
	players, err := s.ListPlayers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	for _, p := range players {
		matches, err := s.ListMatches(ctx, p.ID, span)
		if err != nil {
			return nil, fmt.Errorf("listing matches of player %d: %w", p.ID, err)
		}
		if err := p.SetHistory(matches); err != nil {
			return nil, err
		}
	}
	return players, nil
}
