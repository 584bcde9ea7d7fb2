package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tennis-sim/internal/models"
)

type MemoryStore struct {
	mu      sync.RWMutex
	players map[int]*models.Player
	matches []models.MatchArchive
	runs    map[string]*models.Run
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[int]*models.Player),
		runs:    make(map[string]*models.Run),
	}
}

func (m *MemoryStore) UpsertPlayer(_ context.Context, p *models.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy only the stored fields; history is never persisted.
	m.players[p.ID] = &models.Player{ID: p.ID, Name: p.Name, Rank: p.Rank, DateOfBirth: p.DateOfBirth}
	return nil
}

func (m *MemoryStore) GetPlayer(_ context.Context, id int) (*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[id]
	if !ok {
		return nil, playerNotFound(id)
	}
	copied := *p
	return &copied, nil
}

func (m *MemoryStore) ListPlayers(_ context.Context, q PlayerQuery) ([]*models.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Player, 0, len(m.players))
	for _, p := range m.players {
		copied := *p
		result = append(result, &copied)
	}
	return selectPlayers(result, q), nil
}

func (m *MemoryStore) AddMatch(_ context.Context, match *models.MatchArchive) error {
	if err := match.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.matches {
		if existing.ID == match.ID {
			return fmt.Errorf("match %s %w", match.ID, ErrAlreadyExists)
		}
	}
	m.matches = append(m.matches, *match)
	return nil
}

func (m *MemoryStore) ListMatches(_ context.Context, playerID int, span DateRange) ([]models.MatchArchive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return selectMatches(m.matches, playerID, span), nil
}

func (m *MemoryStore) CreateRun(ctx context.Context, r *models.Run) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	return m.ImportRun(ctx, r)
}

// ImportRun stores r with its original timestamps.
func (m *MemoryStore) ImportRun(_ context.Context, r *models.Run) error {
	if err := checkRunID(r.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[r.ID]; exists {
		return fmt.Errorf("run %s %w", r.ID, ErrAlreadyExists)
	}

	// Copy to avoid external mutation
	copied := *r
	m.runs[r.ID] = &copied
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id string) (*models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, runNotFound(id)
	}
	copied := *r
	return &copied, nil
}

func (m *MemoryStore) ListRuns(_ context.Context) ([]*models.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.Run, 0, len(m.runs))
	for _, r := range m.runs {
		copied := *r
		result = append(result, &copied)
	}
	sortRuns(result)
	return result, nil
}

func (m *MemoryStore) DeleteRun(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[id]; !ok {
		return runNotFound(id)
	}
	delete(m.runs, id)
	return nil
}
