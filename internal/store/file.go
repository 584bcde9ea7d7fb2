package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"tennis-sim/internal/models"
)

// FileStore persists data as JSON files on disk: each run as {dir}/{run-id}.json,
// players and match history in {dir}/_players.json and {dir}/_matches.json.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func (f *FileStore) playersPath() string {
	return filepath.Join(f.dir, "_players.json")
}

func (f *FileStore) matchesPath() string {
	return filepath.Join(f.dir, "_matches.json")
}

// readFile decodes path into v. A missing file leaves v untouched.
func readFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	// Write to temp file then rename for atomic writes
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readPlayers returns the players keyed by id. JSON object keys are strings.
func (f *FileStore) readPlayers() (map[string]*models.Player, error) {
	players := make(map[string]*models.Player)
	if err := readFile(f.playersPath(), &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (f *FileStore) UpsertPlayer(_ context.Context, p *models.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	players, err := f.readPlayers()
	if err != nil {
		return err
	}
	players[strconv.Itoa(p.ID)] = p
	return writeFile(f.playersPath(), players)
}

func (f *FileStore) GetPlayer(_ context.Context, id int) (*models.Player, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	players, err := f.readPlayers()
	if err != nil {
		return nil, err
	}
	p, ok := players[strconv.Itoa(id)]
	if !ok {
		return nil, playerNotFound(id)
	}
	return p, nil
}

func (f *FileStore) ListPlayers(_ context.Context, q PlayerQuery) ([]*models.Player, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	players, err := f.readPlayers()
	if err != nil {
		return nil, err
	}
	result := make([]*models.Player, 0, len(players))
	for _, p := range players {
		result = append(result, p)
	}
	return selectPlayers(result, q), nil
}

func (f *FileStore) readMatches() ([]models.MatchArchive, error) {
	var matches []models.MatchArchive
	if err := readFile(f.matchesPath(), &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (f *FileStore) AddMatch(_ context.Context, m *models.MatchArchive) error {
	if err := m.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	matches, err := f.readMatches()
	if err != nil {
		return err
	}
	for _, existing := range matches {
		if existing.ID == m.ID {
			return fmt.Errorf("match %s %w", m.ID, ErrAlreadyExists)
		}
	}
	return writeFile(f.matchesPath(), append(matches, *m))
}

func (f *FileStore) ListMatches(_ context.Context, playerID int, span DateRange) ([]models.MatchArchive, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	matches, err := f.readMatches()
	if err != nil {
		return nil, err
	}
	return selectMatches(matches, playerID, span), nil
}

func (f *FileStore) readRun(id string) (*models.Run, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, runNotFound(id)
		}
		return nil, fmt.Errorf("reading run %s: %w", id, err)
	}

	var r models.Run
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", id, err)
	}
	return &r, nil
}

// validRunID rejects ids that would escape the data directory or collide
// with the player and match files.
func validRunID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`) && !strings.HasPrefix(id, "_")
}

func (f *FileStore) CreateRun(ctx context.Context, r *models.Run) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	return f.ImportRun(ctx, r)
}

// ImportRun stores r with its original timestamps.
func (f *FileStore) ImportRun(_ context.Context, r *models.Run) error {
	if !validRunID(r.ID) {
		return fmt.Errorf("%w: run id %q", models.ErrInvalidArgument, r.ID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path(r.ID)); err == nil {
		return fmt.Errorf("run %s %w", r.ID, ErrAlreadyExists)
	}
	return writeFile(f.path(r.ID), r)
}

func (f *FileStore) GetRun(_ context.Context, id string) (*models.Run, error) {
	if !validRunID(id) {
		return nil, runNotFound(id)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.readRun(id)
}

func (f *FileStore) ListRuns(_ context.Context) ([]*models.Run, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("listing data directory: %w", err)
	}

	runs := make([]*models.Run, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" || strings.HasPrefix(entry.Name(), "_") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		r, err := f.readRun(id)
		if err != nil {
			continue // skip corrupt files
		}
		runs = append(runs, r)
	}
	sortRuns(runs)
	return runs, nil
}

func (f *FileStore) DeleteRun(_ context.Context, id string) error {
	if !validRunID(id) {
		return runNotFound(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p := f.path(id)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return runNotFound(id)
	}

	if err := os.Remove(p); err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	return nil
}
