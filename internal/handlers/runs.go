package handlers

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tennis-sim/internal/competition"
	"tennis-sim/internal/draw"
	"tennis-sim/internal/logger"
	"tennis-sim/internal/models"
	"tennis-sim/internal/scoring"
	"tennis-sim/internal/simulation"
	"tennis-sim/internal/store"
)

func newID() string {
	return uuid.New().String()
}

// seedFromID derives a non-negative seed from a run id.
func seedFromID(id string) int64 {
	u, err := uuid.Parse(id)
	if err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(u[:8]) >> 1)
}

// SettingsRequest describes the competition to simulate. Zero values fall
// back to defaults: today, a best-of matching the level, point-by-point play.
type SettingsRequest struct {
	DrawSize     int                 `json:"drawSize"`
	SeedRate     float64             `json:"seedRate"`
	Surface      models.Surface      `json:"surface"`
	Level        models.Level        `json:"level"`
	Date         string              `json:"date,omitempty"`
	BestOf       models.BestOf       `json:"bestOf,omitempty"`
	FinalBestOf  models.BestOf       `json:"finalBestOf,omitempty"`
	FifthSetRule models.FifthSetRule `json:"fifthSetRule,omitempty"`
	Mode         string              `json:"mode,omitempty"`
	AllowByes    bool                `json:"allowByes,omitempty"`
	// HistoryFrom limits the match history used for the odds. The history
	// always stops at the competition date.
	HistoryFrom string `json:"historyFrom,omitempty"`
}

// field is a validated request, ready to be played.
type field struct {
	settings models.RunSettings
	input    simulation.Input
}

func parseDate(name, raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q, use YYYY-MM-DD", models.ErrInvalidArgument, name, raw)
	}
	return d, nil
}

// loadField validates req and loads the best ranked players with their history.
func (h *Handler) loadField(r *http.Request, req SettingsRequest) (*field, error) {
	gen, err := draw.NewGenerator(req.DrawSize, req.SeedRate)
	if err != nil {
		return nil, err
	}
	mode, err := scoring.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	date := h.now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		if date, err = parseDate("date", req.Date); err != nil {
			return nil, err
		}
	}
	span := store.DateRange{To: date}
	if req.HistoryFrom != "" {
		if span.From, err = parseDate("historyFrom", req.HistoryFrom); err != nil {
			return nil, err
		}
	}

	cfg := competition.Config{
		Surface:      req.Surface,
		Level:        req.Level,
		Date:         date,
		BestOf:       req.BestOf,
		FinalBestOf:  req.FinalBestOf,
		FifthSetRule: req.FifthSetRule,
		Mode:         mode,
		AllowByes:    req.AllowByes,
	}.WithDefaults()
	players, err := store.LoadField(r.Context(), h.store, store.PlayerQuery{Limit: gen.Size()}, span)
	if err != nil {
		return nil, err
	}

	return &field{
		settings: models.RunSettings{
			DrawSize:     gen.Size(),
			SeedRate:     gen.SeedRate(),
			Surface:      cfg.Surface,
			Level:        cfg.Level,
			Date:         date,
			BestOf:       cfg.BestOf,
			FinalBestOf:  cfg.FinalBestOf,
			FifthSetRule: cfg.FifthSetRule,
			Mode:         mode.String(),
			AllowByes:    cfg.AllowByes,
		},
		input: simulation.Input{Generator: gen, Players: players, Config: cfg},
	}, nil
}

type CreateRunRequest struct {
	SettingsRequest
	Name string `json:"name"`
	// Seed makes the run reproducible. Derived from the run id when absent.
	Seed *int64 `json:"seed,omitempty"`
}

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Seed != nil && *req.Seed < 0 {
		writeError(w, http.StatusBadRequest, "seed must not be negative")
		return
	}

	f, err := h.loadField(r, req.SettingsRequest)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	run := &models.Run{ID: newID(), Name: req.Name}
	run.Seed = seedFromID(run.ID)
	if req.Seed != nil {
		run.Seed = *req.Seed
	}
	if run.Name == "" {
		run.Name = fmt.Sprintf("%s %s %d", f.settings.Level, f.settings.Surface, f.settings.DrawSize)
	}

	c, err := simulation.Play(f.input, uint64(run.Seed), logger.WithRun(h.log, run.ID, run.Seed))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	run.Settings = f.settings
	run.Rounds = c.Record()
	run.ChampionID = c.Champion().ID

	if err := h.store.CreateRun(r.Context(), run); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.store.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteRun(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SimulateRequest struct {
	SettingsRequest
	Iterations int    `json:"iterations"`
	Seed       uint64 `json:"seed"`
	Workers    int    `json:"workers,omitempty"`
}

type SimulateResponse struct {
	Settings models.RunSettings `json:"settings"`
	*simulation.Summary
}

func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f, err := h.loadField(r, req.SettingsRequest)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	workers := req.Workers
	if workers <= 0 || workers > h.maxWorkers {
		workers = h.maxWorkers
	}
	batch := simulation.Batch{Iterations: req.Iterations, Seed: req.Seed, Workers: workers}
	summary, err := simulation.Run(r.Context(), batch, f.input, h.log)
	if err != nil {
		if r.Context().Err() != nil {
			h.log.WithError(err).Warn("Simulation cancelled")
			return
		}
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SimulateResponse{Settings: f.settings, Summary: summary})
}

func (h *Handler) SeedRates(w http.ResponseWriter, r *http.Request) {
	size, err := strconv.Atoi(r.PathValue("size"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid draw size")
		return
	}
	if _, err := draw.NewGenerator(size, 0); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draw.SeedRates(size))
}
