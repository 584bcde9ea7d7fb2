package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"tennis-sim/internal/auth"
	"tennis-sim/internal/logger"
	"tennis-sim/internal/models"
	"tennis-sim/internal/store"
)

type Handler struct {
	store store.Store
	log   logrus.FieldLogger
	// maxWorkers caps the goroutines a batch simulation may use.
	maxWorkers int
	// now is replaced in tests.
	now func() time.Time
}

func New(s store.Store, log logrus.FieldLogger, maxWorkers int) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{store: s, log: log, maxWorkers: max(maxWorkers, 1), now: time.Now}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/me", h.GetMe)
	mux.HandleFunc("GET /api/players", h.ListPlayers)
	mux.HandleFunc("POST /api/players", auth.RequireAdmin(h.UpsertPlayer))
	mux.HandleFunc("GET /api/players/{id}", h.GetPlayer)
	mux.HandleFunc("POST /api/matches", auth.RequireAdmin(h.AddMatch))
	mux.HandleFunc("GET /api/runs", h.ListRuns)
	mux.HandleFunc("POST /api/runs", auth.RequireAdmin(h.CreateRun))
	mux.HandleFunc("GET /api/runs/{id}", h.GetRun)
	mux.HandleFunc("DELETE /api/runs/{id}", auth.RequireAdmin(h.DeleteRun))
	mux.HandleFunc("POST /api/simulations", auth.RequireAdmin(h.Simulate))
	mux.HandleFunc("GET /api/draws/{size}/seed-rates", h.SeedRates)
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

const dateLayout = "2006-01-02"

func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	var q store.PlayerQuery
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		q.Limit = limit
	}
	if raw := r.URL.Query().Get("bornAfter"); raw != "" {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid bornAfter, use YYYY-MM-DD")
			return
		}
		q.BornAfter = &d
	}

	players, err := h.store.ListPlayers(r.Context(), q)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// PlayerDetail is a player with the statistics computed from its history.
type PlayerDetail struct {
	*models.Player
	Stats *models.Statistics `json:"stats"`
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	p, err := h.store.GetPlayer(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	matches, err := h.store.ListMatches(r.Context(), id, store.DateRange{})
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if err := p.SetHistory(matches); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlayerDetail{Player: p, Stats: p.Stats()})
}

func (h *Handler) UpsertPlayer(w http.ResponseWriter, r *http.Request) {
	var p models.Player
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.store.UpsertPlayer(r.Context(), &p); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) AddMatch(w http.ResponseWriter, r *http.Request) {
	var m models.MatchArchive
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if m.ID == "" {
		m.ID = newID()
	}
	if err := h.store.AddMatch(r.Context(), &m); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// writeStoreError maps domain and store errors to HTTP statuses.
func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.WithError(err).Error("Request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
