package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"tennis-sim/internal/logger"
	"tennis-sim/internal/models"
)

type playerRow struct {
	ID          int    `gorm:"primaryKey;autoIncrement:false"`
	Name        string `gorm:"size:200;not null"`
	Ranking     int    `gorm:"index;not null;default:0"`
	DateOfBirth *time.Time
}

func (playerRow) TableName() string { return "players" }

type matchRow struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Surface     string    `gorm:"size:16"`
	Level       string    `gorm:"size:32"`
	Round       string    `gorm:"size:8"`
	BestOf      int       `gorm:"not null"`
	Date        time.Time `gorm:"column:played_on;index"`
	WinnerID    int       `gorm:"index;not null"`
	LoserID     int       `gorm:"index;not null"`
	Sets        datatypes.JSON
	WinnerServe datatypes.JSON
	LoserServe  datatypes.JSON
}

func (matchRow) TableName() string { return "match_archives" }

type runRow struct {
	ID         string `gorm:"primaryKey;size:64"`
	Name       string `gorm:"size:200"`
	Settings   datatypes.JSON
	Seed       int64
	Rounds     datatypes.JSON
	ChampionID int
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

func (runRow) TableName() string { return "runs" }

// SQLStore keeps players, history and runs in a relational database through
// gorm. Nested values (set scores, rounds) are stored as JSON columns.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens databaseURL: a postgres:// URL selects PostgreSQL, anything
// else is treated as a SQLite path (":memory:" included). Tables are migrated
// on open. A nil log discards the store's own messages.
func NewSQLStore(databaseURL string, development bool, log logrus.FieldLogger) (*SQLStore, error) {
	if log == nil {
		log = logger.Discard()
	}
	logLevel := gormlogger.Error
	if development {
		logLevel = gormlogger.Info
	}

	isPostgres := strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://")
	dialector := sqlite.Open(databaseURL)
	if isPostgres {
		dialector = postgres.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if isPostgres {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	} else {
		// Every SQLite connection to ":memory:" is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&playerRow{}, &matchRow{}, &runRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.WithFields(logrus.Fields{
		"postgres": isPostgres,
	}).Debug("Database connection established")
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toJSON(v any) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

func fromJSON(data datatypes.JSON, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (r playerRow) toModel() *models.Player {
	return &models.Player{ID: r.ID, Name: r.Name, Rank: r.Ranking, DateOfBirth: r.DateOfBirth}
}

func (s *SQLStore) UpsertPlayer(ctx context.Context, p *models.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}
	row := playerRow{ID: p.ID, Name: p.Name, Ranking: p.Rank, DateOfBirth: p.DateOfBirth}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("saving player %d: %w", p.ID, err)
	}
	return nil
}

func (s *SQLStore) GetPlayer(ctx context.Context, id int) (*models.Player, error) {
	var row playerRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, playerNotFound(id)
		}
		return nil, fmt.Errorf("loading player %d: %w", id, err)
	}
	return row.toModel(), nil
}

func (s *SQLStore) ListPlayers(ctx context.Context, q PlayerQuery) ([]*models.Player, error) {
	tx := s.db.WithContext(ctx).Model(&playerRow{})
	if q.BornAfter != nil {
		tx = tx.Where("date_of_birth > ?", *q.BornAfter)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var rows []playerRow
	if err := tx.Order("ranking = 0, ranking, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	players := make([]*models.Player, len(rows))
	for i, r := range rows {
		players[i] = r.toModel()
	}
	return players, nil
}

func (s *SQLStore) AddMatch(ctx context.Context, m *models.MatchArchive) error {
	if err := m.Validate(); err != nil {
		return err
	}
	row := matchRow{
		ID:       m.ID,
		Surface:  string(m.Surface),
		Level:    string(m.Level),
		Round:    string(m.Round),
		BestOf:   int(m.BestOf),
		Date:     m.Date,
		WinnerID: m.WinnerID,
		LoserID:  m.LoserID,
	}
	var err error
	if row.Sets, err = toJSON(m.Sets); err != nil {
		return fmt.Errorf("encoding sets of match %s: %w", m.ID, err)
	}
	// Missing serve records are kept as a JSON null rather than SQL NULL.
	if row.WinnerServe, err = toJSON(m.WinnerServe); err != nil {
		return fmt.Errorf("encoding serve of match %s: %w", m.ID, err)
	}
	if row.LoserServe, err = toJSON(m.LoserServe); err != nil {
		return fmt.Errorf("encoding serve of match %s: %w", m.ID, err)
	}

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("saving match %s: %w", m.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("match %s %w", m.ID, ErrAlreadyExists)
	}
	return nil
}

func (r matchRow) toModel() (models.MatchArchive, error) {
	m := models.MatchArchive{
		ID:       r.ID,
		Surface:  models.Surface(r.Surface),
		Level:    models.Level(r.Level),
		Round:    models.Round(r.Round),
		BestOf:   models.BestOf(r.BestOf),
		Date:     r.Date,
		WinnerID: r.WinnerID,
		LoserID:  r.LoserID,
	}
	if err := fromJSON(r.Sets, &m.Sets); err != nil {
		return m, err
	}
	if err := fromJSON(r.WinnerServe, &m.WinnerServe); err != nil {
		return m, err
	}
	return m, fromJSON(r.LoserServe, &m.LoserServe)
}

func (s *SQLStore) ListMatches(ctx context.Context, playerID int, span DateRange) ([]models.MatchArchive, error) {
	tx := s.db.WithContext(ctx).Where("winner_id = ? OR loser_id = ?", playerID, playerID)
	if !span.From.IsZero() {
		tx = tx.Where("played_on >= ?", span.From)
	}
	if !span.To.IsZero() {
		tx = tx.Where("played_on < ?", span.To)
	}
	var rows []matchRow
	if err := tx.Order("played_on, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing matches of player %d: %w", playerID, err)
	}

	matches := make([]models.MatchArchive, 0, len(rows))
	for _, r := range rows {
		m, err := r.toModel()
		if err != nil {
			return nil, fmt.Errorf("decoding match %s: %w", r.ID, err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func runToRow(r *models.Run) (runRow, error) {
	row := runRow{
		ID:         r.ID,
		Name:       r.Name,
		Seed:       r.Seed,
		ChampionID: r.ChampionID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	var err error
	if row.Settings, err = toJSON(r.Settings); err != nil {
		return row, err
	}
	row.Rounds, err = toJSON(r.Rounds)
	return row, err
}

func (r runRow) toModel() (*models.Run, error) {
	run := &models.Run{
		ID:         r.ID,
		Name:       r.Name,
		Seed:       r.Seed,
		ChampionID: r.ChampionID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if err := fromJSON(r.Settings, &run.Settings); err != nil {
		return nil, err
	}
	if err := fromJSON(r.Rounds, &run.Rounds); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *SQLStore) insertRun(ctx context.Context, r *models.Run) error {
	if err := checkRunID(r.ID); err != nil {
		return err
	}
	row, err := runToRow(r)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", r.ID, err)
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("saving run %s: %w", r.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s %w", r.ID, ErrAlreadyExists)
	}
	return nil
}

func (s *SQLStore) CreateRun(ctx context.Context, r *models.Run) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	return s.insertRun(ctx, r)
}

// ImportRun stores r with its original timestamps.
func (s *SQLStore) ImportRun(ctx context.Context, r *models.Run) error {
	return s.insertRun(ctx, r)
}

func (s *SQLStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	var row runRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, runNotFound(id)
		}
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	run, err := row.toModel()
	if err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", id, err)
	}
	return run, nil
}

func (s *SQLStore) ListRuns(ctx context.Context) ([]*models.Run, error) {
	var rows []runRow
	if err := s.db.WithContext(ctx).Order("created_at DESC, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	runs := make([]*models.Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("decoding run %s: %w", row.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *SQLStore) DeleteRun(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&runRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("deleting run %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return runNotFound(id)
	}
	return nil
}
