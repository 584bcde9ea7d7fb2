package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"tennis-sim/internal/config"
	"tennis-sim/internal/logger"
	"tennis-sim/internal/store"
)

// destination is a store that can take runs with their original timestamps.
type destination interface {
	store.Store
	store.Importer
}

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	flags.String("data-dir", "", "source file store directory (DATA_DIR)")
	flags.String("store-backend", "", "destination: sql or firestore (STORE_BACKEND)")
	flags.String("database-url", "", "destination sqlite path or postgres URL (DATABASE_URL)")
	flags.String("gcp-project-id", "", "destination Firestore project (GCP_PROJECT_ID)")
	flags.String("firestore-database", "", "destination Firestore database (FIRESTORE_DATABASE)")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, cfg.Development(), cfg.LogFormat)
	if cfg.StoreBackend != "sql" && cfg.StoreBackend != "firestore" {
		log.Fatalf("Destination must be sql or firestore, got %q", cfg.StoreBackend)
	}

	ctx := context.Background()

	src, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		log.WithError(err).Fatal("Failed to open file store")
	}

	s, closeStore, err := cfg.OpenStore(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open destination store")
	}
	defer closeStore()
	dst, ok := s.(destination)
	if !ok {
		log.Fatalf("Store backend %s cannot import runs", cfg.StoreBackend)
	}

	fmt.Printf("Migrating from %s -> %s\n\n", cfg.DataDir, cfg.StoreBackend)
	report, err := migrate(ctx, src, dst, os.Stdout)
	if err != nil {
		log.WithError(err).Fatal("Migration failed")
	}
	log.WithFields(logrus.Fields{
		"players": report.players,
		"matches": report.matches,
		"runs":    report.runs,
		"skipped": report.skipped,
	}).Info("Migration complete")
}

type report struct {
	players, matches, runs, skipped int
}

// migrate copies every player, the history of those players and every run
// from src to dst. Records already present in dst are skipped.
func migrate(ctx context.Context, src store.Store, dst destination, out io.Writer) (report, error) {
	var rep report

	players, err := src.ListPlayers(ctx, store.PlayerQuery{})
	if err != nil {
		return rep, fmt.Errorf("listing players: %w", err)
	}
	fmt.Fprintf(out, "Players: %d\n", len(players))
	seen := make(map[string]bool)
	for _, p := range players {
		if err := dst.UpsertPlayer(ctx, p); err != nil {
			return rep, fmt.Errorf("copying player %d: %w", p.ID, err)
		}
		rep.players++

		matches, err := src.ListMatches(ctx, p.ID, store.DateRange{})
		if err != nil {
			return rep, fmt.Errorf("listing matches of player %d: %w", p.ID, err)
		}
		for _, m := range matches {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			if err := dst.AddMatch(ctx, &m); err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					rep.skipped++
					continue
				}
				return rep, fmt.Errorf("copying match %s: %w", m.ID, err)
			}
			rep.matches++
		}
	}
	fmt.Fprintf(out, "Matches: %d\n", rep.matches)

	runs, err := src.ListRuns(ctx)
	if err != nil {
		return rep, fmt.Errorf("listing runs: %w", err)
	}
	fmt.Fprintf(out, "\nRuns: %d\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(out, "  %s (%s)\n", r.Name, r.ID)
		fmt.Fprintf(out, "    Created: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "    Draw: %d, %s %s, champion %d\n", r.Settings.DrawSize, r.Settings.Level, r.Settings.Surface, r.ChampionID)
		if err := dst.ImportRun(ctx, r); err != nil {
			fmt.Fprintf(out, "    SKIP: %v\n", err)
			rep.skipped++
			continue
		}
		fmt.Fprintf(out, "    OK\n")
		rep.runs++
	}
	return rep, nil
}
