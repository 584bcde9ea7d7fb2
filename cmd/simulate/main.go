package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"tennis-sim/internal/auth"
	"tennis-sim/internal/competition"
	"tennis-sim/internal/config"
	"tennis-sim/internal/draw"
	"tennis-sim/internal/logger"
	"tennis-sim/internal/models"
	"tennis-sim/internal/scoring"
	"tennis-sim/internal/simulation"
	"tennis-sim/internal/store"
)

const usage = `Usage:
  simulate [flags]          simulate a competition many times and print the standings
  simulate hash-key [key]   print the bcrypt hash of an admin key (read from stdin when omitted)

Flags:
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-key" {
		if err := hashKey(os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	flags := pflag.NewFlagSet("simulate", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	flags.Int("draw-size", 0, "bracket size, a power of two between 8 and 128 (DRAW_SIZE)")
	flags.Float64("seed-rate", 0, "share of seeded players, 0 or 1/2^k (SEED_RATE)")
	flags.Int("iterations", 0, "number of competitions to play (ITERATIONS)")
	flags.Uint64("seed", 0, "seed of the first iteration (SEED)")
	flags.Int("workers", 0, "parallel workers (WORKERS)")
	flags.String("store-backend", "", "memory, file, sql or firestore (STORE_BACKEND)")
	flags.String("data-dir", "", "directory of the file store (DATA_DIR)")
	flags.String("database-url", "", "sqlite path or postgres URL (DATABASE_URL)")
	flags.String("log-level", "", "log level (LOG_LEVEL)")
	surface := flags.String("surface", string(models.SurfaceHard), "grass, clay, hard or carpet")
	level := flags.String("level", string(models.LevelTour250), "tournament level")
	date := flags.String("date", "", "competition date, YYYY-MM-DD (default today)")
	historyFrom := flags.String("history-from", "", "ignore matches played before this date, YYYY-MM-DD")
	bestOf := flags.Int("best-of", 0, "3 or 5 (default from level)")
	finalBestOf := flags.Int("final-best-of", 0, "3 or 5 (default best-of)")
	fifthSet := flags.String("fifth-set", string(models.FifthSetNoTieBreak), "none, 6-6 or 12-12")
	mode := flags.String("mode", "point", "point or game")
	allowByes := flags.Bool("allow-byes", false, "fill a short field with byes")
	bracket := flags.Bool("bracket", false, "also print the bracket of the first iteration")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.New(cfg.LogLevel, true, cfg.LogFormat)
	log.SetOutput(os.Stderr)

	scoringMode, err := scoring.ParseMode(*mode)
	if err != nil {
		log.Fatal(err)
	}
	day := time.Now().UTC().Truncate(24 * time.Hour)
	if *date != "" {
		if day, err = time.Parse("2006-01-02", *date); err != nil {
			log.Fatalf("Invalid --date: %v", err)
		}
	}
	span := store.DateRange{To: day}
	if *historyFrom != "" {
		if span.From, err = time.Parse("2006-01-02", *historyFrom); err != nil {
			log.Fatalf("Invalid --history-from: %v", err)
		}
	}

	gen, err := draw.NewGenerator(cfg.DrawSize, cfg.SeedRate)
	if err != nil {
		log.Fatalf("%v (valid seed rates: %v)", err, draw.SeedRates(cfg.DrawSize))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, closeStore, err := cfg.OpenStore(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize store")
	}
	defer closeStore()

	players, err := store.LoadField(ctx, s, store.PlayerQuery{Limit: gen.Size()}, span)
	if err != nil {
		log.WithError(err).Fatal("Failed to load players")
	}

	in := simulation.Input{
		Generator: gen,
		Players:   players,
		Config: competition.Config{
			Surface:      models.Surface(*surface),
			Level:        models.Level(*level),
			Date:         day,
			BestOf:       models.BestOf(*bestOf),
			FinalBestOf:  models.BestOf(*finalBestOf),
			FifthSetRule: models.FifthSetRule(*fifthSet),
			Mode:         scoringMode,
			AllowByes:    *allowByes,
		},
	}

	if *bracket {
		c, err := simulation.Play(in, cfg.Seed, log)
		if err != nil {
			log.WithError(err).Fatal("Simulation failed")
		}
		printBracket(os.Stdout, c.Record())
	}

	batch := simulation.Batch{Iterations: cfg.Iterations, Seed: cfg.Seed, Workers: cfg.Workers}
	summary, err := simulation.Run(ctx, batch, in, log)
	if err != nil {
		log.WithError(err).Fatal("Simulation failed")
	}
	printStandings(os.Stdout, summary, gen.Size())
}

func hashKey(args []string, stdin io.Reader, out io.Writer) error {
	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("reading key: %w", err)
		}
		key = strings.TrimSpace(line)
	}
	hash, err := auth.HashKey(key)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}

// roundColumns lists the rounds of a draw of the given size, first round first.
func roundColumns(size int) []models.Round {
	first, err := models.FirstRound(size)
	if err != nil {
		return nil
	}
	rounds := []models.Round{first}
	for r, ok := first.Next(); ok; r, ok = r.Next() {
		rounds = append(rounds, r)
	}
	return rounds
}

func printStandings(out io.Writer, s *simulation.Summary, size int) {
	rounds := roundColumns(size)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)

	header := []string{"rank", "player", "titles", "share %"}
	for _, r := range rounds[1:] {
		header = append(header, string(r))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, st := range s.Standings {
		row := []string{
			fmt.Sprint(st.Rank),
			st.Name,
			fmt.Sprint(st.Titles),
			fmt.Sprintf("%.2f", st.TitleShare),
		}
		for _, r := range rounds[1:] {
			row = append(row, fmt.Sprint(st.Reached[r]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	tw.Flush()
	fmt.Fprintf(out, "\n%d iterations, seed %d, digest %s\n", s.Iterations, s.Seed, s.Digest)
}

func printBracket(out io.Writer, rounds []models.RunRound) {
	for _, r := range rounds {
		fmt.Fprintf(out, "%s\n", r.Round)
		for _, m := range r.Matches {
			second := "bye"
			if m.PlayerTwoID != nil {
				second = m.PlayerTwoName
			}
			fmt.Fprintf(out, "  %s - %s  %s\n", m.PlayerOneName, second, m.Score)
		}
	}
	fmt.Fprintln(out)
}
