package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tennis-sim/internal/models"
	"tennis-sim/internal/store"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()
	src, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, src.UpsertPlayer(ctx, &models.Player{ID: i, Name: "P", Rank: i}))
	}
	for _, m := range []models.MatchArchive{
		{ID: "a", BestOf: models.BestOfThree, Date: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), WinnerID: 1, LoserID: 2},
		{ID: "b", BestOf: models.BestOfThree, Date: time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC), WinnerID: 3, LoserID: 2},
	} {
		require.NoError(t, src.AddMatch(ctx, &m))
	}
	run := &models.Run{ID: "run-1", Name: "old run", CreatedAt: time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)}
	run.UpdatedAt = run.CreatedAt
	require.NoError(t, src.ImportRun(ctx, run))

	dst, err := store.NewSQLStore(":memory:", false, nil)
	require.NoError(t, err)
	defer dst.Close()

	var out bytes.Buffer
	rep, err := migrate(ctx, src, dst, &out)
	require.NoError(t, err)
	assert.Equal(t, report{players: 3, matches: 2, runs: 1}, rep)
	assert.Contains(t, out.String(), "old run (run-1)")

	matches, err := dst.ListMatches(ctx, 2, store.DateRange{})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	got, err := dst.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(run.CreatedAt))

	// A second pass only finds duplicates.
	rep, err = migrate(ctx, src, dst, &out)
	require.NoError(t, err)
	assert.Equal(t, report{players: 3, skipped: 3}, rep)
}
