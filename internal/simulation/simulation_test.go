package simulation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tennis-sim/internal/competition"
	"tennis-sim/internal/draw"
	"tennis-sim/internal/models"
	"tennis-sim/internal/scoring"
)

func testInput(t *testing.T) Input {
	t.Helper()
	gen, err := draw.NewGenerator(16, 0.25)
	require.NoError(t, err)
	players := make([]*models.Player, 18)
	for i := range players {
		players[i] = &models.Player{ID: 100 + i, Name: fmt.Sprintf("Player %d", i+1), Rank: i + 1}
		require.NoError(t, players[i].SetHistory(nil))
	}
	return Input{
		Generator: gen,
		Players:   players,
		Config: competition.Config{
			Surface: models.SurfaceHard,
			Level:   models.LevelMasters1000,
			Date:    time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC),
			Mode:    scoring.ModeGame,
		},
	}
}

func TestRunValidation(t *testing.T) {
	_, err := Run(context.Background(), Batch{Iterations: 0}, testInput(t), nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = Run(context.Background(), Batch{Iterations: MaxIterations + 1}, testInput(t), nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	in := testInput(t)
	in.Config.Surface = "ice"
	_, err = Run(context.Background(), Batch{Iterations: 3}, in, nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestRunSummary(t *testing.T) {
	const iterations = 40
	s, err := Run(context.Background(), Batch{Iterations: iterations, Seed: 9, Workers: 3}, testInput(t), nil)
	require.NoError(t, err)

	assert.Equal(t, iterations, s.Iterations)
	assert.Len(t, s.Champions, iterations)
	assert.Len(t, s.Digest, 64)
	require.Len(t, s.Standings, 16, "players outside the draw are left out")

	titles, finals, share := 0, 0, 0.0
	for i, st := range s.Standings {
		titles += st.Titles
		finals += st.Reached[models.RoundFinal]
		share += st.TitleShare
		assert.Equal(t, iterations, st.Reached[models.Round16], "everyone plays the first round")
		assert.LessOrEqual(t, st.Rank, 16)
		if i > 0 {
			assert.GreaterOrEqual(t, s.Standings[i-1].Titles, st.Titles)
		}
	}
	assert.Equal(t, iterations, titles)
	assert.Equal(t, 2*iterations, finals)
	assert.InDelta(t, 100, share, 1e-9)
}

func TestRunIgnoresWorkerCount(t *testing.T) {
	in := testInput(t)
	one, err := Run(context.Background(), Batch{Iterations: 25, Seed: 77, Workers: 1}, in, nil)
	require.NoError(t, err)
	many, err := Run(context.Background(), Batch{Iterations: 25, Seed: 77, Workers: 8}, in, nil)
	require.NoError(t, err)

	assert.Equal(t, one.Champions, many.Champions)
	assert.Equal(t, one.Digest, many.Digest)
	assert.Equal(t, one.Standings, many.Standings)

	other, err := Run(context.Background(), Batch{Iterations: 25, Seed: 78, Workers: 1}, in, nil)
	require.NoError(t, err)
	assert.NotEqual(t, one.Champions, other.Champions)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Batch{Iterations: 5, Workers: 2}, testInput(t), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlay(t *testing.T) {
	c, err := Play(testInput(t), 1, nil)
	require.NoError(t, err)
	assert.True(t, c.Finished())
	assert.NotNil(t, c.Champion())
}

func TestDigest(t *testing.T) {
	assert.Equal(t, digest([]int{1, 2, 3}), digest([]int{1, 2, 3}))
	assert.NotEqual(t, digest([]int{1, 23}), digest([]int{12, 3}))
}
