package match

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tennis-sim/internal/models"
	"tennis-sim/internal/random"
	"tennis-sim/internal/scoring"
)

// fixedSource always returns the same values.
type fixedSource struct {
	f float64
	n int
}

func (s fixedSource) Float64() float64 { return s.f }

func (s fixedSource) IntN(int) int { return s.n }

func (s fixedSource) Shuffle(int, func(i, j int)) {}

var (
	nadal   = &models.Player{ID: 1, Name: "Nadal, Rafael", Rank: 1}
	federer = &models.Player{ID: 2, Name: "Federer, Roger", Rank: 2}
)

func testConfig(mode scoring.Mode) Config {
	return Config{
		BestOf:       models.BestOfThree,
		FifthSetRule: models.FifthSetNoTieBreak,
		Surface:      models.SurfaceClay,
		Level:        models.LevelMasters1000,
		Round:        models.RoundSemi,
		Date:         time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		Mode:         mode,
	}
}

func TestFlipNeverCertain(t *testing.T) {
	assert.False(t, flip(fixedSource{f: 0.995}, 1.0), "a perfect rate still loses above the upper bound")
	assert.True(t, flip(fixedSource{f: 0.985}, 1.0))
	assert.True(t, flip(fixedSource{f: 0.005}, 0.0), "a zero rate still wins below the lower bound")
	assert.False(t, flip(fixedSource{f: 0.015}, 0.0))
	assert.True(t, flip(fixedSource{f: 0.4}, 0.5))
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, federer, testConfig(scoring.ModePoint), random.New(1))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = New(nadal, &models.Player{ID: 1}, testConfig(scoring.ModePoint), random.New(1))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	cfg := testConfig(scoring.ModePoint)
	cfg.BestOf = 2
	_, err = New(nadal, federer, cfg, random.New(1))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestBye(t *testing.T) {
	m, err := New(nadal, nil, testConfig(scoring.ModePoint), nil)
	require.NoError(t, err)
	assert.True(t, m.IsBye())
	assert.True(t, m.Finished())
	assert.Nil(t, m.Scoreboard())
	assert.Same(t, nadal, m.Winner())
	require.NoError(t, m.RunToEnd())
	assert.Equal(t, "bye", m.Score())
}

func TestRunToEndPointMode(t *testing.T) {
	m, err := New(nadal, federer, testConfig(scoring.ModePoint), random.New(2024))
	require.NoError(t, err)
	assert.Nil(t, m.Winner())
	assert.Equal(t, [2]float64{0.6, 0.6}, m.Probabilities().Hold)

	require.NoError(t, m.RunToEnd())
	assert.True(t, m.Finished())
	winner := m.Winner()
	require.NotNil(t, winner)
	assert.Contains(t, []int{1, 2}, winner.ID)
	assert.NotContains(t, m.Score(), "|")
	assert.True(t, strings.HasPrefix(m.String(), "Nadal, Rafael - Federer, Roger\nclay - masters_1000 - SF\n"))

	// Running again is a no-op.
	require.NoError(t, m.RunToEnd())
	assert.Same(t, winner, m.Winner())
}

func TestRunToEndGameMode(t *testing.T) {
	// Every flip succeeds: servers hold, side 0 takes the tie-breaks.
	m, err := New(nadal, federer, testConfig(scoring.ModeGame), fixedSource{f: 0, n: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Scoreboard().Server())

	require.NoError(t, m.RunToEnd())
	assert.Equal(t, "7/6[0] 7/6[0]", m.Score())
	assert.Same(t, nadal, m.Winner())
}

func TestRunToEndIsReproducible(t *testing.T) {
	play := func(mode scoring.Mode) string {
		m, err := New(nadal, federer, testConfig(mode), random.New(99))
		require.NoError(t, err)
		require.NoError(t, m.RunToEnd())
		return m.Winner().Name + " " + m.Score()
	}
	assert.Equal(t, play(scoring.ModePoint), play(scoring.ModePoint))
	assert.Equal(t, play(scoring.ModeGame), play(scoring.ModeGame))
}
