package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tennis-sim/internal/models"
)

func addPoints(t *testing.T, g *Game, sides ...int) bool {
	t.Helper()
	var over bool
	for _, side := range sides {
		var err error
		over, err = g.AddPoint(side)
		require.NoError(t, err)
	}
	return over
}

func TestGameFourStraightPoints(t *testing.T) {
	g := NewGame()
	assert.False(t, addPoints(t, g, 0, 0, 0))
	assert.Equal(t, 40, g.Points(0))
	assert.Equal(t, 0, g.Points(1))

	assert.True(t, addPoints(t, g, 0))
	winner, ok := g.Winner()
	assert.True(t, ok)
	assert.Equal(t, 0, winner)
}

func TestGameDeuceAndAdvantage(t *testing.T) {
	g := NewGame()
	addPoints(t, g, 0, 0, 0, 1, 1, 1)
	assert.True(t, g.IsDeuce())

	addPoints(t, g, 0)
	adv, ok := g.Advantage()
	require.True(t, ok)
	assert.Equal(t, 0, adv)
	assert.False(t, g.IsDeuce())
	assert.Equal(t, "40 (A) - 40", g.String())

	// Cancelled advantage goes back to deuce.
	assert.False(t, addPoints(t, g, 1))
	_, ok = g.Advantage()
	assert.False(t, ok)
	assert.True(t, g.IsDeuce())
	assert.Equal(t, "40 - 40", g.String())

	assert.False(t, addPoints(t, g, 1))
	assert.True(t, addPoints(t, g, 1))
	winner, _ := g.Winner()
	assert.Equal(t, 1, winner)
}

func TestGameErrors(t *testing.T) {
	g := NewGame()
	_, err := g.AddPoint(2)
	assert.ErrorIs(t, err, ErrInvalidSide)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	addPoints(t, g, 1, 1, 1, 1)
	_, err = g.AddPoint(0)
	assert.ErrorIs(t, err, ErrFinished)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestGameLead(t *testing.T) {
	g := NewGame()
	assert.Equal(t, -1, g.lead())
	addPoints(t, g, 1)
	assert.Equal(t, 1, g.lead())
	assert.Equal(t, "0 - 15", g.String())
}
