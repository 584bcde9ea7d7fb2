package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tennis-sim/internal/models"
)

type setRules struct {
	fifth bool
	rule  models.FifthSetRule
}

var regularSet = setRules{rule: models.FifthSetNoTieBreak}

func winGame(t *testing.T, s *Set, r setRules, side int) PointResult {
	t.Helper()
	var res PointResult
	for range 4 {
		var err error
		res, err = s.AddPoint(side, r.fifth, r.rule)
		require.NoError(t, err)
	}
	require.True(t, res.NewGame)
	return res
}

// alternateGames plays n games won alternately by side 0 and side 1.
func alternateGames(t *testing.T, s *Set, r setRules, n int) {
	t.Helper()
	for i := range n {
		res := winGame(t, s, r, i%2)
		require.False(t, res.SetOver, "game %d closed the set", i+1)
	}
}

func TestSetStraightGames(t *testing.T) {
	s := NewSet()
	for i := range 5 {
		res := winGame(t, s, regularSet, 0)
		assert.True(t, res.SwitchServer)
		assert.False(t, res.SetOver, "game %d", i+1)
	}
	res := winGame(t, s, regularSet, 0)
	assert.True(t, res.SetOver)
	assert.True(t, s.Finished())
	assert.Equal(t, "6/0", s.String())

	_, err := s.AddPoint(1, false, models.FifthSetNoTieBreak)
	assert.ErrorIs(t, err, ErrFinished)
}

func TestSetSevenFive(t *testing.T) {
	s := NewSet()
	alternateGames(t, s, regularSet, 10)
	winGame(t, s, regularSet, 0)
	assert.False(t, s.Finished())
	res := winGame(t, s, regularSet, 0)
	assert.True(t, res.SetOver)
	assert.Equal(t, "7/5", s.String())
	assert.False(t, s.IsTieBreak())
}

func TestSetTieBreakAtSixAll(t *testing.T) {
	s := NewSet()
	alternateGames(t, s, regularSet, 12)
	assert.True(t, s.IsTieBreak())
	assert.Equal(t, 6, s.Games(0))
	assert.Equal(t, 6, s.Games(1))

	res, err := s.AddPoint(1, false, regularSet.rule)
	require.NoError(t, err)
	assert.True(t, res.SwitchServer, "odd total switches server")
	assert.False(t, res.NewGame)

	res, err = s.AddPoint(1, false, regularSet.rule)
	require.NoError(t, err)
	assert.False(t, res.SwitchServer)

	for range 5 {
		res, err = s.AddPoint(1, false, regularSet.rule)
		require.NoError(t, err)
	}
	assert.True(t, res.SetOver)
	winner, ok := s.Winner()
	require.True(t, ok)
	assert.Equal(t, 1, winner)
	assert.Equal(t, "6/7[0]", s.String())
}

func TestSetTieBreakNeedsTwoPointMargin(t *testing.T) {
	s := NewSet()
	alternateGames(t, s, regularSet, 12)
	for i := range 12 {
		res, err := s.AddPoint(i%2, false, regularSet.rule)
		require.NoError(t, err)
		require.False(t, res.NewGame)
	}
	assert.Equal(t, 6, s.TieBreakPoints(0))

	res, err := s.AddPoint(0, false, regularSet.rule)
	require.NoError(t, err)
	assert.False(t, res.SetOver, "7-6 is not enough")
	res, err = s.AddPoint(0, false, regularSet.rule)
	require.NoError(t, err)
	assert.True(t, res.SetOver)
	assert.Equal(t, "7/6[6]", s.String())
}

func TestSetFifthSetRules(t *testing.T) {
	t.Run("no tie-break", func(t *testing.T) {
		r := setRules{fifth: true, rule: models.FifthSetNoTieBreak}
		s := NewSet()
		alternateGames(t, s, r, 12)
		assert.False(t, s.IsTieBreak())
		winGame(t, s, r, 0)
		assert.False(t, s.Finished())
		res := winGame(t, s, r, 0)
		assert.True(t, res.SetOver)
		assert.Equal(t, "8/6", s.String())
	})

	t.Run("tie-break at 6-6", func(t *testing.T) {
		r := setRules{fifth: true, rule: models.FifthSetAt6}
		s := NewSet()
		alternateGames(t, s, r, 12)
		assert.True(t, s.IsTieBreak())
	})

	t.Run("tie-break at 12-12", func(t *testing.T) {
		r := setRules{fifth: true, rule: models.FifthSetAt12}
		s := NewSet()
		alternateGames(t, s, r, 12)
		assert.False(t, s.IsTieBreak())
		alternateGames(t, s, r, 12)
		assert.True(t, s.IsTieBreak())
		assert.Equal(t, 12, s.Games(0))
		assert.Equal(t, 12, s.Games(1))
	})

	t.Run("12-12 rule outside the fifth set", func(t *testing.T) {
		r := setRules{rule: models.FifthSetAt12}
		s := NewSet()
		alternateGames(t, s, r, 12)
		assert.True(t, s.IsTieBreak())
	})
}

func TestSetLead(t *testing.T) {
	s := NewSet()
	assert.Equal(t, -1, s.lead())
	winGame(t, s, regularSet, 1)
	assert.Equal(t, 1, s.lead())
	_, err := s.AddPoint(0, false, regularSet.rule)
	require.NoError(t, err)
	assert.Equal(t, 1, s.lead(), "games outrank points")
}
