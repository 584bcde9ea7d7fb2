package draw

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tennis-sim/internal/models"
	"tennis-sim/internal/random"
)

var sizes = []int{8, 16, 32, 64, 128}

// rankedPool returns n ids, best first; the player ranked r has id 1000+r.
func rankedPool(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 1000 + i
	}
	return ids
}

func TestNewGeneratorValidation(t *testing.T) {
	for _, tc := range []struct {
		size int
		rate float64
		ok   bool
	}{
		{8, 0, true},
		{8, 0.5, true},
		{8, 0.25, true},
		{8, 0.125, false},
		{128, 1.0 / 64, true},
		{128, 1.0 / 128, false},
		{16, 0.3, false},
		{16, 0.75, false},
		{16, 1, false},
		{4, 0.5, false},
		{12, 0.25, false},
		{256, 0.5, false},
	} {
		t.Run(fmt.Sprintf("%d-%v", tc.size, tc.rate), func(t *testing.T) {
			g, err := NewGenerator(tc.size, tc.rate)
			if !tc.ok {
				assert.ErrorIs(t, err, models.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.size, g.Size())
			assert.Equal(t, tc.rate, g.SeedRate())
		})
	}
}

func TestSeedRates(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 0.25}, SeedRates(8))
	assert.Len(t, SeedRates(128), 7)
	for _, size := range sizes {
		for _, rate := range SeedRates(size) {
			_, err := NewGenerator(size, rate)
			assert.NoError(t, err, "size %d rate %v", size, rate)
		}
	}
}

func TestSeedTiers(t *testing.T) {
	for _, tc := range []struct {
		size  int
		rate  float64
		tiers []int
	}{
		{128, 0.25, []int{2, 2, 4, 8, 16}},
		{128, 0.5, []int{2, 2, 4, 8, 16, 32}},
		{32, 0.125, []int{2, 2}},
		{64, 0.125, []int{2, 2, 4}},
		{8, 0.25, []int{2}},
		{16, 0, nil},
	} {
		g, err := NewGenerator(tc.size, tc.rate)
		require.NoError(t, err)
		assert.Equal(t, tc.tiers, g.SeedTiers(), "size %d rate %v", tc.size, tc.rate)
		assert.Equal(t, int(tc.rate*float64(tc.size)), g.Seeds())
	}
}

func checkDraw(t *testing.T, size int, pool []int, pairs []Pairing) {
	t.Helper()
	require.Len(t, pairs, size/2)
	seen := make(map[int]int)
	for _, p := range pairs {
		seen[p.First]++
		if p.Second != nil {
			seen[*p.Second]++
		}
	}
	require.Len(t, seen, len(pool))
	for _, id := range pool {
		assert.Equal(t, 1, seen[id], "player %d", id)
	}
}

func TestGenerateSizeAndUniqueness(t *testing.T) {
	rng := random.New(1)
	for _, size := range sizes {
		for _, rate := range SeedRates(size) {
			g, err := NewGenerator(size, rate)
			require.NoError(t, err)
			for _, n := range []int{size, size - 1, size/2 + 1, size / 2} {
				pool := rankedPool(n)
				pairs, err := g.Generate(pool, rng)
				require.NoError(t, err)
				checkDraw(t, size, pool, pairs)
			}
		}
	}
}

// seedSection returns the section, out of 2^k equal sections of the draw,
// holding the pairing of the player with the given id.
func seedSection(t *testing.T, pairs []Pairing, id, k int) int {
	t.Helper()
	width := len(pairs) >> k
	for i, p := range pairs {
		if p.First == id {
			return i / width
		}
	}
	require.Failf(t, "seed not found", "id %d", id)
	return -1
}

func TestGenerateSeedSeparation(t *testing.T) {
	for _, size := range sizes {
		for _, rate := range SeedRates(size)[1:] {
			g, err := NewGenerator(size, rate)
			require.NoError(t, err)
			seeds := g.Seeds()
			for iter := range 20 {
				pool := rankedPool(size)
				pairs, err := g.Generate(pool, random.New(uint64(iter)))
				require.NoError(t, err)

				assert.Equal(t, pool[0], pairs[0].First)
				assert.Equal(t, pool[1], pairs[len(pairs)-1].First)

				for k := 1; 1<<k <= seeds; k++ {
					sections := make(map[int]bool)
					for r := range 1 << k {
						s := seedSection(t, pairs, pool[r], k)
						assert.False(t, sections[s], "size %d rate %v: seed %d shares section %d of %d", size, rate, r+1, s, 1<<k)
						sections[s] = true
					}
				}
			}
		}
	}
}

func TestGenerateByesGoToTopSeeds(t *testing.T) {
	g, err := NewGenerator(32, 0.125)
	require.NoError(t, err)
	pool := rankedPool(28)
	pairs, err := g.Generate(pool, random.New(3))
	require.NoError(t, err)
	checkDraw(t, 32, pool, pairs)

	byes := 0
	for _, p := range pairs {
		if p.IsBye() {
			byes++
			assert.Less(t, p.First, 1004, "bye for an unseeded player")
		}
	}
	assert.Equal(t, 4, byes)

	// More byes than seeds: the rest are spread among unseeded players.
	pool = rankedPool(20)
	pairs, err = g.Generate(pool, random.New(3))
	require.NoError(t, err)
	checkDraw(t, 32, pool, pairs)
	byes = 0
	for _, p := range pairs {
		if p.IsBye() {
			byes++
		}
	}
	assert.Equal(t, 12, byes)
}

func TestGenerateUnseeded(t *testing.T) {
	g, err := NewGenerator(16, 0)
	require.NoError(t, err)
	pool := rankedPool(8)
	pairs, err := g.Generate(pool, random.New(5))
	require.NoError(t, err)
	checkDraw(t, 16, pool, pairs)
	for _, p := range pairs {
		assert.True(t, p.IsBye())
	}
}

func TestGeneratePoolErrors(t *testing.T) {
	g, err := NewGenerator(8, 0.25)
	require.NoError(t, err)

	_, err = g.Generate(rankedPool(3), random.New(1))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = g.Generate(rankedPool(9), random.New(1))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
	_, err = g.Generate([]int{1, 2, 3, 4, 5, 6, 7, 1}, random.New(1))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestGenerateIsReproducible(t *testing.T) {
	g, err := NewGenerator(64, 0.125)
	require.NoError(t, err)
	a, err := g.Generate(rankedPool(60), random.New(11))
	require.NoError(t, err)
	b, err := g.Generate(rankedPool(60), random.New(11))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
