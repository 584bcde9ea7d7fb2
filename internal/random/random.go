// Package random provides the injectable source of randomness used by the
// draw, the competition and the match simulator.
package random

import "math/rand/v2"

// Source is the subset of *rand.Rand the simulation consumes.
type Source interface {
	Float64() float64
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// New returns a reproducible source seeded with seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
