// Package draw builds the first round of a seeded single-elimination
// bracket from a ranked pool of players.
//
// Seeds are split into tiers (2, 2, 4, 8, ...). The pairings are ordered so
// that, laid left to right into the bracket leaves, seeds 1 and 2 can only
// meet in the final, seeds 1 to 4 not before the semifinals, and so on.
package draw

import (
	"fmt"
	"math"
	"slices"

	"tennis-sim/internal/models"
	"tennis-sim/internal/random"
)

const (
	MinSize = 8
	MaxSize = 128
)

// Pairing is one first-round match. A nil Second is a bye for First.
type Pairing struct {
	First  int  `json:"first"`
	Second *int `json:"second,omitempty"`
}

func (p Pairing) IsBye() bool {
	return p.Second == nil
}

type Generator struct {
	size     int
	seedRate float64
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NewGenerator validates the bracket size (a power of two between 8 and 128)
// and the seed rate (0, or 1/2^k with 2^k below size and rate at most 1/2).
func NewGenerator(size int, seedRate float64) (*Generator, error) {
	if size < MinSize || size > MaxSize || !isPowerOfTwo(size) {
		return nil, fmt.Errorf("%w: draw size %d should be a power of two between %d and %d",
			models.ErrInvalidArgument, size, MinSize, MaxSize)
	}
	if seedRate != 0 {
		inverse := 1 / seedRate
		pw := int(math.Floor(inverse))
		if float64(pw) != inverse || !isPowerOfTwo(pw) || seedRate > 0.5 || pw >= size {
			return nil, fmt.Errorf("%w: seed rate %v should be 0 or 1/2^k, at most 1/2 and above 1/%d",
				models.ErrInvalidArgument, seedRate, size)
		}
	}
	return &Generator{size: size, seedRate: seedRate}, nil
}

// SeedRates lists the seed rates accepted for a bracket of the given size,
// starting with 0.
func SeedRates(size int) []float64 {
	rates := []float64{0}
	for pw := 2; pw < size; pw *= 2 {
		rates = append(rates, 1/float64(pw))
	}
	return rates
}

func (g *Generator) Size() int {
	return g.size
}

func (g *Generator) SeedRate() float64 {
	return g.seedRate
}

// SeedTiers returns how many seeds each tier holds, best tier first. Tier
// counts come from halving the bracket while it still holds more than one
// seed; together they add up to seedRate × size.
func (g *Generator) SeedTiers() []int {
	var tiers []int
	for t := g.size; t >= 2 && g.seedRate*float64(t) > 1; t /= 2 {
		c := int(g.seedRate * float64(t))
		if c == 2 {
			tiers = append(tiers, 2)
		} else {
			tiers = append(tiers, c/2)
		}
	}
	slices.Reverse(tiers)
	return tiers
}

// Seeds is the total number of seeded players.
func (g *Generator) Seeds() int {
	n := 0
	for _, c := range g.SeedTiers() {
		n += c
	}
	return n
}

// slotPair pairs two bracket slots. Slot i holds the i-th ranked player;
// slots past the end of the pool are byes and only ever appear second.
type slotPair struct {
	first, second int
}

func (g *Generator) checkPool(rankedIDs []int) error {
	n := len(rankedIDs)
	if n > g.size || n < g.size/2 {
		return fmt.Errorf("%w: %d players for a draw of %d, expected between %d and %d",
			models.ErrInvalidArgument, n, g.size, g.size/2, g.size)
	}
	seen := make(map[int]struct{}, n)
	for _, id := range rankedIDs {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: player %d appears twice", models.ErrInvalidArgument, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// Generate returns size/2 pairings in bracket order. rankedIDs is ordered by
// ranking, best first; when it is shorter than the bracket the missing slots
// become byes, handed to the top seeds first.
func (g *Generator) Generate(rankedIDs []int, rng random.Source) ([]Pairing, error) {
	if err := g.checkPool(rankedIDs); err != nil {
		return nil, err
	}
	n := len(rankedIDs)
	tiers := g.SeedTiers()
	seeds := g.Seeds()

	var present, absent []int
	for slot := seeds; slot < g.size; slot++ {
		if slot < n {
			present = append(present, slot)
		} else {
			absent = append(absent, slot)
		}
	}
	hasByes := len(absent) > 0

	groups := make([][]slotPair, len(tiers))
	next := 0
	for gi, count := range tiers {
		group := make([]slotPair, count)
		for k := range group {
			var opponent int
			if len(absent) > 0 {
				opponent, absent = absent[0], absent[1:]
			} else {
				j := rng.IntN(len(present))
				opponent = present[j]
				present = slices.Delete(present, j, j+1)
			}
			group[k] = slotPair{first: next, second: opponent}
			next++
		}
		// Seeds 1 and 2 stay in ranking order.
		if gi > 0 {
			rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		}
		groups[gi] = group
	}

	rest := pairUnseeded(present, absent, hasByes, rng)
	ordered := fold(interleave(groups, rest))

	out := make([]Pairing, len(ordered))
	for i, sp := range ordered {
		out[i] = Pairing{First: rankedIDs[sp.first]}
		if sp.second < n {
			id := rankedIDs[sp.second]
			out[i].Second = &id
		}
	}
	return out, nil
}

// pairUnseeded pairs the leftover slots at random. Every bye is matched with
// a present player.
func pairUnseeded(present, absent []int, hasByes bool, rng random.Source) []slotPair {
	rng.Shuffle(len(present), func(i, j int) { present[i], present[j] = present[j], present[i] })

	pairs := make([]slotPair, 0, (len(present)+len(absent))/2)
	for _, slot := range absent {
		pairs = append(pairs, slotPair{first: present[0], second: slot})
		present = present[1:]
	}
	for i := 1; i < len(present); i += 2 {
		pairs = append(pairs, slotPair{first: present[i-1], second: present[i]})
	}
	if hasByes {
		rng.Shuffle(len(pairs), func(i, j int) { pairs[i], pairs[j] = pairs[j], pairs[i] })
	}
	return pairs
}

// interleave emits the seeded pairings in bracket order, each followed by an
// equal share of unseeded pairings. Seeded position i draws from the tier
// given by the largest power of two 2^k (k < number of tiers) dividing i:
// position 0 takes the top tier, odd positions the last one.
func interleave(groups [][]slotPair, unseeded []slotPair) []slotPair {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	if total == 0 {
		return unseeded
	}
	between := len(unseeded) / total

	out := make([]slotPair, 0, total+len(unseeded))
	for i := range total {
		stack := 0
		for k := len(groups) - 1; k >= 1; k-- {
			if i%(1<<k) == 0 {
				stack = k
				break
			}
		}
		gi := len(groups) - 1 - stack
		out = append(out, groups[gi][0])
		groups[gi] = groups[gi][1:]
		out = append(out, unseeded[i*between:(i+1)*between]...)
	}
	return out
}

// fold reverses the second half of the sequence.
func fold(pairs []slotPair) []slotPair {
	half := len(pairs) / 2
	out := make([]slotPair, 0, len(pairs))
	out = append(out, pairs[:half]...)
	for i := len(pairs) - 1; i >= half; i-- {
		out = append(out, pairs[i])
	}
	return out
}
