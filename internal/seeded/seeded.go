// Package seeded derives deterministic pseudo-random selections from room
// identifiers. Every client computes the same seed, the same shuffle and the
// same pick without any coordination channel, so the exact bit behavior of
// the hash and the generator is part of the protocol: do not change it.
package seeded

import "strconv"

// Seed folds "{roomID}_{stageIndex}" into a 32-bit value. The accumulator is
// a signed 32-bit integer with wraparound on overflow, matching
// hash = hash*31 + byte on other platforms; the result is its absolute value.
func Seed(roomID string, stageIndex int) uint32 {
	key := roomID + "_" + strconv.Itoa(stageIndex)
	var h int32
	for _, b := range []byte(key) {
		h = h*31 + int32(b)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return uint32(v)
}

// RNG is a Mulberry32 generator. It is not cryptographic; it exists to give
// independent clients an identical stream from an identical seed.
type RNG struct {
	state uint32
}

func New(seed uint32) *RNG {
	return &RNG{state: seed}
}

// Float64 returns the next value in [0, 1). All arithmetic is 32-bit with
// wraparound, including both multiply-mix rounds.
func (r *RNG) Float64() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Shuffle returns a permutation of items. It walks a Fisher–Yates pass from
// the last index down to 1, swapping with floor(rng*(i+1)); the iteration
// direction and swap formula define the shared permutation, so both are
// fixed. The input slice is not modified.
func Shuffle[T any](items []T, seed uint32) []T {
	out := make([]T, len(items))
	copy(out, items)
	rng := New(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := int(rng.Float64() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// PickN returns the first min(n, len(pool)) elements of the shuffled pool.
func PickN[T any](pool []T, n int, seed uint32) []T {
	shuffled := Shuffle(pool, seed)
	if n < 0 {
		n = 0
	}
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
