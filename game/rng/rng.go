// Package rng provides a deterministic, seed-addressed random stream.
//
// The contract is stronger than math/rand's: the same seed string must yield
// the same draw sequence on every platform and in every process, so that a
// quest outcome can be recomputed after the fact from its recorded seed.
// The generator is therefore hand-stepped (FNV-1a seed hash into a xorshift32
// state) rather than delegated to the standard library.
package rng

import (
	"fmt"
	"hash/fnv"
	"time"
)

// Rand is a reproducible uniform stream derived from a seed string.
type Rand struct {
	state uint32
}

// New creates a Rand from a seed. Identical seeds produce byte-identical
// draw sequences.
func New(seed string) *Rand {
	h := fnv.New32a()
	h.Write([]byte(seed))
	s := h.Sum32()
	if s == 0 {
		// xorshift must not start at zero; remap the one degenerate seed.
		s = 0x9e3779b9
	}
	return &Rand{state: s}
}

func (r *Rand) next32() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// Next returns the next draw in [0, 1).
func (r *Rand) Next() float64 {
	return float64(r.next32()) / (1 << 32)
}

// Int returns an integer in [min, max] inclusive.
func (r *Rand) Int(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + int(r.Next()*float64(max-min+1))
}

// Float returns a float in [min, max).
func (r *Rand) Float(min, max float64) float64 {
	return min + r.Next()*(max-min)
}

// Pick returns a uniformly chosen element of list, which must be non-empty.
func Pick[T any](r *Rand, list []T) T {
	return list[r.Int(0, len(list)-1)]
}

// Shuffle permutes list in place using Fisher-Yates over Int.
func Shuffle[T any](r *Rand, list []T) {
	for i := len(list) - 1; i > 0; i-- {
		j := r.Int(0, i)
		list[i], list[j] = list[j], list[i]
	}
}

// Seed strings are namespaced by concatenating the component name, entity ids
// and timestamps, so unrelated draws never share a stream.

// RunSeed names the stream for a quest run's random factor.
func RunSeed(agentID, questID string, startedAt time.Time) string {
	return fmt.Sprintf("run:%s:%s:%s", agentID, questID, startedAt.UTC().Format(time.RFC3339))
}

// DropSeed names the stream for one participant's item drop.
func DropSeed(runID, agentID string) string {
	return fmt.Sprintf("drop:%s:%s", runID, agentID)
}

// CycleSeed names the stream for one generated quest in a pool cycle.
func CycleSeed(cycleStart int64, locationID string, index int) string {
	return fmt.Sprintf("cycle:%d:%s:%d", cycleStart, locationID, index)
}
