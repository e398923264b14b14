// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trajectory tracks the accumulated semantic direction of a research
// session and derives the user preference vector from outline feedback.
package trajectory

import (
	"sync"

	"github.com/pdiddy/deep-research/internal/vecmath"
)

// Accumulator maintains a running weighted average of embedding vectors.
// Only embeddings of successful, high-relevance query/result pairs should be
// folded in; failed or irrelevant results would pollute the trajectory.
type Accumulator struct {
	mu    sync.Mutex
	sum   []float64
	count float64
}

// NewAccumulator returns an accumulator with no observations.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Update folds vec into the running average with the given weight:
//
//	avg = (avg*count + vec*weight) / (count + weight)
//
// Non-positive weights and empty vectors are ignored.
func (a *Accumulator) Update(vec []float64, weight float64) {
	if weight <= 0 || len(vec) == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sum == nil {
		a.sum = make([]float64, len(vec))
	}
	for i := range a.sum {
		if i < len(vec) {
			a.sum[i] += vec[i] * weight
		}
	}
	a.count += weight
}

// Current returns the normalized running average, or nil before any update.
// Callers must treat a nil/zero vector as "no trajectory yet" and skip the
// trajectory term in ranking.
func (a *Accumulator) Current() []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.count == 0 {
		return nil
	}
	avg := make([]float64, len(a.sum))
	for i, x := range a.sum {
		avg[i] = x / a.count
	}
	return vecmath.Normalize(avg)
}

// Count returns the total weight folded in so far.
func (a *Accumulator) Count() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// PreferenceVector computes a unit-length direction from outline feedback:
// the mean of kept-topic embeddings minus the mean of removed-topic
// embeddings. Either set empty disables the feature and yields nil. The
// result replaces any prior preference vector; it is never accumulated.
func PreferenceVector(kept, removed [][]float64) []float64 {
	if len(kept) == 0 || len(removed) == 0 {
		return nil
	}
	km := vecmath.Mean(kept)
	rm := vecmath.Mean(removed)
	diff := make([]float64, len(km))
	for i := range diff {
		v := km[i]
		if i < len(rm) {
			v -= rm[i]
		}
		diff[i] = v
	}
	if vecmath.IsZero(diff) {
		return nil
	}
	return vecmath.Normalize(diff)
}
