// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vecmath provides the small set of dense-vector operations the
// research engine needs: cosine similarity, normalization, means, and
// principal-axis extraction for semantic compression.
package vecmath

import "math"

// IsZero reports whether v is nil, empty, or all zeros. Callers treat a zero
// vector as "no signal" (no trajectory yet, no preference given).
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Dot returns the dot product of a and b. Mismatched lengths are truncated
// to the shorter vector.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the Euclidean length of v.
func Norm(v []float64) float64 {
	return math.Sqrt(Dot(v, v))
}

// Normalize returns a unit-length copy of v, or a zero vector of the same
// length when v has no magnitude.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	n := Norm(v)
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 when either has no
// magnitude.
func Cosine(a, b []float64) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

// Mean returns the element-wise mean of the given vectors, or nil when the
// input is empty.
func Mean(vecs [][]float64) []float64 {
	if len(vecs) == 0 {
		return nil
	}
	out := make([]float64, len(vecs[0]))
	for _, v := range vecs {
		for i := range out {
			if i < len(v) {
				out[i] += v[i]
			}
		}
	}
	for i := range out {
		out[i] /= float64(len(vecs))
	}
	return out
}

const (
	powerIterations = 50
	powerTolerance  = 1e-9
)

// PrincipalAxes computes the top-k principal directions of the row vectors in
// m (mean-centered internally) together with the fraction of total variance
// each axis explains. It uses power iteration with deflation on the
// covariance operator, which avoids materializing the d×d covariance matrix
// for high-dimensional embeddings.
//
// Returns fewer than k axes when the data has lower rank. An empty input
// returns nil, nil.
func PrincipalAxes(m [][]float64, k int) (axes [][]float64, explained []float64) {
	if len(m) == 0 || k <= 0 {
		return nil, nil
	}
	dim := len(m[0])

	// Center the rows.
	mean := Mean(m)
	centered := make([][]float64, len(m))
	for i, row := range m {
		c := make([]float64, dim)
		for j := 0; j < dim && j < len(row); j++ {
			c[j] = row[j] - mean[j]
		}
		centered[i] = c
	}

	var total float64
	for _, row := range centered {
		total += Dot(row, row)
	}
	if total == 0 {
		return nil, nil
	}
	total /= float64(len(centered))

	for axis := 0; axis < k && axis < len(centered); axis++ {
		v := powerIterate(centered, dim)
		if v == nil {
			break
		}

		// Eigenvalue = variance captured along v.
		var lambda float64
		for _, row := range centered {
			p := Dot(row, v)
			lambda += p * p
		}
		lambda /= float64(len(centered))
		if lambda <= powerTolerance {
			break
		}

		axes = append(axes, v)
		explained = append(explained, lambda/total)

		// Deflate: remove the captured component from every row.
		for _, row := range centered {
			p := Dot(row, v)
			for j := range row {
				row[j] -= p * v[j]
			}
		}
	}
	return axes, explained
}

// powerIterate finds the dominant direction of the centered rows. It starts
// from the longest row rather than a random vector so results are
// deterministic.
func powerIterate(rows [][]float64, dim int) []float64 {
	var v []float64
	best := 0.0
	for _, row := range rows {
		if n := Norm(row); n > best {
			best = n
			v = row
		}
	}
	if v == nil || best == 0 {
		return nil
	}
	v = Normalize(v)

	for iter := 0; iter < powerIterations; iter++ {
		// next = C v, with C applied as (1/n) Σ row (row·v).
		next := make([]float64, dim)
		for _, row := range rows {
			p := Dot(row, v)
			for j := range next {
				next[j] += p * row[j]
			}
		}
		next = Normalize(next)
		if IsZero(next) {
			return nil
		}

		// Converged when the direction stops moving.
		if math.Abs(math.Abs(Dot(next, v))-1) < powerTolerance {
			return next
		}
		v = next
	}
	return v
}
