// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package vector provides the aggregation and normalization math for
// combining per-chunk embeddings into one representative vector per snippet.
package vector

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoVectors indicates aggregation was invoked with no input vectors.
	// A snippet must have at least one chunk before aggregation.
	ErrNoVectors = errors.New("no vectors to aggregate")

	// ErrDimensionMismatch indicates the input vectors do not share one dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Mean returns the element-wise arithmetic mean of the given vectors.
// All vectors must share the dimension of the first; a single vector is
// returned unchanged (as a copy). Mean is deterministic and order-independent.
func Mean(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, ErrNoVectors
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	result := make([]float32, dim)
	for _, v := range vectors {
		for i, val := range v {
			result[i] += val
		}
	}
	n := float32(len(vectors))
	for i := range result {
		result[i] /= n
	}
	return result, nil
}

// Normalize normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	// Can't normalize zero vector
	if magnitude == 0 {
		result := make([]float32, len(v))
		return result
	}

	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// DotProduct calculates the dot product of two vectors.
// For unit-normalized vectors this equals their cosine similarity.
func DotProduct(a, b []float32) float32 {
	var sum float32
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
