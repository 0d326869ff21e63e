package storage

import (
	"fmt"
	"math"
	"strings"
)

// Distance names a vector distance function. Lower values are closer.
type Distance string

const (
	// Cosine is 1 - cosine similarity, in [0, 2].
	Cosine Distance = "cosine"
	// L2 is the squared Euclidean distance.
	L2 Distance = "l2"
	// InnerProduct is 1 - dot product.
	InnerProduct Distance = "ip"
)

// ParseDistance converts a configuration value into a Distance.
func ParseDistance(s string) (Distance, error) {
	switch d := Distance(strings.ToLower(strings.TrimSpace(s))); d {
	case Cosine, L2, InnerProduct:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q (want cosine, l2 or ip)", ErrUnknownDistance, s)
	}
}

// Compute returns the distance between a and b, which must have equal length.
func (d Distance) Compute(a, b []float32) float32 {
	switch d {
	case L2:
		var sum float32
		for i := range a {
			diff := a[i] - b[i]
			sum += diff * diff
		}
		return sum
	case InnerProduct:
		return 1 - dotProduct(a, b)
	default:
		return cosineDistance(a, b)
	}
}

// Similarity converts a distance computed by d into a score where higher is
// closer. Cosine and ip give back the cosine similarity and the dot product;
// l2 maps onto (0, 1] as 1 / (1 + distance).
func (d Distance) Similarity(distance float32) float32 {
	if d == L2 {
		return 1 / (1 + distance)
	}
	return 1 - distance
}

// dotProduct calculates the dot product of two vectors.
func dotProduct(a, b []float32) float32 {
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

func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
