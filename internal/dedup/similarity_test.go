package dedup

import (
	"math"
	"testing"
)

func TestSimilarityIdenticalDirection(t *testing.T) {
	t.Parallel()

	a := []float64{0.5, 0.25, 0.1}
	if got := Similarity(a, a); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected identical vectors to score 1.0, got %f", got)
	}
	scaled := []float64{1.0, 0.5, 0.2}
	if got := Similarity(a, scaled); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected scaled vector to score 1.0, got %f", got)
	}
}

func TestSimilarityOppositeDirection(t *testing.T) {
	t.Parallel()

	a := []float64{1, 0}
	b := []float64{-1, 0}
	if got := Similarity(a, b); math.Abs(got) > 1e-9 {
		t.Fatalf("expected opposite vectors to score 0.0, got %f", got)
	}
}

func TestSimilarityOrthogonalRescaledToHalf(t *testing.T) {
	t.Parallel()

	a := []float64{1, 0}
	b := []float64{0, 1}
	if got := Similarity(a, b); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected orthogonal vectors to score 0.5, got %f", got)
	}
}

func TestSimilarityZeroMagnitude(t *testing.T) {
	t.Parallel()

	if got := Similarity([]float64{0, 0}, []float64{1, 1}); got != 0.0 {
		t.Fatalf("expected zero-magnitude vector to score 0.0, got %f", got)
	}
	if got := Similarity([]float64{1, 1}, []float64{0, 0}); got != 0.0 {
		t.Fatalf("expected zero-magnitude vector to score 0.0, got %f", got)
	}
}

func TestSimilarityMismatchedLength(t *testing.T) {
	t.Parallel()

	if got := Similarity([]float64{1, 0}, []float64{1, 0, 0}); got != 0.0 {
		t.Fatalf("expected mismatched vectors to score 0.0, got %f", got)
	}
	if got := Similarity(nil, nil); got != 0.0 {
		t.Fatalf("expected empty vectors to score 0.0, got %f", got)
	}
}
