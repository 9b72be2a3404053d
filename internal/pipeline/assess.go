package pipeline

import (
	"fmt"
	"math"
	"sort"
)

// weightTolerance bounds the allowed drift when validating that a weight
// table sums to 1.0. Violations are configuration errors caught at startup,
// never per-request failures.
const weightTolerance = 1e-6

// Composite computes the weighted sum of dimension scores. It assumes the
// weight table was validated at startup against the stage's dimension set.
func Composite(scores, weights map[string]float64) float64 {
	var sum float64
	for dim, weight := range weights {
		sum += scores[dim] * weight
	}
	return sum
}

// ComputeBand resolves a composite score against a stage's thresholds:
// reject below floor, pass at or above target, refine in between. Boundary
// values resolve upward: composite == floor is refine, composite == target
// is pass.
func ComputeBand(composite, floor, target float64) Band {
	switch {
	case composite < floor:
		return BandReject
	case composite >= target:
		return BandPass
	default:
		return BandRefine
	}
}

// ValidateWeights checks that the weight table covers exactly the given
// dimensions and sums to 1.0 within tolerance.
func ValidateWeights(weights map[string]float64, dimensions []string) error {
	if len(weights) != len(dimensions) {
		return fmt.Errorf("%w: have %d weights for %d dimensions", ErrInvalidWeights, len(weights), len(dimensions))
	}

	var sum float64
	for _, dim := range dimensions {
		w, ok := weights[dim]
		if !ok {
			return fmt.Errorf("%w: missing weight for dimension %q", ErrInvalidWeights, dim)
		}
		if w < 0 {
			return fmt.Errorf("%w: negative weight for dimension %q", ErrInvalidWeights, dim)
		}
		sum += w
	}

	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v", ErrInvalidWeights, sum)
	}
	return nil
}

// EqualWeights distributes weight evenly across the given dimensions,
// assigning any remainder from division to the last dimension so the table
// sums to exactly 1.0.
func EqualWeights(dimensions []string) map[string]float64 {
	weights := make(map[string]float64, len(dimensions))
	if len(dimensions) == 0 {
		return weights
	}

	share := 1.0 / float64(len(dimensions))
	sorted := make([]string, len(dimensions))
	copy(sorted, dimensions)
	sort.Strings(sorted)

	var assigned float64
	for i, dim := range sorted {
		if i == len(sorted)-1 {
			weights[dim] = 1.0 - assigned
			break
		}
		weights[dim] = share
		assigned += share
	}
	return weights
}

// assess normalizes raw model scores onto the stage's dimension set, clamping
// into [0,1] and defaulting missing dimensions to zero, then derives the
// composite and band.
func assess(raw map[string]float64, dimensions []string, weights map[string]float64, gate GateConfig, feedback string) QualityAssessment {
	scores := make(map[string]float64, len(dimensions))
	for _, dim := range dimensions {
		scores[dim] = clamp01(raw[dim])
	}

	composite := Composite(scores, weights)
	return QualityAssessment{
		Dimensions: scores,
		Weights:    weights,
		Composite:  composite,
		Band:       ComputeBand(composite, gate.Floor, gate.Target),
		Feedback:   feedback,
	}
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
