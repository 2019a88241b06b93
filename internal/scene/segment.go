// Package scene partitions a timeline at detected scene changes.
package scene

import (
	"fmt"
	"math"
	"sort"

	"autocut/internal/types"
	apperrors "autocut/pkg/errors"
)

// Segment splits [0, duration] at changePoints into contiguous segments.
//
// An interval shorter than minDuration absorbs the following boundaries until
// it is long enough or the boundaries run out. Every segment but the last is
// therefore at least minDuration long; the last one keeps whatever is left.
// Points equal to 0 or duration are not discontinuities and are ignored.
func Segment(changePoints []float64, duration, minDuration float64) ([]types.TimeRange, error) {
	if err := validate(changePoints, duration, minDuration); err != nil {
		return nil, err
	}

	boundaries := make([]float64, 0, len(changePoints)+2)
	boundaries = append(boundaries, 0)
	for _, p := range changePoints {
		if p > 0 && p < duration {
			boundaries = append(boundaries, p)
		}
	}
	boundaries = append(boundaries, duration)

	n := len(boundaries)
	starts := make([]float64, 0, n)
	for i := 0; i < n-1; {
		start := boundaries[i]
		if boundaries[i+1]-start < minDuration && i+2 < n {
			merged := boundaries[i+2] - start
			for merged < minDuration && i+3 < n {
				i++
				merged = boundaries[i+2] - start
			}
			starts = append(starts, start)
			i += 2
			continue
		}
		starts = append(starts, start)
		i++
	}
	starts = append(starts, duration)

	segments := make([]types.TimeRange, 0, len(starts)-1)
	for i := 0; i+1 < len(starts); i++ {
		segments = append(segments, types.TimeRange{Start: starts[i], End: starts[i+1]})
	}
	return segments, nil
}

func validate(changePoints []float64, duration, minDuration float64) error {
	if !finite(duration) || duration <= 0 {
		return apperrors.InvalidInput("duration must be positive", fmt.Sprintf("duration=%v", duration))
	}
	if !finite(minDuration) || minDuration < 0 {
		return apperrors.InvalidInput("min duration must not be negative", fmt.Sprintf("min=%v", minDuration))
	}
	for i, p := range changePoints {
		if !finite(p) || p < 0 || p > duration {
			return apperrors.InvalidInput("change point outside source",
				fmt.Sprintf("point[%d]=%v duration=%v", i, p, duration))
		}
		if i > 0 && p <= changePoints[i-1] {
			return apperrors.InvalidInput("change points not strictly increasing",
				fmt.Sprintf("point[%d]=%v after %v", i, p, changePoints[i-1]))
		}
	}
	return nil
}

// Sanitize orders raw detector output and drops duplicates, non-finite values
// and points at or before 0, so it can be fed to Segment.
func Sanitize(points []float64) []float64 {
	out := make([]float64, 0, len(points))
	for _, p := range points {
		if finite(p) && p > 0 {
			out = append(out, p)
		}
	}
	sort.Float64s(out)

	deduped := out[:0]
	for _, p := range out {
		if len(deduped) == 0 || p != deduped[len(deduped)-1] {
			deduped = append(deduped, p)
		}
	}
	return deduped
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
