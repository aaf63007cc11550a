package herm

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GrazingSummary describes a batch of grazing angles, in degrees.
type GrazingSummary struct {
	Count       int
	Approximate int
	Mean        float64
	StdDev      float64
	Min, Max    float64
	Median      float64
}

// Summarize returns the summary of the grazing angles.
func Summarize(gs []Grazing) GrazingSummary {
	s := GrazingSummary{Count: len(gs)}
	if len(gs) == 0 {
		return s
	}
	angles := make([]float64, len(gs))
	for i, g := range gs {
		angles[i] = g.Angle
		if g.Approximate {
			s.Approximate++
		}
	}
	s.Mean, s.StdDev = stat.MeanStdDev(angles, nil)
	if len(gs) == 1 {
		s.StdDev = 0
	}
	s.Min, s.Max = floats.Min(angles), floats.Max(angles)
	sorted := append([]float64(nil), angles...)
	floats.Argsort(sorted, make([]int, len(sorted)))
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return s
}

func (s GrazingSummary) String() string {
	return fmt.Sprintf("n=%d mean=%.2f° σ=%.2f° median=%.2f° range=[%.2f°, %.2f°] approximate=%d",
		s.Count, s.Mean, s.StdDev, s.Median, s.Min, s.Max, s.Approximate)
}
