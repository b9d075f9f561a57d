package main

import (
	"math"

	"go.uber.org/zap"

	"github.com/kailas-cloud/overlaps"
)

type summary struct {
	Records     int
	WithDirs    int
	MeanOverlap float64
	MinOverlap  float64
	MaxOverlap  float64
}

// summarize computes the figures logged after a load. Overlap stats are zero
// for empty input.
func summarize(cols *overlaps.Columns) summary {
	s := summary{Records: cols.Len()}
	if s.Records == 0 {
		return s
	}

	s.MinOverlap, s.MaxOverlap = math.Inf(1), math.Inf(-1)
	var sum float64
	for i, v := range cols.Overlap {
		sum += v
		s.MinOverlap = math.Min(s.MinOverlap, v)
		s.MaxOverlap = math.Max(s.MaxOverlap, v)
		if cols.DirA[i] != "" || cols.DirB[i] != "" {
			s.WithDirs++
		}
	}
	s.MeanOverlap = sum / float64(s.Records)
	return s
}

func (s summary) fields() []zap.Field {
	return []zap.Field{
		zap.Int("records", s.Records),
		zap.Int("with_dirs", s.WithDirs),
		zap.Float64("mean_overlap", s.MeanOverlap),
		zap.Float64("min_overlap", s.MinOverlap),
		zap.Float64("max_overlap", s.MaxOverlap),
	}
}
