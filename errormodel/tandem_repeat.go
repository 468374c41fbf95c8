// triocaller: a trio-aware germline/de novo variant caller.
// Copyright (c) 2024 triocaller contributors.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

package errormodel

import "gonum.org/v1/gonum/stat/distuv"

// TandemRepeatIndelModel lowers the gap-open penalty inside tandem-repeat
// tracts, following the Poisson stutter-probability pattern in
// _examples/dasnellings-duplextools/repeats/baysian_likelihood.go
// (distuv.Poisson{Lambda}.Prob(repeatCountDiff)): longer, higher-copy
// repeat tracts carry more expected stutter, so indel errors there are
// cheaper to explain.
type TandemRepeatIndelModel struct {
	// PoissonLambda is the expected number of stutter units away from
	// the observed repeat copy number.
	PoissonLambda float64
	// MaxGapOpenPrior is the phred-scale penalty outside any repeat
	// tract.
	MaxGapOpenPrior float64
	// MinGapOpenPrior floors the penalty inside highly repetitive
	// tracts.
	MinGapOpenPrior float64
	// GapExtend is the scalar gap-extension penalty returned unchanged.
	GapExtend float64
	// MinCopies is the minimum repeat copy number a run must have to be
	// treated as a tandem-repeat tract.
	MinCopies int
	// MaxUnitLength is the longest repeat unit size searched for.
	MaxUnitLength int
}

// NewDefaultTandemRepeatIndelModel returns a TandemRepeatIndelModel with
// the package's default penalty bounds.
func NewDefaultTandemRepeatIndelModel() TandemRepeatIndelModel {
	return TandemRepeatIndelModel{
		PoissonLambda:   1.0,
		MaxGapOpenPrior: DefaultGapOpenPrior,
		MinGapOpenPrior: 15.0,
		GapExtend:       DefaultGapExtend,
		MinCopies:       3,
		MaxUnitLength:   6,
	}
}

// Evaluate implements IndelModel.
func (m TandemRepeatIndelModel) Evaluate(h HaplotypeSequencer) ([]float64, float64, error) {
	seq := h.Sequence()
	penalties := uniform(len(seq), m.MaxGapOpenPrior)

	p := distuv.Poisson{Lambda: m.PoissonLambda}
	for _, tr := range findTandemRepeats(seq, m.MinCopies, m.MaxUnitLength) {
		stutterMass := p.Prob(float64(tr.copies))
		penalty := m.MaxGapOpenPrior - stutterMass*(m.MaxGapOpenPrior-m.MinGapOpenPrior)
		if penalty < m.MinGapOpenPrior {
			penalty = m.MinGapOpenPrior
		}
		for i := tr.start; i < tr.end && i < len(penalties); i++ {
			penalties[i] = penalty
		}
	}

	return penalties, m.GapExtend, nil
}

type tandemRepeat struct {
	start, end int
	unit       int
	copies     int
}

// findTandemRepeats scans seq for runs of a repeated unit (length 1..
// maxUnitLength) occurring at least minCopies times, greedily consuming
// the longest run found at each starting position before advancing.
func findTandemRepeats(seq []byte, minCopies, maxUnitLength int) []tandemRepeat {
	var result []tandemRepeat
	n := len(seq)
	for unit := 1; unit <= maxUnitLength; unit++ {
		i := 0
		for i+unit <= n {
			copies := 1
			j := i + unit
			for j+unit <= n && bytesEqual(seq[i:i+unit], seq[j:j+unit]) {
				copies++
				j += unit
			}
			if copies >= minCopies {
				result = append(result, tandemRepeat{start: i, end: j, unit: unit, copies: copies})
				i = j
			} else {
				i++
			}
		}
	}
	return result
}

func bytesEqual(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
