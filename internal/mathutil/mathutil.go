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

// Package mathutil holds the small set of log-space and phred-space
// numeric helpers shared by likelihood, trio, caller and vcfcall. The
// phred/probability conventions mirror elPrep's filters package
// (qualityToErrorProbability, log10SumLog10), generalized to natural log
// where the pair-HMM core needs it.
package mathutil

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Ln10Div10 converts a phred score to a natural-log probability:
// ln(p) = -Ln10Div10 * phred.
const Ln10Div10 = math.Ln10 / 10

// PhredToLnProb converts a phred-scaled error probability to its natural
// logarithm.
func PhredToLnProb(phred float64) float64 {
	return -Ln10Div10 * phred
}

// LnProbToPhred converts a natural-log probability back to a phred score.
func LnProbToPhred(lnProb float64) float64 {
	return -lnProb / Ln10Div10
}

// ProbabilityToPhred converts a linear-space probability mass to a phred
// score, clamping non-positive input to MaxPhred instead of producing
// +Inf.
func ProbabilityToPhred(p float64) float64 {
	if p <= 0 {
		return MaxPhred
	}
	return -10 * math.Log10(p)
}

// MaxPhred is used in place of +Inf for exactly-zero probability mass, so
// that phred-scaled posteriors remain comparable with ordinary floats.
const MaxPhred = 255.0

// QualityToErrorProbability converts a phred base quality to a linear
// error probability, as elPrep's filters.qualityToErrorProbability does.
func QualityToErrorProbability(phred float64) float64 {
	return math.Pow(10, phred/-10)
}

// LogSumExp computes ln(sum(exp(xs))) in a numerically stable way. Thin
// wrapper over gonum/floats so every natural-log accumulation in this
// module goes through one audited implementation.
func LogSumExp(xs ...float64) float64 {
	return floats.LogSumExp(xs)
}

// Log1mexp computes ln(1 - exp(a)) for a <= 0, switching formulas around
// ln(0.5) the way the standard numerically-stable recipe (and elPrep's
// filters.log1mexp) does, to avoid cancellation at either extreme.
func Log1mexp(a float64) float64 {
	if a > 0 {
		return math.NaN()
	}
	if a == 0 {
		return math.Inf(-1)
	}
	const log1mexpThreshold = -math.Ln2
	if a < log1mexpThreshold {
		return math.Log1p(-math.Exp(a))
	}
	return math.Log(-math.Expm1(a))
}

// ClampNonPositive clamps a value that should mathematically be <= 0 (a
// natural-log likelihood) but may drift infinitesimally above zero due to
// floating point error, snapping anything above -1e-15 (including any
// positive value) to exactly 0.0 and leaving values at or below -1e-15
// untouched.
func ClampNonPositive(x float64) float64 {
	if x > -1e-15 {
		return 0.0
	}
	return x
}
