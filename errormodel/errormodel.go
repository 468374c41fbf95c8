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

// Package errormodel derives the per-haplotype SNV and indel error tables
// the pair-HMM needs: context-aware SNV mask/prior tables (forward and
// reverse strand) and a per-position gap-open penalty table plus a scalar
// gap-extension penalty. Grounded on spec.md §4.3 and on
// HaplotypeLikelihoodModel::reset in
// _examples/original_source/src/core/models/haplotype_likelihood_model.cpp,
// which computes these tables lazily per haplotype and falls back to a
// uniform mask/prior when no model is configured.
package errormodel

// Default phred-scale values used when no SNVModel/IndelModel is
// configured, per spec.md §4.3: "the mask mirrors the haplotype sequence
// and priors are a uniform high value (e.g. 100)".
const (
	DefaultSNVPrior     = 100.0
	DefaultGapOpenPrior = 40.0
	DefaultGapExtend    = 3.0
)

// HaplotypeSequencer is the minimal view of a haplotype this package
// needs: its bases. haplotype.Haplotype satisfies it via Sequence().
type HaplotypeSequencer interface {
	Sequence() []byte
}

// SNVModel derives per-base, strand-aware SNV mask/prior tables for a
// haplotype. MaskForward/MaskReverse name the base each position's prior
// applies to; PriorsForward/PriorsReverse are phred-scale penalties.
type SNVModel interface {
	Evaluate(h HaplotypeSequencer) (maskForward, maskReverse []byte, priorsForward, priorsReverse []float64, err error)
}

// IndelModel derives a per-position gap-open penalty table and a scalar
// gap-extension penalty for a haplotype.
type IndelModel interface {
	Evaluate(h HaplotypeSequencer) (gapOpenPenalties []float64, gapExtend float64, err error)
}

// Tables holds the fully materialized error-model tables for one
// haplotype, computed once by LikelihoodCache.Reset and reused across
// every read evaluated against that haplotype.
type Tables struct {
	SNVMaskForward, SNVMaskReverse     []byte
	SNVPriorsForward, SNVPriorsReverse []float64
	GapOpenPenalties                   []float64
	GapExtend                          float64
}

// Compute derives Tables for h. A nil snv or indel model falls back to
// the spec's uniform defaults.
func Compute(h HaplotypeSequencer, snv SNVModel, indel IndelModel) (Tables, error) {
	var t Tables

	if snv != nil {
		maskF, maskR, priorsF, priorsR, err := snv.Evaluate(h)
		if err != nil {
			return Tables{}, err
		}
		t.SNVMaskForward, t.SNVMaskReverse = maskF, maskR
		t.SNVPriorsForward, t.SNVPriorsReverse = priorsF, priorsR
	} else {
		seq := h.Sequence()
		t.SNVMaskForward = append([]byte(nil), seq...)
		t.SNVMaskReverse = append([]byte(nil), seq...)
		t.SNVPriorsForward = uniform(len(seq), DefaultSNVPrior)
		t.SNVPriorsReverse = uniform(len(seq), DefaultSNVPrior)
	}

	if indel != nil {
		gapOpen, gapExtend, err := indel.Evaluate(h)
		if err != nil {
			return Tables{}, err
		}
		t.GapOpenPenalties = gapOpen
		t.GapExtend = gapExtend
	} else {
		t.GapOpenPenalties = uniform(len(h.Sequence()), DefaultGapOpenPrior)
		t.GapExtend = DefaultGapExtend
	}

	return t, nil
}

func uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
