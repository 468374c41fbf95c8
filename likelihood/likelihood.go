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

// Package likelihood implements the per-worker haplotype likelihood
// cache: buffering one haplotype's error-model tables at a time and
// scoring reads against it via the pairhmm package, with the mapping
// position search (and retry-by-lateral-shift) described in spec.md
// §4.5. Grounded on HaplotypeLikelihoodModel in
// _examples/original_source/src/core/models/haplotype_likelihood_model.cpp
// (reset/clear/evaluate/align, max_score/compute_optimal_alignment, and
// their shared mapping-position search logic), transliterated from
// exceptions to a typed error return.
package likelihood

import (
	"math"

	"github.com/vargenome/triocaller/errormodel"
	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/internal/mathutil"
	"github.com/vargenome/triocaller/pairhmm"
	"github.com/vargenome/triocaller/region"
)

// Haplotype is the minimal view of a haplotype.Haplotype this package
// needs, named to avoid forcing an import of the haplotype package on
// every AlignedRead implementer.
type Haplotype interface {
	Sequence() []byte
	SequenceSize() int
	String() string
}

// AlignedRead is the minimal view of a mapped read this package needs,
// built by reads.Read.ForLikelihood.
type AlignedRead struct {
	Sequence        []byte
	BaseQualities   []float64
	Region          region.Contig
	IsReverseMapped bool
	MappingQuality  float64
}

// FlankState carries the declared left/right reference-flank sizes of a
// haplotype (the portion untouched by any candidate variant), used to
// trigger pair-HMM flank correction.
type FlankState struct {
	LHSFlank, RHSFlank int
}

// Cache buffers one haplotype's error-model tables and pair-HMM scratch
// space, and scores reads against it. One Cache is owned by a single
// worker at a time (spec.md §5); it is not safe for concurrent use.
type Cache struct {
	snv   errormodel.SNVModel
	indel errormodel.IndelModel

	useMappingQuality bool

	haplotype   Haplotype
	haplotypeOK bool
	region      region.Contig
	flank       *FlankState

	tables  errormodel.Tables
	scratch *pairhmm.Scratch
}

// NewCache returns a Cache with the given error models (either may be
// nil, falling back to errormodel's uniform defaults) and whether
// mapping quality should be integrated into the returned likelihood.
func NewCache(snv errormodel.SNVModel, indel errormodel.IndelModel, useMappingQuality bool) *Cache {
	return &Cache{
		snv:               snv,
		indel:             indel,
		useMappingQuality: useMappingQuality,
		scratch:           pairhmm.NewScratch(),
	}
}

// Reset buffers h (and its genomic region, needed to compute a read's
// original/expected offset into h) as the haplotype subsequent
// Evaluate/Align calls score against, deriving its error-model tables.
func Reset(c *Cache, h Haplotype, hRegion region.Contig, flank *FlankState) error {
	tables, err := errormodel.Compute(h, c.snv, c.indel)
	if err != nil {
		return err
	}
	c.haplotype = h
	c.haplotypeOK = true
	c.region = hRegion
	c.flank = flank
	c.tables = tables
	return nil
}

// Clear drops the buffered haplotype; Evaluate/Align return
// MissingHaplotypeError until the next Reset.
func Clear(c *Cache) {
	c.haplotype = nil
	c.haplotypeOK = false
	c.flank = nil
}

// PadRequirement returns the minimum number of haplotype bases required
// on either side of a read for a mapping position to be viable.
func PadRequirement() int { return pairhmm.MinFlankPad }

func numOutOfRangeBases(mappingPosition, readLen, haplotypeLen int) int {
	if mappingPosition < pairhmm.MinFlankPad {
		return pairhmm.MinFlankPad - mappingPosition
	}
	mappingEnd := mappingPosition + readLen + pairhmm.MinFlankPad
	if mappingEnd > haplotypeLen {
		return haplotypeLen - mappingEnd
	}
	return 0
}

func isInRange(mappingPosition, readLen, haplotypeLen int) bool {
	return numOutOfRangeBases(mappingPosition, readLen, haplotypeLen) == 0
}

// resolveMappingPositions implements the shared search in max_score and
// compute_optimal_alignment: try the read's candidate positions plus its
// naturally-expected position, and if none fit inside the haplotype, try
// shifting the expected position laterally by the minimal amount needed.
// It returns the positions worth trying (in order) and, if even the
// shifted position doesn't fit, a ShortHaplotypeError.
func resolveMappingPositions(read AlignedRead, haplotypeRegionBegin int64, candidates []int, haplotype Haplotype) ([]int, error) {
	readLen := len(read.Sequence)
	haplotypeLen := haplotype.SequenceSize()
	originalPosition := int(read.Region.Begin - haplotypeRegionBegin)

	var tryPositions []int
	seenOriginal := false
	hasInRange := false
	for _, p := range candidates {
		if p == originalPosition {
			seenOriginal = true
		}
		if isInRange(p, readLen, haplotypeLen) {
			hasInRange = true
			tryPositions = append(tryPositions, p)
		}
	}
	if !seenOriginal && isInRange(originalPosition, readLen, haplotypeLen) {
		hasInRange = true
		tryPositions = append(tryPositions, originalPosition)
	}
	if hasInRange {
		return tryPositions, nil
	}

	minShift := numOutOfRangeBases(originalPosition, readLen, haplotypeLen)
	finalPosition := originalPosition
	if minShift > 0 {
		finalPosition += minShift
		if !isInRange(finalPosition, readLen, haplotypeLen) {
			return nil, &errs.ShortHaplotypeError{Haplotype: haplotype, RequiredExtension: uint32(minShift)}
		}
	} else {
		minLeftShift := -minShift
		if originalPosition >= minLeftShift {
			finalPosition -= minLeftShift
		} else {
			requiredExtension := minLeftShift - originalPosition
			return nil, &errs.ShortHaplotypeError{Haplotype: haplotype, RequiredExtension: uint32(requiredExtension)}
		}
	}
	return []int{finalPosition}, nil
}

func (c *Cache) mutationModel() pairhmm.Model {
	model := pairhmm.Model{GapExtend: c.tables.GapExtend, NucPrior: 2}
	if c.flank != nil {
		model.LHSFlankSize = c.flank.LHSFlank
		model.RHSFlankSize = c.flank.RHSFlank
	}
	return model
}

// truthTables selects the strand-appropriate SNV prior table, mirroring
// reset() picking haplotype_snv_forward_/reverse_priors_ by
// read.is_marked_reverse_mapped() in the original.
func (c *Cache) truthTables(forward bool) pairhmm.Tables {
	priors := c.tables.SNVPriorsForward
	if !forward {
		priors = c.tables.SNVPriorsReverse
	}
	return pairhmm.Tables{GapOpenPenalties: c.tables.GapOpenPenalties, SNVPriors: priors}
}

// Evaluate scores read against the buffered haplotype, trying every
// position in candidates plus the read's naturally-expected position,
// and returning the maximum log-likelihood found. Per spec.md §4.5 the
// result is clamped to 0 when it exceeds -1e-15 (floating point noise
// around a perfect match), and mapping-quality is folded in via
// log-sum-exp when the cache was built with useMappingQuality.
func (c *Cache) Evaluate(read AlignedRead, candidates []int) (float64, error) {
	if !c.haplotypeOK {
		return 0, &errs.MissingHaplotypeError{}
	}
	positions, err := resolveMappingPositions(read, c.region.Begin, candidates, c.haplotype)
	if err != nil {
		return 0, err
	}

	forward := !read.IsReverseMapped
	model := c.mutationModel()
	tables := c.truthTables(forward)
	truth := c.haplotype.Sequence()

	lnProbGivenMapped := math.Inf(-1)
	for _, pos := range positions {
		p := pairhmm.Evaluate(truth, read.Sequence, read.BaseQualities, tables, pos, model, c.scratch)
		if p > lnProbGivenMapped {
			lnProbGivenMapped = p
		}
	}

	return c.finalizeLikelihood(lnProbGivenMapped, read.MappingQuality), nil
}

// Align is Evaluate's traceback-producing counterpart: it returns the
// CIGAR and mapping position of the best-scoring alignment tried, along
// with its likelihood (subject to the same clamping/mapping-quality
// treatment as Evaluate).
func (c *Cache) Align(read AlignedRead, candidates []int) (Alignment, error) {
	if !c.haplotypeOK {
		return Alignment{}, &errs.MissingHaplotypeError{}
	}
	positions, err := resolveMappingPositions(read, c.region.Begin, candidates, c.haplotype)
	if err != nil {
		return Alignment{}, err
	}

	forward := !read.IsReverseMapped
	model := c.mutationModel()
	tables := c.truthTables(forward)
	truth := c.haplotype.Sequence()

	best := Alignment{Likelihood: math.Inf(-1)}
	for _, pos := range positions {
		r := pairhmm.Align(truth, read.Sequence, read.BaseQualities, tables, pos, model, c.scratch)
		if r.LnLikelihood > best.Likelihood {
			best = Alignment{MappingPosition: r.MappingPosition, Cigar: r.Cigar, Likelihood: r.LnLikelihood}
		}
	}

	best.Likelihood = c.finalizeLikelihood(best.Likelihood, read.MappingQuality)
	return best, nil
}

// Alignment is the result of Cache.Align.
type Alignment struct {
	MappingPosition int
	Cigar           []pairhmm.CigarOp
	Likelihood      float64
}

// finalizeLikelihood applies the same mapping-quality integration and
// "snap to zero" clamp to a raw read-given-haplotype log-likelihood that
// both evaluate() and align() apply in the original: folding in
// p(read missmapped) via log-sum-exp when mapping quality is used, then
// clamping anything above -1e-15 to exactly 0.
func (c *Cache) finalizeLikelihood(lnProbGivenMapped float64, mappingQuality float64) float64 {
	if !c.useMappingQuality {
		return mathutil.ClampNonPositive(lnProbGivenMapped)
	}
	lnProbMismapped := -mathutil.Ln10Div10 * mappingQuality
	lnProbMapped := math.Log1p(-math.Exp(lnProbMismapped))
	result := mathutil.LogSumExp(lnProbMapped+lnProbGivenMapped, lnProbMismapped)
	return mathutil.ClampNonPositive(result)
}
