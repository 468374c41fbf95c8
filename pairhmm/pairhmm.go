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

// Package pairhmm implements the banded, windowed pair-HMM alignment of a
// read against a haplotype described in spec.md §4.4.
//
// The windowing, sentinel, and flank-correction contract here is
// transliterated directly from align() in
// _examples/original_source/src/pair_hmm.cpp: compute a small window of
// the haplotype around the read's candidate offset, bail out to a
// sentinel "impossible" score when the window does not fit inside the
// haplotype, and when the read's window overlaps the haplotype's
// declared flanks, rescore just the flank-covered portion of the
// alignment and subtract it so flank bases (which carry no information
// about the called variant) don't inflate the likelihood.
//
// The DP kernel itself (fastAlignmentRoutine / calculateFlankScore in the
// original) lives in un-retrieved SIMD headers and isn't available to
// ground against line-by-line; the recurrence below is authored from
// spec.md §4.4's textual description (affine-gap Viterbi banded around
// the main diagonal) using elPrep's filters/pairhmm.go for the Go DP
// matrix/scratch idiom.
package pairhmm

import (
	"math"
	"strconv"
	"strings"
)

// alignmentPad and truthExtraPad mirror the offsets used in
// pair_hmm.cpp::align: the window starts 8 bases before the read's
// candidate offset and extends 15 bases beyond the read's length.
const (
	alignmentPad  = 8
	truthExtraPad = 15

	// bandWidth bounds how far the DP lets an alignment column drift from
	// the diagonal through the read's candidate offset (window column
	// i+alignmentPad for read base i), per spec.md §4.4's "fixed small
	// constant" band.
	bandWidth = 8

	// MinFlankPad is the minimum number of haplotype bases required on
	// either side of a read's mapping position for a window to fit,
	// mirroring hmm::min_flank_pad() in the original — callers choosing
	// candidate mapping positions (the likelihood package) need this
	// value to decide whether a position is even worth trying.
	MinFlankPad = alignmentPad
)

// sentinel is the "impossible alignment" score returned when the window
// does not fit inside the haplotype, mirroring
// std::numeric_limits<double>::lowest() in the original.
const sentinel = -math.MaxFloat64

// Model holds the scalar parameters of one pair-HMM evaluation that
// don't vary per-base: the gap-extension penalty, a small prior added to
// every opened insertion (nucprior, following Octopus's naming), and the
// haplotype's declared flank sizes used for flank correction.
type Model struct {
	GapExtend    float64
	NucPrior     float64
	LHSFlankSize int
	RHSFlankSize int
}

// CigarOp is one run-length-encoded alignment operation produced by
// Align's traceback: '=' (match), 'X' (mismatch), 'I' (insertion), or
// 'D' (deletion).
type CigarOp struct {
	Op     byte
	Length int
}

// String renders an extended-CIGAR-style op, e.g. "4=" or "2I".
func (c CigarOp) String() string {
	return strconv.Itoa(c.Length) + string(c.Op)
}

// Result is the outcome of aligning one read against one haplotype
// window.
type Result struct {
	// LnLikelihood is the natural-log likelihood of the alignment,
	// flank-corrected when the window overlaps a declared flank.
	LnLikelihood float64
	// Cigar is the traceback-derived alignment. Only Align fills it in;
	// Evaluate returns just the likelihood.
	Cigar []CigarOp
	// MappingPosition is the 0-based haplotype coordinate the
	// alignment begins at.
	MappingPosition int
}

// Tables holds the haplotype (truth)-side, position-indexed tables the
// DP needs alongside the read's own base qualities: a gap-open penalty
// per truth position, and the SNV prior per truth position that a
// mismatch is scored with instead of the read's base quality whenever it
// is the lower (less confident) of the two.
// errormodel.Tables supplies these (GapOpenPenalties and, depending on
// strand, SNVPriorsForward/SNVPriorsReverse).
type Tables struct {
	GapOpenPenalties []float64
	SNVPriors        []float64
}

// Evaluate scores target (read bases) against truth (the haplotype
// sequence) at targetOffset (the read's candidate haplotype offset),
// returning the flank-corrected natural-log likelihood without
// traceback. This is the hot path used when only a score is needed.
func Evaluate(truth, target []byte, targetQualities []float64, truthTables Tables, targetOffset int, model Model, scratch *Scratch) float64 {
	r := align(truth, target, targetQualities, truthTables, targetOffset, model, scratch, false)
	return r.LnLikelihood
}

// Align scores target against truth exactly as Evaluate does, and in
// addition produces the CIGAR and mapping position of the optimal
// alignment via DP traceback.
func Align(truth, target []byte, targetQualities []float64, truthTables Tables, targetOffset int, model Model, scratch *Scratch) Result {
	return align(truth, target, targetQualities, truthTables, targetOffset, model, scratch, true)
}

func align(truth, target []byte, targetQualities []float64, truthTables Tables, targetOffset int, model Model, scratch *Scratch, traceback bool) Result {
	alignmentOffset := targetOffset - alignmentPad
	if alignmentOffset < 0 {
		alignmentOffset = 0
	}
	truthAlignmentSize := len(target) + truthExtraPad

	if alignmentOffset+truthAlignmentSize > len(truth) {
		return Result{LnLikelihood: sentinel}
	}

	window := alignmentOffset + truthAlignmentSize
	truthWindow := truth[alignmentOffset:window]
	windowTables := Tables{
		GapOpenPenalties: truthTables.GapOpenPenalties[alignmentOffset:window],
		SNVPriors:        truthTables.SNVPriors[alignmentOffset:window],
	}

	inFlank := isTargetInTruthFlank(len(truth), len(target), targetOffset, model)
	needsTrace := traceback || inFlank

	score, ops, firstCol := fastAlignmentRoutine(truthWindow, target, targetQualities, windowTables, model, needsTrace, scratch)

	flankScore := 0.0
	if inFlank {
		flankScore = calculateFlankScore(len(truth), model.LHSFlankSize, model.RHSFlankSize, alignmentOffset, ops)
	}

	const lnTenOverTen = math.Ln10 / 10.0
	result := Result{
		LnLikelihood:    -lnTenOverTen * (score - flankScore),
		MappingPosition: alignmentOffset + firstCol,
	}
	if traceback {
		result.Cigar = collapseOps(ops)
	}
	return result
}

// CigarString renders a CIGAR op slice as a single string, e.g. "4=2I3=".
func CigarString(ops []CigarOp) string {
	var b strings.Builder
	for _, o := range ops {
		b.WriteString(o.String())
	}
	return b.String()
}

// isTargetInTruthFlank reports whether the read's candidate placement
// overlaps either declared flank of the haplotype, mirroring
// is_target_in_truth_flank in the original.
func isTargetInTruthFlank(truthLen, targetLen, targetOffset int, model Model) bool {
	return targetOffset < model.LHSFlankSize || targetOffset+targetLen > truthLen-model.RHSFlankSize
}
