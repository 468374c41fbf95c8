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

package pairhmm

import "math"

// infCost stands in for an unreachable DP cell. It is large but finite so
// arithmetic on it (adding a gap-open penalty, say) can't overflow into
// NaN or become a smaller value than a genuinely reachable cell through
// cancellation.
const infCost = math.MaxFloat64 / 4

// op is one traceback step, carrying the incremental phred-scale cost it
// contributed and the absolute truth coordinate it corresponds to, so
// calculateFlankScore can replay the same per-step costs filtered to the
// flank-covered steps without a second DP pass.
type op struct {
	kind     byte
	cost     float64
	truthPos int
}

// mismatchCost combines a read base's sequencing-error quality with the
// haplotype's context-derived SNV prior at the aligned truth position,
// taking whichever is lower (more probable): a mismatch this cheap to
// explain under either model is cheap to explain overall.
func mismatchCost(baseQuality, snvPrior float64) float64 {
	if snvPrior < baseQuality {
		return snvPrior
	}
	return baseQuality
}

// fastAlignmentRoutine runs the banded affine-gap Viterbi recurrence of
// target against truthWindow. It returns the optimal phred-scale cost,
// the traceback (nil when trace is false), and the truth-window column
// the optimal alignment starts at (0 when trace is false).
func fastAlignmentRoutine(truthWindow, target []byte, targetQualities []float64, truthTables Tables, model Model, trace bool, scratch *Scratch) (float64, []op, int) {
	gapOpenWindow := truthTables.GapOpenPenalties
	snvPriorWindow := truthTables.SNVPriors
	n := len(target)
	m := len(truthWindow)
	scratch.ensureSize(n+1, m+1)

	match, ins, del := &scratch.match, &scratch.insertion, &scratch.deletion
	traceM, traceI, traceD := &scratch.traceM, &scratch.traceI, &scratch.traceD

	for j := 0; j <= m; j++ {
		match.set(0, j, 0)
		ins.set(0, j, infCost)
		del.set(0, j, infCost)
	}
	for i := 1; i <= n; i++ {
		for j := 0; j <= m; j++ {
			match.set(i, j, infCost)
			ins.set(i, j, infCost)
			del.set(i, j, infCost)
		}
	}

	for i := 1; i <= n; i++ {
		jLo := i + alignmentPad - bandWidth
		if jLo < 1 {
			jLo = 1
		}
		jHi := i + alignmentPad + bandWidth
		if jHi > m {
			jHi = m
		}
		for j := jLo; j <= jHi; j++ {
			x, y := target[i-1], truthWindow[j-1]
			mismatch := 0.0
			if x != y && x != 'N' && y != 'N' {
				mismatch = mismatchCost(targetQualities[i-1], snvPriorWindow[j-1])
			}

			best := match.at(i-1, j-1)
			bestFrom := fromMatch
			if v := ins.at(i-1, j-1); v < best {
				best, bestFrom = v, fromInsertion
			}
			if v := del.at(i-1, j-1); v < best {
				best, bestFrom = v, fromDeletion
			}
			match.set(i, j, best+mismatch)
			traceM.set(i, j, bestFrom)

			gapOpen := gapOpenWindow[j-1]
			insOpen := match.at(i-1, j) + gapOpen + model.NucPrior
			insExtend := ins.at(i-1, j) + model.GapExtend
			if insOpen <= insExtend {
				ins.set(i, j, insOpen)
				traceI.set(i, j, fromMatch)
			} else {
				ins.set(i, j, insExtend)
				traceI.set(i, j, fromInsertion)
			}

			delOpen := match.at(i, j-1) + gapOpen
			delExtend := del.at(i, j-1) + model.GapExtend
			if delOpen <= delExtend {
				del.set(i, j, delOpen)
				traceD.set(i, j, fromMatch)
			} else {
				del.set(i, j, delExtend)
				traceD.set(i, j, fromDeletion)
			}
		}
	}

	bestScore := infCost
	bestJ := 0
	bestState := fromMatch
	for j := 0; j <= m; j++ {
		if v := match.at(n, j); v < bestScore {
			bestScore, bestJ, bestState = v, j, fromMatch
		}
		if v := ins.at(n, j); v < bestScore {
			bestScore, bestJ, bestState = v, j, fromInsertion
		}
	}

	if !trace {
		return bestScore, nil, 0
	}

	var ops []op
	i, j, state := n, bestJ, bestState
	for i > 0 {
		switch state {
		case fromMatch:
			pred := traceM.at(i, j)
			x, y := target[i-1], truthWindow[j-1]
			cost := 0.0
			kind := byte('=')
			if x != y && x != 'N' && y != 'N' {
				cost = mismatchCost(targetQualities[i-1], snvPriorWindow[j-1])
				kind = 'X'
			}
			ops = append(ops, op{kind: kind, cost: cost, truthPos: j - 1})
			i, j, state = i-1, j-1, pred
		case fromInsertion:
			pred := traceI.at(i, j)
			cost := model.GapExtend
			if pred == fromMatch {
				cost = gapOpenWindow[j-1] + model.NucPrior
			}
			ops = append(ops, op{kind: 'I', cost: cost, truthPos: j})
			i, state = i-1, pred
		case fromDeletion:
			pred := traceD.at(i, j)
			cost := model.GapExtend
			if pred == fromMatch {
				cost = gapOpenWindow[j-1]
			}
			ops = append(ops, op{kind: 'D', cost: cost, truthPos: j - 1})
			j, state = j-1, pred
		}
	}
	for l, r := 0, len(ops)-1; l < r; l, r = l+1, r-1 {
		ops[l], ops[r] = ops[r], ops[l]
	}

	return bestScore, ops, j
}

// collapseOps run-length-encodes a forward-ordered traceback into a
// CIGAR.
func collapseOps(ops []op) []CigarOp {
	if len(ops) == 0 {
		return nil
	}
	var result []CigarOp
	cur := CigarOp{Op: ops[0].kind, Length: 1}
	for _, o := range ops[1:] {
		if o.kind == cur.Op {
			cur.Length++
			continue
		}
		result = append(result, cur)
		cur = CigarOp{Op: o.kind, Length: 1}
	}
	return append(result, cur)
}

// calculateFlankScore replays the already-computed traceback's
// per-step costs, summing only the steps whose truth coordinate falls
// within the haplotype's declared flanks. This mirrors
// calculateFlankScore in the original, which masks the same alignment
// path instead of rerunning the DP restricted to the flank.
func calculateFlankScore(truthLen, lhsFlank, rhsFlank, alignmentOffset int, ops []op) float64 {
	total := 0.0
	for _, o := range ops {
		absolutePos := alignmentOffset + o.truthPos
		if absolutePos < lhsFlank || absolutePos >= truthLen-rhsFlank {
			total += o.cost
		}
	}
	return total
}
