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

// costMatrix is a flat, growable row-major matrix of DP costs, sized and
// reused the way elPrep's float64Matrix is in filters/pairhmm.go
// (ensureSize keeps the backing array when it is already large enough
// instead of reallocating).
type costMatrix struct {
	rows, cols int
	array      []float64
}

func (m *costMatrix) ensureSize(rows, cols int) {
	m.rows, m.cols = rows, cols
	total := rows * cols
	if total <= cap(m.array) {
		m.array = m.array[:total]
	} else {
		m.array = make([]float64, total)
	}
}

func (m *costMatrix) at(i, j int) float64 { return m.array[i*m.cols+j] }
func (m *costMatrix) set(i, j int, v float64) { m.array[i*m.cols+j] = v }

// traceMatrix is the byte-coded counterpart of costMatrix, recording which
// predecessor state a cell's optimal cost came from.
type traceMatrix struct {
	rows, cols int
	array      []byte
}

func (m *traceMatrix) ensureSize(rows, cols int) {
	m.rows, m.cols = rows, cols
	total := rows * cols
	if total <= cap(m.array) {
		m.array = m.array[:total]
	} else {
		m.array = make([]byte, total)
	}
}

func (m *traceMatrix) at(i, j int) byte   { return m.array[i*m.cols+j] }
func (m *traceMatrix) set(i, j int, v byte) { m.array[i*m.cols+j] = v }

// Predecessor-state codes stored in the trace matrices.
const (
	fromMatch byte = iota
	fromInsertion
	fromDeletion
)

// Scratch holds the DP and traceback buffers for one worker's pair-HMM
// evaluations. It is owned by a single worker goroutine at a time (per
// spec.md §5: one Scratch per worker, not pooled/shared), and grows its
// backing arrays the way elPrep's pairHMMMatrices.ensureSize does:
// reusing capacity across calls instead of reallocating per-read.
type Scratch struct {
	match, insertion, deletion costMatrix
	traceM, traceI, traceD     traceMatrix
}

// NewScratch returns an empty, ready-to-use Scratch. Its matrices grow
// lazily on first use.
func NewScratch() *Scratch {
	return &Scratch{}
}

func (s *Scratch) ensureSize(rows, cols int) {
	s.match.ensureSize(rows, cols)
	s.insertion.ensureSize(rows, cols)
	s.deletion.ensureSize(rows, cols)
	s.traceM.ensureSize(rows, cols)
	s.traceI.ensureSize(rows, cols)
	s.traceD.ensureSize(rows, cols)
}
