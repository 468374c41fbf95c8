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

// Package refgenome implements the ReferenceGenome collaborator: a
// contig-name-to-sequence lookup that haplotype construction reads
// reference bases from. Grounded on elPrep's fasta.MappedFasta
// (_examples/ExaScience-elprep/fasta/fasta-files.go) — an uppercased,
// ambiguity-code-normalized FASTA held in memory and fetched by contig
// name (Seq), here generalized from whole-contig lookup to bounded
// sub-region fetches, N-padding any portion of a requested region that
// falls outside the contig (haplotype flank expansion can ask for bases
// past either end near a contig's edge).
package refgenome

import (
	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/region"
)

// iupacUpperTable mirrors fasta.ToUpperAndN: upper-cases bases and
// collapses ambiguity codes to 'N'.
var iupacUpperTable = map[byte]byte{
	'A': 'A', 'a': 'A',
	'C': 'C', 'c': 'C',
	'G': 'G', 'g': 'G',
	'T': 'T', 't': 'T',
	'N': 'N', 'n': 'N',
	'R': 'N', 'r': 'N',
	'Y': 'N', 'y': 'N',
	'M': 'N', 'm': 'N',
	'K': 'N', 'k': 'N',
	'W': 'N', 'w': 'N',
	'S': 'N', 's': 'N',
	'B': 'N', 'b': 'N',
	'D': 'N', 'd': 'N',
	'H': 'N', 'h': 'N',
	'V': 'N', 'v': 'N',
}

func normalize(base byte) byte {
	if n, ok := iupacUpperTable[base]; ok {
		return n
	}
	return 'N'
}

// Genome is an in-memory ReferenceGenome: a contig-name-to-sequence map,
// normalized once at construction. It satisfies both
// haplotype.ReferenceFetcher and the external ReferenceGenome interface
// (FetchSequence/ContigSize).
type Genome struct {
	seqs map[string][]byte
}

// New builds a Genome from raw per-contig sequence, normalizing every
// base through the same upper-case/ambiguity-to-N table elPrep's
// ParseFasta applies with toUpper and toN both set. contigs is not
// retained; its bytes are copied into fresh, normalized buffers.
func New(contigs map[string][]byte) *Genome {
	seqs := make(map[string][]byte, len(contigs))
	for name, seq := range contigs {
		normalized := make([]byte, len(seq))
		for i, b := range seq {
			normalized[i] = normalize(b)
		}
		seqs[name] = normalized
	}
	return &Genome{seqs: seqs}
}

// ContigSize returns the length of contig, or a DomainError if it is not
// present in the genome.
func (g *Genome) ContigSize(contig string) (uint64, error) {
	seq, ok := g.seqs[contig]
	if !ok {
		return 0, &errs.DomainError{Op: "ContigSize", Msg: "unknown contig: " + contig}
	}
	return uint64(len(seq)), nil
}

// FetchSequence returns the bases of contig over r, padding any portion
// of r that lies before position 0 or past the contig's end with 'N'.
// r.Begin > r.End never occurs (region.Contig is a well-formed half-open
// interval by construction); r.Begin == r.End returns an empty slice.
func (g *Genome) FetchSequence(contig string, r region.Contig) ([]byte, error) {
	seq, ok := g.seqs[contig]
	if !ok {
		return nil, &errs.DomainError{Op: "FetchSequence", Msg: "unknown contig: " + contig}
	}
	size := int64(len(seq))
	out := make([]byte, r.Size())
	for i := range out {
		pos := r.Begin + int64(i)
		if pos < 0 || pos >= size {
			out[i] = 'N'
			continue
		}
		out[i] = seq[pos]
	}
	return out, nil
}
