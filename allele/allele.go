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

// Package allele implements the (region, sequence) pair used throughout the
// haplotype and trio core. Grounded on spec.md §3's Allele definition and on
// the ContigAllele usage seen across
// _examples/original_source/src/core/types/haplotype.cpp (is_insertion,
// is_deletion, sequence_size, is_same_region).
package allele

import "github.com/vargenome/triocaller/region"

// Allele is a (region, sequence) pair. Reference alleles satisfy
// sequence == reference[region]. Insertions have an empty region but a
// non-empty sequence; deletions have a non-empty region and an empty
// sequence. A SNV or MNV has equal-length non-empty region and sequence.
type Allele struct {
	Region   region.Contig
	Sequence []byte
}

// New constructs an Allele from a region and sequence.
func New(r region.Contig, sequence []byte) Allele {
	return Allele{Region: r, Sequence: sequence}
}

// IsInsertion reports whether a is a pure insertion: an empty region with a
// non-empty sequence.
func (a Allele) IsInsertion() bool {
	return a.Region.IsEmpty() && len(a.Sequence) > 0
}

// IsDeletion reports whether a is a pure deletion: a non-empty region with
// an empty sequence.
func (a Allele) IsDeletion() bool {
	return !a.Region.IsEmpty() && len(a.Sequence) == 0
}

// IsIndel reports whether a changes the reference length, i.e. is an
// insertion or a deletion.
func (a Allele) IsIndel() bool {
	return a.IsInsertion() || a.IsDeletion()
}

// IndelLength returns the net change in sequence length a introduces
// relative to its region: len(Sequence) - Region.Size(). Positive for net
// insertions, negative for net deletions, zero for SNVs/MNVs and reference
// alleles.
func (a Allele) IndelLength() int64 {
	return int64(len(a.Sequence)) - a.Region.Size()
}

// IsSameRegion reports whether a and b occupy the same region, regardless
// of sequence.
func IsSameRegion(a, b Allele) bool {
	return a.Region == b.Region
}

// Equal reports whether a and b have the same region and the same
// sequence bytes.
func Equal(a, b Allele) bool {
	if a.Region != b.Region {
		return false
	}
	if len(a.Sequence) != len(b.Sequence) {
		return false
	}
	for i := range a.Sequence {
		if a.Sequence[i] != b.Sequence[i] {
			return false
		}
	}
	return true
}

// IsReference reports whether a's sequence matches the reference bytes
// supplied for a's region (typically fetched from a ReferenceGenome).
func (a Allele) IsReference(referenceBases []byte) bool {
	return Equal(Allele{a.Region, referenceBases}, a)
}
