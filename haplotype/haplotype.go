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

// Package haplotype implements the Haplotype object: a reference region
// plus an ordered, non-overlapping set of explicit alleles and the fully
// materialized nucleotide sequence over that region. Grounded on
// _examples/original_source/src/core/types/haplotype.cpp, transliterated
// from exceptions to Go error returns and from std::vector/binary_search
// to golang.org/x/exp/slices.
package haplotype

import (
	"bytes"
	"fmt"
	"sort"

	"golang.org/x/exp/slices"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/region"
)

// ReferenceFetcher is the haplotype package's sole dependency on a
// reference genome collaborator. refgenome.Genome satisfies it.
type ReferenceFetcher interface {
	FetchSequence(contig string, r region.Contig) ([]byte, error)
}

// Haplotype is a candidate local sequence over a genomic region, built
// from explicit alleles against a reference. Two haplotypes compare equal
// iff Contig, Region and the materialized sequence are equal; the allele
// decomposition is ignored for equality (see HaveSameAlleles).
type Haplotype struct {
	Contig               string
	Region               region.Contig
	ExplicitAlleles      []allele.Allele
	ExplicitAlleleRegion region.Contig

	sequence  []byte
	reference ReferenceFetcher
}

// New builds a Haplotype directly from a sorted, non-overlapping allele
// list, via a Builder. It is a convenience wrapper around
// NewBuilder/PushBack/Build for callers that already have the full list in
// hand.
func New(contig string, r region.Contig, explicitAlleles []allele.Allele, reference ReferenceFetcher) (Haplotype, error) {
	b := NewBuilder(contig, r, reference)
	for _, a := range explicitAlleles {
		if err := b.PushBack(a); err != nil {
			return Haplotype{}, err
		}
	}
	return b.Build()
}

// Sequence returns the fully materialized sequence over h.Region.
func (h Haplotype) Sequence() []byte { return h.sequence }

// SequenceSize returns the length of the materialized sequence.
func (h Haplotype) SequenceSize() int { return len(h.sequence) }

// String renders a compact "contig:begin-end" identifier, used in error
// messages that cannot import this package (e.g. errs.ShortHaplotypeError,
// whose Haplotype field is typed as fmt.Stringer to avoid an import cycle).
func (h Haplotype) String() string {
	return fmt.Sprintf("%s:%d-%d", h.Contig, h.Region.Begin, h.Region.End)
}

// compareRegion orders regions by Begin then End, used for binary search
// over the sorted explicit allele list.
func compareRegion(a allele.Allele, r region.Contig) int {
	if a.Region.Begin != r.Begin {
		if a.Region.Begin < r.Begin {
			return -1
		}
		return 1
	}
	if a.Region.End != r.End {
		if a.Region.End < r.End {
			return -1
		}
		return 1
	}
	return 0
}

func binarySearchAlleleRegion(alleles []allele.Allele, r region.Contig) (int, bool) {
	return slices.BinarySearchFunc(alleles, r, compareRegion)
}

// overlapRange returns the half-open [start, end) index range of alleles
// (assumed sorted and pairwise non-overlapping) that overlap r.
func overlapRange(alleles []allele.Allele, r region.Contig) (start, end int) {
	start = -1
	for i, a := range alleles {
		if region.Overlaps(a.Region, r) {
			if start == -1 {
				start = i
			}
			end = i + 1
		} else if start != -1 {
			break
		}
	}
	if start == -1 {
		return 0, 0
	}
	return start, end
}

// spliceAllele slices a single allele down to sub, which must be contained
// in a.Region. Only meaningful for alleles whose sequence length equals
// their region size (reference/SNV/MNV alleles) or for empty-sequence
// alleles (deletions), where any contained sub-region is still
// empty-sequence; slicing into the interior of a net-indel allele is not
// well defined and is reported as a LogicError.
func spliceAllele(a allele.Allele, sub region.Contig) (allele.Allele, error) {
	if a.Region == sub {
		return a, nil
	}
	if len(a.Sequence) == 0 {
		return allele.New(sub, nil), nil
	}
	if int64(len(a.Sequence)) != a.Region.Size() {
		return allele.Allele{}, &errs.LogicError{Op: "haplotype.spliceAllele", Msg: "cannot splice an indel-carrying allele at a sub-region boundary"}
	}
	offset := sub.Begin - a.Region.Begin
	return allele.New(sub, a.Sequence[offset:offset+sub.Size()]), nil
}

// isInReferenceFlank reports whether r lies entirely within a pure
// reference flank of the haplotype: disjoint from the explicit allele
// region, and if adjacent to it, not abutting an insertion on that side
// (an insertion touching r would mean r is not purely reference bases).
func isInReferenceFlank(r, explicitAlleleRegion region.Contig, explicitAlleles []allele.Allele) bool {
	if region.Overlaps(r, explicitAlleleRegion) {
		return false
	}
	if !region.AreAdjacent(r, explicitAlleleRegion) {
		return true
	}
	if region.BeginsBefore(r, explicitAlleleRegion) {
		return !explicitAlleles[0].IsInsertion()
	}
	return !explicitAlleles[len(explicitAlleles)-1].IsInsertion()
}

// appendReference appends the bases of r, which must lie in a pure
// reference flank, to buf. It reads from the haplotype's own already
// materialized sequence rather than re-fetching from the reference,
// exploiting the fact that flank bases are untouched by any indel.
func (h Haplotype) appendReference(buf *bytes.Buffer, r region.Contig) {
	if region.IsBefore(r, h.ExplicitAlleleRegion) || len(h.ExplicitAlleles) == 0 {
		offset := r.Begin - h.Region.Begin
		buf.Write(h.sequence[offset : offset+r.Size()])
		return
	}
	tailGap := h.Region.End - r.End
	start := int64(len(h.sequence)) - tailGap - r.Size()
	buf.Write(h.sequence[start : start+r.Size()])
}

func (h Haplotype) fetchReferenceSequence(r region.Contig) []byte {
	var buf bytes.Buffer
	buf.Grow(int(r.Size()))
	h.appendReference(&buf, r)
	return buf.Bytes()
}

// SequenceOverRegion returns the haplotype sequence over sub, which must
// be contained in h.Region. For sub-regions disjoint from the explicit
// allele region it returns pure reference bytes; otherwise it stitches
// flanks and (possibly partial) explicit alleles in order.
func (h Haplotype) SequenceOverRegion(sub region.Contig) ([]byte, error) {
	if !region.Contains(h.Region, sub) {
		return nil, &errs.OutOfRangeError{Op: "Haplotype.SequenceOverRegion", Msg: "sub-region not contained by haplotype region"}
	}
	if len(h.ExplicitAlleles) == 0 {
		offset := sub.Begin - h.Region.Begin
		return h.sequence[offset : offset+sub.Size()], nil
	}
	if isInReferenceFlank(sub, h.ExplicitAlleleRegion, h.ExplicitAlleles) {
		return h.fetchReferenceSequence(sub), nil
	}

	var buf bytes.Buffer

	if region.BeginsBefore(sub, h.ExplicitAlleleRegion) {
		h.appendReference(&buf, region.LeftOverhangRegion(sub, h.ExplicitAlleleRegion))
	}

	start, end := overlapRange(h.ExplicitAlleles, sub)

	if region.Contains(h.ExplicitAlleles[start].Region, sub) {
		spliced, err := spliceAllele(h.ExplicitAlleles[start], sub)
		if err != nil {
			return nil, err
		}
		buf.Write(spliced.Sequence)
		start++
		if start < end && h.ExplicitAlleles[start].IsInsertion() {
			buf.Write(h.ExplicitAlleles[start].Sequence)
		}
		return buf.Bytes(), nil
	} else if region.BeginsBefore(h.ExplicitAlleles[start].Region, sub) {
		overlap := region.OverlappedRegion(h.ExplicitAlleles[start].Region, sub)
		spliced, err := spliceAllele(h.ExplicitAlleles[start], overlap)
		if err != nil {
			return nil, err
		}
		buf.Write(spliced.Sequence)
		start++
		if start == end {
			h.appendReference(&buf, region.RightOverhangRegion(sub, h.ExplicitAlleleRegion))
			return buf.Bytes(), nil
		}
	}

	endsBeforeLast := end > start && region.EndsBefore(sub, h.ExplicitAlleles[end-1].Region)
	stop := end
	if endsBeforeLast {
		stop = end - 1
	}
	for i := start; i < stop; i++ {
		buf.Write(h.ExplicitAlleles[i].Sequence)
	}
	if endsBeforeLast {
		overlap := region.OverlappedRegion(h.ExplicitAlleles[end-1].Region, sub)
		spliced, err := spliceAllele(h.ExplicitAlleles[end-1], overlap)
		if err != nil {
			return nil, err
		}
		buf.Write(spliced.Sequence)
	} else if region.EndsBefore(h.ExplicitAlleleRegion, sub) {
		h.appendReference(&buf, region.RightOverhangRegion(sub, h.ExplicitAlleleRegion))
	}

	return buf.Bytes(), nil
}

// Contains reports whether a is consistent with this haplotype: it is one
// of the explicit alleles, or it lies in (or spans into) a reference
// flank and matches the reference there, or the materialized sequence
// over a's region equals a's sequence.
func (h Haplotype) Contains(a allele.Allele) (bool, error) {
	if !region.Contains(h.Region, a.Region) {
		return false, nil
	}

	if region.BeginsBefore(a.Region, h.ExplicitAlleleRegion) {
		if region.IsBefore(a.Region, h.ExplicitAlleleRegion) {
			return bytes.Equal(a.Sequence, h.fetchReferenceSequence(a.Region)), nil
		}
		flank := region.LeftOverhangRegion(h.ExplicitAlleleRegion, a.Region)
		spliced, err := spliceAllele(a, flank)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(spliced.Sequence, h.fetchReferenceSequence(flank)) {
			return false, nil
		}
	}

	if region.EndsBefore(h.ExplicitAlleleRegion, a.Region) {
		if region.IsAfter(a.Region, h.ExplicitAlleleRegion) {
			return bytes.Equal(a.Sequence, h.fetchReferenceSequence(a.Region)), nil
		}
		flank := region.RightOverhangRegion(a.Region, h.ExplicitAlleleRegion)
		spliced, err := spliceAllele(a, flank)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(spliced.Sequence, h.fetchReferenceSequence(flank)) {
			return false, nil
		}
	}

	if idx, found := binarySearchAlleleRegion(h.ExplicitAlleles, a.Region); found {
		if allele.Equal(h.ExplicitAlleles[idx], a) {
			return true, nil
		}
		if allele.IsSameRegion(h.ExplicitAlleles[idx], a) {
			return false, nil
		}
	}

	start, end := overlapRange(h.ExplicitAlleles, a.Region)
	if end-start == 1 && region.Contains(h.ExplicitAlleles[start].Region, a.Region) {
		spliced, err := spliceAllele(h.ExplicitAlleles[start], a.Region)
		if err != nil {
			return false, err
		}
		return allele.Equal(spliced, a), nil
	}

	seq, err := h.SequenceOverRegion(a.Region)
	if err != nil {
		return false, err
	}
	return bytes.Equal(seq, a.Sequence), nil
}

// Includes is a stricter variant of Contains: a must be either an exact
// explicit allele or a reference allele lying entirely in a non-indel
// flank. Unlike Contains it never accepts an allele that merely happens to
// match a spliced composite of several explicit alleles.
func (h Haplotype) Includes(a allele.Allele) bool {
	if !region.Contains(h.Region, a.Region) {
		return false
	}
	if region.Contains(h.ExplicitAlleleRegion, a.Region) {
		idx, found := binarySearchAlleleRegion(h.ExplicitAlleles, a.Region)
		return found && allele.Equal(h.ExplicitAlleles[idx], a)
	}
	if region.Overlaps(h.ExplicitAlleleRegion, a.Region) || a.IsIndel() {
		return false
	}
	offset := a.Region.Begin - h.Region.Begin
	n := int64(len(a.Sequence))
	if offset < 0 || offset+n > int64(len(h.sequence)) {
		return false
	}
	return bytes.Equal(h.sequence[offset:offset+n], a.Sequence)
}

// Variant is a (region, ref, alt) record emitted by Difference, grounded
// on the Variant(region, other_sequence, self_sequence) construction in
// Haplotype::difference.
type Variant struct {
	Contig string
	Region region.Contig
	Ref    []byte
	Alt    []byte
}

// Difference returns one Variant for every explicit allele of h that other
// does not contain, pairing h's allele sequence against other's sequence
// over the same region.
func (h Haplotype) Difference(other Haplotype) ([]Variant, error) {
	var result []Variant
	for _, a := range h.ExplicitAlleles {
		contained, err := other.Contains(a)
		if err != nil {
			return nil, err
		}
		if contained {
			continue
		}
		ref, err := other.SequenceOverRegion(a.Region)
		if err != nil {
			return nil, err
		}
		result = append(result, Variant{Contig: h.Contig, Region: a.Region, Ref: ref, Alt: a.Sequence})
	}
	return result, nil
}

// Splice produces a haplotype for sub (which must be contained in
// h.Region), carrying explicit alleles fully contained in sub and
// left/right-partial splices at the boundaries. Zero-length boundary
// insertions are preserved.
func (h Haplotype) Splice(sub region.Contig) (Haplotype, error) {
	if !region.Contains(h.Region, sub) {
		return Haplotype{}, &errs.LogicError{Op: "Haplotype.Splice", Msg: "sub-region not contained by haplotype region"}
	}
	if sub == h.Region {
		return h, nil
	}

	b := NewBuilder(h.Contig, sub, h.reference)

	if len(h.ExplicitAlleles) == 0 {
		return b.Build()
	}

	if region.Contains(sub, h.ExplicitAlleleRegion) {
		for _, a := range h.ExplicitAlleles {
			if err := b.PushBack(a); err != nil {
				return Haplotype{}, err
			}
		}
		return b.Build()
	}

	if !region.Overlaps(sub, h.ExplicitAlleleRegion) {
		return b.Build()
	}

	start, end := overlapRange(h.ExplicitAlleles, sub)

	if sub.IsEmpty() {
		if start < end && !h.ExplicitAlleles[start].Region.IsEmpty() && region.AreAdjacent(sub, h.ExplicitAlleles[start].Region) {
			start++
		}
		if start < end && h.ExplicitAlleles[start].Region.IsEmpty() {
			if err := b.PushBack(h.ExplicitAlleles[start]); err != nil {
				return Haplotype{}, err
			}
		} else if err := b.PushBack(allele.New(sub, nil)); err != nil {
			return Haplotype{}, err
		}
		return b.Build()
	}

	if !region.Contains(sub, h.ExplicitAlleles[start].Region) {
		overlap := region.OverlappedRegion(h.ExplicitAlleles[start].Region, sub)
		spliced, err := spliceAllele(h.ExplicitAlleles[start], overlap)
		if err != nil {
			return Haplotype{}, err
		}
		if err := b.PushFront(spliced); err != nil {
			return Haplotype{}, err
		}
		start++
	}

	if start < end {
		if region.Contains(sub, h.ExplicitAlleles[end-1].Region) {
			for i := start; i < end; i++ {
				if err := b.PushBack(h.ExplicitAlleles[i]); err != nil {
					return Haplotype{}, err
				}
			}
		} else {
			for i := start; i < end-1; i++ {
				if err := b.PushBack(h.ExplicitAlleles[i]); err != nil {
					return Haplotype{}, err
				}
			}
			overlap := region.OverlappedRegion(h.ExplicitAlleles[end-1].Region, sub)
			spliced, err := spliceAllele(h.ExplicitAlleles[end-1], overlap)
			if err != nil {
				return Haplotype{}, err
			}
			if err := b.PushBack(spliced); err != nil {
				return Haplotype{}, err
			}
		}
	}

	return b.Build()
}

// IsReference reports whether h carries no explicit alleles, or its
// materialized sequence matches the reference over h.Region exactly.
func (h Haplotype) IsReference() (bool, error) {
	if len(h.ExplicitAlleles) == 0 {
		return true, nil
	}
	ref, err := h.reference.FetchSequence(h.Contig, h.Region)
	if err != nil {
		return false, err
	}
	return bytes.Equal(h.sequence, ref), nil
}

// Expand grows h's region by n bases on each side (or shrinks it, for
// negative n), re-deriving the materialized sequence with the wider
// flanks while keeping the same explicit alleles.
func Expand(h Haplotype, n int64) (Haplotype, error) {
	if n == 0 {
		return h, nil
	}
	b := NewBuilder(h.Contig, region.Expand(h.Region, n), h.reference)
	for _, a := range h.ExplicitAlleles {
		if err := b.PushBack(a); err != nil {
			return Haplotype{}, err
		}
	}
	return b.Build()
}

// Equal reports whether a and b have the same contig, region and
// materialized sequence. The allele decomposition is ignored: see
// HaveSameAlleles for that stricter comparison.
func Equal(a, b Haplotype) bool {
	return a.Contig == b.Contig && a.Region == b.Region && bytes.Equal(a.sequence, b.sequence)
}

// Less defines a total order over haplotypes: by contig, then by region,
// then by sequence bytes. Used by UniqueLeastComplex to group equal
// haplotypes for de-duplication.
func Less(a, b Haplotype) bool {
	if a.Contig != b.Contig {
		return a.Contig < b.Contig
	}
	if a.Region != b.Region {
		if a.Region.Begin != b.Region.Begin {
			return a.Region.Begin < b.Region.Begin
		}
		return a.Region.End < b.Region.End
	}
	return bytes.Compare(a.sequence, b.sequence) < 0
}

// HaveSameAlleles reports whether a and b were built from the identical
// explicit allele sequence, a stricter comparison than Equal.
func HaveSameAlleles(a, b Haplotype) bool {
	if len(a.ExplicitAlleles) != len(b.ExplicitAlleles) {
		return false
	}
	for i := range a.ExplicitAlleles {
		if a.ExplicitAlleles[i].Region != b.ExplicitAlleles[i].Region ||
			!allele.Equal(a.ExplicitAlleles[i], b.ExplicitAlleles[i]) {
			return false
		}
	}
	return true
}

// IsLessComplex orders haplotypes for de-duplication: fewer explicit
// alleles wins; ties broken by a smaller difference against reference (if
// supplied); final tie-break prefers fewer indels in a pairwise
// position-wise comparison of explicit alleles.
func IsLessComplex(lhs, rhs Haplotype, reference *Haplotype) (bool, error) {
	if len(lhs.ExplicitAlleles) != len(rhs.ExplicitAlleles) {
		return len(lhs.ExplicitAlleles) < len(rhs.ExplicitAlleles), nil
	}
	if reference != nil {
		lhsDiff, err := lhs.Difference(*reference)
		if err != nil {
			return false, err
		}
		rhsDiff, err := rhs.Difference(*reference)
		if err != nil {
			return false, err
		}
		if len(lhsDiff) != len(rhsDiff) {
			return len(lhsDiff) < len(rhsDiff), nil
		}
	}
	score := 0
	for i := range lhs.ExplicitAlleles {
		l, r := lhs.ExplicitAlleles[i], rhs.ExplicitAlleles[i]
		switch {
		case allele.Equal(l, r):
		case l.IsIndel() && !r.IsIndel():
			score--
		case r.IsIndel() && !l.IsIndel():
			score++
		}
	}
	return score >= 0, nil
}

// AreEqualInRegion reports whether a and b splice to equal haplotypes
// over r.
func AreEqualInRegion(a, b Haplotype, r region.Contig) (bool, error) {
	sa, err := a.Splice(r)
	if err != nil {
		return false, err
	}
	sb, err := b.Splice(r)
	if err != nil {
		return false, err
	}
	return Equal(sa, sb), nil
}

// UniqueLeastComplex sorts haplotypes in place, then for every run of
// haplotypes that compare Equal keeps only the least complex
// representative (per IsLessComplex). It returns the deduplicated prefix
// of the slice and the count of haplotypes removed.
func UniqueLeastComplex(haplotypes []Haplotype, reference *Haplotype) ([]Haplotype, int, error) {
	sort.Slice(haplotypes, func(i, j int) bool { return Less(haplotypes[i], haplotypes[j]) })

	n := len(haplotypes)
	write := 0
	i := 0
	for i < n {
		j := i + 1
		for j < n && Equal(haplotypes[j], haplotypes[i]) {
			j++
		}
		best := i
		for k := i + 1; k < j; k++ {
			less, err := IsLessComplex(haplotypes[k], haplotypes[best], reference)
			if err != nil {
				return nil, 0, err
			}
			if less {
				best = k
			}
		}
		haplotypes[write] = haplotypes[best]
		write++
		i = j
	}
	return haplotypes[:write], n - write, nil
}
