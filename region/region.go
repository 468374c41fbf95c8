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

// Package region implements the half-open interval algebra that the rest
// of the core is built on: Contig, containment, overlap, adjacency and the
// various "overhang"/splice helpers used by haplotype construction.
// Grounded on the Contig/GenomicRegion free functions in
// _examples/original_source/src/core/types/haplotype.cpp (is_before,
// begins_before, left_overhang_region, intervening_region, ...) and on the
// Interval type in elPrep's intervals package for the Go idiom (plain
// value struct, free functions rather than methods where C++ used ADL).
package region

import "github.com/vargenome/triocaller/internal/errs"

// Contig is a half-open interval [Begin, End) on a single contig's
// coordinate space. Size = End - Begin >= 0; Begin == End is a legal empty
// region (used to represent insertion points).
type Contig struct {
	Begin, End int64
}

// Size returns End - Begin.
func (r Contig) Size() int64 { return r.End - r.Begin }

// IsEmpty reports whether the region spans zero bases.
func (r Contig) IsEmpty() bool { return r.Begin == r.End }

// Genomic is a contig name plus a Contig interval on it.
type Genomic struct {
	Contig string
	Region Contig
}

// Size returns the size of the contig-local region.
func (g Genomic) Size() int64 { return g.Region.Size() }

// IsEmpty reports whether the region spans zero bases.
func (g Genomic) IsEmpty() bool { return g.Region.IsEmpty() }

func sameContig(op string, a, b Genomic) error {
	if a.Contig != b.Contig {
		return &errs.DomainError{Op: op, Msg: "regions are on different contigs: " + a.Contig + " vs " + b.Contig}
	}
	return nil
}

// Contains reports whether b lies entirely within a (same-contig
// half-open containment). An empty region [p,p) is contained by any
// region whose half-open span includes position p.
func Contains(a, b Contig) bool {
	return b.Begin >= a.Begin && b.End <= a.End
}

// ContainsGenomic is the same-contig checked form of Contains.
func ContainsGenomic(a, b Genomic) (bool, error) {
	if err := sameContig("Contains", a, b); err != nil {
		return false, err
	}
	return Contains(a.Region, b.Region), nil
}

// Overlaps reports whether a and b share at least one base. Two regions
// that are merely adjacent (a.End == b.Begin) do not overlap; an empty
// region sitting exactly on a boundary is adjacent, not overlapping, per
// spec.
func Overlaps(a, b Contig) bool {
	if a.IsEmpty() {
		return b.Begin < a.Begin && a.Begin < b.End
	}
	if b.IsEmpty() {
		return a.Begin < b.Begin && b.Begin < a.End
	}
	return a.Begin < b.End && b.Begin < a.End
}

// AreAdjacent reports whether a and b touch with no gap and no overlap:
// [a,b) and [c,d) are adjacent iff b == c (or d == a).
func AreAdjacent(a, b Contig) bool {
	return a.End == b.Begin || b.End == a.Begin
}

// IsBefore reports whether a ends at or before b begins (a entirely to the
// left of b, including adjacency).
func IsBefore(a, b Contig) bool {
	return a.End <= b.Begin && a.Begin < b.End
}

// IsAfter reports whether a begins at or after b ends.
func IsAfter(a, b Contig) bool {
	return IsBefore(b, a)
}

// BeginsBefore reports whether a begins strictly before b.
func BeginsBefore(a, b Contig) bool { return a.Begin < b.Begin }

// EndsBefore reports whether a ends strictly before b ends.
func EndsBefore(a, b Contig) bool { return a.End < b.End }

// OverlappedRegion returns the intersection of a and b. Result is only
// meaningful when Overlaps(a, b).
func OverlappedRegion(a, b Contig) Contig {
	begin := a.Begin
	if b.Begin > begin {
		begin = b.Begin
	}
	end := a.End
	if b.End < end {
		end = b.End
	}
	if end < begin {
		end = begin
	}
	return Contig{begin, end}
}

// LeftOverhangRegion returns the part of a that lies to the left of b's
// start: [a.Begin, min(a.End, b.Begin)), empty when b begins at or
// before a.Begin.
func LeftOverhangRegion(a, b Contig) Contig {
	end := b.Begin
	if end > a.End {
		end = a.End
	}
	if end < a.Begin {
		end = a.Begin
	}
	return Contig{a.Begin, end}
}

// RightOverhangRegion returns the part of a that lies to the right of b's
// end: [max(a.Begin, b.End), a.End).
func RightOverhangRegion(a, b Contig) Contig {
	begin := b.End
	if begin < a.Begin {
		begin = a.Begin
	}
	if begin > a.End {
		begin = a.End
	}
	return Contig{begin, a.End}
}

// InterveningRegion returns the gap strictly between a and b, assuming a
// is before b. It is empty if a and b are adjacent or overlapping.
func InterveningRegion(a, b Contig) Contig {
	if a.End >= b.Begin {
		return Contig{a.End, a.End}
	}
	return Contig{a.End, b.Begin}
}

// EncompassingRegion returns the smallest region containing both a and b.
func EncompassingRegion(a, b Contig) Contig {
	begin := a.Begin
	if b.Begin < begin {
		begin = b.Begin
	}
	end := a.End
	if b.End > end {
		end = b.End
	}
	return Contig{begin, end}
}

// BeginDistance returns b.Begin - a.Begin.
func BeginDistance(a, b Contig) int64 { return b.Begin - a.Begin }

// EndDistance returns b.End - a.End.
func EndDistance(a, b Contig) int64 { return b.End - a.End }

// Expand grows (n > 0) or shrinks (n < 0) r symmetrically by n bases on
// each side. Shrinking past zero size clamps to an empty region centered
// at the original midpoint instead of underflowing.
func Expand(r Contig, n int64) Contig {
	begin := r.Begin - n
	end := r.End + n
	if end < begin {
		mid := (r.Begin + r.End) / 2
		return Contig{mid, mid}
	}
	return Contig{begin, end}
}

// ExpandGenomic applies Expand to the contig-local region of g.
func ExpandGenomic(g Genomic, n int64) Genomic {
	return Genomic{g.Contig, Expand(g.Region, n)}
}
