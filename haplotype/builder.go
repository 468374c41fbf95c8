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

package haplotype

import (
	"bytes"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/region"
)

// Builder accumulates explicit alleles via PushBack/PushFront and
// materializes a Haplotype on Build. Between out-of-order pushes it
// fails; between non-adjacent pushes on the same side it fetches the
// intervening reference interval from the ReferenceFetcher and inserts it
// as an implicit reference allele, preserving the non-overlap invariant.
type Builder struct {
	contig          string
	region          region.Contig
	explicitAlleles []allele.Allele
	reference       ReferenceFetcher
}

// NewBuilder starts a Builder seeded with the target region; the region
// grows to encompass any allele pushed outside it.
func NewBuilder(contig string, seed region.Contig, reference ReferenceFetcher) *Builder {
	return &Builder{contig: contig, region: seed, reference: reference}
}

func (b *Builder) interveningReferenceAllele(lhs, rhs region.Contig) (allele.Allele, error) {
	gap := region.InterveningRegion(lhs, rhs)
	bases, err := b.reference.FetchSequence(b.contig, gap)
	if err != nil {
		return allele.Allele{}, err
	}
	return allele.New(gap, bases), nil
}

// PushBack appends a, which must begin at or after the end of the last
// pushed allele.
func (b *Builder) PushBack(a allele.Allele) error {
	if n := len(b.explicitAlleles); n > 0 {
		last := b.explicitAlleles[n-1]
		if !region.IsAfter(a.Region, last.Region) {
			return &errs.LogicError{Op: "Haplotype.Builder.PushBack", Msg: "out-of-order allele push"}
		}
		if !region.AreAdjacent(last.Region, a.Region) {
			gap, err := b.interveningReferenceAllele(last.Region, a.Region)
			if err != nil {
				return err
			}
			b.explicitAlleles = append(b.explicitAlleles, gap)
		}
	}
	b.region = region.EncompassingRegion(b.region, a.Region)
	b.explicitAlleles = append(b.explicitAlleles, a)
	return nil
}

// PushFront prepends a, which must end at or before the start of the
// first pushed allele.
func (b *Builder) PushFront(a allele.Allele) error {
	if n := len(b.explicitAlleles); n > 0 {
		first := b.explicitAlleles[0]
		if !region.IsAfter(first.Region, a.Region) {
			return &errs.LogicError{Op: "Haplotype.Builder.PushFront", Msg: "out-of-order allele push"}
		}
		if !region.AreAdjacent(a.Region, first.Region) {
			gap, err := b.interveningReferenceAllele(a.Region, first.Region)
			if err != nil {
				return err
			}
			b.explicitAlleles = append([]allele.Allele{gap}, b.explicitAlleles...)
		}
	}
	b.region = region.EncompassingRegion(b.region, a.Region)
	b.explicitAlleles = append([]allele.Allele{a}, b.explicitAlleles...)
	return nil
}

// buildSequence stitches leading/trailing reference flanks around the
// already-gapless explicit allele list into the haplotype's full
// materialized sequence.
func buildSequence(reference ReferenceFetcher, contig string, r region.Contig, explicitAlleles []allele.Allele) ([]byte, error) {
	var buf bytes.Buffer
	cursor := r.Begin
	for _, a := range explicitAlleles {
		if a.Region.Begin > cursor {
			bases, err := reference.FetchSequence(contig, region.Contig{Begin: cursor, End: a.Region.Begin})
			if err != nil {
				return nil, err
			}
			buf.Write(bases)
		}
		buf.Write(a.Sequence)
		if a.Region.End > cursor {
			cursor = a.Region.End
		}
	}
	if cursor < r.End {
		bases, err := reference.FetchSequence(contig, region.Contig{Begin: cursor, End: r.End})
		if err != nil {
			return nil, err
		}
		buf.Write(bases)
	}
	return buf.Bytes(), nil
}

// Build materializes the accumulated alleles into a Haplotype.
func (b *Builder) Build() (Haplotype, error) {
	seq, err := buildSequence(b.reference, b.contig, b.region, b.explicitAlleles)
	if err != nil {
		return Haplotype{}, err
	}

	explicitRegion := region.Contig{Begin: b.region.Begin, End: b.region.Begin}
	if n := len(b.explicitAlleles); n > 0 {
		explicitRegion = region.Contig{Begin: b.explicitAlleles[0].Region.Begin, End: b.explicitAlleles[n-1].Region.End}
	}

	alleles := make([]allele.Allele, len(b.explicitAlleles))
	copy(alleles, b.explicitAlleles)

	return Haplotype{
		Contig:               b.contig,
		Region:               b.region,
		ExplicitAlleles:      alleles,
		ExplicitAlleleRegion: explicitRegion,
		sequence:             seq,
		reference:            b.reference,
	}, nil
}
