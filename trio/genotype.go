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

// Package trio implements TrioModel posterior processing: marginalizing
// a joint (maternal, paternal, child) genotype posterior into per-role
// marginals, haplotype/allele/de-novo phred posteriors, and the final
// trio/allele/genotype calls. Grounded on the free functions in
// _examples/original_source/src/core/callers/trio_caller.cpp
// (marginalise, fill_missing_genotypes, compute_posterior, call_trio,
// call_alleles, compute_denovo_posterior(s), call_denovos,
// call_genotypes), generalized from C++ template helpers keyed on
// Genotype<Haplotype>/Genotype<Allele> to a single pool-index
// representation.
package trio

import (
	"sort"

	"github.com/willf/bitset"
	"gonum.org/v1/gonum/stat/combin"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/haplotype"
	"github.com/vargenome/triocaller/internal/errs"
)

// Pool is the region-scoped arena of haplotypes every Genotype
// references by index, per spec.md §9's design note that genotype
// references must be arena indices, never raw pointers/borrows.
type Pool struct {
	Haplotypes []haplotype.Haplotype
}

// Genotype is an unordered multiset of haplotypes of fixed ploidy,
// represented as a sorted slice of Pool indices (duplicates allowed, for
// homozygous calls) plus a membership bitset over the pool's index
// domain. The bitset makes "does this genotype carry haplotype i"-style
// tests, which §4.6's haplotype/allele posterior accumulation does
// repeatedly across every joint entry, a bitwise test rather than a scan
// of the index slice.
type Genotype struct {
	indices    []int
	membership *bitset.BitSet
}

// NewGenotype builds a Genotype from pool indices; ploidy is len(indices).
func NewGenotype(poolSize int, indices []int) Genotype {
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	bs := bitset.New(uint(poolSize))
	for _, i := range sorted {
		bs.Set(uint(i))
	}
	return Genotype{indices: sorted, membership: bs}
}

// Ploidy returns the number of haplotypes (with multiplicity) in g.
func (g Genotype) Ploidy() int { return len(g.indices) }

// Indices returns g's sorted pool indices, with multiplicity.
func (g Genotype) Indices() []int { return g.indices }

// Membership returns the bitset of pool indices g carries (without
// multiplicity), for callers that need to combine membership across
// several genotypes (e.g. haplotype posterior accumulation).
func (g Genotype) Membership() *bitset.BitSet { return g.membership }

// ContainsHaplotype reports whether pool index i is one of g's haplotypes.
func (g Genotype) ContainsHaplotype(i int) bool {
	return g.membership.Test(uint(i))
}

// Includes reports whether any haplotype in g includes a, per the pool.
func (g Genotype) Includes(pool Pool, a allele.Allele) bool {
	for i, ok := g.membership.NextSet(0); ok; i, ok = g.membership.NextSet(i + 1) {
		if pool.Haplotypes[i].Includes(a) {
			return true
		}
	}
	return false
}

// Less defines the total order the marginalization sort-then-group
// pattern needs over genotypes of equal ploidy: lexicographic over
// sorted pool indices, per spec.md §9's "define the order on the
// sequence of haplotype references (by hash or arena index)" note.
func Less(a, b Genotype) bool {
	for i := 0; i < len(a.indices) && i < len(b.indices); i++ {
		if a.indices[i] != b.indices[i] {
			return a.indices[i] < b.indices[i]
		}
	}
	return len(a.indices) < len(b.indices)
}

// Equal reports whether a and b hold the same multiset of pool indices.
func Equal(a, b Genotype) bool {
	if len(a.indices) != len(b.indices) {
		return false
	}
	for i := range a.indices {
		if a.indices[i] != b.indices[i] {
			return false
		}
	}
	return true
}

// GenerateAllGenotypes enumerates every ploidy-sized multiset of indices
// into a pool of poolSize haplotypes (generate_all_genotypes in the
// original): combinations with repetition. A k-multicombination of n
// items is obtained from an ordinary k-combination of n+k-1 items by
// subtracting each position's index in the combination (the standard
// stars-and-bars transform), so the enumeration itself is
// combin.Combinations rather than a hand-rolled nested loop, per
// SPEC_FULL.md's DOMAIN STACK entry for gonum/stat/combin.
func GenerateAllGenotypes(poolSize, ploidy int) ([]Genotype, error) {
	if ploidy <= 0 {
		return nil, &errs.LogicError{Op: "GenerateAllGenotypes", Msg: "ploidy must be > 0"}
	}
	if poolSize <= 0 {
		return nil, &errs.LogicError{Op: "GenerateAllGenotypes", Msg: "pool must be non-empty"}
	}
	combos := combin.Combinations(poolSize+ploidy-1, ploidy)
	genotypes := make([]Genotype, len(combos))
	for gi, combo := range combos {
		indices := make([]int, ploidy)
		for i, c := range combo {
			indices[i] = c - i
		}
		genotypes[gi] = NewGenotype(poolSize, indices)
	}
	return genotypes, nil
}
