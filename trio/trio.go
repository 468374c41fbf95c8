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

package trio

import (
	"sort"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/internal/mathutil"
	"github.com/vargenome/triocaller/region"
)

// SampleID names one member of a trio.
type SampleID string

// Trio names the three samples a TrioModel call is evaluated over.
type Trio struct {
	Mother, Father, Child SampleID
}

// JointGenotypeProbability is one entry of a TrioModel's evaluated joint
// posterior: linear-space probability mass on one (maternal, paternal,
// child) genotype combination. The full evaluated set sums to 1.
type JointGenotypeProbability struct {
	Maternal, Paternal, Child Genotype
	Probability               float64
}

// GenotypeProbability is one role's marginal posterior entry.
type GenotypeProbability struct {
	Genotype    Genotype
	Probability float64
}

func marginalize(joint []JointGenotypeProbability, role func(JointGenotypeProbability) Genotype, all []Genotype) []GenotypeProbability {
	sorted := append([]JointGenotypeProbability(nil), joint...)
	sort.Slice(sorted, func(i, j int) bool { return Less(role(sorted[i]), role(sorted[j])) })

	var result []GenotypeProbability
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && Equal(role(sorted[j]), role(sorted[i])) {
			j++
		}
		sum := 0.0
		for _, p := range sorted[i:j] {
			sum += p.Probability
		}
		result = append(result, GenotypeProbability{Genotype: role(sorted[i]), Probability: sum})
		i = j
	}
	return fillMissingGenotypes(result, all)
}

// fillMissingGenotypes fills in a zero-probability entry for every
// genotype in all that posteriors does not already cover (§4.6's "fill
// in zero-probability entries... using set difference against the
// sorted G"), via a merge walk over two independently sorted copies.
func fillMissingGenotypes(posteriors []GenotypeProbability, all []Genotype) []GenotypeProbability {
	sortedAll := append([]Genotype(nil), all...)
	sort.Slice(sortedAll, func(i, j int) bool { return Less(sortedAll[i], sortedAll[j]) })
	sortedPosteriors := append([]GenotypeProbability(nil), posteriors...)
	sort.Slice(sortedPosteriors, func(i, j int) bool { return Less(sortedPosteriors[i].Genotype, sortedPosteriors[j].Genotype) })

	result := append([]GenotypeProbability(nil), posteriors...)
	i := 0
	for _, g := range sortedAll {
		for i < len(sortedPosteriors) && Less(sortedPosteriors[i].Genotype, g) {
			i++
		}
		if i < len(sortedPosteriors) && Equal(sortedPosteriors[i].Genotype, g) {
			continue
		}
		result = append(result, GenotypeProbability{Genotype: g, Probability: 0})
	}
	return result
}

// MarginalizeMaternal sums joint over the maternal role, filling in every
// genotype in all (the full candidate set G) absent from the result.
func MarginalizeMaternal(joint []JointGenotypeProbability, all []Genotype) []GenotypeProbability {
	return marginalize(joint, func(p JointGenotypeProbability) Genotype { return p.Maternal }, all)
}

// MarginalizePaternal is MarginalizeMaternal's paternal-role counterpart.
func MarginalizePaternal(joint []JointGenotypeProbability, all []Genotype) []GenotypeProbability {
	return marginalize(joint, func(p JointGenotypeProbability) Genotype { return p.Paternal }, all)
}

// MarginalizeChild is MarginalizeMaternal's child-role counterpart.
func MarginalizeChild(joint []JointGenotypeProbability, all []Genotype) []GenotypeProbability {
	return marginalize(joint, func(p JointGenotypeProbability) Genotype { return p.Child }, all)
}

// HaplotypePosteriors returns, for each of poolSize haplotypes, the sum
// of joint probability mass over entries where that haplotype appears in
// any of the three roles. Each joint entry's three genotype membership
// bitsets are unioned once and then walked via NextSet, rather than
// testing every pool index against every entry.
func HaplotypePosteriors(poolSize int, joint []JointGenotypeProbability) []float64 {
	out := make([]float64, poolSize)
	for _, p := range joint {
		union := p.Maternal.membership.Union(p.Paternal.membership).Union(p.Child.membership)
		for i, ok := union.NextSet(0); ok; i, ok = union.NextSet(i + 1) {
			out[i] += p.Probability
		}
	}
	return out
}

// AllelePosterior returns PHRED(Σ { p_i : a absent from all three roles
// of joint entry i }), per §4.6's allele posterior definition.
func AllelePosterior(pool Pool, a allele.Allele, joint []JointGenotypeProbability) float64 {
	absent := 0.0
	for _, p := range joint {
		if !p.Maternal.Includes(pool, a) && !p.Paternal.Includes(pool, a) && !p.Child.Includes(pool, a) {
			absent += p.Probability
		}
	}
	return mathutil.ProbabilityToPhred(absent)
}

// DenovoPosterior returns PHRED(Σ { p_i : ¬(a is de novo in entry i) }),
// where a is de novo in an entry when the child's genotype includes a
// but neither parent's does.
func DenovoPosterior(pool Pool, a allele.Allele, joint []JointGenotypeProbability) float64 {
	notDenovo := 0.0
	for _, p := range joint {
		isDenovo := p.Child.Includes(pool, a) && !p.Maternal.Includes(pool, a) && !p.Paternal.Includes(pool, a)
		if !isDenovo {
			notDenovo += p.Probability
		}
	}
	return mathutil.ProbabilityToPhred(notDenovo)
}

// AllelePosteriorEntry pairs an allele with a phred posterior (either the
// plain allele posterior or the de novo posterior, depending on which
// Compute* function produced it).
type AllelePosteriorEntry struct {
	Allele    allele.Allele
	Posterior float64
}

// ComputeAllelePosteriors runs AllelePosterior over every allele in alleles.
func ComputeAllelePosteriors(pool Pool, alleles []allele.Allele, joint []JointGenotypeProbability) []AllelePosteriorEntry {
	out := make([]AllelePosteriorEntry, len(alleles))
	for i, a := range alleles {
		out[i] = AllelePosteriorEntry{Allele: a, Posterior: AllelePosterior(pool, a, joint)}
	}
	return out
}

// ComputeDenovoPosteriors runs DenovoPosterior over every allele in alleles.
func ComputeDenovoPosteriors(pool Pool, alleles []allele.Allele, joint []JointGenotypeProbability) []AllelePosteriorEntry {
	out := make([]AllelePosteriorEntry, len(alleles))
	for i, a := range alleles {
		out[i] = AllelePosteriorEntry{Allele: a, Posterior: DenovoPosterior(pool, a, joint)}
	}
	return out
}

// CalledTrio is the single joint entry selected by CallTrio: the genotype
// triple that maximizes joint probability.
type CalledTrio struct {
	Mother, Father, Child Genotype
}

// CallTrio selects the joint entry with maximum probability. The Octopus
// original's call_trio passes std::max_element a (begin, begin) range,
// an empty range whose "max" is always the first element regardless of
// the rest of the posterior; this walks the full (0, len(joint)) range,
// per spec.md §9's resolved Open Question.
func CallTrio(joint []JointGenotypeProbability) (CalledTrio, error) {
	if len(joint) == 0 {
		return CalledTrio{}, &errs.LogicError{Op: "CallTrio", Msg: "empty joint posterior"}
	}
	best := joint[0]
	for _, p := range joint[1:] {
		if p.Probability > best.Probability {
			best = p
		}
	}
	return CalledTrio{Mother: best.Maternal, Father: best.Paternal, Child: best.Child}, nil
}

// CallAlleles returns the entries of posteriors at or above minPosterior
// whose allele is included in at least one of called's three genotypes.
func CallAlleles(pool Pool, posteriors []AllelePosteriorEntry, called CalledTrio, minPosterior float64) []AllelePosteriorEntry {
	var out []AllelePosteriorEntry
	for _, p := range posteriors {
		if p.Posterior < minPosterior {
			continue
		}
		if called.Mother.Includes(pool, p.Allele) || called.Father.Includes(pool, p.Allele) || called.Child.Includes(pool, p.Allele) {
			out = append(out, p)
		}
	}
	return out
}

// CallDenovos returns the entries of denovoPosteriors at or above
// minPosterior whose allele is included in the called child genotype.
func CallDenovos(pool Pool, denovoPosteriors []AllelePosteriorEntry, calledChild Genotype, minPosterior float64) []AllelePosteriorEntry {
	var out []AllelePosteriorEntry
	for _, p := range denovoPosteriors {
		if p.Posterior >= minPosterior && calledChild.Includes(pool, p.Allele) {
			out = append(out, p)
		}
	}
	return out
}

func spliceGenotypeAlleles(pool Pool, g Genotype, r region.Contig) ([]allele.Allele, error) {
	alleles := make([]allele.Allele, 0, len(g.indices))
	for _, idx := range g.indices {
		spliced, err := pool.Haplotypes[idx].Splice(r)
		if err != nil {
			return nil, err
		}
		alleles = append(alleles, allele.New(spliced.Region, spliced.Sequence()))
	}
	sort.Slice(alleles, func(i, j int) bool {
		if alleles[i].Region.Begin != alleles[j].Region.Begin {
			return alleles[i].Region.Begin < alleles[j].Region.Begin
		}
		return alleles[i].Region.End < alleles[j].Region.End
	})
	return alleles, nil
}

func allelesEqual(a, b []allele.Allele) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !allele.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// GenotypeCall is a per-sample genotype posterior over a region: the
// spliced allele genotype called, plus the phred-scaled complement mass
// accumulated over that sample's genotype marginal (§4.6's per-sample
// genotype posterior).
type GenotypeCall struct {
	Alleles   []allele.Allele
	Posterior float64
}

// GenotypePosterior splices calledGenotype to r and phred-sums the
// complement mass in marginal: every marginal entry whose own splice to r
// disagrees with the called splice contributes its probability.
func GenotypePosterior(pool Pool, calledGenotype Genotype, marginal []GenotypeProbability, r region.Contig) (GenotypeCall, error) {
	calledAlleles, err := spliceGenotypeAlleles(pool, calledGenotype, r)
	if err != nil {
		return GenotypeCall{}, err
	}
	complement := 0.0
	for _, gp := range marginal {
		alleles, err := spliceGenotypeAlleles(pool, gp.Genotype, r)
		if err != nil {
			return GenotypeCall{}, err
		}
		if !allelesEqual(alleles, calledAlleles) {
			complement += gp.Probability
		}
	}
	return GenotypeCall{Alleles: calledAlleles, Posterior: mathutil.ProbabilityToPhred(complement)}, nil
}

// TrioGenotypeCalls is one region's per-sample genotype calls.
type TrioGenotypeCalls struct {
	Region                region.Contig
	Mother, Father, Child GenotypeCall
}

// CallGenotypes runs GenotypePosterior for each sample over every region
// in regions (typically the regions of the called de novo alleles).
func CallGenotypes(pool Pool, called CalledTrio, motherMarginal, fatherMarginal, childMarginal []GenotypeProbability, regions []region.Contig) ([]TrioGenotypeCalls, error) {
	out := make([]TrioGenotypeCalls, len(regions))
	for i, r := range regions {
		mother, err := GenotypePosterior(pool, called.Mother, motherMarginal, r)
		if err != nil {
			return nil, err
		}
		father, err := GenotypePosterior(pool, called.Father, fatherMarginal, r)
		if err != nil {
			return nil, err
		}
		child, err := GenotypePosterior(pool, called.Child, childMarginal, r)
		if err != nil {
			return nil, err
		}
		out[i] = TrioGenotypeCalls{Region: r, Mother: mother, Father: father, Child: child}
	}
	return out, nil
}
