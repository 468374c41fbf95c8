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

// Package caller drives the per-region pipeline: candidate haplotypes and
// reads in, joint genotype posteriors and calls out. Grounded on
// trio_caller.cpp's TrioCaller::infer_latents/call_variants for the
// overall shape (evaluate a TrioModel over candidate genotypes, then
// marginalise/call), and on elPrep's HaplotypeCaller.CallVariants
// (filters/haplotypecaller.go) for the worker-pool wiring. The joint
// genotype likelihood combination itself (genotypeLogLikelihoods/
// jointPosteriors below) is this package's own synthesis: the pack's
// trio_caller.cpp calls into model::TrioModel::evaluate, whose body is
// not part of the retrieved pack, so there is nothing to transliterate
// there -- what's implemented is the standard population-genetics
// combination (per-read log-likelihood averaged over a genotype's
// haplotypes, summed over reads, combined with a flat germline prior and
// a Mendelian-consistency-gated de novo prior).
package caller

import (
	"bytes"
	"math"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/haplotype"
	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/internal/mathutil"
	"github.com/vargenome/triocaller/likelihood"
	"github.com/vargenome/triocaller/reads"
	"github.com/vargenome/triocaller/region"
	"github.com/vargenome/triocaller/trio"
	"github.com/vargenome/triocaller/vcfcall"
)

// GermlinePriorParams parameterizes the flat per-sample genotype prior,
// per spec.md §4.7 step 2 ("instantiate germline (coalescent) and de novo
// priors parameterized by config"). A single HeterozygosityRate knob is
// kept rather than a full coalescent model, since the pack's TrioModel
// internals that would consume a richer prior are not retrievable.
type GermlinePriorParams struct {
	HeterozygosityRate float64
}

// DenovoPriorParams parameterizes the de novo mutation rate applied to
// child genotypes inconsistent with Mendelian transmission from the
// maternal and paternal genotypes of the same joint entry.
type DenovoPriorParams struct {
	Rate float64
}

// Config carries the caller parameters enumerated in spec.md §6.
type Config struct {
	MaternalPloidy, PaternalPloidy, ChildPloidy uint32
	MinVariantPosterior                         float64
	Germline                                    GermlinePriorParams
	Denovo                                      DenovoPriorParams
	Trio                                        trio.Trio
	UseMappingQuality                           bool
}

func (cfg Config) validate() error {
	if cfg.MaternalPloidy == 0 || cfg.PaternalPloidy == 0 || cfg.ChildPloidy == 0 {
		return &errs.LogicError{Op: "caller.Config", Msg: "every role's ploidy must be > 0"}
	}
	return nil
}

// Region is one calling region's already-assembled input: haplotypes,
// per-sample reads and candidate alleles from upstream collaborators
// (read ingestion, pileup-based candidate discovery and haplotype
// assembly/phasing are out of scope, per spec.md §1/§9).
type Region struct {
	Contig        string
	Span          region.Contig
	Haplotypes    []haplotype.Haplotype
	ReadsBySample map[trio.SampleID][]reads.Read
	Candidates    []allele.Allele
}

// Result is a region's output: the germline and de novo calls produced
// by one pass of CallRegion.
type Result struct {
	Region   region.Contig
	Variants []vcfcall.VariantCall
	Denovos  []vcfcall.DenovoCall
}

// CallRegion implements spec.md §4.7's per-region pipeline using a single
// worker's likelihood.Cache. It returns *errs.ShortHaplotypeError
// unwrapped (via errors.As-compatible typing) when a haplotype needs
// expansion; Pool.Run is responsible for the expand-and-retry loop.
func CallRegion(cfg Config, r Region, cache *likelihood.Cache, registry *vcfcall.Registry) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	pool := trio.Pool{Haplotypes: r.Haplotypes}

	motherGenotypes, err := trio.GenerateAllGenotypes(len(pool.Haplotypes), int(cfg.MaternalPloidy))
	if err != nil {
		return Result{}, err
	}
	fatherGenotypes, err := trio.GenerateAllGenotypes(len(pool.Haplotypes), int(cfg.PaternalPloidy))
	if err != nil {
		return Result{}, err
	}
	childGenotypes, err := trio.GenerateAllGenotypes(len(pool.Haplotypes), int(cfg.ChildPloidy))
	if err != nil {
		return Result{}, err
	}

	motherGL, err := genotypeLogLikelihoods(cache, pool, motherGenotypes, r.ReadsBySample[cfg.Trio.Mother])
	if err != nil {
		return Result{}, err
	}
	fatherGL, err := genotypeLogLikelihoods(cache, pool, fatherGenotypes, r.ReadsBySample[cfg.Trio.Father])
	if err != nil {
		return Result{}, err
	}
	childGL, err := genotypeLogLikelihoods(cache, pool, childGenotypes, r.ReadsBySample[cfg.Trio.Child])
	if err != nil {
		return Result{}, err
	}

	joint := jointPosteriors(cfg, motherGenotypes, fatherGenotypes, childGenotypes, motherGL, fatherGL, childGL)

	called, err := trio.CallTrio(joint)
	if err != nil {
		return Result{}, err
	}

	allelePosteriors := trio.ComputeAllelePosteriors(pool, r.Candidates, joint)
	denovoPosteriors := trio.ComputeDenovoPosteriors(pool, r.Candidates, joint)
	calledAlleles := trio.CallAlleles(pool, allelePosteriors, called, cfg.MinVariantPosterior)
	calledDenovos := trio.CallDenovos(pool, denovoPosteriors, called.Child, cfg.MinVariantPosterior)

	result := Result{Region: r.Span}
	for _, entry := range calledAlleles {
		support, mappingQuals := computeAlleleSupport(entry.Allele, r.ReadsBySample)
		call := vcfcall.VariantCall{
			Region:        entry.Allele.Region,
			Allele:        entry.Allele,
			Posterior:     entry.Posterior,
			MappingQuals:  mappingQuals,
			SupportCounts: support,
		}
		if err := registry.Annotate(vcfcall.KindVariant, &call); err != nil {
			return Result{}, err
		}
		result.Variants = append(result.Variants, call)
	}
	for _, entry := range calledDenovos {
		support, mappingQuals := computeAlleleSupport(entry.Allele, r.ReadsBySample)
		denovo := vcfcall.DenovoCall{VariantCall: vcfcall.VariantCall{
			Region:        entry.Allele.Region,
			Allele:        entry.Allele,
			Posterior:     entry.Posterior,
			MappingQuals:  mappingQuals,
			SupportCounts: support,
		}}
		if err := registry.Annotate(vcfcall.KindDenovo, &denovo.VariantCall); err != nil {
			return Result{}, err
		}
		vcfcall.AnnotateDenovo(&denovo, string(cfg.Trio.Child))
		result.Denovos = append(result.Denovos, denovo)
	}
	return result, nil
}

// computeAlleleSupport tallies, across every sample's reads, how many
// reads are consistent with the called allele versus the total reads
// whose region and bases span the allele's whole region, plus the mapping qualities of the supporting
// reads -- the per-call read evidence annotateMP (RMS mapping quality)
// and AnnotateDenovo's VAF_CR draw on, per elPrep's call-region.go
// deriving its RMS from the reads backing a call rather than from a
// fixed struct field nobody ever populates.
func computeAlleleSupport(a allele.Allele, readsBySample map[trio.SampleID][]reads.Read) (map[string]vcfcall.AlleleSupport, []float64) {
	support := make(map[string]vcfcall.AlleleSupport, len(readsBySample))
	var mappingQuals []float64
	for sample, sampleReads := range readsBySample {
		var s vcfcall.AlleleSupport
		for _, read := range sampleReads {
			if !region.Contains(read.Region, a.Region) {
				continue
			}
			offset := a.Region.Begin - read.Region.Begin
			end := offset + int64(len(a.Sequence))
			if offset < 0 || end > int64(len(read.Sequence)) {
				continue
			}
			s.TotalReads++
			if bytes.Equal(read.Sequence[offset:end], a.Sequence) {
				s.AltReads++
				mappingQuals = append(mappingQuals, read.MappingQuality)
			}
		}
		support[string(sample)] = s
	}
	return support, mappingQuals
}

// genotypeLogLikelihoods scores every candidate genotype against one
// sample's reads: for each read, the per-haplotype log-likelihoods of the
// genotype's own haplotypes are combined by log-sum-exp and normalized by
// ploidy (averaging over which haplotype the read "came from"), then
// summed across reads. This is the step spec.md §4.7 describes as
// "compute read likelihoods per sample" (step 3) feeding the TrioModel
// (step 4).
func genotypeLogLikelihoods(cache *likelihood.Cache, pool trio.Pool, genotypes []trio.Genotype, sampleReads []reads.Read) ([]float64, error) {
	aligned := make([]likelihood.AlignedRead, len(sampleReads))
	for i, read := range sampleReads {
		aligned[i] = read.ForLikelihood()
	}

	// One reset per haplotype (spec.md §4.7 step 3), then every read is
	// scored against it, rather than resetting per (read, haplotype) pair.
	readHapLL := make([][]float64, len(sampleReads))
	for i := range readHapLL {
		readHapLL[i] = make([]float64, len(pool.Haplotypes))
	}
	for hi, h := range pool.Haplotypes {
		if err := resetForHaplotype(cache, h); err != nil {
			return nil, err
		}
		for ri, read := range aligned {
			ll, err := cache.Evaluate(read, nil)
			if err != nil {
				return nil, err
			}
			readHapLL[ri][hi] = ll
		}
	}

	result := make([]float64, len(genotypes))
	for gi, g := range genotypes {
		total := 0.0
		ploidy := float64(g.Ploidy())
		for _, perHap := range readHapLL {
			terms := make([]float64, 0, g.Ploidy())
			for _, idx := range g.Indices() {
				terms = append(terms, perHap[idx])
			}
			total += mathutil.LogSumExp(terms...) - math.Log(ploidy)
		}
		result[gi] = total
	}
	return result, nil
}

func resetForHaplotype(cache *likelihood.Cache, h haplotype.Haplotype) error {
	return likelihood.Reset(cache, h, h.Region, nil)
}

// jointPosteriors combines each role's genotype log-likelihoods with a
// flat germline prior and a Mendelian-consistency-gated de novo prior
// into a normalized joint distribution over (mother, father, child)
// genotype triples.
func jointPosteriors(cfg Config, motherG, fatherG, childG []trio.Genotype, motherGL, fatherGL, childGL []float64) []trio.JointGenotypeProbability {
	motherLogPrior := make([]float64, len(motherG))
	for i, g := range motherG {
		motherLogPrior[i] = math.Log(germlinePriorWeight(cfg.Germline, g))
	}
	fatherLogPrior := make([]float64, len(fatherG))
	for i, g := range fatherG {
		fatherLogPrior[i] = math.Log(germlinePriorWeight(cfg.Germline, g))
	}

	joint := make([]trio.JointGenotypeProbability, 0, len(motherG)*len(fatherG)*len(childG))
	logWeights := make([]float64, 0, cap(joint))

	for mi, m := range motherG {
		for fi, f := range fatherG {
			for ci, c := range childG {
				logTransmission := math.Log(denovoPriorWeight(cfg, m, f, c))
				logWeight := motherGL[mi] + motherLogPrior[mi] + fatherGL[fi] + fatherLogPrior[fi] + childGL[ci] + logTransmission
				joint = append(joint, trio.JointGenotypeProbability{Maternal: m, Paternal: f, Child: c})
				logWeights = append(logWeights, logWeight)
			}
		}
	}

	norm := mathutil.LogSumExp(logWeights...)
	for i := range joint {
		joint[i].Probability = math.Exp(logWeights[i] - norm)
	}
	return joint
}

// germlinePriorWeight assigns homozygous genotypes weight
// (1-HeterozygosityRate) and heterozygous genotypes weight
// HeterozygosityRate, the flat two-class coalescent approximation this
// package substitutes for the pack's unavailable TrioModel prior.
func germlinePriorWeight(p GermlinePriorParams, g trio.Genotype) float64 {
	if isHomozygous(g) {
		return 1 - p.HeterozygosityRate
	}
	return p.HeterozygosityRate
}

func isHomozygous(g trio.Genotype) bool {
	indices := g.Indices()
	for i := 1; i < len(indices); i++ {
		if indices[i] != indices[0] {
			return false
		}
	}
	return true
}

// denovoPriorWeight returns 1-Rate when child is Mendelian-consistent
// with (mother, father) under a diploid transmission model (one
// haplotype inherited from each parent), Rate otherwise. Ploidy
// combinations other than 2/2/2 fall back to a flat weight of 1, since
// diploid transmission is the only meiosis model this package encodes.
func denovoPriorWeight(cfg Config, mother, father, child trio.Genotype) float64 {
	if mother.Ploidy() != 2 || father.Ploidy() != 2 || child.Ploidy() != 2 {
		return 1
	}
	if isMendelianConsistent(mother, father, child) {
		return 1 - cfg.Denovo.Rate
	}
	return cfg.Denovo.Rate
}

// isMendelianConsistent reports whether child's two haplotype indices can
// be split one-per-parent: one equal to one of mother's indices, the
// other equal to one of father's.
func isMendelianConsistent(mother, father, child trio.Genotype) bool {
	c := child.Indices()
	a, b := c[0], c[1]
	fromMother := func(i int) bool { return mother.ContainsHaplotype(i) }
	fromFather := func(i int) bool { return father.ContainsHaplotype(i) }
	if fromMother(a) && fromFather(b) {
		return true
	}
	if fromMother(b) && fromFather(a) {
		return true
	}
	return false
}
