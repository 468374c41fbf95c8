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

// triocall is the CLI entry point wiring caller.Pool end to end, in the
// style of elPrep's cmd/filter.go: stdlib flag parsing, no subcommand
// framework. Alignment-file ingestion, pileup-based candidate discovery
// and haplotype assembly/phasing are out of scope (spec.md §1/§9 treat
// them as external collaborators), so this binary reads a small flat
// fixture format instead of BAM/FASTA -- enough to drive the core
// end-to-end without reimplementing a file format this module was never
// asked to own.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/caller"
	"github.com/vargenome/triocaller/errormodel"
	"github.com/vargenome/triocaller/haplotype"
	"github.com/vargenome/triocaller/likelihood"
	"github.com/vargenome/triocaller/reads"
	"github.com/vargenome/triocaller/refgenome"
	"github.com/vargenome/triocaller/region"
	"github.com/vargenome/triocaller/trio"
	"github.com/vargenome/triocaller/vcfcall"
)

const programMessage = "triocall: a trio-aware germline/de novo variant caller, built on a banded pair-HMM likelihood core."

func main() {
	fmt.Fprintln(os.Stderr, programMessage)
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	fixturePath := flag.String("fixture", "", "path to a REF/READ/CANDIDATE fixture file (required)")
	mother := flag.String("mother", "mother", "mother sample name")
	father := flag.String("father", "father", "father sample name")
	child := flag.String("child", "child", "child sample name")
	maternalPloidy := flag.Uint("maternal-ploidy", 2, "mother's ploidy")
	paternalPloidy := flag.Uint("paternal-ploidy", 2, "father's ploidy")
	childPloidy := flag.Uint("child-ploidy", 2, "child's ploidy")
	minPosterior := flag.Float64("min-variant-posterior", 3.0, "minimum phred-scaled posterior for a call to be emitted")
	heterozygosityRate := flag.Float64("heterozygosity-rate", 0.1, "flat germline prior weight assigned to heterozygous founder genotypes")
	denovoRate := flag.Float64("denovo-rate", 1e-8, "de novo mutation rate gating child genotypes inconsistent with Mendelian transmission")
	useMappingQuality := flag.Bool("use-mapping-quality", true, "fold mapping quality into read likelihoods")
	workers := flag.Int("workers", 0, "number of calling workers (0 = GOMAXPROCS)")
	flag.Parse()

	if *fixturePath == "" {
		flag.Usage()
		return fmt.Errorf("triocall: -fixture is required")
	}

	fixture, err := loadFixture(*fixturePath)
	if err != nil {
		return fmt.Errorf("loading fixture: %w", err)
	}

	haplotypes, err := buildHaplotypes(fixture.contig, fixture.span, fixture.candidates, fixture.genome)
	if err != nil {
		return fmt.Errorf("building haplotypes: %w", err)
	}

	cfg := caller.Config{
		MaternalPloidy:       uint32(*maternalPloidy),
		PaternalPloidy:       uint32(*paternalPloidy),
		ChildPloidy:          uint32(*childPloidy),
		MinVariantPosterior:  *minPosterior,
		Germline:             caller.GermlinePriorParams{HeterozygosityRate: *heterozygosityRate},
		Denovo:               caller.DenovoPriorParams{Rate: *denovoRate},
		Trio:                 trio.Trio{Mother: trio.SampleID(*mother), Father: trio.SampleID(*father), Child: trio.SampleID(*child)},
		UseMappingQuality:    *useMappingQuality,
	}

	registry := vcfcall.NewRegistry()
	if err := vcfcall.RegisterBuiltins(registry); err != nil {
		return fmt.Errorf("registering annotators: %w", err)
	}

	indelModel := errormodel.NewDefaultTandemRepeatIndelModel()
	pool := caller.NewPool(cfg, registry, *workers, func() *likelihood.Cache {
		return likelihood.NewCache(nil, indelModel, *useMappingQuality)
	})

	results, err := pool.Run([]caller.Region{{
		Contig:        fixture.contig,
		Span:          fixture.span,
		Haplotypes:    haplotypes,
		ReadsBySample: fixture.readsBySample,
		Candidates:    fixture.candidates,
	}}, nil)
	if err != nil {
		return fmt.Errorf("running caller pool: %w", err)
	}

	for _, result := range results {
		for _, v := range result.Variants {
			fmt.Printf("VARIANT\t%s\t%d\t%d\t%s\t%.2f\n", fixture.contig, v.Allele.Region.Begin, v.Allele.Region.End, string(v.Allele.Sequence), v.Posterior)
		}
		for _, d := range result.Denovos {
			fmt.Printf("DENOVO\t%s\t%d\t%d\t%s\t%.2f\n", fixture.contig, d.Allele.Region.Begin, d.Allele.Region.End, string(d.Allele.Sequence), d.Posterior)
		}
	}
	return nil
}

// fixture is the parsed contents of a -fixture file.
type fixture struct {
	contig        string
	span          region.Contig
	genome        *refgenome.Genome
	readsBySample map[trio.SampleID][]reads.Read
	candidates    []allele.Allele
}

// loadFixture parses a minimal line-oriented test format:
//
//	REF <contig> <sequence>
//	READ <sample> <begin> <mapping-quality> <sequence> <comma-separated base qualities>
//	CANDIDATE <begin> <end> <sequence>
//
// "-" as a CANDIDATE's sequence denotes an empty sequence (a deletion); an
// insertion is written with end equal to begin.
func loadFixture(path string) (*fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fx := &fixture{readsBySample: make(map[trio.SampleID][]reads.Read)}
	var contigSeq []byte

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "REF":
			if len(fields) != 3 {
				return nil, fmt.Errorf("REF: expected 2 fields, got %d", len(fields)-1)
			}
			fx.contig = fields[1]
			contigSeq = []byte(fields[2])
		case "READ":
			if len(fields) != 6 {
				return nil, fmt.Errorf("READ: expected 5 fields, got %d", len(fields)-1)
			}
			r, err := parseRead(fields[1:])
			if err != nil {
				return nil, err
			}
			fx.readsBySample[trio.SampleID(fields[1])] = append(fx.readsBySample[trio.SampleID(fields[1])], r)
		case "CANDIDATE":
			if len(fields) != 4 {
				return nil, fmt.Errorf("CANDIDATE: expected 3 fields, got %d", len(fields)-1)
			}
			a, err := parseCandidate(fields[1:])
			if err != nil {
				return nil, err
			}
			fx.candidates = append(fx.candidates, a)
		default:
			return nil, fmt.Errorf("unrecognized fixture line: %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if fx.contig == "" {
		return nil, fmt.Errorf("fixture has no REF line")
	}

	fx.genome = refgenome.New(map[string][]byte{fx.contig: contigSeq})
	fx.span = region.Contig{Begin: 0, End: int64(len(contigSeq))}
	sort.Slice(fx.candidates, func(i, j int) bool { return fx.candidates[i].Region.Begin < fx.candidates[j].Region.Begin })
	return fx, nil
}

func parseRead(fields []string) (reads.Read, error) {
	begin, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return reads.Read{}, fmt.Errorf("READ begin: %w", err)
	}
	mapq, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return reads.Read{}, fmt.Errorf("READ mapping quality: %w", err)
	}
	sequence := []byte(fields[3])
	quals, err := parseQualities(fields[4])
	if err != nil {
		return reads.Read{}, err
	}
	return reads.Read{
		Name:           fields[0],
		Region:         region.Contig{Begin: begin, End: begin + int64(len(sequence))},
		MappingQuality: mapq,
		Sequence:       sequence,
		BaseQualities:  quals,
	}, nil
}

func parseQualities(field string) ([]float64, error) {
	parts := strings.Split(field, ",")
	quals := make([]float64, len(parts))
	for i, p := range parts {
		q, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("base quality %q: %w", p, err)
		}
		quals[i] = q
	}
	return quals, nil
}

func parseCandidate(fields []string) (allele.Allele, error) {
	begin, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return allele.Allele{}, fmt.Errorf("CANDIDATE begin: %w", err)
	}
	end, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return allele.Allele{}, fmt.Errorf("CANDIDATE end: %w", err)
	}
	sequence := fields[2]
	if sequence == "-" {
		sequence = ""
	}
	return allele.New(region.Contig{Begin: begin, End: end}, []byte(sequence)), nil
}

// buildHaplotypes builds a reference-only haplotype plus one alt
// haplotype per candidate allele. Real haplotype assembly (combining
// multiple candidates into complex local rearrangements, phasing) is an
// external collaborator per spec.md §9; this is the minimal candidate
// set needed to exercise genotype enumeration end-to-end.
func buildHaplotypes(contig string, span region.Contig, candidates []allele.Allele, genome *refgenome.Genome) ([]haplotype.Haplotype, error) {
	refHap, err := haplotype.New(contig, span, nil, genome)
	if err != nil {
		return nil, err
	}
	result := []haplotype.Haplotype{refHap}
	for _, a := range candidates {
		h, err := haplotype.New(contig, span, []allele.Allele{a}, genome)
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, nil
}
