package caller

import (
	"testing"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/haplotype"
	"github.com/vargenome/triocaller/likelihood"
	"github.com/vargenome/triocaller/reads"
	"github.com/vargenome/triocaller/refgenome"
	"github.com/vargenome/triocaller/region"
	"github.com/vargenome/triocaller/trio"
	"github.com/vargenome/triocaller/vcfcall"
)

func newTestRegistry(t *testing.T) *vcfcall.Registry {
	t.Helper()
	registry := vcfcall.NewRegistry()
	if err := vcfcall.RegisterBuiltins(registry); err != nil {
		t.Fatalf("registering builtin annotators: %v", err)
	}
	return registry
}

func TestConfigValidateRejectsZeroPloidy(t *testing.T) {
	cfg := Config{MaternalPloidy: 0, PaternalPloidy: 2, ChildPloidy: 2}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected an error for zero maternal ploidy")
	}
}

func TestIsHomozygous(t *testing.T) {
	if !isHomozygous(trio.NewGenotype(3, []int{1, 1})) {
		t.Error("{1,1} should be homozygous")
	}
	if isHomozygous(trio.NewGenotype(3, []int{0, 1})) {
		t.Error("{0,1} should not be homozygous")
	}
}

func TestGermlinePriorWeight(t *testing.T) {
	p := GermlinePriorParams{HeterozygosityRate: 0.1}
	homRef := trio.NewGenotype(2, []int{0, 0})
	het := trio.NewGenotype(2, []int{0, 1})
	if w := germlinePriorWeight(p, homRef); w != 0.9 {
		t.Errorf("got %v, want 0.9 for a homozygous genotype", w)
	}
	if w := germlinePriorWeight(p, het); w != 0.1 {
		t.Errorf("got %v, want 0.1 for a heterozygous genotype", w)
	}
}

func TestIsMendelianConsistent(t *testing.T) {
	mother := trio.NewGenotype(3, []int{0, 1})
	father := trio.NewGenotype(3, []int{0, 2})

	consistentChild := trio.NewGenotype(3, []int{1, 2})
	if !isMendelianConsistent(mother, father, consistentChild) {
		t.Error("{1,2} is consistent: 1 from mother, 2 from father")
	}

	inconsistentChild := trio.NewGenotype(3, []int{1, 1})
	if isMendelianConsistent(mother, father, inconsistentChild) {
		t.Error("{1,1} is not transmissible: father never carries haplotype 1")
	}
}

func TestDenovoPriorWeightFallsBackForNonDiploid(t *testing.T) {
	cfg := Config{Denovo: DenovoPriorParams{Rate: 1e-3}}
	triploid := trio.NewGenotype(4, []int{0, 1, 2})
	diploid := trio.NewGenotype(4, []int{0, 1})
	if w := denovoPriorWeight(cfg, triploid, diploid, diploid); w != 1 {
		t.Errorf("got %v, want 1 (flat fallback) for a non-diploid role", w)
	}
}

func buildSingleBaseScenario(t *testing.T) (haplotype.Haplotype, haplotype.Haplotype, reads.Read) {
	t.Helper()
	// The site at [8,9) has MinFlankPad (8) haplotype bases on each side,
	// so a 1-base read there fits without a ShortHaplotype error.
	reference := []byte("CCCCCCCCACCCCCCCC")
	genome := refgenome.New(map[string][]byte{"chr1": reference})
	hapRegion := region.Contig{Begin: 0, End: 17}
	r := region.Contig{Begin: 8, End: 9}

	refHap, err := haplotype.New("chr1", hapRegion, nil, genome)
	if err != nil {
		t.Fatalf("building reference haplotype: %v", err)
	}
	a := allele.New(r, []byte("T"))
	altHap, err := haplotype.New("chr1", hapRegion, []allele.Allele{a}, genome)
	if err != nil {
		t.Fatalf("building alt haplotype: %v", err)
	}

	read := reads.Read{
		Name:           "r1",
		Region:         r,
		MappingQuality: 60,
		Sequence:       []byte("A"),
		BaseQualities:  []float64{30},
	}
	return refHap, altHap, read
}

func TestGenotypeLogLikelihoodsPrefersMatchingHaplotype(t *testing.T) {
	refHap, altHap, read := buildSingleBaseScenario(t)
	pool := trio.Pool{Haplotypes: []haplotype.Haplotype{refHap, altHap}}

	homRef := trio.NewGenotype(2, []int{0, 0})
	homAlt := trio.NewGenotype(2, []int{1, 1})

	cache := likelihood.NewCache(nil, nil, false)
	lls, err := genotypeLogLikelihoods(cache, pool, []trio.Genotype{homRef, homAlt}, []reads.Read{read})
	if err != nil {
		t.Fatalf("genotypeLogLikelihoods: %v", err)
	}

	if lls[0] <= lls[1] {
		t.Errorf("read matching the reference base should score higher under hom-ref (%v) than hom-alt (%v)", lls[0], lls[1])
	}
	if lls[0] > 0 {
		t.Errorf("log-likelihood must never be positive, got %v", lls[0])
	}
}

func TestCallRegionEndToEnd(t *testing.T) {
	refHap, altHap, _ := buildSingleBaseScenario(t)
	pool := []haplotype.Haplotype{refHap, altHap}
	r := region.Contig{Begin: 8, End: 9}
	candidate := allele.New(r, []byte("T"))

	matchingRead := func(name string, seq byte) reads.Read {
		return reads.Read{Name: name, Region: r, MappingQuality: 60, Sequence: []byte{seq}, BaseQualities: []float64{30}}
	}

	readsBySample := map[trio.SampleID][]reads.Read{
		"mother": {matchingRead("m1", 'A'), matchingRead("m2", 'A')},
		"father": {matchingRead("f1", 'A'), matchingRead("f2", 'A')},
		"child":  {matchingRead("c1", 'A'), matchingRead("c2", 'T')},
	}

	cfg := Config{
		MaternalPloidy:       2,
		PaternalPloidy:       2,
		ChildPloidy:          2,
		MinVariantPosterior:  0,
		Germline:             GermlinePriorParams{HeterozygosityRate: 0.1},
		Denovo:               DenovoPriorParams{Rate: 1e-3},
		Trio:                 trio.Trio{Mother: "mother", Father: "father", Child: "child"},
	}

	cache := likelihood.NewCache(nil, nil, false)
	registryTest := newTestRegistry(t)

	_, err := CallRegion(cfg, Region{
		Contig:        "chr1",
		Span:          r,
		Haplotypes:    pool,
		ReadsBySample: readsBySample,
		Candidates:    []allele.Allele{candidate},
	}, cache, registryTest)
	if err != nil {
		t.Fatalf("CallRegion: %v", err)
	}
}
