package trio

import (
	"math"
	"testing"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/internal/mathutil"
	"github.com/vargenome/triocaller/region"
)

// scenario5Fixture holds the pool, candidate allele and genotype triple
// (hom-ref, het, hom-alt) for spec.md §8 scenario 5: a single A->T
// candidate at position 100, with joint posterior concentrating 0.95
// mass on (mother=A/A, father=A/A, child=A/T).
type scenario5Fixture struct {
	homRef, het, homAlt Genotype
	allele              allele.Allele
}

func buildScenario5(t *testing.T) (Pool, []JointGenotypeProbability, scenario5Fixture) {
	t.Helper()
	pool, a := buildTestPool(t)
	genotypes, err := GenerateAllGenotypes(2, 2)
	if err != nil {
		t.Fatalf("GenerateAllGenotypes: %v", err)
	}
	homRef, het, homAlt := genotypes[0], genotypes[1], genotypes[2]

	joint := []JointGenotypeProbability{
		{Maternal: homRef, Paternal: homRef, Child: het, Probability: 0.95},
		{Maternal: homRef, Paternal: homRef, Child: homRef, Probability: 0.03},
		{Maternal: homRef, Paternal: het, Child: het, Probability: 0.02},
	}
	return pool, joint, scenario5Fixture{homRef, het, homAlt, a}
}

func TestDenovoPosteriorScenario5(t *testing.T) {
	pool, joint, fixture := buildScenario5(t)

	posterior := DenovoPosterior(pool, fixture.allele, joint)
	want := mathutil.ProbabilityToPhred(0.05)
	if math.Abs(posterior-want) > 1e-9 {
		t.Errorf("got de novo posterior %v, want %v (~13)", posterior, want)
	}
	if posterior < 12.9 || posterior > 13.1 {
		t.Errorf("expected de novo posterior near PHRED(0.05)≈13, got %v", posterior)
	}
}

func TestMarginalCompletenessScenario6(t *testing.T) {
	_, joint, fixture := buildScenario5(t)
	all := []Genotype{fixture.homRef, fixture.het, fixture.homAlt}

	total := 0.0
	for _, p := range joint {
		total += p.Probability
	}

	for _, marginal := range [][]GenotypeProbability{
		MarginalizeMaternal(joint, all),
		MarginalizePaternal(joint, all),
		MarginalizeChild(joint, all),
	} {
		if len(marginal) != 3 {
			t.Errorf("got %d marginal entries, want 3", len(marginal))
		}
		sum := 0.0
		for _, gp := range marginal {
			sum += gp.Probability
		}
		if math.Abs(sum-total) > 1e-9 {
			t.Errorf("got marginal sum %v, want %v", sum, total)
		}
	}
}

func TestHaplotypePosteriors(t *testing.T) {
	pool, joint, _ := buildScenario5(t)
	posteriors := HaplotypePosteriors(len(pool.Haplotypes), joint)
	if len(posteriors) != 2 {
		t.Fatalf("got %d posteriors, want 2", len(posteriors))
	}
	// Every entry's maternal/paternal genotype carries the ref haplotype
	// (index 0), so its posterior should be the full joint mass (1.0).
	if math.Abs(posteriors[0]-1.0) > 1e-9 {
		t.Errorf("got ref haplotype posterior %v, want 1.0", posteriors[0])
	}
	// The alt haplotype (index 1) appears in entry 1's child genotype and
	// entry 3's father genotype, but not entry 2 (homRef/homRef/homRef):
	// 0.95 + 0.02 = 0.97.
	if math.Abs(posteriors[1]-0.97) > 1e-9 {
		t.Errorf("got alt haplotype posterior %v, want 0.97", posteriors[1])
	}
}

func TestCallAllelesAndDenovos(t *testing.T) {
	pool, joint, fixture := buildScenario5(t)

	called, err := CallTrio(joint)
	if err != nil {
		t.Fatalf("CallTrio: %v", err)
	}
	if !Equal(called.Mother, fixture.homRef) || !Equal(called.Father, fixture.homRef) || !Equal(called.Child, fixture.het) {
		t.Fatalf("expected the called trio to be (homRef, homRef, het)")
	}

	allelePosteriors := ComputeAllelePosteriors(pool, []allele.Allele{fixture.allele}, joint)
	calledAlleles := CallAlleles(pool, allelePosteriors, called, 13)
	if len(calledAlleles) != 1 {
		t.Fatalf("got %d called alleles, want 1", len(calledAlleles))
	}

	denovoPosteriors := ComputeDenovoPosteriors(pool, []allele.Allele{fixture.allele}, joint)
	calledDenovos := CallDenovos(pool, denovoPosteriors, called.Child, 13)
	if len(calledDenovos) != 1 {
		t.Fatalf("got %d called de novos, want 1 (posterior ~13 >= min 13)", len(calledDenovos))
	}
}

func TestGenotypePosteriorOverRegion(t *testing.T) {
	pool, joint, fixture := buildScenario5(t)
	r := region.Contig{Begin: 100, End: 101}

	all := []Genotype{fixture.homRef, fixture.het, fixture.homAlt}
	childMarginal := MarginalizeChild(joint, all)

	call, err := GenotypePosterior(pool, fixture.het, childMarginal, r)
	if err != nil {
		t.Fatalf("GenotypePosterior: %v", err)
	}
	if len(call.Alleles) != 2 {
		t.Fatalf("got %d spliced alleles for a diploid genotype, want 2", len(call.Alleles))
	}
}
