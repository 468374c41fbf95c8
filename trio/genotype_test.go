package trio

import (
	"testing"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/haplotype"
	"github.com/vargenome/triocaller/refgenome"
	"github.com/vargenome/triocaller/region"
)

func buildTestPool(t *testing.T) (Pool, allele.Allele) {
	t.Helper()
	reference := make([]byte, 120)
	for i := range reference {
		reference[i] = 'A'
	}
	genome := refgenome.New(map[string][]byte{"chr1": reference})
	hapRegion := region.Contig{Begin: 90, End: 110}
	a := allele.New(region.Contig{Begin: 100, End: 101}, []byte("T"))

	refHap, err := haplotype.New("chr1", hapRegion, nil, genome)
	if err != nil {
		t.Fatalf("building reference haplotype: %v", err)
	}
	altHap, err := haplotype.New("chr1", hapRegion, []allele.Allele{a}, genome)
	if err != nil {
		t.Fatalf("building alt haplotype: %v", err)
	}
	return Pool{Haplotypes: []haplotype.Haplotype{refHap, altHap}}, a
}

func TestGenerateAllGenotypesDiploidTwoHaplotypes(t *testing.T) {
	genotypes, err := GenerateAllGenotypes(2, 2)
	if err != nil {
		t.Fatalf("GenerateAllGenotypes: %v", err)
	}
	if len(genotypes) != 3 {
		t.Fatalf("got %d genotypes, want 3 (hom-ref, het, hom-alt)", len(genotypes))
	}
	want := [][]int{{0, 0}, {0, 1}, {1, 1}}
	for i, g := range genotypes {
		got := g.Indices()
		if len(got) != 2 || got[0] != want[i][0] || got[1] != want[i][1] {
			t.Errorf("genotype %d: got %v, want %v", i, got, want[i])
		}
	}
}

func TestGenerateAllGenotypesRejectsZeroPloidy(t *testing.T) {
	if _, err := GenerateAllGenotypes(2, 0); err == nil {
		t.Fatal("expected an error for zero ploidy")
	}
}

func TestGenotypeIncludes(t *testing.T) {
	pool, a := buildTestPool(t)
	genotypes, err := GenerateAllGenotypes(2, 2)
	if err != nil {
		t.Fatalf("GenerateAllGenotypes: %v", err)
	}
	homRef, het, homAlt := genotypes[0], genotypes[1], genotypes[2]

	if homRef.Includes(pool, a) {
		t.Error("hom-ref genotype should not include the alt allele")
	}
	if !het.Includes(pool, a) {
		t.Error("het genotype should include the alt allele")
	}
	if !homAlt.Includes(pool, a) {
		t.Error("hom-alt genotype should include the alt allele")
	}
}

func TestGenotypeLessEqual(t *testing.T) {
	a := NewGenotype(3, []int{0, 1})
	b := NewGenotype(3, []int{1, 0})
	if !Equal(a, b) {
		t.Error("genotypes built from the same multiset in different order should be equal")
	}
	c := NewGenotype(3, []int{0, 2})
	if !Less(a, c) {
		t.Error("expected {0,1} < {0,2}")
	}
}

func TestCallTrioPicksGlobalMax(t *testing.T) {
	pool, _ := buildTestPool(t)
	_ = pool
	low := NewGenotype(2, []int{0, 0})
	high := NewGenotype(2, []int{1, 1})
	joint := []JointGenotypeProbability{
		{Maternal: low, Paternal: low, Child: low, Probability: 0.1},
		{Maternal: high, Paternal: high, Child: high, Probability: 0.6},
		{Maternal: low, Paternal: high, Child: low, Probability: 0.3},
	}
	called, err := CallTrio(joint)
	if err != nil {
		t.Fatalf("CallTrio: %v", err)
	}
	if !Equal(called.Mother, high) || !Equal(called.Father, high) || !Equal(called.Child, high) {
		t.Errorf("expected the max-probability entry (index 1) to be called, got mother=%v father=%v child=%v",
			called.Mother.Indices(), called.Father.Indices(), called.Child.Indices())
	}
}

func TestCallTrioRejectsEmptyPosterior(t *testing.T) {
	if _, err := CallTrio(nil); err == nil {
		t.Fatal("expected an error for an empty joint posterior")
	}
}
