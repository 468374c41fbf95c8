package haplotype

import (
	"bytes"
	"testing"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/region"
)

// fakeReference is a minimal in-memory ReferenceFetcher over a single
// contig, used throughout this package's tests in place of a real
// refgenome.Genome.
type fakeReference struct {
	contig   string
	sequence []byte
}

func (f fakeReference) FetchSequence(contig string, r region.Contig) ([]byte, error) {
	return f.sequence[r.Begin:r.End], nil
}

func newTestReference() fakeReference {
	return fakeReference{contig: "chr1", sequence: []byte("ACGTACGTACGT")}
}

func TestReferenceHaplotypeSequence(t *testing.T) {
	ref := newTestReference()
	h, err := New("chr1", region.Contig{Begin: 0, End: 12}, nil, ref)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !bytes.Equal(h.Sequence(), ref.sequence) {
		t.Errorf("got %q, want %q", h.Sequence(), ref.sequence)
	}
}

func TestSingleSNVHaplotype(t *testing.T) {
	ref := newTestReference()
	snv := allele.New(region.Contig{Begin: 5, End: 6}, []byte("G"))
	h, err := New("chr1", region.Contig{Begin: 0, End: 12}, []allele.Allele{snv}, ref)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []byte("ACGTAGGTACGT")
	if !bytes.Equal(h.Sequence(), want) {
		t.Errorf("got %q, want %q", h.Sequence(), want)
	}

	ok, err := h.Contains(allele.New(region.Contig{Begin: 5, End: 6}, []byte("G")))
	if err != nil || !ok {
		t.Errorf("expected haplotype to contain the G allele: ok=%v err=%v", ok, err)
	}
	ok, err = h.Contains(allele.New(region.Contig{Begin: 5, End: 6}, []byte("A")))
	if err != nil || ok {
		t.Errorf("expected haplotype not to contain the A allele: ok=%v err=%v", ok, err)
	}
}

func TestInsertionSpliceScenario(t *testing.T) {
	ref := newTestReference()
	ins := allele.New(region.Contig{Begin: 4, End: 4}, []byte("TT"))
	h, err := New("chr1", region.Contig{Begin: 0, End: 12}, []allele.Allele{ins}, ref)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := h.SequenceOverRegion(region.Contig{Begin: 3, End: 5})
	if err != nil {
		t.Fatalf("SequenceOverRegion: %v", err)
	}
	want := []byte("TTTA")
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}

	spliced, err := h.Splice(region.Contig{Begin: 4, End: 4})
	if err != nil {
		t.Fatalf("Splice: %v", err)
	}
	if len(spliced.ExplicitAlleles) != 1 || !spliced.ExplicitAlleles[0].IsInsertion() {
		t.Fatalf("expected a single preserved insertion allele, got %+v", spliced.ExplicitAlleles)
	}
	if !spliced.Region.IsEmpty() {
		t.Errorf("expected an empty spliced region, got %v", spliced.Region)
	}
}

func TestDeletionAllele(t *testing.T) {
	ref := newTestReference()
	del := allele.New(region.Contig{Begin: 4, End: 6}, nil)
	h, err := New("chr1", region.Contig{Begin: 0, End: 12}, []allele.Allele{del}, ref)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []byte("ACGTGTACGT")
	if !bytes.Equal(h.Sequence(), want) {
		t.Errorf("got %q, want %q", h.Sequence(), want)
	}
}

func TestBuilderOutOfOrderPushFails(t *testing.T) {
	ref := newTestReference()
	b := NewBuilder("chr1", region.Contig{Begin: 0, End: 12}, ref)
	if err := b.PushBack(allele.New(region.Contig{Begin: 6, End: 7}, []byte("A"))); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := b.PushBack(allele.New(region.Contig{Begin: 2, End: 3}, []byte("A"))); err == nil {
		t.Error("expected an error for an out-of-order push")
	}
}

func TestBuilderInsertsInterveningReference(t *testing.T) {
	ref := newTestReference()
	b := NewBuilder("chr1", region.Contig{Begin: 0, End: 12}, ref)
	if err := b.PushBack(allele.New(region.Contig{Begin: 2, End: 3}, []byte("G"))); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if err := b.PushBack(allele.New(region.Contig{Begin: 8, End: 9}, []byte("G"))); err != nil {
		t.Fatalf("push 2: %v", err)
	}
	h, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(h.ExplicitAlleles) != 3 {
		t.Fatalf("expected an implicit reference allele filling the gap, got %d alleles", len(h.ExplicitAlleles))
	}
	gap := h.ExplicitAlleles[1]
	if gap.Region != (region.Contig{Begin: 3, End: 8}) {
		t.Errorf("unexpected gap allele region %v", gap.Region)
	}
}

func TestHaplotypeEqualityIgnoresAlleleDecomposition(t *testing.T) {
	ref := newTestReference()
	snv := allele.New(region.Contig{Begin: 5, End: 6}, []byte("G"))
	a, err := New("chr1", region.Contig{Begin: 0, End: 12}, []allele.Allele{snv}, ref)
	if err != nil {
		t.Fatalf("New a: %v", err)
	}
	b, err := New("chr1", region.Contig{Begin: 0, End: 12}, nil, fakeReference{contig: "chr1", sequence: []byte("ACGTAGGTACGT")})
	if err != nil {
		t.Fatalf("New b: %v", err)
	}
	if !Equal(a, b) {
		t.Error("expected region+sequence equality regardless of allele decomposition")
	}
	if HaveSameAlleles(a, b) {
		t.Error("HaveSameAlleles should distinguish explicit alleles from an equivalent reference haplotype")
	}
}

func TestUniqueLeastComplexPrefersFewerAlleles(t *testing.T) {
	ref := newTestReference()
	simple, err := New("chr1", region.Contig{Begin: 0, End: 12}, []allele.Allele{
		allele.New(region.Contig{Begin: 5, End: 6}, []byte("G")),
	}, ref)
	if err != nil {
		t.Fatalf("simple: %v", err)
	}
	complex_, err := New("chr1", region.Contig{Begin: 0, End: 12}, []allele.Allele{
		allele.New(region.Contig{Begin: 1, End: 2}, []byte("C")),
		allele.New(region.Contig{Begin: 5, End: 6}, []byte("G")),
	}, ref)
	if err != nil {
		t.Fatalf("complex: %v", err)
	}
	haplotypes := []Haplotype{complex_, simple}
	deduped, removed, err := UniqueLeastComplex(haplotypes, nil)
	if err != nil {
		t.Fatalf("UniqueLeastComplex: %v", err)
	}
	// The C at [1,2) is the reference base, so both haplotypes materialize
	// the same sequence and are duplicates of each other.
	if removed != 1 {
		t.Fatalf("expected the two equal-sequence haplotypes to collapse to one, removed=%d", removed)
	}
	if len(deduped) != 1 {
		t.Fatalf("expected one haplotype retained, got %d", len(deduped))
	}
	if len(deduped[0].ExplicitAlleles) != 1 {
		t.Errorf("expected the single-allele haplotype retained, got %d explicit alleles", len(deduped[0].ExplicitAlleles))
	}
}
