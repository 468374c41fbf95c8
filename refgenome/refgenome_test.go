package refgenome

import (
	"errors"
	"testing"

	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/region"
)

func TestNewNormalizesCase(t *testing.T) {
	g := New(map[string][]byte{"chr1": []byte("acgtRYN")})
	seq, err := g.FetchSequence("chr1", region.Contig{Begin: 0, End: 7})
	if err != nil {
		t.Fatalf("FetchSequence: %v", err)
	}
	if got, want := string(seq), "ACGTNNN"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestContigSize(t *testing.T) {
	g := New(map[string][]byte{"chr1": []byte("ACGTACGT")})
	size, err := g.ContigSize("chr1")
	if err != nil {
		t.Fatalf("ContigSize: %v", err)
	}
	if size != 8 {
		t.Errorf("got %d, want 8", size)
	}
}

func TestContigSizeUnknownContig(t *testing.T) {
	g := New(nil)
	_, err := g.ContigSize("chrX")
	var domain *errs.DomainError
	if !errors.As(err, &domain) {
		t.Fatalf("got %v, want DomainError", err)
	}
}

func TestFetchSequencePadsOutOfBoundsWithN(t *testing.T) {
	g := New(map[string][]byte{"chr1": []byte("ACGT")})
	seq, err := g.FetchSequence("chr1", region.Contig{Begin: -2, End: 6})
	if err != nil {
		t.Fatalf("FetchSequence: %v", err)
	}
	if got, want := string(seq), "NNACGTNN"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFetchSequenceEmptyRegion(t *testing.T) {
	g := New(map[string][]byte{"chr1": []byte("ACGT")})
	seq, err := g.FetchSequence("chr1", region.Contig{Begin: 2, End: 2})
	if err != nil {
		t.Fatalf("FetchSequence: %v", err)
	}
	if len(seq) != 0 {
		t.Errorf("got %v, want empty slice", seq)
	}
}

func TestFetchSequenceUnknownContig(t *testing.T) {
	g := New(nil)
	_, err := g.FetchSequence("chrX", region.Contig{Begin: 0, End: 1})
	var domain *errs.DomainError
	if !errors.As(err, &domain) {
		t.Fatalf("got %v, want DomainError", err)
	}
}
