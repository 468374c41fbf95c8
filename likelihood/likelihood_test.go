package likelihood

import (
	"errors"
	"testing"

	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/region"
)

type stubHaplotype struct {
	seq []byte
}

func (h stubHaplotype) Sequence() []byte  { return h.seq }
func (h stubHaplotype) SequenceSize() int { return len(h.seq) }
func (h stubHaplotype) String() string    { return "stub" }

func uniformFloats(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// haplotype long enough (>= read length + 2*pad) that a centrally placed
// read needs no mapping-position retry: 10 T's, then a unique "ACGT" at
// [10:14), then 17 G's.
const longHaplotypeSeq = "TTTTTTTTTTACGTGGGGGGGGGGGGGGGGG"

func TestEvaluateExactMatchIsZero(t *testing.T) {
	h := stubHaplotype{seq: []byte(longHaplotypeSeq)}
	c := NewCache(nil, nil, false)
	if err := Reset(c, h, region.Contig{Begin: 100, End: 100 + int64(len(h.seq))}, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	read := AlignedRead{
		Sequence:      []byte("ACGT"),
		BaseQualities: uniformFloats(4, 30),
		Region:        region.Contig{Begin: 110, End: 114},
	}

	got, err := c.Evaluate(read, nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got != 0 {
		t.Errorf("got %v, want 0", got)
	}
}

func TestEvaluateBeforeResetReturnsMissingHaplotypeError(t *testing.T) {
	c := NewCache(nil, nil, false)
	_, err := c.Evaluate(AlignedRead{Sequence: []byte("A"), BaseQualities: []float64{30}}, nil)
	var missing *errs.MissingHaplotypeError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want MissingHaplotypeError", err)
	}
}

func TestAlignReportsMappingPositionAndCigar(t *testing.T) {
	h := stubHaplotype{seq: []byte(longHaplotypeSeq)}
	c := NewCache(nil, nil, false)
	if err := Reset(c, h, region.Contig{Begin: 100, End: 100 + int64(len(h.seq))}, nil); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	read := AlignedRead{
		Sequence:      []byte("ACGT"),
		BaseQualities: uniformFloats(4, 30),
		Region:        region.Contig{Begin: 110, End: 114},
	}

	alignment, err := c.Align(read, nil)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if alignment.MappingPosition != 10 {
		t.Errorf("got mapping position %d, want 10", alignment.MappingPosition)
	}
	if alignment.Likelihood != 0 {
		t.Errorf("got likelihood %v, want 0", alignment.Likelihood)
	}
}

func TestResolveMappingPositionsShiftsWithinBounds(t *testing.T) {
	h := stubHaplotype{seq: make([]byte, 30)}
	for i := range h.seq {
		h.seq[i] = 'A'
	}
	// A read expected to start at haplotype offset 1 doesn't leave the
	// required 8-base pad on its left, so the search should shift it
	// right rather than fail outright.
	read := AlignedRead{
		Sequence: make([]byte, 4),
		Region:   region.Contig{Begin: 101, End: 105},
	}
	positions, err := resolveMappingPositions(read, 100, nil, h)
	if err != nil {
		t.Fatalf("resolveMappingPositions: %v", err)
	}
	if len(positions) != 1 || positions[0] != 8 {
		t.Errorf("got %v, want a single shifted position 8", positions)
	}
}

func TestResolveMappingPositionsReturnsShortHaplotypeErrorWhenNoShiftFits(t *testing.T) {
	h := stubHaplotype{seq: make([]byte, 10)}
	read := AlignedRead{
		Sequence: make([]byte, 20),
		Region:   region.Contig{Begin: 100, End: 120},
	}
	_, err := resolveMappingPositions(read, 100, nil, h)
	var short *errs.ShortHaplotypeError
	if !errors.As(err, &short) {
		t.Fatalf("got %v, want ShortHaplotypeError", err)
	}
}
