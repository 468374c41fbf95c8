package errormodel

import "testing"

type stubHaplotype struct{ seq []byte }

func (s stubHaplotype) Sequence() []byte { return s.seq }

func TestComputeFallsBackToUniformDefaults(t *testing.T) {
	h := stubHaplotype{seq: []byte("ACGTACGT")}
	tables, err := Compute(h, nil, nil)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if string(tables.SNVMaskForward) != string(h.seq) || string(tables.SNVMaskReverse) != string(h.seq) {
		t.Error("expected the fallback mask to mirror the haplotype sequence")
	}
	for _, p := range tables.SNVPriorsForward {
		if p != DefaultSNVPrior {
			t.Fatalf("expected uniform forward priors, got %v", p)
		}
	}
	if tables.GapExtend != DefaultGapExtend {
		t.Errorf("got gap extend %v, want %v", tables.GapExtend, DefaultGapExtend)
	}
	for _, p := range tables.GapOpenPenalties {
		if p != DefaultGapOpenPrior {
			t.Fatalf("expected uniform gap-open penalties, got %v", p)
		}
	}
}

func TestTandemRepeatIndelModelLowersPenaltyInRepeats(t *testing.T) {
	m := NewDefaultTandemRepeatIndelModel()
	h := stubHaplotype{seq: []byte("ACGTCACACACACATGCA")}
	penalties, gapExtend, err := m.Evaluate(h)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if gapExtend != m.GapExtend {
		t.Errorf("got gap extend %v, want %v", gapExtend, m.GapExtend)
	}
	if len(penalties) != len(h.seq) {
		t.Fatalf("got %d penalties, want %d", len(penalties), len(h.seq))
	}
	// Position 4 onward sits inside the CA repeat tract and should be
	// penalized less than the flanking non-repetitive bases.
	if penalties[4] >= penalties[0] {
		t.Errorf("expected a lower gap-open penalty inside the repeat tract: repeat=%v flank=%v", penalties[4], penalties[0])
	}
}

func TestFindTandemRepeatsRequiresMinimumCopies(t *testing.T) {
	repeats := findTandemRepeats([]byte("ACGTACGT"), 3, 6)
	for _, r := range repeats {
		if r.copies < 3 {
			t.Errorf("unexpected low-copy repeat reported: %+v", r)
		}
	}
}
