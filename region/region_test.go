package region

import "testing"

func TestContains(t *testing.T) {
	if !Contains(Contig{0, 10}, Contig{2, 5}) {
		t.Error("expected containment")
	}
	if Contains(Contig{0, 10}, Contig{5, 15}) {
		t.Error("expected no containment")
	}
	if !Contains(Contig{4, 8}, Contig{6, 6}) {
		t.Error("empty region at an interior position should be contained")
	}
}

func TestOverlaps(t *testing.T) {
	if !Overlaps(Contig{0, 5}, Contig{4, 10}) {
		t.Error("expected overlap")
	}
	if Overlaps(Contig{0, 5}, Contig{5, 10}) {
		t.Error("adjacent regions must not overlap")
	}
	if Overlaps(Contig{5, 5}, Contig{5, 10}) {
		t.Error("empty region at a boundary must be adjacent, not overlapping")
	}
}

func TestAreAdjacent(t *testing.T) {
	if !AreAdjacent(Contig{0, 5}, Contig{5, 10}) {
		t.Error("expected adjacency")
	}
	if AreAdjacent(Contig{0, 5}, Contig{6, 10}) {
		t.Error("expected no adjacency")
	}
}

func TestIsBeforeAfter(t *testing.T) {
	a, b := Contig{0, 5}, Contig{5, 10}
	if !IsBefore(a, b) {
		t.Error("expected a before b")
	}
	if !IsAfter(b, a) {
		t.Error("expected b after a")
	}
}

func TestOverlappedRegion(t *testing.T) {
	got := OverlappedRegion(Contig{0, 10}, Contig{5, 15})
	if got != (Contig{5, 10}) {
		t.Errorf("got %v", got)
	}
}

func TestLeftRightOverhang(t *testing.T) {
	a, b := Contig{0, 10}, Contig{4, 6}
	if got := LeftOverhangRegion(a, b); got != (Contig{0, 4}) {
		t.Errorf("left overhang: got %v", got)
	}
	if got := RightOverhangRegion(a, b); got != (Contig{6, 10}) {
		t.Errorf("right overhang: got %v", got)
	}
}

func TestInterveningRegion(t *testing.T) {
	got := InterveningRegion(Contig{0, 5}, Contig{8, 10})
	if got != (Contig{5, 8}) {
		t.Errorf("got %v", got)
	}
	if got := InterveningRegion(Contig{0, 5}, Contig{5, 10}); !got.IsEmpty() {
		t.Errorf("adjacent regions should have an empty intervening region, got %v", got)
	}
}

func TestEncompassingRegion(t *testing.T) {
	got := EncompassingRegion(Contig{2, 5}, Contig{10, 20})
	if got != (Contig{2, 20}) {
		t.Errorf("got %v", got)
	}
}

func TestExpand(t *testing.T) {
	if got := Expand(Contig{10, 20}, 5); got != (Contig{5, 25}) {
		t.Errorf("got %v", got)
	}
	if got := Expand(Contig{10, 12}, -10); !got.IsEmpty() {
		t.Errorf("shrink underflow should clamp to empty, got %v", got)
	}
}

func TestContainsGenomicDifferentContigs(t *testing.T) {
	_, err := ContainsGenomic(Genomic{"chr1", Contig{0, 10}}, Genomic{"chr2", Contig{0, 5}})
	if err == nil {
		t.Error("expected a DomainError for mismatched contigs")
	}
}
