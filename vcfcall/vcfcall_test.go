package vcfcall

import (
	"math"
	"testing"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/region"
)

func testAllele() allele.Allele {
	return allele.New(region.Contig{Begin: 100, End: 101}, []byte("T"))
}

func TestRegistryUnregisteredKind(t *testing.T) {
	r := NewRegistry()
	call := &VariantCall{Allele: testAllele()}
	if err := r.Annotate(KindReference, call); err == nil {
		t.Fatal("expected UnregisteredCallTypeError for an unregistered kind")
	}
}

func TestRegisterRejectsEmptyDescription(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(KindVariant, "", annotateMP); err == nil {
		t.Fatal("expected an error for an empty annotator description")
	}
}

func TestRegisterBuiltinsDescribe(t *testing.T) {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	desc, err := r.Describe(KindVariant)
	if err != nil {
		t.Fatalf("Describe(KindVariant): %v", err)
	}
	if desc == "" || desc == "Dummy model posterior" {
		t.Errorf("expected a concrete description, got %q", desc)
	}
}

func TestAnnotateMPComputesRMS(t *testing.T) {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	call := &VariantCall{Allele: testAllele(), MappingQuals: []float64{60, 40}}
	if err := r.Annotate(KindVariant, call); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	mp, ok := call.Info.Get(MP)
	if !ok {
		t.Fatal("expected MP to be set")
	}
	want := math.Sqrt((60.0*60.0 + 40.0*40.0) / 2.0)
	if math.Abs(mp.(float64)-want) > 1e-9 {
		t.Errorf("got MP %v, want %v", mp, want)
	}
}

func TestAnnotatePPSetsPosterior(t *testing.T) {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	call := &VariantCall{Allele: testAllele(), Posterior: 24.5}
	denovo := &DenovoCall{VariantCall: *call}
	if err := r.Annotate(KindDenovo, &denovo.VariantCall); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	pp, ok := denovo.Info.Get(PP)
	if !ok || pp.(float64) != 24.5 {
		t.Errorf("got PP %v, ok=%v, want 24.5", pp, ok)
	}
}

func TestAnnotateDenovoSetsFlagAndVAF(t *testing.T) {
	call := DenovoCall{VariantCall: VariantCall{
		Allele: testAllele(),
		SupportCounts: map[string]AlleleSupport{
			"child": {AltReads: 3, TotalReads: 12},
		},
	}}
	AnnotateDenovo(&call, "child")

	flag, ok := call.Info.Get(DENOVO)
	if !ok || flag != true {
		t.Errorf("got DENOVO %v, ok=%v, want true", flag, ok)
	}
	vaf, ok := call.Info.Get(VAF_CR)
	if !ok {
		t.Fatal("expected VAF_CR to be set")
	}
	want := 3.0 / 12.0
	if math.Abs(vaf.(float64)-want) > 1e-9 {
		t.Errorf("got VAF_CR %v, want %v", vaf, want)
	}
}

func TestAnnotateDenovoSkipsVAFWithoutSupport(t *testing.T) {
	call := DenovoCall{VariantCall: VariantCall{Allele: testAllele()}}
	AnnotateDenovo(&call, "child")
	if _, ok := call.Info.Get(VAF_CR); ok {
		t.Error("expected VAF_CR to be absent without recorded support")
	}
}

func TestPosteriorPhred(t *testing.T) {
	got := PosteriorPhred(0.05)
	if got < 12.9 || got > 13.1 {
		t.Errorf("got %v, want ~13", got)
	}
}
