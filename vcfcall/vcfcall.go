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

// Package vcfcall models the output side of the caller: VariantCall,
// DenovoCall and ReferenceCall records plus a CallKind-tagged annotation
// registry, grounded on elPrep's tag-driven Info/Format pattern
// (filters/haplotypecaller.go's writeVcfHeader builds a FormatInformation
// per tag; filters/call-region.go's callRegion does
// call.Info.Set(MQ, formatf(rms, 2)) once the RMS mapping quality for a
// call is known). This package does not serialize VCF text -- that is
// output formatting, excluded by spec.md's Non-goals -- it only produces
// the annotated call records a serializer would consume.
package vcfcall

import (
	"math"

	"github.com/vargenome/triocaller/allele"
	"github.com/vargenome/triocaller/internal/errs"
	"github.com/vargenome/triocaller/internal/mathutil"
	"github.com/vargenome/triocaller/region"
	"github.com/vargenome/triocaller/utils"
)

// Annotation tags, interned once like elPrep's MQ/DP/AC/... Symbols in
// filters/haplotypecaller.go.
var (
	MP     = utils.Intern("MP")
	PP     = utils.Intern("PP")
	DENOVO = utils.Intern("DENOVO")
	VAF_CR = utils.Intern("VAF_CR")
)

// CallKind distinguishes the three record shapes the annotation registry
// dispatches on.
type CallKind int

const (
	KindVariant CallKind = iota
	KindDenovo
	KindReference
)

func (k CallKind) String() string {
	switch k {
	case KindVariant:
		return "VariantCall"
	case KindDenovo:
		return "DenovoCall"
	case KindReference:
		return "ReferenceCall"
	default:
		return "unknown CallKind"
	}
}

// VariantCall is a single called allele at a region, with per-sample
// genotype calls and an open-ended annotation bag, mirroring the
// tag/value shape of elPrep's vcf.Variant.Info rather than a fixed struct
// of well-known fields.
type VariantCall struct {
	Region        region.Contig
	Allele        allele.Allele
	Posterior     float64
	SampleCalls   map[string][]allele.Allele
	MappingQuals  []float64
	SupportCounts map[string]AlleleSupport
	Info          utils.SmallMap
}

// AlleleSupport is the read-counted support for VAF_CR: the number of
// reads carrying the called allele against the total informative reads
// at the site, per sample.
type AlleleSupport struct {
	AltReads   int
	TotalReads int
}

// DenovoCall is a VariantCall that also passed the de novo posterior
// threshold in trio.CallDenovos.
type DenovoCall struct {
	VariantCall
}

// ReferenceCall models a gVCF-style confidence block: a region over which
// the caller asserts no variation above a quality floor, grounded on the
// Octopus reference_call.hpp type used by trio_caller.cpp's call_reference.
// It is a stub extension point (spec.md's Non-goals exclude output
// serialization generally, but not the type itself) -- producing one is
// left to a caller-specific policy, matching call_reference's own
// "return {}" default.
type ReferenceCall struct {
	Region region.Contig
	Sample string
	Info   utils.SmallMap
}

// AnnotationFunc computes and sets one or more Info entries on a call.
// Implementations type-assert target to the CallKind they were registered
// for.
type AnnotationFunc func(target interface{}) error

// annotatorEntry pairs an AnnotationFunc with the description recorded for
// it, so a registry can answer "what does MP mean" without re-deriving it
// from the function body.
type annotatorEntry struct {
	fn          AnnotationFunc
	description string
}

// Registry dispatches annotation by CallKind, validated at construction:
// every entry must carry a non-empty description, per SPEC_FULL.md's
// resolved Open Question that built-in annotators get concrete
// descriptions rather than placeholder text.
type Registry struct {
	entries map[CallKind]annotatorEntry
}

// NewRegistry builds an empty registry. Register built-ins with
// RegisterBuiltins, or register custom annotators with Register.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[CallKind]annotatorEntry)}
}

// Register adds or replaces the annotator for kind.
func (r *Registry) Register(kind CallKind, description string, fn AnnotationFunc) error {
	if description == "" {
		return &errs.LogicError{Op: "Registry.Register", Msg: "annotator description must not be empty"}
	}
	r.entries[kind] = annotatorEntry{fn: fn, description: description}
	return nil
}

// Describe returns the registered description for kind.
func (r *Registry) Describe(kind CallKind) (string, error) {
	entry, ok := r.entries[kind]
	if !ok {
		return "", &errs.UnregisteredCallTypeError{Kind: kind}
	}
	return entry.description, nil
}

// Annotate runs the registered annotator for kind against target.
// Looking up an unregistered CallKind returns UnregisteredCallTypeError.
func (r *Registry) Annotate(kind CallKind, target interface{}) error {
	entry, ok := r.entries[kind]
	if !ok {
		return &errs.UnregisteredCallTypeError{Kind: kind}
	}
	return entry.fn(target)
}

// RegisterBuiltins wires MP and PP into r for VariantCall and PP for
// DenovoCall (DENOVO and VAF_CR are set by AnnotateDenovo, outside the
// registry), following elPrep's writeVcfHeader field set
// (MQ -> MP here, since this caller's "mapping quality" annotation is a
// posterior-model input rather than elPrep's alignment-level MQ) and the
// Octopus measures pack's clipped_read_fraction.cpp/strand_bias.hpp
// motivation for a read-counted allele-fraction annotation (simplified to
// a single VAF_CR scalar, per SPEC_FULL.md's §4.9 scope).
func RegisterBuiltins(r *Registry) error {
	if err := r.Register(KindVariant, "RMS mapping quality of reads supporting the called allele; phred-scaled posterior probability of the call", annotateVariant); err != nil {
		return err
	}
	if err := r.Register(KindDenovo, "Phred-scaled posterior probability of the call", annotatePP); err != nil {
		return err
	}
	return nil
}

// annotateVariant composes annotateMP and annotatePP so every germline
// VariantCall gets both MP and PP, not just the MQ-shaped statistic --
// PP would otherwise only ever reach DenovoCall records, leaving the
// Posterior field as the only place a germline call's posterior
// survives.
func annotateVariant(target interface{}) error {
	if err := annotateMP(target); err != nil {
		return err
	}
	return annotatePP(target)
}

// annotateMP sets MP to the RMS mapping quality of the reads recorded in
// target.MappingQuals, grounded on call-region.go's
// rms = sqrt(sum / depth) pattern (there computed from RAW_MQandDP, here
// from a plain per-read slice since this caller has no gVCF raw-sum
// encoding to decode first).
func annotateMP(target interface{}) error {
	call, ok := target.(*VariantCall)
	if !ok {
		return &errs.LogicError{Op: "annotateMP", Msg: "target is not a *VariantCall"}
	}
	if len(call.MappingQuals) == 0 {
		return nil
	}
	sumSquares := 0.0
	for _, mq := range call.MappingQuals {
		sumSquares += mq * mq
	}
	rms := math.Sqrt(sumSquares / float64(len(call.MappingQuals)))
	call.Info.Set(MP, rms)
	return nil
}

// annotatePP sets PP to the phred-scaled posterior already carried on the
// call, following the MP pattern above but for a trio posterior rather
// than a read-derived statistic.
func annotatePP(target interface{}) error {
	call, ok := target.(*VariantCall)
	if !ok {
		return &errs.LogicError{Op: "annotatePP", Msg: "target is not a *VariantCall"}
	}
	call.Info.Set(PP, call.Posterior)
	return nil
}

// AnnotateDenovo flags a DenovoCall's DENOVO entry, and computes VAF_CR
// for the child sample from its AlleleSupport, if present. Kept separate
// from the Registry dispatch table (rather than keyed by a third
// CallKind) because it always applies together with the VariantCall
// annotators above -- a de novo call is always also a variant call.
func AnnotateDenovo(call *DenovoCall, childSample string) {
	call.Info.Set(DENOVO, true)
	if support, ok := call.SupportCounts[childSample]; ok && support.TotalReads > 0 {
		call.Info.Set(VAF_CR, float64(support.AltReads)/float64(support.TotalReads))
	}
}

// PosteriorPhred is a small convenience wrapper so callers building a
// VariantCall from a raw probability (rather than an already-phred value)
// can do so without importing internal/mathutil directly.
func PosteriorPhred(probabilityComplement float64) float64 {
	return mathutil.ProbabilityToPhred(probabilityComplement)
}
