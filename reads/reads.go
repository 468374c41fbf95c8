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

// Package reads models an aligned sequencing read: its flags, CIGAR, and
// optional mate details, plus the conversion into the minimal view the
// likelihood package scores against. Grounded on elPrep's sam.Alignment
// (FLAG bitmask and FlagSome/IsMultiple/IsNextUnmapped-style predicates,
// sam.CigarOperation) in _examples/ExaScience-elprep/sam/sam-types.go,
// generalized from SAM's on-disk flag bit layout to the read properties
// this caller actually consults.
package reads

import (
	"strconv"
	"strings"

	"github.com/vargenome/triocaller/likelihood"
	"github.com/vargenome/triocaller/region"
)

// FlagSet is a bitmask of read properties, named after the SAM flags they
// originate from rather than carrying SAM's own bit values.
type FlagSet uint16

const (
	FlagPaired FlagSet = 1 << iota
	FlagProperPair
	FlagUnmapped
	FlagMateUnmapped
	FlagReverse
	FlagMateReverse
	FlagFirstInPair
	FlagLastInPair
	FlagSecondary
	FlagQCFail
	FlagDuplicate
	FlagSupplementary
)

func (f FlagSet) IsPaired() bool        { return f&FlagPaired != 0 }
func (f FlagSet) IsProperPair() bool    { return f&FlagProperPair != 0 }
func (f FlagSet) IsUnmapped() bool      { return f&FlagUnmapped != 0 }
func (f FlagSet) IsMateUnmapped() bool  { return f&FlagMateUnmapped != 0 }
func (f FlagSet) IsReverse() bool       { return f&FlagReverse != 0 }
func (f FlagSet) IsMateReverse() bool   { return f&FlagMateReverse != 0 }
func (f FlagSet) IsFirstInPair() bool   { return f&FlagFirstInPair != 0 }
func (f FlagSet) IsLastInPair() bool    { return f&FlagLastInPair != 0 }
func (f FlagSet) IsSecondary() bool     { return f&FlagSecondary != 0 }
func (f FlagSet) IsQCFail() bool        { return f&FlagQCFail != 0 }
func (f FlagSet) IsDuplicate() bool     { return f&FlagDuplicate != 0 }
func (f FlagSet) IsSupplementary() bool { return f&FlagSupplementary != 0 }

// Some reports whether any of flags is set, mirroring sam.Alignment.FlagSome.
func (f FlagSet) Some(flags FlagSet) bool { return f&flags != 0 }

// Every reports whether all of flags are set, mirroring sam.Alignment.FlagEvery.
func (f FlagSet) Every(flags FlagSet) bool { return f&flags == flags }

// IsUsable reports whether a read is fit to participate in calling: not
// secondary, not a QC failure, and not a duplicate. Grounded on the
// combination filters/haploutils.go tests before considering a read
// (aln.FlagSome(sam.Secondary | sam.Duplicate | sam.QCFailed)).
func (f FlagSet) IsUsable() bool {
	return !f.Some(FlagSecondary | FlagDuplicate | FlagQCFail)
}

// CigarOp is one CIGAR operation, identical in shape to sam.CigarOperation.
type CigarOp struct {
	Length    int32
	Operation byte
}

// operation codes, the same operator set as sam.CigarOperations.
const (
	OpMatch            = 'M'
	OpInsertion        = 'I'
	OpDeletion         = 'D'
	OpSkip             = 'N'
	OpSoftClip         = 'S'
	OpHardClip         = 'H'
	OpPadding          = 'P'
	OpSequenceMatch    = '='
	OpSequenceMismatch = 'X'
)

func (c CigarOp) String() string {
	return strconv.FormatInt(int64(c.Length), 10) + string(c.Operation)
}

// CigarString renders a slice of CigarOp the way a SAM CIGAR field does.
func CigarString(ops []CigarOp) string {
	if len(ops) == 0 {
		return "*"
	}
	var b strings.Builder
	for _, op := range ops {
		b.WriteString(op.String())
	}
	return b.String()
}

// MateDetails describes what is known about a read's mate. Nil when the
// read is single-ended or its mate is entirely absent from the input.
type MateDetails struct {
	Contig                 string
	Begin                  int32
	InferredTemplateLength int32 // signed: preserves orientation, not coerced to unsigned
	Unmapped               bool
	Reverse                bool
}

// Read is one aligned sequencing read as consumed by this caller: enough
// of a SAM record to build a likelihood.AlignedRead and to apply the
// usability/pairing predicates calling relies on.
type Read struct {
	Name string

	Contig         string
	Region         region.Contig
	MappingQuality float64

	Flags FlagSet
	Cigar []CigarOp

	Sequence      []byte
	BaseQualities []float64

	Mate *MateDetails
}

// IsReverseMapped reports whether the read aligns to the reverse strand.
func (r Read) IsReverseMapped() bool { return r.Flags.IsReverse() }

// ForLikelihood builds the minimal view likelihood.Cache scores against.
func (r Read) ForLikelihood() likelihood.AlignedRead {
	return likelihood.AlignedRead{
		Sequence:        r.Sequence,
		BaseQualities:   r.BaseQualities,
		Region:          r.Region,
		IsReverseMapped: r.IsReverseMapped(),
		MappingQuality:  r.MappingQuality,
	}
}
