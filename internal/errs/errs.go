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

// Package errs collects the recoverable error kinds that cross package
// boundaries in the likelihood and haplotype core. Invariant violations
// are returned as a LogicError rather than raised with a panic, so a
// worker pool can abandon just the region that hit one.
package errs

import "fmt"

// ShortHaplotypeError means a haplotype cannot contain a read even after
// the maximal lateral shift the likelihood model is willing to try.
// Caller is expected to catch this with errors.As, expand the haplotype by
// at least RequiredExtension bases, and retry the region.
type ShortHaplotypeError struct {
	Haplotype         fmt.Stringer
	RequiredExtension uint32
}

func (e *ShortHaplotypeError) Error() string {
	return fmt.Sprintf("haplotype %v is too short for alignment: needs %d more bases of padding",
		e.Haplotype, e.RequiredExtension)
}

// DomainError reports a region/contig mismatch surfacing from a public API.
type DomainError struct {
	Op  string
	Msg string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// LogicError reports an invariant violation such as an out-of-order allele
// push or a zero ploidy. It is unrecoverable for the caller that raised it,
// but unlike a panic it lets a worker pool abandon only the offending
// region.
type LogicError struct {
	Op  string
	Msg string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// MissingHaplotypeError is raised when evaluate/align is called on a
// likelihood cache before reset. This is always a programmer error.
type MissingHaplotypeError struct{}

func (e *MissingHaplotypeError) Error() string {
	return "likelihood cache: evaluate/align called before reset"
}

// UnregisteredCallTypeError reports a lookup against the annotation
// registry for a CallKind that was never registered.
type UnregisteredCallTypeError struct {
	Kind fmt.Stringer
}

func (e *UnregisteredCallTypeError) Error() string {
	return fmt.Sprintf("no annotator registered for call type %v", e.Kind)
}

// OutOfRangeError reports Haplotype.SequenceOverRegion called with a sub-region that
// is not contained in the haplotype's region.
type OutOfRangeError struct {
	Op  string
	Msg string
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}
