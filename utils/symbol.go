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

// Package utils provides small, ambient data structures shared across the
// core: interned string symbols and the SmallMap used for
// INFO/FORMAT-style annotation fields. Adapted from elPrep's utils package,
// including its use of pargo's lock-free Map for the symbol table.
package utils

import (
	"hash/fnv"

	"github.com/exascience/pargo/sync"
)

// A Symbol is a unique pointer to a string, usable as a map key for
// pointer-equality comparisons instead of string comparisons.
type Symbol *string

// symbolName wraps a plain string with the Hash method pargo/sync.Map's
// Hashable key requires.
type symbolName string

func (s symbolName) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

var symbolTable = sync.NewMap(0)

// Intern returns a Symbol for the given string.
//
// It always returns the same pointer for strings that are equal, and
// different pointers for strings that are not equal: for two strings s1
// and s2, if s1 == s2, then Intern(s1) == Intern(s2), and if s1 != s2,
// then Intern(s1) != Intern(s2).
//
// Dereferencing the pointer always yields a string equal to the original:
// *Intern(s) == s always holds.
//
// It is safe for multiple goroutines to call Intern concurrently.
func Intern(s string) Symbol {
	entry, _ := symbolTable.LoadOrStore(symbolName(s), Symbol(&s))
	return entry.(Symbol)
}
