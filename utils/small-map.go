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

package utils

// SmallMapEntry is an entry in a SmallMap.
type SmallMapEntry struct {
	Key   Symbol
	Value interface{}
}

// A SmallMap maps keys to values like a native Go map, but is cheaper for
// the handful of annotation entries a VariantCall typically carries (MP,
// PP, DENOVO, VAF_CR, ...). Keys are always interned Symbols so lookups
// are pointer comparisons.
type SmallMap []SmallMapEntry

// Get returns the value for key and true, or nil and false if absent.
func (m SmallMap) Get(key Symbol) (interface{}, bool) {
	for _, entry := range m {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return nil, false
}

// Set associates value with key, overwriting any existing entry.
func (m *SmallMap) Set(key Symbol, value interface{}) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, SmallMapEntry{key, value})
}

// Delete removes the entry for key, if any, and reports whether it did.
func (m SmallMap) Delete(key Symbol) (SmallMap, bool) {
	for i, entry := range m {
		if entry.Key == key {
			return append(m[:i], m[i+1:]...), true
		}
	}
	return m, false
}
