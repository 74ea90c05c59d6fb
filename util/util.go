// Package util provides small generic helpers shared across the toolkit.
package util

import "sort"

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value pointed to by p, or the zero value if p is nil.
func Deref[T any](p *T) T {
	if p != nil {
		return *p
	}
	var zero T
	return zero
}

// Default returns val if it is non-zero, otherwise fallback.
func Default[T comparable](val, fallback T) T {
	var zero T
	if val == zero {
		return fallback
	}
	return val
}

// Contains checks if a slice contains a value.
func Contains[T comparable](slice []T, val T) bool {
	for _, item := range slice {
		if item == val {
			return true
		}
	}
	return false
}

// SortedKeys returns the keys of a map in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedValues returns the values of a map ordered by ascending key.
func SortedValues[V any](m map[string]V) []V {
	keys := SortedKeys(m)
	vals := make([]V, 0, len(keys))
	for _, k := range keys {
		vals = append(vals, m[k])
	}
	return vals
}
