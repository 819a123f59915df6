// Package views derives what each page shows from the records the API returns.
// Everything here is pure; fetching and state live elsewhere.
package views

import (
	"slices"
	"strings"
)

// AllCategories is the catch-all category chip shown first on every page.
const AllCategories = "All"

// Published keeps the items for which published reports true. The result is
// never nil.
func Published[T any](items []T, published func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if published(item) {
			out = append(out, item)
		}
	}
	return out
}

// Categories returns "All" followed by the distinct non-empty categories in
// order of first appearance.
func Categories[T any](items []T, category func(T) string) []string {
	out := []string{AllCategories}
	for _, item := range items {
		c := strings.TrimSpace(category(item))
		if c == "" || slices.Contains(out, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// InCategory keeps the items in active. "All" or blank keeps everything.
func InCategory[T any](items []T, active string, category func(T) string) []T {
	if active == "" || active == AllCategories {
		return slices.Clone(items)
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if category(item) == active {
			out = append(out, item)
		}
	}
	return out
}

// Without drops the record with id, used to update a list after a delete.
func Without[T any](items []T, id string, idOf func(T) string) []T {
	return slices.DeleteFunc(slices.Clone(items), func(item T) bool { return idOf(item) == id })
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
