// Package utils provides small, generic helpers shared across layers. They
// carry no domain knowledge.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 integer, returning def when s is empty
// or not a valid integer. Handlers use it to read pagination query
// parameters without error plumbing.
func AtoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
