/*
identifier.go - External transaction identifier generation

PURPOSE:
  Produces the next external transaction identifier from the most recent
  one, preserving the prefix and zero-padding conventions of the existing
  sequence ("T00042" -> "T00043").

CANONICAL ALGORITHM:
  1. <alphabetic prefix><numeric suffix>: increment the suffix, re-pad to
     the ORIGINAL suffix width. When the incremented value no longer fits,
     the width grows ("T99999" -> "T100000") - it is never truncated, which
     would silently corrupt ordering.
  2. Bare integer fallback: increment, preserving width the same way.
  3. Anything else, or no prior identifier: the fixed seed.

PURITY AND UNIQUENESS:
  NextIdentifier is a pure function of the single "last identifier" value.
  It does NOT guarantee uniqueness under concurrent creators; the
  persistence layer enforces that with a UNIQUE constraint
  (ErrDuplicateIdentifier), and callers regenerate and retry on conflict.
*/
package engine

import (
	"fmt"
	"strconv"
)

// SeedIdentifier is emitted when there is no usable prior identifier.
const SeedIdentifier = "T00001"

// NextIdentifier returns the identifier following last.
func NextIdentifier(last string) string {
	if last == "" {
		return SeedIdentifier
	}

	prefix, suffix := splitIdentifier(last)
	if suffix == "" {
		return SeedIdentifier
	}

	n, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil {
		// Suffix too large for uint64 or otherwise unusable.
		return SeedIdentifier
	}

	// Re-pad to the original width; %0*d grows past it when needed.
	return prefix + fmt.Sprintf("%0*d", len(suffix), n+1)
}

// splitIdentifier separates a leading alphabetic prefix from a trailing
// numeric suffix. A bare integer yields an empty prefix. Any other shape
// yields an empty suffix.
func splitIdentifier(s string) (prefix, suffix string) {
	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	prefix, rest := s[:i], s[i:]
	if rest == "" {
		return prefix, ""
	}
	for j := 0; j < len(rest); j++ {
		if rest[j] < '0' || rest[j] > '9' {
			return prefix, ""
		}
	}
	return prefix, rest
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
