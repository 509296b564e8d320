package core

import (
	"fmt"
	"strings"
	"unicode"
)

// SafeFileName maps an arbitrary key value to a filesystem-safe base name.
// Unicode letters and digits are kept, along with spaces, underscores, and
// hyphens; everything else is dropped, then trailing whitespace is trimmed.
// When nothing survives, a deterministic placeholder built from the key's
// 1-based position i is returned so every group still produces a file.
//
// The function is pure and never consults other groups' names, so two
// distinct keys can sanitize to the same name. The archive accepts the
// resulting duplicate members; deduplication is a known limitation.
func SafeFileName(value string, i int) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}

	name := strings.TrimRight(b.String(), " \t\n\r")
	if name == "" {
		return fmt.Sprintf("Unnamed_Item_%d", i)
	}
	return name
}
