package flow

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes inbound text for keyword matching: trim, uppercase,
// decompose and drop combining marks (accents and the tilde on ene), then
// collapse whitespace runs to single spaces. The function is idempotent.
func Normalize(input string) string {
	upper := strings.ToUpper(strings.TrimSpace(input))
	decomposed := norm.NFD.String(upper)

	var builder strings.Builder
	builder.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		builder.WriteRune(r)
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}
