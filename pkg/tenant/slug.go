package tenant

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SlugFromName derives a slug from a display name: diacritics are folded to
// ASCII, runs of other characters become a single hyphen and the result is
// cut to MaxSlugLength. It returns "" when nothing usable remains.
func SlugFromName(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			if b.Len() >= MaxSlugLength {
				break
			}
			continue
		}
		pendingSep = true
	}

	s := strings.TrimRight(b.String()[:min(b.Len(), MaxSlugLength)], "-")
	if !IsValidSlug(s) {
		return ""
	}
	return s
}
