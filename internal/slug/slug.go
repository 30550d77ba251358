// Package slug derives URL-safe identifiers from human titles. Branch names
// and guideline slugs must agree, so every caller goes through Make.
package slug

import "strings"

// Make lowercases each word, strips everything but letters and digits, and
// joins the surviving words with hyphens.
func Make(title string) string {
	words := strings.Fields(title)
	cleaned := make([]string, 0, len(words))
	for _, word := range words {
		var b strings.Builder
		for _, r := range word {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			cleaned = append(cleaned, strings.ToLower(b.String()))
		}
	}
	return strings.Join(cleaned, "-")
}
