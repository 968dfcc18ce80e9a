// Package slugs provides the slug helpers shared by the CLI.
//
// Two strategies exist:
//   - Query names: saved-query keys, built on gosimple/slug so "Hidden Meshes"
//     and "hidden-meshes" name the same query.
//   - Heading slugs: topic names for `sceneql docs`, derived from markdown
//     headings with a conservative transformation that keeps non-ASCII letters.
package slugs

import (
	"strings"
	"unicode"

	goslug "github.com/gosimple/slug"
)

// QueryName normalizes a saved-query name. It returns "" when nothing
// sluggable remains.
func QueryName(s string) string {
	return goslug.Make(strings.TrimSpace(s))
}

// HeadingSlug converts heading text to a topic slug.
func HeadingSlug(text string) string {
	var result strings.Builder
	prevDash := false

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			result.WriteRune(r)
			prevDash = false
		case r == ' ' || r == '-' || r == '_' || r == ':':
			if !prevDash && result.Len() > 0 {
				result.WriteRune('-')
				prevDash = true
			}
		}
	}

	return strings.TrimSuffix(result.String(), "-")
}
