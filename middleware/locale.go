package middleware

import (
	"strings"

	"golang.org/x/text/language"
)

// maxAcceptLanguageLength bounds the header size the gate is willing to parse.
const maxAcceptLanguageLength = 4096

// preferredLocale picks the first supported locale in the visitor's
// Accept-Language order. Quality values are honoured and regional variants
// match on their base language ("en-GB" selects "en").
func preferredLocale(header string, supported []string, fallback string) string {
	if header == "" || len(header) > maxAcceptLanguageLength {
		return fallback
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return fallback
	}

	for _, tag := range tags {
		base, _ := tag.Base()
		if loc, ok := lookupLocale(base.String(), supported); ok {
			return loc
		}
	}

	return fallback
}

func lookupLocale(candidate string, supported []string) (string, bool) {
	for _, loc := range supported {
		if strings.EqualFold(candidate, loc) {
			return loc, true
		}
	}
	return "", false
}

// splitLocale separates the leading path segment from the rest of the path.
// Empty segments are ignored, so "/en//a/" yields ("en", "/a").
func splitLocale(path string) (first, rest string) {
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return "", "/"
	}
	if len(segments) == 1 {
		return segments[0], "/"
	}
	return segments[0], "/" + strings.Join(segments[1:], "/")
}

// hasPathPrefix matches prefix on segment boundaries: "/dashboard" matches
// "/dashboard" and "/dashboard/x" but not "/dashboardextra".
func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if hasPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}
