package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a name and removes all whitespace, "Add to Bag " becomes "addtobag".
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether the normalized name contains any of the matchers,
// matchers are expected to already be normalized.
func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// NormalizeKey keeps only lowercased letters and digits, "IN_STOCK" and "In Stock"
// both become "instock".
func NormalizeKey(key string) string {
	var out strings.Builder
	out.Grow(len(key))
	for _, r := range key {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(unicode.ToLower(r))
		}
	}
	return out.String()
}

// MatchKey is MatchName using NormalizeKey, punctuation is ignored so "Out-of-stock"
// matches "outofstock".
func MatchKey(text string, matchers []string) bool {
	text = NormalizeKey(text)
	for _, m := range matchers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// CollapseWhitespace trims the string and replaces inner runs of whitespace with a single space.
func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}
