// Package normalize holds the pure normal forms that feed identity
// calculation. Every function is deterministic and idempotent:
// applying it twice returns the same string as applying it once.
package normalize

import (
	"regexp"
	"strings"
)

// Gender-disclaimer tags German/English boards append to titles.
var genderTag = regexp.MustCompile(`(?i)\(\s*(?:[mwfdx](?:\s*/\s*[mwfdx]){1,2}|all\s+genders?)\s*\)`)

var commaSpacing = regexp.MustCompile(`\s*,\s*`)

// Remote/hybrid/onsite designators as Polish boards spell them, longest
// first so compound forms win over their substrings.
var locationSynonyms = []struct{ from, to string }{
	{"praca zdalna", "remote"},
	{"praca hybrydowa", "hybrid"},
	{"praca stacjonarna", "onsite"},
	{"zdalnie", "remote"},
	{"zdalna", "remote"},
	{"hybrydowo", "hybrid"},
	{"hybrydowa", "hybrid"},
	{"stacjonarnie", "onsite"},
	{"w biurze", "onsite"},
}

func collapseLower(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Title normalizes a job title: trims, strips gender-disclaimer tags like
// "(m/f/d)" or "(all genders)", collapses whitespace runs and lowercases.
func Title(s string) string {
	s = genderTag.ReplaceAllString(s, " ")
	return collapseLower(s)
}

// Company normalizes a company name: trim, collapse whitespace, lowercase.
func Company(s string) string {
	return collapseLower(s)
}

// Location normalizes a location: trim, collapse whitespace, lowercase,
// translate Polish remote/hybrid/onsite designators and tighten comma
// spacing ("a , b" -> "a,b").
func Location(s string) string {
	s = collapseLower(s)
	for _, syn := range locationSynonyms {
		s = strings.ReplaceAll(s, syn.from, syn.to)
	}
	return commaSpacing.ReplaceAllString(s, ",")
}
