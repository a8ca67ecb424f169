package match

import (
	"regexp"
	"strings"
)

var (
	spaceRun    = regexp.MustCompile(`\s+`)
	nonAlphaNum = regexp.MustCompile(`[^a-z0-9 ]`)
)

// keyStopwords are dropped from the stricter keying form used for
// synonym-registry lookups.
var keyStopwords = map[string]struct{}{
	"and":     {},
	"or":      {},
	"the":     {},
	"of":      {},
	"in":      {},
	"with":    {},
	"without": {},
}

// Normalize canonicalizes a raw specialty string for comparison:
// lower-case, single spaces, standardized separators. Idempotent.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "/", " / ")
	s = strings.ReplaceAll(s, "-", " - ")
	s = strings.ReplaceAll(s, "(", " (")
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "( ", "(")
	s = strings.ReplaceAll(s, " )", ")")
	return strings.TrimSpace(s)
}

// NormalizeKey produces the stricter keying form: Normalize, then strip
// all non-alphanumerics and drop stopwords. Registry lookups use this so
// that "Hematology/Oncology" and "hematology and oncology" key equal.
func NormalizeKey(raw string) string {
	s := Normalize(raw)
	s = nonAlphaNum.ReplaceAllString(s, " ")
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if _, stop := keyStopwords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// Words returns the set of key-normalized words of s.
func Words(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(NormalizeKey(s)) {
		set[w] = struct{}{}
	}
	return set
}
