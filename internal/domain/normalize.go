package domain

import (
	"regexp"
	"strings"
	"unicode"
)

// doiPrefixes are the prefixes stripped when normalizing a DOI.
// Order matters: URL forms are stripped before the bare "doi:" scheme.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi:",
}

// yearTokenRegex matches a plausible publication year inside a date string.
var yearTokenRegex = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

// NormalizeDOI normalizes a DOI for comparison: trims whitespace, strips URL
// and scheme prefixes, and lowercases. An empty input yields an empty string.
// The function is idempotent.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}
	lower := strings.ToLower(doi)
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(lower, prefix) {
			doi = doi[len(prefix):]
			lower = lower[len(prefix):]
		}
	}
	return strings.ToLower(strings.TrimSpace(doi))
}

// NormalizeTitle normalizes a paper title for comparison: lowercases, drops
// punctuation, and collapses all whitespace runs to single spaces. The
// function is idempotent, so normalized titles can be re-normalized safely.
func NormalizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return ""
	}

	var sb strings.Builder
	sb.Grow(len(title))
	prevSpace := false

	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		default:
			// Punctuation separates words so "learning:a" does not fuse
			// into a single token.
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimRight(sb.String(), " ")
}

// NormalizeAuthorName normalizes an author name for identity hashing:
// lowercases, reorders "Last, First" to "First Last", drops non-letter
// characters, and collapses whitespace.
func NormalizeAuthorName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	if idx := strings.Index(name, ","); idx >= 0 {
		last := strings.TrimSpace(name[:idx])
		first := strings.TrimSpace(name[idx+1:])
		if first != "" {
			name = first + " " + last
		} else {
			name = last
		}
	}

	var sb strings.Builder
	sb.Grow(len(name))
	prevSpace := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			sb.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimRight(sb.String(), " ")
}

// YearFromDate extracts a four-digit publication year from a vendor date
// string ("2019-03-01", "March 2019", "2019"). Returns 0 when no plausible
// year token is present.
func YearFromDate(date string) int {
	match := yearTokenRegex.FindString(date)
	if match == "" {
		return 0
	}
	year := 0
	for _, d := range match {
		year = year*10 + int(d-'0')
	}
	return year
}
