// Package region maps free-text affiliations and URLs to countries so the
// regional booster can prioritize locally relevant papers.
package region

import (
	"strings"
)

// Confidence levels reported by the heuristic detector. Keyword matches on
// institution names are stronger signals than a bare country-code TLD.
const (
	keywordConfidence = 0.9
	tldConfidence     = 0.7
)

// Detector resolves a geographic origin from affiliation text or a URL.
type Detector interface {
	// Detect returns the country name and a confidence in [0, 1].
	// An empty country with confidence 0 means no signal was found.
	Detect(affiliationOrURL string) (country string, confidence float64)
}

// HeuristicDetector is a table-driven Detector combining country-code TLD
// lookups with affiliation keyword matching. The zero value is not usable;
// construct it with NewHeuristicDetector.
type HeuristicDetector struct {
	tlds     map[string]string
	keywords []keywordEntry
}

type keywordEntry struct {
	keyword string
	country string
}

var _ Detector = (*HeuristicDetector)(nil)

// countryTLDs maps country-code top-level domains to country names.
var countryTLDs = map[string]string{
	"br": "Brazil",
	"us": "USA",
	"uk": "United Kingdom",
	"de": "Germany",
	"fr": "France",
	"jp": "Japan",
	"cn": "China",
	"in": "India",
	"ca": "Canada",
	"au": "Australia",
	"nl": "Netherlands",
	"ch": "Switzerland",
	"se": "Sweden",
	"kr": "South Korea",
	"es": "Spain",
	"it": "Italy",
	"pt": "Portugal",
	"mx": "Mexico",
	"ar": "Argentina",
	"cl": "Chile",
	"co": "Colombia",
	"za": "South Africa",
	"ru": "Russia",
	"il": "Israel",
	"sg": "Singapore",
}

// affiliationKeywords maps lowercase substrings of institution names and
// locations to country names. Longer, more specific entries come first so
// they win over generic ones when both match.
var affiliationKeywords = []keywordEntry{
	{"universidade de são paulo", "Brazil"},
	{"universidade estadual de campinas", "Brazil"},
	{"universidade federal", "Brazil"},
	{"universidade", "Brazil"},
	{"são paulo", "Brazil"},
	{"sao paulo", "Brazil"},
	{"rio de janeiro", "Brazil"},
	{"fiocruz", "Brazil"},
	{"embrapa", "Brazil"},
	{"brazil", "Brazil"},
	{"brasil", "Brazil"},
	{"massachusetts institute of technology", "USA"},
	{"stanford university", "USA"},
	{"carnegie mellon", "USA"},
	{"united states", "USA"},
	{"university of oxford", "United Kingdom"},
	{"university of cambridge", "United Kingdom"},
	{"imperial college london", "United Kingdom"},
	{"united kingdom", "United Kingdom"},
	{"max planck", "Germany"},
	{"fraunhofer", "Germany"},
	{"germany", "Germany"},
	{"sorbonne", "France"},
	{"inria", "France"},
	{"cnrs", "France"},
	{"france", "France"},
	{"university of tokyo", "Japan"},
	{"riken", "Japan"},
	{"japan", "Japan"},
	{"tsinghua university", "China"},
	{"peking university", "China"},
	{"chinese academy of sciences", "China"},
	{"china", "China"},
	{"indian institute of technology", "India"},
	{"indian institute of science", "India"},
	{"india", "India"},
	{"university of toronto", "Canada"},
	{"mcgill university", "Canada"},
	{"canada", "Canada"},
	{"eth zürich", "Switzerland"},
	{"eth zurich", "Switzerland"},
	{"epfl", "Switzerland"},
	{"switzerland", "Switzerland"},
	{"kaist", "South Korea"},
	{"seoul national university", "South Korea"},
	{"south korea", "South Korea"},
	{"national university of singapore", "Singapore"},
	{"singapore", "Singapore"},
	{"australia", "Australia"},
	{"netherlands", "Netherlands"},
	{"sweden", "Sweden"},
	{"israel", "Israel"},
	{"spain", "Spain"},
	{"italy", "Italy"},
	{"portugal", "Portugal"},
	{"mexico", "Mexico"},
	{"argentina", "Argentina"},
	{"chile", "Chile"},
	{"colombia", "Colombia"},
	{"south africa", "South Africa"},
	{"russia", "Russia"},
}

// NewHeuristicDetector creates a detector backed by the built-in TLD and
// affiliation tables.
func NewHeuristicDetector() *HeuristicDetector {
	return &HeuristicDetector{
		tlds:     countryTLDs,
		keywords: affiliationKeywords,
	}
}

// Detect resolves a country from the given affiliation text or URL.
// Keyword matches take priority over TLD matches.
func (d *HeuristicDetector) Detect(affiliationOrURL string) (string, float64) {
	text := strings.ToLower(strings.TrimSpace(affiliationOrURL))
	if text == "" {
		return "", 0
	}

	for _, entry := range d.keywords {
		if strings.Contains(text, entry.keyword) {
			return entry.country, keywordConfidence
		}
	}

	if host := extractHost(text); host != "" {
		if country, ok := d.tlds[lastLabel(host)]; ok {
			return country, tldConfidence
		}
	}

	return "", 0
}

// extractHost pulls the hostname out of a URL-ish string. Plain hostnames
// pass through; free text without dots returns empty.
func extractHost(text string) string {
	host := text
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.Index(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimSpace(host)
	if !strings.Contains(host, ".") || strings.ContainsAny(host, " \t") {
		return ""
	}
	return host
}

// lastLabel returns the final dot-separated label of a hostname.
func lastLabel(host string) string {
	if i := strings.LastIndex(host, "."); i >= 0 {
		return host[i+1:]
	}
	return host
}
