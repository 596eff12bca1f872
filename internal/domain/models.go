// Package domain provides domain models and business logic for the Paper Discovery Service.
package domain

// SourceType identifies a bibliographic database that can provide paper records.
type SourceType string

const (
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeCrossref        SourceType = "crossref"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypeCORE            SourceType = "core"
	SourceTypeInternal        SourceType = "internal"
)

// AllSourceTypes lists every recognized source in default priority order.
var AllSourceTypes = []SourceType{
	SourceTypeOpenAlex,
	SourceTypeCrossref,
	SourceTypeSemanticScholar,
	SourceTypeArXiv,
	SourceTypeCORE,
	SourceTypeInternal,
}

// IsValid reports whether the source tag is one of the recognized sources.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeOpenAlex, SourceTypeCrossref, SourceTypeSemanticScholar,
		SourceTypeArXiv, SourceTypeCORE, SourceTypeInternal:
		return true
	default:
		return false
	}
}

// IsExternal reports whether the source is an external API (as opposed to the
// internal content store).
func (s SourceType) IsExternal() bool {
	return s.IsValid() && s != SourceTypeInternal
}

// FilterSourceTypes returns the subset of tags that are recognized sources,
// preserving order and dropping duplicates. Unknown tags are ignored rather
// than rejected so callers can pass through user-supplied source lists.
func FilterSourceTypes(tags []string) []SourceType {
	seen := make(map[SourceType]bool, len(tags))
	out := make([]SourceType, 0, len(tags))
	for _, tag := range tags {
		st := SourceType(tag)
		if !st.IsValid() || seen[st] {
			continue
		}
		seen[st] = true
		out = append(out, st)
	}
	return out
}
