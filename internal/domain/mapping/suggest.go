package mapping

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Suggestion is an advisory merge candidate: a group of unmapped raw item
// names that normalize to the same key. Nothing is ever merged
// automatically; an operator confirms every mapping.
type Suggestion struct {
	NormalizedKey string   `json:"normalized_key"`
	Names         []string `json:"names"`
	Occurrences   int      `json:"occurrences"`
}

var foldCaser = cases.Fold()

// NormalizeName reduces an item name to a comparison key: Unicode-folded,
// decomposed with combining marks stripped, punctuation removed, and
// internal whitespace collapsed to nothing. "Crème  Fraîche" and
// "creme-fraiche" normalize to the same key.
func NormalizeName(name string) string {
	folded := foldCaser.String(strings.TrimSpace(name))
	decomposed := norm.NFKD.String(folded)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from decomposition
		case unicode.IsSpace(r), unicode.IsPunct(r), unicode.IsSymbol(r):
			// collapse separators so spacing/punctuation variants merge
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GroupUnmapped groups raw item names that have no active mapping by their
// normalized key. Groups are sorted by occurrence count descending, then
// key, so the most impactful merge candidates come first.
func GroupUnmapped(rawNames []string, lookup LookupTable) []Suggestion {
	groups := make(map[string]map[string]int)
	for _, name := range rawNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, mapped := lookup[FoldName(name)]; mapped {
			continue
		}
		key := NormalizeName(name)
		if key == "" {
			continue
		}
		if groups[key] == nil {
			groups[key] = make(map[string]int)
		}
		groups[key][name]++
	}

	suggestions := make([]Suggestion, 0, len(groups))
	for key, spellings := range groups {
		names := make([]string, 0, len(spellings))
		total := 0
		for name, count := range spellings {
			names = append(names, name)
			total += count
		}
		sort.Strings(names)
		suggestions = append(suggestions, Suggestion{
			NormalizedKey: key,
			Names:         names,
			Occurrences:   total,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Occurrences != suggestions[j].Occurrences {
			return suggestions[i].Occurrences > suggestions[j].Occurrences
		}
		return suggestions[i].NormalizedKey < suggestions[j].NormalizedKey
	})
	return suggestions
}
