package mapping

import (
	"context"
)

// LookupTable is the materialized alias table: folded alias (and canonical
// name) keys mapped to the canonical display name. It supports O(1) batch
// resolution and is cheap to rebuild from the active mapping set.
type LookupTable map[string]string

// BuildLookup materializes the lookup table from active mappings. Inactive
// mappings contribute nothing. Canonical names map to themselves so that a
// canonical spelling arriving as raw input stays stable.
func BuildLookup(mappings []ItemMapping) LookupTable {
	table := make(LookupTable, len(mappings)*2)
	for i := range mappings {
		m := &mappings[i]
		if !m.Active {
			continue
		}
		table[FoldName(m.CanonicalName)] = m.CanonicalName
		for _, a := range m.Aliases {
			table[FoldName(a.Name)] = m.CanonicalName
		}
	}
	return table
}

// Resolve returns the canonical name for a raw item name, or the name
// unchanged when unmapped. Unmapped items are valid; they are their own
// canonical identity. Resolution never fails.
func (t LookupTable) Resolve(name string) string {
	if canonical, ok := t[FoldName(name)]; ok {
		return canonical
	}
	return name
}

// Resolver resolves raw item names to canonical identities. Implemented by
// the mapping application service (with cached lookup) and consumed by
// ingestion and reconciliation.
type Resolver interface {
	// Resolve canonicalizes one name; unmapped names come back unchanged.
	Resolve(ctx context.Context, name string) (string, error)

	// Lookup returns the full alias table for batch resolution.
	Lookup(ctx context.Context) (LookupTable, error)
}

// LookupCache caches a materialized LookupTable with a short TTL.
// Implementations must treat Invalidate as best-effort: resolution
// falls back to a rebuild on any cache miss or error.
type LookupCache interface {
	Get(ctx context.Context) (LookupTable, bool, error)
	Set(ctx context.Context, table LookupTable) error
	Invalidate(ctx context.Context) error
}
