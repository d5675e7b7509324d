package mapping

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Mapping Errors
// ---------------------------------------------------------------------------

var (
	// ErrMappingNotFound is returned when no mapping matches the lookup
	ErrMappingNotFound = shared.NewDomainError("MAPPING_NOT_FOUND", "Item mapping not found")
	// ErrAliasConflict is returned when an alias is already owned by a
	// different active mapping; aliases are exclusive, many-to-one.
	ErrAliasConflict = shared.NewDomainError("ALIAS_CONFLICT", "Alias already belongs to another active mapping")
	// ErrAliasNotOwned is returned when removing an alias the mapping does not own
	ErrAliasNotOwned = shared.NewDomainError("ALIAS_NOT_OWNED", "Alias does not belong to this mapping")
	// ErrInvalidCanonicalName is returned for empty or whitespace-only canonical names
	ErrInvalidCanonicalName = shared.NewDomainError("INVALID_CANONICAL_NAME", "Canonical name cannot be empty")
	// ErrInvalidAlias is returned for empty or whitespace-only aliases
	ErrInvalidAlias = shared.NewDomainError("INVALID_ALIAS", "Alias cannot be empty")
)

// ---------------------------------------------------------------------------
// ItemMapping Aggregate
// ---------------------------------------------------------------------------

// Alias is one raw spelling owned by an ItemMapping.
type Alias struct {
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

// ItemMapping groups inconsistently-spelled external item names under one
// canonical identity. Every alias belongs to at most one active mapping
// across the whole store; resolution is case-insensitive.
type ItemMapping struct {
	shared.BaseAggregateRoot
	CanonicalName string
	Aliases       []Alias
	Active        bool
}

// NewItemMapping creates an active mapping with the given canonical name.
func NewItemMapping(canonicalName string) (*ItemMapping, error) {
	canonicalName = strings.TrimSpace(canonicalName)
	if canonicalName == "" {
		return nil, ErrInvalidCanonicalName
	}
	return &ItemMapping{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CanonicalName:     canonicalName,
		Aliases:           make([]Alias, 0),
		Active:            true,
	}, nil
}

// FoldName normalizes a name for case-insensitive comparison and lookup keys.
func FoldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// OwnsAlias reports whether this mapping already owns the alias
// (case-insensitive). The canonical name counts as owned.
func (m *ItemMapping) OwnsAlias(name string) bool {
	key := FoldName(name)
	if key == FoldName(m.CanonicalName) {
		return true
	}
	for _, a := range m.Aliases {
		if FoldName(a.Name) == key {
			return true
		}
	}
	return false
}

// AddAlias attaches an alias to this mapping. Adding an alias the mapping
// already owns is a no-op and reports added=false. Cross-mapping
// exclusivity is the caller's responsibility (repository uniqueness check).
func (m *ItemMapping) AddAlias(name string) (added bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, ErrInvalidAlias
	}
	if m.OwnsAlias(name) {
		return false, nil
	}
	m.Aliases = append(m.Aliases, Alias{Name: name, AddedAt: time.Now()})
	m.Touch()
	m.IncrementVersion()
	return true, nil
}

// RemoveAlias detaches an alias. Removing the last alias leaves an
// alias-less mapping record; the mapping itself is never deleted here.
func (m *ItemMapping) RemoveAlias(name string) error {
	key := FoldName(name)
	for i, a := range m.Aliases {
		if FoldName(a.Name) == key {
			m.Aliases = append(m.Aliases[:i], m.Aliases[i+1:]...)
			m.Touch()
			m.IncrementVersion()
			return nil
		}
	}
	return ErrAliasNotOwned
}

// ReplaceAliases swaps the alias set wholesale, deduplicating
// case-insensitively and dropping aliases equal to the canonical name.
func (m *ItemMapping) ReplaceAliases(names []string) error {
	seen := make(map[string]struct{}, len(names))
	aliases := make([]Alias, 0, len(names))
	now := time.Now()
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			return ErrInvalidAlias
		}
		key := FoldName(name)
		if key == FoldName(m.CanonicalName) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		aliases = append(aliases, Alias{Name: name, AddedAt: now})
	}
	m.Aliases = aliases
	m.UpdatedAt = now
	m.IncrementVersion()
	return nil
}

// Activate re-enables the mapping for resolution.
func (m *ItemMapping) Activate() {
	m.Active = true
	m.Touch()
	m.IncrementVersion()
}

// Deactivate soft-disables the mapping; its aliases stop resolving but the
// record is retained while history references the canonical identity.
func (m *ItemMapping) Deactivate() {
	m.Active = false
	m.Touch()
	m.IncrementVersion()
}

// AliasNames returns the raw alias spellings.
func (m *ItemMapping) AliasNames() []string {
	names := make([]string, 0, len(m.Aliases))
	for _, a := range m.Aliases {
		names = append(names, a.Name)
	}
	return names
}

// ---------------------------------------------------------------------------
// ItemMappingRepository Interface
// ---------------------------------------------------------------------------

// ItemMappingReader defines the interface for reading item mappings
type ItemMappingReader interface {
	// FindByID finds a mapping by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ItemMapping, error)

	// FindByCanonical finds a mapping by canonical name (case-insensitive)
	FindByCanonical(ctx context.Context, canonicalName string) (*ItemMapping, error)

	// FindByAlias finds the active mapping owning an alias (case-insensitive)
	FindByAlias(ctx context.Context, alias string) (*ItemMapping, error)
}

// ItemMappingFinder defines the interface for searching item mappings
type ItemMappingFinder interface {
	// FindAll finds mappings with optional filters
	FindAll(ctx context.Context, filter ItemMappingFilter) ([]ItemMapping, error)

	// FindAllActive finds every active mapping, aliases loaded
	FindAllActive(ctx context.Context) ([]ItemMapping, error)

	// Count counts mappings matching the filter
	Count(ctx context.Context, filter ItemMappingFilter) (int64, error)

	// ExistsAliasOutside reports whether an alias is owned by an active
	// mapping other than the given one (uuid.Nil checks all mappings)
	ExistsAliasOutside(ctx context.Context, alias string, mappingID uuid.UUID) (bool, error)
}

// ItemMappingWriter defines the interface for persisting item mappings
type ItemMappingWriter interface {
	// Save creates or updates a mapping with its alias set
	Save(ctx context.Context, m *ItemMapping) error

	// Delete removes a mapping permanently
	Delete(ctx context.Context, id uuid.UUID) error
}

// ItemMappingRepository defines the full interface for mapping persistence
type ItemMappingRepository interface {
	ItemMappingReader
	ItemMappingFinder
	ItemMappingWriter
}

// ItemMappingFilter defines filter criteria for item mappings
type ItemMappingFilter struct {
	// Active filters by active status (optional)
	Active *bool
	// SearchKeyword searches canonical names and aliases (optional)
	SearchKeyword string
	// Page number (1-indexed)
	Page int
	// Page size
	PageSize int
}
