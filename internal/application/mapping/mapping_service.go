package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/mapping"
	"github.com/stocksync/backend/internal/domain/shared"
)

// RawNameSource lists distinct raw item spellings seen in ingested data.
// Each external mirror repository provides one; the service merges them
// for suggestion grouping.
type RawNameSource interface {
	DistinctRawItemNames(ctx context.Context) ([]string, error)
}

// MappingService manages the canonicalization store: operator-maintained
// mappings from raw portal spellings to canonical item identities, plus
// the cached lookup table ingestion and reconciliation resolve through.
type MappingService struct {
	repo    mapping.ItemMappingRepository
	cache   mapping.LookupCache
	sources []RawNameSource
}

// NewMappingService creates a new MappingService. The cache may be nil,
// in which case every lookup rebuilds the table from the repository.
func NewMappingService(repo mapping.ItemMappingRepository, cache mapping.LookupCache, sources ...RawNameSource) *MappingService {
	return &MappingService{
		repo:    repo,
		cache:   cache,
		sources: sources,
	}
}

// UpsertMapping creates the mapping for a canonical name or extends an
// existing one with new aliases. Claiming an alias owned by another
// active mapping fails with ALIAS_CONFLICT and nothing is persisted.
func (s *MappingService) UpsertMapping(ctx context.Context, req UpsertMappingRequest) (*MappingResponse, error) {
	m, err := s.repo.FindByCanonical(ctx, req.CanonicalName)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, mapping.ErrMappingNotFound) {
			return nil, err
		}
		m, err = s.newMapping(ctx, req.CanonicalName)
		if err != nil {
			return nil, err
		}
	}

	for _, alias := range req.Aliases {
		if m.OwnsAlias(alias) {
			continue
		}
		taken, err := s.repo.ExistsAliasOutside(ctx, alias, m.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, shared.NewDomainError("ALIAS_CONFLICT",
				fmt.Sprintf("Alias %q already belongs to another active mapping", alias))
		}
		if _, err := m.AddAlias(alias); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}
	s.invalidateLookup(ctx)

	resp := ToMappingResponse(m)
	return &resp, nil
}

func (s *MappingService) newMapping(ctx context.Context, canonicalName string) (*mapping.ItemMapping, error) {
	m, err := mapping.NewItemMapping(canonicalName)
	if err != nil {
		return nil, err
	}
	// the canonical name may not already be claimed as some other
	// mapping's alias
	taken, err := s.repo.ExistsAliasOutside(ctx, m.CanonicalName, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, shared.NewDomainError("ALIAS_CONFLICT",
			fmt.Sprintf("Canonical name %q is already an alias of another mapping", m.CanonicalName))
	}
	return m, nil
}

// ReplaceMapping swaps the alias set of an existing mapping wholesale and
// optionally toggles its active flag.
func (s *MappingService) ReplaceMapping(ctx context.Context, canonicalName string, req ReplaceMappingRequest) (*MappingResponse, error) {
	m, err := s.repo.FindByCanonical(ctx, canonicalName)
	if err != nil {
		return nil, err
	}

	for _, alias := range req.Aliases {
		if m.OwnsAlias(alias) {
			continue
		}
		taken, err := s.repo.ExistsAliasOutside(ctx, alias, m.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, shared.NewDomainError("ALIAS_CONFLICT",
				fmt.Sprintf("Alias %q already belongs to another active mapping", alias))
		}
	}

	if err := m.ReplaceAliases(req.Aliases); err != nil {
		return nil, err
	}
	if req.Active != nil {
		if *req.Active {
			m.Activate()
		} else {
			m.Deactivate()
		}
	}

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}
	s.invalidateLookup(ctx)

	resp := ToMappingResponse(m)
	return &resp, nil
}

// DeleteMapping deactivates a mapping, or removes it permanently when
// hard is set. Deactivation keeps the row so history referencing the
// canonical identity stays explainable.
func (s *MappingService) DeleteMapping(ctx context.Context, canonicalName string, hard bool) error {
	m, err := s.repo.FindByCanonical(ctx, canonicalName)
	if err != nil {
		return err
	}

	if hard {
		if err := s.repo.Delete(ctx, m.ID); err != nil {
			return err
		}
	} else {
		m.Deactivate()
		if err := s.repo.Save(ctx, m); err != nil {
			return err
		}
	}
	s.invalidateLookup(ctx)
	return nil
}

// GetMapping retrieves one mapping by canonical name.
func (s *MappingService) GetMapping(ctx context.Context, canonicalName string) (*MappingResponse, error) {
	m, err := s.repo.FindByCanonical(ctx, canonicalName)
	if err != nil {
		return nil, err
	}
	resp := ToMappingResponse(m)
	return &resp, nil
}

// ListMappings lists mappings with filtering and pagination.
func (s *MappingService) ListMappings(ctx context.Context, filter mapping.ItemMappingFilter) ([]MappingResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	mappings, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return ToMappingResponses(mappings), total, nil
}

// Suggestions groups raw item names with no active mapping by normalized
// form. Advisory only; nothing is merged without an operator confirming.
func (s *MappingService) Suggestions(ctx context.Context) ([]mapping.Suggestion, error) {
	lookup, err := s.Lookup(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, source := range s.sources {
		batch, err := source.DistinctRawItemNames(ctx)
		if err != nil {
			return nil, err
		}
		names = append(names, batch...)
	}

	return mapping.GroupUnmapped(names, lookup), nil
}

// Resolve canonicalizes one raw name through the cached lookup table.
func (s *MappingService) Resolve(ctx context.Context, name string) (string, error) {
	table, err := s.Lookup(ctx)
	if err != nil {
		return "", err
	}
	return table.Resolve(name), nil
}

// Lookup returns the alias lookup table, from cache when fresh.
func (s *MappingService) Lookup(ctx context.Context) (mapping.LookupTable, error) {
	if s.cache != nil {
		if table, ok, err := s.cache.Get(ctx); err == nil && ok {
			return table, nil
		}
	}

	active, err := s.repo.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}
	table := mapping.BuildLookup(active)

	if s.cache != nil {
		// best effort; a failed cache write only costs the next rebuild
		_ = s.cache.Set(ctx, table)
	}
	return table, nil
}

func (s *MappingService) invalidateLookup(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx)
}

// Ensure MappingService implements the domain resolver
var _ mapping.Resolver = (*MappingService)(nil)
