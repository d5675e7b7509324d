package mapping

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/mapping"
)

// UpsertMappingRequest creates or extends a mapping
type UpsertMappingRequest struct {
	CanonicalName string   `json:"canonical_name"`
	Aliases       []string `json:"aliases"`
}

// ReplaceMappingRequest swaps a mapping's alias set wholesale
type ReplaceMappingRequest struct {
	Aliases []string `json:"aliases"`
	Active  *bool    `json:"active,omitempty"`
}

// MappingResponse is the API representation of an item mapping
type MappingResponse struct {
	ID            uuid.UUID `json:"id"`
	CanonicalName string    `json:"canonical_name"`
	Aliases       []string  `json:"aliases"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToMappingResponse converts a domain mapping to its API representation
func ToMappingResponse(m *mapping.ItemMapping) MappingResponse {
	return MappingResponse{
		ID:            m.ID,
		CanonicalName: m.CanonicalName,
		Aliases:       m.AliasNames(),
		Active:        m.Active,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ToMappingResponses converts a slice of domain mappings
func ToMappingResponses(mappings []mapping.ItemMapping) []MappingResponse {
	responses := make([]MappingResponse, len(mappings))
	for i := range mappings {
		responses[i] = ToMappingResponse(&mappings[i])
	}
	return responses
}
