package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/mapping"
)

// ItemMappingModel is the persistence model for the ItemMapping aggregate.
// The folded canonical name gets its own column so case-insensitive lookups
// hit an index instead of folding every row at query time.
type ItemMappingModel struct {
	AggregateModel
	CanonicalName string `gorm:"type:varchar(255);not null"`
	CanonicalFold string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Active        bool   `gorm:"not null;default:true;index"`

	Aliases []ItemAliasModel `gorm:"foreignKey:MappingID;references:ID"`
}

// TableName returns the table name for GORM
func (ItemMappingModel) TableName() string {
	return "item_mappings"
}

// ItemAliasModel is one raw spelling owned by a mapping. Active mirrors the
// owning mapping's flag; alias rows are rewritten on every save, so it never
// drifts. It exists for the partial unique index on (name_fold) WHERE active
// in the migrations, which enforces alias exclusivity across active mappings
// at the database level on top of the repository conflict check.
type ItemAliasModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	MappingID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(255);not null"`
	NameFold  string    `gorm:"type:varchar(255);not null;index"`
	Active    bool      `gorm:"not null;default:true"`
	AddedAt   time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (ItemAliasModel) TableName() string {
	return "item_aliases"
}

// ToDomain converts the persistence model to a domain ItemMapping
func (m *ItemMappingModel) ToDomain() *mapping.ItemMapping {
	im := &mapping.ItemMapping{
		CanonicalName: m.CanonicalName,
		Aliases:       make([]mapping.Alias, len(m.Aliases)),
		Active:        m.Active,
	}
	m.PopulateAggregateRoot(&im.BaseAggregateRoot)
	for i, a := range m.Aliases {
		im.Aliases[i] = mapping.Alias{Name: a.Name, AddedAt: a.AddedAt}
	}
	return im
}

// FromDomain populates the persistence model from a domain ItemMapping
func (m *ItemMappingModel) FromDomain(im *mapping.ItemMapping) {
	m.FromDomainAggregateRoot(im.BaseAggregateRoot)
	m.CanonicalName = im.CanonicalName
	m.CanonicalFold = mapping.FoldName(im.CanonicalName)
	m.Active = im.Active
	m.Aliases = make([]ItemAliasModel, len(im.Aliases))
	for i, a := range im.Aliases {
		m.Aliases[i] = ItemAliasModel{
			ID:        uuid.New(),
			MappingID: im.ID,
			Name:      a.Name,
			NameFold:  mapping.FoldName(a.Name),
			Active:    im.Active,
			AddedAt:   a.AddedAt,
		}
	}
}

// ItemMappingModelFromDomain creates a new persistence model from a domain ItemMapping
func ItemMappingModelFromDomain(im *mapping.ItemMapping) *ItemMappingModel {
	m := &ItemMappingModel{}
	m.FromDomain(im)
	return m
}
