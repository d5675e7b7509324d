package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/mapping"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormItemMappingRepository implements ItemMappingRepository using GORM
type GormItemMappingRepository struct {
	db *gorm.DB
}

// NewGormItemMappingRepository creates a new GormItemMappingRepository
func NewGormItemMappingRepository(db *gorm.DB) *GormItemMappingRepository {
	return &GormItemMappingRepository{db: db}
}

// FindByID finds a mapping by its ID
func (r *GormItemMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*mapping.ItemMapping, error) {
	var model models.ItemMappingModel
	if err := r.db.WithContext(ctx).Preload("Aliases").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCanonical finds a mapping by canonical name, case-insensitive
func (r *GormItemMappingRepository) FindByCanonical(ctx context.Context, canonicalName string) (*mapping.ItemMapping, error) {
	var model models.ItemMappingModel
	err := r.db.WithContext(ctx).
		Preload("Aliases").
		Where("canonical_fold = ?", mapping.FoldName(canonicalName)).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAlias finds the active mapping owning an alias. A canonical name
// resolves to its own mapping, so both tables are consulted.
func (r *GormItemMappingRepository) FindByAlias(ctx context.Context, alias string) (*mapping.ItemMapping, error) {
	fold := mapping.FoldName(alias)

	var model models.ItemMappingModel
	err := r.db.WithContext(ctx).
		Preload("Aliases").
		Where("active = ?", true).
		Where("canonical_fold = ? OR id IN (?)",
			fold,
			r.db.Model(&models.ItemAliasModel{}).Select("mapping_id").Where("name_fold = ?", fold),
		).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds mappings with optional filters
func (r *GormItemMappingRepository) FindAll(ctx context.Context, filter mapping.ItemMappingFilter) ([]mapping.ItemMapping, error) {
	var rows []models.ItemMappingModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ItemMappingModel{}), filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if err := query.Preload("Aliases").Order("canonical_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	mappings := make([]mapping.ItemMapping, len(rows))
	for i := range rows {
		mappings[i] = *rows[i].ToDomain()
	}
	return mappings, nil
}

// FindAllActive finds every active mapping with its aliases loaded
func (r *GormItemMappingRepository) FindAllActive(ctx context.Context) ([]mapping.ItemMapping, error) {
	var rows []models.ItemMappingModel
	err := r.db.WithContext(ctx).
		Preload("Aliases").
		Where("active = ?", true).
		Order("canonical_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	mappings := make([]mapping.ItemMapping, len(rows))
	for i := range rows {
		mappings[i] = *rows[i].ToDomain()
	}
	return mappings, nil
}

// Count counts mappings matching the filter
func (r *GormItemMappingRepository) Count(ctx context.Context, filter mapping.ItemMappingFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ItemMappingModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsAliasOutside reports whether an alias name is already claimed by an
// active mapping other than the given one, either as an alias row or as the
// canonical name itself. uuid.Nil widens the check to every active mapping.
func (r *GormItemMappingRepository) ExistsAliasOutside(ctx context.Context, alias string, mappingID uuid.UUID) (bool, error) {
	fold := mapping.FoldName(alias)

	query := r.db.WithContext(ctx).
		Model(&models.ItemMappingModel{}).
		Where("active = ?", true).
		Where("canonical_fold = ? OR id IN (?)",
			fold,
			r.db.Model(&models.ItemAliasModel{}).Select("mapping_id").Where("name_fold = ?", fold),
		)
	if mappingID != uuid.Nil {
		query = query.Where("id <> ?", mappingID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save persists a mapping and replaces its alias rows wholesale. Alias rows
// carry no state beyond name and added-at, so delete-and-recreate keeps the
// stored set exactly in step with the aggregate.
func (r *GormItemMappingRepository) Save(ctx context.Context, m *mapping.ItemMapping) error {
	model := models.ItemMappingModelFromDomain(m)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("mapping_id = ?", model.ID).Delete(&models.ItemAliasModel{}).Error; err != nil {
			return err
		}
		if len(model.Aliases) == 0 {
			return nil
		}
		return tx.Create(&model.Aliases).Error
	})
}

// Delete removes a mapping and its aliases permanently
func (r *GormItemMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("mapping_id = ?", id).Delete(&models.ItemAliasModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ItemMappingModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *GormItemMappingRepository) applyFilter(query *gorm.DB, filter mapping.ItemMappingFilter) *gorm.DB {
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.SearchKeyword != "" {
		keyword := "%" + strings.ToLower(filter.SearchKeyword) + "%"
		query = query.Where("canonical_fold LIKE ? OR id IN (?)",
			keyword,
			r.db.Model(&models.ItemAliasModel{}).Select("mapping_id").Where("name_fold LIKE ?", keyword),
		)
	}
	return query
}

// Ensure GormItemMappingRepository implements ItemMappingRepository
var _ mapping.ItemMappingRepository = (*GormItemMappingRepository)(nil)
