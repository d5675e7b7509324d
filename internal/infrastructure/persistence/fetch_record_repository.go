package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/shared"
	"github.com/stocksync/backend/internal/domain/sync"
	"github.com/stocksync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormFetchRecordRepository implements FetchRecordRepository using GORM
type GormFetchRecordRepository struct {
	db *gorm.DB
}

// NewGormFetchRecordRepository creates a new GormFetchRecordRepository
func NewGormFetchRecordRepository(db *gorm.DB) *GormFetchRecordRepository {
	return &GormFetchRecordRepository{db: db}
}

// Save creates or updates a fetch record
func (r *GormFetchRecordRepository) Save(ctx context.Context, record *sync.FetchRecord) error {
	model := models.FetchRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a record by its ID
func (r *GormFetchRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.FetchRecord, error) {
	var model models.FetchRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds records matching the filter, newest first
func (r *GormFetchRecordRepository) FindAll(ctx context.Context, filter sync.FetchRecordFilter) ([]sync.FetchRecord, error) {
	var rows []models.FetchRecordModel
	query := r.db.WithContext(ctx).Model(&models.FetchRecordModel{})

	if filter.Source != nil {
		query = query.Where("source = ?", filter.Source.String())
	}
	if filter.FetchKind != nil {
		query = query.Where("fetch_kind = ?", filter.FetchKind.String())
	}
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.Since != nil {
		query = query.Where("started_at >= ?", *filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("started_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]sync.FetchRecord, len(rows))
	for i := range rows {
		records[i] = *rows[i].ToDomain()
	}
	return records, nil
}

// FindLatestBySource returns the newest record per source. One indexed
// query per source; the source list is a closed enum of two.
func (r *GormFetchRecordRepository) FindLatestBySource(ctx context.Context) (map[sync.Source]sync.FetchRecord, error) {
	latest := make(map[sync.Source]sync.FetchRecord)
	for _, source := range sync.AllSources() {
		var model models.FetchRecordModel
		err := r.db.WithContext(ctx).
			Where("source = ?", source.String()).
			Order("started_at DESC").
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		latest[source] = *model.ToDomain()
	}
	return latest, nil
}

// CountByStatusSince counts records per status started since the cutoff
func (r *GormFetchRecordRepository) CountByStatusSince(ctx context.Context, since time.Time) (map[sync.FetchStatus]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.FetchRecordModel{}).
		Select("status, COUNT(*) as total").
		Where("started_at >= ?", since).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[sync.FetchStatus]int64, len(rows))
	for _, row := range rows {
		counts[sync.FetchStatus(row.Status)] = row.Total
	}
	return counts, nil
}

// DeleteOlderThan purges records started before the cutoff
func (r *GormFetchRecordRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&models.FetchRecordModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure GormFetchRecordRepository implements FetchRecordRepository
var _ sync.FetchRecordRepository = (*GormFetchRecordRepository)(nil)
