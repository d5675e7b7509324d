// Package models contains GORM persistence models for aggregates whose
// stored shape differs from their domain shape. Most aggregates carry their
// own GORM tags and map directly; the models here exist where the table
// layout diverges:
//
//   - fetch_record.go: FetchRecordModel flattens the results struct into
//     results_* counter columns
//   - mapping.go: ItemMappingModel/ItemAliasModel keep folded-name columns
//     so case-insensitive alias lookups are indexed
//
// Mappers convert between domain entities and persistence models in both
// directions; repositories never hand models to callers.
package models
