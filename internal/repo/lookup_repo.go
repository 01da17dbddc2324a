// Package repo implements the persistence layer for the lookup audit trail,
// backed by GORM. This file provides the lookup row writes and the small
// aggregate queries behind the stats and recent-lookup endpoints. Each
// function is context-aware and safe to call from services or handlers.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-card-bot/internal/domain"
)

// CreateLookup inserts one audit row for a dispatched lookup.
func CreateLookup(ctx context.Context, db *gorm.DB, userID, command, query, cardName, outcome string) (*domain.LookupRecord, error) {
	rec := &domain.LookupRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Command:   command,
		Query:     query,
		CardName:  cardName,
		Outcome:   outcome,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// CountLookups returns the total number of audit rows.
func CountLookups(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.LookupRecord{}).Count(&count).Error
	return count, err
}

// ListLookupsPage returns one page of audit rows, newest first.
func ListLookupsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.LookupRecord, error) {
	var rows []domain.LookupRecord
	err := db.WithContext(ctx).
		Model(&domain.LookupRecord{}).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// LookupStats holds the aggregate counters exposed by the stats endpoint.
type LookupStats struct {
	Total     int64            `json:"total"`
	Errors    int64            `json:"errors"`
	Fallbacks int64            `json:"fallbacks"`
	ByCommand map[string]int64 `json:"by_command"`
	LastAt    *time.Time       `json:"last_at,omitempty"`
}

// Stats computes aggregate lookup counters. When no rows exist, all counters
// are zero and LastAt is nil.
func Stats(ctx context.Context, db *gorm.DB) (*LookupStats, error) {
	s := &LookupStats{ByCommand: map[string]int64{}}

	if err := db.WithContext(ctx).Model(&domain.LookupRecord{}).
		Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if s.Total == 0 {
		return s, nil
	}

	if err := db.WithContext(ctx).Model(&domain.LookupRecord{}).
		Where("outcome LIKE ?", "error:%").Count(&s.Errors).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&domain.LookupRecord{}).
		Where("outcome = ?", "fallback").Count(&s.Fallbacks).Error; err != nil {
		return nil, err
	}

	var perCommand []struct {
		Command string
		N       int64
	}
	if err := db.WithContext(ctx).Model(&domain.LookupRecord{}).
		Select("command, COUNT(*) AS n").
		Group("command").
		Scan(&perCommand).Error; err != nil {
		return nil, err
	}
	for _, row := range perCommand {
		s.ByCommand[row.Command] = row.N
	}

	// Latest created_at (avoid MAX() -> TEXT in SQLite)
	var last struct {
		CreatedAt time.Time
	}
	if err := db.WithContext(ctx).Model(&domain.LookupRecord{}).
		Select("created_at").Order("created_at DESC").Limit(1).
		Scan(&last).Error; err != nil {
		return nil, err
	}
	s.LastAt = &last.CreatedAt
	return s, nil
}

// LookupStore adapts the package functions to the dispatcher's recorder
// contract.
type LookupStore struct {
	DB *gorm.DB
}

// RecordLookup implements the dispatcher's Recorder interface.
func (s *LookupStore) RecordLookup(ctx context.Context, userID, command, query, cardName, outcome string) error {
	_, err := CreateLookup(ctx, s.DB, userID, command, query, cardName, outcome)
	return err
}
