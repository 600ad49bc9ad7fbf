// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package jobstore records job run history for C8 in a local database via
// gorm, additive to and read-only from the pipeline's perspective: a store
// failure never fails a job. Grounded on the teacher's gorm model shape
// (api/assistant-api/internal/callcontext.CallContext — tagged struct
// fields, a BeforeCreate hook assigning an ID) generalized from call
// records to job run records, and adapted to sqlite instead of the
// teacher's postgres so a student repo needs no external database to run.
package jobstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is one recorded job execution (SPEC_FULL.md §11).
type Run struct {
	ID             string `gorm:"column:id;type:varchar(36);primaryKey"`
	Prefix         string `gorm:"column:prefix;type:varchar(255);not null"`
	State          string `gorm:"column:state;type:varchar(20);not null"`
	PlannedTotalMs int64  `gorm:"column:planned_total_ms;not null;default:0"`
	ActualMs       int64  `gorm:"column:actual_ms;not null;default:0"`
	ScaleApplied   bool   `gorm:"column:scale_applied;not null;default:false"`
	WarningCount   int    `gorm:"column:warning_count;not null;default:0"`
	ErrorMessage   string `gorm:"column:error_message;type:text;not null;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;not null;default:CURRENT_TIMESTAMP;<-:create"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp"`
}

func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// Store persists job Runs. A nil *Store is valid and a no-op, so jobstore
// remains entirely optional (SPEC_FULL.md §11, "additive").
type Store struct {
	db *gorm.DB
}

// Open migrates and returns a Store backed by the sqlite file at dsn. An
// empty dsn opens a new in-memory database private to this Store, useful
// for tests.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// RecordStart inserts a new Run in the "planning" state and returns its ID.
func (s *Store) RecordStart(ctx context.Context, prefix string) (string, error) {
	if s == nil {
		return "", nil
	}
	run := &Run{Prefix: prefix, State: "planning"}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return "", err
	}
	return run.ID, nil
}

// RecordState updates a Run's state column in place.
func (s *Store) RecordState(ctx context.Context, id, state string) error {
	if s == nil || id == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Run{}).Where("id = ?", id).Update("state", state).Error
}

// RecordComplete finalizes a successful Run with its measured results.
func (s *Store) RecordComplete(ctx context.Context, id string, plannedTotalMs, actualMs int64, scaleApplied bool, warningCount int) error {
	if s == nil || id == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Run{}).Where("id = ?", id).Updates(map[string]interface{}{
		"state":            "complete",
		"planned_total_ms": plannedTotalMs,
		"actual_ms":        actualMs,
		"scale_applied":    scaleApplied,
		"warning_count":    warningCount,
	}).Error
}

// RecordFailure finalizes a failed Run with the triggering error.
func (s *Store) RecordFailure(ctx context.Context, id string, cause error) error {
	if s == nil || id == "" {
		return nil
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.db.WithContext(ctx).Model(&Run{}).Where("id = ?", id).Updates(map[string]interface{}{
		"state":         "failed",
		"error_message": msg,
	}).Error
}

// Get fetches a Run by ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Recent lists the most recently created Runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	if err := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
