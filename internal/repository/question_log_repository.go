package repository

import (
	"fmt"

	"gorm.io/gorm"

	"legalrag-backend/internal/model"
)

type QuestionLogRepository struct {
	db *gorm.DB
}

func NewQuestionLogRepository(db *gorm.DB) *QuestionLogRepository {
	return &QuestionLogRepository{db: db}
}

func (r *QuestionLogRepository) Create(entry *model.QuestionLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("create question log failed: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries, capped at limit.
func (r *QuestionLogRepository) ListRecent(limit int) ([]model.QuestionLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var entries []model.QuestionLog
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list question logs failed: %w", err)
	}
	return entries, nil
}
