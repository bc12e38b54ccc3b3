package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/teatime/teatime/models"
)

type trendingRepository struct {
	db *gorm.DB
}

func (r *trendingRepository) Topics(ctx context.Context, collegeID string, limit int) ([]models.TrendingTopic, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []models.TrendingTopic
	err := r.db.WithContext(ctx).
		Where("college_id = ? AND is_active = ?", collegeID, true).
		Order("trend_score DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list trending topics: %w", err)
	}
	return out, nil
}
