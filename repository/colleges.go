package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/teatime/teatime/models"
)

type collegeRepository struct {
	db *gorm.DB
}

// List returns verified colleges ordered by name.
func (r *collegeRepository) List(ctx context.Context) ([]models.College, error) {
	var out []models.College
	if err := r.db.WithContext(ctx).Where("is_verified = ?", true).Order("name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list colleges: %w", err)
	}
	return out, nil
}

func (r *collegeRepository) ByID(ctx context.Context, id string) (*models.College, error) {
	var c models.College
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *collegeRepository) ByDomain(ctx context.Context, domain string) (*models.College, error) {
	var c models.College
	err := r.db.WithContext(ctx).Where("domain = ?", strings.ToLower(strings.TrimSpace(domain))).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *collegeRepository) Stats(ctx context.Context, id string) (*CollegeStats, error) {
	if _, err := r.ByID(ctx, id); err != nil {
		return nil, err
	}
	stats := &CollegeStats{CollegeID: id}
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Where("college_id = ?", id).Count(&stats.Users).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := db.Model(&models.Post{}).Where("college_id = ?", id).Count(&stats.Posts).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	return stats, nil
}
