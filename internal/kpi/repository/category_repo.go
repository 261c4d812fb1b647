package repository

import (
	"context"
	"errors"

	"github.com/zoutigo/smc-kpi/internal/kpi/entity"
	"gorm.io/gorm"
)

// CategoryRepository 分类仓库
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindBySlug 根据slug查找分类
func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	var category entity.Category
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// ListSlugs 列出某资产族的全部分类slug
func (r *CategoryRepository) ListSlugs(ctx context.Context, family string) ([]string, error) {
	var slugs []string
	err := r.db.WithContext(ctx).
		Model(&entity.Category{}).
		Where("family = ?", family).
		Order("slug ASC").
		Pluck("slug", &slugs).Error
	return slugs, err
}
