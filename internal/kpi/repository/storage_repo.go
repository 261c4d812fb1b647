package repository

import (
	"context"

	"github.com/zoutigo/smc-kpi/internal/kpi/entity"
	"github.com/zoutigo/smc-kpi/internal/kpi/rollup"
	"gorm.io/gorm"
)

// StorageRepository 仓储资产仓库（实体加载器）
type StorageRepository struct {
	db *gorm.DB
}

func NewStorageRepository(db *gorm.DB) *StorageRepository {
	return &StorageRepository{db: db}
}

// LoadStorages 加载仓储资产及其巷道、人员配置和库存包装
func (r *StorageRepository) LoadStorages(ctx context.Context, f Filters, limit int) ([]rollup.Storage, bool, error) {
	if limit <= 0 {
		limit = DefaultMaxItems
	}

	query := f.apply(r.db.WithContext(ctx).Model(&entity.Storage{}), "storages")

	var items []entity.Storage
	err := query.
		Preload("Plant").
		Preload("Category").
		Preload("Lanes", func(db *gorm.DB) *gorm.DB { return db.Order("storage_lanes.level ASC, storage_lanes.id ASC") }).
		Preload("StaffingLines").
		Preload("PackagingLinks").
		Preload("PackagingLinks.Packaging").
		Order("storages.created_at ASC, storages.id ASC").
		Limit(limit + 1).
		Find(&items).Error
	if err != nil {
		return nil, false, err
	}

	truncated := len(items) > limit
	if truncated {
		items = items[:limit]
	}

	out := make([]rollup.Storage, 0, len(items))
	for i := range items {
		out = append(out, toRawStorage(&items[i]))
	}
	return out, truncated, nil
}

func toRawStorage(s *entity.Storage) rollup.Storage {
	raw := rollup.Storage{
		ID:            s.ID,
		Name:          s.Name,
		Status:        s.Status,
		PlantID:       s.PlantID,
		Width:         Float(s.Width),
		Length:        Float(s.Length),
		Height:        Float(s.Height),
		Lanes:         make([]rollup.Lane, 0, len(s.Lanes)),
		StaffingLines: make([]rollup.StaffingLine, 0, len(s.StaffingLines)),
		Links:         make([]rollup.PackagingLink, 0, len(s.PackagingLinks)),
	}
	if s.Plant != nil {
		raw.PlantName = s.Plant.Name
	}
	if s.CategoryID != nil {
		raw.CategoryID = *s.CategoryID
	}
	if s.Category != nil {
		raw.CategoryName = s.Category.Name
	}

	for _, lane := range s.Lanes {
		raw.Lanes = append(raw.Lanes, rollup.Lane{
			Length:        Float(lane.LaneLength),
			NumberOfLanes: lane.NumberOfLanes,
			Level:         lane.Level,
		})
	}
	for _, line := range s.StaffingLines {
		raw.StaffingLines = append(raw.StaffingLines, rollup.StaffingLine{
			Role:  line.Role,
			Shift: line.Shift,
			Qty:   Float(line.Qty),
		})
	}
	for _, link := range s.PackagingLinks {
		rl := rollup.PackagingLink{
			PackagingID: link.PackagingID,
			Qty:         link.Qty,
			MaxQty:      link.MaxQty,
		}
		if link.Packaging != nil {
			rl.PackagingName = link.Packaging.Name
			rl.UnitValue = Float(link.Packaging.Price)
		}
		raw.Links = append(raw.Links, rl)
	}
	return raw
}
