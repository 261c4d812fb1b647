package repository

import (
	"context"

	"github.com/zoutigo/smc-kpi/internal/kpi/entity"
	"github.com/zoutigo/smc-kpi/internal/kpi/rollup"
	"gorm.io/gorm"
)

// PackagingRepository 包装资产仓库（实体加载器）
type PackagingRepository struct {
	db *gorm.DB
}

func NewPackagingRepository(db *gorm.DB) *PackagingRepository {
	return &PackagingRepository{db: db}
}

// LoadPackagings 加载某分类下的包装资产及其零件/附件。
// 最多返回 limit 条，truncated 表示还有更多记录未加载。
func (r *PackagingRepository) LoadPackagings(ctx context.Context, categoryID string, f Filters, limit int) ([]rollup.Packaging, bool, error) {
	if limit <= 0 {
		limit = DefaultMaxItems
	}

	query := r.db.WithContext(ctx).
		Model(&entity.Packaging{}).
		Where("packagings.category_id = ?", categoryID)
	query = f.apply(query, "packagings")

	var items []entity.Packaging
	err := query.
		Preload("Plant").
		Preload("Supplier").
		Preload("Category").
		Preload("Flow").
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("parts.created_at ASC, parts.id ASC") }).
		Preload("Parts.PartFamily").
		Preload("Accessories", func(db *gorm.DB) *gorm.DB { return db.Order("packaging_accessories.id ASC") }).
		Preload("Accessories.Accessory").
		Order("packagings.created_at ASC, packagings.id ASC").
		Limit(limit + 1).
		Find(&items).Error
	if err != nil {
		return nil, false, err
	}

	truncated := len(items) > limit
	if truncated {
		items = items[:limit]
	}

	out := make([]rollup.Packaging, 0, len(items))
	for i := range items {
		out = append(out, toRawPackaging(&items[i]))
	}
	return out, truncated, nil
}

func toRawPackaging(p *entity.Packaging) rollup.Packaging {
	raw := rollup.Packaging{
		ID:                 p.ID,
		Name:               p.Name,
		Status:             p.Status,
		PlantID:            p.PlantID,
		CategoryID:         p.CategoryID,
		Price:              Float(p.Price),
		Width:              Float(p.Width),
		Length:             Float(p.Length),
		Height:             Float(p.Height),
		NumberOfPackagings: p.NumberOfPackagings,
		Parts:              make([]rollup.Part, 0, len(p.Parts)),
		Accessories:        make([]rollup.Accessory, 0, len(p.Accessories)),
	}
	if p.Plant != nil {
		raw.PlantName = p.Plant.Name
	}
	if p.SupplierID != nil {
		raw.SupplierID = *p.SupplierID
	}
	if p.Supplier != nil {
		raw.SupplierName = p.Supplier.Name
	}
	if p.Category != nil {
		raw.CategoryName = p.Category.Name
	}
	if p.FlowID != nil {
		raw.FlowID = *p.FlowID
	}
	if p.Flow != nil {
		raw.FlowName = p.Flow.Name
	}

	for _, part := range p.Parts {
		rp := rollup.Part{
			ID:                part.ID,
			Name:              part.Name,
			Reference:         part.Reference,
			PartsPerPackaging: Float(part.PartsPerPackaging),
		}
		if part.PartFamilyID != nil {
			rp.FamilyID = *part.PartFamilyID
		}
		if part.PartFamily != nil {
			rp.FamilyName = part.PartFamily.Name
		}
		raw.Parts = append(raw.Parts, rp)
	}

	for _, link := range p.Accessories {
		ra := rollup.Accessory{
			ID:                link.AccessoryID,
			QtyPerPackaging:   Float(link.QtyPerPackaging),
			UnitPriceOverride: NullFloat(link.UnitPriceOverride),
		}
		if link.Accessory != nil {
			ra.Name = link.Accessory.Name
			ra.UnitPriceBase = Float(link.Accessory.UnitPrice)
		}
		raw.Accessories = append(raw.Accessories, ra)
	}
	return raw
}
