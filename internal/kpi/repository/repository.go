package repository

import (
	"errors"

	"github.com/zoutigo/smc-kpi/internal/kpi/entity"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// DefaultMaxItems 明细加载上限（内存计算路径）
const DefaultMaxItems = 200

// Filters 看板筛选条件（已由边界层校验）
type Filters struct {
	PlantID string
	FlowID  string
	Status  string // ACTIVE/INACTIVE/DRAFT/ALL，空值按 ACTIVE 处理
}

// EffectiveStatus 返回实际生效的状态筛选
func (f Filters) EffectiveStatus() string {
	if f.Status == "" {
		return entity.StatusActive
	}
	return f.Status
}

// IsDefault 是否为默认筛选（无工厂/流向，状态为 ACTIVE）
func (f Filters) IsDefault() bool {
	return f.PlantID == "" && f.FlowID == "" && f.EffectiveStatus() == entity.StatusActive
}

// apply 将筛选条件加到查询上，table 为资产表名
func (f Filters) apply(query *gorm.DB, table string) *gorm.DB {
	if status := f.EffectiveStatus(); status != entity.StatusAll {
		query = query.Where(table+".status = ?", status)
	}
	if f.PlantID != "" {
		query = query.Where(table+".plant_id = ?", f.PlantID)
	}
	if f.FlowID != "" {
		query = query.Where(table+".flow_id = ?", f.FlowID)
	}
	return query
}

// Repositories KPI仓库集合
type Repositories struct {
	Category  *CategoryRepository
	Packaging *PackagingRepository
	Storage   *StorageRepository
	Aggregate *AggregateRepository
}

// NewRepositories 创建KPI仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Category:  NewCategoryRepository(db),
		Packaging: NewPackagingRepository(db),
		Storage:   NewStorageRepository(db),
		Aggregate: NewAggregateRepository(db),
	}
}
