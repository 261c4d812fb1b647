package repository

import (
	"context"

	"github.com/zoutigo/smc-kpi/internal/kpi/entity"
	"github.com/zoutigo/smc-kpi/internal/kpi/rollup"
	"gorm.io/gorm"
)

// AggregateRepository 数据库聚合（GROUP BY 快路径）
type AggregateRepository struct {
	db *gorm.DB
}

func NewAggregateRepository(db *gorm.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

// 每个仓储的库存汇总，按仓储预聚合避免 JOIN 后重复计数
const storageStockSubquery = `(
	SELECT sp.storage_id,
		SUM(sp.qty) AS qty,
		SUM(sp.max_qty) AS max_qty,
		SUM(sp.qty * COALESCE(p.price, 0)) AS value
	FROM storage_packagings sp
	LEFT JOIN packagings p ON p.id = sp.packaging_id
	GROUP BY sp.storage_id
) AS st ON st.storage_id = storages.id`

const storageStaffSubquery = `(
	SELECT storage_id, SUM(qty) AS qty
	FROM staffing_lines
	GROUP BY storage_id
) AS sl ON sl.storage_id = storages.id`

type plantStockRow struct {
	PlantID   string
	PlantName string
	Count     int
	Qty       float64
	MaxQty    float64
	Value     float64
}

type plantValueRow struct {
	PlantID   string
	PlantName string
	Count     int
	Value     float64
}

// StockByPlant 按工厂汇总仓储库存（数量/容量/价值）
func (r *AggregateRepository) StockByPlant(ctx context.Context, f Filters) ([]rollup.PlantRollup, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Storage{}).
		Select(`storages.plant_id AS plant_id,
			COALESCE(plants.name, '') AS plant_name,
			COUNT(*) AS count,
			COALESCE(SUM(st.qty), 0) AS qty,
			COALESCE(SUM(st.max_qty), 0) AS max_qty,
			COALESCE(SUM(st.value), 0) AS value`).
		Joins("LEFT JOIN plants ON plants.id = storages.plant_id").
		Joins("LEFT JOIN " + storageStockSubquery)
	query = f.apply(query, "storages")

	var rows []plantStockRow
	err := query.
		Group("storages.plant_id, plants.name").
		Order("storages.plant_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]rollup.PlantRollup, 0, len(rows))
	for _, row := range rows {
		pr := rollup.PlantRollup{
			Key:    row.PlantID,
			Label:  rollup.Key{ID: row.PlantID, Name: row.PlantName}.Label(),
			Count:  row.Count,
			Qty:    row.Qty,
			MaxQty: row.MaxQty,
			Value:  row.Value,
		}
		pr.OccupancyPct, _ = rollup.Occupancy(pr.Qty, pr.MaxQty)
		out = append(out, pr)
	}
	return out, nil
}

// WorkforceByPlant 按工厂汇总人员配置
func (r *AggregateRepository) WorkforceByPlant(ctx context.Context, f Filters) ([]rollup.ValueRollup, error) {
	query := r.db.WithContext(ctx).
		Model(&entity.Storage{}).
		Select(`storages.plant_id AS plant_id,
			COALESCE(plants.name, '') AS plant_name,
			COUNT(*) AS count,
			COALESCE(SUM(sl.qty), 0) AS value`).
		Joins("LEFT JOIN plants ON plants.id = storages.plant_id").
		Joins("LEFT JOIN " + storageStaffSubquery)
	query = f.apply(query, "storages")

	var rows []plantValueRow
	err := query.
		Group("storages.plant_id, plants.name").
		Order("storages.plant_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toValueRollups(rows), nil
}

func toValueRollups(rows []plantValueRow) []rollup.ValueRollup {
	out := make([]rollup.ValueRollup, 0, len(rows))
	for _, row := range rows {
		out = append(out, rollup.ValueRollup{
			Key:   row.PlantID,
			Label: rollup.Key{ID: row.PlantID, Name: row.PlantName}.Label(),
			Count: row.Count,
			Value: row.Value,
		})
	}
	return out
}
