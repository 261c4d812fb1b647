package service

import (
	"time"

	"github.com/zoutigo/smc-kpi/internal/kpi/rollup"
)

// 聚合路径
const (
	PathDB     = "db"
	PathMemory = "memory"
)

// 表格行数上限
const (
	overviewTableLimit = 10
	partsTableLimit    = 20
	chartTopLimit      = 10
)

// 直方图阈值（升序）
var (
	volumeThresholds   = []float64{0.1, 0.25, 0.5, 1, 2}     // m³
	unitCostThresholds = []float64{50, 100, 250, 500, 1000} // €
	capacityThresholds = []float64{1, 5, 10, 25, 50}        // 件
)

// CategoryRef 分类摘要
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// PackagingSnapshot 某分类下加载的原始包装数据（原始数据缓存）
type PackagingSnapshot struct {
	Category  CategoryRef        `json:"category"`
	Items     []rollup.Packaging `json:"items"`
	Truncated bool               `json:"truncated"`
}

// CategoryPayload 分类看板（包装）
type CategoryPayload struct {
	Scope       string             `json:"scope"`
	Category    CategoryRef        `json:"category"`
	GeneratedAt time.Time          `json:"generated_at"`
	Degraded    bool               `json:"degraded"`
	Truncated   bool               `json:"truncated"`
	Overview    OverviewSection    `json:"overview"`
	Cost        CostSection        `json:"cost"`
	Capacity    CapacitySection    `json:"capacity"`
	Parts       PartsSection       `json:"parts"`
	Accessories AccessoriesSection `json:"accessories"`
}

// OverviewSection 总览
type OverviewSection struct {
	Cards  OverviewCards              `json:"cards"`
	Charts OverviewCharts             `json:"charts"`
	Table  []rollup.ComputedPackaging `json:"table"`
}

type OverviewCards struct {
	PackagingCount     int     `json:"packaging_count"`
	TotalUnits         int     `json:"total_units"`
	TotalValue         float64 `json:"total_value"`
	TotalVolume        float64 `json:"total_volume"`
	TotalCapacity      float64 `json:"total_capacity"`
	AvgEuroPerCapacity float64 `json:"avg_euro_per_capacity"`
	CountNoCapacity    int     `json:"count_no_capacity"`
}

type OverviewCharts struct {
	ValueByPlant    []rollup.ValueRollup `json:"value_by_plant"`
	CapacityByPlant []rollup.ValueRollup `json:"capacity_by_plant"`
	VolumeHistogram []rollup.Bucket      `json:"volume_histogram"`
}

// CostSection 成本
type CostSection struct {
	Cards  CostCards                  `json:"cards"`
	Charts CostCharts                 `json:"charts"`
	Table  []rollup.ComputedPackaging `json:"table"`
}

type CostCards struct {
	TotalValue           float64 `json:"total_value"`
	AvgFullUnitCost      float64 `json:"avg_full_unit_cost"`
	MedianFullUnitCost   float64 `json:"median_full_unit_cost"`
	TotalAccessoriesPark float64 `json:"total_accessories_park"`
}

type CostCharts struct {
	ValueBySupplier   []rollup.ValueRollup `json:"value_by_supplier"`
	CostScatter       []ScatterPoint       `json:"cost_scatter"`
	UnitCostHistogram []rollup.Bucket      `json:"unit_cost_histogram"`
}

// ScatterPoint 散点（x=单件容量，y=完整单价）
type ScatterPoint struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// CapacitySection 容量
type CapacitySection struct {
	Cards  CapacityCards              `json:"cards"`
	Charts CapacityCharts             `json:"charts"`
	Table  []rollup.ComputedPackaging `json:"table"`
}

type CapacityCards struct {
	TotalCapacity   float64 `json:"total_capacity"`
	AvgDensity      float64 `json:"avg_density"`
	MedianCapacity  float64 `json:"median_capacity"`
	CountNoCapacity int     `json:"count_no_capacity"`
}

type CapacityCharts struct {
	CapacityBySupplier []rollup.ValueRollup `json:"capacity_by_supplier"`
	DensityByPlant     []rollup.RatioRollup `json:"density_by_plant"`
	CapacityHistogram  []rollup.Bucket      `json:"capacity_histogram"`
}

// PartsSection 零件
type PartsSection struct {
	Cards  PartsCards        `json:"cards"`
	Charts PartsCharts       `json:"charts"`
	Table  []rollup.PartLine `json:"table"`
}

type PartsCards struct {
	PartCount            int     `json:"part_count"`
	DistinctFamilies     int     `json:"distinct_families"`
	MonoPartPct          float64 `json:"mono_part_pct"`
	MultiPartPct         float64 `json:"multi_part_pct"`
	AvgPartsPerPackaging float64 `json:"avg_parts_per_packaging"`
}

type PartsCharts struct {
	PartsByFamily       []rollup.ValueRollup `json:"parts_by_family"`
	PlantFamilyCoverage []rollup.Cell        `json:"plant_family_coverage"`
}

// AccessoriesSection 附件
type AccessoriesSection struct {
	Cards  AccessoriesCards           `json:"cards"`
	Charts AccessoriesCharts          `json:"charts"`
	Table  []rollup.ComputedPackaging `json:"table"`
}

type AccessoriesCards struct {
	AccessoryLinks        int     `json:"accessory_links"`
	WithAccessoriesPct    float64 `json:"with_accessories_pct"`
	WithoutAccessoriesPct float64 `json:"without_accessories_pct"`
	TotalAccessoriesPark  float64 `json:"total_accessories_park"`
}

type AccessoriesCharts struct {
	AccessoriesCostByPlant []rollup.ValueRollup     `json:"accessories_cost_by_plant"`
	TopAccessories         []rollup.AccessoryRollup `json:"top_accessories"`
}

// GlobalPayload 全局看板（仓储）
type GlobalPayload struct {
	Scope                string                   `json:"scope"`
	GeneratedAt          time.Time                `json:"generated_at"`
	Degraded             bool                     `json:"degraded"`
	Truncated            bool                     `json:"truncated"`
	AggregatePath        string                   `json:"aggregate_path"`
	Metrics              []Metric                 `json:"metrics"`
	SurfaceByPlant       []rollup.ValueRollup     `json:"surface_by_plant"`
	EfficiencyByCategory []rollup.RatioRollup     `json:"efficiency_by_category"`
	LanesByPlant         []rollup.ValueRollup     `json:"lanes_by_plant"`
	WorkforceByPlant     []rollup.ValueRollup     `json:"workforce_by_plant"`
	OccupancyByPlant     []rollup.PlantRollup     `json:"occupancy_by_plant"`
	TopBySurface         []rollup.ComputedStorage `json:"top_by_surface"`
	TopByWorkforce       []rollup.ComputedStorage `json:"top_by_workforce"`
}

// Metric 全局指标卡
type Metric struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// MetricValue 按 key 取指标值，不存在时返回 0
func (p *GlobalPayload) MetricValue(key string) float64 {
	for _, m := range p.Metrics {
		if m.Key == key {
			return m.Value
		}
	}
	return 0
}
