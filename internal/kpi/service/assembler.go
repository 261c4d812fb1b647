package service

import (
	"time"

	"github.com/zoutigo/smc-kpi/internal/kpi/rollup"
)

// assembleCategory 组装分类看板。只做整形与截断，不含业务公式。
func assembleCategory(snap *PackagingSnapshot, scope string, tableLimit int, now time.Time) *CategoryPayload {
	items := rollup.DerivePackagings(snap.Items)

	return &CategoryPayload{
		Scope:       scope,
		Category:    snap.Category,
		GeneratedAt: now,
		Truncated:   snap.Truncated,
		Overview:    overviewSection(items),
		Cost:        costSection(items, tableLimit),
		Capacity:    capacitySection(items, tableLimit),
		Parts:       partsSection(items),
		Accessories: accessoriesSection(items, tableLimit),
	}
}

// emptyCategory 加载失败时返回的全零看板
func emptyCategory(scope string, category CategoryRef, now time.Time) *CategoryPayload {
	p := assembleCategory(&PackagingSnapshot{Category: category, Items: []rollup.Packaging{}}, scope, 0, now)
	p.Degraded = true
	return p
}

func fullParkValue(p rollup.ComputedPackaging) float64   { return p.FullParkValue }
func fullUnitCost(p rollup.ComputedPackaging) float64    { return p.FullUnitCost }
func capacityUnit(p rollup.ComputedPackaging) float64    { return p.CapacityUnit }
func volumeUnit(p rollup.ComputedPackaging) float64      { return p.VolumeUnit }
func density(p rollup.ComputedPackaging) float64         { return p.Density }
func accessoriesPark(p rollup.ComputedPackaging) float64 { return p.AccessoriesPark }
func valueOf(r rollup.ValueRollup) float64               { return r.Value }

// collect 提取满足条件的数值
func collect(items []rollup.ComputedPackaging, keep func(rollup.ComputedPackaging) bool, measure func(rollup.ComputedPackaging) float64) []float64 {
	out := make([]float64, 0, len(items))
	for _, p := range items {
		if keep == nil || keep(p) {
			out = append(out, measure(p))
		}
	}
	return out
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func hasCapacity(p rollup.ComputedPackaging) bool { return p.CapacityUnit > 0 }
func hasVolume(p rollup.ComputedPackaging) bool   { return p.VolumeUnit > 0 }

func countNoCapacity(items []rollup.ComputedPackaging) int {
	n := 0
	for _, p := range items {
		if !hasCapacity(p) {
			n++
		}
	}
	return n
}

func overviewSection(items []rollup.ComputedPackaging) OverviewSection {
	cards := OverviewCards{
		PackagingCount:     len(items),
		TotalValue:         sum(collect(items, nil, fullParkValue)),
		TotalVolume:        sum(collect(items, nil, volumeUnit)),
		TotalCapacity:      sum(collect(items, nil, capacityUnit)),
		AvgEuroPerCapacity: rollup.Mean(collect(items, hasCapacity, func(p rollup.ComputedPackaging) float64 { return p.EuroPerCapacity })),
		CountNoCapacity:    countNoCapacity(items),
	}
	for _, p := range items {
		cards.TotalUnits += p.NumberOfPackagings
	}

	return OverviewSection{
		Cards: cards,
		Charts: OverviewCharts{
			ValueByPlant:    rollup.SumBy(items, rollup.PackagingPlant, fullParkValue),
			CapacityByPlant: rollup.SumBy(items, rollup.PackagingPlant, capacityUnit),
			VolumeHistogram: rollup.Histogram(collect(items, nil, volumeUnit), volumeThresholds),
		},
		Table: rollup.TopN(items, overviewTableLimit, fullParkValue),
	}
}

func costSection(items []rollup.ComputedPackaging, tableLimit int) CostSection {
	unitCosts := collect(items, nil, fullUnitCost)

	scatter := make([]ScatterPoint, 0, len(items))
	for _, p := range items {
		scatter = append(scatter, ScatterPoint{ID: p.ID, Label: p.Name, X: p.CapacityUnit, Y: p.FullUnitCost})
	}

	bySupplier := rollup.SumBy(items, rollup.PackagingSupplier, fullParkValue)

	return CostSection{
		Cards: CostCards{
			TotalValue:           sum(collect(items, nil, fullParkValue)),
			AvgFullUnitCost:      rollup.Mean(unitCosts),
			MedianFullUnitCost:   rollup.Median(unitCosts),
			TotalAccessoriesPark: sum(collect(items, nil, accessoriesPark)),
		},
		Charts: CostCharts{
			ValueBySupplier:   rollup.TopN(bySupplier, chartTopLimit, valueOf),
			CostScatter:       scatter,
			UnitCostHistogram: rollup.Histogram(unitCosts, unitCostThresholds),
		},
		Table: rollup.TopN(items, tableLimit, fullUnitCost),
	}
}

func capacitySection(items []rollup.ComputedPackaging, tableLimit int) CapacitySection {
	capacities := collect(items, nil, capacityUnit)
	bySupplier := rollup.SumBy(items, rollup.PackagingSupplier, capacityUnit)

	return CapacitySection{
		Cards: CapacityCards{
			TotalCapacity:   sum(capacities),
			AvgDensity:      rollup.Mean(collect(items, hasVolume, density)),
			MedianCapacity:  rollup.Median(capacities),
			CountNoCapacity: countNoCapacity(items),
		},
		Charts: CapacityCharts{
			CapacityBySupplier: rollup.TopN(bySupplier, chartTopLimit, valueOf),
			DensityByPlant:     rollup.RatioBy(items, rollup.PackagingPlant, capacityUnit, volumeUnit),
			CapacityHistogram:  rollup.Histogram(capacities, capacityThresholds),
		},
		Table: rollup.TopN(items, tableLimit, density),
	}
}

func partsSection(items []rollup.ComputedPackaging) PartsSection {
	lines := rollup.PartLines(items)
	family := func(l rollup.PartLine) rollup.Key { return rollup.Key{ID: l.FamilyID, Name: l.Family} }
	perPackaging := func(l rollup.PartLine) float64 { return l.PartsPerPackaging }

	var mono, multi int
	for _, p := range items {
		switch {
		case p.PartCount == 1:
			mono++
		case p.PartCount > 1:
			multi++
		}
	}

	perLine := make([]float64, 0, len(lines))
	for _, l := range lines {
		perLine = append(perLine, l.PartsPerPackaging)
	}

	byFamily := rollup.SumBy(lines, family, perPackaging)

	return PartsSection{
		Cards: PartsCards{
			PartCount:            len(lines),
			DistinctFamilies:     len(byFamily),
			MonoPartPct:          rollup.Percent(mono, len(items)),
			MultiPartPct:         rollup.Percent(multi, len(items)),
			AvgPartsPerPackaging: rollup.Mean(perLine),
		},
		Charts: PartsCharts{
			PartsByFamily:       rollup.TopN(byFamily, chartTopLimit, valueOf),
			PlantFamilyCoverage: rollup.Coverage(items, rollup.PackagingPlant, rollup.PartFamilies),
		},
		Table: rollup.TopN(lines, partsTableLimit, perPackaging),
	}
}

func accessoriesSection(items []rollup.ComputedPackaging, tableLimit int) AccessoriesSection {
	var links, with int
	for _, p := range items {
		links += p.AccessoryCount
		if p.AccessoryCount > 0 {
			with++
		}
	}

	top := rollup.TopN(rollup.AccessoriesByID(items), chartTopLimit, func(r rollup.AccessoryRollup) float64 { return r.ParkCost })

	return AccessoriesSection{
		Cards: AccessoriesCards{
			AccessoryLinks:        links,
			WithAccessoriesPct:    rollup.Percent(with, len(items)),
			WithoutAccessoriesPct: rollup.Percent(len(items)-with, len(items)),
			TotalAccessoriesPark:  sum(collect(items, nil, accessoriesPark)),
		},
		Charts: AccessoriesCharts{
			AccessoriesCostByPlant: rollup.SumBy(items, rollup.PackagingPlant, accessoriesPark),
			TopAccessories:         top,
		},
		Table: rollup.TopN(items, tableLimit, accessoriesPark),
	}
}

// assembleGlobal 组装全局看板。agg 来自数据库聚合或内存回退，二者形状一致。
func assembleGlobal(items []rollup.ComputedStorage, agg rollup.StorageAggregates, path string, truncated bool, scope string, now time.Time) *GlobalPayload {
	surface := func(s rollup.ComputedStorage) float64 { return s.Surface }
	workforce := func(s rollup.ComputedStorage) float64 { return s.Workforce }

	var totalSurface, totalVolume, totalLaneLength float64
	var totalLanes int
	for _, s := range items {
		totalSurface += s.Surface
		totalVolume += s.Volume
		totalLanes += s.Lanes
		totalLaneLength += s.LaneLength
	}

	storageCount := 0
	for _, r := range agg.OccupancyByPlant {
		storageCount += r.Count
	}

	occupancy := append([]rollup.PlantRollup{}, agg.OccupancyByPlant...)
	rollup.SortByLabel(occupancy, func(r rollup.PlantRollup) (string, string) { return r.Label, r.Key })
	staff := append([]rollup.ValueRollup{}, agg.WorkforceByPlant...)
	rollup.SortByLabel(staff, func(r rollup.ValueRollup) (string, string) { return r.Label, r.Key })

	t := agg.Totals
	return &GlobalPayload{
		Scope:         scope,
		GeneratedAt:   now,
		Truncated:     truncated,
		AggregatePath: path,
		Metrics: []Metric{
			{Key: "storage_count", Label: "Storages", Value: float64(storageCount)},
			{Key: "total_surface", Label: "Total surface", Value: totalSurface, Unit: "m²"},
			{Key: "total_volume", Label: "Total volume", Value: totalVolume, Unit: "m³"},
			{Key: "total_qty", Label: "Stored packagings", Value: t.Qty},
			{Key: "total_max_qty", Label: "Storage capacity", Value: t.MaxQty},
			{Key: "total_value", Label: "Stored value", Value: t.Value, Unit: "€"},
			{Key: "occupancy_pct", Label: "Occupancy", Value: t.OccupancyPct(), Unit: "%"},
			{Key: "slots_remaining", Label: "Free slots", Value: t.SlotsRemaining()},
			{Key: "total_lanes", Label: "Lanes", Value: float64(totalLanes)},
			{Key: "total_lane_length", Label: "Lane length", Value: totalLaneLength, Unit: "m"},
			{Key: "workforce", Label: "Workforce", Value: t.Workforce, Unit: "FTE"},
		},
		SurfaceByPlant: rollup.SumBy(items, rollup.StoragePlant, surface),
		EfficiencyByCategory: rollup.RatioBy(items, rollup.StorageCategory,
			func(s rollup.ComputedStorage) float64 { return s.MaxQty }, surface),
		LanesByPlant: rollup.SumBy(items, rollup.StoragePlant,
			func(s rollup.ComputedStorage) float64 { return float64(s.Lanes) }),
		WorkforceByPlant: staff,
		OccupancyByPlant: occupancy,
		TopBySurface:     rollup.TopN(items, overviewTableLimit, surface),
		TopByWorkforce:   rollup.TopN(items, overviewTableLimit, workforce),
	}
}

// emptyGlobal 加载失败时返回的全零看板，不标记为数据库路径
func emptyGlobal(scope string, now time.Time) *GlobalPayload {
	p := assembleGlobal([]rollup.ComputedStorage{}, rollup.StorageAggregates{}, PathMemory, false, scope, now)
	p.Degraded = true
	return p
}
