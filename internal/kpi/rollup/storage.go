package rollup

// PlantRollup 单个工厂的库存情况
type PlantRollup struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	Count        int     `json:"count"`
	Qty          float64 `json:"qty"`
	MaxQty       float64 `json:"max_qty"`
	Value        float64 `json:"value"`
	OccupancyPct float64 `json:"occupancy_pct"`
}

// StorageTotals 全局仓储卡片（两条聚合路径结果一致）
type StorageTotals struct {
	Qty       float64 `json:"qty"`
	MaxQty    float64 `json:"max_qty"`
	Value     float64 `json:"value"`
	Workforce float64 `json:"workforce"`
}

// Add 累加一个仓储
func (t *StorageTotals) Add(s ComputedStorage) {
	t.Qty += s.Qty
	t.MaxQty += s.MaxQty
	t.Value += s.Value
	t.Workforce += s.Workforce
}

// OccupancyPct 全局占用率
func (t StorageTotals) OccupancyPct() float64 {
	pct, _ := Occupancy(t.Qty, t.MaxQty)
	return pct
}

// SlotsRemaining 全局剩余库位
func (t StorageTotals) SlotsRemaining() float64 {
	_, remaining := Occupancy(t.Qty, t.MaxQty)
	return remaining
}

// StorageAggregates 卡片与按工厂拆分，来自数据库或内存计算
type StorageAggregates struct {
	Totals           StorageTotals `json:"totals"`
	OccupancyByPlant []PlantRollup `json:"occupancy_by_plant"`
	WorkforceByPlant []ValueRollup `json:"workforce_by_plant"`
}

// StoragePlant 仓储的工厂维度
func StoragePlant(s ComputedStorage) Key { return Key{ID: s.PlantID, Name: s.PlantName} }

// StorageCategory 仓储的分类维度
func StorageCategory(s ComputedStorage) Key { return Key{ID: s.CategoryID, Name: s.CategoryName} }

// OccupancyByPlant 按工厂汇总库存
func OccupancyByPlant(items []ComputedStorage) []PlantRollup {
	groups := GroupBy(items, StoragePlant)
	out := make([]PlantRollup, 0, len(groups))
	for _, g := range groups {
		r := PlantRollup{Key: g.Key, Label: g.Label, Count: len(g.Items)}
		for _, s := range g.Items {
			r.Qty += s.Qty
			r.MaxQty += s.MaxQty
			r.Value += s.Value
		}
		r.OccupancyPct, _ = Occupancy(r.Qty, r.MaxQty)
		out = append(out, r)
	}
	return out
}

// WorkforceByPlant 按工厂汇总人员
func WorkforceByPlant(items []ComputedStorage) []ValueRollup {
	return SumBy(items, StoragePlant, func(s ComputedStorage) float64 { return s.Workforce })
}

// AggregateStorages 内存聚合路径，结果与数据库路径一致
func AggregateStorages(items []ComputedStorage) StorageAggregates {
	var totals StorageTotals
	for _, s := range items {
		totals.Add(s)
	}
	return StorageAggregates{
		Totals:           totals,
		OccupancyByPlant: OccupancyByPlant(items),
		WorkforceByPlant: WorkforceByPlant(items),
	}
}

// TotalsFromPlants 由按工厂行汇总出全局总量
func TotalsFromPlants(stock []PlantRollup, workforce []ValueRollup) StorageTotals {
	var t StorageTotals
	for _, r := range stock {
		t.Qty += r.Qty
		t.MaxQty += r.MaxQty
		t.Value += r.Value
	}
	for _, r := range workforce {
		t.Workforce += r.Value
	}
	return t
}
