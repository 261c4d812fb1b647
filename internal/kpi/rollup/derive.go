package rollup

import "math"

const (
	mm3PerM3 = 1_000_000_000
	mm2PerM2 = 1_000_000
	mmPerM   = 1_000
)

// DerivePackaging 计算单个包装的衍生指标
func DerivePackaging(p Packaging) ComputedPackaging {
	volume := p.Width * p.Length * p.Height / mm3PerM3

	var capacity float64
	for _, part := range p.Parts {
		capacity += part.PartsPerPackaging
	}

	var accessories float64
	for _, a := range p.Accessories {
		accessories += a.UnitPrice() * a.QtyPerPackaging
	}

	units := float64(p.NumberOfPackagings)
	fullUnitCost := p.Price + accessories

	return ComputedPackaging{
		ID:                 p.ID,
		Name:               p.Name,
		Status:             p.Status,
		PlantID:            p.PlantID,
		PlantName:          p.PlantName,
		SupplierID:         p.SupplierID,
		SupplierName:       p.SupplierName,
		CategoryName:       p.CategoryName,
		FlowName:           p.FlowName,
		Price:              p.Price,
		NumberOfPackagings: p.NumberOfPackagings,
		VolumeUnit:         finite(volume),
		CapacityUnit:       capacity,
		AccessoriesUnit:    accessories,
		FullUnitCost:       fullUnitCost,
		FullParkValue:      fullUnitCost * units,
		Density:            ratio(capacity, volume),
		EuroPerCapacity:    ratio(fullUnitCost, capacity),
		AccessoriesPark:    accessories * units,
		PartCount:          len(p.Parts),
		AccessoryCount:     len(p.Accessories),
		Parts:              p.Parts,
		Accessories:        p.Accessories,
	}
}

// DeriveStorage 计算单个仓储的衍生指标
func DeriveStorage(s Storage) ComputedStorage {
	c := ComputedStorage{
		ID:           s.ID,
		Name:         s.Name,
		Status:       s.Status,
		PlantID:      s.PlantID,
		PlantName:    s.PlantName,
		CategoryID:   s.CategoryID,
		CategoryName: s.CategoryName,
		Surface:      finite(s.Width * s.Length / mm2PerM2),
		Volume:       finite(s.Width * s.Length * s.Height / mm3PerM3),
	}

	for _, l := range s.Links {
		c.Qty += float64(l.Qty)
		c.MaxQty += float64(l.MaxQty)
		c.Value += float64(l.Qty) * l.UnitValue
	}
	c.OccupancyPct, c.SlotsRemaining = Occupancy(c.Qty, c.MaxQty)

	for _, lane := range s.Lanes {
		n := lane.NumberOfLanes
		if n <= 0 {
			n = 1
		}
		c.Lanes += n
		c.LaneLength += lane.Length * float64(n) / mmPerM
	}

	for _, line := range s.StaffingLines {
		c.Workforce += line.Qty
	}
	return c
}

// Occupancy 占用率与剩余库位；maxQty 不为正时均为 0
func Occupancy(qty, maxQty float64) (pct, remaining float64) {
	if maxQty <= 0 {
		return 0, 0
	}
	return ratio(qty, maxQty) * 100, maxQty - qty
}

// ratio 分母不为正时返回 0
func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return finite(num / den)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
