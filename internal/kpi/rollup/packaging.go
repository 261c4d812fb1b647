package rollup

// PackagingPlant 包装的工厂维度
func PackagingPlant(p ComputedPackaging) Key { return Key{ID: p.PlantID, Name: p.PlantName} }

// PackagingSupplier 包装的供应商维度
func PackagingSupplier(p ComputedPackaging) Key {
	return Key{ID: p.SupplierID, Name: p.SupplierName}
}

// PartFamilies 包装内每个零件的零件族（每个零件一项）
func PartFamilies(p ComputedPackaging) []Key {
	keys := make([]Key, 0, len(p.Parts))
	for _, part := range p.Parts {
		keys = append(keys, Key{ID: part.FamilyID, Name: part.FamilyName})
	}
	return keys
}

// DerivePackagings 批量计算衍生指标，保持加载顺序
func DerivePackagings(items []Packaging) []ComputedPackaging {
	out := make([]ComputedPackaging, 0, len(items))
	for _, p := range items {
		out = append(out, DerivePackaging(p))
	}
	return out
}

// PartLine 展开后的零件行，用于零件族汇总与明细表
type PartLine struct {
	PackagingID       string  `json:"packaging_id"`
	PackagingName     string  `json:"packaging_name"`
	PlantName         string  `json:"plant_name"`
	PartID            string  `json:"part_id"`
	PartName          string  `json:"part_name"`
	Reference         string  `json:"reference"`
	FamilyID          string  `json:"family_id"`
	Family            string  `json:"family"`
	PartsPerPackaging float64 `json:"parts_per_packaging"`
}

// PartLines 按加载顺序展开全部零件
func PartLines(items []ComputedPackaging) []PartLine {
	out := make([]PartLine, 0)
	for _, p := range items {
		for _, part := range p.Parts {
			family := Key{ID: part.FamilyID, Name: part.FamilyName}
			out = append(out, PartLine{
				PackagingID:       p.ID,
				PackagingName:     p.Name,
				PlantName:         p.PlantName,
				PartID:            part.ID,
				PartName:          part.Name,
				Reference:         part.Reference,
				FamilyID:          part.FamilyID,
				Family:            family.Label(),
				PartsPerPackaging: part.PartsPerPackaging,
			})
		}
	}
	return out
}

// AccessoryRollup 单个附件在所有使用它的包装上的汇总
type AccessoryRollup struct {
	AccessoryID string  `json:"accessory_id"`
	Name        string  `json:"name"`
	Packagings  int     `json:"packagings"`
	TotalQty    float64 `json:"total_qty"`
	ParkCost    float64 `json:"park_cost"`
	AvgUnit     float64 `json:"avg_unit_price"`
}

// AccessoriesByID 按附件汇总附件行，TotalQty 与 ParkCost 按包装数量放大
func AccessoriesByID(items []ComputedPackaging) []AccessoryRollup {
	type line struct {
		acc   Accessory
		units float64
	}
	lines := make([]line, 0)
	for _, p := range items {
		for _, a := range p.Accessories {
			lines = append(lines, line{acc: a, units: float64(p.NumberOfPackagings)})
		}
	}

	groups := GroupBy(lines, func(l line) Key { return Key{ID: l.acc.ID, Name: l.acc.Name} })
	out := make([]AccessoryRollup, 0, len(groups))
	for _, g := range groups {
		r := AccessoryRollup{AccessoryID: g.Key, Name: g.Label, Packagings: len(g.Items)}
		var unitQty, unitCost float64
		for _, l := range g.Items {
			qty := l.acc.QtyPerPackaging * l.units
			r.TotalQty += qty
			r.ParkCost += l.acc.UnitPrice() * qty
			unitQty += l.acc.QtyPerPackaging
			unitCost += l.acc.UnitPrice() * l.acc.QtyPerPackaging
		}
		r.AvgUnit = ratio(unitCost, unitQty)
		out = append(out, r)
	}
	return out
}
