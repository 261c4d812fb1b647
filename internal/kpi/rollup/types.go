// Package rollup 资产衍生指标计算与按维度汇总。
//
// 本包无 I/O、无共享状态；传入与返回的切片均归调用方所有。
package rollup

// Packaging 加载器交付的包装资产，数值已由 decimal 转换，缺省值为 0
type Packaging struct {
	ID                 string
	Name               string
	Status             string
	PlantID            string
	PlantName          string
	SupplierID         string
	SupplierName       string
	CategoryID         string
	CategoryName       string
	FlowID             string
	FlowName           string
	Price              float64
	Width              float64 // mm
	Length             float64 // mm
	Height             float64 // mm
	NumberOfPackagings int
	Parts              []Part
	Accessories        []Accessory
}

// Part 包装内的零件
type Part struct {
	ID                string
	Name              string
	Reference         string
	FamilyID          string
	FamilyName        string
	PartsPerPackaging float64
}

// Accessory 包装附件行，UnitPriceOverride 优先于 UnitPriceBase
type Accessory struct {
	ID                string
	Name              string
	UnitPriceBase     float64
	UnitPriceOverride *float64
	QtyPerPackaging   float64
}

// UnitPrice 生效单价
func (a Accessory) UnitPrice() float64 {
	if a.UnitPriceOverride != nil {
		return *a.UnitPriceOverride
	}
	return a.UnitPriceBase
}

// Storage 仓储资产（货架、地堆区）及其巷道、人员与存放的包装
type Storage struct {
	ID            string
	Name          string
	Status        string
	PlantID       string
	PlantName     string
	CategoryID    string
	CategoryName  string
	Width         float64 // mm
	Length        float64 // mm
	Height        float64 // mm
	Lanes         []Lane
	StaffingLines []StaffingLine
	Links         []PackagingLink
}

// Lane 一组相同巷道
type Lane struct {
	Length        float64 // mm
	NumberOfLanes int
	Level         int
}

// StaffingLine 仓储人员配置
type StaffingLine struct {
	Role  string
	Shift string
	Qty   float64
}

// PackagingLink 仓储中存放的包装，UnitValue 为包装单价
type PackagingLink struct {
	PackagingID   string
	PackagingName string
	Qty           int
	MaxQty        int
	UnitValue     float64
}

// ComputedPackaging 包装衍生指标
type ComputedPackaging struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Status             string  `json:"status"`
	PlantID            string  `json:"plant_id"`
	PlantName          string  `json:"plant_name"`
	SupplierID         string  `json:"supplier_id"`
	SupplierName       string  `json:"supplier_name"`
	CategoryName       string  `json:"category_name"`
	FlowName           string  `json:"flow_name"`
	Price              float64 `json:"price"`
	NumberOfPackagings int     `json:"number_of_packagings"`
	VolumeUnit         float64 `json:"volume_unit"`
	CapacityUnit       float64 `json:"capacity_unit"`
	AccessoriesUnit    float64 `json:"accessories_unit"`
	FullUnitCost       float64 `json:"full_unit_cost"`
	FullParkValue      float64 `json:"full_park_value"`
	Density            float64 `json:"density"`
	EuroPerCapacity    float64 `json:"euro_per_capacity"`
	AccessoriesPark    float64 `json:"accessories_park"`
	PartCount          int     `json:"part_count"`
	AccessoryCount     int     `json:"accessory_count"`

	Parts       []Part      `json:"-"`
	Accessories []Accessory `json:"-"`
}

// ComputedStorage 仓储衍生指标
type ComputedStorage struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Status         string  `json:"status"`
	PlantID        string  `json:"plant_id"`
	PlantName      string  `json:"plant_name"`
	CategoryID     string  `json:"category_id"`
	CategoryName   string  `json:"category_name"`
	Surface        float64 `json:"surface"`
	Volume         float64 `json:"volume"`
	Qty            float64 `json:"qty"`
	MaxQty         float64 `json:"max_qty"`
	Value          float64 `json:"value"`
	OccupancyPct   float64 `json:"occupancy_pct"`
	SlotsRemaining float64 `json:"slots_remaining"`
	Lanes          int     `json:"lanes"`
	LaneLength     float64 `json:"lane_length"`
	Workforce      float64 `json:"workforce"`
}
