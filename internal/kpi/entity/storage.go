package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Storage 仓储资产（货架/库位）
type Storage struct {
	ID         string          `json:"id" gorm:"primaryKey;size:32"`
	Name       string          `json:"name" gorm:"size:200;not null"`
	Status     string          `json:"status" gorm:"size:16;not null;default:ACTIVE;index"`
	PlantID    string          `json:"plant_id" gorm:"size:32;index"`
	CategoryID *string         `json:"category_id" gorm:"size:32;index"`
	FlowID     *string         `json:"flow_id" gorm:"size:32;index"`
	Width      decimal.Decimal `json:"width" gorm:"type:numeric(12,2);not null;default:0"`  // mm
	Length     decimal.Decimal `json:"length" gorm:"type:numeric(12,2);not null;default:0"` // mm
	Height     decimal.Decimal `json:"height" gorm:"type:numeric(12,2);not null;default:0"` // mm
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// Relations
	Plant          *Plant             `json:"plant,omitempty" gorm:"foreignKey:PlantID"`
	Category       *Category          `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Lanes          []StorageLane      `json:"lanes,omitempty" gorm:"foreignKey:StorageID"`
	StaffingLines  []StaffingLine     `json:"staffing_lines,omitempty" gorm:"foreignKey:StorageID"`
	PackagingLinks []StoragePackaging `json:"packaging_links,omitempty" gorm:"foreignKey:StorageID"`
}

func (Storage) TableName() string {
	return "storages"
}

// StorageLane 巷道组
type StorageLane struct {
	ID            string          `json:"id" gorm:"primaryKey;size:32"`
	StorageID     string          `json:"storage_id" gorm:"size:32;not null;index"`
	LaneLength    decimal.Decimal `json:"lane_length" gorm:"type:numeric(12,2);not null;default:0"` // mm
	NumberOfLanes int             `json:"number_of_lanes" gorm:"not null;default:1"`
	Level         int             `json:"level" gorm:"not null;default:0"`
}

func (StorageLane) TableName() string {
	return "storage_lanes"
}

// StaffingLine 人员配置行
type StaffingLine struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	StorageID string          `json:"storage_id" gorm:"size:32;not null;index"`
	Role      string          `json:"role" gorm:"size:64"`
	Shift     string          `json:"shift" gorm:"size:16"`
	Qty       decimal.Decimal `json:"qty" gorm:"type:numeric(8,2);not null;default:0"`
}

func (StaffingLine) TableName() string {
	return "staffing_lines"
}

// StoragePackaging 仓储-包装关联（库存数量/容量）
type StoragePackaging struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	StorageID   string `json:"storage_id" gorm:"size:32;not null;index"`
	PackagingID string `json:"packaging_id" gorm:"size:32;not null;index"`
	Qty         int    `json:"qty" gorm:"not null;default:0"`
	MaxQty      int    `json:"max_qty" gorm:"not null;default:0"`

	Packaging *Packaging `json:"packaging,omitempty" gorm:"foreignKey:PackagingID"`
}

func (StoragePackaging) TableName() string {
	return "storage_packagings"
}
