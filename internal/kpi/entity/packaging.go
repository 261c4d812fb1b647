package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Packaging 包装资产
type Packaging struct {
	ID                 string          `json:"id" gorm:"primaryKey;size:32"`
	Name               string          `json:"name" gorm:"size:200;not null"`
	Status             string          `json:"status" gorm:"size:16;not null;default:ACTIVE;index"`
	PlantID            string          `json:"plant_id" gorm:"size:32;index"`
	SupplierID         *string         `json:"supplier_id" gorm:"size:32;index"`
	CategoryID         string          `json:"category_id" gorm:"size:32;index"`
	FlowID             *string         `json:"flow_id" gorm:"size:32;index"`
	Price              decimal.Decimal `json:"price" gorm:"type:numeric(15,4);not null;default:0"`
	Width              decimal.Decimal `json:"width" gorm:"type:numeric(12,2);not null;default:0"`  // mm
	Length             decimal.Decimal `json:"length" gorm:"type:numeric(12,2);not null;default:0"` // mm
	Height             decimal.Decimal `json:"height" gorm:"type:numeric(12,2);not null;default:0"` // mm
	NumberOfPackagings int             `json:"number_of_packagings" gorm:"not null;default:0"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Relations
	Plant       *Plant               `json:"plant,omitempty" gorm:"foreignKey:PlantID"`
	Supplier    *Supplier            `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
	Category    *Category            `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Flow        *Flow                `json:"flow,omitempty" gorm:"foreignKey:FlowID"`
	Parts       []Part               `json:"parts,omitempty" gorm:"foreignKey:PackagingID"`
	Accessories []PackagingAccessory `json:"accessories,omitempty" gorm:"foreignKey:PackagingID"`
}

func (Packaging) TableName() string {
	return "packagings"
}

// Part 零件（装入包装的产品）
type Part struct {
	ID                string          `json:"id" gorm:"primaryKey;size:32"`
	PackagingID       string          `json:"packaging_id" gorm:"size:32;not null;index"`
	PartFamilyID      *string         `json:"part_family_id" gorm:"size:32;index"`
	Name              string          `json:"name" gorm:"size:200;not null"`
	Reference         string          `json:"reference" gorm:"size:64"`
	PartsPerPackaging decimal.Decimal `json:"parts_per_packaging" gorm:"type:numeric(12,2);not null;default:0"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	PartFamily *PartFamily `json:"part_family,omitempty" gorm:"foreignKey:PartFamilyID"`
}

func (Part) TableName() string {
	return "parts"
}

// Accessory 附件
type Accessory struct {
	ID         string          `json:"id" gorm:"primaryKey;size:32"`
	Name       string          `json:"name" gorm:"size:200;not null"`
	SupplierID *string         `json:"supplier_id" gorm:"size:32"`
	UnitPrice  decimal.Decimal `json:"unit_price" gorm:"type:numeric(15,4);not null;default:0"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Accessory) TableName() string {
	return "accessories"
}

// PackagingAccessory 包装-附件关联（可覆盖单价）
type PackagingAccessory struct {
	ID                string              `json:"id" gorm:"primaryKey;size:32"`
	PackagingID       string              `json:"packaging_id" gorm:"size:32;not null;index"`
	AccessoryID       string              `json:"accessory_id" gorm:"size:32;not null;index"`
	QtyPerPackaging   decimal.Decimal     `json:"qty_per_packaging" gorm:"type:numeric(12,2);not null;default:0"`
	UnitPriceOverride decimal.NullDecimal `json:"unit_price_override" gorm:"type:numeric(15,4)"`

	Accessory *Accessory `json:"accessory,omitempty" gorm:"foreignKey:AccessoryID"`
}

func (PackagingAccessory) TableName() string {
	return "packaging_accessories"
}
