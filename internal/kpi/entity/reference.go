package entity

import "time"

// 资产状态
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusDraft    = "DRAFT"
	// StatusAll 仅用于筛选，表示不过滤状态
	StatusAll = "ALL"
)

// Plant 工厂
type Plant struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	City      string    `json:"city" gorm:"size:64"`
	Country   string    `json:"country" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Plant) TableName() string {
	return "plants"
}

// Supplier 供应商
type Supplier struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Country   string    `json:"country" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// Flow 物流流向
type Flow struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Flow) TableName() string {
	return "flows"
}

// Category 资产分类（包装/仓储共用）
type Category struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	Slug      string    `json:"slug" gorm:"size:128;uniqueIndex;not null"`
	Family    string    `json:"family" gorm:"size:16;not null;default:packaging"` // packaging/storage/transport
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// PartFamily 零件族
type PartFamily struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PartFamily) TableName() string {
	return "part_families"
}
