package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SkuMapping 本地维护的 SKU 元数据
// 同一 sku_code 允许多个版本，created_at 最新者生效；销售记录弱引用，不级联
type SkuMapping struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	SkuCode string `gorm:"size:100;index;not null"`

	// 两级类目
	Level1 string `gorm:"size:100"`
	Level2 string `gorm:"size:100"`

	// 单位成本与件数系数（一次销售对应几件）
	UnitCost     decimal.Decimal `gorm:"column:custo_unitario;type:numeric(10,2)"`
	UnitsPerSale int             `gorm:"default:1"`

	CreatedAt time.Time
}

func (SkuMapping) TableName() string {
	return "sku_mappings"
}
