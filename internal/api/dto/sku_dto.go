package dto

// SkuRequest SKU 映射创建/更新
type SkuRequest struct {
	SkuCode      string  `json:"sku_code" binding:"required"`
	Level1       string  `json:"level1"`
	Level2       string  `json:"level2"`
	UnitCost     float64 `json:"custo_unitario"`
	UnitsPerSale int     `json:"units_per_sale"`
}

// SkuItem SKU 映射条目
type SkuItem struct {
	ID           int64  `json:"id"`
	SkuCode      string `json:"sku_code"`
	Level1       string `json:"level1"`
	Level2       string `json:"level2"`
	UnitCost     string `json:"custo_unitario"`
	UnitsPerSale int    `json:"units_per_sale"`
}
