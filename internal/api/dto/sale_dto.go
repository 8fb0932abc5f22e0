package dto

import "time"

// ListSalesRequest 销售列表查询
type ListSalesRequest struct {
	MlUserID  int64  `form:"ml_user_id"`
	Status    string `form:"status"`
	StartDate string `form:"start_date"` // 2006-01-02
	EndDate   string `form:"end_date"`
	Keyword   string `form:"keyword"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

// SaleListItem 列表项
type SaleListItem struct {
	OrderID     int64      `json:"order_id"`
	MlUserID    int64      `json:"ml_user_id"`
	Nickname    string     `json:"nickname"`
	ItemTitle   string     `json:"item_title"`
	Status      string     `json:"status"`
	Quantity    int        `json:"quantity"`
	UnitPrice   float64    `json:"unit_price"`
	TotalAmount float64    `json:"total_amount"`
	MlFee       string     `json:"ml_fee,omitempty"`
	UnitCost    string     `json:"custo_unitario,omitempty"`
	Level1      string     `json:"level1,omitempty"`
	Level2      string     `json:"level2,omitempty"`
	SellerSKU   string     `json:"seller_sku,omitempty"`
	DateClosed  time.Time  `json:"date_closed"`
	DateCreated *time.Time `json:"date_created,omitempty"`
}

// ListSalesResponse 销售列表响应
type ListSalesResponse struct {
	Total int64          `json:"total"`
	List  []SaleListItem `json:"list"`
}

// SaleStatsResponse 面板聚合指标
type SaleStatsResponse struct {
	TotalSales  int64   `json:"total_sales"`
	TotalAmount float64 `json:"total_amount"`
	TotalItems  int64   `json:"total_items"`
	AvgTicket   float64 `json:"avg_ticket"`
}

// AccountItem 已授权账号
type AccountItem struct {
	MlUserID    int64      `json:"ml_user_id"`
	Nickname    string     `json:"nickname"`
	TokenStatus int        `json:"token_status"`
	SyncState   string     `json:"sync_state"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}
