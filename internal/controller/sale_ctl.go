package controller

import (
	"net/http"
	"time"

	"nexus_erp_v1/internal/api/dto"
	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"

	"github.com/gin-gonic/gin"
)

// SaleController 销售记录控制器（只读）
type SaleController struct {
	saleRepo  repository.SaleRepository
	tokenRepo repository.TokenRepository
}

// NewSaleController 创建销售控制器
func NewSaleController(saleRepo repository.SaleRepository, tokenRepo repository.TokenRepository) *SaleController {
	return &SaleController{saleRepo: saleRepo, tokenRepo: tokenRepo}
}

// buildFilter 请求参数转仓库过滤条件
func buildFilter(req *dto.ListSalesRequest) repository.SaleFilter {
	filter := repository.SaleFilter{
		MlUserID: req.MlUserID,
		Status:   req.Status,
		Keyword:  req.Keyword,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.StartDate != "" {
		if t, err := time.Parse("2006-01-02", req.StartDate); err == nil {
			filter.StartDate = &t
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse("2006-01-02", req.EndDate); err == nil {
			// 含当天
			end := t.AddDate(0, 0, 1)
			filter.EndDate = &end
		}
	}
	return filter
}

// List 销售列表
// GET /api/sales
func (ctrl *SaleController) List(c *gin.Context) {
	var req dto.ListSalesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sales, total, err := ctrl.saleRepo.List(c.Request.Context(), buildFilter(&req))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询失败", "detail": err.Error()})
		return
	}

	nicknames := ctrl.nicknameIndex(c)

	resp := dto.ListSalesResponse{Total: total, List: make([]dto.SaleListItem, 0, len(sales))}
	for i := range sales {
		resp.List = append(resp.List, toSaleItem(&sales[i], nicknames))
	}

	c.JSON(http.StatusOK, resp)
}

// Stats 面板聚合指标
// GET /api/sales/stats
func (ctrl *SaleController) Stats(c *gin.Context) {
	var req dto.ListSalesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := ctrl.saleRepo.GetStats(c.Request.Context(), buildFilter(&req))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "统计失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.SaleStatsResponse{
		TotalSales:  stats.TotalSales,
		TotalAmount: stats.TotalAmount,
		TotalItems:  stats.TotalItems,
		AvgTicket:   stats.AvgTicket,
	})
}

// Accounts 已授权账号列表
// GET /api/accounts
func (ctrl *SaleController) Accounts(c *gin.Context) {
	tokens, err := ctrl.tokenRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询失败", "detail": err.Error()})
		return
	}

	items := make([]dto.AccountItem, 0, len(tokens))
	for _, t := range tokens {
		items = append(items, dto.AccountItem{
			MlUserID:    t.MlUserID,
			Nickname:    t.Nickname,
			TokenStatus: t.TokenStatus,
			SyncState:   t.SyncState,
			LastSyncAt:  t.LastSyncAt,
			ExpiresAt:   t.ExpiresAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"list": items})
}

// nicknameIndex 账号昵称索引，查不到时列表仍可返回
func (ctrl *SaleController) nicknameIndex(c *gin.Context) map[int64]string {
	index := make(map[int64]string)
	tokens, err := ctrl.tokenRepo.List(c.Request.Context())
	if err != nil {
		return index
	}
	for _, t := range tokens {
		index[t.MlUserID] = t.Nickname
	}
	return index
}

func toSaleItem(s *model.Sale, nicknames map[int64]string) dto.SaleListItem {
	item := dto.SaleListItem{
		OrderID:     s.OrderID,
		MlUserID:    s.MlUserID,
		Nickname:    nicknames[s.MlUserID],
		ItemTitle:   s.ItemTitle,
		Status:      s.Status,
		Quantity:    s.Quantity,
		UnitPrice:   s.UnitPrice,
		TotalAmount: s.TotalAmount,
		Level1:      s.Level1,
		Level2:      s.Level2,
		SellerSKU:   s.SellerSKU,
		DateClosed:  s.DateClosed,
		DateCreated: s.DateCreated,
	}
	if s.MlFee.Valid {
		item.MlFee = s.MlFee.Decimal.StringFixed(2)
	}
	if s.UnitCost.Valid {
		item.UnitCost = s.UnitCost.Decimal.StringFixed(2)
	}
	return item
}
