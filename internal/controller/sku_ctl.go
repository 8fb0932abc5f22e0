package controller

import (
	"net/http"
	"strconv"

	"nexus_erp_v1/internal/api/dto"
	"nexus_erp_v1/internal/model"
	"nexus_erp_v1/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SkuController SKU 映射维护
type SkuController struct {
	skuRepo repository.SkuRepository
}

// NewSkuController 创建 SKU 控制器
func NewSkuController(skuRepo repository.SkuRepository) *SkuController {
	return &SkuController{skuRepo: skuRepo}
}

// List SKU 映射列表
// GET /api/skus
func (ctrl *SkuController) List(c *gin.Context) {
	skus, err := ctrl.skuRepo.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询失败", "detail": err.Error()})
		return
	}

	items := make([]dto.SkuItem, 0, len(skus))
	for _, s := range skus {
		items = append(items, dto.SkuItem{
			ID:           s.ID,
			SkuCode:      s.SkuCode,
			Level1:       s.Level1,
			Level2:       s.Level2,
			UnitCost:     s.UnitCost.StringFixed(2),
			UnitsPerSale: s.UnitsPerSale,
		})
	}

	c.JSON(http.StatusOK, gin.H{"list": items})
}

// Create 新增 SKU 映射版本
// POST /api/skus
// 同一 sku_code 追加新版本即可，查询总是取最新一条
func (ctrl *SkuController) Create(c *gin.Context) {
	var req dto.SkuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sku := &model.SkuMapping{
		SkuCode:      req.SkuCode,
		Level1:       req.Level1,
		Level2:       req.Level2,
		UnitCost:     decimal.NewFromFloat(req.UnitCost),
		UnitsPerSale: req.UnitsPerSale,
	}
	if sku.UnitsPerSale <= 0 {
		sku.UnitsPerSale = 1
	}

	if err := ctrl.skuRepo.Create(c.Request.Context(), sku); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "创建成功", "id": sku.ID})
}

// Update 修改 SKU 映射
// PUT /api/skus/:id
func (ctrl *SkuController) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID 必须是数字"})
		return
	}

	var req dto.SkuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sku := &model.SkuMapping{
		ID:           id,
		SkuCode:      req.SkuCode,
		Level1:       req.Level1,
		Level2:       req.Level2,
		UnitCost:     decimal.NewFromFloat(req.UnitCost),
		UnitsPerSale: req.UnitsPerSale,
	}
	if sku.UnitsPerSale <= 0 {
		sku.UnitsPerSale = 1
	}

	if err := ctrl.skuRepo.Update(c.Request.Context(), sku); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "更新成功"})
}

// Delete 删除 SKU 映射
// DELETE /api/skus/:id
func (ctrl *SkuController) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID 必须是数字"})
		return
	}

	if err := ctrl.skuRepo.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "删除成功"})
}
