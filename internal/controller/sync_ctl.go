package controller

import (
	"errors"
	"net/http"
	"strconv"

	"nexus_erp_v1/internal/api/dto"
	"nexus_erp_v1/internal/service"
	"nexus_erp_v1/pkg/meli"

	"github.com/gin-gonic/gin"
)

// SyncController 同步控制器
type SyncController struct {
	svc *service.SyncService
}

// NewSyncController 创建同步控制器
func NewSyncController(svc *service.SyncService) *SyncController {
	return &SyncController{svc: svc}
}

// parseAccountID 解析路径里的 ML 账号 ID
func parseAccountID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "账号 ID 必须是数字"})
		return 0, false
	}
	return id, true
}

// syncError 同步失败的统一出口
func syncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "账号未授权"})
	case errors.Is(err, meli.ErrAuthExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "授权已失效，请重新授权", "detail": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "同步失败", "detail": err.Error()})
	}
}

// SyncAccount 单账号增量同步
// POST /api/sync/accounts/:id
func (ctrl *SyncController) SyncAccount(c *gin.Context) {
	mlUserID, ok := parseAccountID(c)
	if !ok {
		return
	}

	result, err := ctrl.svc.SyncAccount(c.Request.Context(), mlUserID)
	if err != nil {
		syncError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SyncAccountResponse{
		MlUserID: mlUserID,
		New:      result.New,
		Updated:  result.Updated,
	})
}

// SyncAll 全部账号增量同步
// POST /api/sync/all
func (ctrl *SyncController) SyncAll(c *gin.Context) {
	result, err := ctrl.svc.SyncAllAccounts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "同步失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// FullImport 单账号全量导入
// POST /api/sync/accounts/:id/full
func (ctrl *SyncController) FullImport(c *gin.Context) {
	mlUserID, ok := parseAccountID(c)
	if !ok {
		return
	}

	imported, err := ctrl.svc.FullImport(c.Request.Context(), mlUserID)
	if err != nil {
		syncError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FullImportResponse{
		MlUserID: mlUserID,
		Imported: imported,
	})
}

// Reconcile 单账号历史对账
// POST /api/sync/accounts/:id/reconcile?return_changes=true
func (ctrl *SyncController) Reconcile(c *gin.Context) {
	mlUserID, ok := parseAccountID(c)
	if !ok {
		return
	}

	var req dto.ReconcileRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := ctrl.svc.ReconcileHistory(c.Request.Context(), mlUserID, req.ReturnChanges)
	if err != nil {
		syncError(c, err)
		return
	}

	resp := dto.ReconcileResponse{
		MlUserID: mlUserID,
		New:      result.New,
		Updated:  result.Updated,
	}
	for _, ch := range result.Changes {
		resp.Changes = append(resp.Changes, dto.StatusChangeItem{
			OrderID:   ch.OrderID,
			OldStatus: ch.OldStatus,
			NewStatus: ch.NewStatus,
		})
	}

	c.JSON(http.StatusOK, resp)
}
