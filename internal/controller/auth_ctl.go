package controller

import (
	"context"
	"errors"
	"log"
	"net/http"

	"nexus_erp_v1/internal/api/dto"
	"nexus_erp_v1/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthController ML 账号授权控制器
type AuthController struct {
	authService *service.AuthService
	syncService *service.SyncService
}

// NewAuthController 创建授权控制器
func NewAuthController(authSvc *service.AuthService, syncSvc *service.SyncService) *AuthController {
	return &AuthController{authService: authSvc, syncService: syncSvc}
}

// Login 获取 ML 授权链接
// GET /api/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	url := ctrl.authService.GenerateLoginURL()
	c.JSON(http.StatusOK, gin.H{
		"message":  "获取成功",
		"auth_url": url,
	})
}

// Callback ML 授权回调
// GET /api/auth/callback
// 换取 Token 入库后，后台补一次同步：新账号会走全量导入
func (ctrl *AuthController) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	errParam := c.Query("error")

	if errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "用户拒绝了授权", "ml_msg": errParam})
		return
	}
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少必要参数 code 或 state"})
		return
	}

	token, err := ctrl.authService.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "授权失败", "detail": err.Error()})
		return
	}

	// 回调不等同步完成，后台跑
	go func(mlUserID int64) {
		if _, err := ctrl.syncService.SyncAccount(context.Background(), mlUserID); err != nil {
			log.Printf("[Auth] 授权后首次同步失败 ml_user_id=%d: %v", mlUserID, err)
		}
	}(token.MlUserID)

	c.JSON(http.StatusOK, gin.H{
		"message":    "授权成功，已在后台开始同步",
		"ml_user_id": token.MlUserID,
		"nickname":   token.Nickname,
	})
}

// Refresh 手动刷新某账号的 Access Token
// POST /api/auth/refresh
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, err := ctrl.authService.RefreshAccessToken(c.Request.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "账号未授权"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "刷新失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.RefreshTokenResponse{AccessToken: accessToken})
}
