package controller

import (
	"errors"
	"net/http"

	"nexus_erp_v1/internal/api/dto"
	"nexus_erp_v1/internal/service"

	"github.com/gin-gonic/gin"
)

// UserController 面板用户控制器
type UserController struct {
	userService *service.UserService
}

// NewUserController 创建面板用户控制器
func NewUserController(svc *service.UserService) *UserController {
	return &UserController{userService: svc}
}

// Login 面板登录
// POST /api/login
func (ctrl *UserController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := ctrl.userService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrInvalidPassword) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "用户名或密码错误"})
			return
		}
		if errors.Is(err, service.ErrUserDisabled) {
			c.JSON(http.StatusForbidden, gin.H{"error": "用户已禁用"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登录失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}
