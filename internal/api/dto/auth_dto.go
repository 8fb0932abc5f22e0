package dto

// LoginRequest 面板登录
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 面板登录结果
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// RefreshTokenRequest 账号 Token 刷新
type RefreshTokenRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// RefreshTokenResponse 账号 Token 刷新结果
type RefreshTokenResponse struct {
	AccessToken string `json:"access_token"`
}
